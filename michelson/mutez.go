package michelson

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

// Mutez is an amount of tokens in millionths of a tez. It is always
// non-negative; arithmetic that would leave the representable range fails
// instead of wrapping.
type Mutez int64

// MaxMutez is the largest representable token amount.
const MaxMutez Mutez = math.MaxInt64

var (
	ErrMutezOverflow  = errors.New("mutez overflow")
	ErrMutezUnderflow = errors.New("mutez subtraction underflow")
)

// NewMutez validates that x is a representable token amount.
func NewMutez(x int64) (Mutez, error) {
	if x < 0 {
		return 0, fmt.Errorf("mutez amount must be non-negative, got %d", x)
	}
	return Mutez(x), nil
}

// Add returns m+n, failing on overflow.
func (m Mutez) Add(n Mutez) (Mutez, error) {
	if n > MaxMutez-m {
		return 0, ErrMutezOverflow
	}
	return m + n, nil
}

// Sub returns m-n, failing when the result would be negative.
func (m Mutez) Sub(n Mutez) (Mutez, error) {
	if n > m {
		return 0, ErrMutezUnderflow
	}
	return m - n, nil
}

// MulNat returns m*n for a natural n, failing on overflow.
func (m Mutez) MulNat(n *big.Int) (Mutez, error) {
	r := new(big.Int).Mul(big.NewInt(int64(m)), n)
	if !r.IsInt64() {
		return 0, ErrMutezOverflow
	}
	return Mutez(r.Int64()), nil
}

// EDiv returns the euclidean quotient and remainder of m by n, and false
// when n is zero.
func (m Mutez) EDiv(n Mutez) (q Mutez, r Mutez, ok bool) {
	if n == 0 {
		return 0, 0, false
	}
	return m / n, m % n, true
}

// EDivNat divides m by a natural number, returning a mutez quotient and
// remainder; ok is false when n is zero.
func (m Mutez) EDivNat(n *big.Int) (q Mutez, r Mutez, ok bool) {
	if n.Sign() == 0 {
		return 0, 0, false
	}
	bq, br := new(big.Int).QuoRem(big.NewInt(int64(m)), n, new(big.Int))
	return Mutez(bq.Int64()), Mutez(br.Int64()), true
}

func (m Mutez) String() string { return fmt.Sprintf("%d", int64(m)) }
