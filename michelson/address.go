package michelson

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// AddressLength is the size of the payload of every address kind.
const AddressLength = 20

// AddressKind distinguishes the three implicit-account prefixes from
// originated contracts.
type AddressKind uint8

const (
	AddrTz1 AddressKind = iota
	AddrTz2
	AddrTz3
	AddrKT1
)

func (k AddressKind) Prefix() string {
	switch k {
	case AddrTz1:
		return "tz1"
	case AddrTz2:
		return "tz2"
	case AddrTz3:
		return "tz3"
	case AddrKT1:
		return "KT1"
	default:
		panic(fmt.Sprintf("unknown address kind %d", uint8(k)))
	}
}

// Address identifies an account: a tagged prefix plus a 20 byte hash.
// Implicit accounts (tz1/tz2/tz3) are derived from key hashes, originated
// contracts (KT1) from the origination operation.
type Address struct {
	Kind AddressKind
	Hash [AddressLength]byte
}

// ContractAddress wraps a 20 byte hash as an originated contract address.
func ContractAddress(hash [AddressLength]byte) Address {
	return Address{Kind: AddrKT1, Hash: hash}
}

// String renders the address in base58 with a 4 byte blake2b checksum over
// the prefix and payload.
func (a Address) String() string {
	return a.Kind.Prefix() + base58.Encode(appendChecksum(a.Kind.Prefix(), a.Hash[:]))
}

// ParseAddress parses the rendering produced by String, verifying the
// checksum.
func ParseAddress(s string) (Address, error) {
	if len(s) < 4 {
		return Address{}, fmt.Errorf("address %q is too short", s)
	}
	var kind AddressKind
	switch s[:3] {
	case "tz1":
		kind = AddrTz1
	case "tz2":
		kind = AddrTz2
	case "tz3":
		kind = AddrTz3
	case "KT1":
		kind = AddrKT1
	default:
		return Address{}, fmt.Errorf("address %q has an unknown prefix", s)
	}
	payload, err := base58.Decode(s[3:])
	if err != nil {
		return Address{}, fmt.Errorf("address %q is not valid base58: %w", s, err)
	}
	if len(payload) != AddressLength+checksumLength {
		return Address{}, fmt.Errorf("address %q has payload of length %d", s, len(payload))
	}
	var hash [AddressLength]byte
	copy(hash[:], payload[:AddressLength])
	if !bytes.Equal(appendChecksum(kind.Prefix(), hash[:]), payload) {
		return Address{}, fmt.Errorf("address %q has an invalid checksum", s)
	}
	return Address{Kind: kind, Hash: hash}, nil
}

const checksumLength = 4

func appendChecksum(prefix string, payload []byte) []byte {
	sum := blake2b.Sum256(append([]byte(prefix), payload...))
	return append(append([]byte{}, payload...), sum[:checksumLength]...)
}

// KeyHash is the hash of a public key, tagged with the curve it belongs to.
// Only curve 0 (ed25519, the tz1 namespace) is produced by this
// implementation; the other tags exist for parsed addresses.
type KeyHash struct {
	Curve uint8
	Hash  [AddressLength]byte
}

// HashKey computes the key hash of a public key (blake2b-160 of its bytes).
func HashKey(key PublicKey) KeyHash {
	h, err := blake2b.New(AddressLength, nil)
	if err != nil {
		panic(err)
	}
	h.Write(key)
	var out [AddressLength]byte
	copy(out[:], h.Sum(nil))
	return KeyHash{Curve: 0, Hash: out}
}

// ImplicitAccount returns the implicit account address controlled by the
// given key hash.
func ImplicitAccount(kh KeyHash) Address {
	if kh.Curve > 2 {
		panic(fmt.Sprintf("key hash with unknown curve tag %d", kh.Curve))
	}
	return Address{Kind: AddressKind(kh.Curve), Hash: kh.Hash}
}

func (kh KeyHash) String() string {
	return ImplicitAccount(kh).String()
}
