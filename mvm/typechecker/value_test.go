package typechecker

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
	"github.com/techoluwoye/lorentz-contract-param/mvm/errors"
)

func TestTypecheckValueAtoms(t *testing.T) {
	v, err := TypecheckValue(michelson.UInt{X: big.NewInt(-5)}, michelson.IntT)
	require.NoError(t, err)
	assert.True(t, michelson.ValuesEqual(v, michelson.IntV(-5)))

	_, err = TypecheckValue(michelson.UInt{X: big.NewInt(-5)}, michelson.NatT)
	require.Error(t, err)
	assert.True(t, errors.IsTCFailedOnValue(err))

	_, err = TypecheckValue(michelson.UString{S: "x"}, michelson.IntT)
	assert.Error(t, err)

	v, err = TypecheckValue(michelson.UInt{X: big.NewInt(77)}, michelson.MutezT)
	require.NoError(t, err)
	assert.True(t, michelson.ValuesEqual(v, michelson.VMutez{M: 77}))
}

func TestStringLiteralsAreContextual(t *testing.T) {
	t.Run("plain string", func(t *testing.T) {
		v, err := TypecheckValue(michelson.UString{S: "hello"}, michelson.StringT)
		require.NoError(t, err)
		assert.True(t, michelson.ValuesEqual(v, michelson.VString{S: "hello"}))
	})

	t.Run("address", func(t *testing.T) {
		addr := michelson.Address{Kind: michelson.AddrTz1, Hash: [20]byte{1}}
		v, err := TypecheckValue(michelson.UString{S: addr.String()}, michelson.AddressT)
		require.NoError(t, err)
		assert.True(t, michelson.ValuesEqual(v, michelson.VAddress{A: addr}))
	})

	t.Run("key hash rejects contract addresses", func(t *testing.T) {
		kt := michelson.ContractAddress([20]byte{2})
		_, err := TypecheckValue(michelson.UString{S: kt.String()}, michelson.KeyHashT)
		assert.Error(t, err)
	})

	t.Run("rfc3339 timestamp", func(t *testing.T) {
		v, err := TypecheckValue(michelson.UString{S: "1970-01-01T00:01:00Z"}, michelson.TimestampT)
		require.NoError(t, err)
		assert.True(t, michelson.ValuesEqual(v, michelson.VTimestamp{T: 60}))
	})

	t.Run("numeric timestamp", func(t *testing.T) {
		v, err := TypecheckValue(michelson.UInt{X: big.NewInt(-1)}, michelson.TimestampT)
		require.NoError(t, err)
		assert.True(t, michelson.ValuesEqual(v, michelson.VTimestamp{T: -1}))
	})
}

func TestTypecheckValueContainers(t *testing.T) {
	t.Run("pair and or", func(t *testing.T) {
		u := michelson.UPairU{
			L: michelson.UInt{X: big.NewInt(1)},
			R: michelson.UOrU{IsRight: true, V: michelson.UUnit{}},
		}
		typ := michelson.TPair{
			Left:  michelson.IntT,
			Right: michelson.TOr{Left: michelson.StringT, Right: michelson.TUnit{}},
		}
		v, err := TypecheckValue(u, typ)
		require.NoError(t, err)
		assert.Equal(t, "(Pair 1 (Right Unit))", v.String())
	})

	t.Run("set requires strict order", func(t *testing.T) {
		asc := michelson.USeq{Items: []michelson.UValue{
			michelson.UInt{X: big.NewInt(1)},
			michelson.UInt{X: big.NewInt(2)},
		}}
		_, err := TypecheckValue(asc, michelson.TSet{Elem: michelson.CTInt})
		require.NoError(t, err)

		dup := michelson.USeq{Items: []michelson.UValue{
			michelson.UInt{X: big.NewInt(2)},
			michelson.UInt{X: big.NewInt(2)},
		}}
		_, err = TypecheckValue(dup, michelson.TSet{Elem: michelson.CTInt})
		assert.Error(t, err)
	})

	t.Run("map requires strictly ascending keys", func(t *testing.T) {
		typ := michelson.TMap{Key: michelson.CTString, Value: michelson.IntT}
		good := michelson.UMapU{Elts: []michelson.UEltU{
			{K: michelson.UString{S: "a"}, V: michelson.UInt{X: big.NewInt(1)}},
			{K: michelson.UString{S: "b"}, V: michelson.UInt{X: big.NewInt(2)}},
		}}
		_, err := TypecheckValue(good, typ)
		require.NoError(t, err)

		unordered := michelson.UMapU{Elts: []michelson.UEltU{
			{K: michelson.UString{S: "b"}, V: michelson.UInt{X: big.NewInt(2)}},
			{K: michelson.UString{S: "a"}, V: michelson.UInt{X: big.NewInt(1)}},
		}}
		_, err = TypecheckValue(unordered, typ)
		assert.Error(t, err)
	})

	t.Run("operations have no literals", func(t *testing.T) {
		_, err := TypecheckValue(michelson.UUnit{}, michelson.TOperation{})
		assert.Error(t, err)
	})

	t.Run("lambda literal", func(t *testing.T) {
		u := michelson.ULambdaU{Code: michelson.Seq(
			michelson.PushIntU(1),
			michelson.Prim(michelson.OpAdd),
		)}
		v, err := TypecheckValue(u, michelson.TLambda{In: michelson.IntT, Out: michelson.IntT})
		require.NoError(t, err)
		lam := v.(michelson.VLambda)
		assert.Len(t, lam.Code, 2)
	})
}
