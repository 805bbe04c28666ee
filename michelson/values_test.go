package michelson

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCompareTotalOrder(t *testing.T) {
	genInt := rapid.Custom(func(t *rapid.T) Value {
		return IntV(rapid.Int64().Draw(t, "n"))
	})

	t.Run("antisymmetric and reflexive on int", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			a := genInt.Draw(t, "a")
			b := genInt.Draw(t, "b")
			assert.Equal(t, -Compare(a, b), Compare(b, a))
			assert.Equal(t, 0, Compare(a, a))
		})
	})

	t.Run("transitive on int", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			a := genInt.Draw(t, "a")
			b := genInt.Draw(t, "b")
			c := genInt.Draw(t, "c")
			if Compare(a, b) <= 0 && Compare(b, c) <= 0 {
				assert.LessOrEqual(t, Compare(a, c), 0)
			}
		})
	})
}

func TestCompareKinds(t *testing.T) {
	assert.Negative(t, Compare(VString{S: "abc"}, VString{S: "abd"}))
	assert.Negative(t, Compare(VBool{B: false}, VBool{B: true}))
	assert.Positive(t, Compare(VMutez{M: 5}, VMutez{M: 3}))
	assert.Zero(t, Compare(VTimestamp{T: 7}, VTimestamp{T: 7}))
	assert.Negative(t, Compare(VBytes{B: []byte{1}}, VBytes{B: []byte{2}}))

	tz := Address{Kind: AddrTz1}
	kt := Address{Kind: AddrKT1}
	assert.Negative(t, Compare(VAddress{A: tz}, VAddress{A: kt}))

	assert.Panics(t, func() { Compare(VUnit{}, VUnit{}) })
}

func TestSetUpdate(t *testing.T) {
	s := VSet{}
	s = s.SetUpdate(IntV(3), true)
	s = s.SetUpdate(IntV(1), true)
	s = s.SetUpdate(IntV(2), true)

	require.Len(t, s.Elems, 3)
	// Insertion keeps ascending order regardless of arrival order.
	assert.Equal(t, "{ 1 ; 2 ; 3 }", s.String())
	assert.True(t, s.SetMember(IntV(2)))
	assert.False(t, s.SetMember(IntV(4)))

	s2 := s.SetUpdate(IntV(2), false)
	assert.False(t, s2.SetMember(IntV(2)))
	// The original is untouched.
	assert.True(t, s.SetMember(IntV(2)))

	// Removing an absent element and re-adding a present one are no-ops.
	assert.Equal(t, s.String(), s.SetUpdate(IntV(9), false).String())
	assert.Equal(t, s.String(), s.SetUpdate(IntV(3), true).String())
}

func TestMapUpdate(t *testing.T) {
	m := VMap{}
	m = m.MapUpdate(VString{S: "b"}, IntV(2))
	m = m.MapUpdate(VString{S: "a"}, IntV(1))

	v, ok := m.MapGet(VString{S: "a"})
	require.True(t, ok)
	assert.True(t, ValuesEqual(v, IntV(1)))

	_, ok = m.MapGet(VString{S: "c"})
	assert.False(t, ok)

	assert.Equal(t, `{ Elt "a" 1 ; Elt "b" 2 }`, m.String())

	m2 := m.MapUpdate(VString{S: "a"}, IntV(10))
	v, _ = m2.MapGet(VString{S: "a"})
	assert.True(t, ValuesEqual(v, IntV(10)))
	v, _ = m.MapGet(VString{S: "a"})
	assert.True(t, ValuesEqual(v, IntV(1)))

	m3 := m.MapUpdate(VString{S: "b"}, nil)
	_, ok = m3.MapGet(VString{S: "b"})
	assert.False(t, ok)
	assert.Len(t, m.Entries, 2)
}

func TestMapInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := VMap{}
		keys := rapid.SliceOfN(rapid.Int64(), 0, 20).Draw(t, "keys")
		for _, k := range keys {
			if rapid.Bool().Draw(t, "del") {
				m = m.MapUpdate(IntV(k), nil)
			} else {
				m = m.MapUpdate(IntV(k), VUnit{})
			}
		}
		for i := 1; i < len(m.Entries); i++ {
			assert.Negative(t, Compare(m.Entries[i-1].Key, m.Entries[i].Key))
		}
	})
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, ValuesEqual(
		VPair{Car: IntV(1), Cdr: VOption{Some: VString{S: "x"}}},
		VPair{Car: VInt{X: big.NewInt(1)}, Cdr: VOption{Some: VString{S: "x"}}},
	))
	assert.False(t, ValuesEqual(VOption{}, VOption{Some: VUnit{}}))
	assert.False(t, ValuesEqual(IntV(1), NatV(1)))
	assert.True(t, ValuesEqual(
		VOr{IsRight: true, V: VUnit{}},
		VOr{IsRight: true, V: VUnit{}},
	))
}

func TestValueRendering(t *testing.T) {
	v := VPair{
		Car: VList{Items: []Value{IntV(1), IntV(2)}},
		Cdr: VOr{V: VBool{B: true}},
	}
	assert.Equal(t, "(Pair { 1 ; 2 } (Left True))", v.String())
	assert.Equal(t, "None", VOption{}.String())
	assert.Equal(t, "(Some Unit)", VOption{Some: VUnit{}}.String())
	assert.Equal(t, "0x0102", VBytes{B: []byte{1, 2}}.String())
}
