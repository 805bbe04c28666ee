package michelson

import (
	"fmt"
	"strings"
)

// StackItem is one position of a hypothetical stack type: the type at that
// position together with its structural annotations and variable annotation.
type StackItem struct {
	Type  Type
	Notes *Notes
	Var   VarAnn
}

// NewStackItem builds a stack item with unspecified annotations.
func NewStackItem(t Type) StackItem { return StackItem{Type: t, Notes: NStar()} }

// HST is the hypothetical stack type tracked by the type checker: the
// compile-time shape of the runtime stack at a program point, topmost first.
type HST []StackItem

// Push returns the stack with item on top. The receiver is unchanged.
func (h HST) Push(item StackItem) HST {
	out := make(HST, 0, len(h)+1)
	out = append(out, item)
	out = append(out, h...)
	return out
}

// Drop returns the stack without its top n items.
func (h HST) Drop(n int) HST { return h[n:] }

// TypesEqualOn reports whether two stacks carry the same types position by
// position, ignoring annotations.
func (h HST) TypesEqualOn(other HST) bool {
	if len(h) != len(other) {
		return false
	}
	for i := range h {
		if !TypesEqual(h[i].Type, other[i].Type) {
			return false
		}
	}
	return true
}

func (h HST) String() string {
	parts := make([]string, len(h))
	for i, it := range h {
		s := it.Type.String()
		if it.Var != "" {
			s += " @" + string(it.Var)
		}
		parts[i] = s
	}
	return "[" + strings.Join(parts, " : ") + "]"
}

// ConvergeHST merges two stacks of equal shape annotation-wise, as required
// when the branches of IF-like instructions rejoin.
func ConvergeHST(a, b HST) (HST, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("stacks of different depth %d and %d", len(a), len(b))
	}
	out := make(HST, len(a))
	for i := range a {
		if !TypesEqual(a[i].Type, b[i].Type) {
			return nil, fmt.Errorf("stack types differ at position %d: %s /= %s", i, a[i].Type, b[i].Type)
		}
		notes, err := Converge(a[i].Notes, b[i].Notes)
		if err != nil {
			return nil, err
		}
		v, err := ConvergeVars(a[i].Var, b[i].Var)
		if err != nil {
			// Variable annotations that disagree across branches are
			// dropped rather than rejected.
			v = ""
		}
		out[i] = StackItem{Type: a[i].Type, Notes: notes, Var: v}
	}
	return out, nil
}
