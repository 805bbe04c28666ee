package michelson

import (
	"fmt"
	"strings"
)

// The three disjoint annotation kinds. The leading sigil (':', '%', '@') is
// not stored; an empty string is the default (absent) annotation.
type (
	TypeAnn  string
	FieldAnn string
	VarAnn   string
)

// Special annotation values used by PAIR/CAR/CDR annotation derivation.
const (
	// UseVar is the "%@" field annotation: take the field name from the
	// operand's variable annotation.
	UseVar FieldAnn = "@"
	// UseField is the "@%" variable annotation: promote the projected
	// field name to the result variable.
	UseField VarAnn = "%"
	// UsePairField is the "@%%" variable annotation: prefix the projected
	// field name with the pair's variable annotation.
	UsePairField VarAnn = "%%"
)

// Notes is the annotation tree attached to a type. Its shape parallels the
// type: a pair node has two field annotations and two children, an option
// node has one of each, list/map nodes have one child (the element or value
// notes), everything else is a leaf. A star node means "unspecified here and
// below".
type Notes struct {
	star     bool
	TypeAnn  TypeAnn
	Fields   []FieldAnn
	Children []*Notes
}

// NStar returns the fully unspecified annotation tree.
func NStar() *Notes { return &Notes{star: true} }

// IsStar reports whether n carries no information. A nil tree counts as star.
func (n *Notes) IsStar() bool { return n == nil || n.star }

// Field returns the i-th child field annotation, defaulting for star trees.
func (n *Notes) Field(i int) FieldAnn {
	if n.IsStar() || i >= len(n.Fields) {
		return ""
	}
	return n.Fields[i]
}

// Child returns the i-th child annotation tree, defaulting to star.
func (n *Notes) Child(i int) *Notes {
	if n.IsStar() || i >= len(n.Children) {
		return NStar()
	}
	return n.Children[i]
}

// LeafNotes builds annotations for a type without children.
func LeafNotes(tn TypeAnn) *Notes { return &Notes{TypeAnn: tn} }

// PairNotes builds annotations for a pair (or or) type.
func PairNotes(tn TypeAnn, fl, fr FieldAnn, nl, nr *Notes) *Notes {
	return &Notes{TypeAnn: tn, Fields: []FieldAnn{fl, fr}, Children: []*Notes{nl, nr}}
}

// OptionNotes builds annotations for an option type.
func OptionNotes(tn TypeAnn, fs FieldAnn, elem *Notes) *Notes {
	return &Notes{TypeAnn: tn, Fields: []FieldAnn{fs}, Children: []*Notes{elem}}
}

// WrapNotes builds annotations for a single-child type (list, map value).
func WrapNotes(tn TypeAnn, elem *Notes) *Notes {
	return &Notes{TypeAnn: tn, Children: []*Notes{elem}}
}

// AnnConvergeError reports two concrete annotations that cannot be merged.
type AnnConvergeError struct {
	A, B string
}

func (e *AnnConvergeError) Error() string {
	return fmt.Sprintf("annotations do not converge: %q /= %q", e.A, e.B)
}

func convergeAnn[T ~string](a, b T) (T, error) {
	switch {
	case a == b:
		return a, nil
	case a == "":
		return b, nil
	case b == "":
		return a, nil
	default:
		return "", &AnnConvergeError{A: string(a), B: string(b)}
	}
}

// ConvergeVars merges two variable annotations, treating the default as a
// wildcard.
func ConvergeVars(a, b VarAnn) (VarAnn, error) { return convergeAnn(a, b) }

// ConvergeFields merges two field annotations, treating the default as a
// wildcard.
func ConvergeFields(a, b FieldAnn) (FieldAnn, error) { return convergeAnn(a, b) }

// Converge merges two annotation trees of the same underlying type. A star
// side yields the other side; two concrete nodes must agree on every type and
// field component (the default annotation acting as a wildcard), and their
// children are merged pointwise.
func Converge(a, b *Notes) (*Notes, error) {
	if a.IsStar() {
		return b.OrStar(), nil
	}
	if b.IsStar() {
		return a, nil
	}
	tn, err := convergeAnn(a.TypeAnn, b.TypeAnn)
	if err != nil {
		return nil, err
	}
	if len(a.Fields) != len(b.Fields) || len(a.Children) != len(b.Children) {
		panic(fmt.Sprintf("converging annotation trees of different shapes: %d/%d fields, %d/%d children",
			len(a.Fields), len(b.Fields), len(a.Children), len(b.Children)))
	}
	out := &Notes{TypeAnn: tn}
	for i := range a.Fields {
		f, err := convergeAnn(a.Fields[i], b.Fields[i])
		if err != nil {
			return nil, err
		}
		out.Fields = append(out.Fields, f)
	}
	for i := range a.Children {
		c, err := Converge(a.Children[i], b.Children[i])
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, c)
	}
	return out, nil
}

// OrStar replaces a nil tree with the star tree, leaving anything else alone.
func (n *Notes) OrStar() *Notes {
	if n == nil {
		return NStar()
	}
	return n
}

// DeriveVar appends suffix to a variable annotation, keeping the default
// annotation untouched.
func DeriveVar(suffix string, v VarAnn) VarAnn {
	if v == "" {
		return ""
	}
	return VarAnn(string(v) + "." + suffix)
}

func joinVar(v VarAnn, suffix string) VarAnn {
	if v == "" {
		return VarAnn(suffix)
	}
	if suffix == "" {
		return v
	}
	return VarAnn(string(v) + "." + suffix)
}

// DerivePairAnns computes the annotations PAIR attaches to its result from
// the field annotations written on the instruction and the variable
// annotations of the two operands. When both fields are "%@" and both
// operands are named, the common dotted prefix of the names becomes the
// result variable and the distinct suffixes become the fields.
func DerivePairAnns(pf, qf FieldAnn, pv, qv VarAnn) (VarAnn, FieldAnn, FieldAnn) {
	if pf == UseVar && qf == UseVar && pv != "" && qv != "" {
		ps := strings.Split(string(pv), ".")
		qs := strings.Split(string(qv), ".")
		i := 0
		for i < len(ps) && i < len(qs) && ps[i] == qs[i] {
			i++
		}
		return VarAnn(strings.Join(ps[:i], ".")),
			FieldAnn(strings.Join(ps[i:], ".")),
			FieldAnn(strings.Join(qs[i:], "."))
	}
	if pf == UseVar {
		pf = FieldAnn(pv)
	}
	if qf == UseVar {
		qf = FieldAnn(qv)
	}
	return "", pf, qf
}

// DeriveCarCdrVar computes the variable annotation CAR/CDR attach to the
// projected component. userVar is the annotation written on the instruction,
// childField the field annotation of the projected component and pairVar the
// variable annotation of the pair being destructed.
func DeriveCarCdrVar(userVar VarAnn, childField FieldAnn, pairVar VarAnn) VarAnn {
	switch {
	case userVar == UseField:
		return VarAnn(childField)
	case userVar == UsePairField && childField != "":
		return joinVar(pairVar, string(childField))
	case userVar == UsePairField:
		return pairVar
	default:
		return userVar
	}
}

// DeriveOrSub splits the annotations of an or type into the annotations of
// its two arms, synthesising arm variables from the outer variable and the
// arm field names (defaulting to "left"/"right").
func DeriveOrSub(n *Notes, outerVar VarAnn) (nl, nr *Notes, vl, vr VarAnn) {
	fl, fr := n.Field(0), n.Field(1)
	if fl == "" {
		fl = "left"
	}
	if fr == "" {
		fr = "right"
	}
	return n.Child(0), n.Child(1), DeriveVar(string(fl), outerVar), DeriveVar(string(fr), outerVar)
}

// DeriveOptionSub splits the annotations of an option type into the
// annotations of the Some payload, defaulting the field name to "some".
func DeriveOptionSub(n *Notes, outerVar VarAnn) (elem *Notes, v VarAnn) {
	fs := n.Field(0)
	if fs == "" {
		fs = "some"
	}
	return n.Child(0), DeriveVar(string(fs), outerVar)
}
