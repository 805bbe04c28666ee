// Package typechecker lowers untyped Michelson instruction trees into typed
// ones. It enforces stack discipline, derives structural annotations and
// resolves the polymorphic primitives; the Morley meta-instructions
// (STACKTYPE, FN, PRINT, TEST_ASSERT) are checked on top of the same walk.
package typechecker

import (
	stderrors "errors"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
	"github.com/techoluwoye/lorentz-contract-param/mvm/errors"
)

// SomeInstr packs a checked instruction sequence with its input and output
// stack shapes. Terminal marks sequences ending in an unconditional failure,
// whose output shape is unconstrained.
type SomeInstr struct {
	Code     []michelson.Instr
	In       michelson.HST
	Out      michelson.HST
	Terminal bool
}

// Typecheck checks a sequence against an input stack. selfParam is the
// parameter type SELF refers to; it is nil when checking code outside a
// contract.
func Typecheck(code []michelson.UInstr, selfParam michelson.Type, in michelson.HST) (*SomeInstr, errors.TCError) {
	c := newChecker(selfParam)
	typed, out, terminal, err := c.checkSeq(code, in)
	if err != nil {
		return nil, err
	}
	return &SomeInstr{Code: typed, In: in, Out: out, Terminal: terminal}, nil
}

// TypecheckContract validates the declared parameter and storage types of a
// contract and checks its code from [pair(param, storage)] to
// [pair(list(operation), storage)].
func TypecheckContract(uc *michelson.UContract) (*michelson.Contract, errors.TCError) {
	seq := michelson.USeq{}
	if err := michelson.ValidateType(michelson.TContract{Param: uc.Param}); err != nil {
		return nil, errors.NewTCFailedOnValuef(seq, uc.Param, "bad parameter type: %s", err)
	}
	if michelson.HasOp(uc.Storage) {
		return nil, errors.NewTCFailedOnValuef(seq, uc.Storage, "storage type may not contain operations")
	}
	if err := michelson.ValidateType(uc.Storage); err != nil {
		return nil, errors.NewTCFailedOnValuef(seq, uc.Storage, "bad storage type: %s", err)
	}

	in := michelson.HST{michelson.NewStackItem(michelson.TPair{Left: uc.Param, Right: uc.Storage})}
	res, err := Typecheck(uc.Code, uc.Param, in)
	if err != nil {
		return nil, err
	}
	want := michelson.TPair{
		Left:  michelson.TList{Elem: michelson.TOperation{}},
		Right: uc.Storage,
	}
	if !res.Terminal {
		if len(res.Out) != 1 || !michelson.TypesEqual(res.Out[0].Type, want) {
			return nil, errors.NewTCFailedOnInstrf(michelson.UInstr{Op: michelson.OpPair}, res.Out,
				"contract code must leave [%s], got %s", want, res.Out)
		}
	}
	return &michelson.Contract{
		Param:        uc.Param,
		Storage:      uc.Storage,
		ParamNotes:   michelson.NStar(),
		StorageNotes: michelson.NStar(),
		Code:         res.Code,
	}, nil
}

type checker struct {
	selfParam michelson.Type
	frames    []extFrame
}

func newChecker(selfParam michelson.Type) *checker {
	return &checker{selfParam: selfParam}
}

func (c *checker) checkSeq(code []michelson.UInstr, s michelson.HST) ([]michelson.Instr, michelson.HST, bool, errors.TCError) {
	var out []michelson.Instr
	terminal := false
	for _, u := range code {
		if terminal {
			return nil, nil, false, errors.NewTCUnreachable()
		}
		typed, next, term, err := c.checkInstr(u, s)
		if err != nil {
			return nil, nil, false, err
		}
		out = append(out, typed...)
		s = next
		terminal = term
	}
	return out, s, terminal, nil
}

// one wraps a single typed instruction for the common case.
func one(i michelson.Instr) []michelson.Instr { return []michelson.Instr{i} }

func (c *checker) checkInstr(u michelson.UInstr, s michelson.HST) ([]michelson.Instr, michelson.HST, bool, errors.TCError) {
	if u.Op.IsExtension() {
		return c.checkExt(u, s)
	}

	mismatch := func() errors.TCError {
		return errors.NewTCFailedOnInstrf(u, s, "type mismatch")
	}
	short := func(n int) errors.TCError {
		return errors.NewTCFailedOnInstrf(u, s, "not enough items on stack: need %d", n)
	}
	ret := func(i michelson.Instr, out michelson.HST) ([]michelson.Instr, michelson.HST, bool, errors.TCError) {
		return one(i), out, false, nil
	}

	switch u.Op {
	case michelson.OpDrop:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		return ret(michelson.Instr{Op: u.Op}, s.Drop(1))

	case michelson.OpDup:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		item := s[0]
		if u.Var != "" {
			item.Var = u.Var
		}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Push(item))

	case michelson.OpSwap:
		if len(s) < 2 {
			return nil, nil, false, short(2)
		}
		out := append(michelson.HST{s[1], s[0]}, s[2:]...)
		return ret(michelson.Instr{Op: u.Op}, out)

	case michelson.OpPush:
		if u.Typ == nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "PUSH requires a type argument")
		}
		if !isPushable(u.Typ) {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "type %s is not pushable", u.Typ)
		}
		if err := michelson.ValidateType(u.Typ); err != nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "%s", err)
		}
		v, err := TypecheckValue(u.Push, u.Typ)
		if err != nil {
			return nil, nil, false, err
		}
		item := michelson.StackItem{Type: u.Typ, Notes: michelson.LeafNotes(u.TypeAnn), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Push: v, Typ: u.Typ, Var: u.Var}, s.Push(item))

	case michelson.OpSome:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		notes := michelson.OptionNotes(u.TypeAnn, u.Field, s[0].Notes)
		item := michelson.StackItem{Type: michelson.TOption{Elem: s[0].Type}, Notes: notes, Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(1).Push(item))

	case michelson.OpNone:
		if u.Typ == nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "NONE requires a type argument")
		}
		if err := michelson.ValidateType(u.Typ); err != nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "%s", err)
		}
		notes := michelson.OptionNotes(u.TypeAnn, u.Field, michelson.NStar())
		item := michelson.StackItem{Type: michelson.TOption{Elem: u.Typ}, Notes: notes, Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Typ: u.Typ, Var: u.Var}, s.Push(item))

	case michelson.OpUnit:
		item := michelson.StackItem{Type: michelson.TUnit{}, Notes: michelson.LeafNotes(u.TypeAnn), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Push(item))

	case michelson.OpIfNone:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		opt, ok := s[0].Type.(michelson.TOption)
		if !ok {
			return nil, nil, false, mismatch()
		}
		rest := s.Drop(1)
		elemNotes, elemVar := michelson.DeriveOptionSub(s[0].Notes, s[0].Var)
		someStack := rest.Push(michelson.StackItem{Type: opt.Elem, Notes: elemNotes.OrStar(), Var: elemVar})
		return c.checkBranches(u, s, rest, someStack)

	case michelson.OpPair:
		if len(s) < 2 {
			return nil, nil, false, short(2)
		}
		dv, fCar, fCdr := michelson.DerivePairAnns(u.Field, u.Field2, s[0].Var, s[1].Var)
		v := u.Var
		if v == "" {
			v = dv
		}
		item := michelson.StackItem{
			Type:  michelson.TPair{Left: s[0].Type, Right: s[1].Type},
			Notes: michelson.PairNotes(u.TypeAnn, fCar, fCdr, s[0].Notes, s[1].Notes),
			Var:   v,
		}
		return ret(michelson.Instr{Op: u.Op, Var: v}, s.Drop(2).Push(item))

	case michelson.OpCar, michelson.OpCdr:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		pair, ok := s[0].Type.(michelson.TPair)
		if !ok {
			return nil, nil, false, mismatch()
		}
		idx, childType := 0, pair.Left
		if u.Op == michelson.OpCdr {
			idx, childType = 1, pair.Right
		}
		childField, aerr := michelson.ConvergeFields(s[0].Notes.Field(idx), u.Field)
		if aerr != nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "%s", aerr)
		}
		v := michelson.DeriveCarCdrVar(u.Var, childField, s[0].Var)
		item := michelson.StackItem{Type: childType, Notes: s[0].Notes.Child(idx), Var: v}
		return ret(michelson.Instr{Op: u.Op, Var: v}, s.Drop(1).Push(item))

	case michelson.OpLeft, michelson.OpRight:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		if u.Typ == nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "%s requires a type argument", u.Op)
		}
		if err := michelson.ValidateType(u.Typ); err != nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "%s", err)
		}
		var t michelson.Type
		var notes *michelson.Notes
		if u.Op == michelson.OpLeft {
			t = michelson.TOr{Left: s[0].Type, Right: u.Typ}
			notes = michelson.PairNotes(u.TypeAnn, u.Field, u.Field2, s[0].Notes, michelson.NStar())
		} else {
			t = michelson.TOr{Left: u.Typ, Right: s[0].Type}
			notes = michelson.PairNotes(u.TypeAnn, u.Field, u.Field2, michelson.NStar(), s[0].Notes)
		}
		item := michelson.StackItem{Type: t, Notes: notes, Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Typ: u.Typ, Var: u.Var}, s.Drop(1).Push(item))

	case michelson.OpIfLeft:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		or, ok := s[0].Type.(michelson.TOr)
		if !ok {
			return nil, nil, false, mismatch()
		}
		rest := s.Drop(1)
		nl, nr, vl, vr := michelson.DeriveOrSub(s[0].Notes, s[0].Var)
		leftStack := rest.Push(michelson.StackItem{Type: or.Left, Notes: nl.OrStar(), Var: vl})
		rightStack := rest.Push(michelson.StackItem{Type: or.Right, Notes: nr.OrStar(), Var: vr})
		return c.checkBranches(u, s, leftStack, rightStack)

	case michelson.OpNil:
		if u.Typ == nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "NIL requires a type argument")
		}
		if err := michelson.ValidateType(u.Typ); err != nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "%s", err)
		}
		item := michelson.StackItem{
			Type:  michelson.TList{Elem: u.Typ},
			Notes: michelson.WrapNotes(u.TypeAnn, michelson.NStar()),
			Var:   u.Var,
		}
		return ret(michelson.Instr{Op: u.Op, Typ: u.Typ, Var: u.Var}, s.Push(item))

	case michelson.OpCons:
		if len(s) < 2 {
			return nil, nil, false, short(2)
		}
		list, ok := s[1].Type.(michelson.TList)
		if !ok || !michelson.TypesEqual(list.Elem, s[0].Type) {
			return nil, nil, false, mismatch()
		}
		item := s[1]
		item.Var = u.Var
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(2).Push(item))

	case michelson.OpIfCons:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		list, ok := s[0].Type.(michelson.TList)
		if !ok {
			return nil, nil, false, mismatch()
		}
		rest := s.Drop(1)
		tail := s[0]
		tail.Var = michelson.DeriveVar("tl", s[0].Var)
		head := michelson.StackItem{
			Type:  list.Elem,
			Notes: s[0].Notes.Child(0),
			Var:   michelson.DeriveVar("hd", s[0].Var),
		}
		consStack := rest.Push(tail).Push(head)
		return c.checkBranches(u, s, consStack, rest)

	case michelson.OpSize:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		if !sizeApplies(s[0].Type) {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: michelson.NatT, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(1).Push(item))

	case michelson.OpEmptySet:
		ct, ok := michelson.ComparableOf(u.Typ)
		if !ok {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "EMPTY_SET requires a comparable element type")
		}
		item := michelson.StackItem{Type: michelson.TSet{Elem: ct}, Notes: michelson.LeafNotes(u.TypeAnn), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Typ: u.Typ, Var: u.Var}, s.Push(item))

	case michelson.OpEmptyMap:
		kt, ok := michelson.ComparableOf(u.Typ)
		if !ok {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "EMPTY_MAP requires a comparable key type")
		}
		if u.Typ2 == nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "EMPTY_MAP requires a value type")
		}
		t := michelson.TMap{Key: kt, Value: u.Typ2}
		if err := michelson.ValidateType(t); err != nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "%s", err)
		}
		item := michelson.StackItem{Type: t, Notes: michelson.WrapNotes(u.TypeAnn, michelson.NStar()), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, KeyT: kt, ValT: u.Typ2, Var: u.Var}, s.Push(item))

	case michelson.OpMap:
		return c.checkMapInstr(u, s)

	case michelson.OpIter:
		return c.checkIterInstr(u, s)

	case michelson.OpMem:
		if len(s) < 2 {
			return nil, nil, false, short(2)
		}
		key, ok := memKey(s[1].Type)
		if !ok || !michelson.TypesEqual(s[0].Type, michelson.Tc{T: key}) {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: michelson.BoolT, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(2).Push(item))

	case michelson.OpGet:
		if len(s) < 2 {
			return nil, nil, false, short(2)
		}
		key, val, ok := getKeyValue(s[1].Type)
		if !ok || !michelson.TypesEqual(s[0].Type, michelson.Tc{T: key}) {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: michelson.TOption{Elem: val}, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(2).Push(item))

	case michelson.OpUpdate:
		if len(s) < 3 {
			return nil, nil, false, short(3)
		}
		key, arg, ok := updateArg(s[2].Type)
		if !ok ||
			!michelson.TypesEqual(s[0].Type, michelson.Tc{T: key}) ||
			!michelson.TypesEqual(s[1].Type, arg) {
			return nil, nil, false, mismatch()
		}
		item := s[2]
		item.Var = u.Var
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(3).Push(item))

	case michelson.OpIf:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		if !michelson.TypesEqual(s[0].Type, michelson.BoolT) {
			return nil, nil, false, mismatch()
		}
		rest := s.Drop(1)
		return c.checkBranches(u, s, rest, rest)

	case michelson.OpLoop:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		if !michelson.TypesEqual(s[0].Type, michelson.BoolT) {
			return nil, nil, false, mismatch()
		}
		rest := s.Drop(1)
		body, bodyOut, bodyTerm, err := c.checkSeq(u.BodyA, rest)
		if err != nil {
			return nil, nil, false, err
		}
		out := rest
		if !bodyTerm {
			if len(bodyOut) != len(rest)+1 ||
				!michelson.TypesEqual(bodyOut[0].Type, michelson.BoolT) ||
				!bodyOut.Drop(1).TypesEqualOn(rest) {
				return nil, nil, false, mismatch()
			}
			out = bodyOut.Drop(1)
		}
		return ret(michelson.Instr{Op: u.Op, BodyA: body}, out)

	case michelson.OpLoopLeft:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		or, ok := s[0].Type.(michelson.TOr)
		if !ok {
			return nil, nil, false, mismatch()
		}
		rest := s.Drop(1)
		nl, nr, vl, vr := michelson.DeriveOrSub(s[0].Notes, s[0].Var)
		bodyIn := rest.Push(michelson.StackItem{Type: or.Left, Notes: nl.OrStar(), Var: vl})
		body, bodyOut, bodyTerm, err := c.checkSeq(u.BodyA, bodyIn)
		if err != nil {
			return nil, nil, false, err
		}
		if !bodyTerm {
			if len(bodyOut) != len(rest)+1 ||
				!michelson.TypesEqual(bodyOut[0].Type, s[0].Type) ||
				!bodyOut.Drop(1).TypesEqualOn(rest) {
				return nil, nil, false, mismatch()
			}
			rest = bodyOut.Drop(1)
		}
		v := u.Var
		if v == "" {
			v = vr
		}
		out := rest.Push(michelson.StackItem{Type: or.Right, Notes: nr.OrStar(), Var: v})
		return ret(michelson.Instr{Op: u.Op, BodyA: body}, out)

	case michelson.OpLambda:
		if u.Typ == nil || u.Typ2 == nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "LAMBDA requires two type arguments")
		}
		lam, err := typecheckLambda(u.BodyA, u.Typ, u.Typ2)
		if err != nil {
			return nil, nil, false, err
		}
		item := michelson.StackItem{
			Type:  michelson.TLambda{In: u.Typ, Out: u.Typ2},
			Notes: michelson.LeafNotes(u.TypeAnn),
			Var:   u.Var,
		}
		instr := michelson.Instr{Op: u.Op, Typ: u.Typ, Typ2: u.Typ2, BodyA: lam.Code, Var: u.Var}
		return ret(instr, s.Push(item))

	case michelson.OpExec:
		if len(s) < 2 {
			return nil, nil, false, short(2)
		}
		lam, ok := s[1].Type.(michelson.TLambda)
		if !ok || !michelson.TypesEqual(lam.In, s[0].Type) {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: lam.Out, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(2).Push(item))

	case michelson.OpDip:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		body, bodyOut, bodyTerm, err := c.checkSeq(u.BodyA, s.Drop(1))
		if err != nil {
			return nil, nil, false, err
		}
		if bodyTerm {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "DIP body may not fail unconditionally")
		}
		return ret(michelson.Instr{Op: u.Op, BodyA: body}, bodyOut.Push(s[0]))

	case michelson.OpFailWith:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		return one(michelson.Instr{Op: u.Op}), nil, true, nil

	case michelson.OpCast:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		if u.Typ == nil || !michelson.TypesEqual(s[0].Type, u.Typ) {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: u.Typ, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Typ: u.Typ, Var: u.Var}, s.Drop(1).Push(item))

	case michelson.OpRename:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		item := s[0]
		item.Var = u.Var
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(1).Push(item))

	case michelson.OpConcat:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		if list, ok := s[0].Type.(michelson.TList); ok && concatElem(list.Elem) {
			item := michelson.StackItem{Type: list.Elem, Notes: michelson.NStar(), Var: u.Var}
			// The element type decides what an empty list folds to at runtime.
			return ret(michelson.Instr{Op: u.Op, Typ: list.Elem, Var: u.Var}, s.Drop(1).Push(item))
		}
		if len(s) < 2 {
			return nil, nil, false, short(2)
		}
		if !concatElem(s[0].Type) || !michelson.TypesEqual(s[0].Type, s[1].Type) {
			return nil, nil, false, mismatch()
		}
		notes, aerr := michelson.Converge(s[0].Notes, s[1].Notes)
		if aerr != nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "%s", aerr)
		}
		item := michelson.StackItem{Type: s[0].Type, Notes: notes, Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(2).Push(item))

	case michelson.OpSlice:
		if len(s) < 3 {
			return nil, nil, false, short(3)
		}
		if !michelson.TypesEqual(s[0].Type, michelson.NatT) ||
			!michelson.TypesEqual(s[1].Type, michelson.NatT) ||
			!concatElem(s[2].Type) {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: michelson.TOption{Elem: s[2].Type}, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(3).Push(item))

	case michelson.OpIsNat:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		if !michelson.TypesEqual(s[0].Type, michelson.IntT) {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: michelson.TOption{Elem: michelson.NatT}, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(1).Push(item))

	case michelson.OpAdd, michelson.OpSub, michelson.OpMul:
		if len(s) < 2 {
			return nil, nil, false, short(2)
		}
		t, ok := arithResult(u.Op, s[0].Type, s[1].Type)
		if !ok {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: t, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(2).Push(item))

	case michelson.OpEDiv:
		if len(s) < 2 {
			return nil, nil, false, short(2)
		}
		t, ok := edivResult(s[0].Type, s[1].Type)
		if !ok {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: t, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(2).Push(item))

	case michelson.OpAbs:
		return c.unaryNum(u, s, michelson.IntT, michelson.NatT)

	case michelson.OpNeg:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		if !michelson.TypesEqual(s[0].Type, michelson.IntT) && !michelson.TypesEqual(s[0].Type, michelson.NatT) {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: michelson.IntT, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(1).Push(item))

	case michelson.OpLsl, michelson.OpLsr, michelson.OpOr, michelson.OpAnd, michelson.OpXor:
		if len(s) < 2 {
			return nil, nil, false, short(2)
		}
		t, ok := bitwiseResult(u.Op, s[0].Type, s[1].Type)
		if !ok {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: t, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(2).Push(item))

	case michelson.OpNot:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		var t michelson.Type
		switch {
		case michelson.TypesEqual(s[0].Type, michelson.BoolT):
			t = michelson.BoolT
		case michelson.TypesEqual(s[0].Type, michelson.IntT), michelson.TypesEqual(s[0].Type, michelson.NatT):
			t = michelson.IntT
		default:
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: t, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(1).Push(item))

	case michelson.OpCompare:
		if len(s) < 2 {
			return nil, nil, false, short(2)
		}
		_, aOK := michelson.ComparableOf(s[0].Type)
		if !aOK || !michelson.TypesEqual(s[0].Type, s[1].Type) {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: michelson.IntT, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(2).Push(item))

	case michelson.OpEq, michelson.OpNeq, michelson.OpLt, michelson.OpGt, michelson.OpLe, michelson.OpGe:
		return c.unaryNum(u, s, michelson.IntT, michelson.BoolT)

	case michelson.OpInt:
		return c.unaryNum(u, s, michelson.NatT, michelson.IntT)

	case michelson.OpSelf:
		if c.selfParam == nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "SELF is not allowed outside a contract")
		}
		item := michelson.StackItem{Type: michelson.TContract{Param: c.selfParam}, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Typ: c.selfParam, Var: u.Var}, s.Push(item))

	case michelson.OpContract:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		if !michelson.TypesEqual(s[0].Type, michelson.AddressT) {
			return nil, nil, false, mismatch()
		}
		if u.Typ == nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "CONTRACT requires a type argument")
		}
		if err := michelson.ValidateType(michelson.TContract{Param: u.Typ}); err != nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "%s", err)
		}
		item := michelson.StackItem{
			Type:  michelson.TOption{Elem: michelson.TContract{Param: u.Typ}},
			Notes: michelson.NStar(),
			Var:   u.Var,
		}
		return ret(michelson.Instr{Op: u.Op, Typ: u.Typ, Var: u.Var}, s.Drop(1).Push(item))

	case michelson.OpTransferTokens:
		if len(s) < 3 {
			return nil, nil, false, short(3)
		}
		contract, ok := s[2].Type.(michelson.TContract)
		if !ok ||
			!michelson.TypesEqual(s[1].Type, michelson.MutezT) ||
			!michelson.TypesEqual(s[0].Type, contract.Param) {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: michelson.TOperation{}, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(3).Push(item))

	case michelson.OpSetDelegate:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		if !michelson.TypesEqual(s[0].Type, michelson.TOption{Elem: michelson.KeyHashT}) {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: michelson.TOperation{}, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(1).Push(item))

	case michelson.OpCreateAccount:
		if len(s) < 4 {
			return nil, nil, false, short(4)
		}
		if !michelson.TypesEqual(s[0].Type, michelson.KeyHashT) ||
			!michelson.TypesEqual(s[1].Type, michelson.TOption{Elem: michelson.KeyHashT}) ||
			!michelson.TypesEqual(s[2].Type, michelson.BoolT) ||
			!michelson.TypesEqual(s[3].Type, michelson.MutezT) {
			return nil, nil, false, mismatch()
		}
		out := s.Drop(4).
			Push(michelson.StackItem{Type: michelson.AddressT, Notes: michelson.NStar(), Var: u.Var2}).
			Push(michelson.StackItem{Type: michelson.TOperation{}, Notes: michelson.NStar(), Var: u.Var})
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, out)

	case michelson.OpCreateContract:
		if len(s) < 6 {
			return nil, nil, false, short(6)
		}
		if u.Contract == nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "CREATE_CONTRACT requires a code block")
		}
		checked, err := TypecheckContract(u.Contract)
		if err != nil {
			return nil, nil, false, err
		}
		if !michelson.TypesEqual(s[0].Type, michelson.KeyHashT) ||
			!michelson.TypesEqual(s[1].Type, michelson.TOption{Elem: michelson.KeyHashT}) ||
			!michelson.TypesEqual(s[2].Type, michelson.BoolT) ||
			!michelson.TypesEqual(s[3].Type, michelson.BoolT) ||
			!michelson.TypesEqual(s[4].Type, michelson.MutezT) ||
			!michelson.TypesEqual(s[5].Type, checked.Storage) {
			return nil, nil, false, mismatch()
		}
		out := s.Drop(6).
			Push(michelson.StackItem{Type: michelson.AddressT, Notes: michelson.NStar(), Var: u.Var2}).
			Push(michelson.StackItem{Type: michelson.TOperation{}, Notes: michelson.NStar(), Var: u.Var})
		return ret(michelson.Instr{Op: u.Op, Contract: checked, Var: u.Var}, out)

	case michelson.OpImplicitAccount:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		if !michelson.TypesEqual(s[0].Type, michelson.KeyHashT) {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: michelson.TContract{Param: michelson.TUnit{}}, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(1).Push(item))

	case michelson.OpNow:
		item := michelson.StackItem{Type: michelson.TimestampT, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Push(item))

	case michelson.OpAmount, michelson.OpBalance:
		item := michelson.StackItem{Type: michelson.MutezT, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Push(item))

	case michelson.OpCheckSignature:
		if len(s) < 3 {
			return nil, nil, false, short(3)
		}
		if _, ok := s[0].Type.(michelson.TKey); !ok {
			return nil, nil, false, mismatch()
		}
		if _, ok := s[1].Type.(michelson.TSignature); !ok {
			return nil, nil, false, mismatch()
		}
		if !michelson.TypesEqual(s[2].Type, michelson.BytesT) {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: michelson.BoolT, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(3).Push(item))

	case michelson.OpSha256, michelson.OpSha512, michelson.OpBlake2b:
		return c.unaryNum(u, s, michelson.BytesT, michelson.BytesT)

	case michelson.OpHashKey:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		if _, ok := s[0].Type.(michelson.TKey); !ok {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: michelson.KeyHashT, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(1).Push(item))

	case michelson.OpStepsToQuota:
		item := michelson.StackItem{Type: michelson.NatT, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Push(item))

	case michelson.OpSource, michelson.OpSender:
		item := michelson.StackItem{Type: michelson.AddressT, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Push(item))

	case michelson.OpAddress:
		if len(s) < 1 {
			return nil, nil, false, short(1)
		}
		if _, ok := s[0].Type.(michelson.TContract); !ok {
			return nil, nil, false, mismatch()
		}
		item := michelson.StackItem{Type: michelson.AddressT, Notes: michelson.NStar(), Var: u.Var}
		return ret(michelson.Instr{Op: u.Op, Var: u.Var}, s.Drop(1).Push(item))

	default:
		panic("unhandled opcode " + u.Op.String())
	}
}

// unaryNum handles the single-argument primitives that map one atomic type
// to another.
func (c *checker) unaryNum(u michelson.UInstr, s michelson.HST, in, out michelson.Type) ([]michelson.Instr, michelson.HST, bool, errors.TCError) {
	if len(s) < 1 {
		return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "not enough items on stack: need 1")
	}
	if !michelson.TypesEqual(s[0].Type, in) {
		return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "type mismatch")
	}
	item := michelson.StackItem{Type: out, Notes: michelson.NStar(), Var: u.Var}
	return one(michelson.Instr{Op: u.Op, Var: u.Var}), s.Drop(1).Push(item), false, nil
}

// checkBranches checks the two sub-sequences of an IF-like instruction and
// converges their output stacks.
func (c *checker) checkBranches(u michelson.UInstr, s, inA, inB michelson.HST) ([]michelson.Instr, michelson.HST, bool, errors.TCError) {
	bodyA, outA, termA, err := c.checkSeq(u.BodyA, inA)
	if err != nil {
		return nil, nil, false, err
	}
	bodyB, outB, termB, err := c.checkSeq(u.BodyB, inB)
	if err != nil {
		return nil, nil, false, err
	}
	instr := michelson.Instr{Op: u.Op, BodyA: bodyA, BodyB: bodyB}

	switch {
	case termA && termB:
		return one(instr), nil, true, nil
	case termA:
		return one(instr), outB, false, nil
	case termB:
		return one(instr), outA, false, nil
	}
	out, cerr := michelson.ConvergeHST(outA, outB)
	if cerr != nil {
		var annErr *michelson.AnnConvergeError
		if stderrors.As(cerr, &annErr) {
			return nil, nil, false, errors.NewTCExtError(s, errors.NewAnnError(annErr))
		}
		return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "branches do not unify: %s", cerr)
	}
	return one(instr), out, false, nil
}

func (c *checker) checkMapInstr(u michelson.UInstr, s michelson.HST) ([]michelson.Instr, michelson.HST, bool, errors.TCError) {
	if len(s) < 1 {
		return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "not enough items on stack: need 1")
	}
	rest := s.Drop(1)

	var elemIn michelson.StackItem
	var result func(michelson.Type) michelson.Type
	switch t := s[0].Type.(type) {
	case michelson.TList:
		elemIn = michelson.StackItem{Type: t.Elem, Notes: s[0].Notes.Child(0), Var: michelson.DeriveVar("elt", s[0].Var)}
		result = func(b michelson.Type) michelson.Type { return michelson.TList{Elem: b} }
	case michelson.TMap:
		elemIn = michelson.StackItem{
			Type:  michelson.TPair{Left: michelson.Tc{T: t.Key}, Right: t.Value},
			Notes: michelson.NStar(),
			Var:   michelson.DeriveVar("elt", s[0].Var),
		}
		key := t.Key
		result = func(b michelson.Type) michelson.Type { return michelson.TMap{Key: key, Value: b} }
	default:
		return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "type mismatch")
	}

	body, bodyOut, bodyTerm, err := c.checkSeq(u.BodyA, rest.Push(elemIn))
	if err != nil {
		return nil, nil, false, err
	}
	if bodyTerm {
		return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "MAP body may not fail unconditionally")
	}
	if len(bodyOut) != len(rest)+1 || !bodyOut.Drop(1).TypesEqualOn(rest) {
		return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "MAP body must preserve the rest of the stack")
	}
	item := michelson.StackItem{Type: result(bodyOut[0].Type), Notes: michelson.NStar(), Var: u.Var}
	out := bodyOut.Drop(1).Push(item)
	return one(michelson.Instr{Op: u.Op, BodyA: body, Var: u.Var}), out, false, nil
}

func (c *checker) checkIterInstr(u michelson.UInstr, s michelson.HST) ([]michelson.Instr, michelson.HST, bool, errors.TCError) {
	if len(s) < 1 {
		return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "not enough items on stack: need 1")
	}
	rest := s.Drop(1)

	var elemType michelson.Type
	switch t := s[0].Type.(type) {
	case michelson.TList:
		elemType = t.Elem
	case michelson.TSet:
		elemType = michelson.Tc{T: t.Elem}
	case michelson.TMap:
		elemType = michelson.TPair{Left: michelson.Tc{T: t.Key}, Right: t.Value}
	default:
		return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "type mismatch")
	}

	elemIn := michelson.StackItem{Type: elemType, Notes: michelson.NStar(), Var: michelson.DeriveVar("elt", s[0].Var)}
	body, bodyOut, bodyTerm, err := c.checkSeq(u.BodyA, rest.Push(elemIn))
	if err != nil {
		return nil, nil, false, err
	}
	if bodyTerm {
		return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "ITER body may not fail unconditionally")
	}
	if len(bodyOut) != len(rest) || !bodyOut.TypesEqualOn(rest) {
		return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "ITER body must leave the rest of the stack")
	}
	return one(michelson.Instr{Op: u.Op, BodyA: body}), bodyOut, false, nil
}

// isPushable reports whether PUSH may receive a literal of this type:
// operations, contracts and big maps have no literal representation.
func isPushable(t michelson.Type) bool {
	switch x := t.(type) {
	case michelson.TOperation, michelson.TContract, michelson.TBigMap:
		return false
	case michelson.TOption:
		return isPushable(x.Elem)
	case michelson.TList:
		return isPushable(x.Elem)
	case michelson.TPair:
		return isPushable(x.Left) && isPushable(x.Right)
	case michelson.TOr:
		return isPushable(x.Left) && isPushable(x.Right)
	case michelson.TMap:
		return isPushable(x.Value)
	default:
		return true
	}
}
