package typechecker

import (
	"github.com/techoluwoye/lorentz-contract-param/michelson"
	"github.com/techoluwoye/lorentz-contract-param/mvm/errors"
)

// The Morley meta-instructions. STACKTYPE asserts the current stack shape and
// is erased after checking. FN wraps its body in a declared stack signature
// whose quantified type variables STACKTYPE assertions inside the body may
// reference. PRINT and TEST_ASSERT survive into the typed tree and act at
// run time.

// extFrame is one FN frame: the bindings its quantified variables have
// accumulated so far.
type extFrame struct {
	bindings map[string]michelson.Type
}

func (c *checker) checkExt(u michelson.UInstr, s michelson.HST) ([]michelson.Instr, michelson.HST, bool, errors.TCError) {
	switch u.Op {
	case michelson.OpExtStackType:
		if u.StackType == nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "STACKTYPE requires a stack pattern")
		}
		out, _, err := c.matchPattern(*u.StackType, s)
		if err != nil {
			return nil, nil, false, errors.NewTCExtError(s, err)
		}
		// A pure static assertion: nothing reaches the interpreter.
		return nil, out, false, nil

	case michelson.OpExtFn:
		return c.checkFn(u, s)

	case michelson.OpExtPrint:
		if u.Print == nil {
			return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "PRINT requires a comment")
		}
		for _, p := range u.Print.Parts {
			if p.Ref != nil && (p.Ref.Idx < 0 || p.Ref.Idx >= len(s)) {
				return nil, nil, false, errors.NewTCExtError(s, errors.NewInvalidStackReference(*p.Ref, len(s)))
			}
		}
		return one(michelson.Instr{Op: u.Op, Print: u.Print}), s, false, nil

	case michelson.OpExtTestAssert:
		if u.Comment != nil {
			for _, p := range u.Comment.Parts {
				if p.Ref != nil && (p.Ref.Idx < 0 || p.Ref.Idx >= len(s)) {
					return nil, nil, false, errors.NewTCExtError(s, errors.NewInvalidStackReference(*p.Ref, len(s)))
				}
			}
		}
		body, bodyOut, bodyTerm, err := c.checkSeq(u.BodyA, s)
		if err != nil {
			return nil, nil, false, err
		}
		if bodyTerm {
			return nil, nil, false, errors.NewTCExtError(s,
				errors.NewTestAssertErrorf(u.Name, "assertion body may not fail unconditionally"))
		}
		if len(bodyOut) < 1 || !michelson.TypesEqual(bodyOut[0].Type, michelson.BoolT) {
			return nil, nil, false, errors.NewTCExtError(s,
				errors.NewTestAssertErrorf(u.Name, "assertion body must leave a bool on top, got %s", bodyOut))
		}
		// The assertion runs on a copy of the stack; the stack it leaves
		// behind is discarded.
		instr := michelson.Instr{Op: u.Op, Name: u.Name, BodyA: body, Print: u.Comment}
		return one(instr), s, false, nil

	default:
		panic("unhandled extension opcode " + u.Op.String())
	}
}

func (c *checker) checkFn(u michelson.UInstr, s michelson.HST) ([]michelson.Instr, michelson.HST, bool, errors.TCError) {
	if u.Fn == nil {
		return nil, nil, false, errors.NewTCFailedOnInstrf(u, s, "FN requires a stack signature")
	}
	fn := *u.Fn

	inVars := make(map[string]bool)
	for _, it := range fn.In.Items {
		if it.TyVar != "" {
			inVars[it.TyVar] = true
		}
	}
	for _, q := range fn.Quantified {
		if !inVars[q] {
			return nil, nil, false, errors.NewTCExtError(s, errors.NewTyVarMismatch(q))
		}
	}

	frame := extFrame{bindings: make(map[string]michelson.Type)}
	c.frames = append(c.frames, frame)
	defer func() { c.frames = c.frames[:len(c.frames)-1] }()

	matched, tail, err := c.matchPattern(fn.In, s)
	if err != nil {
		return nil, nil, false, errors.NewTCExtError(s, err)
	}

	body, bodyOut, bodyTerm, tcErr := c.checkSeq(u.BodyA, matched)
	if tcErr != nil {
		return nil, nil, false, tcErr
	}
	if bodyTerm {
		return body, nil, true, nil
	}

	out, outTail, err := c.matchPattern(fn.Out, bodyOut)
	if err != nil {
		return nil, nil, false, errors.NewTCExtError(bodyOut, err)
	}
	if !outTail.TypesEqualOn(tail) {
		return nil, nil, false, errors.NewTCExtError(bodyOut,
			errors.NewStkRestMismatchf("%s after the frame, %s before it", outTail, tail))
	}
	return body, out, false, nil
}

// matchPattern matches a stack pattern against the stack, binding type
// variables in the innermost FN frame. It returns the stack with the
// pattern's annotations converged in and the unmatched tail.
func (c *checker) matchPattern(pat michelson.StackTypePattern, s michelson.HST) (michelson.HST, michelson.HST, errors.ExtError) {
	n := len(pat.Items)
	if pat.Open {
		if len(s) < n {
			return nil, nil, errors.NewLengthMismatch(pat)
		}
	} else if len(s) != n {
		return nil, nil, errors.NewLengthMismatch(pat)
	}

	out := make(michelson.HST, len(s))
	copy(out, s)
	for i, it := range pat.Items {
		if it.TyVar != "" {
			bound, ok := c.lookupVar(it.TyVar)
			if ok {
				if !michelson.TypesEqual(bound, s[i].Type) {
					return nil, nil, errors.NewVarError(it.TyVar, bound, s[i].Type)
				}
			} else {
				c.bindVar(it.TyVar, s[i].Type)
			}
			continue
		}
		if !michelson.TypesEqual(it.Type, s[i].Type) {
			return nil, nil, errors.NewTypeMismatch(i, it.Type, s[i].Type)
		}
		if !it.Notes.IsStar() {
			notes, err := michelson.Converge(out[i].Notes, it.Notes)
			if err != nil {
				if annErr, ok := err.(*michelson.AnnConvergeError); ok {
					return nil, nil, errors.NewAnnError(annErr)
				}
				return nil, nil, errors.NewStkRestMismatchf("%s", err)
			}
			out[i].Notes = notes
		}
	}
	return out, out[n:], nil
}

func (c *checker) lookupVar(name string) (michelson.Type, bool) {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if t, ok := c.frames[i].bindings[name]; ok {
			return t, true
		}
	}
	return nil, false
}

func (c *checker) bindVar(name string, t michelson.Type) {
	if len(c.frames) == 0 {
		// STACKTYPE outside any FN frame may still name variables; they
		// live in an implicit outermost frame.
		c.frames = append(c.frames, extFrame{bindings: make(map[string]michelson.Type)})
	}
	c.frames[len(c.frames)-1].bindings[name] = t
}
