package mvm

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	stderrors "errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
	"github.com/techoluwoye/lorentz-contract-param/mvm/errors"
)

// execEnv is the environment one contract execution sees: the identity of
// the running contract, the transfer that invoked it, and the batch-wide
// machinery (meter, origination counter, PRINT sink) via vm.
type execEnv struct {
	vm        *vm
	self      michelson.Address
	sender    michelson.Address
	source    michelson.Address
	amount    michelson.Mutez
	balance   michelson.Mutez
	paramType michelson.Type
}

var errShiftTooLarge = stderrors.New("shift amount above 256")

// run executes a typed instruction sequence over a value stack (topmost
// last). The type checker guarantees every pop and type assertion below;
// only the defined runtime failures surface as errors.
func (e *execEnv) run(code []michelson.Instr, stack []michelson.Value) ([]michelson.Value, errors.RuntimeFailure) {
	pop := func() michelson.Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	push := func(v michelson.Value) { stack = append(stack, v) }

	for _, i := range code {
		if !i.Op.IsExtension() {
			if f := e.vm.meter.Step(); f != nil {
				return nil, f
			}
		}

		switch i.Op {
		case michelson.OpDrop:
			pop()

		case michelson.OpDup:
			push(stack[len(stack)-1])

		case michelson.OpSwap:
			a, b := pop(), pop()
			push(a)
			push(b)

		case michelson.OpPush:
			push(i.Push)

		case michelson.OpSome:
			push(michelson.VOption{Some: pop()})

		case michelson.OpNone:
			push(michelson.VOption{})

		case michelson.OpUnit:
			push(michelson.VUnit{})

		case michelson.OpIfNone:
			o := pop().(michelson.VOption)
			var f errors.RuntimeFailure
			if o.Some == nil {
				stack, f = e.run(i.BodyA, stack)
			} else {
				push(o.Some)
				stack, f = e.run(i.BodyB, stack)
			}
			if f != nil {
				return nil, f
			}

		case michelson.OpPair:
			car, cdr := pop(), pop()
			push(michelson.VPair{Car: car, Cdr: cdr})

		case michelson.OpCar:
			push(pop().(michelson.VPair).Car)

		case michelson.OpCdr:
			push(pop().(michelson.VPair).Cdr)

		case michelson.OpLeft:
			push(michelson.VOr{IsRight: false, V: pop()})

		case michelson.OpRight:
			push(michelson.VOr{IsRight: true, V: pop()})

		case michelson.OpIfLeft:
			o := pop().(michelson.VOr)
			push(o.V)
			body := i.BodyA
			if o.IsRight {
				body = i.BodyB
			}
			var f errors.RuntimeFailure
			stack, f = e.run(body, stack)
			if f != nil {
				return nil, f
			}

		case michelson.OpNil:
			push(michelson.VList{})

		case michelson.OpCons:
			head := pop()
			tail := pop().(michelson.VList)
			items := make([]michelson.Value, 0, len(tail.Items)+1)
			items = append(items, head)
			items = append(items, tail.Items...)
			push(michelson.VList{Items: items})

		case michelson.OpIfCons:
			l := pop().(michelson.VList)
			var f errors.RuntimeFailure
			if len(l.Items) > 0 {
				push(michelson.VList{Items: l.Items[1:]})
				push(l.Items[0])
				stack, f = e.run(i.BodyA, stack)
			} else {
				stack, f = e.run(i.BodyB, stack)
			}
			if f != nil {
				return nil, f
			}

		case michelson.OpSize:
			var n int
			switch c := pop().(type) {
			case michelson.VString:
				n = len(c.S)
			case michelson.VBytes:
				n = len(c.B)
			case michelson.VList:
				n = len(c.Items)
			case michelson.VSet:
				n = len(c.Elems)
			case michelson.VMap:
				n = len(c.Entries)
			case michelson.VBigMap:
				n = len(c.Entries)
			}
			push(michelson.NatV(uint64(n)))

		case michelson.OpEmptySet:
			push(michelson.VSet{})

		case michelson.OpEmptyMap:
			push(michelson.VMap{})

		case michelson.OpMap:
			var f errors.RuntimeFailure
			switch c := pop().(type) {
			case michelson.VList:
				items := make([]michelson.Value, len(c.Items))
				for idx, elt := range c.Items {
					push(elt)
					stack, f = e.run(i.BodyA, stack)
					if f != nil {
						return nil, f
					}
					items[idx] = pop()
				}
				push(michelson.VList{Items: items})
			case michelson.VMap:
				entries := make([]michelson.MapEntry, len(c.Entries))
				for idx, ent := range c.Entries {
					push(michelson.VPair{Car: ent.Key, Cdr: ent.Val})
					stack, f = e.run(i.BodyA, stack)
					if f != nil {
						return nil, f
					}
					entries[idx] = michelson.MapEntry{Key: ent.Key, Val: pop()}
				}
				push(michelson.VMap{Entries: entries})
			}

		case michelson.OpIter:
			var elems []michelson.Value
			switch c := pop().(type) {
			case michelson.VList:
				elems = c.Items
			case michelson.VSet:
				elems = c.Elems
			case michelson.VMap:
				for _, ent := range c.Entries {
					elems = append(elems, michelson.VPair{Car: ent.Key, Cdr: ent.Val})
				}
			}
			for _, elt := range elems {
				push(elt)
				var f errors.RuntimeFailure
				stack, f = e.run(i.BodyA, stack)
				if f != nil {
					return nil, f
				}
			}

		case michelson.OpMem:
			key := pop()
			var present bool
			switch c := pop().(type) {
			case michelson.VSet:
				present = c.SetMember(key)
			case michelson.VMap:
				_, present = c.MapGet(key)
			case michelson.VBigMap:
				_, present = c.MapGet(key)
			}
			push(michelson.VBool{B: present})

		case michelson.OpGet:
			key := pop()
			var val michelson.Value
			var ok bool
			switch c := pop().(type) {
			case michelson.VMap:
				val, ok = c.MapGet(key)
			case michelson.VBigMap:
				val, ok = c.MapGet(key)
			}
			if ok {
				push(michelson.VOption{Some: val})
			} else {
				push(michelson.VOption{})
			}

		case michelson.OpUpdate:
			key := pop()
			arg := pop()
			switch c := pop().(type) {
			case michelson.VSet:
				push(c.SetUpdate(key, arg.(michelson.VBool).B))
			case michelson.VMap:
				push(c.MapUpdate(key, arg.(michelson.VOption).Some))
			case michelson.VBigMap:
				push(c.MapUpdate(key, arg.(michelson.VOption).Some))
			}

		case michelson.OpIf:
			b := pop().(michelson.VBool)
			body := i.BodyA
			if !b.B {
				body = i.BodyB
			}
			var f errors.RuntimeFailure
			stack, f = e.run(body, stack)
			if f != nil {
				return nil, f
			}

		case michelson.OpLoop:
			for {
				b := pop().(michelson.VBool)
				if !b.B {
					break
				}
				var f errors.RuntimeFailure
				stack, f = e.run(i.BodyA, stack)
				if f != nil {
					return nil, f
				}
			}

		case michelson.OpLoopLeft:
			for {
				o := pop().(michelson.VOr)
				if o.IsRight {
					push(o.V)
					break
				}
				push(o.V)
				var f errors.RuntimeFailure
				stack, f = e.run(i.BodyA, stack)
				if f != nil {
					return nil, f
				}
			}

		case michelson.OpLambda:
			push(michelson.VLambda{In: i.Typ, Out: i.Typ2, Code: i.BodyA})

		case michelson.OpExec:
			arg := pop()
			lam := pop().(michelson.VLambda)
			out, f := e.run(lam.Code, []michelson.Value{arg})
			if f != nil {
				return nil, f
			}
			push(out[len(out)-1])

		case michelson.OpDip:
			top := pop()
			var f errors.RuntimeFailure
			stack, f = e.run(i.BodyA, stack)
			if f != nil {
				return nil, f
			}
			push(top)

		case michelson.OpFailWith:
			return nil, errors.NewMichelsonFailed(pop())

		case michelson.OpCast, michelson.OpRename:
			// Annotation-level instructions: no runtime effect.

		case michelson.OpConcat:
			switch a := pop().(type) {
			case michelson.VList:
				push(concatAll(i.Typ, a.Items))
			case michelson.VString:
				b := pop().(michelson.VString)
				push(michelson.VString{S: a.S + b.S})
			case michelson.VBytes:
				b := pop().(michelson.VBytes)
				out := make([]byte, 0, len(a.B)+len(b.B))
				out = append(out, a.B...)
				out = append(out, b.B...)
				push(michelson.VBytes{B: out})
			}

		case michelson.OpSlice:
			offset := pop().(michelson.VNat).X
			length := pop().(michelson.VNat).X
			switch c := pop().(type) {
			case michelson.VString:
				if o, l, ok := sliceBounds(offset, length, len(c.S)); ok {
					push(michelson.VOption{Some: michelson.VString{S: c.S[o : o+l]}})
				} else {
					push(michelson.VOption{})
				}
			case michelson.VBytes:
				if o, l, ok := sliceBounds(offset, length, len(c.B)); ok {
					out := append([]byte{}, c.B[o:o+l]...)
					push(michelson.VOption{Some: michelson.VBytes{B: out}})
				} else {
					push(michelson.VOption{})
				}
			}

		case michelson.OpIsNat:
			n := pop().(michelson.VInt)
			if n.X.Sign() >= 0 {
				push(michelson.VOption{Some: michelson.VNat{X: n.X}})
			} else {
				push(michelson.VOption{})
			}

		case michelson.OpAdd, michelson.OpSub, michelson.OpMul, michelson.OpEDiv:
			a, b := pop(), pop()
			res, f := arith(i.Op, a, b)
			if f != nil {
				return nil, f
			}
			push(res)

		case michelson.OpAbs:
			n := pop().(michelson.VInt)
			push(michelson.VNat{X: new(big.Int).Abs(n.X)})

		case michelson.OpNeg:
			push(michelson.VInt{X: new(big.Int).Neg(numArg(pop()))})

		case michelson.OpLsl, michelson.OpLsr:
			x := pop().(michelson.VNat).X
			s := pop().(michelson.VNat).X
			if !s.IsUint64() || s.Uint64() > 256 {
				return nil, errors.NewMichelsonArithError(i.Op, errShiftTooLarge)
			}
			if i.Op == michelson.OpLsl {
				push(michelson.VNat{X: new(big.Int).Lsh(x, uint(s.Uint64()))})
			} else {
				push(michelson.VNat{X: new(big.Int).Rsh(x, uint(s.Uint64()))})
			}

		case michelson.OpOr, michelson.OpAnd, michelson.OpXor:
			a, b := pop(), pop()
			if ab, ok := a.(michelson.VBool); ok {
				bb := b.(michelson.VBool)
				var r bool
				switch i.Op {
				case michelson.OpOr:
					r = ab.B || bb.B
				case michelson.OpAnd:
					r = ab.B && bb.B
				case michelson.OpXor:
					r = ab.B != bb.B
				}
				push(michelson.VBool{B: r})
			} else {
				an := a.(michelson.VNat).X
				bn := b.(michelson.VNat).X
				r := new(big.Int)
				switch i.Op {
				case michelson.OpOr:
					r.Or(an, bn)
				case michelson.OpAnd:
					r.And(an, bn)
				case michelson.OpXor:
					r.Xor(an, bn)
				}
				push(michelson.VNat{X: r})
			}

		case michelson.OpNot:
			switch a := pop().(type) {
			case michelson.VBool:
				push(michelson.VBool{B: !a.B})
			case michelson.VInt:
				push(michelson.VInt{X: new(big.Int).Not(a.X)})
			case michelson.VNat:
				push(michelson.VInt{X: new(big.Int).Not(a.X)})
			}

		case michelson.OpCompare:
			a, b := pop(), pop()
			push(michelson.IntV(int64(michelson.Compare(a, b))))

		case michelson.OpEq, michelson.OpNeq, michelson.OpLt, michelson.OpGt, michelson.OpLe, michelson.OpGe:
			sign := pop().(michelson.VInt).X.Sign()
			var r bool
			switch i.Op {
			case michelson.OpEq:
				r = sign == 0
			case michelson.OpNeq:
				r = sign != 0
			case michelson.OpLt:
				r = sign < 0
			case michelson.OpGt:
				r = sign > 0
			case michelson.OpLe:
				r = sign <= 0
			case michelson.OpGe:
				r = sign >= 0
			}
			push(michelson.VBool{B: r})

		case michelson.OpInt:
			push(michelson.VInt{X: pop().(michelson.VNat).X})

		case michelson.OpSelf:
			push(michelson.VContract{A: e.self, Param: e.paramType})

		case michelson.OpContract:
			addr := pop().(michelson.VAddress).A
			push(e.resolveContract(addr, i.Typ))

		case michelson.OpTransferTokens:
			param := pop()
			amount := pop().(michelson.VMutez).M
			contract := pop().(michelson.VContract)
			push(michelson.VOp{Op: michelson.TransferTokensOp{
				Parameter: param,
				ParamType: contract.Param,
				Amount:    amount,
				Dest:      contract.A,
			}})

		case michelson.OpSetDelegate:
			push(michelson.VOp{Op: michelson.SetDelegateOp{
				Delegate: optionalKeyHash(pop()),
			}})

		case michelson.OpCreateAccount:
			manager := pop().(michelson.VKeyHash).KH
			delegate := optionalKeyHash(pop())
			spendable := pop().(michelson.VBool).B
			balance := pop().(michelson.VMutez).M
			addr := deriveContractAddress(e.vm.nextOrigination(), balance, nil, nil)
			push(michelson.VAddress{A: addr})
			push(michelson.VOp{Op: michelson.CreateAccountOp{
				Addr:      addr,
				Manager:   manager,
				Delegate:  delegate,
				Spendable: spendable,
				Balance:   balance,
			}})

		case michelson.OpCreateContract:
			manager := pop().(michelson.VKeyHash).KH
			delegate := optionalKeyHash(pop())
			spendable := pop().(michelson.VBool).B
			delegatable := pop().(michelson.VBool).B
			balance := pop().(michelson.VMutez).M
			storage := pop()
			addr := deriveContractAddress(e.vm.nextOrigination(), balance, storage, i.Contract)
			push(michelson.VAddress{A: addr})
			push(michelson.VOp{Op: michelson.CreateContractOp{
				Addr:        addr,
				Manager:     manager,
				Delegate:    delegate,
				Spendable:   spendable,
				Delegatable: delegatable,
				Balance:     balance,
				Storage:     storage,
				Code:        i.Contract,
			}})

		case michelson.OpImplicitAccount:
			kh := pop().(michelson.VKeyHash).KH
			push(michelson.VContract{A: michelson.ImplicitAccount(kh), Param: michelson.TUnit{}})

		case michelson.OpNow:
			push(michelson.VTimestamp{T: e.vm.ctx.Now})

		case michelson.OpAmount:
			push(michelson.VMutez{M: e.amount})

		case michelson.OpBalance:
			push(michelson.VMutez{M: e.balance})

		case michelson.OpCheckSignature:
			key := pop().(michelson.VKey)
			sig := pop().(michelson.VSignature)
			msg := pop().(michelson.VBytes)
			valid := len(key.K) == ed25519.PublicKeySize && ed25519.Verify(key.K, msg.B, sig.S)
			push(michelson.VBool{B: valid})

		case michelson.OpSha256:
			sum := sha256.Sum256(pop().(michelson.VBytes).B)
			push(michelson.VBytes{B: sum[:]})

		case michelson.OpSha512:
			sum := sha512.Sum512(pop().(michelson.VBytes).B)
			push(michelson.VBytes{B: sum[:]})

		case michelson.OpBlake2b:
			sum := blake2b.Sum256(pop().(michelson.VBytes).B)
			push(michelson.VBytes{B: sum[:]})

		case michelson.OpHashKey:
			key := pop().(michelson.VKey)
			push(michelson.VKeyHash{KH: michelson.HashKey(key.K)})

		case michelson.OpStepsToQuota:
			push(michelson.NatV(e.vm.meter.Remaining()))

		case michelson.OpSource:
			push(michelson.VAddress{A: e.source})

		case michelson.OpSender:
			push(michelson.VAddress{A: e.sender})

		case michelson.OpAddress:
			push(michelson.VAddress{A: pop().(michelson.VContract).A})

		case michelson.OpExtPrint:
			msg := renderComment(i.Print, stack)
			e.vm.printed = append(e.vm.printed, msg)
			e.vm.ctx.Logger.Info().Stringer("contract", e.self).Msg(msg)

		case michelson.OpExtTestAssert:
			scratch := append([]michelson.Value{}, stack...)
			out, f := e.run(i.BodyA, scratch)
			if f != nil {
				return nil, f
			}
			if !out[len(out)-1].(michelson.VBool).B {
				if i.Print != nil {
					e.vm.ctx.Logger.Error().
						Str("assert", i.Name).
						Msg(renderComment(i.Print, stack))
				}
				return nil, errors.NewTestAssertFailed(i.Name)
			}

		default:
			panic(fmt.Sprintf("unexecutable opcode %s", i.Op))
		}
	}
	return stack, nil
}

// arith implements ADD/SUB/MUL/EDIV, dispatching on the runtime kinds the
// checker admitted. a is the topmost operand.
func arith(op michelson.OpCode, a, b michelson.Value) (michelson.Value, errors.RuntimeFailure) {
	fail := func(err error) (michelson.Value, errors.RuntimeFailure) {
		return nil, errors.NewMichelsonArithError(op, err)
	}

	switch op {
	case michelson.OpAdd:
		switch x := a.(type) {
		case michelson.VMutez:
			m, err := x.M.Add(b.(michelson.VMutez).M)
			if err != nil {
				return fail(err)
			}
			return michelson.VMutez{M: m}, nil
		case michelson.VTimestamp:
			return michelson.VTimestamp{T: x.T + numArg(b).Int64()}, nil
		default:
			if y, ok := b.(michelson.VTimestamp); ok {
				return michelson.VTimestamp{T: numArg(a).Int64() + y.T}, nil
			}
			r := new(big.Int).Add(numArg(a), numArg(b))
			return numResult(r, bothNat(a, b)), nil
		}

	case michelson.OpSub:
		switch x := a.(type) {
		case michelson.VMutez:
			m, err := x.M.Sub(b.(michelson.VMutez).M)
			if err != nil {
				return fail(err)
			}
			return michelson.VMutez{M: m}, nil
		case michelson.VTimestamp:
			if y, ok := b.(michelson.VTimestamp); ok {
				return michelson.IntV(x.T - y.T), nil
			}
			return michelson.VTimestamp{T: x.T - numArg(b).Int64()}, nil
		default:
			return michelson.VInt{X: new(big.Int).Sub(numArg(a), numArg(b))}, nil
		}

	case michelson.OpMul:
		if x, ok := a.(michelson.VMutez); ok {
			m, err := x.M.MulNat(b.(michelson.VNat).X)
			if err != nil {
				return fail(err)
			}
			return michelson.VMutez{M: m}, nil
		}
		if y, ok := b.(michelson.VMutez); ok {
			m, err := y.M.MulNat(a.(michelson.VNat).X)
			if err != nil {
				return fail(err)
			}
			return michelson.VMutez{M: m}, nil
		}
		r := new(big.Int).Mul(numArg(a), numArg(b))
		return numResult(r, bothNat(a, b)), nil

	case michelson.OpEDiv:
		if x, ok := a.(michelson.VMutez); ok {
			if y, ok := b.(michelson.VMutez); ok {
				q, r, ok := x.M.EDiv(y.M)
				if !ok {
					return michelson.VOption{}, nil
				}
				return michelson.VOption{Some: michelson.VPair{
					Car: michelson.NatV(uint64(q)),
					Cdr: michelson.VMutez{M: r},
				}}, nil
			}
			q, r, ok := x.M.EDivNat(b.(michelson.VNat).X)
			if !ok {
				return michelson.VOption{}, nil
			}
			return michelson.VOption{Some: michelson.VPair{
				Car: michelson.VMutez{M: q},
				Cdr: michelson.VMutez{M: r},
			}}, nil
		}
		bx := numArg(b)
		if bx.Sign() == 0 {
			return michelson.VOption{}, nil
		}
		q, r := new(big.Int), new(big.Int)
		q.DivMod(numArg(a), bx, r)
		return michelson.VOption{Some: michelson.VPair{
			Car: numResult(q, bothNat(a, b)),
			Cdr: michelson.VNat{X: r},
		}}, nil
	}
	panic("not an arithmetic opcode " + op.String())
}

func numArg(v michelson.Value) *big.Int {
	switch x := v.(type) {
	case michelson.VInt:
		return x.X
	case michelson.VNat:
		return x.X
	default:
		panic(fmt.Sprintf("not a numeric value %T", v))
	}
}

func bothNat(a, b michelson.Value) bool {
	_, an := a.(michelson.VNat)
	_, bn := b.(michelson.VNat)
	return an && bn
}

func numResult(x *big.Int, nat bool) michelson.Value {
	if nat {
		return michelson.VNat{X: x}
	}
	return michelson.VInt{X: x}
}

// concatAll folds a list of strings or bytes. elem is the list's element type
// as the checker resolved it; an empty list folds to that type's empty value.
func concatAll(elem michelson.Type, items []michelson.Value) michelson.Value {
	if c, ok := michelson.ComparableOf(elem); ok && c == michelson.CTBytes {
		var out []byte
		for _, it := range items {
			out = append(out, it.(michelson.VBytes).B...)
		}
		return michelson.VBytes{B: out}
	}
	var sb strings.Builder
	for _, it := range items {
		sb.WriteString(it.(michelson.VString).S)
	}
	return michelson.VString{S: sb.String()}
}

func sliceBounds(offset, length *big.Int, size int) (int, int, bool) {
	if !offset.IsUint64() || !length.IsUint64() {
		return 0, 0, false
	}
	o, l := offset.Uint64(), length.Uint64()
	if o > uint64(size) || l > uint64(size)-o {
		return 0, 0, false
	}
	return int(o), int(l), true
}

func optionalKeyHash(v michelson.Value) *michelson.KeyHash {
	o := v.(michelson.VOption)
	if o.Some == nil {
		return nil
	}
	kh := o.Some.(michelson.VKeyHash).KH
	return &kh
}

// resolveContract implements CONTRACT t: the address must exist and expose
// exactly the requested parameter type (unit for simple accounts).
func (e *execEnv) resolveContract(addr michelson.Address, t michelson.Type) michelson.Value {
	st, ok := e.vm.work.Account(addr)
	if !ok {
		return michelson.VOption{}
	}
	if st.IsSimple() {
		if michelson.TypesEqual(t, michelson.TUnit{}) {
			return michelson.VOption{Some: michelson.VContract{A: addr, Param: michelson.TUnit{}}}
		}
		return michelson.VOption{}
	}
	if michelson.TypesEqual(t, st.Contract.ParamType) {
		return michelson.VOption{Some: michelson.VContract{A: addr, Param: t}}
	}
	return michelson.VOption{}
}

// renderComment substitutes stack references into a PRINT comment. Index 0
// refers to the topmost item.
func renderComment(pc *michelson.PrintComment, stack []michelson.Value) string {
	var sb strings.Builder
	for _, p := range pc.Parts {
		if p.Ref == nil {
			sb.WriteString(p.Text)
			continue
		}
		idx := len(stack) - 1 - p.Ref.Idx
		if idx < 0 || idx >= len(stack) {
			sb.WriteString("<out of range>")
			continue
		}
		sb.WriteString(stack[idx].String())
	}
	return sb.String()
}
