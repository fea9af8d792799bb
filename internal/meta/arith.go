package meta

import (
	"fmt"

	"lua/internal/value"
)

var arithMetaName = map[value.ArithOp]string{
	value.OpAdd:  "__add",
	value.OpSub:  "__sub",
	value.OpMul:  "__mul",
	value.OpDiv:  "__div",
	value.OpIDiv: "__idiv",
	value.OpMod:  "__mod",
	value.OpPow:  "__pow",
	value.OpUnm:  "__unm",
	value.OpBAnd: "__band",
	value.OpBOr:  "__bor",
	value.OpBXor: "__bxor",
	value.OpShl:  "__shl",
	value.OpShr:  "__shr",
	value.OpBNot: "__bnot",
}

var arithVerb = map[value.ArithOp]string{
	value.OpAdd: "perform arithmetic on", value.OpSub: "perform arithmetic on",
	value.OpMul: "perform arithmetic on", value.OpDiv: "perform arithmetic on",
	value.OpIDiv: "perform arithmetic on", value.OpMod: "perform arithmetic on",
	value.OpPow: "perform arithmetic on", value.OpUnm: "perform arithmetic on",
	value.OpBAnd: "perform bitwise operation on", value.OpBOr: "perform bitwise operation on",
	value.OpBXor: "perform bitwise operation on", value.OpShl: "perform bitwise operation on",
	value.OpShr: "perform bitwise operation on", value.OpBNot: "perform bitwise operation on",
}

// Arith implements spec.md 4.1's three-step dispatch for a binary (or,
// for Unm/BNot, unary — b is ignored then) arithmetic/bitwise operator:
// numeric fast path, then left-then-right metamethod lookup, then a type
// error.
func Arith(call Caller, op value.ArithOp, a, b value.Value) (value.Value, error) {
	na, okA := coerceNumeric(a)
	nb := b
	if op != value.OpUnm && op != value.OpBNot {
		var okB bool
		nb, okB = coerceNumeric(b)
		if okA && okB {
			if r, handled, err := value.Numeric(op, na, nb); handled {
				if err != nil {
					return nil, err
				}
				return r, nil
			}
		}
	} else if okA {
		if r, handled, err := value.Numeric(op, na, nb); handled {
			if err != nil {
				return nil, err
			}
			return r, nil
		}
	}

	name := arithMetaName[op]
	if fn, ok := mmFunc(a, name); ok {
		res, err := call(fn, []value.Value{a, b})
		return first(res), err
	}
	if op != value.OpUnm && op != value.OpBNot {
		if fn, ok := mmFunc(b, name); ok {
			res, err := call(fn, []value.Value{a, b})
			return first(res), err
		}
	}
	bad := a
	if value.IsNumber(a) {
		bad = b
	}
	return nil, fmt.Errorf("attempt to %s a %s value", arithVerb[op], value.TypeName(bad))
}

// coerceNumeric implements spec.md 4.1's "strings convertible to
// numbers" fast-path operand.
func coerceNumeric(v value.Value) (value.Value, bool) {
	if value.IsNumber(v) {
		return v, true
	}
	if s, ok := v.(*value.Bytes); ok {
		if n, ok := value.ToNumber(s.String()); ok {
			return n, true
		}
	}
	return v, false
}

func mmFunc(v value.Value, name string) (*value.Function, bool) {
	m := mm(v, name)
	if m == nil {
		return nil, false
	}
	fn, ok := m.(*value.Function)
	return fn, ok
}
