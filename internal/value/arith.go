package value

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ToNumber implements tonumber(s) (spec.md 4.1): decimal, hex (0x...),
// and hex-float (0x1.fp+4) forms, with permitted leading/trailing
// whitespace. Returns ok=false if s is not a valid Lua numeral.
func ToNumber(s string) (Value, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil, false
	}
	neg := false
	body := t
	if body[0] == '+' || body[0] == '-' {
		neg = body[0] == '-'
		body = body[1:]
	}
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		return parseHex(body[2:], neg)
	}
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return Int(i), true
	}
	if bi, ok := new(big.Int).SetString(t, 10); ok && isAllDigits(body) {
		if neg {
			bi.Neg(bi)
		}
		return NewBig(bi), true
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return Float(f), true
	}
	return nil, false
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func parseHex(body string, neg bool) (Value, bool) {
	if body == "" {
		return nil, false
	}
	if strings.ContainsAny(body, ".pP") {
		f, err := strconv.ParseFloat("0x"+body, 64)
		if err != nil {
			return nil, false
		}
		if neg {
			f = -f
		}
		return Float(f), true
	}
	u, err := strconv.ParseUint(body, 16, 64)
	if err != nil {
		// Hex integers wrap on overflow in Lua rather than promoting.
		bi, ok := new(big.Int).SetString(body, 16)
		if !ok {
			return nil, false
		}
		mod := new(big.Int).Lsh(big.NewInt(1), 64)
		bi.Mod(bi, mod)
		u = bi.Uint64()
	}
	i := int64(u)
	if neg {
		i = -i
	}
	return Int(i), true
}

// ToInteger succeeds only when x is exactly representable as an i64
// (spec.md 4.1's tointeger rule).
func ToInteger(v Value) (int64, bool) {
	switch x := v.(type) {
	case Int:
		return int64(x), true
	case Float:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		i := int64(f)
		if float64(i) != f {
			return 0, false
		}
		return i, true
	case *Big:
		if x.V.IsInt64() {
			return x.V.Int64(), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// AsFloat converts any numeric arm to float64, used by operations that
// always produce Float (/, ^) or need a float view for comparison.
func AsFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case Int:
		return float64(x), true
	case Float:
		return float64(x), true
	case *Big:
		f := new(big.Float).SetInt(x.V)
		r, _ := f.Float64()
		return r, true
	default:
		return 0, false
	}
}

func asBig(v Value) *big.Int {
	switch x := v.(type) {
	case Int:
		return big.NewInt(int64(x))
	case *Big:
		return x.V
	default:
		return nil
	}
}

// Arith kind tags for the binary numeric ops (spec.md 4.1).
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
	OpIDiv
	OpMod
	OpPow
	OpUnm
	OpBAnd
	OpBOr
	OpBXor
	OpShl
	OpShr
	OpBNot
)

// ArithError is the error type of the sentinel-ish values (errDivByZero,
// errModByZero, errNoIntRep) the arithmetic core returns so callers
// (meta/stdlib) can render spec.md 4.1's exact error messages without
// string-matching.
type ArithError struct{ Msg string }

func (e *ArithError) Error() string { return e.Msg }

var (
	errDivByZero    = &ArithError{"attempt to perform 'n//0'"}
	errModByZero    = &ArithError{"attempt to perform 'n%0'"}
	errNoIntRep     = &ArithError{"number has no integer representation"}
)

// Numeric attempts op on a, b where both are numeric (Int/Float/*Big) or
// numeric-looking strings already coerced by the caller. ok=false means
// "not both numeric operands" — the caller (meta.Arith) should then fall
// back to metamethod dispatch per spec.md 4.1 step 2.
func Numeric(op ArithOp, a, b Value) (Value, bool, error) {
	if !IsNumber(a) || (op != OpUnm && op != OpBNot && !IsNumber(b)) {
		return nil, false, nil
	}
	switch op {
	case OpAdd, OpSub, OpMul:
		return arithBasic(op, a, b)
	case OpDiv:
		af, _ := AsFloat(a)
		bf, _ := AsFloat(b)
		return Float(af / bf), true, nil
	case OpPow:
		af, _ := AsFloat(a)
		bf, _ := AsFloat(b)
		return Float(math.Pow(af, bf)), true, nil
	case OpIDiv:
		return arithIDiv(a, b)
	case OpMod:
		return arithMod(a, b)
	case OpUnm:
		return arithUnm(a)
	case OpBAnd, OpBOr, OpBXor, OpShl, OpShr:
		return arithBitwise(op, a, b)
	case OpBNot:
		ia, ok := ToInteger(a)
		if !ok {
			return nil, true, errNoIntRep
		}
		return Int(^ia), true, nil
	}
	return nil, false, nil
}

func bothInt(a, b Value) (Int, Int, bool) {
	ai, aok := a.(Int)
	bi, bok := b.(Int)
	return ai, bi, aok && bok
}

func arithBasic(op ArithOp, a, b Value) (Value, bool, error) {
	if ai, bi, ok := bothInt(a, b); ok {
		switch op {
		case OpAdd:
			return Int(uint64(ai) + uint64(bi)), true, nil
		case OpSub:
			return Int(uint64(ai) - uint64(bi)), true, nil
		case OpMul:
			return Int(uint64(ai) * uint64(bi)), true, nil
		}
	}
	if _, isBigA := a.(*Big); isBigA {
		return bigArith(op, a, b), true, nil
	}
	if _, isBigB := b.(*Big); isBigB {
		return bigArith(op, a, b), true, nil
	}
	af, _ := AsFloat(a)
	bf, _ := AsFloat(b)
	switch op {
	case OpAdd:
		return Float(af + bf), true, nil
	case OpSub:
		return Float(af - bf), true, nil
	case OpMul:
		return Float(af * bf), true, nil
	}
	return nil, false, nil
}

func bigArith(op ArithOp, a, b Value) Value {
	ba, bb := asBig(a), asBig(b)
	r := new(big.Int)
	switch op {
	case OpAdd:
		r.Add(ba, bb)
	case OpSub:
		r.Sub(ba, bb)
	case OpMul:
		r.Mul(ba, bb)
	}
	return NewBig(r)
}

func arithIDiv(a, b Value) (Value, bool, error) {
	if ai, bi, ok := bothInt(a, b); ok {
		if bi == 0 {
			return nil, true, errDivByZero
		}
		return Int(ifloordiv(int64(ai), int64(bi))), true, nil
	}
	af, _ := AsFloat(a)
	bf, _ := AsFloat(b)
	return Float(math.Floor(af / bf)), true, nil
}

func ifloordiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func arithMod(a, b Value) (Value, bool, error) {
	if ai, bi, ok := bothInt(a, b); ok {
		if bi == 0 {
			return nil, true, errModByZero
		}
		m := int64(ai) % int64(bi)
		if m != 0 && (m < 0) != (int64(bi) < 0) {
			m += int64(bi)
		}
		return Int(m), true, nil
	}
	af, _ := AsFloat(a)
	bf, _ := AsFloat(b)
	m := math.Mod(af, bf)
	if m != 0 && (m < 0) != (bf < 0) {
		m += bf
	}
	return Float(m), true, nil
}

func arithUnm(a Value) (Value, bool, error) {
	switch x := a.(type) {
	case Int:
		return Int(-uint64(x)), true, nil
	case Float:
		return Float(-x), true, nil
	case *Big:
		return NewBig(new(big.Int).Neg(x.V)), true, nil
	}
	return nil, false, nil
}

func arithBitwise(op ArithOp, a, b Value) (Value, bool, error) {
	ia, ok1 := ToInteger(a)
	ib, ok2 := ToInteger(b)
	if !ok1 || !ok2 {
		return nil, true, errNoIntRep
	}
	switch op {
	case OpBAnd:
		return Int(ia & ib), true, nil
	case OpBOr:
		return Int(ia | ib), true, nil
	case OpBXor:
		return Int(ia ^ ib), true, nil
	case OpShl:
		return Int(shiftLeft(ia, ib)), true, nil
	case OpShr:
		return Int(shiftLeft(ia, -ib)), true, nil
	}
	return nil, false, nil
}

// shiftLeft implements Lua 5.4's logical shift semantics: shifting by
// >= 64 in either direction yields 0, and a negative count shifts the
// other way (spec.md 4.1).
func shiftLeft(a, n int64) int64 {
	if n <= -64 || n >= 64 {
		return 0
	}
	if n >= 0 {
		return int64(uint64(a) << uint(n))
	}
	return int64(uint64(a) >> uint(-n))
}
