package value

import "math"

// RawEqual implements primitive equality (no __eq dispatch): numbers
// compare by mathematical value across subtypes, Nil equals only Nil,
// NaN is never equal to itself, *Bytes compare by content, and every
// other type compares by reference identity (spec.md 3/4.1).
func RawEqual(a, b Value) bool {
	if IsNil(a) || IsNil(b) {
		return IsNil(a) && IsNil(b)
	}
	switch x := a.(type) {
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case *Bytes:
		y, ok := b.(*Bytes)
		return ok && x.String() == y.String()
	case Int, Float, *Big:
		if !IsNumber(b) {
			return false
		}
		return numEqual(a, b)
	case *Table:
		y, ok := b.(*Table)
		return ok && x == y
	case *Function:
		y, ok := b.(*Function)
		return ok && x == y
	case *Coroutine:
		y, ok := b.(*Coroutine)
		return ok && x == y
	case *Userdata:
		y, ok := b.(*Userdata)
		return ok && x == y
	default:
		return false
	}
}

func numEqual(a, b Value) bool {
	if ai, aok := a.(Int); aok {
		if bi, bok := b.(Int); bok {
			return ai == bi
		}
		if bf, bok := b.(Float); bok {
			return floatEqualsInt(float64(bf), int64(ai))
		}
	}
	if af, aok := a.(Float); aok {
		bf, _ := AsFloat(b)
		if math.IsNaN(float64(af)) || math.IsNaN(bf) {
			return false
		}
		return float64(af) == bf
	}
	if ab, aok := a.(*Big); aok {
		if bb, bok := b.(*Big); bok {
			return ab.V.Cmp(bb.V) == 0
		}
		bf, _ := AsFloat(b)
		af, _ := AsFloat(a)
		return af == bf
	}
	return false
}

// Compare implements primitive `<` ordering for numbers (mixed
// Int/Float/*Big) and *Bytes (byte-lexicographic). ok=false signals the
// operands aren't primitively comparable (caller falls back to __lt/__le
// or raises a type error), matching spec.md 4.1: "comparison between a
// number and a string is an error".
func Compare(a, b Value) (less, equal bool, ok bool) {
	if IsNumber(a) && IsNumber(b) {
		af, _ := AsFloat(a)
		bf, _ := AsFloat(b)
		if math.IsNaN(af) || math.IsNaN(bf) {
			return false, false, true
		}
		if ai, aok := a.(Int); aok {
			if bi, bok := b.(Int); bok {
				return ai < bi, ai == bi, true
			}
		}
		return af < bf, af == bf, true
	}
	if as, aok := a.(*Bytes); aok {
		if bs, bok := b.(*Bytes); bok {
			c := compareBytes(as, bs)
			return c < 0, c == 0, true
		}
	}
	return false, false, false
}
