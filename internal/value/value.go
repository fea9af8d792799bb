// Package value implements the polymorphic runtime value model: the
// tagged-sum Value type, the numeric tower, and the raw (metamethod-free)
// table/string primitives the rest of the interpreter builds on.
package value

import (
	"fmt"
	"math"
	"math/big"
)

// Value is any datum the interpreter can hold: Nil, Bool, Int, Float,
// *Big, *Bytes, *Table, *Function, *Coroutine, or *Userdata.
//
// Unlike the teacher's bytecode VM (sentra/internal/vm.Value = any, with
// a single type switch in PrintValue), this is a closed set: every arm is
// declared below and every operation in this package, meta, and stdlib
// type-switches over exactly these arms. That closed-switch discipline is
// what spec.md 4.1 calls "every op checks arms; expose a fast path".
type Value interface {
	valueTag()
}

// Nil is the absence of a value. The zero Value is not valid Lua nil;
// use Nil{} explicitly so a nil interface (no Value at all) is always a
// host-side bug, never confusable with Lua's nil.
type Nil struct{}

func (Nil) valueTag() {}

// Bool is a Lua boolean.
type Bool bool

func (Bool) valueTag() {}

// Int is a 64-bit Lua integer. Arithmetic on Int wraps modulo 2^64,
// interpreted as signed (spec.md 3).
type Int int64

func (Int) valueTag() {}

// Float is a 64-bit Lua float (IEEE-754 double).
type Float float64

func (Float) valueTag() {}

// Big is the arbitrary-precision fallback arm, used only when an
// operand already overflowed into it (tonumber of an over-wide decimal
// literal, or an arithmetic op where one side is already *Big).
type Big struct {
	V *big.Int
}

func (*Big) valueTag() {}

func NewBig(i *big.Int) *Big { return &Big{V: i} }

// Table, Function, Coroutine and Userdata are declared in their own
// files (table.go, function.go, ...) in this package to keep the
// type-switch arms colocated with their implementation; their valueTag
// methods are declared there too and listed here for discoverability:
//   func (*Table) valueTag() {}
//   func (*Function) valueTag() {}
//   func (*Coroutine) valueTag() {}
//   func (*Userdata) valueTag() {}

// TypeName returns the Lua type name, as `type()` reports it.
func TypeName(v Value) string {
	switch v.(type) {
	case Nil, nil:
		return "nil"
	case Bool:
		return "boolean"
	case Int, Float, *Big:
		return "number"
	case *Bytes:
		return "string"
	case *Table:
		return "table"
	case *Function:
		return "function"
	case *Coroutine:
		return "thread"
	case *Userdata:
		return "userdata"
	default:
		return fmt.Sprintf("unknown(%T)", v)
	}
}

// IsTruthy implements Lua truthiness: everything except nil and false.
func IsTruthy(v Value) bool {
	switch x := v.(type) {
	case Nil, nil:
		return false
	case Bool:
		return bool(x)
	default:
		return true
	}
}

// IsNil reports whether v is Lua nil (including a raw Go nil interface,
// which callers sometimes produce by accident; we treat it the same way
// C Lua's API treats an absent stack slot).
func IsNil(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Nil)
	return ok
}

// IsNumber reports whether v is any arm of the numeric tower.
func IsNumber(v Value) bool {
	switch v.(type) {
	case Int, Float, *Big:
		return true
	default:
		return false
	}
}

// floatEqualsInt reports whether f exactly represents an integer value
// (used for Int/Float cross-type equality, spec.md 3).
func floatEqualsInt(f float64, i int64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	return f == float64(i) && int64(f) == i
}
