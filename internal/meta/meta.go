// Package meta implements metamethod lookup and dispatch: __index,
// __newindex, the arithmetic/comparison/length/call/tostring/concat
// metamethods, and __close, with the fallback order spec.md 4.1/4.2
// prescribes. It depends only on internal/value; invoking a Lua-level
// metamethod (as opposed to a primitive fallback) is done through the
// Caller function callers inject, so this package never needs to import
// the interpreter's eval loop.
//
// Grounded on the teacher's EnhancedVM opcode dispatch
// (sentra/internal/vm/vm.go): each arithmetic/compare opcode there tries
// the native Go op first and only then (if at all) looks for a fallback;
// this package generalizes that shape into an explicit metamethod chain.
package meta

import (
	"fmt"

	"lua/internal/value"
)

// Caller invokes a Value as a function with args, returning its results.
// Supplied by internal/interp (the only package that can actually run a
// Lua closure body).
type Caller func(fn value.Value, args []value.Value) ([]value.Value, error)

// metatabler is satisfied by *value.Table and *value.Userdata.
type metatabler interface {
	Metatable() *value.Table
}

// Metatable returns v's metatable: the per-instance one for tables and
// userdata, or the shared string metatable for *value.Bytes (spec.md 3:
// "strings share a type-level metatable"). Returns nil for everything
// else.
func Metatable(v value.Value) *value.Table {
	switch x := v.(type) {
	case metatabler:
		return x.Metatable()
	case *value.Bytes:
		return stringMetatable
}
	return nil
}

var stringMetatable *value.Table

// SetStringMetatable installs the shared metatable every string shares
// (stdlib's string library installs itself here so `("x"):upper()`
// works).
func SetStringMetatable(mt *value.Table) { stringMetatable = mt }

// rawField fetches a metamethod field by name without triggering further
// dispatch (metatables are plain tables, looked up with RawGet).
func rawField(mt *value.Table, name string) value.Value {
	if mt == nil {
		return value.Nil{}
	}
	return mt.RawGet(value.NewString(name))
}

func mm(v value.Value, name string) value.Value {
	f := rawField(Metatable(v), name)
	if value.IsNil(f) {
		return nil
	}
	return f
}

// TypeError formats spec.md 4.1/7's "attempt to ... a <type> value".
func TypeError(verb string, v value.Value) error {
	return fmt.Errorf("attempt to %s a %s value", verb, value.TypeName(v))
}
