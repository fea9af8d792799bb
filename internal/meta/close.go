package meta

import "lua/internal/value"

// Close invokes __close(obj, err) for a to-be-closed local going out of
// scope (spec.md 4.10/GLOSSARY "to-be-closed variable"). err is the Lua
// error value propagating past the block, or Nil{} on normal exit.
func Close(call Caller, obj, err value.Value) error {
	fn, ok := mmFunc(obj, "__close")
	if !ok {
		return TypeError("close (no '__close' metamethod on)", obj)
	}
	_, callErr := call(fn, []value.Value{obj, err})
	return callErr
}

// HasClose reports whether obj can be used as a to-be-closed value
// (nil/false are explicitly allowed by Lua and simply skipped by the
// caller; anything else must have __close).
func HasClose(obj value.Value) bool {
	if value.IsNil(obj) {
		return true
	}
	if b, ok := obj.(value.Bool); ok && !bool(b) {
		return true
	}
	_, ok := mmFunc(obj, "__close")
	return ok
}

// Pairs resolves __pairs for the base library's `pairs` builtin
// (spec.md 4.2: "pairs(t) returns (__pairs(t)) if present").
func Pairs(v value.Value) (*value.Function, bool) {
	return mmFunc(v, "__pairs")
}

// GC reports the __gc metamethod, if any, for the finalizer package to
// register when a metatable is attached to v.
func GC(v value.Value) (*value.Function, bool) {
	return mmFunc(v, "__gc")
}

// Metatable field protection: a table's metatable may declare
// __metatable to block getmetatable/setmetatable from exposing or
// replacing it (spec.md 3).
func ProtectedMetatable(mt *value.Table) (value.Value, bool) {
	if mt == nil {
		return nil, false
	}
	f := rawField(mt, "__metatable")
	if value.IsNil(f) {
		return nil, false
	}
	return f, true
}
