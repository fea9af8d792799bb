// Package stdlib implements the Lua standard library (spec.md 4.3-4.9):
// base, string, table, math, io, os, utf8, coroutine, and a minimal
// debug library, installed into an Interpreter's globals at
// construction time.
//
// Grounded on the teacher's builtin-registration idiom
// (sentra/internal/vm/vm.go's RegisterBuiltins switch populating a
// `map[string]*NativeFunction`), generalized into one populated
// *value.Table per library the way spec.md 3 makes every stdlib
// "module" a first-class Lua table rather than a Go-side registry.
//
// Host is the seam that lets this package avoid importing
// internal/interp directly (which would create an import cycle, since
// interp.New installs the standard library): Install receives anything
// satisfying Host, and internal/interp.Interpreter happens to implement
// it. This is the same Caller-injection discipline internal/meta and
// internal/module use for the same reason.
package stdlib

import (
	"lua/internal/coro"
	"lua/internal/env"
	extcrypto "lua/internal/ext/crypto"
	extsocket "lua/internal/ext/socket"
	extsql "lua/internal/ext/sql"
	"lua/internal/module"
	"lua/internal/value"
)

// Host is every capability the standard library needs from the
// interpreter that owns it.
type Host interface {
	Call(fn value.Value, args []value.Value) ([]value.Value, error)
	// CallProtected is Call with yieldability forced off for the nested
	// call, backing pcall/xpcall's "yieldable flag is cleared" contract
	// (spec.md 4.5/4.6).
	CallProtected(fn value.Value, args []value.Value) ([]value.Value, error)
	CallYieldable(fn value.Value, args []value.Value, yield coro.YieldFunc, co *value.Coroutine) ([]value.Value, error)
	CurrentYield() (coro.YieldFunc, bool)
	YieldBlocked() bool
	CurrentCoroutine() (*value.Coroutine, bool)
	Globals() *value.Table
	GlobalEnv() *env.Env
	LoadChunk(source, chunkName string) (*value.Function, error)
	ModuleLoader() *module.Loader
	RegisterGC(obj value.Value, fn *value.Function)
	CloseFinalizers() []error
	PendingFinalizers() int
}

// Install populates h's globals with every standard library, wires
// `_G`, and installs the shared string metatable.
func Install(h Host) {
	g := h.Globals()
	g.RawSet(value.NewString("_G"), g)
	g.RawSet(value.NewString("_VERSION"), value.NewString("Lua 5.4"))

	installBase(h)
	installString(h)
	installTable(h)
	installMath(h)
	installOS(h)
	installIO(h)
	installUTF8(h)
	installCoroutine(h)
	installDebug(h)
	installPackage(h)
	installExtPreloads(h)
}

// installExtPreloads registers the domain-stack extension modules
// (SPEC_FULL.md section B) as package.preload entries, so require
// ("crypto"|"sql"|"socket") resolves them the same way a user's own
// package.preload.foo = function() ... end would (spec.md 4.7 step 3).
// They are not auto-required: a script that never calls require for
// them never pays for dialing a socket or opening a database handle.
func installExtPreloads(h Host) {
	preload := h.ModuleLoader().Preload
	preload.RawSet(value.NewString("crypto"), value.NewGoFunc("crypto", extcrypto.Preload))
	preload.RawSet(value.NewString("sql"), value.NewGoFunc("sql", extsql.Preload))
	preload.RawSet(value.NewString("socket"), value.NewGoFunc("socket", extsocket.Preload))
}

func set(t *value.Table, name string, fn value.GoFunc) {
	t.RawSet(value.NewString(name), value.NewGoFunc(name, fn))
}

func newLib(g *value.Table, name string) *value.Table {
	t := value.NewTable(0, 16)
	g.RawSet(value.NewString(name), t)
	return t
}

func argAt(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Nil{}
}

func one(v value.Value) []value.Value { return []value.Value{v} }
