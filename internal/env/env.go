// Package env implements the lexical environment / closure model:
// parent-linked name->Value bindings, upvalue capture, and the _G/_ENV
// wiring spec.md 3/4.4 describe.
//
// Grounded on the teacher's ScopeFrame
// (sentra/internal/vm/vm.go: `locals map[string]Value; parent
// *ScopeFrame`), generalized with the _ENV upvalue Lua's name
// resolution needs (the teacher's language has no equivalent of a
// swappable global environment).
package env

import "lua/internal/value"

// Env is one lexical scope. The root scope (no parent) is backed
// directly by a *value.Table, so that table literally IS `_G`/`_ENV`
// (spec.md 9's open question — "does pairs(_G) iterate the real globals
// or an empty proxy table" — is resolved here: _G is never a proxy, it
// is the root scope's actual storage, so pairs(_G) sees every global).
// Nested scopes (blocks, function bodies) use a plain binding map.
type Env struct {
	vars   map[string]*value.Value
	global *value.Table
	parent *Env
}

// NewGlobal creates the root environment, backed by table g (the
// caller typically passes a fresh *value.Table and also publishes it to
// user code as `_G`).
func NewGlobal(g *value.Table) *Env {
	return &Env{global: g}
}

// Child creates a nested scope whose lookups fall through to parent.
func Child(parent *Env) *Env {
	return &Env{vars: make(map[string]*value.Value), parent: parent}
}

// GlobalTable returns the root scope's backing table (`_G`).
func (e *Env) GlobalTable() *value.Table {
	return e.Root().global
}

// Declare creates a new local binding in this scope (shadowing any
// binding of the same name in a parent scope, per normal lexical
// scoping), initialized to v. Declaring in the root scope sets a global.
func (e *Env) Declare(name string, v value.Value) {
	if e.global != nil {
		_ = e.global.RawSet(value.NewString(name), v)
		return
	}
	vv := v
	e.vars[name] = &vv
}

// cell walks non-global parents looking for name's binding cell so a
// closure's captured upvalue and the defining scope's local are always
// the same cell (spec.md 3: "upvalue capture"). Returns nil once the
// walk reaches the global (table-backed) scope; callers fall back to
// GlobalTable() lookups there.
func (e *Env) cell(name string) *value.Value {
	for s := e; s != nil && s.global == nil; s = s.parent {
		if cell, ok := s.vars[name]; ok {
			return cell
		}
	}
	return nil
}

// Get returns name's value, walking parents, or the global's value
// (Nil{} if absent there too) — spec.md 3: "get: walk parents, return
// Nil if absent".
func (e *Env) Get(name string) value.Value {
	if cell := e.cell(name); cell != nil {
		return *cell
	}
	return e.GlobalTable().RawGet(value.NewString(name))
}

// Set assigns name at its existing binding site, walking parents
// (spec.md 3: "set: walk parents, assign at binding site"). If name is
// unbound in any local scope, Set creates/updates it as a global,
// matching Lua's "assigning an undeclared name creates a global".
func (e *Env) Set(name string, v value.Value) {
	if cell := e.cell(name); cell != nil {
		*cell = v
		return
	}
	_ = e.GlobalTable().RawSet(value.NewString(name), v)
}

// Has reports whether name is bound as a local anywhere in the chain
// (does not consult globals — used by the parser/resolver façade to
// decide local-vs-global access, not needed by the bundled parser's
// simple always-dynamic lookup but kept for a smarter resolver).
func (e *Env) Has(name string) bool {
	return e.cell(name) != nil
}

// Root walks to the outermost (global, table-backed) environment.
func (e *Env) Root() *Env {
	r := e
	for r.parent != nil {
		r = r.parent
	}
	return r
}
