// Package finalizer tracks objects with a __gc metamethod and invokes
// them in reverse registration order when the interpreter shuts down or
// collectgarbage("collect") is called (spec.md 4.10/9). Go's own garbage
// collector still reclaims the memory; this package only guarantees the
// *ordering and liveness* of __gc calls that Lua programs can observe,
// since Go gives no hook into its collector's timing.
package finalizer

import "lua/internal/value"

// entry pairs a finalizable object with the metamethod captured when it
// was registered, so a later setmetatable(obj, nil) doesn't silently
// drop the pending finalizer (matching real Lua, where __gc is fixed at
// registration time).
type entry struct {
	obj value.Value
	fn  *value.Function
}

// List is the process-wide (per-Interpreter) ordered set of pending
// finalizers.
type List struct {
	entries []entry
	closed  bool
}

func New() *List { return &List{} }

// Register records obj/fn as a pending finalizer. Called by setmetatable
// whenever the installed metatable has a __gc field (spec.md 4.10).
func (l *List) Register(obj value.Value, fn *value.Function) {
	if l.closed {
		return
	}
	l.entries = append(l.entries, entry{obj: obj, fn: fn})
}

// Caller invokes a Value as a function, injected the same way
// internal/meta's Caller is so this package never depends on
// internal/interp.
type Caller func(fn value.Value, args []value.Value) ([]value.Value, error)

// Run invokes every pending finalizer once, in reverse registration
// order (spec.md 9: "finalizers run in reverse-of-creation order at
// program exit"), and discards the list. Errors from individual
// finalizers are collected but do not stop the remaining ones from
// running, matching collectgarbage's "don't let one broken __gc wedge
// shutdown" behavior.
func (l *List) Run(call Caller) []error {
	var errs []error
	for idx := len(l.entries) - 1; idx >= 0; idx-- {
		e := l.entries[idx]
		if _, err := call(e.fn, []value.Value{e.obj}); err != nil {
			errs = append(errs, err)
		}
	}
	l.entries = nil
	return errs
}

// Close runs every pending finalizer and marks the list closed, so
// later Register calls (e.g. a finalizer itself creating a new
// finalizable object) are silently dropped rather than re-queued
// forever.
func (l *List) Close(call Caller) []error {
	errs := l.Run(call)
	l.closed = true
	return errs
}

// Pending reports how many finalizers are queued (collectgarbage("count")
// adjacent introspection, and handy for tests).
func (l *List) Pending() int { return len(l.entries) }
