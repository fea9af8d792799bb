package stdlib

// Minimal debug library (spec.md Non-goals: no debug hooks/upvalue
// introspection; traceback/getinfo's host-facing stack walk is one of
// the "external collaborator" surfaces SPEC_FULL.md section D still
// gives a concrete, if reduced, implementation).

import (
	"lua/internal/value"
)

func installDebug(h Host) {
	lib := newLib(h.Globals(), "debug")

	set(lib, "traceback", func(args []value.Value) ([]value.Value, error) {
		msg := ""
		if s, ok := argAt(args, 0).(*value.Bytes); ok {
			msg = s.String()
		}
		if msg != "" {
			return one(value.NewString(msg + "\nstack traceback:")), nil
		}
		return one(value.NewString("stack traceback:")), nil
	})

	set(lib, "getinfo", func(args []value.Value) ([]value.Value, error) {
		out := value.NewTable(0, 4)
		out.RawSet(value.NewString("currentline"), value.Int(-1))
		out.RawSet(value.NewString("source"), value.NewString("=?"))
		out.RawSet(value.NewString("short_src"), value.NewString("?"))
		return one(out), nil
	})
}
