package stdlib

// String library (spec.md 4.2/4.6/4.7): the pattern-matching,
// string.pack/unpack/packsize, and string.format surfaces all live in
// internal/strlib already; this file is just the Host-to-Caller seam
// that wires them into a `string` global table and its shared
// metatable (spec.md 4.2: `("x"):upper()` indexes via a string-typed
// metatable, not the table metatable machinery).

import (
	"lua/internal/strlib"
)

func installString(h Host) {
	lib := newLib(h.Globals(), "string")
	strlib.Register(lib, h.Call)
}
