// Package osext supplies the narrow os-facing policy decisions
// SPEC_FULL.md section B assigns to `google/uuid`: `os.tmpname`'s
// "generate a name without creating the file" contract (spec.md 9's
// open question, resolved here: never create, uuid-suffixed name under
// os.TempDir()).
package osext

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// TmpName returns a path under os.TempDir() that is extremely unlikely
// to collide with an existing file, without creating it — matching
// reference Lua's os.tmpname(), which merely names a candidate file and
// leaves creation to the caller.
func TmpName() string {
	return filepath.Join(os.TempDir(), "lua-"+uuid.NewString())
}
