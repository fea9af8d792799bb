package stdlib

// Package library: installs the `package` table (spec.md 4.7) backing
// require/package.loaded/package.preload/package.searchers/package.path,
// plus package.searchpath and package.cpath.
//
// Grounded on the teacher's internal/vm/module_loader.go ModuleLoader
// exposing its cache/searchPaths fields to native builtins
// (`sentra_require`, `sentra_module_path`); here the module.Loader's
// fields are published as the actual Lua-visible `package` table instead
// of via separate native functions, since spec.md 4.7 makes `package`
// itself an ordinary table user code can extend (push a custom
// searcher, override package.path, ...).
import (
	"strings"

	"golang.org/x/mod/semver"

	"lua/internal/luaerr"
	"lua/internal/module"
	"lua/internal/value"
)

func installPackage(h Host) {
	loader := h.ModuleLoader()
	pkg := newLib(h.Globals(), "package")

	pkg.RawSet(value.NewString("loaded"), loader.Loaded)
	pkg.RawSet(value.NewString("preload"), loader.Preload)
	pkg.RawSet(value.NewString("searchers"), loader.Searchers)
	pkg.RawSet(value.NewString("path"), value.NewString(loader.Path))
	pkg.RawSet(value.NewString("cpath"), value.NewString(""))
	pkg.RawSet(value.NewString("config"), value.NewString(
		"/\n;\n?\n!\n-\n"))

	set(pkg, "searchpath", func(args []value.Value) ([]value.Value, error) {
		name, ok := argAt(args, 0).(*value.Bytes)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'searchpath' (string expected)")
		}
		path, ok := argAt(args, 1).(*value.Bytes)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #2 to 'searchpath' (string expected)")
		}
		sep := "."
		if s, ok := argAt(args, 2).(*value.Bytes); ok {
			sep = s.String()
		}
		rep := "/"
		if s, ok := argAt(args, 3).(*value.Bytes); ok {
			rep = s.String()
		}
		found, err := module.SearchPath(name.String(), path.String(), sep, rep)
		if err != nil {
			return []value.Value{value.Nil{}, value.NewString(err.Error())}, nil
		}
		return one(value.NewString(found)), nil
	})

	// requireVersioned implements SPEC_FULL.md section B's optional
	// `require("name@^1.2")` version constraint: a module may export
	// `_VERSION` and the constraint is checked with semver.Compare once
	// the module is loaded. Not part of reference Lua; wired because the
	// module loader already exposes everything needed and nothing else
	// in the dependency pack exercises golang.org/x/mod.
	set(pkg, "requireVersioned", func(args []value.Value) ([]value.Value, error) {
		spec, ok := argAt(args, 0).(*value.Bytes)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'requireVersioned' (string expected)")
		}
		name, constraint, hasConstraint := strings.Cut(spec.String(), "@")
		mod, err := loader.Require(name)
		if err != nil {
			return nil, err
		}
		if !hasConstraint {
			return one(mod), nil
		}
		t, ok := mod.(*value.Table)
		if !ok {
			return one(mod), nil
		}
		verVal := t.RawGet(value.NewString("_VERSION"))
		verStr, ok := verVal.(*value.Bytes)
		if !ok {
			return nil, luaerr.Newf(luaerr.ModuleError, "module '%s' has no _VERSION to check against '%s'", name, constraint)
		}
		have := normalizeSemver(verStr.String())
		want := normalizeSemver(constraint)
		if !semver.IsValid(have) || !semver.IsValid(want) {
			return nil, luaerr.Newf(luaerr.ModuleError, "module '%s': cannot compare version '%s' with constraint '%s'", name, verStr.String(), constraint)
		}
		if semver.Compare(have, want) < 0 {
			return nil, luaerr.Newf(luaerr.ModuleError, "module '%s' version %s does not satisfy >= %s", name, verStr.String(), constraint)
		}
		return one(mod), nil
	})
}

func normalizeSemver(s string) string {
	s = strings.TrimPrefix(s, "^")
	s = strings.TrimPrefix(s, "~")
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	return s
}
