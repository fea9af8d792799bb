package module

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"lua/internal/value"
)

// writeTxtar unpacks a txtar archive (SPEC_FULL.md section A: "txtar
// packs multi-file require/package.path fixtures... into single golden
// files") into dir, one file per archive entry.
func writeTxtar(t *testing.T, dir, archive string) {
	t.Helper()
	for _, f := range txtar.Parse([]byte(archive)).Files {
		full := filepath.Join(dir, f.Name)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, f.Data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newCaller() func(fn value.Value, args []value.Value) ([]value.Value, error) {
	return func(fn value.Value, args []value.Value) ([]value.Value, error) {
		f, ok := fn.(*value.Function)
		if !ok || f.Go == nil {
			return nil, nil
		}
		return f.Go(args)
	}
}

// fakeCompile turns the module's source text into a GoFunc-backed
// Function that just returns that text as its sole result, standing in
// for a real Lua compile+call in these unit tests.
func fakeCompile(source []byte, chunkName string) (*value.Function, error) {
	text := string(source)
	return value.NewGoFunc(chunkName, func(args []value.Value) ([]value.Value, error) {
		return []value.Value{value.NewString(text)}, nil
	}), nil
}

func TestRequireLoadsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greeter.lua")
	if err := os.WriteFile(path, []byte("return 'hello from greeter'"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(newCaller(), fakeCompile)
	l.Path = filepath.Join(dir, "?.lua")

	v, err := l.Require("greeter")
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	s, ok := v.(*value.Bytes)
	if !ok || s.String() != "return 'hello from greeter'" {
		t.Fatalf("Require result = %v", v)
	}

	loaded := l.Loaded.RawGet(value.NewString("greeter"))
	if loaded != v {
		t.Fatalf("package.loaded['greeter'] not populated with the require result")
	}
}

func TestRequireCachesResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "once.lua")
	calls := 0
	compile := func(source []byte, chunkName string) (*value.Function, error) {
		calls++
		return value.NewGoFunc(chunkName, func(args []value.Value) ([]value.Value, error) {
			return []value.Value{value.Int(calls)}, nil
		}), nil
	}
	if err := os.WriteFile(path, []byte("return 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(newCaller(), compile)
	l.Path = filepath.Join(dir, "?.lua")

	first, err := l.Require("once")
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.Require("once")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("second require returned a different value: %v vs %v", first, second)
	}
	if calls != 1 {
		t.Fatalf("compile called %d times, want 1", calls)
	}
}

func TestRequireUsesPreload(t *testing.T) {
	l := New(newCaller(), fakeCompile)
	l.Preload.RawSet(value.NewString("builtin"), value.NewGoFunc("builtin-loader", func(args []value.Value) ([]value.Value, error) {
		return []value.Value{value.NewString("from preload")}, nil
	}))

	v, err := l.Require("builtin")
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	s, ok := v.(*value.Bytes)
	if !ok || s.String() != "from preload" {
		t.Fatalf("Require result = %v, want 'from preload'", v)
	}
}

func TestRequireMissingModuleReportsEachSearcher(t *testing.T) {
	l := New(newCaller(), fakeCompile)
	l.Path = "/no/such/dir/?.lua"

	_, err := l.Require("nope")
	if err == nil {
		t.Fatal("expected an error for a missing module")
	}
	for _, want := range []string{"no field package.preload['nope']", "no file '/no/such/dir/nope.lua'"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not report %q", err.Error(), want)
		}
	}
}

func TestRequireDetectsLoop(t *testing.T) {
	l := New(newCaller(), fakeCompile)
	l.Loaded.RawSet(value.NewString("cyclic"), value.Bool(false))

	_, err := l.Require("cyclic")
	if err == nil {
		t.Fatal("expected a loop-detection error when package.loaded holds the false sentinel")
	}
}

func TestSearchPathSubstitutesAndReportsMisses(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.lua"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "?.lua") + ";" + filepath.Join(dir, "?/init.lua")
	got, err := SearchPath("a", path, ".", "/")
	if err != nil {
		t.Fatalf("SearchPath: %v", err)
	}
	if got != filepath.Join(dir, "a.lua") {
		t.Fatalf("SearchPath = %q", got)
	}

	if _, err := SearchPath("missing", path, ".", "/"); err == nil {
		t.Fatal("expected an error listing every candidate tried")
	}
}

// TestRequireResolvesNestedModuleFromTxtarFixture packs a main chunk
// plus the submodule it transitively requires into one golden-file
// fixture and checks both get resolved through package.path.
func TestRequireResolvesNestedModuleFromTxtarFixture(t *testing.T) {
	dir := t.TempDir()
	writeTxtar(t, dir, `
-- main.lua --
return require("greeter")
-- greeter.lua --
return require("util") .. " from greeter"
-- util.lua --
return "util loaded"
`)

	l := New(newCaller(), fakeCompile)
	l.Path = filepath.Join(dir, "?.lua")

	util, err := l.Require("util")
	if err != nil {
		t.Fatalf("Require(util): %v", err)
	}
	if s, ok := util.(*value.Bytes); !ok || s.String() != "return \"util loaded\"\n" {
		t.Fatalf("Require(util) = %v", util)
	}

	greeter, err := l.Require("greeter")
	if err != nil {
		t.Fatalf("Require(greeter): %v", err)
	}
	if _, ok := greeter.(*value.Bytes); !ok {
		t.Fatalf("Require(greeter) = %v, want *value.Bytes", greeter)
	}
}

func TestSearchPathAppliesSeparatorSubstitution(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "pkg")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "mod.lua"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "?.lua")
	got, err := SearchPath("pkg.mod", path, ".", string(filepath.Separator))
	if err != nil {
		t.Fatalf("SearchPath: %v", err)
	}
	if got != filepath.Join(sub, "mod.lua") {
		t.Fatalf("SearchPath = %q, want %q", got, filepath.Join(sub, "mod.lua"))
	}
}
