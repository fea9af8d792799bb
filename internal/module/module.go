// Package module implements the require/package pipeline (spec.md 4.7):
// package.loaded/package.preload/package.searchers, the default
// Lua-file searcher consulting package.path, and package.searchpath's
// `?` template substitution.
//
// Grounded on the teacher's two module-loader implementations
// (sentra/internal/vm/module_loader.go's ModuleLoader — cache map,
// loading map for circular-dependency detection, mutex-guarded search
// paths, resolvePath's directory search — and this package's own
// original findModule/loadAndCompile pair): the cache/loading-sentinel
// shape is kept, generalized from a single hardcoded directory search
// into Lua's ordered, user-extensible package.searchers pipeline and
// `?` path-template substitution.
package module

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"lua/internal/luaerr"
	"lua/internal/meta"
	"lua/internal/value"
)

const defaultPath = "./?.lua;./?/init.lua"

// CompileFunc parses and compiles Lua source into a callable chunk,
// injected so this package never needs to import internal/interp (the
// same Caller-injection discipline internal/meta uses).
type CompileFunc func(source []byte, chunkName string) (*value.Function, error)

// Loader drives require(name) and owns the `package` table's loaded/
// preload/searchers/path fields.
type Loader struct {
	mu sync.Mutex

	Loaded  *value.Table
	Preload *value.Table
	// Searchers is package.searchers: an array-part Lua table of
	// callables consulted in order (spec.md 4.7 step 4), so user code
	// can prepend/append its own ahead of or behind the defaults.
	Searchers *value.Table
	Path      string

	call    meta.Caller
	compile CompileFunc
	group   singleflight.Group
}

// New builds a Loader with the two default searchers installed
// (preload lookup, then the Lua-file searcher over Path) and Path
// seeded from LUA_PATH or spec.md 4.7's hardcoded default.
func New(call meta.Caller, compile CompileFunc) *Loader {
	l := &Loader{
		Loaded:    value.NewTable(0, 8),
		Preload:   value.NewTable(0, 8),
		Searchers: value.NewTable(4, 0),
		Path:      envOr("LUA_PATH", defaultPath),
		call:      call,
		compile:   compile,
	}
	l.Searchers.RawSet(value.Int(1), value.NewGoFunc("package.searchers[1]", l.preloadSearcher))
	l.Searchers.RawSet(value.Int(2), value.NewGoFunc("package.searchers[2]", l.fileSearcher))
	return l
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// Require implements spec.md 4.7's require(name) algorithm.
func (l *Loader) Require(name string) (value.Value, error) {
	l.mu.Lock()
	if existing := l.Loaded.RawGet(value.NewString(name)); !value.IsNil(existing) {
		if b, ok := existing.(value.Bool); ok && !bool(b) {
			l.mu.Unlock()
			return nil, luaerr.Newf(luaerr.ModuleError, "loop or previous error loading module '%s'", name)
		}
		l.mu.Unlock()
		return existing, nil
	}
	l.Loaded.RawSet(value.NewString(name), value.Bool(false))
	l.mu.Unlock()

	result, err, _ := l.group.Do(name, func() (any, error) {
		return l.search(name)
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.Loaded.RawSet(value.NewString(name), value.Nil{})
		return nil, err
	}
	v := result.(value.Value)
	l.Loaded.RawSet(value.NewString(name), v)
	return v, nil
}

// search runs spec.md 4.7 step 4: try each package.searchers entry in
// order, accumulating failure messages, until one returns a loader.
func (l *Loader) search(name string) (value.Value, error) {
	var failures []string
	n := l.Searchers.Len()
	for i := 1; i <= n; i++ {
		searcher, ok := l.Searchers.RawGet(value.Int(int64(i))).(*value.Function)
		if !ok {
			continue
		}
		res, err := l.call(searcher, []value.Value{value.NewString(name)})
		if err != nil {
			return nil, err
		}
		if len(res) == 0 || value.IsNil(res[0]) {
			if len(res) > 1 {
				if msg, ok := res[1].(*value.Bytes); ok {
					failures = append(failures, msg.String())
				}
			}
			continue
		}
		loader, ok := res[0].(*value.Function)
		if !ok {
			continue
		}
		var extra value.Value = value.Nil{}
		if len(res) > 1 {
			extra = res[1]
		}
		out, err := l.call(loader, []value.Value{value.NewString(name), extra})
		if err != nil {
			return nil, err
		}
		if len(out) == 0 || value.IsNil(out[0]) {
			return value.Bool(true), nil
		}
		return out[0], nil
	}
	msg := fmt.Sprintf("module '%s' not found:", name)
	for _, f := range failures {
		msg += "\n\t" + f
	}
	return nil, luaerr.New(luaerr.ModuleError, msg)
}

func (l *Loader) preloadSearcher(args []value.Value) ([]value.Value, error) {
	name, ok := argName(args)
	if !ok {
		return []value.Value{value.Nil{}}, nil
	}
	fn := l.Preload.RawGet(value.NewString(name))
	if value.IsNil(fn) {
		return []value.Value{value.Nil{}, value.NewString(fmt.Sprintf("no field package.preload['%s']", name))}, nil
	}
	return []value.Value{fn}, nil
}

func (l *Loader) fileSearcher(args []value.Value) ([]value.Value, error) {
	name, ok := argName(args)
	if !ok {
		return []value.Value{value.Nil{}}, nil
	}
	path, perr := SearchPath(name, l.Path, ".", "/")
	if perr != nil {
		return []value.Value{value.Nil{}, value.NewString(perr.Error())}, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, luaerr.New(luaerr.IOError, err.Error()).WithCause(err)
	}
	fn, cerr := l.compile(src, path)
	if cerr != nil {
		return nil, cerr
	}
	return []value.Value{fn, value.NewString(path)}, nil
}

func argName(args []value.Value) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	b, ok := args[0].(*value.Bytes)
	if !ok {
		return "", false
	}
	return b.String(), true
}

// SearchPath implements package.searchpath (spec.md 4.7): substitute
// name into each `?` in path's `;`-separated templates (with sep→rep
// replacement applied to name first, `.`→`/` by default) and return the
// first template whose file exists, or an error listing every path
// tried.
func SearchPath(name, path, sep, rep string) (string, error) {
	if sep != "" {
		name = strings.ReplaceAll(name, sep, rep)
	}
	var tried []string
	for _, tmpl := range strings.Split(path, ";") {
		candidate := strings.ReplaceAll(tmpl, "?", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		tried = append(tried, "no file '"+candidate+"'")
	}
	return "", fmt.Errorf("%s", strings.Join(tried, "\n\t"))
}
