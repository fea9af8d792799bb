// cmd/lua is the CLI entry point: it hands the interpreter an entry
// chunk's source + name, passes CLI args as the chunk's varargs,
// installs `arg[0..]`, and prints any uncaught error as "lua: <msg>"
// before exiting nonzero (spec.md 6's CLI contract).
//
// Grounded on the teacher's cmd/sentra/main.go command-alias dispatch
// table (`commandAliases map[string]string`, a `switch cmd` over
// run/repl/build/...) — kept as the same alias-table + switch shape,
// trimmed to the commands a tree-walking Lua interpreter actually needs
// (run, repl, version, help); the teacher's build/debug/lint/watch/lsp
// subcommands have no equivalent here since bytecode compilation and a
// debugger are explicit spec.md Non-goals.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"lua/internal/buildinfo"
	"lua/internal/interp"
	"lua/internal/luaerr"
	"lua/internal/value"
)

// commandAliases mirrors the teacher's single-letter alias table.
var commandAliases = map[string]string{
	"r": "run",
	"i": "repl",
	"v": "version",
	"h": "help",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		repl()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		usage()
	case "--version", "-v", "version":
		fmt.Printf("lua %s (%s, %s)\n", buildinfo.Version, buildinfo.GitCommit, buildinfo.BuildDate)
	case "repl":
		repl()
	case "run":
		if len(args) < 2 {
			usage()
			os.Exit(1)
		}
		runFile(args[1], args[2:])
	default:
		// No subcommand recognized: treat args[0] as a script path,
		// matching reference `lua script.lua arg1 arg2`.
		runFile(args[0], args[1:])
	}
}

func usage() {
	fmt.Println(`usage: lua [script] [args...]
       lua run <script> [args...]
       lua repl
       lua version`)
}

func runFile(path string, scriptArgs []string) {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lua: cannot open %s\n", path)
		os.Exit(1)
	}

	i := interp.New(interp.Options{ChunkName: path})
	installArgTable(i, path, scriptArgs)

	varargs := make([]value.Value, len(scriptArgs))
	for idx, a := range scriptArgs {
		varargs[idx] = value.NewString(a)
	}

	_, runErr := i.Run(string(src), path, varargs)
	for _, ferr := range i.CloseFinalizers() {
		_ = ferr
	}
	if runErr != nil {
		reportError(runErr)
		os.Exit(1)
	}
}

// installArgTable publishes the `arg` global (arg[0] is the script
// path, arg[1..] the trailing CLI args, arg[-1] the interpreter's own
// invocation name), matching reference lua.c's contract (spec.md 6).
func installArgTable(i *interp.Interpreter, path string, scriptArgs []string) {
	t := value.NewTable(len(scriptArgs)+1, 2)
	t.RawSet(value.Int(-1), value.NewString(os.Args[0]))
	t.RawSet(value.Int(0), value.NewString(path))
	for idx, a := range scriptArgs {
		t.RawSet(value.Int(int64(idx+1)), value.NewString(a))
	}
	i.Globals().RawSet(value.NewString("arg"), t)
}

func reportError(err error) {
	msg := err.Error()
	fmt.Fprintf(os.Stderr, "lua: %s\n", msg)
	if le, ok := err.(*luaerr.Error); ok {
		fmt.Fprintln(os.Stderr, le.RenderTraceback())
	}
}

// repl is a minimal read-eval-print loop, reading one chunk per line
// (no multi-line continuation) and printing its results the way the
// reference standalone interpreter's interactive mode does for bare
// expressions.
func repl() {
	i := interp.New(interp.Options{ChunkName: "=stdin"})
	installArgTable(i, "stdin", nil)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			fmt.Print("> ")
			continue
		}
		evalLine(i, line)
		fmt.Print("> ")
	}
}

func evalLine(i *interp.Interpreter, line string) {
	results, err := i.Run("return "+line, "=stdin", nil)
	if err != nil {
		results, err = i.Run(line, "=stdin", nil)
	}
	if err != nil {
		reportError(err)
		return
	}
	tostring := i.Globals().RawGet(value.NewString("tostring"))
	for _, r := range results {
		out, cerr := i.Call(tostring, []value.Value{r})
		if cerr != nil || len(out) == 0 {
			fmt.Println(value.RawToString(r))
			continue
		}
		fmt.Println(value.RawToString(out[0]))
	}
}
