package stdlib

// IO library (spec.md 4.9's host-file surface; explicitly bounded to
// the concrete-file façade spec.md 1 does not scope out, since spec.md
// 1 only excludes "concrete I/O bindings" at the socket/network layer,
// not plain file handles). Files are *value.Userdata wrapping an *os.File,
// matching the teacher's façade idiom of wrapping a Go handle behind a
// Value rather than inventing a bespoke File value arm.

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"lua/internal/ext/ioext"
	"lua/internal/luaerr"
	"lua/internal/value"
)

type luaFile struct {
	f      *os.File
	reader *bufio.Reader
	closed bool
	vbuf   ioext.Mode
}

func installIO(h Host) {
	lib := newLib(h.Globals(), "io")
	fileMeta := value.NewTable(0, 8)
	fileMeta.RawSet(value.NewString("__index"), fileMeta)
	fileMeta.RawSet(value.NewString("__name"), value.NewString("FILE*"))

	wrap := func(f *os.File) *value.Userdata {
		ud := value.NewUserdata(&luaFile{f: f, reader: bufio.NewReader(f), vbuf: ioext.DefaultMode(f)})
		ud.SetMetatable(fileMeta)
		return ud
	}

	stdoutHandle := wrap(os.Stdout)
	stderrHandle := wrap(os.Stderr)
	stdinHandle := wrap(os.Stdin)
	lib.RawSet(value.NewString("stdout"), stdoutHandle)
	lib.RawSet(value.NewString("stderr"), stderrHandle)
	lib.RawSet(value.NewString("stdin"), stdinHandle)

	var defaultOutput value.Value = stdoutHandle
	var defaultInput value.Value = stdinHandle

	asFile := func(v value.Value) (*luaFile, error) {
		ud, ok := v.(*value.Userdata)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument (FILE* expected)")
		}
		lf, ok := ud.Data.(*luaFile)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument (FILE* expected)")
		}
		if lf.closed {
			return nil, luaerr.New(luaerr.IOError, "attempt to use a closed file")
		}
		return lf, nil
	}

	set(fileMeta, "write", func(args []value.Value) ([]value.Value, error) {
		lf, err := asFile(argAt(args, 0))
		if err != nil {
			return nil, err
		}
		for _, a := range args[1:] {
			s, ok := concatOperand(a)
			if !ok {
				return nil, luaerr.New(luaerr.TypeError, "bad argument to 'write' (string expected)")
			}
			if _, werr := lf.f.WriteString(s); werr != nil {
				return []value.Value{value.Nil{}, value.NewString(werr.Error())}, nil
			}
		}
		return one(args[0]), nil
	})

	set(fileMeta, "read", func(args []value.Value) ([]value.Value, error) {
		lf, err := asFile(argAt(args, 0))
		if err != nil {
			return nil, err
		}
		formats := args[1:]
		if len(formats) == 0 {
			formats = []value.Value{value.NewString("l")}
		}
		out := make([]value.Value, 0, len(formats))
		for _, fspec := range formats {
			v, rerr := readOne(lf, fspec)
			if rerr != nil {
				out = append(out, value.Nil{})
				break
			}
			out = append(out, v)
		}
		return out, nil
	})

	set(fileMeta, "lines", func(args []value.Value) ([]value.Value, error) {
		lf, err := asFile(argAt(args, 0))
		if err != nil {
			return nil, err
		}
		iter := value.NewGoFunc("file:lines.iterator", func([]value.Value) ([]value.Value, error) {
			line, rerr := lf.reader.ReadString('\n')
			if rerr != nil && line == "" {
				return one(value.Nil{}), nil
			}
			return one(value.NewString(trimNewline(line))), nil
		})
		return one(iter), nil
	})

	set(fileMeta, "close", func(args []value.Value) ([]value.Value, error) {
		lf, err := asFile(argAt(args, 0))
		if err != nil {
			return nil, err
		}
		lf.closed = true
		if lf.f == os.Stdout || lf.f == os.Stderr || lf.f == os.Stdin {
			return one(value.Bool(true)), nil
		}
		if cerr := lf.f.Close(); cerr != nil {
			return []value.Value{value.Nil{}, value.NewString(cerr.Error())}, nil
		}
		return one(value.Bool(true)), nil
	})

	set(fileMeta, "flush", func(args []value.Value) ([]value.Value, error) {
		lf, err := asFile(argAt(args, 0))
		if err != nil {
			return nil, err
		}
		_ = lf.f.Sync()
		return one(args[0]), nil
	})

	set(fileMeta, "seek", func(args []value.Value) ([]value.Value, error) {
		lf, err := asFile(argAt(args, 0))
		if err != nil {
			return nil, err
		}
		whence := "cur"
		if s, ok := argAt(args, 1).(*value.Bytes); ok {
			whence = s.String()
		}
		offset := int64(0)
		if len(args) > 2 {
			offset, _ = value.ToInteger(args[2])
		}
		var w int
		switch whence {
		case "set":
			w = io.SeekStart
		case "end":
			w = io.SeekEnd
		default:
			w = io.SeekCurrent
		}
		pos, serr := lf.f.Seek(offset, w)
		if serr != nil {
			return []value.Value{value.Nil{}, value.NewString(serr.Error())}, nil
		}
		lf.reader = bufio.NewReader(lf.f)
		return one(value.Int(pos)), nil
	})

	set(fileMeta, "setvbuf", func(args []value.Value) ([]value.Value, error) {
		lf, err := asFile(argAt(args, 0))
		if err != nil {
			return nil, err
		}
		if s, ok := argAt(args, 1).(*value.Bytes); ok {
			switch s.String() {
			case "no":
				lf.vbuf = ioext.NoBuf
			case "line":
				lf.vbuf = ioext.LineBuf
			case "full":
				lf.vbuf = ioext.FullBuf
			}
		}
		return one(args[0]), nil
	})

	set(lib, "open", func(args []value.Value) ([]value.Value, error) {
		name, ok := argAt(args, 0).(*value.Bytes)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'open' (string expected)")
		}
		mode := "r"
		if s, ok := argAt(args, 1).(*value.Bytes); ok {
			mode = s.String()
		}
		flag, err := openFlags(mode)
		if err != nil {
			return []value.Value{value.Nil{}, value.NewString(err.Error())}, nil
		}
		f, oerr := os.OpenFile(name.String(), flag, 0644)
		if oerr != nil {
			return []value.Value{value.Nil{}, value.NewString(oerr.Error())}, nil
		}
		return one(wrap(f)), nil
	})

	set(lib, "close", func(args []value.Value) ([]value.Value, error) {
		target := defaultOutput
		if len(args) > 0 {
			target = args[0]
		}
		lf, err := asFile(target)
		if err != nil {
			return nil, err
		}
		lf.closed = true
		return one(value.Bool(true)), nil
	})

	set(lib, "write", func(args []value.Value) ([]value.Value, error) {
		fn, _ := fileMeta.RawGet(value.NewString("write")).(*value.Function)
		return fn.Go(append([]value.Value{defaultOutput}, args...))
	})

	set(lib, "read", func(args []value.Value) ([]value.Value, error) {
		fn, _ := fileMeta.RawGet(value.NewString("read")).(*value.Function)
		return fn.Go(append([]value.Value{defaultInput}, args...))
	})

	set(lib, "lines", func(args []value.Value) ([]value.Value, error) {
		target := defaultInput
		if len(args) > 0 {
			if name, ok := args[0].(*value.Bytes); ok {
				f, oerr := os.Open(name.String())
				if oerr != nil {
					return nil, luaerr.New(luaerr.IOError, oerr.Error()).WithCause(oerr)
				}
				target = wrap(f)
			}
		}
		fn, _ := fileMeta.RawGet(value.NewString("lines")).(*value.Function)
		return fn.Go([]value.Value{target})
	})

	set(lib, "input", func(args []value.Value) ([]value.Value, error) {
		if len(args) > 0 {
			if name, ok := args[0].(*value.Bytes); ok {
				f, oerr := os.Open(name.String())
				if oerr != nil {
					return nil, luaerr.New(luaerr.IOError, oerr.Error()).WithCause(oerr)
				}
				defaultInput = wrap(f)
			} else {
				defaultInput = args[0]
			}
		}
		return one(defaultInput), nil
	})

	set(lib, "output", func(args []value.Value) ([]value.Value, error) {
		if len(args) > 0 {
			if name, ok := args[0].(*value.Bytes); ok {
				f, oerr := os.OpenFile(name.String(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
				if oerr != nil {
					return nil, luaerr.New(luaerr.IOError, oerr.Error()).WithCause(oerr)
				}
				defaultOutput = wrap(f)
			} else {
				defaultOutput = args[0]
			}
		}
		return one(defaultOutput), nil
	})

	set(lib, "type", func(args []value.Value) ([]value.Value, error) {
		ud, ok := argAt(args, 0).(*value.Userdata)
		if !ok {
			return one(value.Nil{}), nil
		}
		lf, ok := ud.Data.(*luaFile)
		if !ok {
			return one(value.Nil{}), nil
		}
		if lf.closed {
			return one(value.NewString("closed file")), nil
		}
		return one(value.NewString("file")), nil
	})
}

func openFlags(mode string) (int, error) {
	switch mode {
	case "r", "rb":
		return os.O_RDONLY, nil
	case "w", "wb":
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case "a", "ab":
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case "r+", "rb+":
		return os.O_RDWR, nil
	case "w+", "wb+":
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
	case "a+", "ab+":
		return os.O_RDWR | os.O_CREATE | os.O_APPEND, nil
	default:
		return 0, fmt.Errorf("invalid mode '%s'", mode)
	}
}

func readOne(lf *luaFile, fspec value.Value) (value.Value, error) {
	spec := "l"
	if s, ok := fspec.(*value.Bytes); ok {
		spec = s.String()
	}
	if n, ok := value.ToInteger(fspec); ok {
		buf := make([]byte, n)
		rn, err := io.ReadFull(lf.reader, buf)
		if rn == 0 && err != nil {
			return nil, err
		}
		return value.NewString(string(buf[:rn])), nil
	}
	switch spec {
	case "l", "*l", "L", "*L":
		line, err := lf.reader.ReadString('\n')
		if err != nil && line == "" {
			return nil, err
		}
		if spec == "l" || spec == "*l" {
			line = trimNewline(line)
		}
		return value.NewString(line), nil
	case "a", "*a":
		rest, _ := io.ReadAll(lf.reader)
		return value.NewString(string(rest)), nil
	case "n", "*n":
		var f float64
		_, err := fmt.Fscan(lf.reader, &f)
		if err != nil {
			return nil, err
		}
		return value.Float(f), nil
	default:
		return nil, fmt.Errorf("invalid format '%s'", spec)
	}
}

func trimNewline(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '\r' {
		s = s[:len(s)-1]
	}
	return s
}
