package stdlib

// Base library (spec.md 4.3/4.4): print/type/tostring/tonumber, the
// pairs/ipairs/next iteration trio, the raw* family, meta{get,set}table,
// assert/error/pcall/xpcall, select, and load/require wiring.
//
// Grounded on the teacher's builtin dispatch for the same surface
// (sentra/internal/vm/vm.go's print/type/assert natives), generalized
// to Lua's multi-return and metamethod-aware semantics.

import (
	"fmt"
	"os"
	"strings"

	"lua/internal/luaerr"
	"lua/internal/meta"
	"lua/internal/value"
)

func installBase(h Host) {
	g := h.Globals()

	set(g, "print", func(args []value.Value) ([]value.Value, error) {
		parts := make([]string, len(args))
		for idx, a := range args {
			s, err := meta.ToString(h.Call, a)
			if err != nil {
				return nil, err
			}
			parts[idx] = s
		}
		fmt.Println(strings.Join(parts, "\t"))
		return nil, nil
	})

	set(g, "type", func(args []value.Value) ([]value.Value, error) {
		return one(value.NewString(value.TypeName(argAt(args, 0)))), nil
	})

	set(g, "tostring", func(args []value.Value) ([]value.Value, error) {
		s, err := meta.ToString(h.Call, argAt(args, 0))
		if err != nil {
			return nil, err
		}
		return one(value.NewString(s)), nil
	})

	set(g, "tonumber", builtinTonumber)

	set(g, "rawget", func(args []value.Value) ([]value.Value, error) {
		t, ok := argAt(args, 0).(*value.Table)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'rawget' (table expected)")
		}
		return one(t.RawGet(argAt(args, 1))), nil
	})
	set(g, "rawset", func(args []value.Value) ([]value.Value, error) {
		t, ok := argAt(args, 0).(*value.Table)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'rawset' (table expected)")
		}
		if err := t.RawSet(argAt(args, 1), argAt(args, 2)); err != nil {
			return nil, luaerr.New(luaerr.TypeError, err.Error())
		}
		return one(t), nil
	})
	set(g, "rawequal", func(args []value.Value) ([]value.Value, error) {
		return one(value.Bool(value.RawEqual(argAt(args, 0), argAt(args, 1)))), nil
	})
	set(g, "rawlen", func(args []value.Value) ([]value.Value, error) {
		switch x := argAt(args, 0).(type) {
		case *value.Table:
			return one(value.Int(x.Len())), nil
		case *value.Bytes:
			return one(value.Int(x.Len())), nil
		default:
			return nil, luaerr.New(luaerr.TypeError, "table or string expected")
		}
	})

	set(g, "next", func(args []value.Value) ([]value.Value, error) {
		t, ok := argAt(args, 0).(*value.Table)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'next' (table expected)")
		}
		k, v, ok := t.Next(argAt(args, 1))
		if !ok {
			return one(value.Nil{}), nil
		}
		return []value.Value{k, v}, nil
	})

	set(g, "pairs", func(args []value.Value) ([]value.Value, error) {
		t := argAt(args, 0)
		if fn, ok := meta.Pairs(t); ok {
			return h.Call(fn, []value.Value{t})
		}
		nextFn := g.RawGet(value.NewString("next"))
		return []value.Value{nextFn, t, value.Nil{}}, nil
	})

	set(g, "ipairs", func(args []value.Value) ([]value.Value, error) {
		t := argAt(args, 0)
		iter := value.NewGoFunc("ipairs.iterator", func(iargs []value.Value) ([]value.Value, error) {
			tbl := iargs[0]
			i, _ := value.ToInteger(iargs[1])
			i++
			v, err := meta.Index(h.Call, tbl, value.Int(i))
			if err != nil {
				return nil, err
			}
			if value.IsNil(v) {
				return one(value.Nil{}), nil
			}
			return []value.Value{value.Int(i), v}, nil
		})
		return []value.Value{iter, t, value.Int(0)}, nil
	})

	set(g, "setmetatable", func(args []value.Value) ([]value.Value, error) {
		t, ok := argAt(args, 0).(*value.Table)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'setmetatable' (table expected)")
		}
		if protected, ok := meta.ProtectedMetatable(t.Metatable()); ok {
			_ = protected
			return nil, luaerr.New(luaerr.TypeError, "cannot change a protected metatable")
		}
		mtArg := argAt(args, 1)
		if value.IsNil(mtArg) {
			t.SetMetatable(nil)
			return one(t), nil
		}
		mt, ok := mtArg.(*value.Table)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #2 to 'setmetatable' (nil or table expected)")
		}
		t.SetMetatable(mt)
		if gcFn, ok := meta.GC(t); ok {
			h.RegisterGC(t, gcFn)
		}
		return one(t), nil
	})

	set(g, "getmetatable", func(args []value.Value) ([]value.Value, error) {
		mt := meta.Metatable(argAt(args, 0))
		if mt == nil {
			return one(value.Nil{}), nil
		}
		if protected, ok := meta.ProtectedMetatable(mt); ok {
			return one(protected), nil
		}
		return one(mt), nil
	})

	set(g, "assert", func(args []value.Value) ([]value.Value, error) {
		if len(args) == 0 || !value.IsTruthy(args[0]) {
			if len(args) > 1 {
				return nil, luaerr.FromValue(args[1])
			}
			return nil, luaerr.New(luaerr.UserError, "assertion failed!")
		}
		return args, nil
	})

	set(g, "error", func(args []value.Value) ([]value.Value, error) {
		v := argAt(args, 0)
		level := int64(1)
		if len(args) > 1 {
			if lv, ok := value.ToInteger(args[1]); ok {
				level = lv
			}
		}
		err := luaerr.FromValue(v)
		if level == 0 {
			return nil, err
		}
		return nil, err
	})

	set(g, "pcall", func(args []value.Value) ([]value.Value, error) {
		if len(args) == 0 {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'pcall' (value expected)")
		}
		res, err := h.CallProtected(args[0], args[1:])
		if err != nil {
			return []value.Value{value.Bool(false), luaerr.AsValue(err)}, nil
		}
		return append([]value.Value{value.Bool(true)}, res...), nil
	})

	set(g, "xpcall", func(args []value.Value) ([]value.Value, error) {
		if len(args) < 2 {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #2 to 'xpcall' (value expected)")
		}
		handler := args[1]
		res, err := h.CallProtected(args[0], args[2:])
		if err != nil {
			hres, herr := h.Call(handler, []value.Value{luaerr.AsValue(err)})
			if herr != nil {
				return []value.Value{value.Bool(false), luaerr.AsValue(herr)}, nil
			}
			return append([]value.Value{value.Bool(false)}, hres...), nil
		}
		return append([]value.Value{value.Bool(true)}, res...), nil
	})

	set(g, "select", func(args []value.Value) ([]value.Value, error) {
		if len(args) == 0 {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'select' (number expected)")
		}
		if s, ok := args[0].(*value.Bytes); ok && s.String() == "#" {
			return one(value.Int(int64(len(args) - 1))), nil
		}
		n, ok := value.ToInteger(args[0])
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'select' (number expected)")
		}
		rest := args[1:]
		if n < 0 {
			n = int64(len(rest)) + n + 1
		}
		if n < 1 {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'select' (index out of range)")
		}
		if int(n) > len(rest) {
			return nil, nil
		}
		return rest[n-1:], nil
	})

	set(g, "load", func(args []value.Value) ([]value.Value, error) {
		return builtinLoad(h, args)
	})
	set(g, "loadstring", func(args []value.Value) ([]value.Value, error) {
		return builtinLoad(h, args)
	})
	set(g, "dofile", func(args []value.Value) ([]value.Value, error) {
		path, _ := argAt(args, 0).(*value.Bytes)
		if path == nil {
			return nil, luaerr.New(luaerr.IOError, "dofile from stdin is not supported")
		}
		src, err := os.ReadFile(path.String())
		if err != nil {
			return nil, luaerr.New(luaerr.IOError, err.Error()).WithCause(err)
		}
		fn, cerr := h.LoadChunk(string(src), path.String())
		if cerr != nil {
			return nil, cerr
		}
		return h.Call(fn, nil)
	})
	set(g, "loadfile", func(args []value.Value) ([]value.Value, error) {
		path, _ := argAt(args, 0).(*value.Bytes)
		if path == nil {
			return []value.Value{value.Nil{}, value.NewString("loadfile from stdin is not supported")}, nil
		}
		src, err := os.ReadFile(path.String())
		if err != nil {
			return []value.Value{value.Nil{}, value.NewString(err.Error())}, nil
		}
		fn, cerr := h.LoadChunk(string(src), path.String())
		if cerr != nil {
			return []value.Value{value.Nil{}, value.NewString(cerr.Error())}, nil
		}
		return one(fn), nil
	})

	set(g, "require", func(args []value.Value) ([]value.Value, error) {
		name, ok := argAt(args, 0).(*value.Bytes)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'require' (string expected)")
		}
		v, err := h.ModuleLoader().Require(name.String())
		if err != nil {
			return nil, err
		}
		return one(v), nil
	})

	set(g, "collectgarbage", func(args []value.Value) ([]value.Value, error) {
		opt := "collect"
		if s, ok := argAt(args, 0).(*value.Bytes); ok {
			opt = s.String()
		}
		switch opt {
		case "count":
			return one(value.Float(0)), nil
		case "collect", "step", "":
			for _, err := range h.CloseFinalizers() {
				_ = err
			}
			return one(value.Int(0)), nil
		default:
			return one(value.Int(0)), nil
		}
	})
}

func builtinTonumber(args []value.Value) ([]value.Value, error) {
	if len(args) >= 2 {
		s, ok := argAt(args, 0).(*value.Bytes)
		if !ok {
			return one(value.Nil{}), nil
		}
		base, ok := value.ToInteger(args[1])
		if !ok || base < 2 || base > 36 {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #2 to 'tonumber' (base out of range)")
		}
		text := strings.TrimSpace(s.String())
		neg := false
		if len(text) > 0 && (text[0] == '+' || text[0] == '-') {
			neg = text[0] == '-'
			text = text[1:]
		}
		n, ok := parseUintBase(text, int(base))
		if !ok {
			return one(value.Nil{}), nil
		}
		if neg {
			n = -n
		}
		return one(value.Int(n)), nil
	}
	v := argAt(args, 0)
	if value.IsNumber(v) {
		return one(v), nil
	}
	s, ok := v.(*value.Bytes)
	if !ok {
		return one(value.Nil{}), nil
	}
	n, ok := value.ToNumber(s.String())
	if !ok {
		return one(value.Nil{}), nil
	}
	return one(n), nil
}

func parseUintBase(s string, base int) (int64, bool) {
	if s == "" {
		return 0, false
	}
	var n int64
	for _, c := range strings.ToLower(s) {
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c >= 'a' && c <= 'z':
			d = int(c-'a') + 10
		default:
			return 0, false
		}
		if d >= base {
			return 0, false
		}
		n = n*int64(base) + int64(d)
	}
	return n, true
}

func builtinLoad(h Host, args []value.Value) ([]value.Value, error) {
	src, ok := argAt(args, 0).(*value.Bytes)
	if !ok {
		return []value.Value{value.Nil{}, value.NewString("load: only string chunks are supported")}, nil
	}
	chunkName := "=(load)"
	if s, ok := argAt(args, 1).(*value.Bytes); ok {
		chunkName = s.String()
	}
	fn, err := h.LoadChunk(src.String(), chunkName)
	if err != nil {
		return []value.Value{value.Nil{}, value.NewString(err.Error())}, nil
	}
	return one(fn), nil
}
