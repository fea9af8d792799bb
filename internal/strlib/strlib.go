// Package strlib implements the string library (spec.md 4.3): byte
// length/indexing, case conversion, repetition, the pattern-based
// find/match/gmatch/gsub family, string.format, and the pack/unpack/
// packsize binary codec, plus installing the shared string metatable
// so `("x"):upper()` method-call syntax works.
//
// Grounded on the teacher's module-registration idiom
// (sentra/internal/vm/vm.go's `mod.Exports["upper"] = &NativeFunction{...}`
// switch over module name), generalized here to populate a *value.Table
// instead of a *Module since spec.md 3 makes the string library itself a
// first-class Lua table (and the shared string metatable).
package strlib

import (
	"strings"

	"lua/internal/binpack"
	"lua/internal/luaerr"
	"lua/internal/meta"
	"lua/internal/pattern"
	"lua/internal/strformat"
	"lua/internal/value"
)

// Register populates lib with the string library's functions and wires
// it as the shared metatable's __index, the way reference Lua's
// luaopen_string does (spec.md 3: "strings share a type-level
// metatable"). call is used by format (%s / __tostring) and by gsub
// when a replacement is itself a Lua function.
func Register(lib *value.Table, call meta.Caller) {
	set := func(name string, fn value.GoFunc) {
		lib.RawSet(value.NewString(name), value.NewGoFunc("string."+name, fn))
	}

	set("len", builtinLen)
	set("sub", builtinSub)
	set("upper", builtinUpper)
	set("lower", builtinLower)
	set("reverse", builtinReverse)
	set("rep", builtinRep)
	set("byte", builtinByte)
	set("char", builtinChar)
	set("find", builtinFind)
	set("match", builtinMatch)
	set("gmatch", builtinGmatch)
	set("packsize", builtinPacksize)

	lib.RawSet(value.NewString("format"), value.NewGoFunc("string.format", func(args []value.Value) ([]value.Value, error) {
		return builtinFormat(call, args)
	}))
	lib.RawSet(value.NewString("gsub"), value.NewGoFunc("string.gsub", func(args []value.Value) ([]value.Value, error) {
		return builtinGsub(call, args)
	}))
	lib.RawSet(value.NewString("pack"), value.NewGoFunc("string.pack", builtinPack))
	lib.RawSet(value.NewString("unpack"), value.NewGoFunc("string.unpack", builtinUnpack))

	mt := value.NewTable(0, 1)
	mt.RawSet(value.NewString("__index"), lib)
	meta.SetStringMetatable(mt)
}

func argString(args []value.Value, i int, fname string) (*value.Bytes, error) {
	if i >= len(args) {
		return nil, luaerr.Newf(luaerr.TypeError, "bad argument #%d to '%s' (string expected, got no value)", i+1, fname)
	}
	switch x := args[i].(type) {
	case *value.Bytes:
		return x, nil
	case value.Int, value.Float:
		return value.NewString(value.RawToString(x)), nil
	default:
		return nil, luaerr.Newf(luaerr.TypeError, "bad argument #%d to '%s' (string expected, got %s)", i+1, fname, value.TypeName(x))
	}
}

func argInt(args []value.Value, i int, def int64, fname string) (int64, error) {
	if i >= len(args) || value.IsNil(args[i]) {
		return def, nil
	}
	n, ok := value.ToInteger(args[i])
	if !ok {
		return 0, luaerr.Newf(luaerr.TypeError, "bad argument #%d to '%s' (number expected, got %s)", i+1, fname, value.TypeName(args[i]))
	}
	return n, nil
}

// strPos resolves a Lua 1-based (possibly negative) string index to a
// 0-based byte offset, per spec.md 4.3's "negative indices count from
// the end" rule shared by sub/byte/find/etc.
func strPos(i int64, length int) int {
	if i >= 0 {
		return int(i)
	}
	p := length + int(i) + 1
	if p < 0 {
		return 0
	}
	return p
}

func builtinLen(args []value.Value) ([]value.Value, error) {
	s, err := argString(args, 0, "len")
	if err != nil {
		return nil, err
	}
	return []value.Value{value.Int(s.Len())}, nil
}

func builtinSub(args []value.Value) ([]value.Value, error) {
	s, err := argString(args, 0, "sub")
	if err != nil {
		return nil, err
	}
	n := s.Len()
	i, err := argInt(args, 1, 1, "sub")
	if err != nil {
		return nil, err
	}
	j, err := argInt(args, 2, -1, "sub")
	if err != nil {
		return nil, err
	}
	start := strPos(i, n)
	end := strPos(j, n)
	if start < 1 {
		start = 1
	}
	if end > n {
		end = n
	}
	if start > end {
		return []value.Value{value.NewString("")}, nil
	}
	return []value.Value{value.NewString(s.String()[start-1 : end])}, nil
}

func builtinUpper(args []value.Value) ([]value.Value, error) {
	s, err := argString(args, 0, "upper")
	if err != nil {
		return nil, err
	}
	return []value.Value{value.NewString(strings.ToUpper(s.String()))}, nil
}

func builtinLower(args []value.Value) ([]value.Value, error) {
	s, err := argString(args, 0, "lower")
	if err != nil {
		return nil, err
	}
	return []value.Value{value.NewString(strings.ToLower(s.String()))}, nil
}

func builtinReverse(args []value.Value) ([]value.Value, error) {
	s, err := argString(args, 0, "reverse")
	if err != nil {
		return nil, err
	}
	b := []byte(s.String())
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return []value.Value{value.NewString(string(b))}, nil
}

func builtinRep(args []value.Value) ([]value.Value, error) {
	s, err := argString(args, 0, "rep")
	if err != nil {
		return nil, err
	}
	n, err := argInt(args, 1, 0, "rep")
	if err != nil {
		return nil, err
	}
	sep := ""
	if len(args) > 2 && !value.IsNil(args[2]) {
		sepB, err := argString(args, 2, "rep")
		if err != nil {
			return nil, err
		}
		sep = sepB.String()
	}
	if n <= 0 {
		return []value.Value{value.NewString("")}, nil
	}
	const maxStringLen = 1 << 30
	total := int64(s.Len())*n + int64(len(sep))*(n-1)
	if total > maxStringLen {
		return nil, luaerr.New(luaerr.UserError, "resulting string too large")
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = s.String()
	}
	return []value.Value{value.NewString(strings.Join(parts, sep))}, nil
}

func builtinByte(args []value.Value) ([]value.Value, error) {
	s, err := argString(args, 0, "byte")
	if err != nil {
		return nil, err
	}
	n := s.Len()
	i, err := argInt(args, 1, 1, "byte")
	if err != nil {
		return nil, err
	}
	j, err := argInt(args, 2, i, "byte")
	if err != nil {
		return nil, err
	}
	start := strPos(i, n)
	end := strPos(j, n)
	if start < 1 {
		start = 1
	}
	if end > n {
		end = n
	}
	if start > end {
		return nil, nil
	}
	b := s.Bytes()
	out := make([]value.Value, 0, end-start+1)
	for k := start; k <= end; k++ {
		out = append(out, value.Int(b[k-1]))
	}
	return out, nil
}

func builtinChar(args []value.Value) ([]value.Value, error) {
	buf := make([]byte, len(args))
	for i, a := range args {
		n, ok := value.ToInteger(a)
		if !ok || n < 0 || n > 255 {
			return nil, luaerr.Newf(luaerr.TypeError, "bad argument #%d to 'char' (value out of range)", i+1)
		}
		buf[i] = byte(n)
	}
	return []value.Value{value.NewString(string(buf))}, nil
}

func capturesToValues(s string, m pattern.Match) []value.Value {
	if !m.Explicit {
		return []value.Value{value.NewString(s[m.Start:m.End])}
	}
	out := make([]value.Value, len(m.Captures))
	for i, c := range m.Captures {
		if c.Kind == pattern.CapPosition {
			out[i] = value.Int(c.Pos)
		} else {
			out[i] = value.NewString(s[c.Start:c.End])
		}
	}
	return out
}

func builtinFind(args []value.Value) ([]value.Value, error) {
	s, err := argString(args, 0, "find")
	if err != nil {
		return nil, err
	}
	p, err := argString(args, 1, "find")
	if err != nil {
		return nil, err
	}
	initArg, err := argInt(args, 2, 1, "find")
	if err != nil {
		return nil, err
	}
	plain := len(args) > 3 && value.IsTruthy(args[3])
	src := s.String()
	init := strPos(initArg, len(src)) - 1
	if init < 0 {
		init = 0
	}
	if init > len(src) {
		return []value.Value{value.Nil{}}, nil
	}
	if plain || !strings.ContainsAny(p.String(), "^$*+?.([%-") {
		idx := strings.Index(src[init:], p.String())
		if idx < 0 {
			return []value.Value{value.Nil{}}, nil
		}
		start := init + idx
		end := start + p.Len()
		return []value.Value{value.Int(start + 1), value.Int(end)}, nil
	}
	start, end, caps, explicit, ok, ferr := pattern.FindExplicit(src, p.String(), init)
	if ferr != nil {
		return nil, luaerr.New(luaerr.PatternError, ferr.Error())
	}
	if !ok {
		return []value.Value{value.Nil{}}, nil
	}
	out := []value.Value{value.Int(start + 1), value.Int(end)}
	if explicit {
		out = append(out, capturesToValues(src, pattern.Match{Start: start, End: end, Captures: caps, Explicit: true})...)
	}
	return out, nil
}

func builtinMatch(args []value.Value) ([]value.Value, error) {
	s, err := argString(args, 0, "match")
	if err != nil {
		return nil, err
	}
	p, err := argString(args, 1, "match")
	if err != nil {
		return nil, err
	}
	initArg, err := argInt(args, 2, 1, "match")
	if err != nil {
		return nil, err
	}
	src := s.String()
	init := strPos(initArg, len(src)) - 1
	if init < 0 {
		init = 0
	}
	start, end, caps, explicit, ok, ferr := pattern.FindExplicit(src, p.String(), init)
	if ferr != nil {
		return nil, luaerr.New(luaerr.PatternError, ferr.Error())
	}
	if !ok {
		return []value.Value{value.Nil{}}, nil
	}
	return capturesToValues(src, pattern.Match{Start: start, End: end, Captures: caps, Explicit: explicit}), nil
}

func builtinGmatch(args []value.Value) ([]value.Value, error) {
	s, err := argString(args, 0, "gmatch")
	if err != nil {
		return nil, err
	}
	p, err := argString(args, 1, "gmatch")
	if err != nil {
		return nil, err
	}
	src := s.String()
	pat := p.String()
	pos := 0
	iter := value.NewGoFunc("gmatch.iterator", func([]value.Value) ([]value.Value, error) {
		for pos <= len(src) {
			start, end, caps, explicit, ok, ferr := pattern.FindExplicit(src, pat, pos)
			if ferr != nil {
				return nil, luaerr.New(luaerr.PatternError, ferr.Error())
			}
			if !ok {
				return nil, nil
			}
			if end > pos {
				pos = end
			} else {
				pos++
			}
			return capturesToValues(src, pattern.Match{Start: start, End: end, Captures: caps, Explicit: explicit}), nil
		}
		return nil, nil
	})
	return []value.Value{iter}, nil
}

func builtinGsub(call meta.Caller, args []value.Value) ([]value.Value, error) {
	s, err := argString(args, 0, "gsub")
	if err != nil {
		return nil, err
	}
	p, err := argString(args, 1, "gsub")
	if err != nil {
		return nil, err
	}
	if len(args) < 3 {
		return nil, luaerr.New(luaerr.TypeError, "bad argument #3 to 'gsub' (string/function/table expected)")
	}
	repl := args[2]
	maxN := -1
	if len(args) > 3 && !value.IsNil(args[3]) {
		n, ok := value.ToInteger(args[3])
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #4 to 'gsub' (number expected)")
		}
		maxN = int(n)
	}

	src := s.String()
	replaced, count, err := runGsub(src, p.String(), repl, call, maxN)
	if err != nil {
		return nil, err
	}
	return []value.Value{value.NewString(replaced), value.Int(count)}, nil
}

// runGsub walks src left to right, substituting each non-overlapping
// match of pat per spec.md 4.3.1's gsub rules (string/table/function
// replacement forms, %0-%9 template syntax, the n-limit, and advancing
// past zero-length matches by one byte so "" and "a*" still terminate).
func runGsub(src, pat string, repl value.Value, call meta.Caller, maxN int) (string, int, error) {
	var out strings.Builder
	pos := 0
	count := 0
	anchored := len(pat) > 0 && pat[0] == '^'
	for pos <= len(src) {
		if maxN >= 0 && count >= maxN {
			break
		}
		start, end, caps, explicit, ok, ferr := pattern.FindExplicit(src, pat, pos)
		if ferr != nil {
			return "", 0, luaerr.New(luaerr.PatternError, ferr.Error())
		}
		if !ok {
			break
		}
		out.WriteString(src[pos:start])
		whole := src[start:end]
		capVals := capturesToValues(src, pattern.Match{Start: start, End: end, Captures: caps, Explicit: explicit})
		rep, rerr := applyReplacement(call, repl, whole, capVals)
		if rerr != nil {
			return "", 0, rerr
		}
		out.WriteString(rep)
		count++
		if end > pos {
			pos = end
		} else {
			if pos < len(src) {
				out.WriteByte(src[pos])
			}
			pos++
		}
		if anchored {
			break
		}
	}
	if pos < len(src) {
		out.WriteString(src[pos:])
	}
	return out.String(), count, nil
}

func applyReplacement(call meta.Caller, repl value.Value, whole string, caps []value.Value) (string, error) {
	switch r := repl.(type) {
	case *value.Bytes:
		return expandTemplate(r.String(), whole, caps), nil
	case value.Int, value.Float:
		return expandTemplate(value.RawToString(r), whole, caps), nil
	case *value.Table:
		key := caps[0]
		v := r.RawGet(key)
		return replacementToString(v, whole)
	case *value.Function:
		res, err := call(r, caps)
		if err != nil {
			return "", err
		}
		var v value.Value = value.Nil{}
		if len(res) > 0 {
			v = res[0]
		}
		return replacementToString(v, whole)
	default:
		return "", luaerr.New(luaerr.TypeError, "bad argument #3 to 'gsub' (string/function/table expected)")
	}
}

func replacementToString(v value.Value, whole string) (string, error) {
	if value.IsNil(v) || v == value.Bool(false) {
		return whole, nil
	}
	switch x := v.(type) {
	case *value.Bytes:
		return x.String(), nil
	case value.Int, value.Float:
		return value.RawToString(x), nil
	default:
		return "", luaerr.New(luaerr.TypeError, "invalid replacement value (a " + value.TypeName(v) + ")")
	}
}

// expandTemplate handles gsub's %0-%9/%% replacement-string syntax
// (spec.md 4.3.1).
func expandTemplate(tmpl, whole string, caps []value.Value) string {
	var out strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '%' || i+1 >= len(tmpl) {
			out.WriteByte(c)
			continue
		}
		n := tmpl[i+1]
		switch {
		case n == '%':
			out.WriteByte('%')
			i++
		case n == '0':
			out.WriteString(whole)
			i++
		case n >= '1' && n <= '9':
			idx := int(n - '1')
			if idx < len(caps) {
				out.WriteString(value.RawToString(caps[idx]))
			}
			i++
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

func builtinFormat(call meta.Caller, args []value.Value) ([]value.Value, error) {
	f, err := argString(args, 0, "format")
	if err != nil {
		return nil, err
	}
	s, err := strformat.Format(call, f.String(), args[1:])
	if err != nil {
		return nil, err
	}
	return []value.Value{value.NewString(s)}, nil
}

func toBinpackValue(v value.Value) binpack.Value {
	switch x := v.(type) {
	case value.Int:
		return binpack.Value{IsInt: true, Int: int64(x)}
	case value.Float:
		return binpack.Value{Float: float64(x)}
	case *value.Bytes:
		return binpack.Value{Str: x.String(), HasStr: true}
	default:
		return binpack.Value{}
	}
}

func fromBinpackValue(v binpack.Value) value.Value {
	if v.HasStr {
		return value.NewString(v.Str)
	}
	if v.IsInt {
		return value.Int(v.Int)
	}
	return value.Float(v.Float)
}

func builtinPack(args []value.Value) ([]value.Value, error) {
	f, err := argString(args, 0, "pack")
	if err != nil {
		return nil, err
	}
	vals := make([]binpack.Value, len(args)-1)
	for i, a := range args[1:] {
		vals[i] = toBinpackValue(a)
	}
	out, perr := binpack.Pack(f.String(), vals)
	if perr != nil {
		return nil, luaerr.New(luaerr.PackError, perr.Error())
	}
	return []value.Value{value.NewString(string(out))}, nil
}

func builtinUnpack(args []value.Value) ([]value.Value, error) {
	f, err := argString(args, 0, "unpack")
	if err != nil {
		return nil, err
	}
	data, err := argString(args, 1, "unpack")
	if err != nil {
		return nil, err
	}
	pos, err := argInt(args, 2, 1, "unpack")
	if err != nil {
		return nil, err
	}
	vals, next, perr := binpack.Unpack(f.String(), data.Bytes(), int(pos)-1)
	if perr != nil {
		return nil, luaerr.New(luaerr.PackError, perr.Error())
	}
	out := make([]value.Value, len(vals)+1)
	for i, v := range vals {
		out[i] = fromBinpackValue(v)
	}
	out[len(vals)] = value.Int(next + 1)
	return out, nil
}

func builtinPacksize(args []value.Value) ([]value.Value, error) {
	f, err := argString(args, 0, "packsize")
	if err != nil {
		return nil, err
	}
	n, perr := binpack.PackSize(f.String())
	if perr != nil {
		return nil, luaerr.New(luaerr.PackError, perr.Error())
	}
	return []value.Value{value.Int(n)}, nil
}
