package stdlib

// UTF-8 library (spec.md 4.3 adjacent / GLOSSARY "utf8"): char,
// codepoint, len, offset, codes, plus the charpattern constant.

import (
	"unicode/utf8"

	"lua/internal/luaerr"
	"lua/internal/value"
)

func installUTF8(h Host) {
	lib := newLib(h.Globals(), "utf8")
	lib.RawSet(value.NewString("charpattern"), value.NewString("[\x00-\x7F\xC2-\xFD][\x80-\xBF]*"))

	set(lib, "char", func(args []value.Value) ([]value.Value, error) {
		buf := make([]byte, 0, len(args)*2)
		for _, a := range args {
			n, ok := value.ToInteger(a)
			if !ok {
				return nil, luaerr.New(luaerr.TypeError, "bad argument to 'char' (number expected)")
			}
			var tmp [utf8.UTFMax]byte
			sz := utf8.EncodeRune(tmp[:], rune(n))
			buf = append(buf, tmp[:sz]...)
		}
		return one(value.NewBytes(buf)), nil
	})

	set(lib, "len", func(args []value.Value) ([]value.Value, error) {
		s, ok := argAt(args, 0).(*value.Bytes)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'len' (string expected)")
		}
		b := s.Bytes()
		i := normalizeUTF8Pos(argOrDefault(args, 1, 1), len(b))
		j := normalizeUTF8Pos(argOrDefault(args, 2, -1), len(b))
		count := int64(0)
		pos := i - 1
		for pos < j {
			r, size := utf8.DecodeRune(b[pos:])
			if r == utf8.RuneError && size <= 1 {
				return []value.Value{value.Nil{}, value.Int(int64(pos + 1))}, nil
			}
			pos += size
			count++
		}
		return one(value.Int(count)), nil
	})

	set(lib, "codepoint", func(args []value.Value) ([]value.Value, error) {
		s, ok := argAt(args, 0).(*value.Bytes)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'codepoint' (string expected)")
		}
		b := s.Bytes()
		i := normalizeUTF8Pos(argOrDefault(args, 1, 1), len(b))
		j := normalizeUTF8Pos(argOrDefault(args, 2, int64(i)), len(b))
		var out []value.Value
		pos := i - 1
		for pos < j {
			r, size := utf8.DecodeRune(b[pos:])
			if r == utf8.RuneError && size <= 1 {
				return nil, luaerr.New(luaerr.PatternError, "invalid UTF-8 code")
			}
			out = append(out, value.Int(int64(r)))
			pos += size
		}
		return out, nil
	})

	set(lib, "offset", func(args []value.Value) ([]value.Value, error) {
		s, ok := argAt(args, 0).(*value.Bytes)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'offset' (string expected)")
		}
		b := s.Bytes()
		n, _ := value.ToInteger(argAt(args, 1))
		defStart := int64(1)
		if n < 0 {
			defStart = int64(len(b) + 1)
		}
		i := normalizeUTF8Pos(argOrDefault(args, 2, defStart), len(b))
		pos := i - 1
		switch {
		case n > 0:
			if pos < len(b) {
				n--
			}
			for n > 0 && pos < len(b) {
				pos++
				for pos < len(b) && isUTF8Cont(b[pos]) {
					pos++
				}
				n--
			}
		case n < 0:
			for n < 0 && pos > 0 {
				pos--
				for pos > 0 && isUTF8Cont(b[pos]) {
					pos--
				}
				n++
			}
		default:
			for pos > 0 && isUTF8Cont(b[pos]) {
				pos--
			}
		}
		if n != 0 {
			return one(value.Nil{}), nil
		}
		return one(value.Int(int64(pos + 1))), nil
	})

	set(lib, "codes", func(args []value.Value) ([]value.Value, error) {
		s, ok := argAt(args, 0).(*value.Bytes)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'codes' (string expected)")
		}
		b := s.Bytes()
		iter := value.NewGoFunc("utf8.codes.iterator", func(iargs []value.Value) ([]value.Value, error) {
			prev, _ := value.ToInteger(argAt(iargs, 1))
			pos := int(prev)
			if pos > 0 {
				_, size := utf8.DecodeRune(b[pos-1:])
				pos += size - 1
			}
			if pos >= len(b) {
				return one(value.Nil{}), nil
			}
			r, size := utf8.DecodeRune(b[pos:])
			if r == utf8.RuneError && size <= 1 {
				return nil, luaerr.New(luaerr.PatternError, "invalid UTF-8 code")
			}
			return []value.Value{value.Int(int64(pos + 1)), value.Int(int64(r))}, nil
		})
		return []value.Value{iter, s, value.Int(0)}, nil
	})
}

func argOrDefault(args []value.Value, i int, def int64) int64 {
	if i >= len(args) {
		return def
	}
	n, ok := value.ToInteger(args[i])
	if !ok {
		return def
	}
	return n
}

func normalizeUTF8Pos(pos int64, length int) int {
	if pos < 0 {
		pos = int64(length) + pos + 1
	}
	if pos < 1 {
		pos = 1
	}
	return int(pos)
}

func isUTF8Cont(b byte) bool { return b&0xC0 == 0x80 }
