package binpack

import (
	"fmt"
	"math"
)

// Value is the minimal numeric/string payload binpack needs; stdlib
// adapts value.Value to/from this so this package stays independent of
// the rest of the interpreter (spec.md 1 treats pack/unpack as a
// self-contained engine).
type Value struct {
	IsInt  bool
	Int    int64
	Float  float64
	Str    string
	HasStr bool
}

// Pack writes vals to a byte buffer per format, honoring endianness and
// alignment (spec.md 4.3.3).
func Pack(format string, vals []Value) ([]byte, error) {
	p := NewParser(format)
	var out []byte
	vi := 0
	nextVal := func() (Value, error) {
		if vi >= len(vals) {
			return Value{}, fmt.Errorf("bad argument to 'pack' (no value)")
		}
		v := vals[vi]
		vi++
		return v, nil
	}
	for {
		opt, ok, err := p.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if err := CheckOverflow(len(out)); err != nil {
			return nil, err
		}
		switch opt.Code {
		case 'x':
			out = append(out, 0)
			continue
		case 'X':
			// 'X<op>' adds only alignment padding for the next option's
			// natural size, consuming no value.
			next, ok2, err2 := p.Next()
			if err2 != nil {
				return nil, err2
			}
			if !ok2 {
				return nil, fmt.Errorf("invalid next option for option 'X'")
			}
			pad := p.Align(len(out), next.Size)
			out = append(out, make([]byte, pad)...)
			continue
		}
		if opt.Code != 'z' {
			pad := p.Align(len(out), absSize(opt.Size))
			out = append(out, make([]byte, pad)...)
		}
		switch opt.Code {
		case 'b', 'B', 'h', 'H', 'i', 'I', 'l', 'L', 'j', 'J', 'T':
			v, err := nextVal()
			if err != nil {
				return nil, err
			}
			enc, err := encodeInt(p, opt, v)
			if err != nil {
				return nil, err
			}
			out = append(out, enc...)
		case 'f':
			v, err := nextVal()
			if err != nil {
				return nil, err
			}
			buf := make([]byte, 4)
			p.ByteOrder().PutUint32(buf, math.Float32bits(float32(asFloat(v))))
			out = append(out, buf...)
		case 'd', 'n':
			v, err := nextVal()
			if err != nil {
				return nil, err
			}
			buf := make([]byte, 8)
			p.ByteOrder().PutUint64(buf, math.Float64bits(asFloat(v)))
			out = append(out, buf...)
		case 'c':
			v, err := nextVal()
			if err != nil {
				return nil, err
			}
			if len(v.Str) > opt.Size {
				return nil, fmt.Errorf("string longer than given size")
			}
			buf := make([]byte, opt.Size)
			copy(buf, v.Str)
			out = append(out, buf...)
		case 's':
			v, err := nextVal()
			if err != nil {
				return nil, err
			}
			lenBuf, err := encodeInt(p, Opt{Code: 'I', Size: opt.Size}, Value{IsInt: true, Int: int64(len(v.Str))})
			if err != nil {
				return nil, err
			}
			out = append(out, lenBuf...)
			out = append(out, v.Str...)
		case 'z':
			v, err := nextVal()
			if err != nil {
				return nil, err
			}
			if containsNUL(v.Str) {
				return nil, fmt.Errorf("string contains zeros")
			}
			out = append(out, v.Str...)
			out = append(out, 0)
		}
	}
	if err := CheckOverflow(len(out)); err != nil {
		return nil, err
	}
	return out, nil
}

func containsNUL(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return true
		}
	}
	return false
}

func absSize(n int) int {
	if n < 0 {
		return 1
	}
	return n
}

func asFloat(v Value) float64 {
	if v.IsInt {
		return float64(v.Int)
	}
	return v.Float
}

func encodeInt(p *Parser, opt Opt, v Value) ([]byte, error) {
	signed := opt.Code == 'b' || opt.Code == 'h' || opt.Code == 'i' || opt.Code == 'l' || opt.Code == 'j'
	n := v.Int
	if !v.IsInt {
		f := v.Float
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("number has no integer representation")
		}
		n = int64(f)
	}
	size := opt.Size
	if size < 8 {
		if signed {
			lo, hi := -(int64(1) << (8*size - 1)), (int64(1)<<(8*size-1))-1
			if n < lo || n > hi {
				return nil, fmt.Errorf("integer overflow")
			}
		} else if n < 0 || uint64(n) > (uint64(1)<<(8*size))-1 {
			return nil, fmt.Errorf("unsigned overflow")
		}
	}
	buf := make([]byte, size)
	u := uint64(n)
	fill := byte(0)
	if signed && n < 0 {
		fill = 0xff
	}
	if p.little() {
		for i := 0; i < size; i++ {
			if i < 8 {
				buf[i] = byte(u >> (8 * uint(i)))
			} else {
				buf[i] = fill
			}
		}
	} else {
		for i := 0; i < size; i++ {
			shift := size - 1 - i
			if shift < 8 {
				buf[i] = byte(u >> (8 * uint(shift)))
			} else {
				buf[i] = fill
			}
		}
	}
	return buf, nil
}
