package binpack

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Unpack reads values out of data starting at pos (0-based byte offset,
// matching the Lua convention of callers translating the 1-based Lua
// index before calling in). It returns the decoded values and the
// 0-based offset just past the last one read, mirroring string.unpack's
// second return value (spec.md 4.3.3).
func Unpack(format string, data []byte, pos int) ([]Value, int, error) {
	p := NewParser(format)
	var out []Value
	off := pos
	for {
		opt, ok, err := p.Next()
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			break
		}
		switch opt.Code {
		case 'x':
			if err := need(data, off, 1); err != nil {
				return nil, 0, err
			}
			off++
			continue
		case 'X':
			next, ok2, err2 := p.Next()
			if err2 != nil {
				return nil, 0, err2
			}
			if !ok2 {
				return nil, 0, fmt.Errorf("invalid next option for option 'X'")
			}
			off += p.Align(off, next.Size)
			continue
		}
		if opt.Code != 'z' {
			off += p.Align(off, absSize(opt.Size))
		}
		switch opt.Code {
		case 'b', 'h', 'i', 'l', 'j':
			v, n, err := decodeInt(p, opt, data, off, true)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, v)
			off += n
		case 'B', 'H', 'I', 'L', 'J', 'T':
			v, n, err := decodeInt(p, opt, data, off, false)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, v)
			off += n
		case 'f':
			if err := need(data, off, 4); err != nil {
				return nil, 0, err
			}
			bits := p.ByteOrder().Uint32(data[off : off+4])
			out = append(out, Value{Float: float64(math.Float32frombits(bits))})
			off += 4
		case 'd', 'n':
			if err := need(data, off, 8); err != nil {
				return nil, 0, err
			}
			bits := p.ByteOrder().Uint64(data[off : off+8])
			out = append(out, Value{Float: math.Float64frombits(bits)})
			off += 8
		case 'c':
			if err := need(data, off, opt.Size); err != nil {
				return nil, 0, err
			}
			out = append(out, Value{Str: string(data[off : off+opt.Size]), HasStr: true})
			off += opt.Size
		case 's':
			lv, n, err := decodeInt(p, Opt{Code: 'I', Size: opt.Size}, data, off, false)
			if err != nil {
				return nil, 0, err
			}
			off += n
			slen := int(lv.Int)
			if slen < 0 {
				return nil, 0, fmt.Errorf("data stream too short")
			}
			if err := need(data, off, slen); err != nil {
				return nil, 0, err
			}
			out = append(out, Value{Str: string(data[off : off+slen]), HasStr: true})
			off += slen
		case 'z':
			end := off
			for end < len(data) && data[end] != 0 {
				end++
			}
			if end >= len(data) {
				return nil, 0, fmt.Errorf("unfinished string for format 'z'")
			}
			out = append(out, Value{Str: string(data[off:end]), HasStr: true})
			off = end + 1
		}
	}
	return out, off, nil
}

func need(data []byte, off, n int) error {
	if off < 0 || n < 0 || off+n > len(data) {
		return fmt.Errorf("data string too short")
	}
	return nil
}

func decodeInt(p *Parser, opt Opt, data []byte, off int, signed bool) (Value, int, error) {
	size := opt.Size
	if err := need(data, off, size); err != nil {
		return Value{}, 0, err
	}
	raw := data[off : off+size]

	// beBytes holds the size bytes in most-significant-first order
	// regardless of the format's declared byte order, so the size<=8 and
	// size>8 paths below don't need to branch on endianness again.
	beBytes := make([]byte, size)
	if p.little() {
		for i := 0; i < size; i++ {
			beBytes[size-1-i] = raw[i]
		}
	} else {
		copy(beBytes, raw)
	}

	if size <= 8 {
		buf := make([]byte, 8)
		copy(buf[8-size:], beBytes)
		n := int64(binary.BigEndian.Uint64(buf))
		if signed && size < 8 {
			shift := uint(64 - 8*size)
			n = (n << shift) >> shift
		} else if !signed && size < 8 {
			n &= (int64(1) << (8 * size)) - 1
		}
		return Value{IsInt: true, Int: n}, size, nil
	}

	// size 9..16: the low 8 bytes become the int64; the remaining
	// high-order bytes must all equal the sign/zero-extension fill byte
	// or the value doesn't fit in a 64-bit Lua integer.
	extra, low := beBytes[:size-8], beBytes[size-8:]
	n := int64(binary.BigEndian.Uint64(low))
	fill := byte(0)
	if signed && n < 0 {
		fill = 0xff
	}
	for _, b := range extra {
		if b != fill {
			return Value{}, 0, fmt.Errorf("%d-byte integer does not fit into Lua Integer", size)
		}
	}
	return Value{IsInt: true, Int: n}, size, nil
}

// PackSize implements string.packsize: the fixed byte size a format
// occupies, or an error if it contains a variable-length option ('s' or
// 'z'), per spec.md 4.3.3's "packsize forbids s and z" rule.
func PackSize(format string) (int, error) {
	p := NewParser(format)
	total := 0
	for {
		opt, ok, err := p.Next()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		switch opt.Code {
		case 's', 'z':
			return 0, fmt.Errorf("variable-size format in packsize")
		case 'X':
			next, ok2, err2 := p.Next()
			if err2 != nil {
				return 0, err2
			}
			if !ok2 {
				return 0, fmt.Errorf("invalid next option for option 'X'")
			}
			total += p.Align(total, next.Size)
			continue
		}
		if opt.Code != 'x' {
			total += p.Align(total, absSize(opt.Size))
		}
		total += absSize(opt.Size)
		if err := CheckOverflow(total); err != nil {
			return 0, err
		}
	}
	return total, nil
}
