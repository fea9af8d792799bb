// Package binpack implements the string.pack/unpack/packsize binary
// engine (spec.md 4.3.3): format parsing, endianness, alignment, and
// overflow discipline. No teacher equivalent exists (the teacher has no
// binary serialization feature); built directly from spec.md 4.3.3.
package binpack

import (
	"encoding/binary"
	"fmt"
)

type endian int

const (
	endianNative endian = iota
	endianLittle
	endianBig
)

// Opt is one parsed format option (spec.md 4.3.3's grammar: endianness,
// alignment, sized integers/floats, fixed/variable strings, padding).
type Opt struct {
	Code  byte
	Size  int // byte width for sized ints/floats/cN; -1 if not applicable
}

const maxSize = 1<<31 - 1

// Parser walks a string.pack format string left to right, tracking
// current endianness and alignment the way spec.md 4.3.3 describes:
// "each sized element is aligned to min(naturalSize, maxAlign) before
// being placed".
type Parser struct {
	fmt      string
	pos      int
	end      endian
	maxAlign int
}

func NewParser(format string) *Parser {
	return &Parser{fmt: format, end: endianNative, maxAlign: 1}
}

// ByteOrder returns the concrete binary.ByteOrder for the parser's
// current endianness setting. Go 1.21+'s binary.NativeEndian covers the
// "=" (native) case without any unsafe pointer tricks.
func (p *Parser) ByteOrder() binary.ByteOrder {
	if p.little() {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// little reports whether the parser's current setting resolves to
// little-endian, resolving "native" against the host via a runtime
// probe (avoids any unsafe/build-tag dependency).
func (p *Parser) little() bool {
	switch p.end {
	case endianLittle:
		return true
	case endianBig:
		return false
	default:
		return hostIsLittleEndian
	}
}

// hostIsLittleEndian probes binary.NativeEndian at init instead of using
// a build tag, so cross-compiled binaries still resolve "=" correctly.
var hostIsLittleEndian = func() bool {
	var buf [2]byte
	binary.NativeEndian.PutUint16(buf[:], 1)
	return buf[0] == 1
}()

// Next parses and returns the next option, or ok=false at end of format.
// Whitespace is skipped (spec.md 4.3.3: "space ignored").
func (p *Parser) Next() (Opt, bool, error) {
	for {
		if p.pos >= len(p.fmt) {
			return Opt{}, false, nil
		}
		c := p.fmt[p.pos]
		p.pos++
		switch c {
		case ' ':
			continue
		case '<':
			p.end = endianLittle
			continue
		case '>':
			p.end = endianBig
			continue
		case '=':
			p.end = endianNative
			continue
		case '!':
			n, err := p.optionalNumber(8)
			if err != nil {
				return Opt{}, false, err
			}
			if n <= 0 || n > 16 || n&(n-1) != 0 {
				return Opt{}, false, fmt.Errorf("invalid alignment %d", n)
			}
			p.maxAlign = n
			continue
		}
		switch c {
		case 'b', 'B':
			return Opt{Code: c, Size: 1}, true, nil
		case 'h', 'H':
			return Opt{Code: c, Size: 2}, true, nil
		case 'i', 'I':
			n, err := p.optionalNumber(4)
			if err != nil {
				return Opt{}, false, err
			}
			if n < 1 || n > 16 {
				return Opt{}, false, fmt.Errorf("integral size (%d) out of limits [1,16]", n)
			}
			return Opt{Code: c, Size: n}, true, nil
		case 'l', 'L', 'j', 'J', 'T':
			return Opt{Code: c, Size: 8}, true, nil
		case 'f':
			return Opt{Code: c, Size: 4}, true, nil
		case 'd', 'n':
			return Opt{Code: c, Size: 8}, true, nil
		case 'c':
			n, err := p.optionalNumber(-1)
			if err != nil {
				return Opt{}, false, err
			}
			if n < 0 {
				return Opt{}, false, fmt.Errorf("missing size for format option 'c'")
			}
			return Opt{Code: c, Size: n}, true, nil
		case 's':
			n, err := p.optionalNumber(8)
			if err != nil {
				return Opt{}, false, err
			}
			return Opt{Code: c, Size: n}, true, nil
		case 'z':
			return Opt{Code: c, Size: -1}, true, nil
		case 'x':
			return Opt{Code: c, Size: 1}, true, nil
		case 'X':
			return Opt{Code: c, Size: -1}, true, nil
		default:
			return Opt{}, false, fmt.Errorf("invalid format option '%c'", c)
		}
	}
}

func (p *Parser) optionalNumber(def int) (int, error) {
	start := p.pos
	for p.pos < len(p.fmt) && p.fmt[p.pos] >= '0' && p.fmt[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return def, nil
	}
	n := 0
	for _, c := range p.fmt[start:p.pos] {
		n = n*10 + int(c-'0')
		if n > 1<<20 {
			return 0, fmt.Errorf("integral size too large")
		}
	}
	return n, nil
}

// Align returns the padding (0..align-1 bytes) needed before placing an
// element of natural size sz at the given cumulative offset, per
// spec.md 4.3.3's alignment rule.
func (p *Parser) Align(offset, sz int) int {
	align := sz
	if align > p.maxAlign {
		align = p.maxAlign
	}
	if align <= 1 {
		return 0
	}
	rem := offset % align
	if rem == 0 {
		return 0
	}
	return align - rem
}

// CheckOverflow enforces spec.md 4.3.3's 2^31-1 cumulative offset cap.
func CheckOverflow(offset int) error {
	if offset > maxSize {
		return fmt.Errorf("too large")
	}
	return nil
}

