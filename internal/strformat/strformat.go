// Package strformat implements string.format (spec.md 4.3.2): a
// printf-style engine over Lua's specifier grammar, including the
// round-trip-safe %q form and the %a/%A hex-float form.
//
// No teacher equivalent exists (the teacher's `log` builtin only
// concatenates); built directly from spec.md 4.3.2, cross-checked
// against the literal-rendering rules Lua's lstrlib.c str_format
// documents for %q (mininteger, NaN, and infinity as source literals).
package strformat

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"lua/internal/luaerr"
	"lua/internal/meta"
	"lua/internal/value"
)

const maxSpecLen = 99

// Format renders format against args, using call to invoke __tostring
// for %s operands (spec.md 4.3.2: "%s calls __tostring when present").
func Format(call meta.Caller, format string, args []value.Value) (string, error) {
	var out strings.Builder
	ai := 0
	next := func() (value.Value, error) {
		if ai >= len(args) {
			return nil, luaerr.Newf(luaerr.FormatError, "bad argument #%d to 'format' (no value)", ai+2)
		}
		v := args[ai]
		ai++
		return v, nil
	}

	i := 0
	for i < len(format) {
		c := format[i]
		if c != '%' {
			out.WriteByte(c)
			i++
			continue
		}
		spec, verb, newI, err := scanSpec(format, i)
		if err != nil {
			return "", err
		}
		i = newI
		if verb == '%' {
			out.WriteByte('%')
			continue
		}
		v, err := next()
		if err != nil {
			return "", err
		}
		rendered, err := formatOne(call, spec, verb, v)
		if err != nil {
			return "", err
		}
		out.WriteString(rendered)
	}
	return out.String(), nil
}

// spec is one parsed `%...` directive, minus the leading % and verb.
type spec struct {
	minus, plus, space, alt, zero bool
	width, prec                   int
	hasWidth, hasPrec             bool
}

func scanSpec(format string, start int) (spec, byte, int, error) {
	i := start + 1
	var s spec
	if i-start > maxSpecLen {
		return s, 0, i, luaerr.New(luaerr.FormatError, "invalid format string to 'format'")
	}
loop:
	for i < len(format) {
		switch format[i] {
		case '-':
			s.minus = true
		case '+':
			s.plus = true
		case ' ':
			s.space = true
		case '#':
			s.alt = true
		case '0':
			s.zero = true
		default:
			break loop
		}
		i++
	}
	if i < len(format) && format[i] >= '0' && format[i] <= '9' {
		n, ni := scanInt(format, i)
		if n >= 100 {
			return s, 0, i, luaerr.New(luaerr.FormatError, "invalid format (width too long)")
		}
		s.width, s.hasWidth = n, true
		i = ni
	}
	if i < len(format) && format[i] == '.' {
		i++
		n, ni := scanInt(format, i)
		if n >= 100 {
			return s, 0, i, luaerr.New(luaerr.FormatError, "invalid format (precision too long)")
		}
		s.prec, s.hasPrec = n, true
		i = ni
	}
	if i >= len(format) {
		return s, 0, i, luaerr.New(luaerr.FormatError, "invalid conversion to 'format'")
	}
	verb := format[i]
	i++
	if i-start > maxSpecLen {
		return s, 0, i, luaerr.New(luaerr.FormatError, "invalid format string to 'format'")
	}
	switch verb {
	case 'd', 'i', 'u', 'o', 'x', 'X', 'f', 'F', 'e', 'E', 'g', 'G', 'a', 'A', 'c', 's', 'q', 'p', '%':
		return s, verb, i, nil
	default:
		return s, 0, i, luaerr.Newf(luaerr.FormatError, "invalid conversion '%%%c' to 'format'", verb)
	}
}

func scanInt(s string, i int) (int, int) {
	n := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		n = n*10 + int(s[i]-'0')
		i++
	}
	return n, i
}

func formatOne(call meta.Caller, s spec, verb byte, v value.Value) (string, error) {
	switch verb {
	case 'd', 'i', 'u':
		n, err := toInt(v)
		if err != nil {
			return "", err
		}
		return padInt(s, strconv.FormatInt(n, 10), n < 0), nil
	case 'o':
		n, err := toInt(v)
		if err != nil {
			return "", err
		}
		return padUint(s, strconv.FormatUint(uint64(n), 8)), nil
	case 'x':
		n, err := toInt(v)
		if err != nil {
			return "", err
		}
		digits := strconv.FormatUint(uint64(n), 16)
		if s.alt && n != 0 {
			digits = "0x" + digits
		}
		return padUint(s, digits), nil
	case 'X':
		n, err := toInt(v)
		if err != nil {
			return "", err
		}
		digits := strings.ToUpper(strconv.FormatUint(uint64(n), 16))
		if s.alt && n != 0 {
			digits = "0X" + digits
		}
		return padUint(s, digits), nil
	case 'f', 'F', 'e', 'E', 'g', 'G':
		f, err := toFloat(v)
		if err != nil {
			return "", err
		}
		return formatFloatVerb(s, verb, f), nil
	case 'a', 'A':
		f, err := toFloat(v)
		if err != nil {
			return "", err
		}
		return formatHexFloat(s, verb, f), nil
	case 'c':
		n, err := toInt(v)
		if err != nil {
			return "", err
		}
		return string([]byte{byte(n)}), nil
	case 's':
		str, err := meta.ToString(call, v)
		if err != nil {
			return "", err
		}
		if s.hasWidth && strings.IndexByte(str, 0) >= 0 {
			return "", luaerr.New(luaerr.FormatError, "string contains zeros")
		}
		if s.hasPrec && s.prec < len(str) {
			str = str[:s.prec]
		}
		return padString(s, str), nil
	case 'q':
		if s.hasWidth || s.hasPrec {
			return "", luaerr.New(luaerr.FormatError, "specifier '%q' cannot have modifiers")
		}
		return quoteValue(v)
	case 'p':
		return fmt.Sprintf("%p", v), nil
	}
	return "", luaerr.Newf(luaerr.FormatError, "invalid conversion '%%%c' to 'format'", verb)
}

func toInt(v value.Value) (int64, error) {
	n, ok := value.ToInteger(v)
	if !ok {
		return 0, luaerr.Newf(luaerr.FormatError, "bad argument to 'format' (number has no integer representation)")
	}
	return n, nil
}

func toFloat(v value.Value) (float64, error) {
	f, ok := value.AsFloat(v)
	if !ok {
		return 0, luaerr.New(luaerr.FormatError, "bad argument to 'format' (number expected)")
	}
	return f, nil
}

func padInt(s spec, digits string, neg bool) string {
	sign := ""
	if neg {
		digits = digits[1:]
		sign = "-"
	} else if s.plus {
		sign = "+"
	} else if s.space {
		sign = " "
	}
	if s.hasPrec {
		for len(digits) < s.prec {
			digits = "0" + digits
		}
	}
	body := sign + digits
	return pad(s, body, sign, digits)
}

func padUint(s spec, digits string) string {
	if s.hasPrec {
		for len(digits) < s.prec {
			digits = "0" + digits
		}
	}
	return pad(s, digits, "", digits)
}

func padString(s spec, str string) string {
	return pad(s, str, "", str)
}

// pad applies width justification; zero-padding only applies when no
// precision was given and the value isn't left-justified (matches
// printf's "0 flag ignored with precision for d/i/o/u/x/X" rule).
func pad(s spec, body, sign, core string) string {
	if !s.hasWidth || len(body) >= s.width {
		return body
	}
	fill := s.width - len(body)
	if s.minus {
		return body + strings.Repeat(" ", fill)
	}
	if s.zero && !s.hasPrec {
		return sign + strings.Repeat("0", fill) + core
	}
	return strings.Repeat(" ", fill) + body
}

func formatFloatVerb(s spec, verb byte, f float64) string {
	if math.IsNaN(f) {
		return signed(s, "nan", false)
	}
	if math.IsInf(f, 0) {
		return signed(s, "inf", f < 0)
	}
	prec := 6
	if s.hasPrec {
		prec = s.prec
	}
	var body string
	switch verb {
	case 'F':
		body = strconv.FormatFloat(math.Abs(f), 'f', prec, 64)
	case 'E':
		body = strings.ToUpper(strconv.FormatFloat(math.Abs(f), 'e', prec, 64))
	case 'G':
		body = strings.ToUpper(strconv.FormatFloat(math.Abs(f), 'g', prec, 64))
	default:
		body = strconv.FormatFloat(math.Abs(f), verb, prec, 64)
	}
	return signed(s, body, f < 0 || math.Signbit(f))
}

func signed(s spec, body string, neg bool) string {
	sign := ""
	if neg {
		sign = "-"
	} else if s.plus {
		sign = "+"
	} else if s.space {
		sign = " "
	}
	full := sign + body
	return pad(s, full, sign, body)
}

func formatHexFloat(s spec, verb byte, f float64) string {
	prec := -1
	if s.hasPrec {
		prec = s.prec
	}
	body := strconv.FormatFloat(math.Abs(f), 'x', prec, 64)
	if verb == 'A' {
		body = strings.ToUpper(body)
		body = strings.Replace(body, "0X", "0X", 1)
	}
	return signed(s, body, math.Signbit(f))
}

// quoteValue implements %q's round-trip literal rendering (spec.md
// 4.3.2): strings become escaped Lua string literals, numbers/booleans/
// nil render as literals, math.mininteger as 0x8000000000000000, NaN as
// (0/0), and ±infinity as ±1e9999 (a literal that overflows back to inf
// when read).
func quoteValue(v value.Value) (string, error) {
	switch x := v.(type) {
	case value.Nil, nil:
		return "nil", nil
	case value.Bool:
		if x {
			return "true", nil
		}
		return "false", nil
	case value.Int:
		if x == math.MinInt64 {
			return "0x8000000000000000", nil
		}
		return strconv.FormatInt(int64(x), 10), nil
	case value.Float:
		f := float64(x)
		switch {
		case math.IsNaN(f):
			return "(0/0)", nil
		case math.IsInf(f, 1):
			return "1e9999", nil
		case math.IsInf(f, -1):
			return "-1e9999", nil
		}
		return strconv.FormatFloat(f, 'x', -1, 64), nil
	case *value.Bytes:
		return quoteString(x.String()), nil
	default:
		return "", luaerr.Newf(luaerr.FormatError, "value has no literal form")
	}
}

func quoteString(str string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(str); i++ {
		c := str[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString("\\n")
		case c == '\r':
			b.WriteString("\\r")
		case c == 0:
			if i+1 < len(str) && str[i+1] >= '0' && str[i+1] <= '9' {
				b.WriteString("\\000")
			} else {
				b.WriteString("\\0")
			}
		case c < 32 || c == 127:
			if i+1 < len(str) && str[i+1] >= '0' && str[i+1] <= '9' {
				fmt.Fprintf(&b, "\\%03d", c)
			} else {
				fmt.Fprintf(&b, "\\%d", c)
			}
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
