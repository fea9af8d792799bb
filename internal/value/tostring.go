package value

import (
	"fmt"
	"math"
	"strconv"
)

// RawToString implements the primitive (no __tostring) string
// conversion `tostring` falls back to: numbers render as Lua source
// would, *Bytes render as their content, everything else as
// "<type>: 0x...".
func RawToString(v Value) string {
	switch x := v.(type) {
	case Nil, nil:
		return "nil"
	case Bool:
		if x {
			return "true"
		}
		return "false"
	case Int:
		return strconv.FormatInt(int64(x), 10)
	case Float:
		return FormatFloat(float64(x))
	case *Big:
		return x.V.String()
	case *Bytes:
		return x.String()
	case *Table:
		return fmt.Sprintf("table: %p", x)
	case *Function:
		if x.IsGo() {
			return fmt.Sprintf("function: builtin: %s", x.Name)
		}
		return fmt.Sprintf("function: %p", x)
	case *Coroutine:
		return fmt.Sprintf("thread: %p", x)
	case *Userdata:
		return fmt.Sprintf("userdata: %p", x)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FormatFloat renders a float the way Lua's %.14g default does,
// including the NaN/inf special cases spec.md 4.3.2 names.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', 14, 64)
	// Lua always shows a float as a float: "3" -> "3.0", "1e+20" stays.
	hasDotOrExp := false
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' || c == 'n' || c == 'i' {
			hasDotOrExp = true
			break
		}
	}
	if !hasDotOrExp {
		s += ".0"
	}
	return s
}
