package meta

import (
	"fmt"

	"lua/internal/value"
)

// Equal implements `==` (spec.md 4.1): raw equality first; for two
// tables (or two userdata) with the same __eq metamethod, fall back to
// calling it when raw equality says "not equal".
func Equal(call Caller, a, b value.Value) (bool, error) {
	if value.RawEqual(a, b) {
		return true, nil
	}
	ta, aIsTable := a.(*value.Table)
	tb, bIsTable := b.(*value.Table)
	ua, aIsUser := a.(*value.Userdata)
	ub, bIsUser := b.(*value.Userdata)
	if !(aIsTable && bIsTable) && !(aIsUser && bIsUser) {
		return false, nil
	}
	_ = ta
	_ = tb
	_ = ua
	_ = ub
	fn, ok := mmFunc(a, "__eq")
	if !ok {
		fn, ok = mmFunc(b, "__eq")
	}
	if !ok {
		return false, nil
	}
	res, err := call(fn, []value.Value{a, b})
	if err != nil {
		return false, err
	}
	return value.IsTruthy(first(res)), nil
}

// Less implements `<`; Le implements `<=`, consulting __lt/__le when the
// operands aren't primitively ordered (spec.md 4.1).
func Less(call Caller, a, b value.Value) (bool, error) {
	if less, _, ok := value.Compare(a, b); ok {
		return less, nil
	}
	fn, ok := mmFunc(a, "__lt")
	if !ok {
		fn, ok = mmFunc(b, "__lt")
	}
	if !ok {
		return false, compareTypeError(a, b)
	}
	res, err := call(fn, []value.Value{a, b})
	if err != nil {
		return false, err
	}
	return value.IsTruthy(first(res)), nil
}

func LessEqual(call Caller, a, b value.Value) (bool, error) {
	if less, equal, ok := value.Compare(a, b); ok {
		return less || equal, nil
	}
	fn, ok := mmFunc(a, "__le")
	if !ok {
		fn, ok = mmFunc(b, "__le")
	}
	if ok {
		res, err := call(fn, []value.Value{a, b})
		if err != nil {
			return false, err
		}
		return value.IsTruthy(first(res)), nil
	}
	// Lua 5.4 no longer falls back to "not (b < a)" via __lt (5.3
	// behavior); require __le explicitly.
	return false, compareTypeError(a, b)
}

func compareTypeError(a, b value.Value) error {
	ta, tb := value.TypeName(a), value.TypeName(b)
	if ta == tb {
		return fmt.Errorf("attempt to compare two %s values", ta)
	}
	return fmt.Errorf("attempt to compare %s with %s", ta, tb)
}
