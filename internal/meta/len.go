package meta

import "lua/internal/value"

// Len implements `#v` (spec.md 4.2): __len if present, else the raw
// border for tables, else byte length for strings, else a type error.
func Len(call Caller, v value.Value) (value.Value, error) {
	if fn, ok := mmFunc(v, "__len"); ok {
		res, err := call(fn, []value.Value{v})
		if err != nil {
			return nil, err
		}
		return first(res), nil
	}
	switch x := v.(type) {
	case *value.Table:
		return value.Int(x.Len()), nil
	case *value.Bytes:
		return value.Int(x.Len()), nil
	default:
		return nil, TypeError("get length of", v)
	}
}
