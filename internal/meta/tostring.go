package meta

import "lua/internal/value"

// ToString implements spec.md 4.3.2's "%s calls __tostring when
// present" and the base library's `tostring`: __tostring if present,
// else __name as a type-name override, else value.RawToString.
func ToString(call Caller, v value.Value) (string, error) {
	if fn, ok := mmFunc(v, "__tostring"); ok {
		res, err := call(fn, []value.Value{v})
		if err != nil {
			return "", err
		}
		s, ok := first(res).(*value.Bytes)
		if !ok {
			return "", TypeError("convert (__tostring must return a string)", first(res))
		}
		return s.String(), nil
	}
	if name := mm(v, "__name"); name != nil {
		if s, ok := name.(*value.Bytes); ok {
			if _, isTable := v.(*value.Table); isTable {
				return s.String() + ": " + value.RawToString(v)[len("table: "):], nil
			}
		}
	}
	return value.RawToString(v), nil
}

// Concat implements `..` (spec.md 4.1 lists __concat): numbers and
// strings concatenate directly byte-for-byte; otherwise __concat is
// consulted left-then-right.
func Concat(call Caller, a, b value.Value) (value.Value, error) {
	as, aok := concatOperand(a)
	bs, bok := concatOperand(b)
	if aok && bok {
		return value.NewString(as + bs), nil
	}
	if fn, ok := mmFunc(a, "__concat"); ok {
		res, err := call(fn, []value.Value{a, b})
		return first(res), err
	}
	if fn, ok := mmFunc(b, "__concat"); ok {
		res, err := call(fn, []value.Value{a, b})
		return first(res), err
	}
	bad := a
	if aok {
		bad = b
	}
	return nil, TypeError("concatenate", bad)
}

func concatOperand(v value.Value) (string, bool) {
	switch v.(type) {
	case value.Int, value.Float, *value.Big:
		return value.RawToString(v), true
	case *value.Bytes:
		return value.RawToString(v), true
	default:
		return "", false
	}
}
