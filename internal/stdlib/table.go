package stdlib

// Table library (spec.md 4.3 adjacent / GLOSSARY "table"): insert,
// remove, concat, sort, pack, unpack, move.
//
// Grounded on the teacher's slice-backed array builtins
// (sentra/internal/vm/vm.go's push/pop-style array natives),
// generalized onto value.Table's array+hash hybrid via its raw
// get/set/Len API rather than a bare Go slice.

import (
	"sort"
	"strings"

	"lua/internal/luaerr"
	"lua/internal/value"
)

func installTable(h Host) {
	lib := newLib(h.Globals(), "table")

	set(lib, "insert", func(args []value.Value) ([]value.Value, error) {
		t, ok := argAt(args, 0).(*value.Table)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'insert' (table expected)")
		}
		n := t.Len()
		if len(args) == 2 {
			_ = t.RawSet(value.Int(int64(n+1)), args[1])
			return nil, nil
		}
		pos, ok := value.ToInteger(argAt(args, 1))
		if !ok || pos < 1 || pos > int64(n+1) {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #2 to 'insert' (position out of bounds)")
		}
		for i := int64(n); i >= pos; i-- {
			_ = t.RawSet(value.Int(i+1), t.RawGet(value.Int(i)))
		}
		_ = t.RawSet(value.Int(pos), args[2])
		return nil, nil
	})

	set(lib, "remove", func(args []value.Value) ([]value.Value, error) {
		t, ok := argAt(args, 0).(*value.Table)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'remove' (table expected)")
		}
		n := int64(t.Len())
		pos := n
		if len(args) > 1 {
			p, ok := value.ToInteger(args[1])
			if !ok {
				return nil, luaerr.New(luaerr.TypeError, "bad argument #2 to 'remove' (number expected)")
			}
			pos = p
		}
		if n == 0 {
			return one(value.Nil{}), nil
		}
		if pos < 1 || pos > n+1 {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #2 to 'remove' (position out of bounds)")
		}
		removed := t.RawGet(value.Int(pos))
		for i := pos; i < n; i++ {
			_ = t.RawSet(value.Int(i), t.RawGet(value.Int(i+1)))
		}
		_ = t.RawSet(value.Int(n), value.Nil{})
		return one(removed), nil
	})

	set(lib, "concat", func(args []value.Value) ([]value.Value, error) {
		t, ok := argAt(args, 0).(*value.Table)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'concat' (table expected)")
		}
		sep := ""
		if s, ok := argAt(args, 1).(*value.Bytes); ok {
			sep = s.String()
		}
		i := int64(1)
		if len(args) > 2 {
			if v, ok := value.ToInteger(args[2]); ok {
				i = v
			}
		}
		j := int64(t.Len())
		if len(args) > 3 {
			if v, ok := value.ToInteger(args[3]); ok {
				j = v
			}
		}
		var sb strings.Builder
		for k := i; k <= j; k++ {
			v := t.RawGet(value.Int(k))
			s, ok := concatOperand(v)
			if !ok {
				return nil, luaerr.Newf(luaerr.TypeError, "invalid value (%s) at index %d in table for 'concat'", value.TypeName(v), k)
			}
			sb.WriteString(s)
			if k < j {
				sb.WriteString(sep)
			}
		}
		return one(value.NewString(sb.String())), nil
	})

	set(lib, "pack", func(args []value.Value) ([]value.Value, error) {
		t := value.NewTable(len(args), 1)
		for idx, v := range args {
			_ = t.RawSet(value.Int(int64(idx+1)), v)
		}
		_ = t.RawSet(value.NewString("n"), value.Int(int64(len(args))))
		return one(t), nil
	})

	set(lib, "unpack", func(args []value.Value) ([]value.Value, error) {
		t, ok := argAt(args, 0).(*value.Table)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'unpack' (table expected)")
		}
		i := int64(1)
		if len(args) > 1 {
			if v, ok := value.ToInteger(args[1]); ok {
				i = v
			}
		}
		j := int64(t.Len())
		if len(args) > 2 {
			if v, ok := value.ToInteger(args[2]); ok {
				j = v
			}
		}
		if i > j {
			return nil, nil
		}
		out := make([]value.Value, 0, j-i+1)
		for k := i; k <= j; k++ {
			out = append(out, t.RawGet(value.Int(k)))
		}
		return out, nil
	})
	h.Globals().RawSet(value.NewString("unpack"), lib.RawGet(value.NewString("unpack")))

	set(lib, "move", func(args []value.Value) ([]value.Value, error) {
		a1, ok := argAt(args, 0).(*value.Table)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'move' (table expected)")
		}
		f, _ := value.ToInteger(argAt(args, 1))
		e, _ := value.ToInteger(argAt(args, 2))
		t, _ := value.ToInteger(argAt(args, 3))
		a2 := a1
		if len(args) > 4 {
			if dst, ok := args[4].(*value.Table); ok {
				a2 = dst
			}
		}
		if e >= f {
			if t > f || t > e || a1 != a2 {
				for i := int64(0); i <= e-f; i++ {
					_ = a2.RawSet(value.Int(t+i), a1.RawGet(value.Int(f+i)))
				}
			} else {
				for i := e - f; i >= 0; i-- {
					_ = a2.RawSet(value.Int(t+i), a1.RawGet(value.Int(f+i)))
				}
			}
		}
		return one(a2), nil
	})

	set(lib, "sort", func(args []value.Value) ([]value.Value, error) {
		t, ok := argAt(args, 0).(*value.Table)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'sort' (table expected)")
		}
		n := t.Len()
		items := make([]value.Value, n)
		for i := 0; i < n; i++ {
			items[i] = t.RawGet(value.Int(int64(i + 1)))
		}
		var less func(a, b value.Value) bool
		var sortErr error
		if len(args) > 1 && !value.IsNil(args[1]) {
			cmp := args[1]
			less = func(a, b value.Value) bool {
				if sortErr != nil {
					return false
				}
				res, err := h.Call(cmp, []value.Value{a, b})
				if err != nil {
					sortErr = err
					return false
				}
				return value.IsTruthy(argAt(res, 0))
			}
		} else {
			less = func(a, b value.Value) bool {
				lt, _, ok := value.Compare(a, b)
				if !ok {
					if sortErr == nil {
						sortErr = luaerr.New(luaerr.TypeError, "attempt to compare incompatible values")
					}
					return false
				}
				return lt
			}
		}
		sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
		if sortErr != nil {
			return nil, sortErr
		}
		for i, v := range items {
			_ = t.RawSet(value.Int(int64(i+1)), v)
		}
		return nil, nil
	})
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
