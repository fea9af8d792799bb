package meta

import (
	"fmt"

	"lua/internal/value"
)

const maxIndexChainDepth = 100

// Index implements `t[k]` (spec.md 4.2): rawget first, then __index
// (table: recurse, function: call with (t,k)), bounded against runaway
// metatable chains/recursion.
func Index(call Caller, t, k value.Value) (value.Value, error) {
	cur := t
	for depth := 0; depth < maxIndexChainDepth; depth++ {
		if tbl, ok := cur.(*value.Table); ok {
			v := tbl.RawGet(k)
			if !value.IsNil(v) {
				return v, nil
			}
			idx := mm(cur, "__index")
			if idx == nil {
				return value.Nil{}, nil
			}
			if fn, ok := idx.(*value.Function); ok {
				res, err := call(fn, []value.Value{cur, k})
				if err != nil {
					return nil, err
				}
				return first(res), nil
			}
			cur = idx
			continue
		}
		idx := mm(cur, "__index")
		if idx == nil {
			return nil, TypeError("index", cur)
		}
		if fn, ok := idx.(*value.Function); ok {
			res, err := call(fn, []value.Value{cur, k})
			if err != nil {
				return nil, err
			}
			return first(res), nil
		}
		cur = idx
	}
	return nil, fmt.Errorf("'__index' chain too long; possible loop")
}

// NewIndex implements `t[k] = v` (spec.md 4.2): if rawget(t,k) is
// non-nil, raw-set directly (existing keys are never redirected);
// otherwise consult __newindex (table: recurse, function: call with
// (t,k,v)).
func NewIndex(call Caller, t, k, v value.Value) error {
	cur := t
	for depth := 0; depth < maxIndexChainDepth; depth++ {
		tbl, isTable := cur.(*value.Table)
		if isTable {
			if !value.IsNil(tbl.RawGet(k)) {
				return rawSet(tbl, k, v)
			}
		}
		ni := mm(cur, "__newindex")
		if ni == nil {
			if !isTable {
				return TypeError("index", cur)
			}
			return rawSet(tbl, k, v)
		}
		if fn, ok := ni.(*value.Function); ok {
			_, err := call(fn, []value.Value{cur, k, v})
			return err
		}
		cur = ni
	}
	return fmt.Errorf("'__newindex' chain too long; possible loop")
}

func rawSet(t *value.Table, k, v value.Value) error {
	if value.IsNil(k) {
		return fmt.Errorf("table index is nil")
	}
	if f, ok := value.AsFloat(k); ok {
		_ = f
		if isNaN(k) {
			return fmt.Errorf("table index is NaN")
		}
	}
	return t.RawSet(k, v)
}

func isNaN(k value.Value) bool {
	f, ok := k.(value.Float)
	if !ok {
		return false
	}
	return float64(f) != float64(f)
}

func first(vs []value.Value) value.Value {
	if len(vs) == 0 {
		return value.Nil{}
	}
	return vs[0]
}
