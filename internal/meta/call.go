package meta

import "lua/internal/value"

const maxCallChainDepth = 100

// Callable resolves v to a directly-callable *value.Function, following
// __call on non-function values (spec.md 4.1 lists __call among the
// dispatched metamethods). Returns the extra leading argument __call
// prepends (the original callee) via prependSelf, so the caller can
// build the right argument list without re-deriving it.
func Callable(v value.Value) (fn *value.Function, prependSelf value.Value, ok bool) {
	cur := v
	for depth := 0; depth < maxCallChainDepth; depth++ {
		if f, isFn := cur.(*value.Function); isFn {
			if depth == 0 {
				return f, nil, true
			}
			return f, v, true
		}
		c, has := mmFunc(cur, "__call")
		if !has {
			return nil, nil, false
		}
		cur = c
	}
	return nil, nil, false
}
