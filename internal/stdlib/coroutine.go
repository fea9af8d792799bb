package stdlib

// Coroutine library (spec.md 4.5): create/resume/yield/status/wrap/
// close/running/isyieldable, wired onto internal/coro's channel-
// rendezvous scheduler via Host.CallYieldable/CurrentYield.

import (
	"lua/internal/coro"
	"lua/internal/luaerr"
	"lua/internal/value"
)

func installCoroutine(h Host) {
	lib := newLib(h.Globals(), "coroutine")

	bodyFor := func(fn *value.Function) func(co *value.Coroutine) coro.Body {
		return func(co *value.Coroutine) coro.Body {
			return func(yield coro.YieldFunc, args []value.Value) ([]value.Value, error) {
				if coro.IsCloseSignal(args) {
					return nil, nil
				}
				return h.CallYieldable(fn, args, yield, co)
			}
		}
	}

	set(lib, "create", func(args []value.Value) ([]value.Value, error) {
		fn, ok := argAt(args, 0).(*value.Function)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'create' (function expected)")
		}
		co := coro.NewValue(fn, bodyFor(fn))
		return one(co), nil
	})

	asCoro := func(v value.Value) (*value.Coroutine, *coro.Coroutine, error) {
		co, ok := v.(*value.Coroutine)
		if !ok {
			return nil, nil, luaerr.New(luaerr.TypeError, "bad argument (coroutine expected)")
		}
		impl, ok := co.Impl.(*coro.Coroutine)
		if !ok {
			return nil, nil, luaerr.New(luaerr.CoroutineError, "corrupt coroutine handle")
		}
		return co, impl, nil
	}

	set(lib, "resume", func(args []value.Value) ([]value.Value, error) {
		_, impl, err := asCoro(argAt(args, 0))
		if err != nil {
			return nil, err
		}
		vals, ok, rerr := impl.Resume(args[1:])
		if !ok {
			return []value.Value{value.Bool(false), luaerr.AsValue(rerr)}, nil
		}
		return append([]value.Value{value.Bool(true)}, vals...), nil
	})

	set(lib, "yield", func(args []value.Value) ([]value.Value, error) {
		yield, ok := h.CurrentYield()
		if !ok {
			if h.YieldBlocked() {
				return nil, luaerr.New(luaerr.CoroutineError, "attempt to yield across a C-call boundary")
			}
			return nil, luaerr.New(luaerr.CoroutineError, "attempt to yield from outside a coroutine")
		}
		return yield(args)
	})

	set(lib, "status", func(args []value.Value) ([]value.Value, error) {
		_, impl, err := asCoro(argAt(args, 0))
		if err != nil {
			return nil, err
		}
		return one(value.NewString(impl.Status().String())), nil
	})

	set(lib, "wrap", func(args []value.Value) ([]value.Value, error) {
		fn, ok := argAt(args, 0).(*value.Function)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'wrap' (function expected)")
		}
		co := coro.NewValue(fn, bodyFor(fn))
		impl := co.Impl.(*coro.Coroutine)
		return one(value.NewGoFunc("wrapped coroutine", coro.Wrap(impl))), nil
	})

	set(lib, "close", func(args []value.Value) ([]value.Value, error) {
		_, impl, err := asCoro(argAt(args, 0))
		if err != nil {
			return nil, err
		}
		if cerr := impl.Close(); cerr != nil {
			return []value.Value{value.Bool(false), luaerr.AsValue(cerr)}, nil
		}
		return one(value.Bool(true)), nil
	})

	set(lib, "running", func(args []value.Value) ([]value.Value, error) {
		co, isMain := h.CurrentCoroutine()
		if co == nil {
			return []value.Value{value.Nil{}, value.Bool(isMain)}, nil
		}
		return []value.Value{co, value.Bool(isMain)}, nil
	})

	set(lib, "isyieldable", func(args []value.Value) ([]value.Value, error) {
		_, ok := h.CurrentYield()
		return one(value.Bool(ok)), nil
	})
}
