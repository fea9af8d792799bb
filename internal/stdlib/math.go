package stdlib

// Math library (spec.md 4.1 adjacent numeric tower operations):
// trigonometric/rounding/exponential functions, maxinteger/mininteger,
// tointeger/type, and random/randomseed built on math/rand (spec.md
// explicitly does not require bit-exact PRNG parity with reference Lua;
// see DESIGN.md).

import (
	"math"
	"math/rand"

	"lua/internal/luaerr"
	"lua/internal/value"
)

func installMath(h Host) {
	lib := newLib(h.Globals(), "math")
	lib.RawSet(value.NewString("pi"), value.Float(math.Pi))
	lib.RawSet(value.NewString("huge"), value.Float(math.Inf(1)))
	lib.RawSet(value.NewString("maxinteger"), value.Int(math.MaxInt64))
	lib.RawSet(value.NewString("mininteger"), value.Int(math.MinInt64))

	unary := func(name string, fn func(float64) float64) {
		set(lib, name, func(args []value.Value) ([]value.Value, error) {
			f, ok := value.AsFloat(argAt(args, 0))
			if !ok {
				return nil, luaerr.Newf(luaerr.TypeError, "bad argument #1 to '%s' (number expected)", name)
			}
			return one(value.Float(fn(f))), nil
		})
	}
	unary("sqrt", math.Sqrt)
	unary("sin", math.Sin)
	unary("cos", math.Cos)
	unary("tan", math.Tan)
	unary("asin", math.Asin)
	unary("acos", math.Acos)
	unary("exp", math.Exp)
	unary("atan", math.Atan)

	set(lib, "log", func(args []value.Value) ([]value.Value, error) {
		f, ok := value.AsFloat(argAt(args, 0))
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'log' (number expected)")
		}
		if len(args) > 1 {
			base, ok := value.AsFloat(args[1])
			if !ok {
				return nil, luaerr.New(luaerr.TypeError, "bad argument #2 to 'log' (number expected)")
			}
			return one(value.Float(math.Log(f) / math.Log(base))), nil
		}
		return one(value.Float(math.Log(f))), nil
	})

	set(lib, "floor", func(args []value.Value) ([]value.Value, error) {
		v := argAt(args, 0)
		if i, ok := v.(value.Int); ok {
			return one(i), nil
		}
		f, ok := value.AsFloat(v)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'floor' (number expected)")
		}
		return one(floatToIntResult(math.Floor(f))), nil
	})
	set(lib, "ceil", func(args []value.Value) ([]value.Value, error) {
		v := argAt(args, 0)
		if i, ok := v.(value.Int); ok {
			return one(i), nil
		}
		f, ok := value.AsFloat(v)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'ceil' (number expected)")
		}
		return one(floatToIntResult(math.Ceil(f))), nil
	})

	set(lib, "abs", func(args []value.Value) ([]value.Value, error) {
		switch x := argAt(args, 0).(type) {
		case value.Int:
			if x < 0 {
				return one(value.Int(-x)), nil
			}
			return one(x), nil
		default:
			f, ok := value.AsFloat(x)
			if !ok {
				return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'abs' (number expected)")
			}
			return one(value.Float(math.Abs(f))), nil
		}
	})

	set(lib, "max", func(args []value.Value) ([]value.Value, error) { return reduceMinMax(args, false) })
	set(lib, "min", func(args []value.Value) ([]value.Value, error) { return reduceMinMax(args, true) })

	set(lib, "fmod", func(args []value.Value) ([]value.Value, error) {
		a, ok1 := value.AsFloat(argAt(args, 0))
		b, ok2 := value.AsFloat(argAt(args, 1))
		if !ok1 || !ok2 {
			return nil, luaerr.New(luaerr.TypeError, "bad argument to 'fmod' (number expected)")
		}
		return one(value.Float(math.Mod(a, b))), nil
	})

	set(lib, "modf", func(args []value.Value) ([]value.Value, error) {
		f, ok := value.AsFloat(argAt(args, 0))
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'modf' (number expected)")
		}
		ip, fp := math.Modf(f)
		return []value.Value{floatToIntResult(ip), value.Float(fp)}, nil
	})

	set(lib, "tointeger", func(args []value.Value) ([]value.Value, error) {
		n, ok := value.ToInteger(argAt(args, 0))
		if !ok {
			return one(value.Nil{}), nil
		}
		return one(value.Int(n)), nil
	})

	set(lib, "type", func(args []value.Value) ([]value.Value, error) {
		switch argAt(args, 0).(type) {
		case value.Int:
			return one(value.NewString("integer")), nil
		case value.Float:
			return one(value.NewString("float")), nil
		default:
			return one(value.Nil{}), nil
		}
	})

	set(lib, "ult", func(args []value.Value) ([]value.Value, error) {
		a, _ := value.ToInteger(argAt(args, 0))
		b, _ := value.ToInteger(argAt(args, 1))
		return one(value.Bool(uint64(a) < uint64(b))), nil
	})

	rng := rand.New(rand.NewSource(1))
	set(lib, "randomseed", func(args []value.Value) ([]value.Value, error) {
		if len(args) == 0 {
			rng = rand.New(rand.NewSource(1))
			return nil, nil
		}
		seed, _ := value.ToInteger(args[0])
		rng = rand.New(rand.NewSource(seed))
		return nil, nil
	})
	set(lib, "random", func(args []value.Value) ([]value.Value, error) {
		switch len(args) {
		case 0:
			return one(value.Float(rng.Float64())), nil
		case 1:
			m, _ := value.ToInteger(args[0])
			if m < 1 {
				return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'random' (interval is empty)")
			}
			return one(value.Int(1 + rng.Int63n(m))), nil
		default:
			lo, _ := value.ToInteger(args[0])
			hi, _ := value.ToInteger(args[1])
			if lo > hi {
				return nil, luaerr.New(luaerr.TypeError, "bad argument #2 to 'random' (interval is empty)")
			}
			return one(value.Int(lo + rng.Int63n(hi-lo+1))), nil
		}
	})
}

func floatToIntResult(f float64) value.Value {
	if i := int64(f); float64(i) == f && !math.IsInf(f, 0) {
		return value.Int(i)
	}
	return value.Float(f)
}

func reduceMinMax(args []value.Value, min bool) ([]value.Value, error) {
	if len(args) == 0 {
		return nil, luaerr.New(luaerr.TypeError, "bad argument #1 to 'max'/'min' (value expected)")
	}
	best := args[0]
	for _, v := range args[1:] {
		lt, _, ok := value.Compare(v, best)
		if !ok {
			return nil, luaerr.New(luaerr.TypeError, "bad argument to 'max'/'min' (number expected)")
		}
		if (min && lt) || (!min && !lt) {
			best = v
		}
	}
	return one(best), nil
}
