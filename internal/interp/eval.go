package interp

// Expression evaluation. Eval returns a single value (Lua's "adjusted to
// one" rule); EvalMulti preserves every result a call or `...` produces,
// used only where Lua keeps the full list: the last element of an
// expression list, call arguments, and return statements (spec.md 6).

import (
	"lua/internal/ast"
	"lua/internal/env"
	"lua/internal/luaerr"
	"lua/internal/meta"
	"lua/internal/value"
)

func (i *Interpreter) Eval(e ast.Expr, fr *Frame, sc *env.Env) (value.Value, error) {
	vs, err := i.EvalMulti(e, fr, sc)
	if err != nil {
		return nil, err
	}
	return valAt(vs, 0), nil
}

func (i *Interpreter) EvalMulti(e ast.Expr, fr *Frame, sc *env.Env) ([]value.Value, error) {
	fr.Line = e.Pos()
	switch ex := e.(type) {
	case *ast.NilExpr:
		return one(value.Nil{}), nil
	case *ast.TrueExpr:
		return one(value.Bool(true)), nil
	case *ast.FalseExpr:
		return one(value.Bool(false)), nil
	case *ast.IntExpr:
		return one(value.Int(ex.Value)), nil
	case *ast.FloatExpr:
		return one(value.Float(ex.Value)), nil
	case *ast.StringExpr:
		return one(value.NewString(ex.Value)), nil
	case *ast.VarargExpr:
		return append([]value.Value(nil), fr.Varargs...), nil
	case *ast.NameExpr:
		return one(sc.Get(ex.Name)), nil
	case *ast.UnaryExpr:
		v, err := i.evalUnary(ex, fr, sc)
		return one(v), err
	case *ast.BinaryExpr:
		v, err := i.evalBinary(ex, fr, sc)
		return one(v), err
	case *ast.IndexExpr:
		obj, err := i.Eval(ex.Object, fr, sc)
		if err != nil {
			return nil, err
		}
		key, err := i.Eval(ex.Key, fr, sc)
		if err != nil {
			return nil, err
		}
		v, err := meta.Index(i.Call, obj, key)
		return one(v), err
	case *ast.CallExpr:
		return i.evalCall(ex, fr, sc)
	case *ast.MethodCallExpr:
		return i.evalMethodCall(ex, fr, sc)
	case *ast.FunctionExpr:
		return one(i.makeClosure(ex.Fn, sc)), nil
	case *ast.TableExpr:
		v, err := i.evalTable(ex, fr, sc)
		return one(v), err
	default:
		return nil, luaerr.Newf(luaerr.TypeError, "unhandled expression %T", e)
	}
}

func one(v value.Value) []value.Value { return []value.Value{v} }

func (i *Interpreter) makeClosure(proto *ast.FunctionBody, sc *env.Env) *value.Function {
	return &value.Function{
		Name:     proto.Name,
		Proto:    proto,
		Upvalues: sc,
		IsVararg: proto.IsVararg,
	}
}

// evalExprList evaluates a Lua expression list, where only the final
// expression contributes all of its results (spec.md 6: calls/`...` in
// any position but the last are truncated to one value).
func (i *Interpreter) evalExprList(exprs []ast.Expr, fr *Frame, sc *env.Env) ([]value.Value, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	out := make([]value.Value, 0, len(exprs))
	for idx, e := range exprs[:len(exprs)-1] {
		_ = idx
		v, err := i.Eval(e, fr, sc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	last, err := i.EvalMulti(exprs[len(exprs)-1], fr, sc)
	if err != nil {
		return nil, err
	}
	return append(out, last...), nil
}

func (i *Interpreter) evalCall(ex *ast.CallExpr, fr *Frame, sc *env.Env) ([]value.Value, error) {
	callee, err := i.Eval(ex.Callee, fr, sc)
	if err != nil {
		return nil, err
	}
	args, err := i.evalExprList(ex.Args, fr, sc)
	if err != nil {
		return nil, err
	}
	return i.Call(callee, args)
}

func (i *Interpreter) evalMethodCall(ex *ast.MethodCallExpr, fr *Frame, sc *env.Env) ([]value.Value, error) {
	obj, err := i.Eval(ex.Object, fr, sc)
	if err != nil {
		return nil, err
	}
	method, err := meta.Index(i.Call, obj, value.NewString(ex.Method))
	if err != nil {
		return nil, err
	}
	args, err := i.evalExprList(ex.Args, fr, sc)
	if err != nil {
		return nil, err
	}
	args = append([]value.Value{obj}, args...)
	return i.Call(method, args)
}

func (i *Interpreter) evalTable(ex *ast.TableExpr, fr *Frame, sc *env.Env) (value.Value, error) {
	t := value.NewTable(len(ex.Fields), 0)
	arrayIdx := int64(1)
	for idx, f := range ex.Fields {
		if f.Key != nil {
			k, err := i.Eval(f.Key, fr, sc)
			if err != nil {
				return nil, err
			}
			v, err := i.Eval(f.Value, fr, sc)
			if err != nil {
				return nil, err
			}
			if err := t.RawSet(k, v); err != nil {
				return nil, luaerr.New(luaerr.TypeError, err.Error())
			}
			continue
		}
		// Positional entry: the last one expands fully if it's a call or
		// vararg (spec.md 6's table-constructor multi-value rule).
		if idx == len(ex.Fields)-1 {
			vals, err := i.EvalMulti(f.Value, fr, sc)
			if err != nil {
				return nil, err
			}
			for _, v := range vals {
				if err := t.RawSet(value.Int(arrayIdx), v); err != nil {
					return nil, luaerr.New(luaerr.TypeError, err.Error())
				}
				arrayIdx++
			}
			continue
		}
		v, err := i.Eval(f.Value, fr, sc)
		if err != nil {
			return nil, err
		}
		if err := t.RawSet(value.Int(arrayIdx), v); err != nil {
			return nil, luaerr.New(luaerr.TypeError, err.Error())
		}
		arrayIdx++
	}
	return t, nil
}

func (i *Interpreter) evalUnary(ex *ast.UnaryExpr, fr *Frame, sc *env.Env) (value.Value, error) {
	v, err := i.Eval(ex.Operand, fr, sc)
	if err != nil {
		return nil, err
	}
	switch ex.Op {
	case "-":
		return meta.Arith(i.Call, value.OpUnm, v, nil)
	case "not":
		return value.Bool(!value.IsTruthy(v)), nil
	case "#":
		return meta.Len(i.Call, v)
	case "~":
		return meta.Arith(i.Call, value.OpBNot, v, nil)
	default:
		return nil, luaerr.Newf(luaerr.TypeError, "unknown unary operator %q", ex.Op)
	}
}

func (i *Interpreter) evalBinary(ex *ast.BinaryExpr, fr *Frame, sc *env.Env) (value.Value, error) {
	switch ex.Op {
	case "and":
		l, err := i.Eval(ex.Left, fr, sc)
		if err != nil {
			return nil, err
		}
		if !value.IsTruthy(l) {
			return l, nil
		}
		return i.Eval(ex.Right, fr, sc)
	case "or":
		l, err := i.Eval(ex.Left, fr, sc)
		if err != nil {
			return nil, err
		}
		if value.IsTruthy(l) {
			return l, nil
		}
		return i.Eval(ex.Right, fr, sc)
	}
	l, err := i.Eval(ex.Left, fr, sc)
	if err != nil {
		return nil, err
	}
	r, err := i.Eval(ex.Right, fr, sc)
	if err != nil {
		return nil, err
	}
	switch ex.Op {
	case "+":
		return meta.Arith(i.Call, value.OpAdd, l, r)
	case "-":
		return meta.Arith(i.Call, value.OpSub, l, r)
	case "*":
		return meta.Arith(i.Call, value.OpMul, l, r)
	case "/":
		return meta.Arith(i.Call, value.OpDiv, l, r)
	case "//":
		return meta.Arith(i.Call, value.OpIDiv, l, r)
	case "%":
		return meta.Arith(i.Call, value.OpMod, l, r)
	case "^":
		return meta.Arith(i.Call, value.OpPow, l, r)
	case "&":
		return meta.Arith(i.Call, value.OpBAnd, l, r)
	case "|":
		return meta.Arith(i.Call, value.OpBOr, l, r)
	case "~":
		return meta.Arith(i.Call, value.OpBXor, l, r)
	case "<<":
		return meta.Arith(i.Call, value.OpShl, l, r)
	case ">>":
		return meta.Arith(i.Call, value.OpShr, l, r)
	case "..":
		return meta.Concat(i.Call, l, r)
	case "==":
		eq, err := meta.Equal(i.Call, l, r)
		return value.Bool(eq), err
	case "~=":
		eq, err := meta.Equal(i.Call, l, r)
		return value.Bool(!eq), err
	case "<":
		lt, err := meta.Less(i.Call, l, r)
		return value.Bool(lt), err
	case "<=":
		le, err := meta.LessEqual(i.Call, l, r)
		return value.Bool(le), err
	case ">":
		gt, err := meta.Less(i.Call, r, l)
		return value.Bool(gt), err
	case ">=":
		ge, err := meta.LessEqual(i.Call, r, l)
		return value.Bool(ge), err
	default:
		return nil, luaerr.Newf(luaerr.TypeError, "unknown binary operator %q", ex.Op)
	}
}
