package interp

// Statement execution: each Lua block is a scope boundary (a fresh
// child env.Env), walked with an explicit ctrl result type rather than
// Go panic/recover, mirroring the teacher's EnhancedVM opcode loop
// returning a plain (value, error, done) triple instead of unwinding the
// Go stack for control flow (sentra/internal/vm/vm.go's Run loop).

import (
	"lua/internal/ast"
	"lua/internal/env"
	"lua/internal/luaerr"
	"lua/internal/meta"
	"lua/internal/value"
)

type ctrlKind int

const (
	ctrlNone ctrlKind = iota
	ctrlBreak
	ctrlReturn
	ctrlGoto
)

type ctrl struct {
	kind  ctrlKind
	vals  []value.Value
	label string
}

// execBlock runs block in a fresh child scope of parentEnv, resolving
// goto targets within the block itself before propagating an unresolved
// goto (or break/return) to the caller.
func (i *Interpreter) execBlock(block *ast.Block, fr *Frame, parentEnv *env.Env) (ctrl, error) {
	sc := env.Child(parentEnv)
	startClose := len(fr.toClose)
	idx := 0
	for idx < len(block.Stmts) {
		c, err := i.execStmt(block.Stmts[idx], fr, sc)
		if err != nil {
			cerr := i.unwindToClose(fr, startClose, err)
			return ctrl{}, cerr
		}
		switch c.kind {
		case ctrlNone:
			idx++
			continue
		case ctrlGoto:
			if j, ok := findLabel(block, c.label); ok {
				idx = j
				continue
			}
		}
		if cerr := i.unwindToClose(fr, startClose, nil); cerr != nil {
			return ctrl{}, cerr
		}
		return c, nil
	}
	if cerr := i.unwindToClose(fr, startClose, nil); cerr != nil {
		return ctrl{}, cerr
	}
	return ctrl{}, nil
}

// unwindToClose runs __close (in reverse declaration order) on any
// to-be-closed locals this block registered, then truncates them off the
// frame's list (spec.md 4.10). bodyErr is the error the block is
// unwinding from, or nil on normal/break/return exit.
func (i *Interpreter) unwindToClose(fr *Frame, from int, bodyErr error) error {
	if len(fr.toClose) <= from {
		return bodyErr
	}
	var errVal value.Value = value.Nil{}
	if bodyErr != nil {
		errVal = luaerr.AsValue(bodyErr)
	}
	firstErr := bodyErr
	for idx := len(fr.toClose) - 1; idx >= from; idx-- {
		obj := fr.toClose[idx]
		if value.IsNil(obj) {
			continue
		}
		if b, ok := obj.(value.Bool); ok && !bool(b) {
			continue
		}
		if cerr := meta.Close(i.Call, obj, errVal); cerr != nil && firstErr == nil {
			firstErr = cerr
		}
	}
	fr.toClose = fr.toClose[:from]
	return firstErr
}

func findLabel(block *ast.Block, name string) (int, bool) {
	for idx, s := range block.Stmts {
		if l, ok := s.(*ast.LabelStmt); ok && l.Name == name {
			return idx, true
		}
	}
	return 0, false
}

func (i *Interpreter) execStmt(s ast.Stmt, fr *Frame, sc *env.Env) (ctrl, error) {
	fr.Line = s.Pos()
	switch st := s.(type) {
	case *ast.LocalStmt:
		return ctrl{}, i.execLocal(st, fr, sc)
	case *ast.AssignStmt:
		return ctrl{}, i.execAssign(st, fr, sc)
	case *ast.ExprStmt:
		_, err := i.EvalMulti(st.Call, fr, sc)
		return ctrl{}, err
	case *ast.DoStmt:
		return i.execBlock(st.Body, fr, sc)
	case *ast.IfStmt:
		return i.execIf(st, fr, sc)
	case *ast.WhileStmt:
		return i.execWhile(st, fr, sc)
	case *ast.RepeatStmt:
		return i.execRepeat(st, fr, sc)
	case *ast.NumericForStmt:
		return i.execNumericFor(st, fr, sc)
	case *ast.GenericForStmt:
		return i.execGenericFor(st, fr, sc)
	case *ast.ReturnStmt:
		vals, err := i.evalExprList(st.Exprs, fr, sc)
		if err != nil {
			return ctrl{}, err
		}
		return ctrl{kind: ctrlReturn, vals: vals}, nil
	case *ast.BreakStmt:
		return ctrl{kind: ctrlBreak}, nil
	case *ast.GotoStmt:
		return ctrl{kind: ctrlGoto, label: st.Label}, nil
	case *ast.LabelStmt:
		return ctrl{}, nil
	case *ast.FunctionDeclStmt:
		return ctrl{}, i.execFunctionDecl(st, fr, sc)
	default:
		return ctrl{}, luaerr.Newf(luaerr.TypeError, "unhandled statement %T", s)
	}
}

func (i *Interpreter) execLocal(st *ast.LocalStmt, fr *Frame, sc *env.Env) error {
	vals, err := i.evalExprList(st.Exprs, fr, sc)
	if err != nil {
		return err
	}
	for idx, name := range st.Names {
		var v value.Value = value.Nil{}
		if idx < len(vals) {
			v = vals[idx]
		}
		sc.Declare(name, v)
		attrib := ""
		if idx < len(st.Attribs) {
			attrib = st.Attribs[idx]
		}
		if attrib == "close" {
			if !meta.HasClose(v) && !value.IsNil(v) {
				return luaerr.Newf(luaerr.TypeError, "variable '%s' got a non-closable value", name)
			}
			fr.toClose = append(fr.toClose, v)
		}
	}
	return nil
}

func (i *Interpreter) execAssign(st *ast.AssignStmt, fr *Frame, sc *env.Env) error {
	vals, err := i.evalExprList(st.Exprs, fr, sc)
	if err != nil {
		return err
	}
	for idx, target := range st.Targets {
		var v value.Value = value.Nil{}
		if idx < len(vals) {
			v = vals[idx]
		}
		if err := i.assign(target, v, fr, sc); err != nil {
			return err
		}
	}
	return nil
}

func (i *Interpreter) assign(target ast.Expr, v value.Value, fr *Frame, sc *env.Env) error {
	switch t := target.(type) {
	case *ast.NameExpr:
		sc.Set(t.Name, v)
		return nil
	case *ast.IndexExpr:
		obj, err := i.Eval(t.Object, fr, sc)
		if err != nil {
			return err
		}
		key, err := i.Eval(t.Key, fr, sc)
		if err != nil {
			return err
		}
		return meta.NewIndex(i.Call, obj, key, v)
	default:
		return luaerr.Newf(luaerr.TypeError, "cannot assign to %T", target)
	}
}

func (i *Interpreter) execIf(st *ast.IfStmt, fr *Frame, sc *env.Env) (ctrl, error) {
	for idx, cond := range st.Conds {
		v, err := i.Eval(cond, fr, sc)
		if err != nil {
			return ctrl{}, err
		}
		if value.IsTruthy(v) {
			return i.execBlock(st.Blocks[idx], fr, sc)
		}
	}
	if st.Else != nil {
		return i.execBlock(st.Else, fr, sc)
	}
	return ctrl{}, nil
}

func (i *Interpreter) execWhile(st *ast.WhileStmt, fr *Frame, sc *env.Env) (ctrl, error) {
	for {
		cv, err := i.Eval(st.Cond, fr, sc)
		if err != nil {
			return ctrl{}, err
		}
		if !value.IsTruthy(cv) {
			return ctrl{}, nil
		}
		c, err := i.execBlock(st.Body, fr, sc)
		if err != nil {
			return ctrl{}, err
		}
		switch c.kind {
		case ctrlBreak:
			return ctrl{}, nil
		case ctrlReturn, ctrlGoto:
			return c, nil
		}
	}
}

func (i *Interpreter) execRepeat(st *ast.RepeatStmt, fr *Frame, sc *env.Env) (ctrl, error) {
	for {
		// repeat...until's condition can see the body's locals, so the
		// body's scope is threaded through to the condition check rather
		// than execBlock's usual fresh, discarded scope (spec.md 6).
		inner := env.Child(sc)
		c, err := i.execStmtsInScope(st.Body, fr, inner)
		if err != nil {
			return ctrl{}, err
		}
		switch c.kind {
		case ctrlBreak:
			return ctrl{}, nil
		case ctrlReturn, ctrlGoto:
			return c, nil
		}
		cv, err := i.Eval(st.Cond, fr, inner)
		if err != nil {
			return ctrl{}, err
		}
		if value.IsTruthy(cv) {
			return ctrl{}, nil
		}
	}
}

// execStmtsInScope runs block's statements directly in sc (no further
// child scope), used by repeat/until so the until-condition shares the
// body's locals.
func (i *Interpreter) execStmtsInScope(block *ast.Block, fr *Frame, sc *env.Env) (ctrl, error) {
	idx := 0
	for idx < len(block.Stmts) {
		c, err := i.execStmt(block.Stmts[idx], fr, sc)
		if err != nil {
			return ctrl{}, err
		}
		if c.kind == ctrlGoto {
			if j, ok := findLabel(block, c.label); ok {
				idx = j
				continue
			}
			return c, nil
		}
		if c.kind != ctrlNone {
			return c, nil
		}
		idx++
	}
	return ctrl{}, nil
}

func (i *Interpreter) execNumericFor(st *ast.NumericForStmt, fr *Frame, sc *env.Env) (ctrl, error) {
	start, err := i.Eval(st.Start, fr, sc)
	if err != nil {
		return ctrl{}, err
	}
	stop, err := i.Eval(st.Stop, fr, sc)
	if err != nil {
		return ctrl{}, err
	}
	var step value.Value = value.Int(1)
	if st.Step != nil {
		step, err = i.Eval(st.Step, fr, sc)
		if err != nil {
			return ctrl{}, err
		}
	}
	if si, sok := start.(value.Int); sok {
		if ei, eok := stop.(value.Int); eok {
			if pi, pok := step.(value.Int); pok {
				return i.numericForInt(st, fr, sc, int64(si), int64(ei), int64(pi))
			}
		}
	}
	sf, ok1 := value.AsFloat(start)
	ef, ok2 := value.AsFloat(stop)
	pf, ok3 := value.AsFloat(step)
	if !ok1 || !ok2 || !ok3 {
		return ctrl{}, luaerr.New(luaerr.TypeError, "'for' initial value must be a number")
	}
	if pf == 0 {
		return ctrl{}, luaerr.New(luaerr.TypeError, "'for' step is zero")
	}
	for v := sf; (pf > 0 && v <= ef) || (pf < 0 && v >= ef); v += pf {
		inner := env.Child(sc)
		inner.Declare(st.Name, value.Float(v))
		c, err := i.execBlock(st.Body, fr, inner)
		if err != nil {
			return ctrl{}, err
		}
		if c.kind == ctrlBreak {
			return ctrl{}, nil
		}
		if c.kind != ctrlNone {
			return c, nil
		}
	}
	return ctrl{}, nil
}

func (i *Interpreter) numericForInt(st *ast.NumericForStmt, fr *Frame, sc *env.Env, start, stop, step int64) (ctrl, error) {
	if step == 0 {
		return ctrl{}, luaerr.New(luaerr.TypeError, "'for' step is zero")
	}
	for v := start; (step > 0 && v <= stop) || (step < 0 && v >= stop); v += step {
		inner := env.Child(sc)
		inner.Declare(st.Name, value.Int(v))
		c, err := i.execBlock(st.Body, fr, inner)
		if err != nil {
			return ctrl{}, err
		}
		if c.kind == ctrlBreak {
			return ctrl{}, nil
		}
		if c.kind != ctrlNone {
			return c, nil
		}
		// overflow guard: if the next increment would wrap past stop
		// given the signed range, stop (spec.md 4.4's "integer for loops
		// never wrap").
		if step > 0 && v > stop-step {
			break
		}
		if step < 0 && v < stop-step {
			break
		}
	}
	return ctrl{}, nil
}

func (i *Interpreter) execGenericFor(st *ast.GenericForStmt, fr *Frame, sc *env.Env) (ctrl, error) {
	vals, err := i.evalExprList(st.Exprs, fr, sc)
	if err != nil {
		return ctrl{}, err
	}
	iterFn := valAt(vals, 0)
	state := valAt(vals, 1)
	control := valAt(vals, 2)

	for {
		res, err := i.Call(iterFn, []value.Value{state, control})
		if err != nil {
			return ctrl{}, err
		}
		if len(res) == 0 || value.IsNil(res[0]) {
			return ctrl{}, nil
		}
		control = res[0]
		inner := env.Child(sc)
		for idx, name := range st.Names {
			var v value.Value = value.Nil{}
			if idx < len(res) {
				v = res[idx]
			}
			inner.Declare(name, v)
		}
		c, err := i.execBlock(st.Body, fr, inner)
		if err != nil {
			return ctrl{}, err
		}
		if c.kind == ctrlBreak {
			return ctrl{}, nil
		}
		if c.kind != ctrlNone {
			return c, nil
		}
	}
}

func (i *Interpreter) execFunctionDecl(st *ast.FunctionDeclStmt, fr *Frame, sc *env.Env) error {
	proto := st.Fn
	if st.IsMethod {
		params := append([]string{"self"}, proto.Params...)
		proto = &ast.FunctionBody{
			Node:     proto.Node,
			Params:   params,
			IsVararg: proto.IsVararg,
			Body:     proto.Body,
			Name:     proto.Name,
		}
	}
	fn := &value.Function{
		Name:     funcDeclName(st.Target),
		Proto:    proto,
		Upvalues: sc,
		IsVararg: proto.IsVararg,
	}
	if st.IsLocal {
		if name, ok := st.Target.(*ast.NameExpr); ok {
			sc.Declare(name.Name, fn)
			return nil
		}
	}
	return i.assign(st.Target, fn, fr, sc)
}

func funcDeclName(target ast.Expr) string {
	switch t := target.(type) {
	case *ast.NameExpr:
		return t.Name
	case *ast.IndexExpr:
		if s, ok := t.Key.(*ast.StringExpr); ok {
			return s.Value
		}
	}
	return "?"
}

func valAt(vs []value.Value, idx int) value.Value {
	if idx < len(vs) {
		return vs[idx]
	}
	return value.Nil{}
}
