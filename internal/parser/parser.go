// Package parser implements a recursive-descent parser that turns a Lua
// token stream into internal/ast nodes (spec.md 6's external-collaborator
// contract; this is the module's own conforming producer, SPEC_FULL.md
// section D).
//
// Adapted from the teacher's internal/parser/parser.go: the Parser struct
// shape (tokens/current cursor, NewParser, the match/check/advance/expect
// helper family, Errors accumulation) is kept; the grammar itself is
// replaced with Lua 5.4 statements/expressions/precedence instead of the
// teacher's JS-like one.
package parser

import (
	"fmt"

	"lua/internal/ast"
	"lua/internal/lexer"
)

type Parser struct {
	tokens  []lexer.Token
	current int
	file    string
	Errors  []error
}

func NewParser(tokens []lexer.Token, file string) *Parser {
	return &Parser{tokens: tokens, file: file}
}

// Parse parses a full chunk (spec.md 6's top-level "chunk" node).
func Parse(source, file string) (*ast.Chunk, error) {
	toks, err := lexer.NewScanner(source).ScanTokens()
	if err != nil {
		return nil, fmt.Errorf("%s:%s", file, err.Error())
	}
	p := NewParser(toks, file)
	body := p.block()
	if !p.isAtEnd() {
		p.errorf("'<eof>' expected near '%s'", p.peek().Lexeme)
	}
	if len(p.Errors) > 0 {
		return nil, p.Errors[0]
	}
	return &ast.Chunk{Name: file, Body: body}, nil
}

func (p *Parser) errorf(format string, args ...any) {
	msg := fmt.Sprintf("%s:%d: ", p.file, p.peekLine()) + fmt.Sprintf(format, args...)
	p.Errors = append(p.Errors, fmt.Errorf("%s", msg))
}

func (p *Parser) peekLine() int {
	if p.current < len(p.tokens) {
		return p.tokens[p.current].Line
	}
	if len(p.tokens) > 0 {
		return p.tokens[len(p.tokens)-1].Line
	}
	return 0
}

func (p *Parser) peek() lexer.Token  { return p.tokens[p.current] }
func (p *Parser) prev() lexer.Token  { return p.tokens[p.current-1] }
func (p *Parser) isAtEnd() bool      { return p.peek().Type == lexer.TokenEOF }

func (p *Parser) check(t lexer.TokenType) bool {
	if p.isAtEnd() {
		return t == lexer.TokenEOF
	}
	return p.peek().Type == t
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.prev()
}

func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) expect(t lexer.TokenType, ctx string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	p.errorf("'%s' expected %s near '%s'", t, ctx, p.peek().Lexeme)
	return p.peek()
}

// atBlockEnd reports whether the next token terminates a Block in Lua's grammar.
func (p *Parser) atBlockEnd() bool {
	switch p.peek().Type {
	case lexer.TokenEOF, lexer.TokenEnd, lexer.TokenElse, lexer.TokenElseif, lexer.TokenUntil:
		return true
	}
	return false
}

func (p *Parser) block() *ast.Block {
	b := &ast.Block{}
	for !p.atBlockEnd() {
		if p.match(lexer.TokenSemicolon) {
			continue
		}
		if p.check(lexer.TokenReturn) {
			b.Stmts = append(b.Stmts, p.returnStmt())
			break
		}
		b.Stmts = append(b.Stmts, p.statement())
		if len(p.Errors) > 100 {
			break
		}
	}
	return b
}

func (p *Parser) node() ast.Node { return ast.Node{Line: p.peekLine()} }

func (p *Parser) statement() ast.Stmt {
	switch p.peek().Type {
	case lexer.TokenLocal:
		return p.localStmt()
	case lexer.TokenIf:
		return p.ifStmt()
	case lexer.TokenWhile:
		return p.whileStmt()
	case lexer.TokenRepeat:
		return p.repeatStmt()
	case lexer.TokenFor:
		return p.forStmt()
	case lexer.TokenDo:
		return p.doStmt()
	case lexer.TokenFunction:
		return p.functionDeclStmt()
	case lexer.TokenBreak:
		n := p.node()
		p.advance()
		return &ast.BreakStmt{Node: n}
	case lexer.TokenGoto:
		n := p.node()
		p.advance()
		name := p.expect(lexer.TokenIdent, "after 'goto'").Lexeme
		return &ast.GotoStmt{Node: n, Label: name}
	case lexer.TokenDoubleColon:
		n := p.node()
		p.advance()
		name := p.expect(lexer.TokenIdent, "in label").Lexeme
		p.expect(lexer.TokenDoubleColon, "to close label")
		return &ast.LabelStmt{Node: n, Name: name}
	default:
		return p.exprOrAssignStmt()
	}
}

func (p *Parser) returnStmt() ast.Stmt {
	n := p.node()
	p.advance() // 'return'
	var exprs []ast.Expr
	if !p.atBlockEnd() && !p.check(lexer.TokenSemicolon) {
		exprs = p.exprList()
	}
	p.match(lexer.TokenSemicolon)
	return &ast.ReturnStmt{Node: n, Exprs: exprs}
}

func (p *Parser) localStmt() ast.Stmt {
	n := p.node()
	p.advance() // 'local'
	if p.check(lexer.TokenFunction) {
		p.advance()
		name := p.expect(lexer.TokenIdent, "after 'local function'").Lexeme
		fn := p.functionBody(name)
		return &ast.FunctionDeclStmt{Node: n, Target: &ast.NameExpr{Node: n, Name: name}, Fn: fn, IsLocal: true}
	}
	var names []string
	var attribs []string
	for {
		names = append(names, p.expect(lexer.TokenIdent, "in local list").Lexeme)
		attribs = append(attribs, p.attrib())
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	var exprs []ast.Expr
	if p.match(lexer.TokenEqual) {
		exprs = p.exprList()
	}
	return &ast.LocalStmt{Node: n, Names: names, Attribs: attribs, Exprs: exprs}
}

func (p *Parser) attrib() string {
	if p.match(lexer.TokenLT) {
		name := p.expect(lexer.TokenIdent, "in attribute").Lexeme
		p.expect(lexer.TokenGT, "to close attribute")
		return name
	}
	return ""
}

func (p *Parser) ifStmt() ast.Stmt {
	n := p.node()
	p.advance() // 'if'
	stmt := &ast.IfStmt{Node: n}
	stmt.Conds = append(stmt.Conds, p.expr())
	p.expect(lexer.TokenThen, "in if statement")
	stmt.Blocks = append(stmt.Blocks, p.block())
	for p.check(lexer.TokenElseif) {
		p.advance()
		stmt.Conds = append(stmt.Conds, p.expr())
		p.expect(lexer.TokenThen, "in elseif")
		stmt.Blocks = append(stmt.Blocks, p.block())
	}
	if p.match(lexer.TokenElse) {
		stmt.Else = p.block()
	}
	p.expect(lexer.TokenEnd, "to close if")
	return stmt
}

func (p *Parser) whileStmt() ast.Stmt {
	n := p.node()
	p.advance()
	cond := p.expr()
	p.expect(lexer.TokenDo, "in while")
	body := p.block()
	p.expect(lexer.TokenEnd, "to close while")
	return &ast.WhileStmt{Node: n, Cond: cond, Body: body}
}

func (p *Parser) repeatStmt() ast.Stmt {
	n := p.node()
	p.advance()
	body := p.block()
	p.expect(lexer.TokenUntil, "to close repeat")
	cond := p.expr()
	return &ast.RepeatStmt{Node: n, Body: body, Cond: cond}
}

func (p *Parser) doStmt() ast.Stmt {
	n := p.node()
	p.advance()
	body := p.block()
	p.expect(lexer.TokenEnd, "to close do")
	return &ast.DoStmt{Node: n, Body: body}
}

func (p *Parser) forStmt() ast.Stmt {
	n := p.node()
	p.advance()
	name1 := p.expect(lexer.TokenIdent, "in for").Lexeme
	if p.match(lexer.TokenEqual) {
		start := p.expr()
		p.expect(lexer.TokenComma, "in numeric for")
		stop := p.expr()
		var step ast.Expr
		if p.match(lexer.TokenComma) {
			step = p.expr()
		}
		p.expect(lexer.TokenDo, "in numeric for")
		body := p.block()
		p.expect(lexer.TokenEnd, "to close for")
		return &ast.NumericForStmt{Node: n, Name: name1, Start: start, Stop: stop, Step: step, Body: body}
	}
	names := []string{name1}
	for p.match(lexer.TokenComma) {
		names = append(names, p.expect(lexer.TokenIdent, "in for names").Lexeme)
	}
	p.expect(lexer.TokenIn, "in generic for")
	exprs := p.exprList()
	p.expect(lexer.TokenDo, "in generic for")
	body := p.block()
	p.expect(lexer.TokenEnd, "to close for")
	return &ast.GenericForStmt{Node: n, Names: names, Exprs: exprs, Body: body}
}

func (p *Parser) functionDeclStmt() ast.Stmt {
	n := p.node()
	p.advance() // 'function'
	var target ast.Expr = &ast.NameExpr{Node: p.node(), Name: p.expect(lexer.TokenIdent, "after 'function'").Lexeme}
	isMethod := false
	for p.check(lexer.TokenDot) || p.check(lexer.TokenColon) {
		isMethod = p.peek().Type == lexer.TokenColon
		p.advance()
		field := p.expect(lexer.TokenIdent, "after '.' or ':' in function name").Lexeme
		target = &ast.IndexExpr{Node: p.node(), Object: target, Key: &ast.StringExpr{Node: p.node(), Value: field}}
		if isMethod {
			break
		}
	}
	name := functionTargetName(target)
	fn := p.functionBody(name)
	return &ast.FunctionDeclStmt{Node: n, Target: target, IsMethod: isMethod, Fn: fn}
}

func functionTargetName(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.NameExpr:
		return x.Name
	case *ast.IndexExpr:
		if s, ok := x.Key.(*ast.StringExpr); ok {
			return s.Value
		}
	}
	return "?"
}

func (p *Parser) functionBody(name string) *ast.FunctionBody {
	n := p.node()
	p.expect(lexer.TokenLParen, "after function name")
	var params []string
	vararg := false
	if !p.check(lexer.TokenRParen) {
		for {
			if p.check(lexer.TokenEllipsis) {
				p.advance()
				vararg = true
				break
			}
			params = append(params, p.expect(lexer.TokenIdent, "in parameter list").Lexeme)
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.expect(lexer.TokenRParen, "to close parameter list")
	body := p.block()
	p.expect(lexer.TokenEnd, "to close function")
	return &ast.FunctionBody{Node: n, Params: params, IsVararg: vararg, Body: body, Name: name}
}

// exprOrAssignStmt parses either a bare call statement (`f(x)`) or an
// assignment (`a, b.c = 1, 2`); both start with a prefixexpr.
func (p *Parser) exprOrAssignStmt() ast.Stmt {
	n := p.node()
	first := p.suffixedExpr()
	if p.check(lexer.TokenEqual) || p.check(lexer.TokenComma) {
		targets := []ast.Expr{first}
		for p.match(lexer.TokenComma) {
			targets = append(targets, p.suffixedExpr())
		}
		p.expect(lexer.TokenEqual, "in assignment")
		exprs := p.exprList()
		return &ast.AssignStmt{Node: n, Targets: targets, Exprs: exprs}
	}
	return &ast.ExprStmt{Node: n, Call: first}
}

func (p *Parser) exprList() []ast.Expr {
	exprs := []ast.Expr{p.expr()}
	for p.match(lexer.TokenComma) {
		exprs = append(exprs, p.expr())
	}
	return exprs
}

// ---- Expressions: precedence-climbing ----

var binPrec = map[lexer.TokenType][2]int{ // {left, right} binding power
	lexer.TokenOr:          {1, 1},
	lexer.TokenAnd:         {2, 2},
	lexer.TokenLT:          {3, 3}, lexer.TokenGT: {3, 3}, lexer.TokenLE: {3, 3},
	lexer.TokenGE:          {3, 3}, lexer.TokenDoubleEqual: {3, 3}, lexer.TokenNotEqual: {3, 3},
	lexer.TokenPipe:        {4, 4},
	lexer.TokenTilde:       {5, 5},
	lexer.TokenAmp:         {6, 6},
	lexer.TokenShl:         {7, 7}, lexer.TokenShr: {7, 7},
	lexer.TokenDotDot:      {9, 8}, // right-assoc
	lexer.TokenPlus:        {10, 10}, lexer.TokenMinus: {10, 10},
	lexer.TokenStar:        {11, 11}, lexer.TokenSlash: {11, 11},
	lexer.TokenDSlash:      {11, 11}, lexer.TokenPercent: {11, 11},
	lexer.TokenCaret:       {14, 13}, // right-assoc, binds tighter than unary
}

const unaryPrec = 12

func (p *Parser) expr() ast.Expr { return p.subExpr(0) }

func (p *Parser) subExpr(limit int) ast.Expr {
	var left ast.Expr
	n := p.node()
	if p.check(lexer.TokenNot) || p.check(lexer.TokenMinus) || p.check(lexer.TokenHash) || p.check(lexer.TokenTilde) {
		op := p.advance().Lexeme
		operand := p.subExpr(unaryPrec)
		left = &ast.UnaryExpr{Node: n, Op: op, Operand: operand}
	} else {
		left = p.simpleExpr()
	}
	for {
		prec, ok := binPrec[p.peek().Type]
		if !ok || prec[0] <= limit {
			break
		}
		opTok := p.advance()
		right := p.subExpr(prec[1])
		left = &ast.BinaryExpr{Node: ast.Node{Line: opTok.Line}, Op: opTok.Lexeme, Left: left, Right: right}
	}
	return left
}

func (p *Parser) simpleExpr() ast.Expr {
	n := p.node()
	switch p.peek().Type {
	case lexer.TokenInt:
		return p.intLit(n)
	case lexer.TokenFloat:
		return p.floatLit(n)
	case lexer.TokenString:
		tok := p.advance()
		return &ast.StringExpr{Node: n, Value: tok.Lexeme}
	case lexer.TokenNil:
		p.advance()
		return &ast.NilExpr{Node: n}
	case lexer.TokenTrue:
		p.advance()
		return &ast.TrueExpr{Node: n}
	case lexer.TokenFalse:
		p.advance()
		return &ast.FalseExpr{Node: n}
	case lexer.TokenEllipsis:
		p.advance()
		return &ast.VarargExpr{Node: n}
	case lexer.TokenFunction:
		p.advance()
		fn := p.functionBody("")
		return &ast.FunctionExpr{Node: n, Fn: fn}
	case lexer.TokenLBrace:
		return p.tableExpr()
	default:
		return p.suffixedExpr()
	}
}

func (p *Parser) intLit(n ast.Node) ast.Expr {
	tok := p.advance()
	v, err := parseIntLiteral(tok.Lexeme)
	if err != nil {
		// Overflowing decimal integer literals are floats in Lua 5.4.
		f, ferr := parseFloatLiteral(tok.Lexeme)
		if ferr == nil {
			return &ast.FloatExpr{Node: n, Value: f}
		}
		p.errorf("malformed number near '%s'", tok.Lexeme)
	}
	return &ast.IntExpr{Node: n, Value: v}
}

func (p *Parser) floatLit(n ast.Node) ast.Expr {
	tok := p.advance()
	f, err := parseFloatLiteral(tok.Lexeme)
	if err != nil {
		p.errorf("malformed number near '%s'", tok.Lexeme)
	}
	return &ast.FloatExpr{Node: n, Value: f}
}

// primaryExpr parses a Name or a parenthesized expression (the start of
// a prefixexpr chain).
func (p *Parser) primaryExpr() ast.Expr {
	n := p.node()
	switch p.peek().Type {
	case lexer.TokenIdent:
		tok := p.advance()
		return &ast.NameExpr{Node: n, Name: tok.Lexeme}
	case lexer.TokenLParen:
		p.advance()
		e := p.expr()
		p.expect(lexer.TokenRParen, "to close expression")
		// A parenthesized expression truncates multiple results to one;
		// the bundled interpreter enforces that at eval time by type, not
		// by a wrapper node, to keep the AST small.
		return e
	default:
		p.errorf("unexpected symbol near '%s'", p.peek().Lexeme)
		p.advance()
		return &ast.NilExpr{Node: n}
	}
}

// suffixedExpr parses a primaryExpr followed by any chain of
// `.name`, `[k]`, `(args)`, `:name(args)`, or string/table call sugar.
func (p *Parser) suffixedExpr() ast.Expr {
	e := p.primaryExpr()
	for {
		n := p.node()
		switch p.peek().Type {
		case lexer.TokenDot:
			p.advance()
			field := p.expect(lexer.TokenIdent, "after '.'").Lexeme
			e = &ast.IndexExpr{Node: n, Object: e, Key: &ast.StringExpr{Node: n, Value: field}}
		case lexer.TokenLBracket:
			p.advance()
			idx := p.expr()
			p.expect(lexer.TokenRBracket, "to close index")
			e = &ast.IndexExpr{Node: n, Object: e, Key: idx}
		case lexer.TokenColon:
			p.advance()
			method := p.expect(lexer.TokenIdent, "after ':'").Lexeme
			args := p.callArgs()
			e = &ast.MethodCallExpr{Node: n, Object: e, Method: method, Args: args}
		case lexer.TokenLParen, lexer.TokenString, lexer.TokenLBrace:
			args := p.callArgs()
			e = &ast.CallExpr{Node: n, Callee: e, Args: args}
		default:
			return e
		}
	}
}

func (p *Parser) callArgs() []ast.Expr {
	switch p.peek().Type {
	case lexer.TokenString:
		n := p.node()
		tok := p.advance()
		return []ast.Expr{&ast.StringExpr{Node: n, Value: tok.Lexeme}}
	case lexer.TokenLBrace:
		return []ast.Expr{p.tableExpr()}
	default:
		p.expect(lexer.TokenLParen, "in argument list")
		var args []ast.Expr
		if !p.check(lexer.TokenRParen) {
			args = p.exprList()
		}
		p.expect(lexer.TokenRParen, "to close argument list")
		return args
	}
}

func (p *Parser) tableExpr() ast.Expr {
	n := p.node()
	p.expect(lexer.TokenLBrace, "to start table constructor")
	var fields []ast.TableField
	for !p.check(lexer.TokenRBrace) {
		fields = append(fields, p.tableField())
		if !p.match(lexer.TokenComma) && !p.match(lexer.TokenSemicolon) {
			break
		}
	}
	p.expect(lexer.TokenRBrace, "to close table constructor")
	return &ast.TableExpr{Node: n, Fields: fields}
}

func (p *Parser) tableField() ast.TableField {
	if p.check(lexer.TokenLBracket) {
		p.advance()
		key := p.expr()
		p.expect(lexer.TokenRBracket, "to close table key")
		p.expect(lexer.TokenEqual, "after table key")
		return ast.TableField{Key: key, Value: p.expr()}
	}
	if p.check(lexer.TokenIdent) && p.tokens[p.current+1].Type == lexer.TokenEqual {
		n := p.node()
		name := p.advance().Lexeme
		p.advance() // '='
		return ast.TableField{Key: &ast.StringExpr{Node: n, Value: name}, Value: p.expr()}
	}
	return ast.TableField{Value: p.expr()}
}
