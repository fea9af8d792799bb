// Package ast defines the AST node shapes the interpreter core consumes
// (spec.md 6: "Source consumed... chunks, blocks, statements..., expressions
// ..., with line/column on each node"). Per spec.md 1 the lexer/parser that
// produces these nodes, and the node shapes themselves, are formally an
// external collaborator; internal/lexer and internal/parser are this
// module's own conforming producer, kept deliberately narrow (SPEC_FULL.md
// section D).
//
// Adapted from the teacher's internal/parser/ast.go (sentra/internal/parser):
// the Expr/Stmt interface-plus-concrete-struct shape is kept, but the node
// kinds are replaced wholesale with Lua's grammar (numeric-for, generic-for,
// goto/label, method calls, table constructors, varargs) instead of the
// teacher's JS-like grammar (lambdas, string interpolation, channels).
package ast

// Node is the common embed every statement and expression carries for
// error-location reporting (spec.md 4.8's "chunkname:line:" prefix).
type Node struct {
	Line int
}

func (n Node) Pos() int { return n.Line }

// Positioned is implemented by every concrete Stmt/Expr.
type Positioned interface {
	Pos() int
}

// Expr is any expression node.
type Expr interface {
	Positioned
	exprNode()
}

// Stmt is any statement node.
type Stmt interface {
	Positioned
	stmtNode()
}

// Block is a sequence of statements (a scope boundary).
type Block struct {
	Stmts []Stmt
}

// Chunk is the root of a parsed source file: a Block plus its name (used
// as the "source" component of spec.md 4.8's error-location prefix).
type Chunk struct {
	Name string
	Body *Block
}

// ---- Expressions ----

type NilExpr struct{ Node }
type TrueExpr struct{ Node }
type FalseExpr struct{ Node }
type VarargExpr struct{ Node }

type IntExpr struct {
	Node
	Value int64
}

type FloatExpr struct {
	Node
	Value float64
}

// StringExpr carries raw bytes (spec.md 3's Bytes), not a Go-native
// encoding decision.
type StringExpr struct {
	Node
	Value string
}

// NameExpr is a bare identifier; spec.md 4.4 resolves it through the
// Environment (local, upvalue, or _ENV/_G) at eval time, not at parse time.
type NameExpr struct {
	Node
	Name string
}

type BinaryExpr struct {
	Node
	Op          string
	Left, Right Expr
}

type UnaryExpr struct {
	Node
	Op      string
	Operand Expr
}

// IndexExpr is `obj[key]` or the sugared `obj.name` (Key is a StringExpr
// for the latter).
type IndexExpr struct {
	Node
	Object Expr
	Key    Expr
}

type CallExpr struct {
	Node
	Callee Expr
	Args   []Expr
}

// MethodCallExpr is `obj:name(args...)`: sugar for
// `obj.name(obj, args...)` where obj is evaluated exactly once (spec.md 6).
type MethodCallExpr struct {
	Node
	Object Expr
	Method string
	Args   []Expr
}

// FunctionBody is shared by FunctionExpr and FunctionDeclStmt: declared
// parameter list, vararg flag, and body (spec.md 3's Function closure
// fields).
type FunctionBody struct {
	Node
	Params   []string
	IsVararg bool
	Body     *Block
	Name     string // for tracebacks; "" for anonymous function exprs
}

type FunctionExpr struct {
	Node
	Fn *FunctionBody
}

// TableField is one table-constructor entry: Key == nil means an
// array-style positional entry (`{v1, v2}`); Key != nil covers both
// `{[k]=v}` and the `{name=v}` sugar (Key is a StringExpr for the latter).
type TableField struct {
	Key   Expr
	Value Expr
}

type TableExpr struct {
	Node
	Fields []TableField
}

func (NilExpr) exprNode()        {}
func (TrueExpr) exprNode()       {}
func (FalseExpr) exprNode()      {}
func (VarargExpr) exprNode()     {}
func (IntExpr) exprNode()        {}
func (FloatExpr) exprNode()      {}
func (StringExpr) exprNode()     {}
func (NameExpr) exprNode()       {}
func (BinaryExpr) exprNode()     {}
func (UnaryExpr) exprNode()      {}
func (IndexExpr) exprNode()      {}
func (CallExpr) exprNode()       {}
func (MethodCallExpr) exprNode() {}
func (FunctionExpr) exprNode()   {}
func (TableExpr) exprNode()      {}

// ---- Statements ----

// LocalStmt is `local a, b <const> = e1, e2` (spec.md 6's "local"
// statement). Attribs[i] is "" , "const", or "close" (the to-be-closed
// attribute, which the interpreter's execLocal queues on the frame's
// to-be-closed list);
// parsed but otherwise uninterpreted by the (out-of-scope) parser layer.
type LocalStmt struct {
	Node
	Names   []string
	Attribs []string
	Exprs   []Expr
}

// AssignStmt is `t1, t2 = e1, e2`; Targets are NameExpr or IndexExpr.
type AssignStmt struct {
	Node
	Targets []Expr
	Exprs   []Expr
}

type ExprStmt struct {
	Node
	Call Expr
}

type DoStmt struct {
	Node
	Body *Block
}

type IfStmt struct {
	Node
	Conds  []Expr
	Blocks []*Block
	Else   *Block // nil if no else branch
}

type WhileStmt struct {
	Node
	Cond Expr
	Body *Block
}

type RepeatStmt struct {
	Node
	Body *Block
	Cond Expr
}

type NumericForStmt struct {
	Node
	Name              string
	Start, Stop, Step Expr // Step is nil if omitted (defaults to 1)
	Body              *Block
}

type GenericForStmt struct {
	Node
	Names []string
	Exprs []Expr
	Body  *Block
}

type ReturnStmt struct {
	Node
	Exprs []Expr
}

type BreakStmt struct{ Node }

type GotoStmt struct {
	Node
	Label string
}

type LabelStmt struct {
	Node
	Name string
}

// FunctionDeclStmt is `function name(...) ... end` or
// `function t.a.b(...) ... end` or `function t:m(...) ... end` (sugar:
// IsMethod adds an implicit leading "self" parameter). Target is a
// NameExpr or a chain of IndexExprs identifying where to store the
// resulting closure.
type FunctionDeclStmt struct {
	Node
	Target   Expr
	IsMethod bool
	Fn       *FunctionBody
	IsLocal  bool
}

func (LocalStmt) stmtNode()        {}
func (AssignStmt) stmtNode()       {}
func (ExprStmt) stmtNode()         {}
func (DoStmt) stmtNode()           {}
func (IfStmt) stmtNode()           {}
func (WhileStmt) stmtNode()        {}
func (RepeatStmt) stmtNode()       {}
func (NumericForStmt) stmtNode()   {}
func (GenericForStmt) stmtNode()   {}
func (ReturnStmt) stmtNode()       {}
func (BreakStmt) stmtNode()        {}
func (GotoStmt) stmtNode()         {}
func (LabelStmt) stmtNode()        {}
func (FunctionDeclStmt) stmtNode() {}
