// Package ast defines the syntax tree for Anima programs.
//
// Node kinds are a closed set of typed structs rather than a string-tagged
// contract, so the evaluator can switch exhaustively and unhandled kinds are
// caught at compile time. Every node carries a source position for diagnostics.
package ast

// Position is a 1-based source location.
type Position struct {
	Line int
	Col  int
}

// Node is implemented by every syntax-tree node.
type Node interface {
	Pos() Position
}

// Expr nodes produce a value when evaluated.
type Expr interface {
	Node
	exprNode()
}

// Stmt nodes are executed for effect; some (expression statements) also
// produce the value of their enclosing block.
type Stmt interface {
	Node
	stmtNode()
}

type position struct {
	P Position
}

func (p position) Pos() Position { return p.P }

// SetPos records where the node appeared in source.
func (p *position) SetPos(pos Position) { p.P = pos }

// At attaches a position to a node constructed by the parser.
func At(line, col int) position { return position{P: Position{Line: line, Col: col}} }

// Program is the root of a parsed source file.
type Program struct {
	position
	Stmts []Stmt
}

// Param is a declared function, lambda, entity-constructor or
// agent-constructor parameter. Default is nil when the parameter is required.
type Param struct {
	Name    string
	Default Expr
}

// ---- Statements ----

// VarDecl declares one binding (`val x = e`, `var x = e`) or destructures an
// entity into several (`val (a, b) = e`). Destructuring follows the entity's
// declared field order.
type VarDecl struct {
	position
	Names   []string
	Mutable bool
	Value   Expr
}

// FunDecl declares a named function. When Receiver is non-empty the function
// is an extension registered against that runtime type name and invoked via
// member syntax with the receiver bound to `this`.
type FunDecl struct {
	position
	Receiver string
	Name     string
	Params   []Param
	Body     *Block
}

/// FieldDecl is one entity field: name, mutability, optional default.
type FieldDecl struct {
	Name    string
	Mutable bool
	Default Expr
}

// EntityDecl declares an entity type with optional sealed parent, ordered
// fields and zero or more invariant blocks checked at construction.
type EntityDecl struct {
	position
	Name       string
	Parent     string
	Fields     []FieldDecl
	Invariants []*Block
}

// ToolDecl is a declared tool surface inside an agent's tools section.
// Tools are declaration only; invoking one without a host-connected
// implementation is a runtime error.
type ToolDecl struct {
	Name   string
	Params []string
}

// BoundaryAssign is a simple `name = expr` line inside a boundaries section.
type BoundaryAssign struct {
	Name  string
	Value Expr
}

// BoundaryDecl captures an agent's declared limits. Can and Cannot hold the
// raw source text of rule bodies; they are recorded, not enforced.
type BoundaryDecl struct {
	Assigns []BoundaryAssign
	Can     []string
	Cannot  []string
}

// HandlerDecl is an `on EventType { ... }` section.
type HandlerDecl struct {
	Event string
	Body  *Block
}

// AgentDecl declares an agent type.
type AgentDecl struct {
	position
	Name       string
	Params     []Param
	Context    []Stmt
	Tools      []ToolDecl
	Boundaries *BoundaryDecl
	Methods    []*FunDecl
	Handlers   []HandlerDecl
	Team       []Stmt
}

// AssignStmt assigns to an identifier, an index expression, or a member.
type AssignStmt struct {
	position
	Target Expr
	Value  Expr
}

// ReturnStmt returns from the enclosing function; Value may be nil.
type ReturnStmt struct {
	position
	Value Expr
}

// BreakStmt exits the nearest enclosing loop.
type BreakStmt struct {
	position
}

// ContinueStmt skips to the next iteration of the nearest enclosing loop.
type ContinueStmt struct {
	position
}

// WhileStmt re-evaluates Cond before every iteration.
type WhileStmt struct {
	position
	Cond Expr
	Body *Block
}

// ForStmt iterates a list's elements or a map's entries.
type ForStmt struct {
	position
	Var  string
	Iter Expr
	Body *Block
}

// CatchClause binds the thrown error's message to Name as text.
type CatchClause struct {
	Name string
	Body *Block
}

// TryStmt runs Body, matching thrown errors against Catches in order.
// Finally (optional) always runs, including when a control signal passes
// through.
type TryStmt struct {
	position
	Body    *Block
	Catches []CatchClause
	Finally *Block
}

// ExprStmt evaluates an expression in statement position.
type ExprStmt struct {
	position
	E Expr
}

func (*VarDecl) stmtNode()      {}
func (*FunDecl) stmtNode()      {}
func (*EntityDecl) stmtNode()   {}
func (*AgentDecl) stmtNode()    {}
func (*AssignStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode()   {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*WhileStmt) stmtNode()    {}
func (*ForStmt) stmtNode()      {}
func (*TryStmt) stmtNode()      {}
func (*ExprStmt) stmtNode()     {}

// Block is a brace-delimited statement sequence evaluated in a child scope.
// Its value is the value of its last expression statement.
type Block struct {
	position
	Stmts []Stmt
}

// ---- Expressions ----

// IntLit keeps the raw text so diagnostics can echo the grouping separators
// the source used.
type IntLit struct {
	position
	Value int64
	Raw   string
}

type FloatLit struct {
	position
	Value float64
}

type StrLit struct {
	position
	Value string
}

// InterpStr is a string literal with `${...}` interpolation; Parts alternates
// StrLit segments with arbitrary expressions, in source order.
type InterpStr struct {
	position
	Parts []Expr
}

type BoolLit struct {
	position
	Value bool
}

type NullLit struct {
	position
}

// ListLit is `[a, b]`; `mutable [a, b]` sets Mutable.
type ListLit struct {
	position
	Elems   []Expr
	Mutable bool
}

type MapEntry struct {
	Key   Expr
	Value Expr
}

/// MapLit is `{"k": v}`; `mutable {...}` sets Mutable.
type MapLit struct {
	position
	Entries []MapEntry
	Mutable bool
}

type Ident struct {
	position
	Name string
}

// LambdaLit is `{ a, b -> body }`. A lambda with no arrow takes a single
// implicit parameter named "it".
type LambdaLit struct {
	position
	Params []Param
	Body   *Block
}

// Arg is a call argument; Name is empty for positional arguments.
type Arg struct {
	Name  string
	Value Expr
}

type CallExpr struct {
	position
	Callee Expr
	Args   []Arg
}

// MemberExpr is `recv.name`; Safe marks `recv?.name`.
type MemberExpr struct {
	position
	Recv Expr
	Name string
	Safe bool
}

type IndexExpr struct {
	position
	Recv  Expr
	Index Expr
}

type BinaryExpr struct {
	position
	Op    string
	Left  Expr
	Right Expr
}

type UnaryExpr struct {
	position
	Op      string
	Operand Expr
}

// PostfixExpr is `x++` or `x--`; the expression's result is the old value.
type PostfixExpr struct {
	position
	Op      string
	Operand Expr
}

// ConfidenceExpr is `value ~ conf`.
type ConfidenceExpr struct {
	position
	Value Expr
	Conf  Expr
}

// IfExpr is both the if statement and the if expression. Else is nil, a
// *Block, or a nested *IfExpr (else-if chain).
type IfExpr struct {
	position
	Cond Expr
	Then *Block
	Else Node
}

// WhenBranch is one arm of a when expression. Exactly one of IsType,
// Conds, or Else is set.
type WhenBranch struct {
	IsType string
	Conds  []Expr
	Else   bool
	Body   *Block
}

// WhenExpr dispatches over branches in declaration order; first match wins.
// Subject is nil for the bare-guard form.
type WhenExpr struct {
	position
	Subject  Expr
	Branches []WhenBranch
}

// DelegateExpr runs Body with Target's agent context as the base scope,
// subject to the target's boundary budget.
type DelegateExpr struct {
	position
	Target Expr
	Body   *Block
}

// SpawnExpr instantiates an agent type: `spawn Helper("x")`.
type SpawnExpr struct {
	position
	Call *CallExpr
}

// ParallelExpr runs Body's statements sequentially in declaration order and
// collects their values into a list.
type ParallelExpr struct {
	position
	Body *Block
}

// EmitExpr dispatches an event to the nearest `this` agent's matching handler.
type EmitExpr struct {
	position
	Value Expr
}

func (*IntLit) exprNode()         {}
func (*FloatLit) exprNode()       {}
func (*StrLit) exprNode()         {}
func (*InterpStr) exprNode()      {}
func (*BoolLit) exprNode()        {}
func (*NullLit) exprNode()        {}
func (*ListLit) exprNode()        {}
func (*MapLit) exprNode()         {}
func (*Ident) exprNode()          {}
func (*LambdaLit) exprNode()      {}
func (*CallExpr) exprNode()       {}
func (*MemberExpr) exprNode()     {}
func (*IndexExpr) exprNode()      {}
func (*BinaryExpr) exprNode()     {}
func (*UnaryExpr) exprNode()      {}
func (*PostfixExpr) exprNode()    {}
func (*ConfidenceExpr) exprNode() {}
func (*IfExpr) exprNode()         {}
func (*WhenExpr) exprNode()       {}
func (*DelegateExpr) exprNode()   {}
func (*SpawnExpr) exprNode()      {}
func (*ParallelExpr) exprNode()   {}
func (*EmitExpr) exprNode()       {}
