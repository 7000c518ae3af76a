package dsl

// Pos is a 1-based source position.
type Pos struct {
	Line   int
	Column int
}

// Node is implemented by every AST node.
type Node interface {
	Pos() Pos
}

// Expr is the expression family. Concrete types: StringLit, NumberLit,
// BoolLit, NullLit, ListLit, Ident, BinaryExpr, UnaryExpr, CallExpr,
// MemberExpr, IndexExpr.
type Expr interface {
	Node
	exprNode()
}

// Stmt is the statement family. Concrete types: SayStmt, AskStmt, SetStmt,
// GotoStmt, CallStmt, ReturnStmt, IfStmt, WhileStmt, ForStmt, ExprStmt.
type Stmt interface {
	Node
	stmtNode()
}

// ---- Expressions ----

type StringLit struct {
	Value  string
	NodePos Pos
}

type NumberLit struct {
	Value  float64
	NodePos Pos
}

type BoolLit struct {
	Value  bool
	NodePos Pos
}

type NullLit struct {
	NodePos Pos
}

type ListLit struct {
	Elems  []Expr
	NodePos Pos
}

type Ident struct {
	Name   string
	NodePos Pos
}

type BinaryExpr struct {
	Op     string // + - * / % == != < > <= >= and or
	Left   Expr
	Right  Expr
	NodePos Pos
}

type UnaryExpr struct {
	Op      string // not -
	Operand Expr
	NodePos Pos
}

type CallExpr struct {
	Name   string
	Args   []Expr
	NodePos Pos
}

type MemberExpr struct {
	Object Expr
	Member string
	NodePos Pos
}

type IndexExpr struct {
	Object Expr
	Index  Expr
	NodePos Pos
}

func (e *StringLit) Pos() Pos  { return e.NodePos }
func (e *NumberLit) Pos() Pos  { return e.NodePos }
func (e *BoolLit) Pos() Pos    { return e.NodePos }
func (e *NullLit) Pos() Pos    { return e.NodePos }
func (e *ListLit) Pos() Pos    { return e.NodePos }
func (e *Ident) Pos() Pos      { return e.NodePos }
func (e *BinaryExpr) Pos() Pos { return e.NodePos }
func (e *UnaryExpr) Pos() Pos  { return e.NodePos }
func (e *CallExpr) Pos() Pos   { return e.NodePos }
func (e *MemberExpr) Pos() Pos { return e.NodePos }
func (e *IndexExpr) Pos() Pos  { return e.NodePos }

func (*StringLit) exprNode()  {}
func (*NumberLit) exprNode()  {}
func (*BoolLit) exprNode()    {}
func (*NullLit) exprNode()    {}
func (*ListLit) exprNode()    {}
func (*Ident) exprNode()      {}
func (*BinaryExpr) exprNode() {}
func (*UnaryExpr) exprNode()  {}
func (*CallExpr) exprNode()   {}
func (*MemberExpr) exprNode() {}
func (*IndexExpr) exprNode()  {}

// ---- Statements ----

type SayStmt struct {
	Message Expr
	NodePos Pos
}

type AskStmt struct {
	Prompt   Expr
	Variable string
	NodePos  Pos
}

type SetStmt struct {
	Variable string
	Value    Expr
	NodePos  Pos
}

type GotoStmt struct {
	State   string
	NodePos Pos
}

type CallStmt struct {
	Call    *CallExpr
	NodePos Pos
}

type ReturnStmt struct {
	Value   Expr // nil for a bare return
	NodePos Pos
}

// ElifClause is one "elif <cond> { ... }" arm of an IfStmt.
type ElifClause struct {
	Cond Expr
	Body []Stmt
}

type IfStmt struct {
	Cond    Expr
	Then    []Stmt
	Elifs   []ElifClause
	Else    []Stmt // nil when absent
	NodePos Pos
}

type WhileStmt struct {
	Cond    Expr
	Body    []Stmt
	NodePos Pos
}

type ForStmt struct {
	Variable string
	Iterable Expr
	Body     []Stmt
	NodePos  Pos
}

type ExprStmt struct {
	X       Expr
	NodePos Pos
}

func (s *SayStmt) Pos() Pos    { return s.NodePos }
func (s *AskStmt) Pos() Pos    { return s.NodePos }
func (s *SetStmt) Pos() Pos    { return s.NodePos }
func (s *GotoStmt) Pos() Pos   { return s.NodePos }
func (s *CallStmt) Pos() Pos   { return s.NodePos }
func (s *ReturnStmt) Pos() Pos { return s.NodePos }
func (s *IfStmt) Pos() Pos     { return s.NodePos }
func (s *WhileStmt) Pos() Pos  { return s.NodePos }
func (s *ForStmt) Pos() Pos    { return s.NodePos }
func (s *ExprStmt) Pos() Pos   { return s.NodePos }

func (*SayStmt) stmtNode()    {}
func (*AskStmt) stmtNode()    {}
func (*SetStmt) stmtNode()    {}
func (*GotoStmt) stmtNode()   {}
func (*CallStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode() {}
func (*IfStmt) stmtNode()     {}
func (*WhileStmt) stmtNode()  {}
func (*ForStmt) stmtNode()    {}
func (*ExprStmt) stmtNode()   {}

// ---- Definitions ----

// IntentDef declares a classifiable user purpose.
type IntentDef struct {
	Name        string
	Patterns    []string
	Description string
	Examples    []string
	NodePos     Pos
}

// EventKind names a state's event hook.
type EventKind string

const (
	EventEnter   EventKind = "on_enter"
	EventExit    EventKind = "on_exit"
	EventMessage EventKind = "on_message"
)

// EventHandler is one on_enter/on_exit/on_message block.
type EventHandler struct {
	Event   EventKind
	Body    []Stmt
	NodePos Pos
}

// TransitionRule is "when <intent> -> <state> [if <guard>]".
type TransitionRule struct {
	Intent  string
	Target  string
	Guard   Expr // nil when absent
	NodePos Pos
}

// StateDef is a node of the dialogue state machine.
type StateDef struct {
	Name        string
	Initial     bool
	Final       bool
	Handlers    []EventHandler
	Transitions []TransitionRule
	Fallback    []Stmt // nil when the state has no fallback block
	NodePos     Pos
}

// Handler returns the first handler body declared for the given event, or
// nil. A state keeps at most one effective body per event kind.
func (s *StateDef) Handler(event EventKind) []Stmt {
	for i := range s.Handlers {
		if s.Handlers[i].Event == event {
			return s.Handlers[i].Body
		}
	}
	return nil
}

// VarDef is a bot-level variable declaration with an optional initializer.
type VarDef struct {
	Name    string
	Init    Expr // nil when absent
	NodePos Pos
}

// Param is a function parameter with an optional default expression.
type Param struct {
	Name    string
	Default Expr // nil when absent
}

// FuncDef is a user-defined function.
type FuncDef struct {
	Name    string
	Params  []Param
	Body    []Stmt
	NodePos Pos
}

// BotDef is a top-level bot declaration.
type BotDef struct {
	Name      string
	Intents   []*IntentDef
	States    []*StateDef
	Vars      []*VarDef
	Funcs     []*FuncDef
	InitialState string // name of the first state flagged initial, "" if none
	NodePos   Pos
}

// Program is an ordered list of bot definitions.
type Program struct {
	Bots []*BotDef
}

func (p *Program) Pos() Pos {
	if len(p.Bots) > 0 {
		return p.Bots[0].NodePos
	}
	return Pos{Line: 1, Column: 1}
}
func (b *BotDef) Pos() Pos        { return b.NodePos }
func (i *IntentDef) Pos() Pos     { return i.NodePos }
func (s *StateDef) Pos() Pos      { return s.NodePos }
func (v *VarDef) Pos() Pos        { return v.NodePos }
func (f *FuncDef) Pos() Pos       { return f.NodePos }
func (h *EventHandler) Pos() Pos  { return h.NodePos }
func (t *TransitionRule) Pos() Pos { return t.NodePos }
