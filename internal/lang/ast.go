// Package lang implements the tokenizer, parser, and abstract syntax tree for
// the CSS-shaped route definition language.
package lang

// Method is an HTTP method recognized by a route selector.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

var validMethods = map[Method]bool{
	MethodGet: true, MethodPost: true, MethodPut: true, MethodPatch: true,
	MethodDelete: true, MethodHead: true, MethodOptions: true,
}

// Program is the immutable result of parsing a source file.
type Program struct {
	Server ServerConfig
	Schema *SchemaBootstrap
	Routes []*Route
}

// ServerConfig holds the resolved @server block. Fields may have come from a
// literal or an env(NAME, default) expression; resolution happens at load
// time so ServerConfig itself only ever holds concrete values.
type ServerConfig struct {
	Port     int
	Host     string
	Database string // empty means "no database configured"
	HasDB    bool
}

// SchemaBootstrap is the opaque SQL text of an @database block.
type SchemaBootstrap struct {
	SQL    string
	Line   int
	Column int
}

// Segment is one element of a PathPattern.
type SegmentKind int

const (
	SegLiteral SegmentKind = iota
	SegParam
	SegCatchAll
)

type Segment struct {
	Kind SegmentKind
	Text string // literal text, or param name (without ':')
}

// PathPattern is a compiled-from-source route path template. Compilation into
// a matcher happens in package router; PathPattern itself is pure data.
type PathPattern struct {
	Raw      string
	Segments []Segment
	CatchAll bool
}

// VarName is a route-local binding name, stored without its leading "--".
type VarName string

// Binding is one `--name: expr;` declaration, in source order.
type Binding struct {
	Name VarName
	Expr Expression
	Line int
	Col  int
}

// Route is one parsed `[path="..."]:METHOD { ... }` rule.
type Route struct {
	Method   Method
	Path     PathPattern
	Bindings []Binding
	Status   *Expression // nil means "use default 200"
	Return   ReturnExpr
	Line     int
	Col      int
}

// ReturnKind distinguishes json(...) from html(...) at the top of @return.
type ReturnKind int

const (
	ReturnJSON ReturnKind = iota
	ReturnHTML
)

type ReturnExpr struct {
	Kind  ReturnKind
	Value Expression
}

// ExprKind tags the variant held by an Expression node.
type ExprKind int

const (
	ExprLiteral ExprKind = iota
	ExprParam
	ExprQuery
	ExprBody
	ExprHeader
	ExprVarRef
	ExprEnv
	ExprSQL
	ExprIf
	ExprObject
	ExprArray
)

// LiteralKind tags the concrete Go type carried by an ExprLiteral node.
type LiteralKind int

const (
	LitNull LiteralKind = iota
	LitBool
	LitNumber
	LitString
)

// IfClause is one `cond: expr` arm of an if(...) call. The trailing
// `else: expr` arm is not an IfClause; it is held separately in
// Expression.IfElse since it has no condition.
type IfClause struct {
	Cond Condition
	Body Expression
}

// Expression is a node in the expression sublanguage. Exactly one of the
// Kind-specific fields is meaningful for a given Kind; this mirrors the
// teacher's tagged-predicate style (query.Predicate) rather than a Go
// interface-per-variant, since expressions here nest arbitrarily and a
// single struct keeps recursive evaluation and re-serialization simple.
type Expression struct {
	Kind ExprKind
	Line int
	Col  int

	// ExprLiteral
	LitKind LiteralKind
	Str     string
	Num     float64
	Bool    bool

	// ExprParam, ExprQuery, ExprBody, ExprHeader, ExprVarRef
	Name string

	// ExprEnv
	EnvDefault *Expression

	// ExprSQL
	SQLTemplate string
	SQLArgs     []Expression

	// ExprIf
	IfClauses []IfClause
	IfElse    *Expression

	// ExprObject
	ObjectKeys []string
	ObjectVals []Expression

	// ExprArray
	ArrayVals []Expression
}

// CondKind tags the variant held by a Condition node.
type CondKind int

const (
	CondTruthy CondKind = iota
	CondEquals
	CondNotEquals
	CondGt
	CondLt
	CondGe
	CondLe
	CondAnd
	CondOr
	CondNot
)

// Condition is a node in the boolean condition sublanguage used inside
// if(...) clauses.
type Condition struct {
	Kind CondKind
	Line int
	Col  int

	// CondTruthy
	Ref *Expression

	// CondEquals..CondLe
	Left, Right *Expression

	// CondAnd, CondOr
	LHS, RHS *Condition

	// CondNot
	Operand *Condition
}
