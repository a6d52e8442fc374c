package ast

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// UnaryOp enumerates the prefix/postfix unary operators.
type UnaryOp uint8

const (
	OpAddr UnaryOp = iota
	OpDeref
	OpPlus
	OpNeg
	OpBitNot
	OpNot
	OpPreInc
	OpPreDec
	OpPostInc
	OpPostDec
)

// BinaryOp enumerates binary arithmetic, bitwise, relational, and
// logical operators.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl
	OpShr
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpBitAnd
	OpBitXor
	OpBitOr
	OpLogAnd
	OpLogOr
)

// AssignOp enumerates `=` and the compound assignment operators.
type AssignOp uint8

const (
	AssignSimple AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignMod
	AssignShl
	AssignShr
	AssignAnd
	AssignXor
	AssignOr
)

// IntLiteral is an integer constant; Text preserves the literal
// verbatim (prefix/suffix included) for overflow-checked re-parsing in
// cgen.
type IntLiteral struct {
	base
	Text string
}

func (*IntLiteral) exprNode() {}

// CharLiteral is a character constant, with Wide set for the `L'…'`
// variant.
type CharLiteral struct {
	base
	Text string
	Wide bool
}

func (*CharLiteral) exprNode() {}

// StringLiteral is a string constant. Parts holds each adjacent
// string-literal token's raw text before concatenation (a macro
// placeholder surfaces as a zero-length Parts entry carrying only a
// position, filled in by a later pass if a preprocessor is ever
// layered on top; this compiler has none, so Parts is always fully
// literal in practice).
type StringLiteral struct {
	base
	Parts []string
	Wide  bool
}

func (*StringLiteral) exprNode() {}

// Ident is an identifier reference.
type Ident struct {
	base
	Name string
}

func (*Ident) exprNode() {}

// MemberExpr is `target.name` (Indirect == false) or `target->name`
// (Indirect == true).
type MemberExpr struct {
	base
	Target   Expr
	Name     string
	Indirect bool
}

func (*MemberExpr) exprNode() {}

// CallExpr is a function call.
type CallExpr struct {
	base
	Callee Expr
	Args   []Expr
}

func (*CallExpr) exprNode() {}

// IndexExpr is `target[index]`.
type IndexExpr struct {
	base
	Target Expr
	Index  Expr
}

func (*IndexExpr) exprNode() {}

// CastExpr is `(type)operand`.
type CastExpr struct {
	base
	Type    *TypeName
	Operand Expr
}

func (*CastExpr) exprNode() {}

// SizeofExpr is `sizeof operand`.
type SizeofExpr struct {
	base
	Operand Expr
}

func (*SizeofExpr) exprNode() {}

// SizeofTypeExpr is `sizeof(type)`.
type SizeofTypeExpr struct {
	base
	Type *TypeName
}

func (*SizeofTypeExpr) exprNode() {}

// UnaryExpr covers address-of, dereference, unary plus/minus, bitwise
// not, logical not, and prefix/postfix increment/decrement.
type UnaryExpr struct {
	base
	Op      UnaryOp
	Operand Expr
}

func (*UnaryExpr) exprNode() {}

// BinaryExpr is a binary arithmetic, bitwise, relational, or logical
// operator application.
type BinaryExpr struct {
	base
	Op          BinaryOp
	Left, Right Expr
}

func (*BinaryExpr) exprNode() {}

// AssignExpr is `target = value` or a compound assignment.
type AssignExpr struct {
	base
	Op     AssignOp
	Target Expr
	Value  Expr
}

func (*AssignExpr) exprNode() {}

// CommaExpr is the comma operator: a left-to-right evaluated sequence
// whose value is its last element.
type CommaExpr struct {
	base
	Exprs []Expr
}

func (*CommaExpr) exprNode() {}

// ConditionalExpr is `cond ? then : else`.
type ConditionalExpr struct {
	base
	Cond, Then, Else Expr
}

func (*ConditionalExpr) exprNode() {}

// CompoundLiteral is a C99-style `(type){ initializer-list }`,
// recognized positionally alongside the designated-initializer
// support.
type CompoundLiteral struct {
	base
	Type *TypeName
	Init *ListInit
}

func (*CompoundLiteral) exprNode() {}
