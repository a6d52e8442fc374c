// Package ast defines the C89-dialect abstract syntax tree: a tree of
// tagged variants, realized as small sealed interfaces with exhaustive
// type switches in consumers rather than a reflection-based tagged
// union. Every node carries its source position and the syntactic
// tokens that produced it, so a consumer can report precise diagnostic
// ranges or reconstruct the covered source text.
package ast

import (
	"zcc/internal/lexer"
	"zcc/internal/source"
)

// Node is implemented by every AST node.
type Node interface {
	Position() source.Position
	Tokens() []lexer.Token
}

// base is embedded by every concrete node to satisfy Node.
type base struct {
	Pos  source.Position
	Toks []lexer.Token
}

func (b base) Position() source.Position { return b.Pos }
func (b base) Tokens() []lexer.Token     { return b.Toks }

// Init stamps a freshly constructed node with its source position and
// covering tokens. Exported so the parser, which builds nodes as plain
// composite literals, can finish them in one call without naming the
// unexported embedded field directly. On nodes that have a field of
// their own named Init (InitDeclarator, CompoundLiteral, ForStmt) the
// field hides this method; the parser sets Pos and Toks there instead.
func (b *base) Init(pos source.Position, toks []lexer.Token) {
	b.Pos = pos
	b.Toks = toks
}

// File is the root node: one translation unit.
type File struct {
	base
	Decls []ExternalDecl
}

// ExternalDecl is a top-level construct: a FunctionDef or a Declaration.
type ExternalDecl interface {
	Node
	externalDecl()
}

// Decl is a declaration appearing inside a block (the subset of
// ExternalDecl usable as a BlockItem).
type Decl interface {
	ExternalDecl
	declNode()
}

// BlockItem is a declaration or statement inside a CompoundStmt.
type BlockItem interface {
	Node
	blockItemNode()
}
