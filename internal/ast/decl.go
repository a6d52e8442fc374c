package ast

// DeclSpecs is a declaration-specifiers list: storage class, type
// specifier, and qualifiers, combined by the parser's declarator-chain
// logic into a cgtype during cgen.
type DeclSpecs struct {
	Storage    StorageClass
	Type       TypeSpec
	Qualifiers Qualifiers
}

// Declarator is a chain from the innermost identifier (or an empty name
// for an abstract declarator used in casts and sizeof-type) outward
// through pointer and array/function derivations.
type Declarator struct {
	base
	Name     string // empty for an abstract declarator
	Pointers []Qualifiers
	Suffixes []DeclaratorSuffix
}

// DeclaratorSuffix is an array or function derivation applied to a
// declarator, in the order encountered (innermost first).
type DeclaratorSuffix interface {
	Node
	suffixNode()
}

// ArraySuffix is a `[size?]` derivation.
type ArraySuffix struct {
	base
	Size    Expr
	HasSize bool
}

func (*ArraySuffix) suffixNode() {}

// FuncSuffix is a `(params...)` derivation.
type FuncSuffix struct {
	base
	Params   []*ParamDecl
	Variadic bool
}

func (*FuncSuffix) suffixNode() {}

// ParamDecl is one parameter in a function declarator's parameter list.
type ParamDecl struct {
	base
	Specs      DeclSpecs
	Declarator *Declarator // may be abstract (no Name)
}

// FieldDecl is a struct/union member declaration, optionally a
// bit-field.
type FieldDecl struct {
	base
	Specs       DeclSpecs
	Declarator  *Declarator
	BitWidth    Expr
	HasBitWidth bool
}

// Attribute is one `__attribute__((name(args...)))` entry attached to a
// declaration, in head, middle, or tail position.
type Attribute struct {
	base
	Name string
	Args []Expr
}

// Declaration is a non-definition external or block declaration:
// `specifiers init-declarator-list? ;`.
type Declaration struct {
	base
	Specs           DeclSpecs
	InitDeclarators []*InitDeclarator
	Attributes      []*Attribute
}

func (*Declaration) externalDecl()  {}
func (*Declaration) declNode()      {}
func (*Declaration) blockItemNode() {}

// InitDeclarator pairs a declarator with its optional initializer.
type InitDeclarator struct {
	base
	Declarator *Declarator
	Init       Initializer
}

// FunctionDef is a function definition: declarator plus a compound
// statement body (as opposed to a mere function declaration, which is
// a Declaration whose declarator has a FuncSuffix and no body).
type FunctionDef struct {
	base
	Specs      DeclSpecs
	Declarator *Declarator
	Attributes []*Attribute
	Body       *CompoundStmt
}

func (*FunctionDef) externalDecl()  {}
func (*FunctionDef) declNode()      {}
func (*FunctionDef) blockItemNode() {}

// Initializer is a scalar value or a braced initializer list, with
// optional designators on list entries.
type Initializer interface {
	Node
	initNode()
}

// ScalarInit is `= expr`.
type ScalarInit struct {
	base
	Value Expr
}

func (*ScalarInit) initNode() {}

// ListInit is a braced initializer list, possibly with mixed
// designated and positional entries.
type ListInit struct {
	base
	Items []*InitItem
}

func (*ListInit) initNode() {}

// InitItem is one entry in a ListInit: zero or more designators
// followed by a nested initializer.
type InitItem struct {
	base
	Designators []Designator
	Value       Initializer
}

// Designator selects a struct field or array index within a
// designated initializer.
type Designator interface {
	Node
	designatorNode()
}

// FieldDesignator is `.name`.
type FieldDesignator struct {
	base
	Name string
}

func (*FieldDesignator) designatorNode() {}

// IndexDesignator is `[index]`.
type IndexDesignator struct {
	base
	Index Expr
}

func (*IndexDesignator) designatorNode() {}

// TypeName is an abstract type reference used in casts, sizeof-type,
// and compound literals: declaration specifiers plus an abstract
// declarator (no identifier).
type TypeName struct {
	base
	Specs      DeclSpecs
	Declarator *Declarator
}
