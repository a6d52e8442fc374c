package ast

// StorageClass is a declaration's storage class specifier; at most one
// may appear.
type StorageClass uint8

const (
	StorageNone StorageClass = iota
	StorageTypedef
	StorageExtern
	StorageStatic
	StorageAuto
	StorageRegister
)

// Qualifiers is a bitmask of type qualifiers. Duplicates are permitted
// syntactically (cgen diagnoses them); the set is what survives.
type Qualifiers uint8

const (
	QualConst Qualifiers = 1 << iota
	QualVolatile
	QualRestrict
)

func (q Qualifiers) Has(f Qualifiers) bool { return q&f != 0 }

// RecordKind distinguishes struct from union.
type RecordKind uint8

const (
	Struct RecordKind = iota
	Union
)

// BasicKind enumerates the basic type specifier element kinds.
type BasicKind uint8

const (
	Void BasicKind = iota
	Char
	Short
	Int
	Long
	LongLong
	Bool
	Int128
)

// TypeSpec is the type-specifier part of a declaration-specifiers list.
type TypeSpec interface {
	Node
	typeSpecNode()
}

// BasicType is a basic type specifier: void, an integer kind with
// optional explicit signedness, _Bool, or __int128.
type BasicType struct {
	base
	Kind          BasicKind
	Signed        bool
	HasSignedness bool // true iff "signed"/"unsigned" was written explicitly
}

func (*BasicType) typeSpecNode() {}

// RecordType is a struct/union specifier, named or anonymous, with or
// without a body.
type RecordType struct {
	base
	Kind    RecordKind
	Tag     string // empty if anonymous
	Fields  []*FieldDecl
	HasBody bool
}

func (*RecordType) typeSpecNode() {}

// EnumType is an enum specifier, named or anonymous, with or without a
// body.
type EnumType struct {
	base
	Tag         string
	Enumerators []*Enumerator
	HasBody     bool
}

func (*EnumType) typeSpecNode() {}

// TypedefName references a name previously introduced by a typedef
// declaration; the parser only produces this variant after consulting
// the symbol table.
type TypedefName struct {
	base
	Name string
}

func (*TypedefName) typeSpecNode() {}

// Enumerator is one `name (= value)?` entry in an enum body.
type Enumerator struct {
	base
	Name     string
	Value    Expr
	HasValue bool
}

