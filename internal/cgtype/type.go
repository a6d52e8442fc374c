// Package cgtype implements the compiler's semantic type model: a
// small closed variant distinct from the AST's syntactic type
// specifiers. cgen canonicalizes a declarator chain plus declaration
// specifiers into one of these types; every later stage (IR, Z80
// selection) only ever sees a cgtype.Type, never an ast.TypeSpec.
package cgtype

// Type is implemented by every semantic type variant. Types are
// value-like but interned-by-construction: a Type returned by one of
// the constructors in this package is owned by whichever AST/IR node
// holds it and is deep-cloned (via Clone) if another node needs to
// retain its own copy.
type Type interface {
	// Size is the type's size in bytes on the Z80 target.
	Size() int
	// Align is the type's required alignment in bytes. The Z80 has no
	// alignment faults, so every type aligns to 1.
	Align() int
	String() string
	isType()
}

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

var basicSizes = map[BasicKind]int{
	Void: 0, Char: 1, Short: 2, Int: 2, Long: 4, LongLong: 8, Bool: 1, Int128: 16,
}

var basicNames = map[BasicKind]string{
	Void: "void", Char: "char", Short: "short", Int: "int", Long: "long",
	LongLong: "long long", Bool: "_Bool", Int128: "__int128",
}

// Basic is a basic type: void, an integer kind with a signedness flag
// (meaningless for Void and Bool), or __int128.
type Basic struct {
	Kind   BasicKind
	Signed bool
}

func (b *Basic) Size() int  { return basicSizes[b.Kind] }
func (b *Basic) Align() int { return 1 }
func (b *Basic) String() string {
	name := basicNames[b.Kind]
	switch b.Kind {
	case Char, Short, Int, Long, LongLong, Int128:
		if !b.Signed {
			return "unsigned " + name
		}
	}
	return name
}
func (*Basic) isType() {}

// Built-in singletons for the types cgen constructs most often; all
// other Basic values (e.g. explicit "unsigned char") are allocated
// fresh since Type is small and value-like.
var (
	VoidType     = &Basic{Kind: Void}
	CharType     = &Basic{Kind: Char, Signed: true}
	UCharType    = &Basic{Kind: Char, Signed: false}
	ShortType    = &Basic{Kind: Short, Signed: true}
	UShortType   = &Basic{Kind: Short, Signed: false}
	IntType      = &Basic{Kind: Int, Signed: true}
	UIntType     = &Basic{Kind: Int, Signed: false}
	LongType     = &Basic{Kind: Long, Signed: true}
	ULongType    = &Basic{Kind: Long, Signed: false}
	LongLongType = &Basic{Kind: LongLong, Signed: true}
	BoolType     = &Basic{Kind: Bool, Signed: false}
)

// IsInteger reports whether t is an integer basic type (excludes void).
func IsInteger(t Type) bool {
	b, ok := t.(*Basic)
	return ok && b.Kind != Void
}

// Rank orders integer conversion rank for the usual arithmetic
// conversions: wider kinds have a strictly greater rank.
// _Bool has the lowest rank, matching its promotion to int.
func Rank(k BasicKind) int {
	switch k {
	case Bool:
		return 0
	case Char:
		return 1
	case Short:
		return 2
	case Int:
		return 3
	case Long:
		return 4
	case LongLong:
		return 5
	case Int128:
		return 6
	default:
		return -1
	}
}

// Pointer is a pointer-to-T type. Pointers are always 2 bytes: a
// single 16-bit register pair on the Z80 (HL/DE/BC).
type Pointer struct {
	Elem      Type
	Qualifier Qualifiers
}

// Qualifiers mirrors ast.Qualifiers for the pointed-to type, needed by
// cgen's "qualifier-monotone down the chain" pointer-assignment check
//.
type Qualifiers uint8

const (
	QualConst Qualifiers = 1 << iota
	QualVolatile
	QualRestrict
)

func (q Qualifiers) Has(f Qualifiers) bool { return q&f != 0 }

func (*Pointer) Size() int  { return 2 }
func (*Pointer) Align() int { return 1 }
func (p *Pointer) String() string {
	s := p.Elem.String() + " *"
	if p.Qualifier.Has(QualConst) {
		s += "const "
	}
	if p.Qualifier.Has(QualVolatile) {
		s += "volatile "
	}
	if p.Qualifier.Has(QualRestrict) {
		s += "restrict "
	}
	return s
}
func (*Pointer) isType() {}

// Array is an array-of-T type, with an optional known element count;
// an array with HasSize == false is sized as a Pointer (2 bytes),
// under sizeof as well.
type Array struct {
	Elem    Type
	Len     int
	HasSize bool
}

func (a *Array) Size() int {
	if !a.HasSize {
		return 2 // decays to a pointer
	}
	return a.Elem.Size() * a.Len
}
func (*Array) Align() int { return 1 }
func (a *Array) String() string {
	if a.HasSize {
		return a.Elem.String() + "[]"
	}
	return a.Elem.String() + "[]"
}
func (*Array) isType() {}

// Function is a function type: return type, ordered parameter types,
// and a variadic flag.
type Function struct {
	Return   Type // nil means void
	Params   []Type
	Variadic bool
}

func (*Function) Size() int  { return 2 } // function pointer size
func (*Function) Align() int { return 1 }
func (f *Function) String() string {
	s := "function("
	for i, p := range f.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	if f.Variadic {
		if len(f.Params) > 0 {
			s += ", "
		}
		s += "..."
	}
	s += ") -> "
	if f.Return == nil {
		s += "void"
	} else {
		s += f.Return.String()
	}
	return s
}
func (*Function) isType() {}

// Equal reports structural equality of two types: same basic kind and
// signedness, same pointee/element/field types recursively, same
// record/enum definition identity. Used by cgen for function signature
// matching and pointer-qualification checks.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch av := a.(type) {
	case *Basic:
		bv, ok := b.(*Basic)
		return ok && av.Kind == bv.Kind && av.Signed == bv.Signed
	case *Pointer:
		bv, ok := b.(*Pointer)
		return ok && Equal(av.Elem, bv.Elem)
	case *Array:
		bv, ok := b.(*Array)
		return ok && av.HasSize == bv.HasSize && av.Len == bv.Len && Equal(av.Elem, bv.Elem)
	case *Function:
		bv, ok := b.(*Function)
		if !ok || av.Variadic != bv.Variadic || len(av.Params) != len(bv.Params) || !Equal(av.Return, bv.Return) {
			return false
		}
		for i := range av.Params {
			if !Equal(av.Params[i], bv.Params[i]) {
				return false
			}
		}
		return true
	case *Record:
		bv, ok := b.(*Record)
		return ok && av.Def == bv.Def
	case *Enum:
		bv, ok := b.(*Enum)
		return ok && av.Def == bv.Def
	default:
		return false
	}
}

// Clone deep-copies t. cgtype values are owned by one AST/IR node;
// any node that wants to retain its own copy (rather than share the
// original's lifetime) must Clone it.
func Clone(t Type) Type {
	switch v := t.(type) {
	case nil:
		return nil
	case *Basic:
		c := *v
		return &c
	case *Pointer:
		return &Pointer{Elem: Clone(v.Elem), Qualifier: v.Qualifier}
	case *Array:
		return &Array{Elem: Clone(v.Elem), Len: v.Len, HasSize: v.HasSize}
	case *Function:
		params := make([]Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = Clone(p)
		}
		return &Function{Return: Clone(v.Return), Params: params, Variadic: v.Variadic}
	case *Record:
		return v // record/enum definitions are referenced, not cloned
	case *Enum:
		return v
	default:
		return t
	}
}
