package cgtype

// RecordKind distinguishes struct from union.
type RecordKind uint8

const (
	StructKind RecordKind = iota
	UnionKind
)

// Field is one member of a record definition. BitWidth/HasBitWidth
// describe a bit-field member carved out of its StorageType at
// BitOffset within that storage unit.
type Field struct {
	Name        string
	Type        Type
	ByteOffset  int
	BitOffset   int
	BitWidth    int
	HasBitWidth bool
	// StorageType is the declared underlying integer type a bit-field
	// is carved from; zero value (nil) for non-bit-field members.
	StorageType Type
}

// RecordDef is the definition a Record type refers to: it is
// allocated once per struct/union declaration and shared by every
// Record value naming it, so that two variables of "struct point"
// agree on layout.
type RecordDef struct {
	Name       string // empty for an anonymous record
	Kind       RecordKind
	Fields     []*Field
	SizeBytes  int
	AlignBytes int
	Complete   bool // false until the body has been laid out
}

func (d *RecordDef) Field(name string) *Field {
	for _, f := range d.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Record is a reference to a RecordDef.
type Record struct {
	Def *RecordDef
}

func (r *Record) Size() int  { return r.Def.SizeBytes }
func (r *Record) Align() int { return r.Def.AlignBytes }
func (r *Record) String() string {
	kw := "struct"
	if r.Def.Kind == UnionKind {
		kw = "union"
	}
	if r.Def.Name == "" {
		return kw + " <anonymous>"
	}
	return kw + " " + r.Def.Name
}
func (*Record) isType() {}

// EnumConst is one `name = value` entry in an enum definition.
type EnumConst struct {
	Name  string
	Value int64
}

// EnumDef is the definition an Enum type refers to. Strict is set when
// the body of a tagged enum is defined; from that point on cgen
// diagnoses implicit conversions to/from int and between distinct
// enums. A typedef name or a declared instance of an untagged enum
// does not set Strict.
type EnumDef struct {
	Name        string
	Enumerators []*EnumConst
	Strict      bool
	Underlying  Type // always IntType for this target; kept explicit for clarity
}

func (d *EnumDef) Lookup(name string) (*EnumConst, bool) {
	for _, e := range d.Enumerators {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// Enum is a reference to an EnumDef.
type Enum struct {
	Def *EnumDef
}

func (e *Enum) Size() int  { return e.Def.Underlying.Size() }
func (e *Enum) Align() int { return 1 }
func (e *Enum) String() string {
	if e.Def.Name == "" {
		return "enum <anonymous>"
	}
	return "enum " + e.Def.Name
}
func (*Enum) isType() {}
