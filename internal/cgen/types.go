package cgen

import (
	"zcc/internal/ast"
	"zcc/internal/cgtype"
	"zcc/internal/diag"
	"zcc/internal/sym"
)

// resolveTypeSpec turns one ast.TypeSpec into a cgtype.Type, registering
// struct/union/enum tags and their bodies as it encounters them.
func (g *Generator) resolveTypeSpec(spec ast.TypeSpec) cgtype.Type {
	switch t := spec.(type) {
	case *ast.BasicType:
		return &cgtype.Basic{Kind: cgtype.BasicKind(t.Kind), Signed: resolveBasicSign(t)}
	case *ast.TypedefName:
		if ct, ok := g.typedefs[t.Name]; ok {
			return ct
		}
		g.diags.Addf(t.Position(), diag.PhaseSema, diag.Error, "undefined type %q", t.Name)
		return cgtype.IntType
	case *ast.RecordType:
		return g.resolveRecordType(t)
	case *ast.EnumType:
		return g.resolveEnumType(t)
	default:
		return cgtype.IntType
	}
}

func resolveBasicSign(t *ast.BasicType) bool {
	if t.Kind == ast.Void || t.Kind == ast.Bool {
		return true
	}
	if t.HasSignedness {
		return t.Signed
	}
	if t.Kind == ast.Char {
		return true // plain char is signed on this target
	}
	return true
}

func (g *Generator) recordKey(tag string, kind cgtype.RecordKind) string {
	prefix := "struct "
	if kind == cgtype.UnionKind {
		prefix = "union "
	}
	return prefix + tag
}

func (g *Generator) resolveRecordType(t *ast.RecordType) cgtype.Type {
	kind := cgtype.StructKind
	if t.Kind == ast.Union {
		kind = cgtype.UnionKind
	}

	var def *cgtype.RecordDef
	if t.Tag != "" {
		key := g.recordKey(t.Tag, kind)
		if existing, ok := g.recordDefs[key]; ok {
			def = existing
		} else {
			def = &cgtype.RecordDef{Name: t.Tag, Kind: kind}
			g.recordDefs[key] = def
			g.scope.Declare(sym.Tag, &sym.Symbol{Name: t.Tag, Kind: sym.RecordTag, Pos: t.Position()})
		}
	} else {
		def = &cgtype.RecordDef{Kind: kind}
	}

	if t.HasBody {
		if def.Complete {
			g.diags.Addf(t.Position(), diag.PhaseSema, diag.Error, "redefinition of %s", g.recordKey(t.Tag, kind))
		}
		def.Fields = g.buildFields(t.Fields)
		cgtype.LayoutRecord(def)
	}

	return &cgtype.Record{Def: def}
}

func (g *Generator) buildFields(decls []*ast.FieldDecl) []*cgtype.Field {
	var fields []*cgtype.Field
	for _, fd := range decls {
		base := g.resolveTypeSpec(fd.Specs.Type)
		ft := base
		name := ""
		if fd.Declarator != nil {
			ft = g.applyDeclarator(base, fd.Declarator)
			name = fd.Declarator.Name
		}
		f := &cgtype.Field{Name: name, Type: ft}
		if fd.HasBitWidth {
			f.HasBitWidth = true
			f.StorageType = ft
			width := g.constFold(fd.BitWidth)
			if width.Ok {
				f.BitWidth = int(width.Value)
				if f.BitWidth > ft.Size()*8 {
					g.diags.Addf(fd.BitWidth.Position(), diag.PhaseSema, diag.Error,
						"bit-field width %d exceeds underlying type width", f.BitWidth)
				}
			}
		}
		fields = append(fields, f)
	}
	return fields
}

func (g *Generator) resolveEnumType(t *ast.EnumType) cgtype.Type {
	var def *cgtype.EnumDef
	if t.Tag != "" {
		if existing, ok := g.enumDefs["enum "+t.Tag]; ok {
			def = existing
		} else {
			def = &cgtype.EnumDef{Name: t.Tag, Underlying: cgtype.IntType}
			g.enumDefs["enum "+t.Tag] = def
			g.scope.Declare(sym.Tag, &sym.Symbol{Name: t.Tag, Kind: sym.EnumTag, Pos: t.Position()})
		}
	} else {
		def = &cgtype.EnumDef{Underlying: cgtype.IntType}
	}

	if t.HasBody {
		def.Strict = t.Tag != ""
		next := int64(0)
		for _, en := range t.Enumerators {
			val := next
			if en.HasValue {
				cv := g.constFold(en.Value)
				if cv.Ok {
					val = cv.Value
				}
			}
			def.Enumerators = append(def.Enumerators, &cgtype.EnumConst{Name: en.Name, Value: val})
			enumType := cgtype.Type(&cgtype.Enum{Def: def})
			g.enumConsts[en.Name] = enumConstInfo{Value: val, EnumType: enumType}
			g.scope.Declare(sym.Ordinary, &sym.Symbol{Name: en.Name, Kind: sym.EnumElement, Type: enumType, Pos: en.Position()})
			next = val + 1
		}
	}

	return &cgtype.Enum{Def: def}
}

// applyDeclarator wraps base with the pointer/array/function
// derivations d carries, innermost first.
func (g *Generator) applyDeclarator(base cgtype.Type, d *ast.Declarator) cgtype.Type {
	t := base
	for _, suf := range d.Suffixes {
		switch s := suf.(type) {
		case *ast.ArraySuffix:
			arr := &cgtype.Array{Elem: t}
			if s.HasSize {
				n := g.constFold(s.Size)
				if n.Ok {
					arr.Len = int(n.Value)
					arr.HasSize = true
				}
			}
			t = arr
		case *ast.FuncSuffix:
			fn := &cgtype.Function{Return: t, Variadic: s.Variadic}
			if b, ok := t.(*cgtype.Basic); ok && b.Kind == cgtype.Void {
				fn.Return = nil
			}
			for _, p := range s.Params {
				pt := g.resolveTypeSpec(p.Specs.Type)
				if p.Declarator != nil {
					pt = g.applyDeclarator(pt, p.Declarator)
				}
				fn.Params = append(fn.Params, pt)
			}
			t = fn
		}
	}
	for i := len(d.Pointers) - 1; i >= 0; i-- {
		t = &cgtype.Pointer{Elem: t, Qualifier: convertQualifiers(d.Pointers[i])}
	}
	return t
}

func convertQualifiers(q ast.Qualifiers) cgtype.Qualifiers {
	var out cgtype.Qualifiers
	if q.Has(ast.QualConst) {
		out |= cgtype.QualConst
	}
	if q.Has(ast.QualVolatile) {
		out |= cgtype.QualVolatile
	}
	if q.Has(ast.QualRestrict) {
		out |= cgtype.QualRestrict
	}
	return out
}

// buildType resolves one DeclSpecs+Declarator pair into a cgtype.Type,
// the combination every declaration site (global, local, parameter,
// typedef, cast, sizeof-type) goes through.
func (g *Generator) buildType(specs ast.DeclSpecs, d *ast.Declarator) cgtype.Type {
	base := g.resolveTypeSpec(specs.Type)
	if d == nil {
		return base
	}
	t := g.applyDeclarator(base, d)
	if fn, ok := t.(*cgtype.Function); ok {
		if _, isFn := fn.Return.(*cgtype.Function); isFn {
			g.diags.Addf(d.Position(), diag.PhaseSema, diag.Error, "function cannot return a function type")
		}
		if _, isArr := fn.Return.(*cgtype.Array); isArr {
			g.diags.Addf(d.Position(), diag.PhaseSema, diag.Error, "function cannot return an array type")
		}
	}
	return t
}

func (g *Generator) resolveTypeName(tn *ast.TypeName) cgtype.Type {
	return g.buildType(tn.Specs, tn.Declarator)
}

// promote applies integer promotion: types narrower than int become
// int.
func promote(t cgtype.Type) cgtype.Type {
	b, ok := t.(*cgtype.Basic)
	if !ok {
		return t
	}
	if b.Kind == cgtype.Bool || b.Kind == cgtype.Char || b.Kind == cgtype.Short {
		return cgtype.IntType
	}
	return t
}

// usualArithmeticType computes the common type two promoted operands
// convert to for a binary arithmetic/relational operator, per C89's
// usual arithmetic conversions: widen to the larger rank, then if
// sizes are equal and signedness differs, the result is unsigned.
func usualArithmeticType(a, b cgtype.Type) cgtype.Type {
	a, b = promote(a), promote(b)
	ab, aok := a.(*cgtype.Basic)
	bb, bok := b.(*cgtype.Basic)
	if !aok || !bok {
		return a
	}
	ra, rb := cgtype.Rank(ab.Kind), cgtype.Rank(bb.Kind)
	switch {
	case ra == rb:
		if ab.Signed == bb.Signed {
			return ab
		}
		return &cgtype.Basic{Kind: ab.Kind, Signed: false}
	case ra > rb:
		if !ab.Signed || bb.Signed {
			return ab
		}
		if ab.Size() > bb.Size() {
			return ab
		}
		return &cgtype.Basic{Kind: ab.Kind, Signed: false}
	default:
		if !bb.Signed || ab.Signed {
			return bb
		}
		if bb.Size() > ab.Size() {
			return bb
		}
		return &cgtype.Basic{Kind: bb.Kind, Signed: false}
	}
}
