package cgen

import (
	"zcc/internal/ast"
	"zcc/internal/cgtype"
	"zcc/internal/diag"
	"zcc/internal/ir"
	"zcc/internal/source"
)

// checkConversion diagnoses an implicit conversion from one type to
// another at an assignment boundary (simple assignment, return,
// argument passing, scalar initialization): conversions that lose
// bits, convert to/from pointer, or implicitly convert enum <-> int
// produce specific diagnostics, and _Bool is distinguished from the
// other integer types.
func (g *Generator) checkConversion(pos source.Position, from, to cgtype.Type) {
	if from == nil || to == nil || cgtype.Equal(from, to) {
		return
	}

	fb, fromBasic := from.(*cgtype.Basic)
	tb, toBasic := to.(*cgtype.Basic)
	fe, fromEnum := from.(*cgtype.Enum)
	te, toEnum := to.(*cgtype.Enum)
	fp, fromPtr := from.(*cgtype.Pointer)
	tp, toPtr := to.(*cgtype.Pointer)
	_, fromArr := from.(*cgtype.Array)

	switch {
	case fromBasic && fb.Kind == cgtype.Bool && toBasic && tb.Kind != cgtype.Bool:
		g.diags.Addf(pos, diag.PhaseSema, diag.Warning,
			"Implicit conversion from %s to %s", from.String(), to.String())

	case toBasic && tb.Kind == cgtype.Bool && fromBasic && fb.Kind != cgtype.Bool:
		g.diags.Addf(pos, diag.PhaseSema, diag.Warning,
			"Implicit conversion from %s to %s", from.String(), to.String())

	case fromEnum && toBasic:
		if fe.Def.Strict {
			g.diags.Addf(pos, diag.PhaseSema, diag.Warning,
				"Implicit conversion from %s to %s", from.String(), to.String())
		}

	case fromBasic && toEnum:
		if te.Def.Strict {
			g.diags.Addf(pos, diag.PhaseSema, diag.Warning,
				"Implicit conversion from %s to %s", from.String(), to.String())
		}

	case fromEnum && toEnum:
		if fe.Def != te.Def && (fe.Def.Strict || te.Def.Strict) {
			g.diags.Addf(pos, diag.PhaseSema, diag.Warning,
				"Implicit conversion between distinct enum types %s and %s", from.String(), to.String())
		}

	case fromPtr && toBasic, fromBasic && toPtr:
		g.diags.Addf(pos, diag.PhaseSema, diag.Warning,
			"Implicit conversion between pointer and integer (%s to %s)", from.String(), to.String())

	case fromPtr && toPtr:
		g.checkPointerAssign(pos, fp, tp)

	case fromArr && toPtr:
		// array-to-pointer decay, always permitted

	case fromBasic && toBasic && tb.Size() < fb.Size():
		g.diags.Addf(pos, diag.PhaseSema, diag.Warning,
			"Implicit conversion from %s to %s may lose significant bits", from.String(), to.String())
	}
}

// checkPointerAssign enforces the qualifier-monotone rule for
// multi-level pointer assignment: the target may add
// qualifiers at an intermediate level only if every outer level of the
// target is already const; dropping a qualifier the source carries is
// diagnosed, and a pointee base-type mismatch is an incompatible
// pointer assignment.
func (g *Generator) checkPointerAssign(pos source.Position, from, to *cgtype.Pointer) {
	if isVoidPointer(from) || isVoidPointer(to) {
		return // void* converts to/from any object pointer
	}
	outerConst := true
	f, t := from, to
	for {
		fq, tq := f.Qualifier, t.Qualifier
		if fq.Has(cgtype.QualConst) && !tq.Has(cgtype.QualConst) {
			g.diags.Addf(pos, diag.PhaseSema, diag.Warning,
				"Assignment discards 'const' qualifier from pointer target type")
			return
		}
		if !fq.Has(cgtype.QualConst) && tq.Has(cgtype.QualConst) && !outerConst {
			g.diags.Addf(pos, diag.PhaseSema, diag.Warning,
				"Incompatible pointer types (qualifier added at inner level without outer const)")
			return
		}
		outerConst = outerConst && tq.Has(cgtype.QualConst)

		fNext, fok := f.Elem.(*cgtype.Pointer)
		tNext, tok := t.Elem.(*cgtype.Pointer)
		if fok != tok {
			g.diags.Addf(pos, diag.PhaseSema, diag.Warning,
				"Incompatible pointer types (%s and %s)", from.String(), to.String())
			return
		}
		if !fok {
			if !cgtype.Equal(f.Elem, t.Elem) {
				g.diags.Addf(pos, diag.PhaseSema, diag.Warning,
					"Incompatible pointer types (%s and %s)", from.String(), to.String())
			}
			return
		}
		f, t = fNext, tNext
	}
}

func isVoidPointer(p *cgtype.Pointer) bool {
	b, ok := p.Elem.(*cgtype.Basic)
	return ok && b.Kind == cgtype.Void
}

// lowerCondition lowers e where the grammar requires a truth value (an
// if/while/do-while/for controlling expression); a non-_Bool operand
// is accepted with a diagnostic.
func (g *Generator) lowerCondition(e ast.Expr) ir.Operand {
	v, t := g.lowerExpr(e)
	if b, ok := t.(*cgtype.Basic); !ok || b.Kind != cgtype.Bool {
		g.diags.Addf(e.Position(), diag.PhaseSema, diag.Warning,
			"'%s' used as truth value", t.String())
	}
	return v
}

// checkArithOperands diagnoses _Bool used as an arithmetic operand;
// it is a truth type, not a number.
func (g *Generator) checkArithOperands(pos source.Position, lt, rt cgtype.Type) {
	for _, t := range []cgtype.Type{lt, rt} {
		if b, ok := t.(*cgtype.Basic); ok && b.Kind == cgtype.Bool {
			g.diags.Addf(pos, diag.PhaseSema, diag.Warning, "_Bool used as arithmetic operand")
			return
		}
	}
}

// checkMixedSignCompare warns on a relational comparison whose
// operands differ in signedness after promotion, except when the
// unsigned operand's rank is strictly narrower than the signed one:
// the narrower unsigned value is representable in the wider signed
// type, so that comparison is value-preserving.
func (g *Generator) checkMixedSignCompare(pos source.Position, lt, rt cgtype.Type) {
	lb, lok := promote(lt).(*cgtype.Basic)
	rb, rok := promote(rt).(*cgtype.Basic)
	if !lok || !rok || lb.Signed == rb.Signed {
		return
	}
	unsignedRank, signedRank := cgtype.Rank(lb.Kind), cgtype.Rank(rb.Kind)
	if lb.Signed {
		unsignedRank, signedRank = signedRank, unsignedRank
	}
	if unsignedRank < signedRank {
		return
	}
	g.diags.Addf(pos, diag.PhaseSema, diag.Warning,
		"Comparison of mixed signedness (%s and %s)", lt.String(), rt.String())
}
