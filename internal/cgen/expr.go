package cgen

import (
	"zcc/internal/ast"
	"zcc/internal/cgtype"
	"zcc/internal/diag"
	"zcc/internal/ir"
	"zcc/internal/sym"
)

var binOpMap = map[ast.BinaryOp]ir.BinOp{
	ast.OpAdd: ir.Add, ast.OpSub: ir.Sub, ast.OpMul: ir.Mul, ast.OpDiv: ir.Div, ast.OpMod: ir.Mod,
	ast.OpShl: ir.Shl, ast.OpShr: ir.Shr, ast.OpBitAnd: ir.And, ast.OpBitOr: ir.Or, ast.OpBitXor: ir.Xor,
	ast.OpEq: ir.Eq, ast.OpNe: ir.Ne, ast.OpLt: ir.Lt, ast.OpLe: ir.Le, ast.OpGt: ir.Gt, ast.OpGe: ir.Ge,
}

var compoundToBinOp = map[ast.AssignOp]ast.BinaryOp{
	ast.AssignAdd: ast.OpAdd, ast.AssignSub: ast.OpSub, ast.AssignMul: ast.OpMul, ast.AssignDiv: ast.OpDiv,
	ast.AssignMod: ast.OpMod, ast.AssignShl: ast.OpShl, ast.AssignShr: ast.OpShr,
	ast.AssignAnd: ast.OpBitAnd, ast.AssignXor: ast.OpBitXor, ast.AssignOr: ast.OpBitOr,
}

// lowerExpr lowers e to an rvalue: an Operand holding its value plus
// its resolved type. Every IR-lowering side effect needed to compute
// that value is emitted into the current block first.
func (g *Generator) lowerExpr(e ast.Expr) (ir.Operand, cgtype.Type) {
	switch n := e.(type) {
	case *ast.IntLiteral, *ast.CharLiteral:
		v := g.constFold(e)
		return ir.Imm{Value: v.Value, Type: v.Type}, v.Type

	case *ast.StringLiteral:
		return g.lowerStringLiteral(n)

	case *ast.Ident:
		return g.lowerIdentLoad(n)

	case *ast.MemberExpr, *ast.IndexExpr:
		addr, t := g.lowerAddr(e)
		if _, ok := t.(*cgtype.Array); ok {
			return addr, t // arrays decay to their address
		}
		return g.emitLoad(addr, t), t

	case *ast.UnaryExpr:
		return g.lowerUnary(n)

	case *ast.BinaryExpr:
		return g.lowerBinary(n)

	case *ast.AssignExpr:
		return g.lowerAssign(n)

	case *ast.CallExpr:
		return g.lowerCall(n)

	case *ast.CastExpr:
		v, from := g.lowerExpr(n.Operand)
		to := g.resolveTypeName(n.Type)
		return g.emitConvert(v, from, to), to

	case *ast.SizeofExpr:
		t := g.inferConstExprType(n.Operand)
		return ir.Imm{Value: int64(t.Size()), Type: cgtype.IntType}, cgtype.IntType

	case *ast.SizeofTypeExpr:
		t := g.resolveTypeName(n.Type)
		return ir.Imm{Value: int64(t.Size()), Type: cgtype.IntType}, cgtype.IntType

	case *ast.ConditionalExpr:
		return g.lowerConditional(n)

	case *ast.CommaExpr:
		var v ir.Operand
		var t cgtype.Type
		for _, sub := range n.Exprs {
			v, t = g.lowerExpr(sub)
		}
		return v, t

	case *ast.CompoundLiteral:
		t := g.resolveTypeName(n.Type)
		addr := g.emitAddrOf(g.newLabel("cl"), 0, t)
		g.lowerInitializerInto(addr, t, n.Init)
		return g.emitLoad(addr, t), t

	default:
		g.diags.Addf(e.Position(), diag.PhaseSema, diag.Error, "unsupported expression construct")
		return ir.Imm{Value: 0, Type: cgtype.IntType}, cgtype.IntType
	}
}

func (g *Generator) lowerStringLiteral(n *ast.StringLiteral) (ir.Operand, cgtype.Type) {
	name := g.newLabel("str")
	text := ""
	for _, p := range n.Parts {
		text += decodeStringLiteral(p)
	}
	elemType := cgtype.Type(cgtype.CharType)
	arr := &cgtype.Array{Elem: elemType, Len: len(text) + 1, HasSize: true}
	var elems []ir.Initializer
	for i := 0; i < len(text); i++ {
		elems = append(elems, ir.ConstInit{Value: int64(text[i])})
	}
	elems = append(elems, ir.ConstInit{Value: 0})
	g.module.Globals = append(g.module.Globals, &ir.Global{Name: name, Type: arr, Init: ir.AggregateInit{Elems: elems}})
	t := cgtype.Type(&cgtype.Pointer{Elem: elemType, Qualifier: cgtype.QualConst})
	return ir.GlobalRef{Name: name, Type: t}, t
}

func (g *Generator) lowerIdentLoad(n *ast.Ident) (ir.Operand, cgtype.Type) {
	s := g.scope.Lookup(sym.Ordinary, n.Name)
	if s == nil {
		g.diags.Addf(n.Position(), diag.PhaseSema, diag.Error, "undeclared identifier %q", n.Name)
		return ir.Imm{Value: 0, Type: cgtype.IntType}, cgtype.IntType
	}
	if s.Kind == sym.EnumElement {
		ec := g.enumConsts[n.Name]
		return ir.Imm{Value: ec.Value, Type: ec.EnumType}, ec.EnumType
	}
	if s.Kind == sym.GlobalSymbol {
		if _, isFn := s.Type.(*cgtype.Function); isFn {
			return ir.GlobalRef{Name: n.Name, Type: s.Type}, s.Type
		}
	}
	if _, isArr := s.Type.(*cgtype.Array); isArr {
		return g.emitAddrOf(n.Name, 0, s.Type), s.Type
	}
	if _, isRec := s.Type.(*cgtype.Record); isRec {
		return g.emitAddrOf(n.Name, 0, s.Type), s.Type
	}
	addr := g.emitAddrOf(n.Name, 0, s.Type)
	return g.emitLoad(addr, s.Type), s.Type
}

// lowerAddr lowers e to the address of its storage (an lvalue), for
// assignment targets and `&e`.
func (g *Generator) lowerAddr(e ast.Expr) (ir.Operand, cgtype.Type) {
	switch n := e.(type) {
	case *ast.Ident:
		s := g.scope.Lookup(sym.Ordinary, n.Name)
		if s == nil {
			g.diags.Addf(n.Position(), diag.PhaseSema, diag.Error, "undeclared identifier %q", n.Name)
			return g.emitAddrOf(n.Name, 0, cgtype.IntType), cgtype.IntType
		}
		return g.emitAddrOf(n.Name, 0, s.Type), s.Type

	case *ast.UnaryExpr:
		if n.Op == ast.OpDeref {
			v, t := g.lowerExpr(n.Operand)
			ptr, ok := t.(*cgtype.Pointer)
			if !ok {
				g.diags.Addf(n.Position(), diag.PhaseSema, diag.Error, "cannot dereference non-pointer type %s", t.String())
				return v, cgtype.IntType
			}
			return v, ptr.Elem
		}

	case *ast.MemberExpr:
		var base ir.Operand
		var baseType cgtype.Type
		if n.Indirect {
			base, baseType = g.lowerExpr(n.Target)
			if ptr, ok := baseType.(*cgtype.Pointer); ok {
				baseType = ptr.Elem
			}
		} else {
			base, baseType = g.lowerAddr(n.Target)
		}
		rec, ok := baseType.(*cgtype.Record)
		if !ok {
			g.diags.Addf(n.Position(), diag.PhaseSema, diag.Error, "member access on non-record type %s", baseType.String())
			return base, cgtype.IntType
		}
		f := rec.Def.Field(n.Name)
		if f == nil {
			g.diags.Addf(n.Position(), diag.PhaseSema, diag.Error, "no member %q on %s", n.Name, baseType.String())
			return base, cgtype.IntType
		}
		return g.offsetAddr(base, f.ByteOffset), f.Type

	case *ast.IndexExpr:
		target, targetType := g.lowerExpr(n.Target)
		var elem cgtype.Type
		switch tt := targetType.(type) {
		case *cgtype.Array:
			elem = tt.Elem
		case *cgtype.Pointer:
			elem = tt.Elem
		default:
			g.diags.Addf(n.Position(), diag.PhaseSema, diag.Error, "subscript on non-array/pointer type %s", targetType.String())
			return target, cgtype.IntType
		}
		idx, idxType := g.lowerExpr(n.Index)
		idx = g.emitConvert(idx, idxType, cgtype.IntType)
		size := ir.Imm{Value: int64(elem.Size()), Type: cgtype.IntType}
		scaled := g.proc.Registers.New(cgtype.IntType)
		g.emit(&ir.BinOpInstr{Dst: scaled, Op: ir.Mul, Lhs: idx, Rhs: size})
		addr := g.proc.Registers.New(&cgtype.Pointer{Elem: elem})
		g.emit(&ir.BinOpInstr{Dst: addr, Op: ir.Add, Lhs: target, Rhs: scaled})
		return addr, elem
	}
	g.diags.Addf(e.Position(), diag.PhaseSema, diag.Error, "expression is not assignable")
	v, t := g.lowerExpr(e)
	return v, t
}

func (g *Generator) offsetAddr(base ir.Operand, offset int) ir.Operand {
	if offset == 0 {
		return base
	}
	dst := g.proc.Registers.New(&cgtype.Pointer{Elem: cgtype.IntType})
	g.emit(&ir.BinOpInstr{Dst: dst, Op: ir.Add, Lhs: base, Rhs: ir.Imm{Value: int64(offset), Type: cgtype.IntType}})
	return dst
}

func (g *Generator) lowerUnary(n *ast.UnaryExpr) (ir.Operand, cgtype.Type) {
	switch n.Op {
	case ast.OpAddr:
		addr, t := g.lowerAddr(n.Operand)
		return addr, &cgtype.Pointer{Elem: t}
	case ast.OpDeref:
		addr, t := g.lowerAddr(n)
		return g.emitLoad(addr, t), t
	case ast.OpPreInc, ast.OpPreDec, ast.OpPostInc, ast.OpPostDec:
		return g.lowerIncDec(n)
	}
	v, t := g.lowerExpr(n.Operand)
	switch n.Op {
	case ast.OpPlus:
		return v, promote(t)
	case ast.OpNeg:
		pt := promote(t)
		v = g.emitConvert(v, t, pt)
		dst := g.proc.Registers.New(pt)
		g.emit(&ir.UnOpInstr{Dst: dst, Op: ir.Neg, Operand: v})
		return dst, pt
	case ast.OpBitNot:
		pt := promote(t)
		v = g.emitConvert(v, t, pt)
		dst := g.proc.Registers.New(pt)
		g.emit(&ir.UnOpInstr{Dst: dst, Op: ir.BitNot, Operand: v})
		return dst, pt
	case ast.OpNot:
		dst := g.proc.Registers.New(cgtype.BoolType)
		g.emit(&ir.UnOpInstr{Dst: dst, Op: ir.Not, Operand: v})
		return dst, cgtype.BoolType
	}
	return v, t
}

func (g *Generator) lowerIncDec(n *ast.UnaryExpr) (ir.Operand, cgtype.Type) {
	addr, t := g.lowerAddr(n.Operand)
	old := g.emitLoad(addr, t)
	op := ir.Add
	if n.Op == ast.OpPreDec || n.Op == ast.OpPostDec {
		op = ir.Sub
	}
	step := int64(1)
	if ptr, ok := t.(*cgtype.Pointer); ok {
		step = int64(ptr.Elem.Size())
	}
	updated := g.proc.Registers.New(t)
	g.emit(&ir.BinOpInstr{Dst: updated, Op: op, Lhs: old, Rhs: ir.Imm{Value: step, Type: cgtype.IntType}})
	g.emit(&ir.Store{Addr: addr, Value: updated, Type: t})
	if n.Op == ast.OpPreInc || n.Op == ast.OpPreDec {
		return updated, t
	}
	return old, t
}

func (g *Generator) lowerBinary(n *ast.BinaryExpr) (ir.Operand, cgtype.Type) {
	if n.Op == ast.OpLogAnd || n.Op == ast.OpLogOr {
		return g.lowerShortCircuit(n)
	}
	lv, lt := g.lowerExpr(n.Left)
	rv, rt := g.lowerExpr(n.Right)
	resultType := usualArithmeticType(lt, rt)
	lv = g.emitConvert(lv, lt, resultType)
	rv = g.emitConvert(rv, rt, resultType)

	op := binOpMap[n.Op]
	switch n.Op {
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		switch n.Op {
		case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
			g.checkMixedSignCompare(n.Position(), lt, rt)
		}
		dst := g.proc.Registers.New(cgtype.BoolType)
		unsigned := !isSigned(resultType)
		g.emit(&ir.BinOpInstr{Dst: dst, Op: op, Lhs: lv, Rhs: rv, Unsigned: unsigned})
		return dst, cgtype.BoolType
	default:
		g.checkArithOperands(n.Position(), lt, rt)
		dst := g.proc.Registers.New(resultType)
		unsigned := !isSigned(resultType)
		g.emit(&ir.BinOpInstr{Dst: dst, Op: op, Lhs: lv, Rhs: rv, Unsigned: unsigned})
		return dst, resultType
	}
}

// lowerShortCircuit lowers && and || with a join block and a
// destination register the taken arm writes.
func (g *Generator) lowerShortCircuit(n *ast.BinaryExpr) (ir.Operand, cgtype.Type) {
	dst := g.proc.Registers.New(cgtype.BoolType)
	rhsBlock := g.newBlock("sc.rhs")
	joinBlock := g.newBlock("sc.join")
	shortBlock := g.newBlock("sc.short")

	lv, _ := g.lowerExpr(n.Left)
	if n.Op == ast.OpLogAnd {
		g.setTerm(&ir.Branch{Cond: lv, True: rhsBlock.Label, False: shortBlock.Label})
	} else {
		g.setTerm(&ir.Branch{Cond: lv, True: shortBlock.Label, False: rhsBlock.Label})
	}

	g.startBlock(shortBlock)
	shortVal := int64(0)
	if n.Op == ast.OpLogOr {
		shortVal = 1
	}
	g.emit(&ir.Move{Dst: dst, Src: ir.Imm{Value: shortVal, Type: cgtype.BoolType}})
	g.setTerm(&ir.Jump{Target: joinBlock.Label})

	g.startBlock(rhsBlock)
	rv, _ := g.lowerExpr(n.Right)
	rbool := g.proc.Registers.New(cgtype.BoolType)
	g.emit(&ir.BinOpInstr{Dst: rbool, Op: ir.Ne, Lhs: rv, Rhs: ir.Imm{Value: 0, Type: cgtype.IntType}})
	g.emit(&ir.Move{Dst: dst, Src: rbool})
	g.setTerm(&ir.Jump{Target: joinBlock.Label})

	g.startBlock(joinBlock)
	return dst, cgtype.BoolType
}

func (g *Generator) lowerConditional(n *ast.ConditionalExpr) (ir.Operand, cgtype.Type) {
	cond, _ := g.lowerExpr(n.Cond)
	thenBlock := g.newBlock("cond.then")
	elseBlock := g.newBlock("cond.else")
	joinBlock := g.newBlock("cond.join")
	g.setTerm(&ir.Branch{Cond: cond, True: thenBlock.Label, False: elseBlock.Label})

	g.startBlock(thenBlock)
	thenVal, thenType := g.lowerExpr(n.Then)
	dst := g.proc.Registers.New(thenType)
	g.emit(&ir.Move{Dst: dst, Src: thenVal})
	g.setTerm(&ir.Jump{Target: joinBlock.Label})

	g.startBlock(elseBlock)
	elseVal, elseType := g.lowerExpr(n.Else)
	g.emit(&ir.Move{Dst: dst, Src: g.emitConvert(elseVal, elseType, thenType)})
	g.setTerm(&ir.Jump{Target: joinBlock.Label})

	g.startBlock(joinBlock)
	return dst, thenType
}

func (g *Generator) lowerAssign(n *ast.AssignExpr) (ir.Operand, cgtype.Type) {
	addr, targetType := g.lowerAddr(n.Target)
	if n.Op == ast.AssignSimple {
		v, vt := g.lowerExpr(n.Value)
		g.checkConversion(n.Value.Position(), vt, targetType)
		v = g.emitConvert(v, vt, targetType)
		if _, isRec := targetType.(*cgtype.Record); isRec {
			g.emit(&ir.MemCopy{Dst: addr, Src: v, Size: targetType.Size()})
			return v, targetType
		}
		g.emit(&ir.Store{Addr: addr, Value: v, Type: targetType})
		return v, targetType
	}

	binOp := compoundToBinOp[n.Op]
	old := g.emitLoad(addr, targetType)
	rv, rt := g.lowerExpr(n.Value)
	resultType := usualArithmeticType(targetType, rt)
	lhs := g.emitConvert(old, targetType, resultType)
	rhs := g.emitConvert(rv, rt, resultType)
	dst := g.proc.Registers.New(resultType)
	g.emit(&ir.BinOpInstr{Dst: dst, Op: binOpMap[binOp], Lhs: lhs, Rhs: rhs, Unsigned: !isSigned(resultType)})
	narrowed := g.emitConvert(dst, resultType, targetType)
	g.emit(&ir.Store{Addr: addr, Value: narrowed, Type: targetType})
	return narrowed, targetType
}

func (g *Generator) lowerCall(n *ast.CallExpr) (ir.Operand, cgtype.Type) {
	var fn *cgtype.Function
	var funcName string
	var viaPtr ir.Operand

	if id, ok := n.Callee.(*ast.Ident); ok {
		if s := g.scope.Lookup(sym.Ordinary, id.Name); s != nil {
			if f, ok := s.Type.(*cgtype.Function); ok {
				fn = f
				funcName = id.Name
			}
		}
	}
	if fn == nil {
		v, t := g.lowerExpr(n.Callee)
		if ptr, ok := t.(*cgtype.Pointer); ok {
			if f, ok := ptr.Elem.(*cgtype.Function); ok {
				fn = f
			}
		}
		viaPtr = v
	}

	var args []ir.Operand
	for i, a := range n.Args {
		v, t := g.lowerExpr(a)
		if fn != nil && i < len(fn.Params) {
			g.checkConversion(a.Position(), t, fn.Params[i])
			v = g.emitConvert(v, t, fn.Params[i])
		}
		args = append(args, v)
	}

	retType := cgtype.Type(cgtype.IntType)
	hasReturn := true
	if fn != nil {
		if fn.Return == nil {
			hasReturn = false
		} else {
			retType = fn.Return
		}
	}

	call := &ir.Call{Func: funcName, Args: args, ViaPtr: viaPtr}
	if hasReturn {
		dst := g.proc.Registers.New(retType)
		call.Dst = dst
		call.HasDst = true
		g.emit(call)
		return dst, retType
	}
	g.emit(call)
	return ir.Imm{Value: 0, Type: cgtype.VoidType}, cgtype.VoidType
}

// lowerInitializerInto lowers init, storing its value(s) into the
// storage addressed by addr, used for locals and compound literals
// (global initializers go through buildGlobalInit instead, since
// those must already be compile-time constant).
func (g *Generator) lowerInitializerInto(addr ir.Operand, t cgtype.Type, init ast.Initializer) {
	switch n := init.(type) {
	case *ast.ScalarInit:
		v, vt := g.lowerExpr(n.Value)
		g.checkConversion(n.Value.Position(), vt, t)
		v = g.emitConvert(v, vt, t)
		if _, isRec := t.(*cgtype.Record); isRec {
			g.emit(&ir.MemCopy{Dst: addr, Src: v, Size: t.Size()})
			return
		}
		g.emit(&ir.Store{Addr: addr, Value: v, Type: t})

	case *ast.ListInit:
		switch ct := t.(type) {
		case *cgtype.Array:
			for i, item := range n.Items {
				idx := i
				if len(item.Designators) > 0 {
					if id, ok := item.Designators[0].(*ast.IndexDesignator); ok {
						cv := g.constFold(id.Index)
						if cv.Ok {
							idx = int(cv.Value)
						}
					}
				}
				elemAddr := g.offsetAddr(addr, idx*ct.Elem.Size())
				g.lowerInitializerInto(elemAddr, ct.Elem, item.Value)
			}
		case *cgtype.Record:
			pos := 0
			for _, item := range n.Items {
				idx := pos
				if len(item.Designators) > 0 {
					if fd, ok := item.Designators[0].(*ast.FieldDesignator); ok {
						for i, f := range ct.Def.Fields {
							if f.Name == fd.Name {
								idx = i
								break
							}
						}
					}
				}
				if idx < len(ct.Def.Fields) {
					f := ct.Def.Fields[idx]
					fieldAddr := g.offsetAddr(addr, f.ByteOffset)
					g.lowerInitializerInto(fieldAddr, f.Type, item.Value)
				}
				pos = idx + 1
				if ct.Def.Kind == cgtype.UnionKind {
					break
				}
			}
		}
	}
}
