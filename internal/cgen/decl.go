package cgen

import (
	"zcc/internal/ast"
	"zcc/internal/cgtype"
	"zcc/internal/diag"
	"zcc/internal/ir"
	"zcc/internal/sym"
)

func (g *Generator) genExternalDecl(decl ast.ExternalDecl) {
	switch d := decl.(type) {
	case *ast.Declaration:
		g.genDeclaration(d, true)
	case *ast.FunctionDef:
		g.genFunctionDef(d)
	}
}

// genDeclaration handles a Declaration at file or block scope: typedefs
// register a name, everything else becomes a global (file scope) or
// local (block scope) variable, optionally initialized.
func (g *Generator) genDeclaration(d *ast.Declaration, fileScope bool) {
	if d.Specs.Storage == ast.StorageTypedef {
		for _, id := range d.InitDeclarators {
			t := g.buildType(d.Specs, id.Declarator)
			g.typedefs[id.Declarator.Name] = t
			g.scope.Declare(sym.Ordinary, &sym.Symbol{
				Name: id.Declarator.Name, Kind: sym.TypedefName, Type: t, Pos: id.Declarator.Position(),
			})
		}
		return
	}

	if len(d.InitDeclarators) == 0 {
		// bare `struct foo;` or `enum bar;` tag declaration; resolveTypeSpec
		// already registered the tag as a side effect.
		g.resolveTypeSpec(d.Specs.Type)
		return
	}

	for _, id := range d.InitDeclarators {
		t := g.buildType(d.Specs, id.Declarator)
		kind := sym.GlobalSymbol
		if !fileScope {
			kind = sym.LocalVariable
		}
		if existing := g.scope.LookupLocal(sym.Ordinary, id.Declarator.Name); existing != nil {
			g.diags.Addf(id.Declarator.Position(), diag.PhaseSema, diag.Error, "redefinition of %q", id.Declarator.Name)
			continue
		}
		g.scope.Declare(sym.Ordinary, &sym.Symbol{
			Name: id.Declarator.Name, Kind: kind, Type: t, Pos: id.Declarator.Position(),
		})

		if fileScope {
			global := &ir.Global{Name: id.Declarator.Name, Type: t}
			if id.Init != nil {
				global.Init = g.buildGlobalInit(id.Init, t)
			}
			g.module.Globals = append(g.module.Globals, global)
			continue
		}

		// block-scope local: the storage is addressed by name via AddrOf,
		// same as a global, but never appears in Module.Globals; the Z80
		// selector allocates stack slots for every local it observes this
		// way.
		if id.Init != nil {
			addr := g.emitAddrOf(id.Declarator.Name, 0, t)
			g.lowerInitializerInto(addr, t, id.Init)
		}
	}
}

func (g *Generator) buildGlobalInit(init ast.Initializer, t cgtype.Type) ir.Initializer {
	switch n := init.(type) {
	case *ast.ScalarInit:
		return g.buildScalarGlobalInit(n.Value, t)
	case *ast.ListInit:
		return g.buildListGlobalInit(n, t)
	default:
		return nil
	}
}

func (g *Generator) buildScalarGlobalInit(e ast.Expr, t cgtype.Type) ir.Initializer {
	if u, ok := e.(*ast.UnaryExpr); ok && u.Op == ast.OpAddr {
		if target, name, offset := g.addressTargetName(u.Operand); target {
			return ir.AddrInit{Target: name, Offset: offset}
		}
	}
	v := g.constFold(e)
	if !v.Ok {
		g.diags.Addf(e.Position(), diag.PhaseSema, diag.Error, "global initializer is not a compile-time constant")
		return ir.ConstInit{Value: 0}
	}
	if !inRange(v.Value, t) {
		g.diags.Addf(e.Position(), diag.PhaseSema, diag.Warning, "overflow in initializer for type %s", t.String())
	}
	return ir.ConstInit{Value: truncateToType(v.Value, t)}
}

// addressTargetName resolves `&name` / `&name[const-index]` to a global
// symbol name and byte offset, the shape a static AddrInit needs.
func (g *Generator) addressTargetName(e ast.Expr) (ok bool, name string, offset int) {
	switch n := e.(type) {
	case *ast.Ident:
		return true, n.Name, 0
	case *ast.IndexExpr:
		base, baseName, baseOff := g.addressTargetName(n.Target)
		if !base {
			return false, "", 0
		}
		idx := g.constFold(n.Index)
		if !idx.Ok {
			return false, "", 0
		}
		s := g.scope.Lookup(sym.Ordinary, baseName)
		elemSize := 1
		if s != nil {
			if arr, ok := s.Type.(*cgtype.Array); ok {
				elemSize = arr.Elem.Size()
			}
		}
		return true, baseName, baseOff + int(idx.Value)*elemSize
	default:
		return false, "", 0
	}
}

func (g *Generator) buildListGlobalInit(li *ast.ListInit, t cgtype.Type) ir.Initializer {
	switch ct := t.(type) {
	case *cgtype.Array:
		var elems []ir.Initializer
		for _, item := range li.Items {
			elems = append(elems, g.buildGlobalInit(item.Value, ct.Elem))
		}
		if !ct.HasSize {
			ct.Len = len(elems)
			ct.HasSize = true
		}
		return ir.AggregateInit{Elems: elems}
	case *cgtype.Record:
		elems := make([]ir.Initializer, len(ct.Def.Fields))
		pos := 0
		for _, item := range li.Items {
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
				elems[idx] = g.buildGlobalInit(item.Value, ct.Def.Fields[idx].Type)
			}
			pos = idx + 1
			if ct.Def.Kind == cgtype.UnionKind {
				break // only the first initialized member of a union is permitted
			}
		}
		for i, e := range elems {
			if e == nil {
				elems[i] = ir.ConstInit{Value: 0}
			}
		}
		return ir.AggregateInit{Elems: elems}
	default:
		if len(li.Items) == 1 {
			return g.buildGlobalInit(li.Items[0].Value, t)
		}
		return ir.ConstInit{Value: 0}
	}
}

// genFunctionDef lowers one function definition into an *ir.Proc.
func (g *Generator) genFunctionDef(fd *ast.FunctionDef) {
	fnType := g.buildType(fd.Specs, fd.Declarator)
	fn, _ := fnType.(*cgtype.Function)

	g.scope.Declare(sym.Ordinary, &sym.Symbol{
		Name: fd.Declarator.Name, Kind: sym.GlobalSymbol, Type: fnType, Pos: fd.Declarator.Position(),
	})

	proc := &ir.Proc{Name: fd.Declarator.Name}
	if fn != nil {
		proc.Return = fn.Return
		if b, ok := fn.Return.(*cgtype.Basic); ok && b.Kind == cgtype.Void {
			proc.Return = nil
		}
	}
	for _, attr := range fd.Attributes {
		if attr.Name == "interrupt" || attr.Name == "isr" {
			proc.Attrs.UserServiceRoutine = true
		}
	}

	outer := g.pushScope()
	prevProc, prevBlock := g.proc, g.curBlock
	g.proc = proc
	g.curBlock = g.newBlock("entry")
	proc.Blocks = append(proc.Blocks, g.curBlock)

	var paramDecl *ast.FuncSuffix
	for _, suf := range fd.Declarator.Suffixes {
		if fs, ok := suf.(*ast.FuncSuffix); ok {
			paramDecl = fs
		}
	}
	if paramDecl != nil {
		for i, p := range paramDecl.Params {
			if p.Declarator == nil || p.Declarator.Name == "" {
				continue
			}
			var pt cgtype.Type
			if fn != nil && i < len(fn.Params) {
				pt = fn.Params[i]
			} else {
				pt = g.buildType(p.Specs, p.Declarator)
			}
			reg := proc.Registers.New(pt)
			proc.Params = append(proc.Params, ir.Param{Name: p.Declarator.Name, Reg: reg})
			g.scope.Declare(sym.Ordinary, &sym.Symbol{
				Name: p.Declarator.Name, Kind: sym.Argument, Type: pt, Pos: p.Declarator.Position(),
			})
			addr := g.emitAddrOf(p.Declarator.Name, 0, pt)
			g.emit(&ir.Store{Addr: addr, Value: reg, Type: pt})
		}
	}

	g.genStmt(fd.Body)

	if g.curBlock.Term == nil {
		g.setTerm(&ir.Return{})
	}
	pruneUnreachable(proc)

	g.module.Procs = append(g.module.Procs, proc)

	g.popScope(outer)
	g.proc, g.curBlock = prevProc, prevBlock
}
