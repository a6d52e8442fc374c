package cgen

import (
	"zcc/internal/ast"
	"zcc/internal/cgtype"
	"zcc/internal/diag"
	"zcc/internal/ir"
)

// genStmt lowers one statement into the current procedure, advancing
// g.curBlock as control-flow constructs open and close new blocks.
func (g *Generator) genStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.CompoundStmt:
		g.genCompound(n)
	case *ast.ExprStmt:
		g.lowerExpr(n.Expr)
	case *ast.EmptyStmt:
		// nothing to emit
	case *ast.IfStmt:
		g.genIf(n)
	case *ast.WhileStmt:
		g.genWhile(n)
	case *ast.DoWhileStmt:
		g.genDoWhile(n)
	case *ast.ForStmt:
		g.genFor(n)
	case *ast.SwitchStmt:
		g.genSwitch(n)
	case *ast.CaseStmt:
		g.genCase(n)
	case *ast.DefaultStmt:
		g.genDefault(n)
	case *ast.BreakStmt:
		g.genBreak(n)
	case *ast.ContinueStmt:
		g.genContinue(n)
	case *ast.ReturnStmt:
		g.genReturn(n)
	case *ast.GotoStmt:
		g.setTerm(&ir.Jump{Target: g.userLabel(n.Label)})
		g.startBlock(g.newBlock("after.goto"))
	case *ast.LabeledStmt:
		g.genLabeled(n)
	case *ast.AsmStmt:
		g.genAsm(n)
	default:
		g.diags.Addf(s.Position(), diag.PhaseSema, diag.Error, "unsupported statement construct")
	}
}

func (g *Generator) genCompound(n *ast.CompoundStmt) {
	outer := g.pushScope()
	defer g.popScope(outer)
	for _, item := range n.Items {
		switch it := item.(type) {
		case *ast.Declaration:
			g.genDeclaration(it, false)
		case ast.Stmt:
			g.genStmt(it)
		}
	}
}

func (g *Generator) genIf(n *ast.IfStmt) {
	cond := g.lowerCondition(n.Cond)
	thenBlock := g.newBlock("if.then")
	endBlock := g.newBlock("if.end")
	elseBlock := endBlock
	if n.Else != nil {
		elseBlock = g.newBlock("if.else")
	}
	g.setTerm(&ir.Branch{Cond: cond, True: thenBlock.Label, False: elseBlock.Label})

	g.startBlock(thenBlock)
	g.genStmt(n.Then)
	g.setTerm(&ir.Jump{Target: endBlock.Label})

	if n.Else != nil {
		g.startBlock(elseBlock)
		g.genStmt(n.Else)
		g.setTerm(&ir.Jump{Target: endBlock.Label})
	}

	g.startBlock(endBlock)
}

// genWhile lowers `while (cond) body` as a header block that tests
// cond up front, the textbook loop shape. The test is not rotated to
// the loop bottom, here or in the selector, which emits blocks in
// this order.
func (g *Generator) genWhile(n *ast.WhileStmt) {
	headerBlock := g.newBlock("while.header")
	bodyBlock := g.newBlock("while.body")
	endBlock := g.newBlock("while.end")

	g.setTerm(&ir.Jump{Target: headerBlock.Label})
	g.startBlock(headerBlock)
	cond := g.lowerCondition(n.Cond)
	g.setTerm(&ir.Branch{Cond: cond, True: bodyBlock.Label, False: endBlock.Label})

	g.pushLoop(endBlock.Label, headerBlock.Label)
	g.startBlock(bodyBlock)
	g.genStmt(n.Body)
	g.setTerm(&ir.Jump{Target: headerBlock.Label})
	g.popLoop()

	g.startBlock(endBlock)
}

func (g *Generator) genDoWhile(n *ast.DoWhileStmt) {
	bodyBlock := g.newBlock("do.body")
	condBlock := g.newBlock("do.cond")
	endBlock := g.newBlock("do.end")

	g.setTerm(&ir.Jump{Target: bodyBlock.Label})
	g.pushLoop(endBlock.Label, condBlock.Label)
	g.startBlock(bodyBlock)
	g.genStmt(n.Body)
	g.setTerm(&ir.Jump{Target: condBlock.Label})
	g.popLoop()

	g.startBlock(condBlock)
	cond := g.lowerCondition(n.Cond)
	g.setTerm(&ir.Branch{Cond: cond, True: bodyBlock.Label, False: endBlock.Label})

	g.startBlock(endBlock)
}

func (g *Generator) genFor(n *ast.ForStmt) {
	outer := g.pushScope()
	defer g.popScope(outer)

	if n.Init != nil {
		switch it := n.Init.(type) {
		case *ast.Declaration:
			g.genDeclaration(it, false)
		case ast.Stmt:
			g.genStmt(it)
		}
	}

	headerBlock := g.newBlock("for.header")
	bodyBlock := g.newBlock("for.body")
	postBlock := g.newBlock("for.post")
	endBlock := g.newBlock("for.end")

	g.setTerm(&ir.Jump{Target: headerBlock.Label})
	g.startBlock(headerBlock)
	if n.Cond != nil {
		cond := g.lowerCondition(n.Cond)
		g.setTerm(&ir.Branch{Cond: cond, True: bodyBlock.Label, False: endBlock.Label})
	} else {
		g.setTerm(&ir.Jump{Target: bodyBlock.Label})
	}

	g.pushLoop(endBlock.Label, postBlock.Label)
	g.startBlock(bodyBlock)
	g.genStmt(n.Body)
	g.setTerm(&ir.Jump{Target: postBlock.Label})
	g.popLoop()

	g.startBlock(postBlock)
	if n.Post != nil {
		g.lowerExpr(n.Post)
	}
	g.setTerm(&ir.Jump{Target: headerBlock.Label})

	g.startBlock(endBlock)
}

func (g *Generator) pushLoop(breakLabel, contLabel string) {
	g.loopBreak = append(g.loopBreak, breakLabel)
	g.loopCont = append(g.loopCont, contLabel)
}

func (g *Generator) popLoop() {
	g.loopBreak = g.loopBreak[:len(g.loopBreak)-1]
	g.loopCont = g.loopCont[:len(g.loopCont)-1]
}

func (g *Generator) genBreak(n *ast.BreakStmt) {
	if len(g.loopBreak) == 0 {
		g.diags.Addf(n.Position(), diag.PhaseSema, diag.Error, "break statement not within a loop or switch")
		return
	}
	g.setTerm(&ir.Jump{Target: g.loopBreak[len(g.loopBreak)-1]})
	g.startBlock(g.newBlock("after.break"))
}

func (g *Generator) genContinue(n *ast.ContinueStmt) {
	if len(g.loopCont) == 0 {
		g.diags.Addf(n.Position(), diag.PhaseSema, diag.Error, "continue statement not within a loop")
		return
	}
	g.setTerm(&ir.Jump{Target: g.loopCont[len(g.loopCont)-1]})
	g.startBlock(g.newBlock("after.continue"))
}

func (g *Generator) genReturn(n *ast.ReturnStmt) {
	if !n.HasValue {
		g.setTerm(&ir.Return{})
		g.startBlock(g.newBlock("after.return"))
		return
	}
	v, t := g.lowerExpr(n.Value)
	if g.proc.Return != nil {
		g.checkConversion(n.Value.Position(), t, g.proc.Return)
		v = g.emitConvert(v, t, g.proc.Return)
	}
	g.setTerm(&ir.Return{Value: v, HasValue: true})
	g.startBlock(g.newBlock("after.return"))
}

func (g *Generator) userLabel(name string) string {
	return "user." + g.proc.Name + "." + name
}

func (g *Generator) genLabeled(n *ast.LabeledStmt) {
	block := &ir.Block{Label: g.userLabel(n.Label)}
	g.setTerm(&ir.Jump{Target: block.Label})
	g.startBlock(block)
	g.genStmt(n.Stmt)
}

// genSwitch lowers a switch to a chain of compare-and-branch blocks,
// one per case, ending in the default target (or the switch's end
// block if there is no default); no jump tables. A strict enum tag
// gets an unhandled-enumerator diagnostic for any value the body
// doesn't cover.
func (g *Generator) genSwitch(n *ast.SwitchStmt) {
	tag, tagType := g.lowerExpr(n.Tag)
	endLabel := g.newLabel("switch.end")

	var strictEnum *cgtype.EnumDef
	if et, ok := tagType.(*cgtype.Enum); ok && et.Def.Strict {
		strictEnum = et.Def
	}

	state := &switchLowerState{
		tag: tag, tagType: tagType, strictEnum: strictEnum,
		seen: make(map[string]bool), endLabel: endLabel,
	}
	g.switchInfo = append(g.switchInfo, state)
	g.loopBreak = append(g.loopBreak, endLabel)

	bodyBlock := g.newBlock("switch.body")
	g.setTerm(&ir.Jump{Target: bodyBlock.Label})
	g.startBlock(bodyBlock)
	g.genStmt(n.Body)
	g.setTerm(&ir.Jump{Target: endLabel})

	g.loopBreak = g.loopBreak[:len(g.loopBreak)-1]
	g.switchInfo = g.switchInfo[:len(g.switchInfo)-1]

	if strictEnum != nil {
		for _, ec := range strictEnum.Enumerators {
			if !state.seen[ec.Name] {
				g.diags.Addf(n.Position(), diag.PhaseSema, diag.Warning,
					"enumerator %q not handled in switch", ec.Name)
			}
		}
	}

	g.startBlock(&ir.Block{Label: endLabel})
}

// genCase does not restructure control flow into a jump table; it
// inserts a compare-against-tag test immediately before the case
// body, leaving fall-through to the next statement in source order
//. Stacked labels (`case 1: case 2:
// foo();`) parse as nested CaseStmt/DefaultStmt, so this peels every
// leading label off the chain and OR's them into one shared body
// before lowering the statement they finally wrap.
func (g *Generator) genCase(n *ast.CaseStmt) {
	g.genCaseGroup(n)
}

func (g *Generator) genDefault(n *ast.DefaultStmt) {
	g.genCaseGroup(n)
}

func (g *Generator) genCaseGroup(first ast.Stmt) {
	if len(g.switchInfo) == 0 {
		g.diags.Addf(first.Position(), diag.PhaseSema, diag.Error, "case/default label not within a switch")
		g.genStmt(g.peelLabelBody(first))
		return
	}
	state := g.switchInfo[len(g.switchInfo)-1]
	caseBlock := g.newBlock("case.body")

	cur := first
	for {
		switch n := cur.(type) {
		case *ast.CaseStmt:
			v := g.constFold(n.Value)
			if !v.Ok {
				g.diags.Addf(n.Position(), diag.PhaseSema, diag.Error, "case label is not a compile-time constant")
				cur = n.Stmt
				continue
			}
			if state.strictEnum != nil {
				for _, ec := range state.strictEnum.Enumerators {
					if ec.Value == v.Value {
						state.seen[ec.Name] = true
					}
				}
			}
			testBlock := g.newBlock("case.test")
			g.setTerm(&ir.Jump{Target: testBlock.Label})
			g.startBlock(testBlock)
			cmp := g.proc.Registers.New(cgtype.BoolType)
			g.emit(&ir.BinOpInstr{Dst: cmp, Op: ir.Eq, Lhs: state.tag, Rhs: ir.Imm{Value: v.Value, Type: state.tagType}})
			fallBlock := g.newBlock("case.next")
			g.setTerm(&ir.Branch{Cond: cmp, True: caseBlock.Label, False: fallBlock.Label})
			g.startBlock(fallBlock)
			cur = n.Stmt
			continue
		case *ast.DefaultStmt:
			state.sawDefault = true
			g.setTerm(&ir.Jump{Target: caseBlock.Label})
			g.startBlock(g.newBlock("case.unreachable"))
			cur = n.Stmt
			continue
		}
		break
	}

	g.startBlock(caseBlock)
	g.genStmt(cur)
}

// peelLabelBody strips a chain of misplaced case/default wrappers down
// to the real statement, used only on the error path above.
func (g *Generator) peelLabelBody(s ast.Stmt) ast.Stmt {
	for {
		switch n := s.(type) {
		case *ast.CaseStmt:
			s = n.Stmt
		case *ast.DefaultStmt:
			s = n.Stmt
		default:
			return s
		}
	}
}

// genAsm lowers an inline assembler statement to an InlineAsm
// instruction carrying its decoded template and operand/clobber lists;
// the Z80 selector is the only stage that ever interprets the template
// text.
func (g *Generator) genAsm(n *ast.AsmStmt) {
	inst := &ir.InlineAsm{Template: decodeStringLiteral(n.Template), Volatile: n.Volatile}
	for _, c := range n.Clobbers {
		inst.Clobbers = append(inst.Clobbers, decodeStringLiteral(c))
	}
	for _, o := range n.Outputs {
		addr, t := g.lowerAddr(o.Expr)
		inst.Outputs = append(inst.Outputs, ir.AsmOperand{Constraint: decodeStringLiteral(o.Constraint), Value: addr, Type: t})
	}
	for _, o := range n.Inputs {
		v, t := g.lowerExpr(o.Expr)
		inst.Inputs = append(inst.Inputs, ir.AsmOperand{Constraint: decodeStringLiteral(o.Constraint), Value: v, Type: t})
	}
	g.emit(inst)
}
