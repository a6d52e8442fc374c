package cgen

import (
	"zcc/internal/cgtype"
	"zcc/internal/ir"
)

// newBlock allocates a fresh block labeled name. It neither adds the
// block to the current procedure nor makes it the insertion point;
// startBlock does both.
func (g *Generator) newBlock(label string) *ir.Block {
	return &ir.Block{Label: g.newLabel(label)}
}

// startBlock appends block to the current procedure and makes it the
// insertion point.
func (g *Generator) startBlock(block *ir.Block) {
	g.proc.Blocks = append(g.proc.Blocks, block)
	g.curBlock = block
}

// emit appends instr to the current block if it isn't already
// terminated; straight-line instructions after a terminator (dead code
// following return/break/continue) are silently dropped, matching the
// "basic blocks end in exactly one terminator" invariant.
func (g *Generator) emit(instr ir.Instr) {
	if g.curBlock.Term != nil {
		return
	}
	g.curBlock.Instrs = append(g.curBlock.Instrs, instr)
}

// setTerm terminates the current block, if it isn't already terminated.
func (g *Generator) setTerm(instr ir.Instr) {
	if g.curBlock.Term != nil {
		return
	}
	g.curBlock.Term = instr
}

// emitAddrOf computes the address of symbol+offset. elem is the type
// stored there (the whole declared type at offset 0, a member/element
// type at a nonzero offset); the Z80 selector reads it back off the
// pointer register to size that symbol's stack-frame slot, which needs
// the named local's full extent, not just the widest access to it.
func (g *Generator) emitAddrOf(symbol string, offset int, elem cgtype.Type) ir.Operand {
	dst := g.proc.Registers.New(&cgtype.Pointer{Elem: elem})
	g.emit(&ir.AddrOf{Dst: dst, Symbol: symbol, Offset: offset})
	return dst
}

func (g *Generator) emitLoad(addr ir.Operand, t cgtype.Type) ir.Operand {
	dst := g.proc.Registers.New(t)
	g.emit(&ir.Load{Dst: dst, Addr: addr, Type: t})
	return dst
}

func (g *Generator) emitConvert(src ir.Operand, from, to cgtype.Type) ir.Operand {
	if cgtype.Equal(from, to) {
		return src
	}
	dst := g.proc.Registers.New(to)
	g.emit(&ir.Convert{Dst: dst, Src: src, From: from, To: to})
	return dst
}

func (g *Generator) emitMove(src ir.Operand, t cgtype.Type) ir.Operand {
	dst := g.proc.Registers.New(t)
	g.emit(&ir.Move{Dst: dst, Src: src})
	return dst
}

// pruneUnreachable drops every non-entry block no terminator reaches,
// to a fixpoint. Statement lowering opens continuation blocks after
// return/break/continue/goto unconditionally; when no control flow
// ever lands there, they would leave predecessor-less blocks behind,
// violating the CFG invariant every consumer relies on.
func pruneUnreachable(p *ir.Proc) {
	for {
		preds := make(map[string]int)
		for _, b := range p.Blocks {
			switch t := b.Term.(type) {
			case *ir.Jump:
				preds[t.Target]++
			case *ir.Branch:
				preds[t.True]++
				preds[t.False]++
			}
		}
		kept := p.Blocks[:0]
		removed := false
		for i, b := range p.Blocks {
			if i == 0 || preds[b.Label] > 0 {
				kept = append(kept, b)
			} else {
				removed = true
			}
		}
		p.Blocks = kept
		if !removed {
			return
		}
	}
}
