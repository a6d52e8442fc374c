package z80

import (
	"fmt"

	"zcc/internal/cgtype"
	"zcc/internal/ir"
)

// selectBinOp lowers one binary IR operation onto width-categorized
// Z80 sequences: 8-bit through the A accumulator, 16-bit through
// HL/DE, wider widths as 16-bit limb chains with explicit carry
// propagation. Multiplication is an open-coded shift-and-add loop and
// division a restoring subtract loop; the Z80 has neither in
// hardware.
func (ps *procSel) selectBinOp(n *ir.BinOpInstr) error {
	lhs, lsize, err := ps.materialize(n.Lhs)
	if err != nil {
		return err
	}
	rhs, rsize, err := ps.materialize(n.Rhs)
	if err != nil {
		return err
	}
	dst := ps.regSlot(n.Dst)

	switch n.Op {
	case ir.Add, ir.Sub:
		ps.genAddSub(dst, lhs, rhs, sizeOfType(n.Dst.Type), n.Op == ir.Sub)
	case ir.And, ir.Or, ir.Xor:
		ps.genBitwise(dst, lhs, rhs, sizeOfType(n.Dst.Type), n.Op)
	case ir.Mul:
		ps.genMul(dst, lhs, rhs, sizeOfType(n.Dst.Type))
	case ir.Div, ir.Mod:
		ps.genDivMod(dst, lhs, rhs, sizeOfType(n.Dst.Type), n.Op == ir.Mod, !n.Unsigned)
	case ir.Shl, ir.Shr:
		ps.genShift(dst, lhs, rhs, sizeOfType(n.Dst.Type), n.Op == ir.Shl, !n.Unsigned)
	case ir.Eq, ir.Ne, ir.Lt, ir.Le, ir.Gt, ir.Ge:
		ps.genCompare(dst, n.Op, lhs, rhs, max(lsize, rsize), n.Unsigned)
	default:
		return fmt.Errorf("unsupported binary operation %d", n.Op)
	}
	return nil
}

// genAddSub emits the add/subtract limb chain. The first limb uses
// ADD/cleared-carry SBC; later limbs continue the carry, which the
// intervening IX-relative loads and stores do not disturb.
func (ps *procSel) genAddSub(dst, lhs, rhs slot, size int, isSub bool) {
	if size == 1 {
		ps.emit("ld", "a", ix(lhs.offset))
		if isSub {
			ps.emit("sub", ix(rhs.offset))
		} else {
			ps.emit("add", "a", ix(rhs.offset))
		}
		ps.emit("ld", ix(dst.offset), "a")
		return
	}
	for limb := 0; limb*2 < size; limb++ {
		o := limb * 2
		ps.emit("ld", "l", ix(lhs.offset+o))
		ps.emit("ld", "h", ix(lhs.offset+o+1))
		ps.emit("ld", "e", ix(rhs.offset+o))
		ps.emit("ld", "d", ix(rhs.offset+o+1))
		switch {
		case isSub && limb == 0:
			ps.emit("or", "a")
			ps.emit("sbc", "hl", "de")
		case isSub:
			ps.emit("sbc", "hl", "de")
		case limb == 0:
			ps.emit("add", "hl", "de")
		default:
			ps.emit("adc", "hl", "de")
		}
		ps.emit("ld", ix(dst.offset+o), "l")
		ps.emit("ld", ix(dst.offset+o+1), "h")
	}
}

func (ps *procSel) genBitwise(dst, lhs, rhs slot, size int, op ir.BinOp) {
	mnemonic := "and"
	switch op {
	case ir.Or:
		mnemonic = "or"
	case ir.Xor:
		mnemonic = "xor"
	}
	for i := 0; i < size; i++ {
		ps.emit("ld", "a", ix(lhs.offset+i))
		ps.emit(mnemonic, ix(rhs.offset+i))
		ps.emit("ld", ix(dst.offset+i), "a")
	}
}

// genMul is the open-coded shift-and-add loop: the multiplier shifts
// right a bit at a time; whenever a bit falls out, the (left-shifting)
// multiplicand is added into the accumulator. One iteration per result
// bit.
func (ps *procSel) genMul(dst, lhs, rhs slot, size int) {
	m := ps.allocSlot(size)
	q := ps.allocSlot(size)
	ps.copyBytes(m, lhs, size)
	ps.copyBytes(q, rhs, size)
	for i := 0; i < size; i++ {
		ps.emit("ld", ix(dst.offset+i), "0")
	}

	loop := ps.newLabel("mul")
	skip := ps.newLabel("mulskip")
	ps.emit("ld", "b", imm(int64(size*8)))
	ps.emitLabel(loop)
	for i := size - 1; i >= 0; i-- {
		if i == size-1 {
			ps.emit("srl", ix(q.offset+i))
		} else {
			ps.emit("rr", ix(q.offset+i))
		}
	}
	ps.emit("jr", "nc", skip)
	ps.emit("ld", "a", ix(dst.offset))
	ps.emit("add", "a", ix(m.offset))
	ps.emit("ld", ix(dst.offset), "a")
	for i := 1; i < size; i++ {
		ps.emit("ld", "a", ix(dst.offset+i))
		ps.emit("adc", "a", ix(m.offset+i))
		ps.emit("ld", ix(dst.offset+i), "a")
	}
	ps.emitLabel(skip)
	for i := 0; i < size; i++ {
		if i == 0 {
			ps.emit("sla", ix(m.offset))
		} else {
			ps.emit("rl", ix(m.offset+i))
		}
	}
	ps.emit("dec", "b")
	ps.emit("jp", "nz", loop)
}

// genDivMod is the restoring division loop. Signed operands are
// negated into scratch copies up front and the result sign fixed up
// afterwards: quotient sign is the XOR of the operand signs, remainder
// sign follows the dividend (C89 truncating division).
func (ps *procSel) genDivMod(dst, lhs, rhs slot, size int, wantMod, signed bool) {
	l := ps.allocSlot(size)
	r := ps.allocSlot(size)
	ps.copyBytes(l, lhs, size)
	ps.copyBytes(r, rhs, size)

	var resultSign slot
	if signed {
		resultSign = ps.allocSlot(1)
		ps.emit("ld", "a", ix(l.offset+size-1))
		if wantMod {
			ps.emit("and", imm(128))
		} else {
			ps.emit("xor", ix(r.offset+size-1))
			ps.emit("and", imm(128))
		}
		ps.emit("ld", ix(resultSign.offset), "a")
		ps.negateIfNegative(l, size)
		ps.negateIfNegative(r, size)
	}

	rem := ps.allocSlot(size)
	trial := ps.allocSlot(size)
	for i := 0; i < size; i++ {
		ps.emit("ld", ix(rem.offset+i), "0")
	}

	loop := ps.newLabel("div")
	restore := ps.newLabel("divrestore")
	ps.emit("ld", "b", imm(int64(size*8)))
	ps.emitLabel(loop)
	// shift the dividend left; its MSB enters the remainder from below
	for i := 0; i < size; i++ {
		if i == 0 {
			ps.emit("sla", ix(l.offset))
		} else {
			ps.emit("rl", ix(l.offset+i))
		}
	}
	for i := 0; i < size; i++ {
		ps.emit("rl", ix(rem.offset+i))
	}
	// trial subtract: remainder - divisor
	ps.emit("ld", "a", ix(rem.offset))
	ps.emit("sub", ix(r.offset))
	ps.emit("ld", ix(trial.offset), "a")
	for i := 1; i < size; i++ {
		ps.emit("ld", "a", ix(rem.offset+i))
		ps.emit("sbc", "a", ix(r.offset+i))
		ps.emit("ld", ix(trial.offset+i), "a")
	}
	ps.emit("jr", "c", restore)
	ps.copyBytes(rem, trial, size)
	ps.emit("set", "0", ix(l.offset))
	ps.emitLabel(restore)
	ps.emit("dec", "b")
	ps.emit("jp", "nz", loop)

	if wantMod {
		ps.copyBytes(dst, rem, size)
	} else {
		ps.copyBytes(dst, l, size)
	}
	if signed {
		skip := ps.newLabel("divsign")
		ps.emit("bit", "7", ix(resultSign.offset))
		ps.emit("jr", "z", skip)
		ps.negateSlot(dst, size)
		ps.emitLabel(skip)
	}
}

// negateIfNegative two's-complements s in place when its sign bit is
// set.
func (ps *procSel) negateIfNegative(s slot, size int) {
	skip := ps.newLabel("negskip")
	ps.emit("bit", "7", ix(s.offset+size-1))
	ps.emit("jr", "z", skip)
	ps.negateSlot(s, size)
	ps.emitLabel(skip)
}

// negateSlot computes 0 - s limb-by-limb through A.
func (ps *procSel) negateSlot(s slot, size int) {
	ps.emit("xor", "a")
	ps.emit("sub", ix(s.offset))
	ps.emit("ld", ix(s.offset), "a")
	for i := 1; i < size; i++ {
		ps.emit("ld", "a", "0")
		ps.emit("sbc", "a", ix(s.offset+i))
		ps.emit("ld", ix(s.offset+i), "a")
	}
}

// genShift shifts dst by the low byte of the rhs, one bit per
// iteration. Left shift and unsigned right shift feed zeroes; signed
// right shift replicates the sign bit (SRA).
func (ps *procSel) genShift(dst, lhs, rhs slot, size int, left, signed bool) {
	ps.copyBytes(dst, lhs, size)
	done := ps.newLabel("shiftdone")
	loop := ps.newLabel("shift")
	ps.emit("ld", "a", ix(rhs.offset))
	ps.emit("or", "a")
	ps.emit("jp", "z", done)
	ps.emit("ld", "b", "a")
	ps.emitLabel(loop)
	if left {
		for i := 0; i < size; i++ {
			if i == 0 {
				ps.emit("sla", ix(dst.offset))
			} else {
				ps.emit("rl", ix(dst.offset+i))
			}
		}
	} else {
		for i := size - 1; i >= 0; i-- {
			switch {
			case i == size-1 && signed:
				ps.emit("sra", ix(dst.offset+i))
			case i == size-1:
				ps.emit("srl", ix(dst.offset+i))
			default:
				ps.emit("rr", ix(dst.offset+i))
			}
		}
	}
	ps.emit("dec", "b")
	ps.emit("jp", "nz", loop)
	ps.emitLabel(done)
}

// genCompare materializes a relational result as 0/1 in dst. Ordered
// comparisons reduce to Lt/Ge (swapping operands for Gt/Le); signed
// ones XOR both sign bits first and compare unsigned, the offset-
// binary trick.
func (ps *procSel) genCompare(dst slot, op ir.BinOp, lhs, rhs slot, size int, unsigned bool) {
	switch op {
	case ir.Gt:
		lhs, rhs = rhs, lhs
		op = ir.Lt
	case ir.Le:
		lhs, rhs = rhs, lhs
		op = ir.Ge
	}

	if (op == ir.Lt || op == ir.Ge) && !unsigned {
		lhs = ps.flipSign(lhs, size)
		rhs = ps.flipSign(rhs, size)
	}

	switch op {
	case ir.Eq, ir.Ne:
		ps.emit("ld", "a", ix(lhs.offset))
		ps.emit("xor", ix(rhs.offset))
		if size > 1 {
			ps.emit("ld", "b", "a")
			for i := 1; i < size; i++ {
				ps.emit("ld", "a", ix(lhs.offset+i))
				ps.emit("xor", ix(rhs.offset+i))
				ps.emit("or", "b")
				ps.emit("ld", "b", "a")
			}
		} else {
			ps.emit("or", "a")
		}
		ps.storeFlagResult(dst, op == ir.Eq, "z")

	case ir.Lt, ir.Ge:
		ps.emit("ld", "a", ix(lhs.offset))
		ps.emit("sub", ix(rhs.offset))
		for i := 1; i < size; i++ {
			ps.emit("ld", "a", ix(lhs.offset+i))
			ps.emit("sbc", "a", ix(rhs.offset+i))
		}
		if op == ir.Lt {
			ps.emit("ld", "a", "0")
			ps.emit("adc", "a", "0")
		} else {
			ps.emit("ld", "a", "1")
			ps.emit("sbc", "a", "0")
		}
		ps.emit("ld", ix(dst.offset), "a")
	}
}

// storeFlagResult stores 1 into dst when the named flag condition
// (still live from the preceding sequence) holds, else 0.
func (ps *procSel) storeFlagResult(dst slot, wantSet bool, flag string) {
	lbl := ps.newLabel("cmp")
	cond := flag
	if !wantSet {
		cond = "n" + flag
	}
	ps.emit("ld", "a", "1")
	ps.emit("jr", cond, lbl)
	ps.emit("ld", "a", "0")
	ps.emitLabel(lbl)
	ps.emit("ld", ix(dst.offset), "a")
}

// flipSign copies s and XORs the top byte's sign bit, mapping signed
// order onto unsigned order.
func (ps *procSel) flipSign(s slot, size int) slot {
	c := ps.allocSlot(size)
	ps.copyBytes(c, s, size)
	ps.emit("ld", "a", ix(c.offset+size-1))
	ps.emit("xor", imm(128))
	ps.emit("ld", ix(c.offset+size-1), "a")
	return c
}

func (ps *procSel) selectUnOp(n *ir.UnOpInstr) error {
	src, size, err := ps.materialize(n.Operand)
	if err != nil {
		return err
	}
	dst := ps.regSlot(n.Dst)

	switch n.Op {
	case ir.Neg:
		ps.copyBytes(dst, src, size)
		ps.negateSlot(dst, size)
	case ir.BitNot:
		for i := 0; i < size; i++ {
			ps.emit("ld", "a", ix(src.offset+i))
			ps.emit("cpl")
			ps.emit("ld", ix(dst.offset+i), "a")
		}
	case ir.Not:
		ps.testNonZero(src, size)
		ps.storeFlagResult(dst, true, "z")
	default:
		return fmt.Errorf("unsupported unary operation %d", n.Op)
	}
	return nil
}

// selectConvert widens, narrows, or re-signs between integer widths.
// Widening replicates the sign bit through the new upper bytes for a
// signed source and zero-fills for an unsigned one.
// Conversion to _Bool is a non-zero test.
func (ps *procSel) selectConvert(n *ir.Convert) error {
	src, _, err := ps.materialize(n.Src)
	if err != nil {
		return err
	}
	dst := ps.regSlot(n.Dst)
	fromSize := sizeOfType(n.From)
	toSize := sizeOfType(n.To)

	if b, ok := n.To.(*cgtype.Basic); ok && b.Kind == cgtype.Bool {
		ps.testNonZero(src, fromSize)
		ps.storeFlagResult(dst, false, "z")
		return nil
	}

	ps.copyBytes(dst, src, min(fromSize, toSize))
	if toSize <= fromSize {
		return nil
	}
	if typeIsSigned(n.From) {
		ps.emit("ld", "a", ix(src.offset+fromSize-1))
		ps.emit("rla")
		ps.emit("sbc", "a", "a")
		for i := fromSize; i < toSize; i++ {
			ps.emit("ld", ix(dst.offset+i), "a")
		}
		return nil
	}
	for i := fromSize; i < toSize; i++ {
		ps.emit("ld", ix(dst.offset+i), "0")
	}
	return nil
}

func typeIsSigned(t cgtype.Type) bool {
	switch v := t.(type) {
	case *cgtype.Basic:
		return v.Signed && v.Kind != cgtype.Bool
	case *cgtype.Enum:
		return true
	default:
		return false
	}
}
