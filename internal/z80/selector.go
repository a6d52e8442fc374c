package z80

import (
	"fmt"
	"strings"

	"zcc/internal/cgtype"
	"zcc/internal/ir"
)

// Select lowers an IR module into Z80 instructions over a spilled
// stack frame. The selector does not recover: IR it cannot lower is an
// infrastructure failure, not a diagnostic.
func Select(mod *ir.Module) (*Module, error) {
	out := &Module{}

	globals := make(map[string]bool)
	for _, g := range mod.Globals {
		globals[g.Name] = true
	}
	for _, p := range mod.Procs {
		globals[p.Name] = true
	}

	needRet64 := false
	for _, p := range mod.Procs {
		proc, ret64, err := selectProc(p, globals)
		if err != nil {
			return nil, fmt.Errorf("selecting %s: %w", p.Name, err)
		}
		needRet64 = needRet64 || ret64
		out.Procs = append(out.Procs, proc)
	}

	for _, g := range mod.Globals {
		out.Globals = append(out.Globals, lowerGlobal(g))
	}
	if needRet64 {
		out.Globals = append(out.Globals, &Global{Name: ret64Name, Size: 8})
	}
	return out, nil
}

// ret64Name is the reserved staging area 64-bit return values travel
// through; HL and DE:HL cover the narrower widths.
const ret64Name = "__zcc_ret64"

// procSel carries the state of one procedure's selection: the frame
// slot maps, the emitted body, and the label counter. Slots are handed
// out monotonically; nothing is ever reused.
type procSel struct {
	proc    *ir.Proc
	globals map[string]bool

	out    []Instr
	frame  int
	regs   map[int]slot
	named  map[string]slot
	labelN int

	needRet64 bool
	invalid   []string
}

func selectProc(p *ir.Proc, globals map[string]bool) (*Proc, bool, error) {
	ps := &procSel{
		proc:    p,
		globals: globals,
		regs:    make(map[int]slot),
		named:   make(map[string]slot),
	}

	ps.layoutNamedSlots()
	ps.copyParams()

	for _, b := range p.Blocks {
		ps.emitLabel(ps.blockLabel(b.Label))
		for _, in := range b.Instrs {
			if err := ps.selectInstr(in); err != nil {
				return nil, false, err
			}
		}
		if b.Term == nil {
			return nil, false, fmt.Errorf("block %s has no terminator", b.Label)
		}
		if err := ps.selectTerm(b.Term); err != nil {
			return nil, false, err
		}
	}

	if len(ps.invalid) > 0 {
		return nil, false, fmt.Errorf("emitted unknown mnemonic(s): %s", strings.Join(ps.invalid, ", "))
	}

	proc := &Proc{
		Name:      p.Name,
		FrameSize: ps.frame,
		IsISR:     p.Attrs.UserServiceRoutine,
		Instrs:    append(ps.prologue(), ps.out...),
	}
	return proc, ps.needRet64, nil
}

// layoutNamedSlots sizes the frame slot of every named local before
// selection starts, so that a symbol addressed at several widths (a
// struct touched whole by MemCopy and per-member by Load) gets its
// full extent up front.
func (ps *procSel) layoutNamedSlots() {
	for _, b := range ps.proc.Blocks {
		for _, in := range b.Instrs {
			ao, ok := in.(*ir.AddrOf)
			if !ok || ps.globals[ao.Symbol] {
				continue
			}
			size := 2
			if pt, ok := ao.Dst.Type.(*cgtype.Pointer); ok && pt.Elem != nil {
				if s := pt.Elem.Size(); s > 0 {
					size = s
				}
			}
			if existing, ok := ps.named[ao.Symbol]; !ok || size > existing.width.Bytes() {
				// re-allocating grows the frame; the abandoned smaller slot
				// stays dead, which the spill-everything policy tolerates
				ps.named[ao.Symbol] = ps.allocSlot(size)
			}
		}
	}
}

// allocSlot reserves size bytes of frame and returns the slot at its
// base. Offsets grow downward from the frame pointer.
func (ps *procSel) allocSlot(size int) slot {
	if size < 1 {
		size = 1
	}
	ps.frame += size
	return slot{offset: -ps.frame, width: WidthOf(size)}
}

func (ps *procSel) regSlot(r ir.Reg) slot {
	if s, ok := ps.regs[r.ID]; ok {
		return s
	}
	size := 2
	if r.Type != nil && r.Type.Size() > 0 {
		size = r.Type.Size()
	}
	s := ps.allocSlot(size)
	ps.regs[r.ID] = s
	return s
}

func (ps *procSel) namedSlot(name string, size int) slot {
	if s, ok := ps.named[name]; ok {
		return s
	}
	s := ps.allocSlot(size)
	ps.named[name] = s
	return s
}

func (ps *procSel) emit(mnemonic string, operands ...string) {
	if !KnownMnemonic(mnemonic) {
		ps.invalid = append(ps.invalid, mnemonic)
	}
	ps.out = append(ps.out, Instr{Mnemonic: mnemonic, Operands: operands})
}

func (ps *procSel) emitRaw(line string) {
	ps.out = append(ps.out, Instr{Mnemonic: line})
}

func (ps *procSel) emitLabel(l string) {
	ps.out = append(ps.out, Instr{Label: l})
}

func (ps *procSel) blockLabel(block string) string {
	return ps.proc.Name + "." + block
}

func (ps *procSel) newLabel(prefix string) string {
	ps.labelN++
	return label("%s.%s.%d", ps.proc.Name, prefix, ps.labelN)
}

// ix formats an IX-relative byte operand.
func ix(off int) string {
	return fmt.Sprintf("(ix%+d)", off)
}

func imm(v int64) string {
	return fmt.Sprintf("%d", v)
}

// prologue builds the standard frame entry sequence once the body is
// selected and the frame size is known. A user service routine
// additionally saves every register pair it may touch, since its
// caller is the interrupt dispatcher, not compiled code.
func (ps *procSel) prologue() []Instr {
	var pro []Instr
	e := func(m string, ops ...string) { pro = append(pro, Instr{Mnemonic: m, Operands: ops}) }

	pro = append(pro, Instr{Label: ps.proc.Name})
	if ps.proc.Attrs.UserServiceRoutine {
		e("push", "af")
		e("push", "bc")
		e("push", "de")
		e("push", "hl")
	}
	e("push", "ix")
	e("ld", "ix", "0")
	e("add", "ix", "sp")
	if ps.frame > 0 {
		e("ld", "hl", imm(int64(-ps.frame)))
		e("add", "hl", "sp")
		e("ld", "sp", "hl")
	}
	return pro
}

// epilogue tears the frame down ahead of a return. Emitted inline at
// every Return terminator.
func (ps *procSel) epilogue() {
	ps.emit("ld", "sp", "ix")
	ps.emit("pop", "ix")
	if ps.proc.Attrs.UserServiceRoutine {
		ps.emit("pop", "hl")
		ps.emit("pop", "de")
		ps.emit("pop", "bc")
		ps.emit("pop", "af")
		ps.emit("ei")
		ps.emit("reti")
		return
	}
	ps.emit("ret")
}

// argFootprint is the stack space one argument occupies at a call
// site: pushes are 16-bit, so everything rounds up to an even count.
func argFootprint(t cgtype.Type) int {
	size := 2
	if t != nil && t.Size() > 0 {
		size = t.Size()
	}
	if size%2 != 0 {
		size++
	}
	return size
}

// copyParams runs at the top of the body: incoming arguments sit above
// the saved IX and return address (IX+4 upward, first argument
// lowest), and each is copied into its parameter register's frame
// slot. The ISR convention takes no stack arguments.
func (ps *procSel) copyParams() {
	off := 4
	if ps.proc.Attrs.UserServiceRoutine {
		off += 8 // the four saved register pairs
	}
	for _, param := range ps.proc.Params {
		dst := ps.regSlot(param.Reg)
		size := 2
		if param.Reg.Type != nil && param.Reg.Type.Size() > 0 {
			size = param.Reg.Type.Size()
		}
		for i := 0; i < size; i++ {
			ps.emit("ld", "a", ix(off+i))
			ps.emit("ld", ix(dst.offset+i), "a")
		}
		off += argFootprint(param.Reg.Type)
	}
}

// selectInstr is the maximal-munch dispatch: one IR operation maps to
// one fixed instruction sequence parameterized by operand width
//.
func (ps *procSel) selectInstr(in ir.Instr) error {
	switch n := in.(type) {
	case *ir.Move:
		src, size, err := ps.materialize(n.Src)
		if err != nil {
			return err
		}
		dst := ps.regSlot(n.Dst)
		ps.copyBytes(dst, src, min(size, sizeOfType(n.Dst.Type)))
		return nil

	case *ir.BinOpInstr:
		return ps.selectBinOp(n)

	case *ir.UnOpInstr:
		return ps.selectUnOp(n)

	case *ir.Convert:
		return ps.selectConvert(n)

	case *ir.AddrOf:
		return ps.selectAddrOf(n)

	case *ir.Load:
		return ps.selectLoad(n)

	case *ir.Store:
		return ps.selectStore(n)

	case *ir.MemCopy:
		return ps.selectMemCopy(n)

	case *ir.Call:
		return ps.selectCall(n)

	case *ir.InlineAsm:
		return ps.selectInlineAsm(n)

	case *ir.Label:
		ps.emitLabel(ps.blockLabel(n.Name))
		return nil

	default:
		return fmt.Errorf("unsupported IR instruction %T", in)
	}
}

func (ps *procSel) selectTerm(t ir.Instr) error {
	switch n := t.(type) {
	case *ir.Jump:
		ps.emit("jp", ps.blockLabel(n.Target))
		return nil

	case *ir.Branch:
		s, size, err := ps.materialize(n.Cond)
		if err != nil {
			return err
		}
		ps.testNonZero(s, size)
		ps.emit("jp", "nz", ps.blockLabel(n.True))
		ps.emit("jp", ps.blockLabel(n.False))
		return nil

	case *ir.Return:
		if n.HasValue {
			if err := ps.loadReturnValue(n.Value); err != nil {
				return err
			}
		}
		ps.epilogue()
		return nil

	default:
		return fmt.Errorf("unsupported terminator %T", t)
	}
}

// loadReturnValue places the return value per the register convention:
// L (8-bit), HL (16-bit), DE:HL (32-bit, DE high), or the reserved
// staging area for 64-bit.
func (ps *procSel) loadReturnValue(v ir.Operand) error {
	s, size, err := ps.materialize(v)
	if err != nil {
		return err
	}
	switch {
	case size <= 1:
		ps.emit("ld", "l", ix(s.offset))
		ps.emit("ld", "h", "0")
	case size == 2:
		ps.loadHL(s)
	case size <= 4:
		ps.loadHL(s)
		ps.emit("ld", "e", ix(s.offset+2))
		ps.emit("ld", "d", ix(s.offset+3))
	default:
		ps.needRet64 = true
		ps.emit("ld", "hl", ret64Name)
		for i := 0; i < 8; i++ {
			ps.emit("ld", "a", ix(s.offset+i))
			ps.emit("ld", "(hl)", "a")
			if i < 7 {
				ps.emit("inc", "hl")
			}
		}
	}
	return nil
}

// testNonZero ORs every byte of s together; Z is set iff the value is
// zero.
func (ps *procSel) testNonZero(s slot, size int) {
	ps.emit("ld", "a", ix(s.offset))
	if size == 1 {
		ps.emit("or", "a")
		return
	}
	for i := 1; i < size; i++ {
		ps.emit("or", ix(s.offset+i))
	}
}

// materialize ensures op's value lives in a frame slot and returns the
// slot plus the value's byte size. Registers already have one;
// immediates and global references are spilled into fresh scratch.
func (ps *procSel) materialize(op ir.Operand) (slot, int, error) {
	switch o := op.(type) {
	case ir.Reg:
		return ps.regSlot(o), sizeOfType(o.Type), nil

	case ir.Imm:
		size := sizeOfType(o.Type)
		s := ps.allocSlot(size)
		v := o.Value
		for i := 0; i < size; i++ {
			ps.emit("ld", ix(s.offset+i), imm(v&0xff))
			v >>= 8
		}
		return s, size, nil

	case ir.GlobalRef:
		s := ps.allocSlot(2)
		ps.emit("ld", "hl", symRef(o.Name, o.Offset))
		ps.storeHL(s)
		return s, 2, nil

	default:
		return slot{}, 0, fmt.Errorf("unsupported operand %T", op)
	}
}

func symRef(name string, off int) string {
	if off == 0 {
		return name
	}
	return fmt.Sprintf("%s+%d", name, off)
}

func sizeOfType(t cgtype.Type) int {
	if t == nil {
		return 2
	}
	if s := t.Size(); s > 0 {
		return s
	}
	return 1
}

func (ps *procSel) loadHL(s slot) {
	ps.emit("ld", "l", ix(s.offset))
	ps.emit("ld", "h", ix(s.offset+1))
}

func (ps *procSel) storeHL(s slot) {
	ps.emit("ld", ix(s.offset), "l")
	ps.emit("ld", ix(s.offset+1), "h")
}

// copyBytes copies size bytes from src to dst slot through A.
func (ps *procSel) copyBytes(dst, src slot, size int) {
	for i := 0; i < size; i++ {
		ps.emit("ld", "a", ix(src.offset+i))
		ps.emit("ld", ix(dst.offset+i), "a")
	}
}

// selectAddrOf computes a storage address: globals are link-time
// constants, locals are IX-relative.
func (ps *procSel) selectAddrOf(n *ir.AddrOf) error {
	dst := ps.regSlot(n.Dst)
	if ps.globals[n.Symbol] {
		ps.emit("ld", "hl", symRef(n.Symbol, n.Offset))
		ps.storeHL(dst)
		return nil
	}
	size := 2
	if pt, ok := n.Dst.Type.(*cgtype.Pointer); ok && pt.Elem != nil && pt.Elem.Size() > 0 {
		size = pt.Elem.Size()
	}
	local := ps.namedSlot(n.Symbol, size)
	ps.emit("push", "ix")
	ps.emit("pop", "hl")
	ps.emit("ld", "de", imm(int64(local.offset+n.Offset)))
	ps.emit("add", "hl", "de")
	ps.storeHL(dst)
	return nil
}

func (ps *procSel) selectLoad(n *ir.Load) error {
	addr, _, err := ps.materialize(n.Addr)
	if err != nil {
		return err
	}
	dst := ps.regSlot(n.Dst)
	size := sizeOfType(n.Type)
	ps.loadHL(addr)
	for i := 0; i < size; i++ {
		ps.emit("ld", "a", "(hl)")
		ps.emit("ld", ix(dst.offset+i), "a")
		if i < size-1 {
			ps.emit("inc", "hl")
		}
	}
	return nil
}

func (ps *procSel) selectStore(n *ir.Store) error {
	addr, _, err := ps.materialize(n.Addr)
	if err != nil {
		return err
	}
	val, valSize, err := ps.materialize(n.Value)
	if err != nil {
		return err
	}
	size := min(sizeOfType(n.Type), valSize)
	ps.loadHL(addr)
	for i := 0; i < size; i++ {
		ps.emit("ld", "a", ix(val.offset+i))
		ps.emit("ld", "(hl)", "a")
		if i < size-1 {
			ps.emit("inc", "hl")
		}
	}
	return nil
}

func (ps *procSel) selectMemCopy(n *ir.MemCopy) error {
	src, _, err := ps.materialize(n.Src)
	if err != nil {
		return err
	}
	dst, _, err := ps.materialize(n.Dst)
	if err != nil {
		return err
	}
	ps.loadHL(src)
	ps.emit("ld", "e", ix(dst.offset))
	ps.emit("ld", "d", ix(dst.offset+1))
	ps.emit("ld", "bc", imm(int64(n.Size)))
	ps.emit("ldir")
	return nil
}

// selectCall pushes arguments right to left (the first argument ends
// up lowest), calls, pops the argument bytes, and captures the result
// per the return-register convention.
func (ps *procSel) selectCall(n *ir.Call) error {
	type argLoc struct {
		s    slot
		size int
	}
	var locs []argLoc
	argBytes := 0
	for _, a := range n.Args {
		s, size, err := ps.materialize(a)
		if err != nil {
			return err
		}
		locs = append(locs, argLoc{s, size})
		argBytes += argFootprint(opType(a))
	}

	for i := len(locs) - 1; i >= 0; i-- {
		l := locs[i]
		foot := l.size
		if foot%2 != 0 {
			foot++
		}
		for b := foot - 2; b >= 0; b -= 2 {
			ps.emit("ld", "l", ix(l.s.offset+b))
			if b+1 < l.size {
				ps.emit("ld", "h", ix(l.s.offset+b+1))
			} else {
				ps.emit("ld", "h", "0")
			}
			ps.emit("push", "hl")
		}
	}

	if n.ViaPtr != nil {
		target, _, err := ps.materialize(n.ViaPtr)
		if err != nil {
			return err
		}
		ret := ps.newLabel("callret")
		ps.emit("ld", "bc", ret)
		ps.emit("push", "bc")
		ps.loadHL(target)
		ps.emit("jp", "(hl)")
		ps.emitLabel(ret)
	} else {
		ps.emit("call", n.Func)
	}

	for i := 0; i < argBytes/2; i++ {
		ps.emit("pop", "bc")
	}

	if !n.HasDst {
		return nil
	}
	dst := ps.regSlot(n.Dst)
	size := sizeOfType(n.Dst.Type)
	switch {
	case size <= 2:
		ps.emit("ld", ix(dst.offset), "l")
		if size == 2 {
			ps.emit("ld", ix(dst.offset+1), "h")
		}
	case size <= 4:
		ps.storeHL(dst)
		ps.emit("ld", ix(dst.offset+2), "e")
		ps.emit("ld", ix(dst.offset+3), "d")
	default:
		ps.emit("ld", "hl", ret64Name)
		for i := 0; i < 8; i++ {
			ps.emit("ld", "a", "(hl)")
			ps.emit("ld", ix(dst.offset+i), "a")
			if i < 7 {
				ps.emit("inc", "hl")
			}
		}
		ps.needRet64 = true
	}
	return nil
}

// selectInlineAsm splices the template lines through verbatim. Operand
// constraints are honored only to the extent of materializing every
// input so its frame slot is live; the template text itself is the
// programmer's responsibility.
func (ps *procSel) selectInlineAsm(n *ir.InlineAsm) error {
	for _, in := range n.Inputs {
		if _, _, err := ps.materialize(in.Value); err != nil {
			return err
		}
	}
	for _, line := range strings.Split(n.Template, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ps.emitRaw(line)
	}
	return nil
}

func opType(op ir.Operand) cgtype.Type {
	switch o := op.(type) {
	case ir.Reg:
		return o.Type
	case ir.Imm:
		return o.Type
	case ir.GlobalRef:
		return o.Type
	default:
		return nil
	}
}
