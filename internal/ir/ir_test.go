package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zcc/internal/cgtype"
)

func buildAddProc() *Proc {
	p := &Proc{Name: "add", Return: cgtype.IntType}
	a := p.Registers.New(cgtype.IntType)
	b := p.Registers.New(cgtype.IntType)
	p.Params = []Param{{Name: "a", Reg: a}, {Name: "b", Reg: b}}
	sum := p.Registers.New(cgtype.IntType)
	entry := &Block{
		Label: "entry",
		Instrs: []Instr{
			&BinOpInstr{Dst: sum, Op: Add, Lhs: a, Rhs: b},
		},
		Term: &Return{Value: sum, HasValue: true},
	}
	p.Blocks = []*Block{entry}
	return p
}

func Test_ProcLookup(t *testing.T) {
	m := &Module{Procs: []*Proc{buildAddProc()}}
	require.NotNil(t, m.Proc("add"))
	assert.Nil(t, m.Proc("missing"))
	assert.NotNil(t, m.Proc("add").Block("entry"))
	assert.Nil(t, m.Proc("add").Block("nope"))
}

func Test_RegAllocatorUniqueIDs(t *testing.T) {
	var alloc RegAllocator
	r0 := alloc.New(cgtype.IntType)
	r1 := alloc.New(cgtype.CharType)
	assert.Equal(t, 0, r0.ID)
	assert.Equal(t, 1, r1.ID)
	assert.NotEqual(t, r0.ID, r1.ID)
}

func Test_IsTerminator(t *testing.T) {
	assert.True(t, IsTerminator(&Jump{Target: "x"}))
	assert.True(t, IsTerminator(&Branch{True: "a", False: "b"}))
	assert.True(t, IsTerminator(&Return{}))
	assert.False(t, IsTerminator(&Move{}))
	assert.False(t, IsTerminator(&BinOpInstr{}))
}

func Test_PrintAddProc(t *testing.T) {
	m := &Module{Procs: []*Proc{buildAddProc()}}
	text := Print(m)
	assert.Contains(t, text, "proc add(%0:i16, %1:i16) -> i16 {")
	assert.Contains(t, text, "entry:")
	assert.Contains(t, text, "%2:i16 = add %0, %1")
	assert.Contains(t, text, "ret %2")
}

func Test_PrintParseRoundTrip(t *testing.T) {
	m := &Module{Procs: []*Proc{buildAddProc()}}
	text := Print(m)

	parsed, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, parsed.Procs, 1)

	p := parsed.Procs[0]
	assert.Equal(t, "add", p.Name)
	require.Len(t, p.Params, 2)
	require.Len(t, p.Blocks, 1)

	block := p.Blocks[0]
	assert.Equal(t, "entry", block.Label)
	require.Len(t, block.Instrs, 1)

	bin, ok := block.Instrs[0].(*BinOpInstr)
	require.True(t, ok)
	assert.Equal(t, Add, bin.Op)
	assert.Equal(t, 2, bin.Dst.ID)

	ret, ok := block.Term.(*Return)
	require.True(t, ok)
	assert.True(t, ret.HasValue)
	assert.Equal(t, Reg{ID: 2, Type: cgtype.IntType}, ret.Value)

	assert.Equal(t, text, Print(parsed))
}

func Test_PrintParseRoundTrip_LoadStoreCallConvert(t *testing.T) {
	p := &Proc{Name: "work"}
	ptr := p.Registers.New(&cgtype.Pointer{Elem: cgtype.IntType})
	loaded := p.Registers.New(cgtype.IntType)
	wide := p.Registers.New(cgtype.LongType)
	called := p.Registers.New(cgtype.IntType)
	entry := &Block{
		Label: "entry",
		Instrs: []Instr{
			&Load{Dst: loaded, Addr: ptr, Type: cgtype.IntType},
			&Store{Addr: ptr, Value: loaded, Type: cgtype.IntType},
			&Convert{Dst: wide, Src: loaded, From: cgtype.IntType, To: cgtype.LongType},
			&Call{Dst: called, HasDst: true, Func: "helper", Args: []Operand{loaded}},
		},
		Term: &Return{},
	}
	p.Params = []Param{{Name: "ptr", Reg: ptr}}
	p.Blocks = []*Block{entry}
	m := &Module{Procs: []*Proc{p}}

	text := Print(m)
	parsed, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, text, Print(parsed))

	block := parsed.Procs[0].Blocks[0]
	require.Len(t, block.Instrs, 4)
	_, ok := block.Instrs[0].(*Load)
	assert.True(t, ok)
	_, ok = block.Instrs[1].(*Store)
	assert.True(t, ok)
	_, ok = block.Instrs[2].(*Convert)
	assert.True(t, ok)
	call, ok := block.Instrs[3].(*Call)
	require.True(t, ok)
	assert.Equal(t, "helper", call.Func)
	assert.True(t, call.HasDst)
}

func Test_PrintParseRoundTrip_BranchAndGlobals(t *testing.T) {
	m := &Module{
		Globals: []*Global{
			{Name: "counter", Type: cgtype.IntType, Init: ConstInit{Value: 5}},
			{Name: "table", Type: &cgtype.Array{Elem: cgtype.IntType, Len: 2, HasSize: true}},
		},
	}
	p := &Proc{Name: "branchy"}
	cond := p.Registers.New(cgtype.IntType)
	p.Params = []Param{{Name: "cond", Reg: cond}}
	p.Blocks = []*Block{
		{Label: "entry", Term: &Branch{Cond: cond, True: "yes", False: "no"}},
		{Label: "yes", Term: &Return{Value: Imm{Value: 1, Type: cgtype.IntType}, HasValue: true}},
		{Label: "no", Term: &Return{Value: Imm{Value: 0, Type: cgtype.IntType}, HasValue: true}},
	}
	m.Procs = []*Proc{p}

	text := Print(m)
	assert.Contains(t, text, "global counter: i16 = 5")
	assert.Contains(t, text, "br %0, yes, no")

	parsed, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, parsed.Globals, 2)
	assert.Equal(t, "counter", parsed.Globals[0].Name)
	assert.Equal(t, ConstInit{Value: 5}, parsed.Globals[0].Init)

	branch, ok := parsed.Procs[0].Blocks[0].Term.(*Branch)
	require.True(t, ok)
	assert.Equal(t, "yes", branch.True)
	assert.Equal(t, "no", branch.False)
}
