package cgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zcc/internal/cgtype"
	"zcc/internal/diag"
	"zcc/internal/ir"
	"zcc/internal/lexer"
	"zcc/internal/parser"
	"zcc/internal/source"
)

func generate(t *testing.T, code string) (*ir.Module, *diag.Bag) {
	t.Helper()
	l := lexer.New(source.NewStringSource("<test>", code))
	f, parseDiags := parser.ParseFile("<test>", l.Tokens())
	require.Empty(t, parseDiags.Errors())
	return Generate("<test>", f)
}

func Test_SimpleFunctionLowering(t *testing.T) {
	mod, diags := generate(t, `int add(int a, int b) { return a + b; }`)
	require.Empty(t, diags.Errors())
	require.Len(t, mod.Procs, 1)

	proc := mod.Procs[0]
	assert.Equal(t, "add", proc.Name)
	require.Len(t, proc.Params, 2)
	require.NotEmpty(t, proc.Blocks)

	last := proc.Blocks[len(proc.Blocks)-1]
	_, ok := last.Term.(*ir.Return)
	assert.True(t, ok, "function should end in a return terminator")
}

func Test_GlobalScalarInitializer(t *testing.T) {
	mod, diags := generate(t, `int counter = 42;`)
	require.Empty(t, diags.Errors())
	require.Len(t, mod.Globals, 1)

	g := mod.Globals[0]
	assert.Equal(t, "counter", g.Name)
	ci, ok := g.Init.(ir.ConstInit)
	require.True(t, ok)
	assert.Equal(t, int64(42), ci.Value)
}

func Test_GlobalArrayInitializer(t *testing.T) {
	mod, diags := generate(t, `int values[3] = { 1, 2, 3 };`)
	require.Empty(t, diags.Errors())
	require.Len(t, mod.Globals, 1)

	arr, ok := mod.Globals[0].Type.(*cgtype.Array)
	require.True(t, ok)
	assert.True(t, arr.HasSize)
	assert.Equal(t, 3, arr.Len)

	agg, ok := mod.Globals[0].Init.(ir.AggregateInit)
	require.True(t, ok)
	require.Len(t, agg.Elems, 3)
}

func Test_GlobalPointerToGlobalInitializer(t *testing.T) {
	mod, diags := generate(t, `
int target;
int *p = &target;
`)
	require.Empty(t, diags.Errors())
	require.Len(t, mod.Globals, 2)
	addrInit, ok := mod.Globals[1].Init.(ir.AddrInit)
	require.True(t, ok)
	assert.Equal(t, "target", addrInit.Target)
}

func Test_StructLayoutWithBitFields(t *testing.T) {
	mod, diags := generate(t, `
struct flags {
	unsigned a : 1;
	unsigned b : 2;
	unsigned : 0;
	unsigned c : 4;
};
struct flags f;
`)
	require.Empty(t, diags.Errors())
	require.Len(t, mod.Globals, 1)
	rec, ok := mod.Globals[0].Type.(*cgtype.Record)
	require.True(t, ok)
	require.Len(t, rec.Def.Fields, 4)
	assert.True(t, rec.Def.Fields[0].HasBitWidth)
	assert.Equal(t, 1, rec.Def.Fields[0].BitWidth)
	// the zero-width anonymous bit-field forces c into a new storage unit
	assert.NotEqual(t, rec.Def.Fields[1].ByteOffset, rec.Def.Fields[3].ByteOffset)
}

func Test_IfElseLowering(t *testing.T) {
	mod, diags := generate(t, `
int pick(int x) {
	if (x) {
		return 1;
	} else {
		return 2;
	}
}
`)
	require.Empty(t, diags.Errors())
	proc := mod.Procs[0]
	var branches int
	for _, b := range proc.Blocks {
		if _, ok := b.Term.(*ir.Branch); ok {
			branches++
		}
	}
	assert.Equal(t, 1, branches)
}

func Test_WhileLoopLowering(t *testing.T) {
	mod, diags := generate(t, `
void spin(int n) {
	while (n) {
		n = n - 1;
	}
}
`)
	require.Empty(t, diags.Errors())
	proc := mod.Procs[0]
	var jumps, branches int
	for _, b := range proc.Blocks {
		switch b.Term.(type) {
		case *ir.Jump:
			jumps++
		case *ir.Branch:
			branches++
		}
	}
	assert.Equal(t, 1, branches)
	assert.GreaterOrEqual(t, jumps, 2)
}

func Test_ForLoopLowering(t *testing.T) {
	mod, diags := generate(t, `
int sum(void) {
	int total = 0;
	for (int i = 0; i < 10; i = i + 1) {
		total = total + i;
	}
	return total;
}
`)
	require.Empty(t, diags.Errors())
	require.Len(t, mod.Procs, 1)
	proc := mod.Procs[0]
	found := false
	for _, b := range proc.Blocks {
		if _, ok := b.Term.(*ir.Branch); ok {
			found = true
		}
	}
	assert.True(t, found)
}

func Test_SwitchStrictEnumCoverage(t *testing.T) {
	_, diags := generate(t, `
enum color { RED, GREEN, BLUE };
int classify(enum color c) {
	switch (c) {
	case RED:
		return 1;
	case GREEN:
		return 2;
	}
	return 0;
}
`)
	require.Empty(t, diags.Errors())
	require.NotEmpty(t, diags.Warnings())
	found := false
	for _, w := range diags.Warnings() {
		if w.Message == `enumerator "BLUE" not handled in switch` {
			found = true
		}
	}
	assert.True(t, found)
}

func Test_SwitchStackedCaseLabels(t *testing.T) {
	mod, diags := generate(t, `
int classify(int x) {
	switch (x) {
	case 1:
	case 2:
		return 1;
	default:
		return 0;
	}
}
`)
	require.Empty(t, diags.Errors())
	require.Len(t, mod.Procs, 1)
}

func Test_ShortCircuitLogicalAnd(t *testing.T) {
	mod, diags := generate(t, `
int both(int a, int b) {
	return a && b;
}
`)
	require.Empty(t, diags.Errors())
	proc := mod.Procs[0]
	var branches int
	for _, b := range proc.Blocks {
		if _, ok := b.Term.(*ir.Branch); ok {
			branches++
		}
	}
	assert.Equal(t, 1, branches)
}

func Test_ConstantOverflowDiagnostic(t *testing.T) {
	_, diags := generate(t, `char c = 1000;`)
	require.NotEmpty(t, diags.Warnings())
}

func Test_DivisionByZeroDiagnostic(t *testing.T) {
	_, diags := generate(t, `int x[1 / 0];`)
	require.NotEmpty(t, diags.Errors())
}

func Test_ShiftRangeDiagnostic(t *testing.T) {
	_, diags := generate(t, `int x = 1 << 99;`)
	require.NotEmpty(t, diags.Warnings())
}

func Test_UsualArithmeticConversionUnsignedWins(t *testing.T) {
	lt := cgtype.IntType
	rt := cgtype.UIntType
	result := usualArithmeticType(lt, rt)
	b, ok := result.(*cgtype.Basic)
	require.True(t, ok)
	assert.False(t, b.Signed)
}

func Test_UserServiceRoutineAttribute(t *testing.T) {
	mod, diags := generate(t, `
__attribute__((interrupt)) void isr(void) {
	return;
}
`)
	require.Empty(t, diags.Errors())
	require.Len(t, mod.Procs, 1)
	assert.True(t, mod.Procs[0].Attrs.UserServiceRoutine)
}

func Test_PointerDereferenceAssignment(t *testing.T) {
	mod, diags := generate(t, `
void store(int *p, int v) {
	*p = v;
}
`)
	require.Empty(t, diags.Errors())
	proc := mod.Procs[0]
	var sawStore bool
	for _, b := range proc.Blocks {
		for _, instr := range b.Instrs {
			if _, ok := instr.(*ir.Store); ok {
				sawStore = true
			}
		}
	}
	assert.True(t, sawStore)
}

func Test_UndeclaredIdentifierDiagnostic(t *testing.T) {
	_, diags := generate(t, `int bad(void) { return missing; }`)
	require.NotEmpty(t, diags.Errors())
}

func Test_InlineAsmLowering(t *testing.T) {
	mod, diags := generate(t, `
void halt(void) {
	asm("halt");
}
`)
	require.Empty(t, diags.Errors())
	proc := mod.Procs[0]
	var sawAsm bool
	for _, b := range proc.Blocks {
		for _, instr := range b.Instrs {
			if a, ok := instr.(*ir.InlineAsm); ok {
				sawAsm = true
				assert.Equal(t, "halt", a.Template)
			}
		}
	}
	assert.True(t, sawAsm)
}
