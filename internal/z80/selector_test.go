package z80

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zcc/internal/cgen"
	"zcc/internal/lexer"
	"zcc/internal/parser"
	"zcc/internal/source"
)

func compile(t *testing.T, code string) *Module {
	t.Helper()
	l := lexer.New(source.NewStringSource("<test>", code))
	f, parseDiags := parser.ParseFile("<test>", l.Tokens())
	require.Empty(t, parseDiags.Errors())
	irMod, diags := cgen.Generate("<test>", f)
	require.Empty(t, diags.Errors())
	mod, err := Select(irMod)
	require.NoError(t, err)
	return mod
}

func findProc(t *testing.T, m *Module, name string) *Proc {
	t.Helper()
	for _, p := range m.Procs {
		if p.Name == name {
			return p
		}
	}
	require.Failf(t, "proc not found", "no procedure %q in module", name)
	return nil
}

func hasInstr(p *Proc, mnemonic string, operands ...string) bool {
	for _, in := range p.Instrs {
		if in.Mnemonic != mnemonic {
			continue
		}
		if len(operands) > len(in.Operands) {
			continue
		}
		match := true
		for i, op := range operands {
			if in.Operands[i] != op {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func Test_MainReturnsZero(t *testing.T) {
	mod := compile(t, `int main(void) { return 0; }`)
	p := findProc(t, mod, "main")

	assert.Equal(t, "main", p.Instrs[0].Label)
	assert.True(t, hasInstr(p, "ret"))
	// the zero travels through the frame into HL before the ret
	assert.True(t, hasInstr(p, "ld", "l"))
	assert.True(t, hasInstr(p, "ld", "h"))
}

func Test_SixteenBitAddUsesHLDE(t *testing.T) {
	mod := compile(t, `int add(int a, int b) { return a + b; }`)
	p := findProc(t, mod, "add")
	assert.True(t, hasInstr(p, "add", "hl", "de"))
}

func Test_EightBitOperandsPromoteToSixteenBitAdd(t *testing.T) {
	mod := compile(t, `char add(char a, char b) { return (char)(a + b); }`)
	p := findProc(t, mod, "add")
	// the promoted 16-bit add runs through HL; the result narrows back
	assert.True(t, hasInstr(p, "add", "hl", "de"))
}

func Test_ThirtyTwoBitAddPropagatesCarry(t *testing.T) {
	mod := compile(t, `long add(long a, long b) { return a + b; }`)
	p := findProc(t, mod, "add")
	assert.True(t, hasInstr(p, "add", "hl", "de"))
	assert.True(t, hasInstr(p, "adc", "hl", "de"))
}

func Test_SixtyFourBitAddIteratesLimbs(t *testing.T) {
	mod := compile(t, `long long add(long long a, long long b) { return a + b; }`)
	p := findProc(t, mod, "add")
	var adcs int
	for _, in := range p.Instrs {
		if in.Mnemonic == "adc" && len(in.Operands) == 2 && in.Operands[0] == "hl" {
			adcs++
		}
	}
	assert.Equal(t, 3, adcs, "four limbs: one add then three adc")
}

func Test_SubtractClearsCarryFirst(t *testing.T) {
	mod := compile(t, `int sub(int a, int b) { return a - b; }`)
	p := findProc(t, mod, "sub")
	assert.True(t, hasInstr(p, "or", "a"))
	assert.True(t, hasInstr(p, "sbc", "hl", "de"))
}

func Test_MultiplyIsShiftAndAddLoop(t *testing.T) {
	mod := compile(t, `int mul(int a, int b) { return a * b; }`)
	p := findProc(t, mod, "mul")
	assert.True(t, hasInstr(p, "jr", "nc"))
	assert.True(t, hasInstr(p, "srl"))
	assert.True(t, hasInstr(p, "sla"))
	var loopLabel bool
	for _, in := range p.Instrs {
		if strings.Contains(in.Label, ".mul.") {
			loopLabel = true
		}
	}
	assert.True(t, loopLabel)
}

func Test_DivisionIsRestoringLoop(t *testing.T) {
	mod := compile(t, `unsigned div(unsigned a, unsigned b) { return a / b; }`)
	p := findProc(t, mod, "div")
	assert.True(t, hasInstr(p, "jr", "c"))
	assert.True(t, hasInstr(p, "set", "0"))
}

func Test_SignedDivisionFixesResultSign(t *testing.T) {
	mod := compile(t, `int div(int a, int b) { return a / b; }`)
	p := findProc(t, mod, "div")
	assert.True(t, hasInstr(p, "bit", "7"))
}

func Test_SignedComparisonFlipsSignBit(t *testing.T) {
	mod := compile(t, `int lt(int a, int b) { return a < b ? 1 : 0; }`)
	p := findProc(t, mod, "lt")
	assert.True(t, hasInstr(p, "xor", "128"))
}

func Test_UnsignedComparisonSkipsSignFlip(t *testing.T) {
	mod := compile(t, `int lt(unsigned a, unsigned b) { return a < b ? 1 : 0; }`)
	p := findProc(t, mod, "lt")
	assert.False(t, hasInstr(p, "xor", "128"))
}

func Test_SignExtensionReplicatesSignBit(t *testing.T) {
	mod := compile(t, `long widen(int x) { return x; }`)
	p := findProc(t, mod, "widen")
	assert.True(t, hasInstr(p, "rla"))
	assert.True(t, hasInstr(p, "sbc", "a", "a"))
}

func Test_UnsignedWideningZeroFills(t *testing.T) {
	mod := compile(t, `unsigned long widen(unsigned x) { return x; }`)
	p := findProc(t, mod, "widen")
	assert.False(t, hasInstr(p, "rla"))
}

func Test_ShiftLoopUsesArithmeticShiftWhenSigned(t *testing.T) {
	mod := compile(t, `int shr(int a, int n) { return a >> n; }`)
	p := findProc(t, mod, "shr")
	assert.True(t, hasInstr(p, "sra"))

	mod = compile(t, `unsigned shr(unsigned a, unsigned n) { return a >> n; }`)
	p = findProc(t, mod, "shr")
	assert.True(t, hasInstr(p, "srl"))
	assert.False(t, hasInstr(p, "sra"))
}

func Test_GlobalLoadGoesThroughAddress(t *testing.T) {
	mod := compile(t, `int c; int f(void) { return c; }`)
	p := findProc(t, mod, "f")
	assert.True(t, hasInstr(p, "ld", "hl", "c"))
	assert.True(t, hasInstr(p, "ret"))
}

func Test_CallPushesAndCleansArguments(t *testing.T) {
	mod := compile(t, `
int f(int x, int y) { return x + y; }
int g(void) { return f(1, 2); }
`)
	p := findProc(t, mod, "g")
	assert.True(t, hasInstr(p, "call", "f"))
	assert.True(t, hasInstr(p, "push", "hl"))
	assert.True(t, hasInstr(p, "pop", "bc"))
}

func Test_UserServiceRoutineSavesAndRetis(t *testing.T) {
	mod := compile(t, `__attribute__((interrupt)) void tick(void) { return; }`)
	p := findProc(t, mod, "tick")
	assert.True(t, p.IsISR)
	assert.True(t, hasInstr(p, "push", "af"))
	assert.True(t, hasInstr(p, "reti"))
	assert.False(t, hasInstr(p, "ret"))
}

func Test_GlobalInitializerBytes(t *testing.T) {
	mod := compile(t, `int b = 1; int z;`)
	require.Len(t, mod.Globals, 2)
	require.Len(t, mod.Globals[0].Items, 1)
	assert.Equal(t, []byte{1, 0}, mod.Globals[0].Items[0].Bytes)
	assert.Empty(t, mod.Globals[1].Items)
	assert.Equal(t, 2, mod.Globals[1].Size)
}

func Test_GlobalAddressInitializer(t *testing.T) {
	mod := compile(t, `
int target;
int *p = &target;
`)
	require.Len(t, mod.Globals, 2)
	require.Len(t, mod.Globals[1].Items, 1)
	assert.Equal(t, "target", mod.Globals[1].Items[0].Addr)
}

func Test_InlineAsmPassesThroughVerbatim(t *testing.T) {
	mod := compile(t, `void stop(void) { asm("halt"); }`)
	p := findProc(t, mod, "stop")
	assert.True(t, hasInstr(p, "halt"))
}

func Test_EveryEmittedMnemonicIsDescribed(t *testing.T) {
	mod := compile(t, `
long long mix(long long a, long long b, int n) {
	long long r = a * b + (a - b) / (b | 1);
	r = r << n;
	r = r >> n;
	if (a < b && r != 0) {
		r = -r;
	}
	return r;
}
`)
	for _, p := range mod.Procs {
		for _, in := range p.Instrs {
			if in.Mnemonic == "" {
				continue
			}
			assert.True(t, KnownMnemonic(in.Mnemonic), "mnemonic %q missing from descriptor table", in.Mnemonic)
		}
	}
}

func Test_DeterministicOutput(t *testing.T) {
	const code = `int g; int f(int x) { for (g = 0; g < x; g = g + 1) {} return g; }`
	a := compile(t, code).Text(0x8000)
	b := compile(t, code).Text(0x8000)
	assert.Equal(t, a, b)
}

func Test_ModuleTextHasOriginAndData(t *testing.T) {
	mod := compile(t, `int v = 7; int main(void) { return v; }`)
	text := mod.Text(0x8000)
	assert.Contains(t, text, "ORG 8000H")
	assert.Contains(t, text, "v:")
	assert.Contains(t, text, "DB 7, 0")
	assert.Contains(t, text, "main:")
}
