package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zcc/internal/ir"
)

func run(t *testing.T, code string) *Result {
	t.Helper()
	res, err := Run(&Options{SourceCode: code, SourceFile: "test.c", TargetArch: "z80"})
	require.NoError(t, err)
	return res
}

func Test_Scenario_MainReturnsZero(t *testing.T) {
	res := run(t, `int main(void){return 0;}`)
	assert.True(t, res.Success)
	assert.Empty(t, res.Diags.All())

	require.NotNil(t, res.IR.Proc("main"))
	proc := res.IR.Proc("main")
	ret, ok := proc.Blocks[len(proc.Blocks)-1].Term.(*ir.Return)
	require.True(t, ok)
	require.True(t, ret.HasValue)
	imm, ok := ret.Value.(ir.Imm)
	require.True(t, ok)
	assert.Equal(t, int64(0), imm.Value)

	text := res.Z80.Text(DefaultOrg)
	assert.Contains(t, text, "main:")
	assert.Contains(t, text, "ret")
}

func Test_Scenario_ThreeGlobals(t *testing.T) {
	res := run(t, `int a,b=1,c=2; int f(void){return c;}`)
	assert.True(t, res.Success)

	require.Len(t, res.IR.Globals, 3)
	assert.Equal(t, "a", res.IR.Globals[0].Name)
	assert.Nil(t, res.IR.Globals[0].Init)
	assert.Equal(t, ir.ConstInit{Value: 1}, res.IR.Globals[1].Init)
	assert.Equal(t, ir.ConstInit{Value: 2}, res.IR.Globals[2].Init)

	var f *ir.Proc
	for _, p := range res.IR.Procs {
		if p.Name == "f" {
			f = p
		}
	}
	require.NotNil(t, f)
	text := res.Z80.Text(DefaultOrg)
	assert.Contains(t, text, "ld hl, c")
}

func Test_Scenario_CallWithArguments(t *testing.T) {
	res := run(t, `int a; int f(int x,int y){return x+y;} int g(void){a=1;return f(a,a);}`)
	assert.True(t, res.Success)
	require.Len(t, res.IR.Procs, 2)

	f := res.IR.Proc("f")
	require.NotNil(t, f)
	var sawAdd bool
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			if bo, ok := in.(*ir.BinOpInstr); ok && bo.Op == ir.Add {
				sawAdd = true
			}
		}
	}
	assert.True(t, sawAdd)

	g := res.IR.Proc("g")
	require.NotNil(t, g)
	var sawStore, sawCall bool
	for _, b := range g.Blocks {
		for _, in := range b.Instrs {
			switch c := in.(type) {
			case *ir.Store:
				sawStore = true
			case *ir.Call:
				sawCall = true
				assert.Equal(t, "f", c.Func)
				assert.Len(t, c.Args, 2)
			}
		}
	}
	assert.True(t, sawStore)
	assert.True(t, sawCall)
}

func Test_Scenario_ForLoopShape(t *testing.T) {
	res := run(t, `int g; int f(void){int i; for(i=10;i;i=i-1)g=i;return 0;}`)
	assert.True(t, res.Success)

	f := res.IR.Proc("f")
	require.NotNil(t, f)

	index := make(map[string]int)
	for i, b := range f.Blocks {
		index[b.Label] = i
	}
	backEdges := 0
	for i, b := range f.Blocks {
		if j, ok := b.Term.(*ir.Jump); ok {
			if target, known := index[j.Target]; known && target <= i {
				backEdges++
			}
		}
	}
	assert.Equal(t, 1, backEdges, "exactly one back-edge")

	var haveHeader, haveBody, havePost, haveEnd bool
	for _, b := range f.Blocks {
		switch {
		case strings.HasPrefix(b.Label, "for.header"):
			haveHeader = true
		case strings.HasPrefix(b.Label, "for.body"):
			haveBody = true
		case strings.HasPrefix(b.Label, "for.post"):
			havePost = true
		case strings.HasPrefix(b.Label, "for.end"):
			haveEnd = true
		}
	}
	assert.True(t, haveHeader && haveBody && havePost && haveEnd)
}

func Test_Scenario_BoolToIntWarning(t *testing.T) {
	res := run(t, `int c; _Bool b; void f(void){c=b;}`)
	assert.True(t, res.Success)
	warnings := res.Diags.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "Implicit conversion from _Bool to int", warnings[0].Message)
}

func Test_Scenario_UnhandledEnumeratorWarning(t *testing.T) {
	res := run(t, `enum E{E1,E2}; void f(enum E x){switch(x){case E1: break;}}`)
	assert.True(t, res.Success)
	warnings := res.Diags.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, `enumerator "E2" not handled in switch`, warnings[0].Message)
}

func Test_Property_TokenTextsRoundTrip(t *testing.T) {
	const code = "int  a = 1; /* keep me */\n// and me\nint main(void) {\n\treturn a;\n}\n"
	res := run(t, code)
	var sb strings.Builder
	for _, tok := range res.Tokens {
		sb.WriteString(tok.Text)
	}
	assert.Equal(t, code, sb.String())
}

func Test_Property_EveryBlockTerminatedWithPredecessors(t *testing.T) {
	res := run(t, `
int g;
int f(int x) {
	int r = 0;
	while (x) {
		if (x == 3) { break; }
		r = r + x;
		x = x - 1;
	}
	switch (r) {
	case 0: return 1;
	default: break;
	}
	return r;
}
`)
	assert.True(t, res.Success)
	for _, p := range res.IR.Procs {
		preds := make(map[string]int)
		for _, b := range p.Blocks {
			require.NotNil(t, b.Term, "block %s must be terminated", b.Label)
			switch term := b.Term.(type) {
			case *ir.Jump:
				preds[term.Target]++
			case *ir.Branch:
				preds[term.True]++
				preds[term.False]++
			}
		}
		for i, b := range p.Blocks {
			if i == 0 {
				continue
			}
			assert.Greater(t, preds[b.Label], 0, "non-entry block %s needs a predecessor", b.Label)
		}
	}
}

func Test_Property_IRTextRoundTrip(t *testing.T) {
	res := run(t, `
int counter = 3;
int bump(int by) { counter = counter + by; return counter; }
`)
	assert.True(t, res.Success)

	text := ir.Print(res.IR)
	reparsed, err := ir.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, text, ir.Print(reparsed))
}

func Test_FailedCompilationStillProducesIR(t *testing.T) {
	res, err := Run(&Options{SourceCode: `int f(void){return missing;}`, SourceFile: "bad.c"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Diags.Errors())
	assert.NotNil(t, res.IR, "IR built so far stays available for inspection")
}

func Test_UnknownTargetIsInfrastructureFailure(t *testing.T) {
	_, err := Run(&Options{SourceCode: `int main(void){return 0;}`, TargetArch: "m68k"})
	require.Error(t, err)
}

func Test_MissingSourceFileIsInfrastructureFailure(t *testing.T) {
	_, err := Run(&Options{SourceFile: "/nonexistent/path.c"})
	require.Error(t, err)
}

func Test_DumpTokensAndAST(t *testing.T) {
	res := run(t, `int main(void){return 0;}`)
	var toks, tree strings.Builder
	DumpTokens(&toks, res.Tokens)
	assert.Contains(t, toks.String(), "main")
	DumpAST(&tree, res.AST)
	assert.Contains(t, tree.String(), "FunctionDef main")
	assert.Contains(t, tree.String(), "ReturnStmt")
}
