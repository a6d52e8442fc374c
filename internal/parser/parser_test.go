package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zcc/internal/ast"
	"zcc/internal/lexer"
	"zcc/internal/source"
)

func parse(t *testing.T, code string) (*ast.File, *Parser) {
	t.Helper()
	l := lexer.New(source.NewStringSource("<test>", code))
	p := New("<test>", l.Tokens())
	f := p.parseFile()
	return f, p
}

func Test_SimpleFunctionDef(t *testing.T) {
	f, p := parse(t, `int add(int a, int b) { return a + b; }`)
	require.Empty(t, p.Diagnostics().Errors())
	require.Len(t, f.Decls, 1)

	fn, ok := f.Decls[0].(*ast.FunctionDef)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Declarator.Name)
	require.Len(t, fn.Declarator.Suffixes, 1)
	fs, ok := fn.Declarator.Suffixes[0].(*ast.FuncSuffix)
	require.True(t, ok)
	require.Len(t, fs.Params, 2)
	assert.Equal(t, "a", fs.Params[0].Declarator.Name)
	assert.Equal(t, "b", fs.Params[1].Declarator.Name)

	require.Len(t, fn.Body.Items, 1)
	ret, ok := fn.Body.Items[0].(*ast.ReturnStmt)
	require.True(t, ok)
	require.True(t, ret.HasValue)
	bin, ok := ret.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, bin.Op)
}

func Test_TypedefDisambiguation(t *testing.T) {
	f, p := parse(t, `
typedef unsigned short u16;
u16 counter;
`)
	require.Empty(t, p.Diagnostics().Errors())
	require.Len(t, f.Decls, 2)

	typedefDecl, ok := f.Decls[0].(*ast.Declaration)
	require.True(t, ok)
	assert.Equal(t, ast.StorageTypedef, typedefDecl.Specs.Storage)
	bt, ok := typedefDecl.Specs.Type.(*ast.BasicType)
	require.True(t, ok)
	assert.Equal(t, ast.Short, bt.Kind)
	assert.False(t, bt.Signed)

	counterDecl, ok := f.Decls[1].(*ast.Declaration)
	require.True(t, ok)
	tn, ok := counterDecl.Specs.Type.(*ast.TypedefName)
	require.True(t, ok)
	assert.Equal(t, "u16", tn.Name)
	assert.Equal(t, "counter", counterDecl.InitDeclarators[0].Declarator.Name)
}

func Test_StructWithBitFieldsAndDesignatedInit(t *testing.T) {
	f, p := parse(t, `
struct flags {
    unsigned a : 3;
    unsigned : 0;
    unsigned b : 5;
};

struct point { int x; int y; };
struct point origin = { .y = 1, .x = 2 };
`)
	require.Empty(t, p.Diagnostics().Errors())
	require.Len(t, f.Decls, 3)

	rec, ok := f.Decls[0].(*ast.Declaration).Specs.Type.(*ast.RecordType)
	require.True(t, ok)
	require.Len(t, rec.Fields, 3)
	assert.True(t, rec.Fields[0].HasBitWidth)
	assert.Nil(t, rec.Fields[1].Declarator)

	originDecl := f.Decls[2].(*ast.Declaration)
	init, ok := originDecl.InitDeclarators[0].Init.(*ast.ListInit)
	require.True(t, ok)
	require.Len(t, init.Items, 2)
	fd, ok := init.Items[0].Designators[0].(*ast.FieldDesignator)
	require.True(t, ok)
	assert.Equal(t, "y", fd.Name)
}

func Test_ForLoopWithC99Init(t *testing.T) {
	f, p := parse(t, `
void run(void) {
    for (int i = 0; i < 10; i++) {
        if (i == 5) { break; } else { continue; }
    }
}
`)
	require.Empty(t, p.Diagnostics().Errors())
	fn := f.Decls[0].(*ast.FunctionDef)
	forStmt, ok := fn.Body.Items[0].(*ast.ForStmt)
	require.True(t, ok)
	initDecl, ok := forStmt.Init.(*ast.Declaration)
	require.True(t, ok)
	assert.Equal(t, "i", initDecl.InitDeclarators[0].Declarator.Name)
	require.NotNil(t, forStmt.Cond)
	require.NotNil(t, forStmt.Post)
}

func Test_SwitchCaseDefault(t *testing.T) {
	f, p := parse(t, `
int classify(int x) {
    switch (x) {
    case 0:
        return 0;
    case 1:
        return 1;
    default:
        return -1;
    }
}
`)
	require.Empty(t, p.Diagnostics().Errors())
	fn := f.Decls[0].(*ast.FunctionDef)
	sw, ok := fn.Body.Items[0].(*ast.SwitchStmt)
	require.True(t, ok)
	body, ok := sw.Body.(*ast.CompoundStmt)
	require.True(t, ok)
	require.Len(t, body.Items, 3)
	_, ok = body.Items[0].(*ast.CaseStmt)
	assert.True(t, ok)
	_, ok = body.Items[2].(*ast.DefaultStmt)
	assert.True(t, ok)
}

func Test_CastVsParenDisambiguation(t *testing.T) {
	f, p := parse(t, `
typedef int myint;
int main(void) {
    myint a;
    int b;
    a = (myint)b;
    b = (a)(1);
}
`)
	require.Empty(t, p.Diagnostics().Errors())
	fn := f.Decls[1].(*ast.FunctionDef)
	assignCast := fn.Body.Items[2].(*ast.ExprStmt).Expr.(*ast.AssignExpr)
	_, ok := assignCast.Value.(*ast.CastExpr)
	assert.True(t, ok, "expected (myint)b to parse as a cast")

	assignCall := fn.Body.Items[3].(*ast.ExprStmt).Expr.(*ast.AssignExpr)
	_, ok = assignCall.Value.(*ast.CallExpr)
	assert.True(t, ok, "expected (a)(1) to parse as a call, not a cast")
}

func Test_AttributeOnDeclaration(t *testing.T) {
	f, p := parse(t, `
__attribute__((noreturn)) void die(void);
int packed_field __attribute__((aligned(4)));
`)
	require.Empty(t, p.Diagnostics().Errors())
	die := f.Decls[0].(*ast.Declaration)
	require.Len(t, die.Attributes, 1)
	assert.Equal(t, "noreturn", die.Attributes[0].Name)

	packed := f.Decls[1].(*ast.Declaration)
	require.Len(t, packed.Attributes, 1)
	assert.Equal(t, "aligned", packed.Attributes[0].Name)
	require.Len(t, packed.Attributes[0].Args, 1)
}

func Test_BasicAsmStatement(t *testing.T) {
	f, p := parse(t, `
void halt(void) {
    asm volatile("halt");
}
`)
	require.Empty(t, p.Diagnostics().Errors())
	fn := f.Decls[0].(*ast.FunctionDef)
	asmStmt, ok := fn.Body.Items[0].(*ast.AsmStmt)
	require.True(t, ok)
	assert.True(t, asmStmt.Basic)
	assert.True(t, asmStmt.Volatile)
	assert.Equal(t, `"halt"`, asmStmt.Template)
}

func Test_ExtendedAsmStatement(t *testing.T) {
	f, p := parse(t, `
void out(int port, int value) {
    asm("out (%0), %1" : : "N"(port), "a"(value) : "cc");
}
`)
	require.Empty(t, p.Diagnostics().Errors())
	fn := f.Decls[0].(*ast.FunctionDef)
	asmStmt, ok := fn.Body.Items[0].(*ast.AsmStmt)
	require.True(t, ok)
	assert.False(t, asmStmt.Basic)
	assert.Empty(t, asmStmt.Outputs)
	require.Len(t, asmStmt.Inputs, 2)
	require.Len(t, asmStmt.Clobbers, 1)
	assert.Equal(t, `"cc"`, asmStmt.Clobbers[0])
}

func Test_EnumStrictUsage(t *testing.T) {
	f, p := parse(t, `
enum color { RED, GREEN = 5, BLUE };
enum color c;
`)
	require.Empty(t, p.Diagnostics().Errors())
	enumDecl := f.Decls[0].(*ast.Declaration)
	et, ok := enumDecl.Specs.Type.(*ast.EnumType)
	require.True(t, ok)
	require.Len(t, et.Enumerators, 3)
	assert.True(t, et.Enumerators[1].HasValue)
}

func Test_PointerAndArrayDeclarators(t *testing.T) {
	f, p := parse(t, `int *argv[10];`)
	require.Empty(t, p.Diagnostics().Errors())
	decl := f.Decls[0].(*ast.Declaration)
	d := decl.InitDeclarators[0].Declarator
	assert.Equal(t, "argv", d.Name)
	require.Len(t, d.Suffixes, 1)
	_, ok := d.Suffixes[0].(*ast.ArraySuffix)
	assert.True(t, ok)
	assert.Len(t, d.Pointers, 1)
}

func Test_FunctionPointerDeclarator(t *testing.T) {
	f, p := parse(t, `int (*handler)(int, int);`)
	require.Empty(t, p.Diagnostics().Errors())
	decl := f.Decls[0].(*ast.Declaration)
	d := decl.InitDeclarators[0].Declarator
	assert.Equal(t, "handler", d.Name)
	require.Len(t, d.Pointers, 1)
	require.Len(t, d.Suffixes, 1)
	fs, ok := d.Suffixes[0].(*ast.FuncSuffix)
	require.True(t, ok)
	assert.Len(t, fs.Params, 2)
}

func Test_SyntaxErrorRecorded(t *testing.T) {
	_, p := parse(t, `int main(void) { return )); }`)
	assert.NotEmpty(t, p.Diagnostics().Errors())
}

func Test_LegacyMemoryModelQualifierWarns(t *testing.T) {
	f, p := parse(t, `int __far *screen;`)
	require.Empty(t, p.Diagnostics().Errors())
	require.Len(t, p.Diagnostics().Warnings(), 1)
	assert.Contains(t, p.Diagnostics().Warnings()[0].Message, "unsupported extension")

	decl := f.Decls[0].(*ast.Declaration)
	assert.Equal(t, "screen", decl.InitDeclarators[0].Declarator.Name)
}

func Test_LegacyCallingConventionInFunctionPointer(t *testing.T) {
	f, p := parse(t, `int (__stdcall *handler)(int);`)
	require.Empty(t, p.Diagnostics().Errors())
	require.NotEmpty(t, p.Diagnostics().Warnings())

	decl := f.Decls[0].(*ast.Declaration)
	assert.Equal(t, "handler", decl.InitDeclarators[0].Declarator.Name)
}

func Test_LegacyAsmBlockSkipped(t *testing.T) {
	f, p := parse(t, `
void f(void) {
    _asm { mov ax, 1 }
    return;
}
`)
	require.Empty(t, p.Diagnostics().Errors())
	require.Len(t, p.Diagnostics().Warnings(), 1)
	assert.Contains(t, p.Diagnostics().Warnings()[0].Message, "unsupported extension")

	fn := f.Decls[0].(*ast.FunctionDef)
	require.Len(t, fn.Body.Items, 2)
	_, ok := fn.Body.Items[0].(*ast.EmptyStmt)
	assert.True(t, ok)
}

func Test_DuplicateQualifierWarns(t *testing.T) {
	_, p := parse(t, `const const int x;`)
	require.Empty(t, p.Diagnostics().Errors())
	require.Len(t, p.Diagnostics().Warnings(), 1)
	assert.Contains(t, p.Diagnostics().Warnings()[0].Message, "duplicate")
}

func Test_QualifierOrderWarns(t *testing.T) {
	_, p := parse(t, `int * volatile const vp;`)
	require.Empty(t, p.Diagnostics().Errors())
	require.Len(t, p.Diagnostics().Warnings(), 1)
	assert.Contains(t, p.Diagnostics().Warnings()[0].Message, "order")
}

func Test_MultipleStorageClassesRejected(t *testing.T) {
	_, p := parse(t, `static extern int x;`)
	assert.NotEmpty(t, p.Diagnostics().Errors())
}
