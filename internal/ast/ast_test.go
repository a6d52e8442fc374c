package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zcc/internal/source"
)

func Test_FunctionDefShape(t *testing.T) {
	pos := source.Start("t.c")

	fn := &FunctionDef{
		base: base{Pos: pos},
		Specs: DeclSpecs{
			Type: &BasicType{Kind: Int},
		},
		Declarator: &Declarator{
			Name: "main",
			Suffixes: []DeclaratorSuffix{
				&FuncSuffix{},
			},
		},
		Body: &CompoundStmt{
			Items: []BlockItem{
				&ReturnStmt{Value: &IntLiteral{Text: "0"}, HasValue: true},
			},
		},
	}

	var ext ExternalDecl = fn
	require.NotNil(t, ext)
	assert.Equal(t, pos, ext.Position())

	decl, ok := ext.(Decl)
	require.True(t, ok)
	assert.Same(t, fn, decl)

	require.Len(t, fn.Body.Items, 1)
	ret, ok := fn.Body.Items[0].(*ReturnStmt)
	require.True(t, ok)
	assert.True(t, ret.HasValue)

	lit, ok := ret.Value.(*IntLiteral)
	require.True(t, ok)
	assert.Equal(t, "0", lit.Text)
}

func Test_DeclaratorChainOrder(t *testing.T) {
	// int *argv[]  ->  Name "argv", one pointer level, then an array
	// suffix: pointer binds to the identifier, the array derives the
	// pointer, matching "chain from innermost... outward".
	d := &Declarator{
		Name:     "argv",
		Pointers: []Qualifiers{0},
		Suffixes: []DeclaratorSuffix{
			&ArraySuffix{HasSize: false},
		},
	}
	assert.Equal(t, "argv", d.Name)
	assert.Len(t, d.Pointers, 1)
	require.Len(t, d.Suffixes, 1)
	_, ok := d.Suffixes[0].(*ArraySuffix)
	assert.True(t, ok)
}

func Test_ExhaustiveStmtSwitch(t *testing.T) {
	stmts := []Stmt{
		&CompoundStmt{},
		&ExprStmt{},
		&EmptyStmt{},
		&IfStmt{},
		&WhileStmt{},
		&DoWhileStmt{},
		&ForStmt{},
		&SwitchStmt{},
		&CaseStmt{},
		&DefaultStmt{},
		&BreakStmt{},
		&ContinueStmt{},
		&ReturnStmt{},
		&GotoStmt{},
		&LabeledStmt{},
		&AsmStmt{},
	}

	for _, s := range stmts {
		switch s.(type) {
		case *CompoundStmt, *ExprStmt, *EmptyStmt, *IfStmt, *WhileStmt,
			*DoWhileStmt, *ForStmt, *SwitchStmt, *CaseStmt, *DefaultStmt,
			*BreakStmt, *ContinueStmt, *ReturnStmt, *GotoStmt, *LabeledStmt,
			*AsmStmt:
			// handled
		default:
			t.Fatalf("unhandled Stmt variant %T", s)
		}
	}
}

func Test_DesignatedInitializer(t *testing.T) {
	init := &ListInit{
		Items: []*InitItem{
			{
				Designators: []Designator{&FieldDesignator{Name: "x"}},
				Value:       &ScalarInit{Value: &IntLiteral{Text: "1"}},
			},
			{
				Designators: []Designator{&IndexDesignator{Index: &IntLiteral{Text: "2"}}},
				Value:       &ScalarInit{Value: &IntLiteral{Text: "3"}},
			},
		},
	}
	require.Len(t, init.Items, 2)
	fd, ok := init.Items[0].Designators[0].(*FieldDesignator)
	require.True(t, ok)
	assert.Equal(t, "x", fd.Name)
}
