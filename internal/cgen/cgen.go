// Package cgen implements the semantic analyzer and IR generator: the
// heart of the compiler. It walks an *ast.File, builds
// the scope tree and cgtype model as it goes (mirroring the parser's
// incremental-declaration style, but this time with real resolved
// types instead of the parser's lossy typedef-only bookkeeping), and
// emits an *ir.Module. The walk is one pass; diagnostics accumulate
// rather than aborting it.
package cgen

import (
	"strconv"

	"zcc/internal/ast"
	"zcc/internal/cgtype"
	"zcc/internal/diag"
	"zcc/internal/ir"
	"zcc/internal/sym"
)

// enumConstInfo is what the generator remembers about one declared
// enumerator, for constant folding and for emitting its value as an
// IR immediate.
type enumConstInfo struct {
	Value    int64
	EnumType cgtype.Type
}

// Generator holds all state threaded through one translation unit's
// analysis and lowering pass.
type Generator struct {
	file  string
	diags *diag.Bag
	scope *sym.Scope

	module *ir.Module

	typedefs   map[string]cgtype.Type
	recordDefs map[string]*cgtype.RecordDef
	enumDefs   map[string]*cgtype.EnumDef
	enumConsts map[string]enumConstInfo

	// per-function state, valid only while lowering one FunctionDef
	proc       *ir.Proc
	curBlock   *ir.Block
	labelCount int
	loopBreak  []string
	loopCont   []string
	switchInfo []*switchLowerState
}

// switchLowerState tracks the labels a switch body's case/default
// statements need while its compare-and-branch chain is being built.
type switchLowerState struct {
	tag        ir.Operand
	tagType    cgtype.Type
	strictEnum *cgtype.EnumDef // non-nil iff the switch tag is a strict enum
	seen       map[string]bool
	sawDefault bool
	endLabel   string
	nextTest   string // label of the next compare block to emit
}

// New creates a Generator for one translation unit named file.
func New(file string) *Generator {
	return &Generator{
		file:       file,
		diags:      &diag.Bag{},
		scope:      sym.NewScope(nil),
		module:     &ir.Module{},
		typedefs:   make(map[string]cgtype.Type),
		recordDefs: make(map[string]*cgtype.RecordDef),
		enumDefs:   make(map[string]*cgtype.EnumDef),
		enumConsts: make(map[string]enumConstInfo),
	}
}

// Diagnostics returns every diagnostic recorded during generation.
func (g *Generator) Diagnostics() *diag.Bag { return g.diags }

// Generate lowers f into an *ir.Module. The module returned is always
// non-nil: even a compilation whose diagnostics include errors keeps
// whatever IR it managed to build, for inspection.
func Generate(file string, f *ast.File) (*ir.Module, *diag.Bag) {
	g := New(file)
	g.genFile(f)
	return g.module, g.diags
}

func (g *Generator) genFile(f *ast.File) {
	for _, decl := range f.Decls {
		g.genExternalDecl(decl)
	}
}

func (g *Generator) pushScope() *sym.Scope {
	old := g.scope
	g.scope = sym.NewScope(old)
	return old
}

func (g *Generator) popScope(old *sym.Scope) { g.scope = old }

func (g *Generator) newLabel(prefix string) string {
	g.labelCount++
	return prefix + "." + strconv.Itoa(g.labelCount)
}
