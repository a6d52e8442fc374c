package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"zcc/internal/ast"
	"zcc/internal/ir"
	"zcc/internal/lexer"
	"zcc/internal/z80"
)

// DumpTokens writes the token stream one per line: kind, position, and
// the token text with control characters escaped.
func DumpTokens(w io.Writer, toks []lexer.Token) {
	for _, t := range toks {
		fmt.Fprintf(w, "%d:%d\t%s\t%q\n", t.Pos.Line, t.Pos.Column, t.Kind, t.Text)
	}
}

// DumpIR writes the IR module in its reparsable text form.
func DumpIR(w io.Writer, m *ir.Module) {
	io.WriteString(w, ir.Print(m))
}

// DumpIRJSON writes the IR text form wrapped in a JSON envelope, the
// machine-readable variant of the dump.
func DumpIRJSON(w io.Writer, m *ir.Module) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Format string `json:"format"`
		IR     string `json:"ir"`
	}{Format: "zcc-ir", IR: ir.Print(m)})
}

// DumpZ80 writes the selected instructions as assembler text.
func DumpZ80(w io.Writer, m *z80.Module, org int) {
	io.WriteString(w, m.Text(org))
}

// DumpZ80JSON writes the instruction listing structurally.
func DumpZ80JSON(w io.Writer, m *z80.Module) error {
	type jsonInstr struct {
		Label    string   `json:"label,omitempty"`
		Mnemonic string   `json:"mnemonic,omitempty"`
		Operands []string `json:"operands,omitempty"`
	}
	type jsonProc struct {
		Name   string      `json:"name"`
		Frame  int         `json:"frame"`
		ISR    bool        `json:"isr,omitempty"`
		Instrs []jsonInstr `json:"instrs"`
	}
	var procs []jsonProc
	for _, p := range m.Procs {
		jp := jsonProc{Name: p.Name, Frame: p.FrameSize, ISR: p.IsISR}
		for _, in := range p.Instrs {
			jp.Instrs = append(jp.Instrs, jsonInstr{Label: in.Label, Mnemonic: in.Mnemonic, Operands: in.Operands})
		}
		procs = append(procs, jp)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Procs []jsonProc `json:"procs"`
	}{Procs: procs})
}

// DumpAST writes an indented outline of the syntax tree: one node per
// line with its kind and salient attributes.
func DumpAST(w io.Writer, f *ast.File) {
	d := &astDumper{w: w}
	for _, decl := range f.Decls {
		d.external(decl, 0)
	}
}

type astDumper struct {
	w io.Writer
}

func (d *astDumper) line(depth int, format string, args ...any) {
	fmt.Fprintf(d.w, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}

func (d *astDumper) external(decl ast.ExternalDecl, depth int) {
	switch n := decl.(type) {
	case *ast.Declaration:
		names := make([]string, 0, len(n.InitDeclarators))
		for _, id := range n.InitDeclarators {
			names = append(names, id.Declarator.Name)
		}
		d.line(depth, "Declaration %s", strings.Join(names, ", "))
		for _, id := range n.InitDeclarators {
			if id.Init != nil {
				d.initializer(id.Init, depth+1)
			}
		}
	case *ast.FunctionDef:
		d.line(depth, "FunctionDef %s", n.Declarator.Name)
		d.stmt(n.Body, depth+1)
	}
}

func (d *astDumper) initializer(init ast.Initializer, depth int) {
	switch n := init.(type) {
	case *ast.ScalarInit:
		d.line(depth, "ScalarInit")
		d.expr(n.Value, depth+1)
	case *ast.ListInit:
		d.line(depth, "ListInit (%d items)", len(n.Items))
		for _, item := range n.Items {
			d.initializer(item.Value, depth+1)
		}
	}
}

func (d *astDumper) stmt(s ast.Stmt, depth int) {
	switch n := s.(type) {
	case *ast.CompoundStmt:
		d.line(depth, "CompoundStmt")
		for _, item := range n.Items {
			switch it := item.(type) {
			case *ast.Declaration:
				d.external(it, depth+1)
			case ast.Stmt:
				d.stmt(it, depth+1)
			}
		}
	case *ast.ExprStmt:
		d.line(depth, "ExprStmt")
		d.expr(n.Expr, depth+1)
	case *ast.EmptyStmt:
		d.line(depth, "EmptyStmt")
	case *ast.IfStmt:
		d.line(depth, "IfStmt")
		d.expr(n.Cond, depth+1)
		d.stmt(n.Then, depth+1)
		if n.Else != nil {
			d.stmt(n.Else, depth+1)
		}
	case *ast.WhileStmt:
		d.line(depth, "WhileStmt")
		d.expr(n.Cond, depth+1)
		d.stmt(n.Body, depth+1)
	case *ast.DoWhileStmt:
		d.line(depth, "DoWhileStmt")
		d.stmt(n.Body, depth+1)
		d.expr(n.Cond, depth+1)
	case *ast.ForStmt:
		d.line(depth, "ForStmt")
		d.stmt(n.Body, depth+1)
	case *ast.SwitchStmt:
		d.line(depth, "SwitchStmt")
		d.expr(n.Tag, depth+1)
		d.stmt(n.Body, depth+1)
	case *ast.CaseStmt:
		d.line(depth, "CaseStmt")
		d.expr(n.Value, depth+1)
		d.stmt(n.Stmt, depth+1)
	case *ast.DefaultStmt:
		d.line(depth, "DefaultStmt")
		d.stmt(n.Stmt, depth+1)
	case *ast.BreakStmt:
		d.line(depth, "BreakStmt")
	case *ast.ContinueStmt:
		d.line(depth, "ContinueStmt")
	case *ast.ReturnStmt:
		d.line(depth, "ReturnStmt")
		if n.HasValue {
			d.expr(n.Value, depth+1)
		}
	case *ast.GotoStmt:
		d.line(depth, "GotoStmt %s", n.Label)
	case *ast.LabeledStmt:
		d.line(depth, "LabeledStmt %s", n.Label)
		d.stmt(n.Stmt, depth+1)
	case *ast.AsmStmt:
		d.line(depth, "AsmStmt %q", n.Template)
	default:
		d.line(depth, "%T", s)
	}
}

func (d *astDumper) expr(e ast.Expr, depth int) {
	switch n := e.(type) {
	case *ast.IntLiteral:
		d.line(depth, "IntLiteral %s", n.Text)
	case *ast.CharLiteral:
		d.line(depth, "CharLiteral %s", n.Text)
	case *ast.StringLiteral:
		d.line(depth, "StringLiteral (%d parts)", len(n.Parts))
	case *ast.Ident:
		d.line(depth, "Ident %s", n.Name)
	case *ast.MemberExpr:
		d.line(depth, "MemberExpr .%s", n.Name)
		d.expr(n.Target, depth+1)
	case *ast.CallExpr:
		d.line(depth, "CallExpr (%d args)", len(n.Args))
		d.expr(n.Callee, depth+1)
		for _, a := range n.Args {
			d.expr(a, depth+1)
		}
	case *ast.IndexExpr:
		d.line(depth, "IndexExpr")
		d.expr(n.Target, depth+1)
		d.expr(n.Index, depth+1)
	case *ast.CastExpr:
		d.line(depth, "CastExpr")
		d.expr(n.Operand, depth+1)
	case *ast.SizeofExpr:
		d.line(depth, "SizeofExpr")
		d.expr(n.Operand, depth+1)
	case *ast.SizeofTypeExpr:
		d.line(depth, "SizeofTypeExpr")
	case *ast.UnaryExpr:
		d.line(depth, "UnaryExpr op=%d", n.Op)
		d.expr(n.Operand, depth+1)
	case *ast.BinaryExpr:
		d.line(depth, "BinaryExpr op=%d", n.Op)
		d.expr(n.Left, depth+1)
		d.expr(n.Right, depth+1)
	case *ast.AssignExpr:
		d.line(depth, "AssignExpr op=%d", n.Op)
		d.expr(n.Target, depth+1)
		d.expr(n.Value, depth+1)
	case *ast.CommaExpr:
		d.line(depth, "CommaExpr")
		for _, sub := range n.Exprs {
			d.expr(sub, depth+1)
		}
	case *ast.ConditionalExpr:
		d.line(depth, "ConditionalExpr")
		d.expr(n.Cond, depth+1)
		d.expr(n.Then, depth+1)
		d.expr(n.Else, depth+1)
	case *ast.CompoundLiteral:
		d.line(depth, "CompoundLiteral")
		d.initializer(n.Init, depth+1)
	default:
		d.line(depth, "%T", e)
	}
}
