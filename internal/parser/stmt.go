package parser

import (
	"zcc/internal/ast"
	"zcc/internal/diag"
	"zcc/internal/lexer"
)

// parseDeclaration parses one block-scope declaration: declaration
// specifiers, a comma-separated init-declarator-list, and a
// terminating `;`. Shared by compound-statement items and `for`-loop
// C99 init clauses.
func (p *Parser) parseDeclaration() *ast.Declaration {
	mark := p.mark()
	start := p.cur().Pos
	attrs := p.parseAttributeList()
	specs, midAttrs := p.parseDeclSpecs()
	attrs = append(attrs, midAttrs...)

	var initDecls []*ast.InitDeclarator
	if !p.is(lexer.Semicolon) {
		d := p.parseDeclarator()
		initDecls = append(initDecls, p.finishInitDeclarator(d, specs))
		for p.is(lexer.Comma) {
			p.advance()
			d2 := p.parseDeclarator()
			initDecls = append(initDecls, p.finishInitDeclarator(d2, specs))
		}
	}
	attrs = append(attrs, p.parseAttributeList()...)
	p.expect(lexer.Semicolon)

	decl := &ast.Declaration{Specs: specs, InitDeclarators: initDecls, Attributes: attrs}
	decl.Init(start, p.tokensSince(mark))
	return decl
}

func (p *Parser) parseBlockItem() ast.BlockItem {
	if p.startsTypeSpecifier() {
		return p.parseDeclaration()
	}
	return p.parseStatement()
}

func (p *Parser) parseCompoundStmt() *ast.CompoundStmt {
	mark := p.mark()
	start := p.cur().Pos
	p.expect(lexer.LBrace)
	outer := p.pushScope()
	var items []ast.BlockItem
	for !p.is(lexer.RBrace) && !p.is(lexer.EOF) {
		itemMark := p.mark()
		item := p.parseBlockItem()
		items = append(items, item)
		if p.mark() == itemMark {
			p.advance()
		}
	}
	p.popScope(outer)
	p.expect(lexer.RBrace)
	cs := &ast.CompoundStmt{Items: items}
	cs.Init(start, p.tokensSince(mark))
	return cs
}

func (p *Parser) parseStatement() ast.Stmt {
	switch {
	case p.is(lexer.LBrace):
		return p.parseCompoundStmt()
	case p.is(lexer.Semicolon):
		mark := p.mark()
		start := p.cur().Pos
		p.advance()
		es := &ast.EmptyStmt{}
		es.Init(start, p.tokensSince(mark))
		return es
	case p.isKeyword("if"):
		return p.parseIfStmt()
	case p.isKeyword("while"):
		return p.parseWhileStmt()
	case p.isKeyword("do"):
		return p.parseDoWhileStmt()
	case p.isKeyword("for"):
		return p.parseForStmt()
	case p.isKeyword("switch"):
		return p.parseSwitchStmt()
	case p.isKeyword("case"):
		return p.parseCaseStmt()
	case p.isKeyword("default"):
		return p.parseDefaultStmt()
	case p.isKeyword("break"):
		return p.parseBreakStmt()
	case p.isKeyword("continue"):
		return p.parseContinueStmt()
	case p.isKeyword("return"):
		return p.parseReturnStmt()
	case p.isKeyword("goto"):
		return p.parseGotoStmt()
	case p.isKeyword("asm"):
		return p.parseAsmStmt()
	case p.is(lexer.Identifier) && (p.cur().Text == "_asm" || p.cur().Text == "__asm") && p.peek(1).Kind == lexer.LBrace:
		return p.parseLegacyAsmBlock()
	case p.is(lexer.Identifier) && p.peek(1).Kind == lexer.Colon:
		return p.parseLabeledStmt()
	default:
		return p.parseExprStmt()
	}
}

// parseLegacyAsmBlock consumes an x86-dialect `_asm { ... }` block,
// which this compiler does not support: the whole block is skipped
// with an "unsupported extension" diagnostic and stands in as an empty
// statement.
func (p *Parser) parseLegacyAsmBlock() ast.Stmt {
	mark := p.mark()
	start := p.cur().Pos
	kw := p.advance()
	p.diags.Addf(kw.Pos, diag.PhaseParser, diag.Warning, "unsupported extension %q ignored", kw.Text)
	p.expect(lexer.LBrace)
	depth := 1
	for depth > 0 && !p.is(lexer.EOF) {
		switch p.cur().Kind {
		case lexer.LBrace:
			depth++
		case lexer.RBrace:
			depth--
		}
		p.advance()
	}
	es := &ast.EmptyStmt{}
	es.Init(start, p.tokensSince(mark))
	return es
}

func (p *Parser) parseBreakStmt() ast.Stmt {
	mark := p.mark()
	start := p.cur().Pos
	p.expectKeyword("break")
	p.expect(lexer.Semicolon)
	bs := &ast.BreakStmt{}
	bs.Init(start, p.tokensSince(mark))
	return bs
}

func (p *Parser) parseContinueStmt() ast.Stmt {
	mark := p.mark()
	start := p.cur().Pos
	p.expectKeyword("continue")
	p.expect(lexer.Semicolon)
	cs := &ast.ContinueStmt{}
	cs.Init(start, p.tokensSince(mark))
	return cs
}

func (p *Parser) parseExprStmt() ast.Stmt {
	mark := p.mark()
	start := p.cur().Pos
	e := p.parseExpr()
	p.expect(lexer.Semicolon)
	es := &ast.ExprStmt{Expr: e}
	es.Init(start, p.tokensSince(mark))
	return es
}

func (p *Parser) parseIfStmt() ast.Stmt {
	mark := p.mark()
	start := p.cur().Pos
	p.expectKeyword("if")
	p.expect(lexer.LParen)
	cond := p.parseExpr()
	p.expect(lexer.RParen)
	then := p.parseStatement()
	var els ast.Stmt
	if p.isKeyword("else") {
		p.advance()
		els = p.parseStatement()
	}
	is := &ast.IfStmt{Cond: cond, Then: then, Else: els}
	is.Init(start, p.tokensSince(mark))
	return is
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	mark := p.mark()
	start := p.cur().Pos
	p.expectKeyword("while")
	p.expect(lexer.LParen)
	cond := p.parseExpr()
	p.expect(lexer.RParen)
	body := p.parseStatement()
	ws := &ast.WhileStmt{Cond: cond, Body: body}
	ws.Init(start, p.tokensSince(mark))
	return ws
}

func (p *Parser) parseDoWhileStmt() ast.Stmt {
	mark := p.mark()
	start := p.cur().Pos
	p.expectKeyword("do")
	body := p.parseStatement()
	p.expectKeyword("while")
	p.expect(lexer.LParen)
	cond := p.parseExpr()
	p.expect(lexer.RParen)
	p.expect(lexer.Semicolon)
	ds := &ast.DoWhileStmt{Body: body, Cond: cond}
	ds.Init(start, p.tokensSince(mark))
	return ds
}

func (p *Parser) parseForStmt() ast.Stmt {
	mark := p.mark()
	start := p.cur().Pos
	p.expectKeyword("for")
	p.expect(lexer.LParen)
	outer := p.pushScope()

	var init ast.BlockItem
	switch {
	case p.is(lexer.Semicolon):
		p.advance()
	case p.startsTypeSpecifier():
		init = p.parseDeclaration()
	default:
		init = p.parseExprStmt()
	}

	var cond ast.Expr
	if !p.is(lexer.Semicolon) {
		cond = p.parseExpr()
	}
	p.expect(lexer.Semicolon)

	var post ast.Expr
	if !p.is(lexer.RParen) {
		post = p.parseExpr()
	}
	p.expect(lexer.RParen)

	body := p.parseStatement()
	p.popScope(outer)

	fs := &ast.ForStmt{Init: init, Cond: cond, Post: post, Body: body}
	fs.Pos, fs.Toks = start, p.tokensSince(mark)
	return fs
}

func (p *Parser) parseSwitchStmt() ast.Stmt {
	mark := p.mark()
	start := p.cur().Pos
	p.expectKeyword("switch")
	p.expect(lexer.LParen)
	tag := p.parseExpr()
	p.expect(lexer.RParen)
	body := p.parseStatement()
	ss := &ast.SwitchStmt{Tag: tag, Body: body}
	ss.Init(start, p.tokensSince(mark))
	return ss
}

func (p *Parser) parseCaseStmt() ast.Stmt {
	mark := p.mark()
	start := p.cur().Pos
	p.expectKeyword("case")
	value := p.parseConditionalExpr()
	p.expect(lexer.Colon)
	stmt := p.parseStatement()
	cs := &ast.CaseStmt{Value: value, Stmt: stmt}
	cs.Init(start, p.tokensSince(mark))
	return cs
}

func (p *Parser) parseDefaultStmt() ast.Stmt {
	mark := p.mark()
	start := p.cur().Pos
	p.expectKeyword("default")
	p.expect(lexer.Colon)
	stmt := p.parseStatement()
	ds := &ast.DefaultStmt{Stmt: stmt}
	ds.Init(start, p.tokensSince(mark))
	return ds
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	mark := p.mark()
	start := p.cur().Pos
	p.expectKeyword("return")
	rs := &ast.ReturnStmt{}
	if !p.is(lexer.Semicolon) {
		rs.Value = p.parseExpr()
		rs.HasValue = true
	}
	p.expect(lexer.Semicolon)
	rs.Init(start, p.tokensSince(mark))
	return rs
}

func (p *Parser) parseGotoStmt() ast.Stmt {
	mark := p.mark()
	start := p.cur().Pos
	p.expectKeyword("goto")
	label := p.expect(lexer.Identifier).Text
	p.expect(lexer.Semicolon)
	gs := &ast.GotoStmt{Label: label}
	gs.Init(start, p.tokensSince(mark))
	return gs
}

func (p *Parser) parseLabeledStmt() ast.Stmt {
	mark := p.mark()
	start := p.cur().Pos
	label := p.advance().Text
	p.expect(lexer.Colon)
	stmt := p.parseStatement()
	ls := &ast.LabeledStmt{Label: label, Stmt: stmt}
	ls.Init(start, p.tokensSince(mark))
	return ls
}

// parseAsmStmt parses a basic or extended inline-assembler statement
//:
//
//	asm ["volatile"] "(" template
//	    (":" outputs (":" inputs (":" clobbers (":" gotolabels)?)?)?)?
//	")" ";"
func (p *Parser) parseAsmStmt() ast.Stmt {
	mark := p.mark()
	start := p.cur().Pos
	p.expectKeyword("asm")
	volatile := false
	if p.isKeyword("volatile") {
		volatile = true
		p.advance()
	}
	p.expect(lexer.LParen)
	tmpl := p.expect(lexer.StringLiteral).Text
	as := &ast.AsmStmt{Template: tmpl, Volatile: volatile, Basic: true}
	if p.is(lexer.Colon) {
		as.Basic = false
		p.advance()
		as.Outputs = p.parseAsmOperandList()
		if p.is(lexer.Colon) {
			p.advance()
			as.Inputs = p.parseAsmOperandList()
			if p.is(lexer.Colon) {
				p.advance()
				as.Clobbers = p.parseStringList()
				if p.is(lexer.Colon) {
					p.advance()
					as.GotoLabels = p.parseIdentList()
				}
			}
		}
	}
	p.expect(lexer.RParen)
	p.expect(lexer.Semicolon)
	as.Init(start, p.tokensSince(mark))
	return as
}

func (p *Parser) parseAsmOperandList() []*ast.AsmOperand {
	if p.is(lexer.Colon) || p.is(lexer.RParen) {
		return nil
	}
	var ops []*ast.AsmOperand
	for {
		mark := p.mark()
		start := p.cur().Pos
		symbolic := ""
		if p.is(lexer.LBracket) {
			p.advance()
			symbolic = p.expect(lexer.Identifier).Text
			p.expect(lexer.RBracket)
		}
		constraint := p.expect(lexer.StringLiteral).Text
		p.expect(lexer.LParen)
		e := p.parseExpr()
		p.expect(lexer.RParen)
		op := &ast.AsmOperand{Symbolic: symbolic, Constraint: constraint, Expr: e}
		op.Init(start, p.tokensSince(mark))
		ops = append(ops, op)
		if p.is(lexer.Comma) {
			p.advance()
			continue
		}
		break
	}
	return ops
}

func (p *Parser) parseStringList() []string {
	if p.is(lexer.Colon) || p.is(lexer.RParen) {
		return nil
	}
	var out []string
	for {
		out = append(out, p.expect(lexer.StringLiteral).Text)
		if p.is(lexer.Comma) {
			p.advance()
			continue
		}
		break
	}
	return out
}

func (p *Parser) parseIdentList() []string {
	if p.is(lexer.Colon) || p.is(lexer.RParen) {
		return nil
	}
	var out []string
	for {
		out = append(out, p.expect(lexer.Identifier).Text)
		if p.is(lexer.Comma) {
			p.advance()
			continue
		}
		break
	}
	return out
}
