package parser

import (
	"zcc/internal/ast"
	"zcc/internal/lexer"
	"zcc/internal/source"
)

var assignOps = map[lexer.Kind]ast.AssignOp{
	lexer.Assign:    ast.AssignSimple,
	lexer.PlusEq:    ast.AssignAdd,
	lexer.MinusEq:   ast.AssignSub,
	lexer.StarEq:    ast.AssignMul,
	lexer.SlashEq:   ast.AssignDiv,
	lexer.PercentEq: ast.AssignMod,
	lexer.ShlEq:     ast.AssignShl,
	lexer.ShrEq:     ast.AssignShr,
	lexer.AmpEq:     ast.AssignAnd,
	lexer.CaretEq:   ast.AssignXor,
	lexer.PipeEq:    ast.AssignOr,
}

var logOrOps = map[lexer.Kind]ast.BinaryOp{lexer.PipePipe: ast.OpLogOr}
var logAndOps = map[lexer.Kind]ast.BinaryOp{lexer.AmpAmp: ast.OpLogAnd}
var bitOrOps = map[lexer.Kind]ast.BinaryOp{lexer.Pipe: ast.OpBitOr}
var bitXorOps = map[lexer.Kind]ast.BinaryOp{lexer.Caret: ast.OpBitXor}
var bitAndOps = map[lexer.Kind]ast.BinaryOp{lexer.Amp: ast.OpBitAnd}
var eqOps = map[lexer.Kind]ast.BinaryOp{lexer.Eq: ast.OpEq, lexer.NotEq: ast.OpNe}
var relOps = map[lexer.Kind]ast.BinaryOp{
	lexer.Less: ast.OpLt, lexer.LessEq: ast.OpLe, lexer.Greater: ast.OpGt, lexer.GreaterEq: ast.OpGe,
}
var shiftOps = map[lexer.Kind]ast.BinaryOp{lexer.Shl: ast.OpShl, lexer.Shr: ast.OpShr}
var addOps = map[lexer.Kind]ast.BinaryOp{lexer.Plus: ast.OpAdd, lexer.Minus: ast.OpSub}
var mulOps = map[lexer.Kind]ast.BinaryOp{lexer.Star: ast.OpMul, lexer.Slash: ast.OpDiv, lexer.Percent: ast.OpMod}

// parseExpr parses the comma-operator level: a sequence of
// assignment-expressions.
func (p *Parser) parseExpr() ast.Expr {
	mark := p.mark()
	start := p.cur().Pos
	left := p.parseAssignExpr()
	if !p.is(lexer.Comma) {
		return left
	}
	exprs := []ast.Expr{left}
	for p.is(lexer.Comma) {
		p.advance()
		exprs = append(exprs, p.parseAssignExpr())
	}
	ce := &ast.CommaExpr{Exprs: exprs}
	ce.Init(start, p.tokensSince(mark))
	return ce
}

func (p *Parser) parseAssignExpr() ast.Expr {
	mark := p.mark()
	start := p.cur().Pos
	left := p.parseConditionalExpr()
	if op, ok := assignOps[p.cur().Kind]; ok {
		p.advance()
		right := p.parseAssignExpr()
		ae := &ast.AssignExpr{Op: op, Target: left, Value: right}
		ae.Init(start, p.tokensSince(mark))
		return ae
	}
	return left
}

func (p *Parser) parseConditionalExpr() ast.Expr {
	mark := p.mark()
	start := p.cur().Pos
	cond := p.parseLogOr()
	if !p.is(lexer.Question) {
		return cond
	}
	p.advance()
	then := p.parseExpr()
	p.expect(lexer.Colon)
	els := p.parseConditionalExpr()
	ce := &ast.ConditionalExpr{Cond: cond, Then: then, Else: els}
	ce.Init(start, p.tokensSince(mark))
	return ce
}

// binaryLevel parses a left-associative binary-operator precedence
// level: operand next, then zero or more (op, operand) pairs chosen
// from ops.
func (p *Parser) binaryLevel(next func() ast.Expr, ops map[lexer.Kind]ast.BinaryOp) ast.Expr {
	mark := p.mark()
	start := p.cur().Pos
	left := next()
	for {
		op, ok := ops[p.cur().Kind]
		if !ok {
			return left
		}
		p.advance()
		right := next()
		be := &ast.BinaryExpr{Op: op, Left: left, Right: right}
		be.Init(start, p.tokensSince(mark))
		left = be
	}
}

func (p *Parser) parseLogOr() ast.Expr   { return p.binaryLevel(p.parseLogAnd, logOrOps) }
func (p *Parser) parseLogAnd() ast.Expr  { return p.binaryLevel(p.parseBitOr, logAndOps) }
func (p *Parser) parseBitOr() ast.Expr   { return p.binaryLevel(p.parseBitXor, bitOrOps) }
func (p *Parser) parseBitXor() ast.Expr  { return p.binaryLevel(p.parseBitAnd, bitXorOps) }
func (p *Parser) parseBitAnd() ast.Expr  { return p.binaryLevel(p.parseEquality, bitAndOps) }
func (p *Parser) parseEquality() ast.Expr {
	return p.binaryLevel(p.parseRelational, eqOps)
}
func (p *Parser) parseRelational() ast.Expr { return p.binaryLevel(p.parseShift, relOps) }
func (p *Parser) parseShift() ast.Expr      { return p.binaryLevel(p.parseAdditive, shiftOps) }
func (p *Parser) parseAdditive() ast.Expr   { return p.binaryLevel(p.parseMultiplicative, addOps) }
func (p *Parser) parseMultiplicative() ast.Expr {
	return p.binaryLevel(p.parseCast, mulOps)
}

// looksLikeTypeNameAt reports whether the token offset syntactic
// positions ahead can start a type name, used to disambiguate a cast
// or compound literal from a parenthesized expression.
func (p *Parser) looksLikeTypeNameAt(offset int) bool {
	t := p.peek(offset)
	if t.Kind == lexer.Keyword {
		switch t.Text {
		case "void", "char", "short", "int", "long", "signed", "unsigned",
			"_Bool", "__int128", "struct", "union", "enum",
			"const", "volatile", "restrict", "__restrict__":
			return true
		}
		return false
	}
	if t.Kind == lexer.Identifier {
		return p.scope.IsTypedef(t.Text)
	}
	return false
}

func (p *Parser) parseCast() ast.Expr {
	if p.is(lexer.LParen) && p.looksLikeTypeNameAt(1) {
		mark := p.mark()
		start := p.cur().Pos
		p.advance()
		tn := p.parseTypeName()
		p.expect(lexer.RParen)
		if p.is(lexer.LBrace) {
			init := p.parseListInit()
			cl := &ast.CompoundLiteral{Type: tn, Init: init}
			cl.Pos, cl.Toks = start, p.tokensSince(mark)
			return p.parsePostfixTailFrom(cl, start, mark)
		}
		operand := p.parseCast()
		ce := &ast.CastExpr{Type: tn, Operand: operand}
		ce.Init(start, p.tokensSince(mark))
		return ce
	}
	return p.parseUnary()
}

func (p *Parser) parseUnary() ast.Expr {
	mark := p.mark()
	start := p.cur().Pos
	switch {
	case p.is(lexer.Amp):
		p.advance()
		return p.unary(start, mark, ast.OpAddr, p.parseCast())
	case p.is(lexer.Star):
		p.advance()
		return p.unary(start, mark, ast.OpDeref, p.parseCast())
	case p.is(lexer.Plus):
		p.advance()
		return p.unary(start, mark, ast.OpPlus, p.parseCast())
	case p.is(lexer.Minus):
		p.advance()
		return p.unary(start, mark, ast.OpNeg, p.parseCast())
	case p.is(lexer.Tilde):
		p.advance()
		return p.unary(start, mark, ast.OpBitNot, p.parseCast())
	case p.is(lexer.Bang):
		p.advance()
		return p.unary(start, mark, ast.OpNot, p.parseCast())
	case p.is(lexer.PlusPlus):
		p.advance()
		return p.unary(start, mark, ast.OpPreInc, p.parseUnary())
	case p.is(lexer.MinusMinus):
		p.advance()
		return p.unary(start, mark, ast.OpPreDec, p.parseUnary())
	case p.isKeyword("sizeof"):
		p.advance()
		if p.is(lexer.LParen) && p.looksLikeTypeNameAt(1) {
			p.advance()
			tn := p.parseTypeName()
			p.expect(lexer.RParen)
			se := &ast.SizeofTypeExpr{Type: tn}
			se.Init(start, p.tokensSince(mark))
			return se
		}
		se := &ast.SizeofExpr{Operand: p.parseUnary()}
		se.Init(start, p.tokensSince(mark))
		return se
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) unary(start source.Position, mark int, op ast.UnaryOp, operand ast.Expr) ast.Expr {
	u := &ast.UnaryExpr{Op: op, Operand: operand}
	u.Init(start, p.tokensSince(mark))
	return u
}

func (p *Parser) parsePostfix() ast.Expr {
	mark := p.mark()
	start := p.cur().Pos
	e := p.parsePrimary()
	return p.parsePostfixTailFrom(e, start, mark)
}

func (p *Parser) parsePostfixTailFrom(e ast.Expr, start source.Position, mark int) ast.Expr {
	for {
		switch {
		case p.is(lexer.LBracket):
			p.advance()
			idx := p.parseExpr()
			p.expect(lexer.RBracket)
			ie := &ast.IndexExpr{Target: e, Index: idx}
			ie.Init(start, p.tokensSince(mark))
			e = ie
		case p.is(lexer.LParen):
			p.advance()
			var args []ast.Expr
			if !p.is(lexer.RParen) {
				for {
					args = append(args, p.parseAssignExpr())
					if p.is(lexer.Comma) {
						p.advance()
						continue
					}
					break
				}
			}
			p.expect(lexer.RParen)
			ce := &ast.CallExpr{Callee: e, Args: args}
			ce.Init(start, p.tokensSince(mark))
			e = ce
		case p.is(lexer.Dot):
			p.advance()
			name := p.expect(lexer.Identifier).Text
			me := &ast.MemberExpr{Target: e, Name: name, Indirect: false}
			me.Init(start, p.tokensSince(mark))
			e = me
		case p.is(lexer.Arrow):
			p.advance()
			name := p.expect(lexer.Identifier).Text
			me := &ast.MemberExpr{Target: e, Name: name, Indirect: true}
			me.Init(start, p.tokensSince(mark))
			e = me
		case p.is(lexer.PlusPlus):
			p.advance()
			u := &ast.UnaryExpr{Op: ast.OpPostInc, Operand: e}
			u.Init(start, p.tokensSince(mark))
			e = u
		case p.is(lexer.MinusMinus):
			p.advance()
			u := &ast.UnaryExpr{Op: ast.OpPostDec, Operand: e}
			u.Init(start, p.tokensSince(mark))
			e = u
		default:
			return e
		}
	}
}

// adjacentNext reports whether the token immediately following cur
// starts at the very next byte, with no intervening trivia: the test
// this parser uses to fuse a bare `L` identifier with the quoted
// literal that follows it into one wide literal, since the lexer
// tokenizes `L` as a plain identifier rather than a
// literal prefix.
func (p *Parser) adjacentNext() bool {
	cur := p.cur()
	nxt := p.peek(1)
	return nxt.Pos.Line == cur.Pos.Line && nxt.Pos.Column == cur.Pos.Column+len(cur.Text)
}

func (p *Parser) parsePrimary() ast.Expr {
	mark := p.mark()
	start := p.cur().Pos
	t := p.cur()
	switch t.Kind {
	case lexer.IntegerLiteral:
		p.advance()
		lit := &ast.IntLiteral{Text: t.Text}
		lit.Init(start, p.tokensSince(mark))
		return lit
	case lexer.CharLiteral:
		p.advance()
		cl := &ast.CharLiteral{Text: t.Text}
		cl.Init(start, p.tokensSince(mark))
		return cl
	case lexer.StringLiteral:
		return p.parseStringLiteralTail(start, mark, false)
	case lexer.Identifier:
		if t.Text == "L" && p.adjacentNext() {
			switch p.peek(1).Kind {
			case lexer.CharLiteral:
				p.advance()
				lit := p.advance()
				cl := &ast.CharLiteral{Text: lit.Text, Wide: true}
				cl.Init(start, p.tokensSince(mark))
				return cl
			case lexer.StringLiteral:
				p.advance()
				return p.parseStringLiteralTail(start, mark, true)
			}
		}
		p.advance()
		id := &ast.Ident{Name: t.Text}
		id.Init(start, p.tokensSince(mark))
		return id
	case lexer.LParen:
		p.advance()
		e := p.parseExpr()
		p.expect(lexer.RParen)
		return e
	default:
		p.errorf(t.Pos, "expected expression, found %s %q", t.Kind, t.Text)
		if t.Kind != lexer.EOF {
			p.advance()
		}
		lit := &ast.IntLiteral{Text: "0"}
		lit.Init(start, p.tokensSince(mark))
		return lit
	}
}

func (p *Parser) parseStringLiteralTail(start source.Position, mark int, wide bool) ast.Expr {
	var parts []string
	for p.is(lexer.StringLiteral) {
		parts = append(parts, p.advance().Text)
		if p.cur().Kind == lexer.Identifier && p.cur().Text == "L" && p.adjacentNext() && p.peek(1).Kind == lexer.StringLiteral {
			wide = true
			p.advance()
		}
	}
	sl := &ast.StringLiteral{Parts: parts, Wide: wide}
	sl.Init(start, p.tokensSince(mark))
	return sl
}
