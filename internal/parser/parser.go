// Package parser implements the recursive-descent C89-dialect parser:
// token stream in, one *ast.File out, diagnostics accumulated rather
// than raised early.
//
// The mark/rewind primitive is realized over an append-only buffered
// token slice (the parser is the sole consumer of the lexer's token
// channel, draining it once up front) rather than over the live
// channel, since full backtracking (needed for the cast-vs-
// parenthesized-expression ambiguity) is simplest over a slice index.
package parser

import (
	"zcc/internal/ast"
	"zcc/internal/diag"
	"zcc/internal/lexer"
	"zcc/internal/source"
	"zcc/internal/sym"
)

// trivia is any token kind the grammar skips over while parsing but
// that the lexer still emits as a first-class token.
func isTrivia(k lexer.Kind) bool {
	switch k {
	case lexer.Whitespace, lexer.Newline, lexer.Comment, lexer.DocComment, lexer.PreprocessorLine:
		return true
	default:
		return false
	}
}

// Parser holds the buffered token stream, the parse-time scope tree
// used only to resolve the declarator-vs-expression ambiguity, and the
// accumulating diagnostic bag.
type Parser struct {
	file string

	all  []lexer.Token // every token the lexer produced, trivia included
	toks []lexer.Token // syntactic tokens only
	pos  int

	scope *sym.Scope
	diags *diag.Bag
}

// New drains toks (typically a lexer.Lexer's Tokens() channel) and
// returns a Parser ready to parse one translation unit. file names the
// source for diagnostic positions.
func New(file string, toks <-chan lexer.Token) *Parser {
	p := &Parser{file: file, scope: sym.NewScope(nil), diags: &diag.Bag{}}
	for t := range toks {
		p.all = append(p.all, t)
		if !isTrivia(t.Kind) {
			p.toks = append(p.toks, t)
		}
	}
	return p
}

// Diagnostics returns every diagnostic recorded while parsing.
func (p *Parser) Diagnostics() *diag.Bag { return p.diags }

func (p *Parser) errorf(pos source.Position, format string, args ...any) {
	p.diags.Addf(pos, diag.PhaseParser, diag.Error, format, args...)
}

// cur returns the current lookahead token, or a synthetic EOF token
// past the end of the stream.
func (p *Parser) cur() lexer.Token { return p.at(p.pos) }

// peek returns the token n positions ahead of cur (peek(1) is the next
// token); declarator-vs-expression disambiguation needs a lookahead of
// two syntactic tokens.
func (p *Parser) peek(n int) lexer.Token { return p.at(p.pos + n) }

func (p *Parser) at(i int) lexer.Token {
	if i < 0 || i >= len(p.toks) {
		pos := source.Position{File: p.file, Line: 1, Column: 1}
		if len(p.toks) > 0 {
			pos = p.toks[len(p.toks)-1].Pos
		}
		return lexer.Token{Kind: lexer.EOF, Pos: pos}
	}
	return p.toks[i]
}

// advance consumes and returns the current token.
func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

// mark/rewind implement backtracking over a plain slice index.
func (p *Parser) mark() int        { return p.pos }
func (p *Parser) rewind(mark int)  { p.pos = mark }
func (p *Parser) tokensSince(mark int) []lexer.Token {
	if mark >= p.pos {
		return nil
	}
	return append([]lexer.Token(nil), p.toks[mark:p.pos]...)
}

func (p *Parser) is(k lexer.Kind) bool { return p.cur().Kind == k }

func (p *Parser) isKeyword(word string) bool {
	t := p.cur()
	return t.Kind == lexer.Keyword && t.Text == word
}

// expect consumes the current token if it has kind k, otherwise records
// a diagnostic and returns the zero Token without advancing.
func (p *Parser) expect(k lexer.Kind) lexer.Token {
	if p.is(k) {
		return p.advance()
	}
	p.errorf(p.cur().Pos, "expected %s, found %s %q", k, p.cur().Kind, p.cur().Text)
	return lexer.Token{Kind: k, Pos: p.cur().Pos}
}

func (p *Parser) expectKeyword(word string) lexer.Token {
	if p.isKeyword(word) {
		return p.advance()
	}
	p.errorf(p.cur().Pos, "expected %q, found %q", word, p.cur().Text)
	return lexer.Token{Kind: lexer.Keyword, Text: word, Pos: p.cur().Pos}
}

// syncTo recovers from a parse error by scanning forward to the next
// statement-terminating `;` (consuming it) or a `}` that balances the
// braces opened since mark (left unconsumed).
func (p *Parser) syncTo(stopAt ...lexer.Kind) {
	depth := 0
	for {
		t := p.cur()
		if t.Kind == lexer.EOF {
			return
		}
		if depth == 0 {
			for _, k := range stopAt {
				if t.Kind == k {
					if k == lexer.Semicolon {
						p.advance()
					}
					return
				}
			}
		}
		switch t.Kind {
		case lexer.LBrace, lexer.LParen, lexer.LBracket:
			depth++
		case lexer.RBrace, lexer.RParen, lexer.RBracket:
			if depth == 0 {
				return
			}
			depth--
		}
		p.advance()
	}
}

// legacyExtensions are identifiers from other compilers' dialects
// (Turbo C memory models, Windows calling conventions) that this
// grammar recognizes positionally only to reject with an "unsupported
// extension" diagnostic instead of a confusing parse error.
var legacyExtensions = map[string]bool{
	"_near": true, "__near": true,
	"_far": true, "__far": true,
	"_huge": true, "__huge": true,
	"_cdecl": true, "__cdecl": true,
	"_stdcall": true, "__stdcall": true,
	"_pascal": true, "__pascal": true,
	"_fastcall": true, "__fastcall": true,
}

// skipLegacyExtensions consumes any run of legacy-dialect qualifier
// identifiers at the current position, emitting one warning per token.
func (p *Parser) skipLegacyExtensions() {
	for p.cur().Kind == lexer.Identifier && legacyExtensions[p.cur().Text] {
		t := p.advance()
		p.diags.Addf(t.Pos, diag.PhaseParser, diag.Warning, "unsupported extension %q ignored", t.Text)
	}
}

// ParseFile parses the whole token stream as one translation unit.
func ParseFile(file string, toks <-chan lexer.Token) (*ast.File, *diag.Bag) {
	p := New(file, toks)
	f := p.parseFile()
	return f, p.diags
}

func (p *Parser) parseFile() *ast.File {
	start := p.cur().Pos
	f := &ast.File{}
	for !p.is(lexer.EOF) {
		mark := p.mark()
		decl := p.parseExternalDecl()
		if decl == nil {
			if p.mark() == mark {
				// no progress: force one token forward to avoid looping forever
				p.advance()
			}
			continue
		}
		f.Decls = append(f.Decls, decl)
	}
	f.Init(start, p.tokensSince(0))
	return f
}
