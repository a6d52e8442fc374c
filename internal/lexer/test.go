package lexer

import "zcc/internal/source"

// scan drains a Lexer over code into a slice, for use by tests.
func scan(code string) []Token {
	l := New(source.NewStringSource("<test>", code))
	var toks []Token
	for tok := range l.Tokens() {
		toks = append(toks, tok)
	}
	return toks
}
