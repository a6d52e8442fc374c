package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Identifier(t *testing.T) {
	toks := scan("foobar")

	assert.Equal(t, Identifier, toks[0].Kind)
	assert.Equal(t, "foobar", toks[0].Text)
	assert.Equal(t, 1, toks[0].Pos.Line)
	assert.Equal(t, 1, toks[0].Pos.Column)

	assert.Equal(t, EOF, toks[1].Kind)
}

func Test_Keywords(t *testing.T) {
	toks := scan("int return while __int128 restrict")

	var kinds []Kind
	for _, tok := range toks {
		if tok.Kind != Whitespace {
			kinds = append(kinds, tok.Kind)
		}
	}
	assert.Equal(t, []Kind{Keyword, Keyword, Keyword, Keyword, Keyword, EOF}, kinds)
}

func Test_IdentifierNotKeyword(t *testing.T) {
	toks := scan("integer")
	assert.Equal(t, Identifier, toks[0].Kind)
	assert.Equal(t, "integer", toks[0].Text)
}

func Test_IntegerLiteralPlain(t *testing.T) {
	toks := scan("1234")
	assert.Equal(t, IntegerLiteral, toks[0].Kind)
	assert.Equal(t, "1234", toks[0].Text)
}

func Test_IntegerLiteralHexAndSuffix(t *testing.T) {
	toks := scan("0xFFuL")
	assert.Equal(t, IntegerLiteral, toks[0].Kind)
	assert.Equal(t, "0xFFuL", toks[0].Text)
}

func Test_IntegerLiteralOctal(t *testing.T) {
	toks := scan("0755")
	assert.Equal(t, IntegerLiteral, toks[0].Kind)
	assert.Equal(t, "0755", toks[0].Text)
}

func Test_StringLiteral(t *testing.T) {
	toks := scan(`"hello\nworld"`)
	assert.Equal(t, StringLiteral, toks[0].Kind)
	assert.Equal(t, `"hello\nworld"`, toks[0].Text)
}

func Test_StringLiteralUnterminated(t *testing.T) {
	toks := scan("\"oops")
	assert.Equal(t, Invalid, toks[0].Kind)
	assert.NotEmpty(t, toks[0].Diag)
}

func Test_CharLiteral(t *testing.T) {
	toks := scan(`'a'`)
	assert.Equal(t, CharLiteral, toks[0].Kind)
	assert.Equal(t, `'a'`, toks[0].Text)
}

func Test_CharLiteralEscaped(t *testing.T) {
	toks := scan(`'\''`)
	assert.Equal(t, CharLiteral, toks[0].Kind)
	assert.Equal(t, `'\''`, toks[0].Text)
}

func Test_LineComment(t *testing.T) {
	toks := scan("// hi\nx")
	assert.Equal(t, Comment, toks[0].Kind)
	assert.Equal(t, "// hi", toks[0].Text)
	assert.Equal(t, Newline, toks[1].Kind)
	assert.Equal(t, Identifier, toks[2].Kind)
}

func Test_BlockComment(t *testing.T) {
	toks := scan("/* a */")
	assert.Equal(t, Comment, toks[0].Kind)
	assert.Equal(t, "/* a */", toks[0].Text)
}

func Test_DocBlockComment(t *testing.T) {
	toks := scan("/** doc */")
	assert.Equal(t, DocComment, toks[0].Kind)
}

func Test_BlockCommentUnterminated(t *testing.T) {
	toks := scan("/* oops")
	assert.Equal(t, Invalid, toks[0].Kind)
}

func Test_PreprocessorLine(t *testing.T) {
	toks := scan("#define FOO 1\n")
	assert.Equal(t, PreprocessorLine, toks[0].Kind)
	assert.Equal(t, "#define FOO 1", toks[0].Text)
	assert.Equal(t, Newline, toks[1].Kind)
}

func Test_HashNotAtLineStart(t *testing.T) {
	toks := scan("a # b")
	assert.Equal(t, Identifier, toks[0].Kind)
	assert.Equal(t, Hash, toks[2].Kind)
}

func Test_PunctuatorMaximalMunch(t *testing.T) {
	toks := scan("<<=  <<  <=  <")
	var kinds []Kind
	for _, tok := range toks {
		if tok.Kind != Whitespace {
			kinds = append(kinds, tok.Kind)
		}
	}
	assert.Equal(t, []Kind{ShlEq, Shl, LessEq, Less, EOF}, kinds)
}

func Test_Ellipsis(t *testing.T) {
	toks := scan("...")
	assert.Equal(t, Ellipsis, toks[0].Kind)
}

func Test_DotNotEllipsis(t *testing.T) {
	toks := scan("..")
	assert.Equal(t, Dot, toks[0].Kind)
	assert.Equal(t, Dot, toks[1].Kind)
}

func Test_ArrowVsMinus(t *testing.T) {
	toks := scan("a->b - c")
	assert.Equal(t, Arrow, toks[1].Kind)
	var minusSeen bool
	for _, tok := range toks {
		if tok.Kind == Minus {
			minusSeen = true
		}
	}
	assert.True(t, minusSeen)
}

func Test_WhitespaceAndNewlinePreserved(t *testing.T) {
	toks := scan("a \t b\n")

	assert.Equal(t, Identifier, toks[0].Kind)
	assert.Equal(t, Whitespace, toks[1].Kind)
	assert.Equal(t, " \t ", toks[1].Text)
	assert.Equal(t, Identifier, toks[2].Kind)
	assert.Equal(t, Newline, toks[3].Kind)
	assert.Equal(t, EOF, toks[4].Kind)
}

// Test_Reconstructs checks the invariant that concatenating every token's
// Text (including whitespace, newlines and comments) reproduces the input
// byte for byte.
func Test_Reconstructs(t *testing.T) {
	code := "int main(void) {\n    // entry point\n    return 0;\n}\n"
	toks := scan(code)

	var rebuilt string
	for _, tok := range toks {
		rebuilt += tok.Text
	}
	assert.Equal(t, code, rebuilt)
}

func Test_LineAndColumnTracking(t *testing.T) {
	toks := scan("ab\ncd")

	assert.Equal(t, 1, toks[0].Pos.Line)
	assert.Equal(t, 1, toks[0].Pos.Column)

	// toks[1] is the newline
	cd := toks[2]
	assert.Equal(t, Identifier, cd.Kind)
	assert.Equal(t, 2, cd.Pos.Line)
	assert.Equal(t, 1, cd.Pos.Column)
}

func Test_PunctuatorAcrossChunkBoundary(t *testing.T) {
	// 4095 filler bytes push the "<<=" operator so its second and third
	// bytes straddle the lexer's 4096-byte read chunk boundary.
	filler := make([]byte, 4095)
	for i := range filler {
		filler[i] = ' '
	}
	code := string(filler) + "<<="
	toks := scan(code)

	last := toks[len(toks)-2] // before EOF
	assert.Equal(t, ShlEq, last.Kind)
	assert.Equal(t, "<<=", last.Text)
}

func Test_UnexpectedByte(t *testing.T) {
	toks := scan("@")
	assert.Equal(t, Invalid, toks[0].Kind)
	assert.NotEmpty(t, toks[0].Diag)
}
