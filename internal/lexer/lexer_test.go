package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenize(src string) []Token {
	l := New(src)
	var toks []Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == EOF || tok.Type == ILLEGAL {
			return toks
		}
	}
}

func types(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestOperatorsAndKeywords(t *testing.T) {
	toks := tokenize(`val x = 1 ~ 0.9`)
	assert.Equal(t, []TokenType{VAL, IDENT, ASSIGN, INT, TILDE, FLOAT, EOF}, types(toks))
}

func TestTwoCharOperators(t *testing.T) {
	tests := []struct {
		src  string
		want TokenType
	}{
		{"==", EQ},
		{"!=", NEQ},
		{"<=", LTE},
		{">=", GTE},
		{"&&", AND},
		{"||", OR},
		{"++", INCR},
		{"--", DECR},
		{"?.", SAFEDOT},
		{"->", ARROW},
	}
	for _, tt := range tests {
		toks := tokenize(tt.src)
		require.Len(t, toks, 2, "source %q", tt.src)
		assert.Equal(t, tt.want, toks[0].Type, "source %q", tt.src)
	}
}

func TestNumberDotMember(t *testing.T) {
	// A dot only continues a number when a digit follows, so `5.confidence`
	// is a member access, not a malformed float.
	toks := tokenize(`5.confidence`)
	assert.Equal(t, []TokenType{INT, DOT, IDENT, EOF}, types(toks))

	toks = tokenize(`3.14`)
	assert.Equal(t, []TokenType{FLOAT, EOF}, types(toks))
	assert.Equal(t, "3.14", toks[0].Literal)
}

func TestStringEscapes(t *testing.T) {
	toks := tokenize(`"a\"b\n"`)
	require.Equal(t, STRING, toks[0].Type)
	assert.Equal(t, "a\"b\n", toks[0].Literal)
}

func TestStringInterpolationMarkerPreserved(t *testing.T) {
	toks := tokenize(`"hi ${name}!"`)
	require.Equal(t, STRING, toks[0].Type)
	assert.Equal(t, "hi ${name}!", toks[0].Literal)
}

func TestCommentsAreSkipped(t *testing.T) {
	toks := tokenize("// line comment\nval x")
	assert.Equal(t, []TokenType{VAL, IDENT, EOF}, types(toks))
	assert.Equal(t, 2, toks[0].Line)
}

func TestPositions(t *testing.T) {
	toks := tokenize("val x =\n  42")
	require.Equal(t, INT, toks[3].Type)
	assert.Equal(t, 2, toks[3].Line)
	assert.Equal(t, 3, toks[3].Col)
}

func TestSliceReturnsVerbatimSource(t *testing.T) {
	src := `can { read public sources }`
	l := New(src)
	open := l.Next() // can
	require.Equal(t, CAN, open.Type)
	lbrace := l.Next()
	require.Equal(t, LBRACE, lbrace.Type)
	var rbrace Token
	for tok := l.Next(); tok.Type != EOF; tok = l.Next() {
		rbrace = tok
	}
	require.Equal(t, RBRACE, rbrace.Type)
	assert.Equal(t, " read public sources ", l.Slice(lbrace.Off+1, rbrace.Off))
	assert.Equal(t, "", l.Slice(5, 2))
}

func TestKeywordsVersusIdentifiers(t *testing.T) {
	toks := tokenize(`spawn spawned delegate delegated`)
	assert.Equal(t, []TokenType{SPAWN, IDENT, DELEGATE, IDENT, EOF}, types(toks))
}
