// Package lexer tokenizes Anima source text.
package lexer

import "fmt"

// TokenType identifies a lexical class.
type TokenType string

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	IDENT  TokenType = "IDENT"
	INT    TokenType = "INT"
	FLOAT  TokenType = "FLOAT"
	STRING TokenType = "STRING"

	ASSIGN   TokenType = "="
	PLUS     TokenType = "+"
	MINUS    TokenType = "-"
	STAR     TokenType = "*"
	SLASH    TokenType = "/"
	PERCENT  TokenType = "%"
	BANG     TokenType = "!"
	TILDE    TokenType = "~"
	LT       TokenType = "<"
	GT       TokenType = ">"
	LTE      TokenType = "<="
	GTE      TokenType = ">="
	EQ       TokenType = "=="
	NEQ      TokenType = "!="
	AND      TokenType = "&&"
	OR       TokenType = "||"
	INCR     TokenType = "++"
	DECR     TokenType = "--"
	DOT      TokenType = "."
	SAFEDOT  TokenType = "?."
	ARROW    TokenType = "->"
	COMMA    TokenType = ","
	COLON    TokenType = ":"
	SEMI     TokenType = ";"
	LPAREN   TokenType = "("
	RPAREN   TokenType = ")"
	LBRACKET TokenType = "["
	RBRACKET TokenType = "]"
	LBRACE   TokenType = "{"
	RBRACE   TokenType = "}"

	VAL       TokenType = "val"
	VAR       TokenType = "var"
	FUN       TokenType = "fun"
	ENTITY    TokenType = "entity"
	AGENT     TokenType = "agent"
	INVARIANT TokenType = "invariant"
	CONTEXT   TokenType = "context"
	TOOLS     TokenType = "tools"
	BOUNDS    TokenType = "boundaries"
	CAN       TokenType = "can"
	CANNOT    TokenType = "cannot"
	ON        TokenType = "on"
	TEAM      TokenType = "team"
	DELEGATE  TokenType = "delegate"
	SPAWN     TokenType = "spawn"
	PARALLEL  TokenType = "parallel"
	EMIT      TokenType = "emit"
	IF        TokenType = "if"
	ELSE      TokenType = "else"
	WHEN      TokenType = "when"
	IS        TokenType = "is"
	FOR       TokenType = "for"
	IN        TokenType = "in"
	WHILE     TokenType = "while"
	TRY       TokenType = "try"
	CATCH     TokenType = "catch"
	FINALLY   TokenType = "finally"
	RETURN    TokenType = "return"
	BREAK     TokenType = "break"
	CONTINUE  TokenType = "continue"
	TRUE      TokenType = "true"
	FALSE     TokenType = "false"
	NULL      TokenType = "null"
	MUTABLE   TokenType = "mutable"
)

var keywords = map[string]TokenType{
	"val": VAL, "var": VAR, "fun": FUN, "entity": ENTITY, "agent": AGENT,
	"invariant": INVARIANT, "context": CONTEXT, "tools": TOOLS,
	"boundaries": BOUNDS, "can": CAN, "cannot": CANNOT, "on": ON, "team": TEAM,
	"delegate": DELEGATE, "spawn": SPAWN, "parallel": PARALLEL, "emit": EMIT,
	"if": IF, "else": ELSE, "when": WHEN, "is": IS, "for": FOR, "in": IN,
	"while": WHILE, "try": TRY, "catch": CATCH, "finally": FINALLY,
	"return": RETURN, "break": BREAK, "continue": CONTINUE,
	"true": TRUE, "false": FALSE, "null": NULL, "mutable": MUTABLE,
}

// Token is one lexeme with its source position. For STRING tokens Literal is
// the unescaped body with `${...}` interpolation markers preserved for the
// parser to split.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Col     int
	Off     int // byte offset of the token's first character
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Type, t.Literal, t.Line, t.Col)
}

// Lexer walks source text byte by byte, tracking line and column.
type Lexer struct {
	src  string
	pos  int
	line int
	col  int
}

// New creates a Lexer over src.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.peekAt(1) == '/':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		case c == '/' && l.peekAt(1) == '*':
			l.advance()
			l.advance()
			for l.pos < len(l.src) {
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return
		}
	}
}

// Next returns the next token, consuming it.
func (l *Lexer) Next() Token {
	l.skipSpaceAndComments()
	line, col, off := l.line, l.col, l.pos
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Line: line, Col: col, Off: off}
	}

	c := l.peek()
	switch {
	case isLetter(c):
		start := l.pos
		for l.pos < len(l.src) && (isLetter(l.peek()) || isDigit(l.peek())) {
			l.advance()
		}
		word := l.src[start:l.pos]
		if kw, ok := keywords[word]; ok {
			return Token{Type: kw, Literal: word, Line: line, Col: col, Off: off}
		}
		return Token{Type: IDENT, Literal: word, Line: line, Col: col, Off: off}

	case isDigit(c):
		return l.lexNumber(line, col)

	case c == '"':
		return l.lexString(line, col)
	}

	two := func(t TokenType) Token {
		l.advance()
		l.advance()
		return Token{Type: t, Literal: string(t), Line: line, Col: col, Off: off}
	}
	one := func(t TokenType) Token {
		l.advance()
		return Token{Type: t, Literal: string(t), Line: line, Col: col, Off: off}
	}

	switch c {
	case '=':
		if l.peekAt(1) == '=' {
			return two(EQ)
		}
		return one(ASSIGN)
	case '+':
		if l.peekAt(1) == '+' {
			return two(INCR)
		}
		return one(PLUS)
	case '-':
		if l.peekAt(1) == '-' {
			return two(DECR)
		}
		if l.peekAt(1) == '>' {
			return two(ARROW)
		}
		return one(MINUS)
	case '*':
		return one(STAR)
	case '/':
		return one(SLASH)
	case '%':
		return one(PERCENT)
	case '!':
		if l.peekAt(1) == '=' {
			return two(NEQ)
		}
		return one(BANG)
	case '~':
		return one(TILDE)
	case '<':
		if l.peekAt(1) == '=' {
			return two(LTE)
		}
		return one(LT)
	case '>':
		if l.peekAt(1) == '=' {
			return two(GTE)
		}
		return one(GT)
	case '&':
		if l.peekAt(1) == '&' {
			return two(AND)
		}
	case '|':
		if l.peekAt(1) == '|' {
			return two(OR)
		}
	case '?':
		if l.peekAt(1) == '.' {
			return two(SAFEDOT)
		}
	case '.':
		return one(DOT)
	case ',':
		return one(COMMA)
	case ':':
		return one(COLON)
	case ';':
		return one(SEMI)
	case '(':
		return one(LPAREN)
	case ')':
		return one(RPAREN)
	case '[':
		return one(LBRACKET)
	case ']':
		return one(RBRACKET)
	case '{':
		return one(LBRACE)
	case '}':
		return one(RBRACE)
	}

	l.advance()
	return Token{Type: ILLEGAL, Literal: string(c), Line: line, Col: col, Off: off}
}

// lexNumber reads an integer or float literal. Underscores group digits and
// are stripped from the literal's value but retained in the raw text.
func (l *Lexer) lexNumber(line, col int) Token {
	off := l.pos
	start := l.pos
	isFloat := false
	for l.pos < len(l.src) {
		c := l.peek()
		if isDigit(c) || c == '_' {
			l.advance()
			continue
		}
		if c == '.' && !isFloat && isDigit(l.peekAt(1)) {
			isFloat = true
			l.advance()
			continue
		}
		break
	}
	raw := l.src[start:l.pos]
	if isFloat {
		return Token{Type: FLOAT, Literal: raw, Line: line, Col: col, Off: off}
	}
	return Token{Type: INT, Literal: raw, Line: line, Col: col, Off: off}
}

// lexString reads a double-quoted string, processing escapes but leaving
// `${...}` sequences intact (balanced braces, including nested lambdas).
func (l *Lexer) lexString(line, col int) Token {
	off := l.pos
	l.advance() // opening quote
	var out []byte
	for l.pos < len(l.src) {
		c := l.peek()
		if c == '"' {
			l.advance()
			return Token{Type: STRING, Literal: string(out), Line: line, Col: col, Off: off}
		}
		if c == '\\' {
			l.advance()
			if l.pos >= len(l.src) {
				break
			}
			e := l.advance()
			switch e {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			case '$':
				out = append(out, '$')
			default:
				out = append(out, e)
			}
			continue
		}
		if c == '$' && l.peekAt(1) == '{' {
			out = append(out, l.advance(), l.advance()) // "${"
			depth := 1
			for l.pos < len(l.src) && depth > 0 {
				b := l.advance()
				if b == '{' {
					depth++
				} else if b == '}' {
					depth--
				}
				out = append(out, b)
			}
			continue
		}
		out = append(out, l.advance())
	}
	return Token{Type: ILLEGAL, Literal: string(out), Line: line, Col: col, Off: off}
}

// Slice returns the verbatim source between two byte offsets; the parser uses
// it to capture raw boundary rule text.
func (l *Lexer) Slice(start, end int) string {
	if start < 0 || end > len(l.src) || start > end {
		return ""
	}
	return l.src[start:end]
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
