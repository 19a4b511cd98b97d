package dsl

import (
	"strconv"
)

// TokenKind classifies lexical tokens.
type TokenKind int

const (
	EOF TokenKind = iota
	IDENT
	NUMBER
	STRING
	LBRACE   // {
	RBRACE   // }
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	COMMA    // ,
	ASSIGN   // =
)

func (k TokenKind) String() string {
	switch k {
	case EOF:
		return "end of input"
	case IDENT:
		return "identifier"
	case NUMBER:
		return "number"
	case STRING:
		return "string"
	case LBRACE:
		return "'{'"
	case RBRACE:
		return "'}'"
	case LPAREN:
		return "'('"
	case RPAREN:
		return "')'"
	case LBRACKET:
		return "'['"
	case RBRACKET:
		return "']'"
	case COMMA:
		return "','"
	case ASSIGN:
		return "'='"
	default:
		return "unknown"
	}
}

// Token is a lexical token. Text holds the identifier name, the unquoted
// string contents, or the raw number lexeme.
type Token struct {
	Kind TokenKind
	Text string
	Num  float64
	Pos  Pos
}

func (t Token) describe() string {
	switch t.Kind {
	case IDENT, NUMBER:
		return strconv.Quote(t.Text)
	case STRING:
		return "string " + strconv.Quote(t.Text)
	}
	return t.Kind.String()
}

var punct = map[byte]TokenKind{
	'{': LBRACE,
	'}': RBRACE,
	'(': LPAREN,
	')': RPAREN,
	'[': LBRACKET,
	']': RBRACKET,
	',': COMMA,
	'=': ASSIGN,
}

// lexer scans DSL source into tokens.
type lexer struct {
	src  string
	cur  int
	line int
	col  int
}

// Tokenize scans the whole source. The returned slice always ends with an
// EOF token.
func Tokenize(src string) ([]Token, error) {
	l := &lexer{src: src, line: 1, col: 1}
	var toks []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, nil
		}
	}
}

func (l *lexer) pos() Pos {
	return Pos{Offset: l.cur, Line: l.line, Col: l.col}
}

func (l *lexer) peekAt(n int) byte {
	if l.cur+n >= len(l.src) {
		return 0
	}
	return l.src[l.cur+n]
}

func (l *lexer) advance() byte {
	c := l.src[l.cur]
	l.cur++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *lexer) skipSpaceAndComments() {
	for l.cur < len(l.src) {
		c := l.src[l.cur]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '#' || (c == '/' && l.peekAt(1) == '/'):
			for l.cur < len(l.src) && l.src[l.cur] != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *lexer) next() (Token, error) {
	l.skipSpaceAndComments()
	start := l.pos()
	if l.cur >= len(l.src) {
		return Token{Kind: EOF, Pos: start}, nil
	}

	c := l.src[l.cur]
	switch {
	case isIdentStart(c):
		for l.cur < len(l.src) && isIdentChar(l.src[l.cur]) {
			l.advance()
		}
		return Token{Kind: IDENT, Text: l.src[start.Offset:l.cur], Pos: start}, nil

	case isDigit(c) || c == '.' || ((c == '-' || c == '+') && (isDigit(l.peekAt(1)) || l.peekAt(1) == '.')):
		return l.scanNumber(start)

	case c == '"':
		return l.scanString(start)
	}

	if kind, ok := punct[c]; ok {
		l.advance()
		return Token{Kind: kind, Text: string(c), Pos: start}, nil
	}
	return Token{}, syntaxErrorf(start, "unexpected character %q", c)
}

func (l *lexer) scanNumber(start Pos) (Token, error) {
	if c := l.src[l.cur]; c == '-' || c == '+' {
		l.advance()
	}
	digits := 0
	for l.cur < len(l.src) && isDigit(l.src[l.cur]) {
		l.advance()
		digits++
	}
	if l.cur < len(l.src) && l.src[l.cur] == '.' {
		l.advance()
		for l.cur < len(l.src) && isDigit(l.src[l.cur]) {
			l.advance()
			digits++
		}
	}
	if digits == 0 {
		return Token{}, syntaxErrorf(start, "malformed number")
	}
	if c := l.peekAt(0); c == 'e' || c == 'E' {
		n := 1
		if s := l.peekAt(1); s == '+' || s == '-' {
			n = 2
		}
		if isDigit(l.peekAt(n)) {
			for i := 0; i < n; i++ {
				l.advance()
			}
			for l.cur < len(l.src) && isDigit(l.src[l.cur]) {
				l.advance()
			}
		}
	}
	text := l.src[start.Offset:l.cur]
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, syntaxErrorf(start, "malformed number %q", text)
	}
	return Token{Kind: NUMBER, Text: text, Num: v, Pos: start}, nil
}

func (l *lexer) scanString(start Pos) (Token, error) {
	l.advance() // opening quote
	for {
		if l.cur >= len(l.src) || l.src[l.cur] == '\n' {
			return Token{}, syntaxErrorf(start, "unterminated string")
		}
		c := l.advance()
		if c == '\\' && l.cur < len(l.src) {
			l.advance()
			continue
		}
		if c == '"' {
			break
		}
	}
	raw := l.src[start.Offset:l.cur]
	s, err := strconv.Unquote(raw)
	if err != nil {
		return Token{}, syntaxErrorf(start, "invalid string literal %s", raw)
	}
	return Token{Kind: STRING, Text: s, Pos: start}, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
