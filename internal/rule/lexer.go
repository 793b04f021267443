package rule

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenNumber
	tokenLParen
	tokenRParen
	tokenComma
	tokenEOF
	tokenInvalid
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lexer splits rule text into identifier, number and punctuation tokens.
// Identifiers may contain underscores (CROSS_ABOVE, BB_UPPER); numbers may
// carry a decimal point and an optional leading minus.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input, pos: 0}
}

func (l *lexer) next() token {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}

	if l.pos >= len(l.input) {
		return token{kind: tokenEOF, text: "", pos: len(l.input)}
	}

	start := l.pos
	c := l.input[l.pos]

	switch {
	case c == '(':
		l.pos++

		return token{kind: tokenLParen, text: "(", pos: start}
	case c == ')':
		l.pos++

		return token{kind: tokenRParen, text: ")", pos: start}
	case c == ',':
		l.pos++

		return token{kind: tokenComma, text: ",", pos: start}
	case isIdentStart(c):
		for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
			l.pos++
		}

		return token{kind: tokenIdent, text: l.input[start:l.pos], pos: start}
	case isDigit(c) || c == '-' || c == '.':
		l.pos++
		for l.pos < len(l.input) && (isDigit(l.input[l.pos]) || l.input[l.pos] == '.') {
			l.pos++
		}

		return token{kind: tokenNumber, text: l.input[start:l.pos], pos: start}
	default:
		l.pos++

		return token{kind: tokenInvalid, text: l.input[start:l.pos], pos: start}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// upper normalizes keyword and indicator identifiers; the grammar is
// case-insensitive.
func upper(s string) string {
	return strings.ToUpper(s)
}
