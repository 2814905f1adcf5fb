// Package scanner implements a reusable tokenizer that converts shyll source
// text into a stream of token.Token values, as described in spec.md §4.1.
//
// Some of the scanner's structure (an Init/Scan split so a Scanner value can
// be reused, and a byte-at-a-time advance/peek cursor) is adapted from
// github.com/mna/nenuphar/lang/scanner, simplified to shyll's flat,
// byte-oriented, single-line-counter source model (shyll has no file set or
// rune-level position tracking).
package scanner

import (
	"github.com/Shylie/shyll/lang/token"
)

// Scanner is a forward-only cursor over a source buffer. The zero Scanner
// must be initialized with Init before use. Calling Scan past the End token
// continues to return End.
type Scanner struct {
	src     string
	start   int
	current int
	line    int
}

// Init (re-)initializes s to scan src from the beginning.
func (s *Scanner) Init(src string) {
	s.src = src
	s.start = 0
	s.current = 0
	s.line = 1
}

// New returns a Scanner ready to tokenize src.
func New(src string) *Scanner {
	s := &Scanner{}
	s.Init(src)
	return s
}

// Scan returns the next token in the source.
func (s *Scanner) Scan() token.Token {
	hadWhitespace := s.skipWhitespace()

	s.start = s.current
	if s.isAtEnd() {
		return s.makeToken(token.End, hadWhitespace)
	}

	c := s.advance()

	switch {
	case isDigit(c):
		return s.number(hadWhitespace)
	case isAlpha(c):
		return s.identifier(hadWhitespace)
	}

	switch c {
	case '-':
		if s.match('>') {
			return s.makeToken(token.Load, hadWhitespace)
		}
		if s.match('-') {
			return s.makeToken(token.Delete, hadWhitespace)
		}
	case '+':
		if s.match('+') {
			return s.makeToken(token.Create, hadWhitespace)
		}
	case '<':
		if s.match('-') {
			return s.makeToken(token.Store, hadWhitespace)
		}
	case ':':
		return s.makeToken(token.FunctionHeader, hadWhitespace)
	case '@':
		return s.makeToken(token.FunctionCall, hadWhitespace)
	case '"':
		return s.string(hadWhitespace)
	}

	return s.errorToken("Unexpected character '"+string(c)+"'", hadWhitespace)
}

func (s *Scanner) isAtEnd() bool { return s.current >= len(s.src) }

func (s *Scanner) advance() byte {
	c := s.src[s.current]
	s.current++
	return c
}

func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return 0
	}
	return s.src[s.current]
}

func (s *Scanner) peekAt(offset int) byte {
	i := s.current + offset
	if i < 0 || i >= len(s.src) {
		return 0
	}
	return s.src[i]
}

func (s *Scanner) match(expected byte) bool {
	if s.isAtEnd() || s.src[s.current] != expected {
		return false
	}
	s.current++
	return true
}

// skipWhitespace consumes whitespace and line comments, reporting whether
// any was consumed.
func (s *Scanner) skipWhitespace() bool {
	had := false
	for {
		switch s.peek() {
		case ' ', '\r', '\t':
			had = true
			s.advance()
		case '\n':
			had = true
			s.line++
			s.advance()
		case '#':
			had = true
			for s.peek() != '\n' && !s.isAtEnd() {
				s.advance()
			}
		default:
			return had
		}
	}
}

func (s *Scanner) number(hadWhitespace bool) token.Token {
	for isDigit(s.peek()) {
		s.advance()
	}

	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
		return s.makeToken(token.Double, hadWhitespace)
	}

	return s.makeToken(token.Long, hadWhitespace)
}

func (s *Scanner) identifier(hadWhitespace bool) token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	lit := s.src[s.start:s.current]
	return token.Token{
		Type:          token.Lookup(lit),
		Lexeme:        lit,
		Line:          s.line,
		HadWhitespace: hadWhitespace,
	}
}

func (s *Scanner) string(hadWhitespace bool) token.Token {
	for s.peek() != '"' && s.peek() != '\n' && !s.isAtEnd() {
		s.advance()
	}

	if s.peek() != '"' {
		return s.errorToken("Unterminated string.", hadWhitespace)
	}

	s.advance() // closing quote
	return s.makeToken(token.String, hadWhitespace)
}

func (s *Scanner) makeToken(kind token.Kind, hadWhitespace bool) token.Token {
	return token.Token{
		Type:          kind,
		Lexeme:        s.src[s.start:s.current],
		Line:          s.line,
		HadWhitespace: hadWhitespace,
	}
}

func (s *Scanner) errorToken(message string, hadWhitespace bool) token.Token {
	return token.Token{
		Type:          token.Error,
		Lexeme:        message,
		Line:          s.line,
		HadWhitespace: hadWhitespace,
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}
