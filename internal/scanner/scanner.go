// Package scanner turns Lox source text into a stream of tokens, one at a
// time, on demand. It knows nothing about grammar; the compiler drives it.
package scanner

import "github.com/estevaofon/lox-vm/internal/token"

type Scanner struct {
	input        string
	position     int // start of the char currently under examination
	readPosition int // one past position
	ch           byte
	line         int
}

func New(input string) *Scanner {
	s := &Scanner{input: input, line: 1}
	s.readChar()
	return s
}

func (s *Scanner) readChar() {
	if s.readPosition >= len(s.input) {
		s.ch = 0
	} else {
		s.ch = s.input[s.readPosition]
	}
	s.position = s.readPosition
	s.readPosition++
}

func (s *Scanner) peekChar() byte {
	if s.readPosition >= len(s.input) {
		return 0
	}
	return s.input[s.readPosition]
}

// NextToken scans and returns the next token, skipping whitespace and
// line comments first.
func (s *Scanner) NextToken() token.Token {
	s.skipWhitespaceAndComments()

	line := s.line

	if s.ch == 0 {
		return token.Token{Type: token.EOF, Lexeme: "", Line: line}
	}

	switch {
	case isLetter(s.ch):
		lexeme := s.readIdentifier()
		return token.Token{Type: token.LookupIdent(lexeme), Lexeme: lexeme, Line: line}
	case isDigit(s.ch):
		lexeme := s.readNumber()
		return token.Token{Type: token.NUMBER, Lexeme: lexeme, Line: line}
	case s.ch == '"':
		lexeme, ok := s.readString()
		if !ok {
			return token.Token{Type: token.ERROR, Lexeme: "Unterminated string.", Line: line}
		}
		return token.Token{Type: token.STRING, Lexeme: lexeme, Line: line}
	}

	ch := s.ch
	var tok token.Token
	switch ch {
	case '(':
		tok = token.Token{Type: token.LEFT_PAREN, Lexeme: "(", Line: line}
	case ')':
		tok = token.Token{Type: token.RIGHT_PAREN, Lexeme: ")", Line: line}
	case '{':
		tok = token.Token{Type: token.LEFT_BRACE, Lexeme: "{", Line: line}
	case '}':
		tok = token.Token{Type: token.RIGHT_BRACE, Lexeme: "}", Line: line}
	case ',':
		tok = token.Token{Type: token.COMMA, Lexeme: ",", Line: line}
	case '.':
		tok = token.Token{Type: token.DOT, Lexeme: ".", Line: line}
	case '-':
		tok = token.Token{Type: token.MINUS, Lexeme: "-", Line: line}
	case '+':
		tok = token.Token{Type: token.PLUS, Lexeme: "+", Line: line}
	case ';':
		tok = token.Token{Type: token.SEMICOLON, Lexeme: ";", Line: line}
	case '*':
		tok = token.Token{Type: token.STAR, Lexeme: "*", Line: line}
	case '/':
		tok = token.Token{Type: token.SLASH, Lexeme: "/", Line: line}
	case '!':
		if s.peekChar() == '=' {
			s.readChar()
			tok = token.Token{Type: token.BANG_EQUAL, Lexeme: "!=", Line: line}
		} else {
			tok = token.Token{Type: token.BANG, Lexeme: "!", Line: line}
		}
	case '=':
		if s.peekChar() == '=' {
			s.readChar()
			tok = token.Token{Type: token.EQUAL_EQUAL, Lexeme: "==", Line: line}
		} else {
			tok = token.Token{Type: token.EQUAL, Lexeme: "=", Line: line}
		}
	case '<':
		if s.peekChar() == '=' {
			s.readChar()
			tok = token.Token{Type: token.LESS_EQUAL, Lexeme: "<=", Line: line}
		} else {
			tok = token.Token{Type: token.LESS, Lexeme: "<", Line: line}
		}
	case '>':
		if s.peekChar() == '=' {
			s.readChar()
			tok = token.Token{Type: token.GREATER_EQUAL, Lexeme: ">=", Line: line}
		} else {
			tok = token.Token{Type: token.GREATER, Lexeme: ">", Line: line}
		}
	default:
		tok = token.Token{Type: token.ERROR, Lexeme: "Unexpected character.", Line: line}
	}
	s.readChar()
	return tok
}

func (s *Scanner) skipWhitespaceAndComments() {
	for {
		switch s.ch {
		case ' ', '\t', '\r':
			s.readChar()
		case '\n':
			s.line++
			s.readChar()
		case '/':
			if s.peekChar() == '/' {
				for s.ch != '\n' && s.ch != 0 {
					s.readChar()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) readIdentifier() string {
	start := s.position
	for isLetter(s.ch) || isDigit(s.ch) {
		s.readChar()
	}
	return s.input[start:s.position]
}

func (s *Scanner) readNumber() string {
	start := s.position
	for isDigit(s.ch) {
		s.readChar()
	}
	if s.ch == '.' && isDigit(s.peekChar()) {
		s.readChar()
		for isDigit(s.ch) {
			s.readChar()
		}
	}
	return s.input[start:s.position]
}

// readString returns the string's content, excluding the surrounding
// quotes. Lox has no escape sequences; a newline inside a string is
// ordinary content and still advances the line counter for later tokens.
func (s *Scanner) readString() (string, bool) {
	s.readChar() // opening quote
	start := s.position
	for s.ch != '"' {
		if s.ch == 0 {
			return "", false
		}
		if s.ch == '\n' {
			s.line++
		}
		s.readChar()
	}
	content := s.input[start:s.position]
	s.readChar() // closing quote
	return content, true
}

func isLetter(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
