package lexer

import (
	"strings"

	"monkey/internal/token"
)

type Lexer struct {
	input string

	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination

	line int // 1-based
	col  int // 1-based column of current char
}

func New(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0, // readChar() will advance to col=1 for first char
	}
	l.readChar()
	return l
}

func (l *Lexer) NextToken() token.Token {
	for {
		l.skipWhitespace()
		if l.ch == '/' && l.peekChar() == '/' {
			l.skipLineComment()
			continue
		}
		break
	}

	if l.ch == 0 {
		return l.newToken(token.EOF, "", l.line, l.col)
	}

	startLine, startCol := l.line, l.col

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.newToken(token.EQ, "==", startLine, startCol)
		}
		return l.single(token.ASSIGN, startLine, startCol)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.newToken(token.NE, "!=", startLine, startCol)
		}
		return l.single(token.BANG, startLine, startCol)
	case '+':
		return l.single(token.PLUS, startLine, startCol)
	case '-':
		return l.single(token.MINUS, startLine, startCol)
	case '*':
		return l.single(token.STAR, startLine, startCol)
	case '/':
		return l.single(token.SLASH, startLine, startCol)
	case '<':
		return l.single(token.LT, startLine, startCol)
	case '>':
		return l.single(token.GT, startLine, startCol)
	case ',':
		return l.single(token.COMMA, startLine, startCol)
	case ';':
		return l.single(token.SEMICOLON, startLine, startCol)
	case ':':
		return l.single(token.COLON, startLine, startCol)
	case '(':
		return l.single(token.LPAREN, startLine, startCol)
	case ')':
		return l.single(token.RPAREN, startLine, startCol)
	case '{':
		return l.single(token.LBRACE, startLine, startCol)
	case '}':
		return l.single(token.RBRACE, startLine, startCol)
	case '[':
		return l.single(token.LBRACKET, startLine, startCol)
	case ']':
		return l.single(token.RBRACKET, startLine, startCol)
	case '"':
		return l.readStringToken(startLine, startCol)
	}

	if isLetter(l.ch) {
		lit := l.readIdentifier()
		return l.newToken(token.LookupIdent(lit), lit, startLine, startCol)
	}

	if isDigit(l.ch) {
		return l.newToken(token.INT, l.readNumber(), startLine, startCol)
	}

	return l.single(token.ILLEGAL, startLine, startCol)
}

// single emits a one-character token for the current char and advances.
func (l *Lexer) single(t token.Type, line, col int) token.Token {
	tok := l.newToken(t, string(l.ch), line, col)
	l.readChar()
	return tok
}

func (l *Lexer) newToken(t token.Type, lit string, line, col int) token.Token {
	return token.Token{
		Type:    t,
		Literal: lit,
		Line:    line,
		Col:     col,
	}
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}

	l.ch = l.input[l.readPosition]
	l.position = l.readPosition
	l.readPosition++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.readChar()
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() string {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readStringToken(startLine, startCol int) token.Token {
	l.readChar() // move past opening quote

	var b strings.Builder
	for {
		if l.ch == 0 {
			return l.newToken(token.ILLEGAL, "unterminated string", startLine, startCol)
		}
		if l.ch == '"' {
			break
		}
		if l.ch == '\\' {
			switch l.peekChar() {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				// unknown escape: keep the backslash literally
				b.WriteByte(l.ch)
				l.readChar()
				continue
			}
			l.readChar()
			l.readChar()
			continue
		}
		b.WriteByte(l.ch)
		l.readChar()
	}

	l.readChar() // consume closing quote
	return l.newToken(token.STRING, b.String(), startLine, startCol)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
