package lsp

import (
	"monkey/internal/lexer"
	"monkey/internal/token"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// IdentAt returns the identifier token under pos.
func IdentAt(text string, pos protocol.Position) (token.Token, bool) {
	p, ok := positionToByte(text, pos)
	if !ok {
		return token.Token{}, false
	}

	lx := lexer.New(text)
	for {
		tok := lx.NextToken()
		if tok.Type == token.EOF || tok.Line > p.Line {
			return token.Token{}, false
		}
		if tok.Type != token.IDENT || tok.Line != p.Line {
			continue
		}
		end := tok.Col + max(1, len(tok.Literal))
		if p.Col >= tok.Col && p.Col <= end {
			return tok, true
		}
	}
}
