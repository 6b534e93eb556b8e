package ast

import (
	"fmt"

	"monkey/internal/token"
)

// FunctionDisplayName names a function literal for disassembly and error
// traces: the let-bound name when there is one, else a position tag.
func FunctionDisplayName(fl *FunctionLiteral) string {
	if fl.Name != "" {
		return fl.Name
	}
	return AnonymousFuncName(fl.Token)
}

// AnonymousFuncName returns a stable synthetic name for anonymous functions.
func AnonymousFuncName(tok token.Token) string {
	if tok.Line > 0 && tok.Col > 0 {
		return fmt.Sprintf("<anon@%d:%d>", tok.Line, tok.Col)
	}
	return "<anon>"
}
