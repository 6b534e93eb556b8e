package compiler

import (
	"fmt"

	"monkey/internal/diag"
	"monkey/internal/token"
)

// Error is a compile error anchored at the token of the offending node.
// Compilation stops at the first one.
type Error struct {
	Token   token.Token
	Message string
}

func (e *Error) Error() string {
	if e.Token.Line > 0 {
		return fmt.Sprintf("%d:%d: %s", e.Token.Line, e.Token.Col, e.Message)
	}
	return e.Message
}

func (e *Error) Diagnostic() diag.Diagnostic {
	return diag.At(e.Token, diag.CodeCompile, e.Message)
}
