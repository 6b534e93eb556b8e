package vm

import (
	"errors"
	"fmt"
	"strings"

	"monkey/internal/code"
)

var (
	ErrStackOverflow   = errors.New("stack overflow")
	ErrFrameOverflow   = errors.New("frame overflow")
	ErrGlobalsOverflow = errors.New("globals overflow")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrWrongArity      = errors.New("wrong number of arguments")
	ErrNotCallable     = errors.New("not callable")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrBadBytecode     = errors.New("malformed bytecode")
)

// RuntimeError aborts Run. Err is the sentinel (or budget error) callers
// match with errors.Is; it is nil for failures reported by builtins.
type RuntimeError struct {
	Op      code.Opcode
	Message string
	Err     error
	Frames  []TraceFrame
}

// TraceFrame is one active call at the time of the error, innermost first.
type TraceFrame struct {
	Function string
	IP       int
}

func (e *RuntimeError) Error() string { return e.Message }

func (e *RuntimeError) Unwrap() error { return e.Err }

func (e *RuntimeError) StackTrace() string {
	var b strings.Builder
	fmt.Fprintf(&b, "error: %s\nstack trace:\n", e.Message)
	for _, f := range e.Frames {
		fmt.Fprintf(&b, "  at %s (ip %04d)\n", f.Function, f.IP)
	}
	return b.String()
}

// stackUnderflow is panicked by pop and recovered in Run.
type stackUnderflow struct{}
