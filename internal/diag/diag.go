package diag

import (
	"fmt"
	"strings"

	"monkey/internal/token"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

const (
	CodeParse   = "MP0001"
	CodeCompile = "MC0001"
)

type Range struct {
	Line   int // 1-based
	Col    int // 1-based
	Length int // best-effort; can be 1 if unknown
}

type Diagnostic struct {
	Code     string
	Message  string
	Severity Severity
	Range    Range
}

// At builds an error diagnostic spanning tok.
func At(tok token.Token, code, msg string) Diagnostic {
	length := len([]rune(tok.Literal))
	if length == 0 {
		length = 1
	}
	return Diagnostic{
		Code:     code,
		Message:  msg,
		Severity: SeverityError,
		Range:    Range{Line: tok.Line, Col: tok.Col, Length: length},
	}
}

func (d Diagnostic) Format(path string) string {
	if d.Code != "" {
		return fmt.Sprintf("%s:%d:%d: %s %s: %s", path, d.Range.Line, d.Range.Col, d.Severity.String(), d.Code, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", path, d.Range.Line, d.Range.Col, d.Severity.String(), d.Message)
}

// FormatAll renders one line per diagnostic.
func FormatAll(path string, ds []Diagnostic) string {
	var b strings.Builder
	for _, d := range ds {
		b.WriteString(d.Format(path))
		b.WriteByte('\n')
	}
	return b.String()
}
