package lsp

import (
	"monkey/internal/diag"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ToLspDiagnostics converts diagnostics for text. Columns are converted
// from bytes to UTF-16 code units.
func ToLspDiagnostics(text string, ds []diag.Diagnostic) []protocol.Diagnostic {
	lines := splitLines(text)
	out := make([]protocol.Diagnostic, 0, len(ds))
	for _, d := range ds {
		var lineText string
		if d.Range.Line > 0 && d.Range.Line <= len(lines) {
			lineText = lines[d.Range.Line-1]
		}
		line := uint32(0)
		if d.Range.Line > 0 {
			line = uint32(d.Range.Line - 1)
		}
		start := protocol.Position{Line: line, Character: byteColToUTF16(lineText, d.Range.Col)}
		end := protocol.Position{Line: line, Character: byteColToUTF16(lineText, d.Range.Col+max(1, d.Range.Length))}
		if end.Character <= start.Character {
			end.Character = start.Character + 1
		}

		severity := protocol.DiagnosticSeverityError
		switch d.Severity {
		case diag.SeverityWarning:
			severity = protocol.DiagnosticSeverityWarning
		case diag.SeverityInfo:
			severity = protocol.DiagnosticSeverityInformation
		}

		pd := protocol.Diagnostic{
			Range:    protocol.Range{Start: start, End: end},
			Severity: &severity,
			Source:   ptrString("monkey"),
			Message:  d.Message,
		}
		if d.Code != "" {
			code := protocol.IntegerOrString{Value: d.Code}
			pd.Code = &code
		}
		out = append(out, pd)
	}
	return out
}

func ptrString(s string) *string { return &s }
