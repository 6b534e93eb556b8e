package lsp

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// extractPos removes the single '|' marker from text and returns its
// position.
func extractPos(t *testing.T, text string) (string, protocol.Position) {
	t.Helper()
	idx := strings.Index(text, "|")
	if idx < 0 {
		t.Fatalf("no cursor marker")
	}
	before := text[:idx]
	line := strings.Count(before, "\n")
	col := idx - (strings.LastIndex(before, "\n") + 1)
	return before + text[idx+1:], protocol.Position{Line: uint32(line), Character: uint32(utf16Len(before[len(before)-col:]))}
}

func TestAnalyzeParseError(t *testing.T) {
	an := Analyze("let = 5;")
	if len(an.Diagnostics) == 0 {
		t.Fatalf("expected parse diagnostics")
	}
	if an.Symbols != nil {
		t.Fatalf("symbols should be nil after a parse failure")
	}
}

func TestAnalyzeCompileError(t *testing.T) {
	an := Analyze("let a = 1;\nb + a")
	if len(an.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(an.Diagnostics))
	}
	d := an.Diagnostics[0]
	if d.Message != "undefined variable b" {
		t.Fatalf("wrong message: %q", d.Message)
	}
	if d.Range.Line != 2 || d.Range.Col != 1 {
		t.Fatalf("wrong position: %+v", d.Range)
	}
}

func TestToLspDiagnostics(t *testing.T) {
	text := "let s = \"é\"; zz"
	an := Analyze(text)
	got := ToLspDiagnostics(text, an.Diagnostics)
	if len(got) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(got))
	}
	// "é" is two bytes but one UTF-16 unit
	if got[0].Range.Start.Line != 0 || got[0].Range.Start.Character != 13 || got[0].Range.End.Character != 15 {
		t.Fatalf("wrong range: %+v", got[0].Range)
	}
	if got[0].Source == nil || *got[0].Source != "monkey" {
		t.Fatalf("wrong source")
	}
}

func TestHover(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"let add = fn(a, b) { a + b };\nad|d(1, 2)", "global #0"},
		{"let add = fn(a, b) { a + b };\nad|d(1, 2)", "let add = fn(a, b)"},
		{"le|n(\"abc\")", "builtin #0"},
		{"let x = 1;\nlet y = 2;\n|y", "global #1"},
	}

	for _, tt := range tests {
		text, pos := extractPos(t, tt.text)
		s := NewStore()
		doc := s.Set("file:///a.mk", text)
		h := HoverAt(doc, pos)
		if h == nil {
			t.Fatalf("%q: no hover", tt.text)
		}
		mc, ok := h.Contents.(protocol.MarkupContent)
		if !ok {
			t.Fatalf("%q: contents is %T", tt.text, h.Contents)
		}
		if !strings.Contains(mc.Value, tt.want) {
			t.Fatalf("%q: hover %q does not contain %q", tt.text, mc.Value, tt.want)
		}
	}
}

func TestHoverLocalIsEmpty(t *testing.T) {
	text, pos := extractPos(t, "let f = fn(a) { |a };")
	doc := NewStore().Set("file:///a.mk", text)
	if h := HoverAt(doc, pos); h != nil {
		t.Fatalf("expected no hover for a parameter, got %+v", h)
	}
}

func TestDefinition(t *testing.T) {
	text, pos := extractPos(t, "let one = 1;\nlet two = o|ne + one;")
	doc := NewStore().Set("file:///a.mk", text)
	loc := DefinitionAt("file:///a.mk", doc, pos)
	if loc == nil {
		t.Fatalf("no definition")
	}
	if loc.Range.Start.Line != 0 || loc.Range.Start.Character != 4 || loc.Range.End.Character != 7 {
		t.Fatalf("wrong range: %+v", loc.Range)
	}
}

func TestCompletionOrdering(t *testing.T) {
	doc := NewStore().Set("file:///a.mk", "let total = 1;\nlet sum = fn(xs) { 0 };\n")
	items := CompletionItems(doc)

	idx := func(label string) int {
		for i, it := range items {
			if it.Label == label {
				return i
			}
		}
		return -1
	}
	iSum, iTotal, iLen, iLet := idx("sum"), idx("total"), idx("len"), idx("let")
	if iSum == -1 || iTotal == -1 || iLen == -1 || iLet == -1 {
		t.Fatalf("missing completions: sum=%d total=%d len=%d let=%d", iSum, iTotal, iLen, iLet)
	}
	if !(iTotal < iLen && iSum < iLen && iLen < iLet) {
		t.Fatalf("unexpected ordering: sum=%d total=%d len=%d let=%d", iSum, iTotal, iLen, iLet)
	}
	if *items[iSum].Kind != protocol.CompletionItemKindFunction {
		t.Fatalf("sum should complete as a function")
	}
}

func TestDocumentSymbols(t *testing.T) {
	doc := NewStore().Set("file:///a.mk", "let a = 1;\nlet f = fn() { a };\nf();")
	syms := DocumentSymbols(doc)
	if len(syms) != 2 {
		t.Fatalf("expected 2 symbols, got %d", len(syms))
	}
	if syms[0].Name != "a" || syms[0].Kind != protocol.SymbolKindVariable {
		t.Fatalf("wrong first symbol: %+v", syms[0])
	}
	if syms[1].Name != "f" || syms[1].Kind != protocol.SymbolKindFunction || syms[1].Range.Start.Line != 1 {
		t.Fatalf("wrong second symbol: %+v", syms[1])
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	s.Set("u", "1")
	if d, ok := s.Get("u"); !ok || d.Text != "1" || d.Analysis == nil {
		t.Fatalf("get after set failed")
	}
	s.Delete("u")
	if _, ok := s.Get("u"); ok {
		t.Fatalf("document still present after delete")
	}
}
