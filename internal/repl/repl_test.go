package repl

import (
	"errors"
	"strings"
	"testing"

	"monkey/internal/compiler"
	"monkey/internal/object"
	"monkey/internal/vm"
)

func runSession(t *testing.T, input string) string {
	t.Helper()
	var out strings.Builder
	Start(strings.NewReader(input), &out, Options{})
	return out.String()
}

func TestStartKeepsBindingsAcrossLines(t *testing.T) {
	out := runSession(t, "let a = 5;\na * 2\n")
	if !strings.Contains(out, "10\n") {
		t.Fatalf("expected 10 in output, got %q", out)
	}
}

func TestStartMultiLineFunction(t *testing.T) {
	input := "let add = fn(a, b) {\n  a + b\n};\nadd(2, 3)\n"
	out := runSession(t, input)
	if !strings.Contains(out, prompt2) {
		t.Fatalf("expected continuation prompt, got %q", out)
	}
	if !strings.Contains(out, "5\n") {
		t.Fatalf("expected 5 in output, got %q", out)
	}
}

func TestStartContinuesAfterErrors(t *testing.T) {
	input := "let = 1;\nnope\n1 / 0\n\"ok\"\n"
	out := runSession(t, input)
	for _, want := range []string{"parse error:", "compile error:", "undefined variable nope", "runtime error:", "ok\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}

func TestStartSilentForLet(t *testing.T) {
	out := runSession(t, "let x = 42;\n")
	if strings.Contains(out, "42") {
		t.Fatalf("let should not print a value, got %q", out)
	}
}

func TestStartExit(t *testing.T) {
	out := runSession(t, "exit\n99\n")
	if strings.Contains(out, "99") {
		t.Fatalf("input after exit was evaluated: %q", out)
	}
}

func TestSessionEval(t *testing.T) {
	s := NewSession(vm.Options{})

	if _, err := s.Eval(`let greet = fn(name) { "hi " + name };`); err != nil {
		t.Fatalf("eval let: %v", err)
	}
	got, err := s.Eval(`greet("bob")`)
	if err != nil {
		t.Fatalf("eval call: %v", err)
	}
	str, ok := got.(*object.String)
	if !ok || str.Value != "hi bob" {
		t.Fatalf("wrong result: %#v", got)
	}

	_, err = s.Eval(`let x = ;`)
	var perr *ParseError
	if !errors.As(err, &perr) || len(perr.Messages) == 0 {
		t.Fatalf("expected ParseError, got %v", err)
	}

	_, err = s.Eval(`missing`)
	var cerr *compiler.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected compiler.Error, got %v", err)
	}

	_, err = s.Eval(`-"a"`)
	var rerr *vm.RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}

	// the session still works after failures
	got, err = s.Eval(`len(greet("x"))`)
	if err != nil {
		t.Fatalf("eval after errors: %v", err)
	}
	if n, ok := got.(*object.Integer); !ok || n.Value != 4 {
		t.Fatalf("wrong result: %#v", got)
	}
}

func TestBalance(t *testing.T) {
	tests := []struct {
		lines    []string
		complete bool
	}{
		{[]string{"1 + 2"}, true},
		{[]string{"fn(x) {"}, false},
		{[]string{"fn(x) {", "x }"}, true},
		{[]string{`"{"`}, true},
		{[]string{`"open`}, false},
		{[]string{"[1, // ]"}, false},
		{[]string{`"a\"{"`}, true},
	}

	for _, tt := range tests {
		var b balance
		for _, line := range tt.lines {
			b.update(line)
		}
		if b.complete() != tt.complete {
			t.Fatalf("%q: complete=%v, want %v", tt.lines, b.complete(), tt.complete)
		}
	}
}
