package parser

import (
	"testing"

	"monkey/internal/ast"
	"monkey/internal/diag"
	"monkey/internal/lexer"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(lexer.New(input))
	prog := p.ParseProgram()
	if len(p.Errors()) > 0 {
		for _, e := range p.Errors() {
			t.Error(e)
		}
		t.Fatalf("parser had %d errors", len(p.Errors()))
	}
	return prog
}

func TestParseLetStatements(t *testing.T) {
	prog := parse(t, `let x = 5;
let y = true;
let foobar = y;`)

	if len(prog.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(prog.Statements))
	}
	names := []string{"x", "y", "foobar"}
	for i, name := range names {
		ls, ok := prog.Statements[i].(*ast.LetStatement)
		if !ok {
			t.Fatalf("stmt %d: expected *ast.LetStatement, got %T", i, prog.Statements[i])
		}
		if ls.Name.Value != name {
			t.Fatalf("stmt %d: expected name %q, got %q", i, name, ls.Name.Value)
		}
	}
}

func TestParseReturnStatement(t *testing.T) {
	prog := parse(t, `return 5; return x + y;`)
	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Statements))
	}
	for i, s := range prog.Statements {
		if _, ok := s.(*ast.ReturnStatement); !ok {
			t.Fatalf("stmt %d: expected *ast.ReturnStatement, got %T", i, s)
		}
	}
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"-a * b", "((-a) * b)"},
		{"!-a", "(!(-a))"},
		{"a + b * c + d / e - f", "(((a + (b * c)) + (d / e)) - f)"},
		{"5 < 4 != 3 > 4", "((5 < 4) != (3 > 4))"},
		{"(5 + 5) * 2", "((5 + 5) * 2)"},
		{"a * [1, 2, 3, 4][b * c] * d", "((a * ([1, 2, 3, 4][(b * c)])) * d)"},
		{"add(a * b[2], b[1], 2 * [1, 2][1])", "add((a * (b[2])), (b[1]), (2 * ([1, 2][1])))"},
	}

	for _, tt := range tests {
		prog := parse(t, tt.input)
		if got := prog.String(); got != tt.want {
			t.Fatalf("%q: expected %q, got %q", tt.input, tt.want, got)
		}
	}
}

func TestParseIfElse(t *testing.T) {
	prog := parse(t, `if (x < y) { x } else { y }`)
	es := prog.Statements[0].(*ast.ExpressionStatement)
	ifx, ok := es.Expression.(*ast.IfExpression)
	if !ok {
		t.Fatalf("expected *ast.IfExpression, got %T", es.Expression)
	}
	if ifx.Alternative == nil || len(ifx.Alternative.Statements) != 1 {
		t.Fatalf("expected one-statement alternative, got %+v", ifx.Alternative)
	}
}

func TestLetBoundFunctionGetsName(t *testing.T) {
	prog := parse(t, `let myFunction = fn(a, b) { a + b };`)
	ls := prog.Statements[0].(*ast.LetStatement)
	fl, ok := ls.Value.(*ast.FunctionLiteral)
	if !ok {
		t.Fatalf("expected *ast.FunctionLiteral, got %T", ls.Value)
	}
	if fl.Name != "myFunction" {
		t.Fatalf("expected name myFunction, got %q", fl.Name)
	}
	if len(fl.Parameters) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fl.Parameters))
	}
}

func TestParseHashLiteral(t *testing.T) {
	prog := parse(t, `{"one": 1, "two": 2, 3: 4 * 2}`)
	es := prog.Statements[0].(*ast.ExpressionStatement)
	hl, ok := es.Expression.(*ast.HashLiteral)
	if !ok {
		t.Fatalf("expected *ast.HashLiteral, got %T", es.Expression)
	}
	if len(hl.Pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(hl.Pairs))
	}

	prog = parse(t, `{}`)
	hl = prog.Statements[0].(*ast.ExpressionStatement).Expression.(*ast.HashLiteral)
	if len(hl.Pairs) != 0 {
		t.Fatalf("expected empty hash, got %d pairs", len(hl.Pairs))
	}
}

func TestParseErrorsCarryDiagnostics(t *testing.T) {
	p := New(lexer.New("let = 5;"))
	p.ParseProgram()

	if len(p.Errors()) == 0 {
		t.Fatal("expected parse errors")
	}
	if p.Errors()[0] != "expected next token to be IDENT, got = instead" {
		t.Fatalf("unexpected error: %q", p.Errors()[0])
	}
	d := p.Diagnostics()[0]
	if d.Code != diag.CodeParse || d.Range.Line != 1 || d.Range.Col != 5 {
		t.Fatalf("unexpected diagnostic: %+v", d)
	}
}
