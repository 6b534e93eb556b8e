package lsp

import (
	"errors"

	"github.com/tliron/commonlog"

	"monkey/internal/ast"
	"monkey/internal/compiler"
	"monkey/internal/diag"
	"monkey/internal/lexer"
	"monkey/internal/parser"
	"monkey/internal/token"
)

var log = commonlog.GetLogger("monkey.lsp")

// Binding is a top-level let.
type Binding struct {
	Name     string
	Token    token.Token // the bound identifier
	Function bool
	Params   []string
}

type Analysis struct {
	Program     *ast.Program
	Diagnostics []diag.Diagnostic
	// Symbols is the global table after compiling; nil when parsing failed.
	Symbols  *compiler.SymbolTable
	Bindings []Binding
}

// Analyze parses text and, when it parses cleanly, compiles it so that
// compile errors and resolved globals are available.
func Analyze(text string) *Analysis {
	p := parser.New(lexer.New(text))
	prog := p.ParseProgram()

	an := &Analysis{Program: prog, Bindings: collectBindings(prog)}
	an.Diagnostics = append(an.Diagnostics, p.Diagnostics()...)
	if len(an.Diagnostics) > 0 {
		return an
	}

	c := compiler.New()
	if err := c.Compile(prog); err != nil {
		var cerr *compiler.Error
		if errors.As(err, &cerr) {
			an.Diagnostics = append(an.Diagnostics, cerr.Diagnostic())
		} else {
			log.Errorf("compile: %s", err)
		}
	}
	an.Symbols = c.SymbolTable()
	return an
}

func collectBindings(prog *ast.Program) []Binding {
	var out []Binding
	for _, stmt := range prog.Statements {
		let, ok := stmt.(*ast.LetStatement)
		if !ok || let.Name == nil {
			continue
		}
		b := Binding{Name: let.Name.Value, Token: let.Name.Token}
		if fn, ok := let.Value.(*ast.FunctionLiteral); ok {
			b.Function = true
			for _, p := range fn.Parameters {
				b.Params = append(b.Params, p.Value)
			}
		}
		out = append(out, b)
	}
	return out
}

// Binding returns the last top-level let of name, which is the one later
// code sees.
func (an *Analysis) Binding(name string) (Binding, bool) {
	for i := len(an.Bindings) - 1; i >= 0; i-- {
		if an.Bindings[i].Name == name {
			return an.Bindings[i], true
		}
	}
	return Binding{}, false
}
