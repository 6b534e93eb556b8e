package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/tliron/commonlog"

	"monkey/internal/ast"
	"monkey/internal/compiler"
	"monkey/internal/lexer"
	"monkey/internal/object"
	"monkey/internal/parser"
	"monkey/internal/vm"
)

const (
	prompt1 = "monkey> "
	prompt2 = "....... "
)

var log = commonlog.GetLogger("monkey.repl")

type Options struct {
	VM          vm.Options
	HistoryFile string
}

// Session keeps the symbol table, constant pool and globals alive across
// evaluations so later lines see earlier bindings.
type Session struct {
	symbols   *compiler.SymbolTable
	constants []object.Object
	globals   []object.Object
	opts      vm.Options
}

func NewSession(opts vm.Options) *Session {
	size := opts.GlobalsSize
	if size <= 0 {
		size = vm.GlobalsSize
	}
	return &Session{
		symbols:   compiler.NewGlobalSymbolTable(),
		constants: []object.Object{},
		globals:   make([]object.Object, size),
		opts:      opts,
	}
}

// ParseError carries every parser message for one input.
type ParseError struct {
	Messages []string
}

func (e *ParseError) Error() string {
	return strings.Join(e.Messages, "\n")
}

// Eval runs src against the session state. The returned object is nil
// when the input does not end in an expression.
func (s *Session) Eval(src string) (object.Object, error) {
	p := parser.New(lexer.New(src))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, &ParseError{Messages: errs}
	}

	c := compiler.NewWithState(s.symbols, s.constants)
	if err := c.Compile(program); err != nil {
		return nil, err
	}
	s.constants = c.Constants()

	m := vm.NewWithOptions(c.Bytecode(), s.opts)
	m.SetGlobals(s.globals)
	if err := m.Run(); err != nil {
		return nil, err
	}
	log.Debugf("evaluated %d statements, %d constants in pool", len(program.Statements), len(s.constants))

	if !endsInValue(program) {
		return nil, nil
	}
	return m.LastPoppedStackElem(), nil
}

func endsInValue(program *ast.Program) bool {
	if len(program.Statements) == 0 {
		return false
	}
	switch program.Statements[len(program.Statements)-1].(type) {
	case *ast.ExpressionStatement, *ast.ReturnStatement:
		return true
	}
	return false
}

// Start runs a line-oriented session over in, printing to out. Input is
// buffered until braces, brackets and parens balance.
func Start(in io.Reader, out io.Writer, opts Options) {
	scanner := bufio.NewScanner(in)
	session := NewSession(opts.VM)

	fmt.Fprint(out, "Monkey REPL (Ctrl+D to exit)\n")

	var buf strings.Builder
	var bal balance
	for {
		if buf.Len() == 0 {
			fmt.Fprint(out, prompt1)
		} else {
			fmt.Fprint(out, prompt2)
		}

		if !scanner.Scan() {
			fmt.Fprint(out, "\n")
			return
		}

		if done := feed(session, out, &buf, &bal, scanner.Text()); done {
			return
		}
	}
}

// Run is the interactive terminal front end with line editing and
// history.
func Run(out io.Writer, opts Options) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      prompt1,
		HistoryFile: opts.HistoryFile,
		Stdout:      out,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	session := NewSession(opts.VM)
	fmt.Fprint(out, "Monkey REPL (Ctrl+D to exit)\n")

	var buf strings.Builder
	var bal balance
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if buf.Len() == 0 {
				return nil
			}
			buf.Reset()
			bal = balance{}
			rl.SetPrompt(prompt1)
			continue
		}
		if err != nil { // io.EOF on Ctrl-D
			return nil
		}

		if done := feed(session, out, &buf, &bal, line); done {
			return nil
		}
		if buf.Len() == 0 {
			rl.SetPrompt(prompt1)
		} else {
			rl.SetPrompt(prompt2)
		}
	}
}

// feed appends one input line and evaluates the buffer once it is
// complete. It reports whether the user asked to leave.
func feed(s *Session, out io.Writer, buf *strings.Builder, bal *balance, line string) bool {
	trim := strings.TrimSpace(line)
	if buf.Len() == 0 && (trim == "exit" || trim == "quit") {
		return true
	}
	if buf.Len() == 0 && trim == "" {
		return false
	}

	buf.WriteString(line)
	buf.WriteString("\n")
	bal.update(line)
	if !bal.complete() {
		return false
	}

	src := buf.String()
	buf.Reset()
	*bal = balance{}

	result, err := s.Eval(src)
	if err != nil {
		printError(out, err)
		return false
	}
	if result != nil {
		fmt.Fprintln(out, result.Inspect())
	}
	return false
}

func printError(out io.Writer, err error) {
	var perr *ParseError
	var cerr *compiler.Error
	var rerr *vm.RuntimeError
	switch {
	case errors.As(err, &perr):
		for _, msg := range perr.Messages {
			fmt.Fprintf(out, "parse error: %s\n", msg)
		}
	case errors.As(err, &cerr):
		fmt.Fprintf(out, "compile error: %s\n", cerr)
	case errors.As(err, &rerr):
		fmt.Fprintf(out, "runtime error: %s\n", rerr)
	default:
		fmt.Fprintf(out, "error: %s\n", err)
	}
}

type balance struct {
	depth    int
	inString bool
	escaped  bool
}

func (b *balance) complete() bool {
	return b.depth <= 0 && !b.inString
}

func (b *balance) update(line string) {
	for i := 0; i < len(line); i++ {
		ch := line[i]

		if b.inString {
			switch {
			case b.escaped:
				b.escaped = false
			case ch == '\\':
				b.escaped = true
			case ch == '"':
				b.inString = false
			}
			continue
		}

		if ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return
		}

		switch ch {
		case '"':
			b.inString = true
		case '{', '(', '[':
			b.depth++
		case '}', ')', ']':
			if b.depth > 0 {
				b.depth--
			}
		}
	}
}
