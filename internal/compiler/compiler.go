package compiler

import (
	"fmt"
	"sort"

	"github.com/tliron/commonlog"

	"monkey/internal/ast"
	"monkey/internal/code"
	"monkey/internal/object"
	"monkey/internal/token"
)

var log = commonlog.GetLogger("monkey.compiler")

const (
	maxConstants = 1<<16 - 1
	maxGlobals   = 1<<16 - 1
	maxLocals    = 1<<8 - 1
	maxArgs      = 1<<8 - 1
	maxFree      = 1<<8 - 1
	maxElements  = 1<<16 - 1
)

// Placeholder jump target, patched once the real target is known.
const placeholder = 9999

type Bytecode struct {
	Instructions code.Instructions
	Constants    []object.Object
}

type EmittedInstruction struct {
	Opcode   code.Opcode
	Position int
}

// compilationScope is one function body being compiled: its instruction
// buffer together with the symbol table of the same lexical scope, so the
// two can only be entered and left as a unit.
type compilationScope struct {
	instructions    code.Instructions
	lastInstruction EmittedInstruction
	prevInstruction EmittedInstruction
	symbols         *SymbolTable
}

type Compiler struct {
	constants []object.Object
	scopes    []*compilationScope
}

func New() *Compiler {
	return NewWithState(NewGlobalSymbolTable(), []object.Object{})
}

// NewWithState continues compiling against an existing global symbol
// table and constant pool, as the REPL does between lines.
func NewWithState(symbols *SymbolTable, constants []object.Object) *Compiler {
	if symbols == nil {
		symbols = NewGlobalSymbolTable()
	}
	main := &compilationScope{
		instructions: code.Instructions{},
		symbols:      symbols,
	}
	return &Compiler{
		constants: constants,
		scopes:    []*compilationScope{main},
	}
}

func (c *Compiler) Bytecode() *Bytecode {
	return &Bytecode{
		Instructions: c.currentInstructions(),
		Constants:    c.constants,
	}
}

// SymbolTable returns the table of the scope currently being compiled.
func (c *Compiler) SymbolTable() *SymbolTable {
	return c.scope().symbols
}

func (c *Compiler) Constants() []object.Object {
	return c.constants
}

func (c *Compiler) Compile(node ast.Node) error {
	switch node := node.(type) {
	case *ast.Program:
		for _, s := range node.Statements {
			if err := c.Compile(s); err != nil {
				return err
			}
		}

	case *ast.BlockStatement:
		for _, s := range node.Statements {
			if err := c.Compile(s); err != nil {
				return err
			}
		}

	case *ast.ExpressionStatement:
		if err := c.Compile(node.Expression); err != nil {
			return err
		}
		c.emit(code.OpPop)

	case *ast.LetStatement:
		symbol := c.scope().symbols.Define(node.Name.Value)
		if err := c.checkSlot(node, symbol); err != nil {
			return err
		}
		if err := c.Compile(node.Value); err != nil {
			return err
		}
		if symbol.Scope == GlobalScope {
			c.emit(code.OpSetGlobal, symbol.Index)
		} else {
			c.emit(code.OpSetLocal, symbol.Index)
		}

	case *ast.ReturnStatement:
		if node.ReturnValue == nil {
			c.emit(code.OpReturn)
			return nil
		}
		if err := c.Compile(node.ReturnValue); err != nil {
			return err
		}
		c.emit(code.OpReturnValue)

	case *ast.Identifier:
		symbol, ok := c.scope().symbols.Resolve(node.Value)
		if !ok {
			return c.errorf(node, "undefined variable %s", node.Value)
		}
		c.loadSymbol(symbol)

	case *ast.IntegerLiteral:
		idx, err := c.addConstant(node, &object.Integer{Value: node.Value})
		if err != nil {
			return err
		}
		c.emit(code.OpConstant, idx)

	case *ast.StringLiteral:
		idx, err := c.addConstant(node, &object.String{Value: node.Value})
		if err != nil {
			return err
		}
		c.emit(code.OpConstant, idx)

	case *ast.Boolean:
		if node.Value {
			c.emit(code.OpTrue)
		} else {
			c.emit(code.OpFalse)
		}

	case *ast.PrefixExpression:
		if err := c.Compile(node.Right); err != nil {
			return err
		}
		switch node.Operator {
		case "!":
			c.emit(code.OpBang)
		case "-":
			c.emit(code.OpMinus)
		default:
			return c.errorf(node, "unknown operator %s", node.Operator)
		}

	case *ast.InfixExpression:
		return c.compileInfix(node)

	case *ast.IfExpression:
		return c.compileIf(node)

	case *ast.ArrayLiteral:
		if len(node.Elements) > maxElements {
			return c.errorf(node, "too many array elements: %d", len(node.Elements))
		}
		for _, el := range node.Elements {
			if err := c.Compile(el); err != nil {
				return err
			}
		}
		c.emit(code.OpArray, len(node.Elements))

	case *ast.HashLiteral:
		if len(node.Pairs)*2 > maxElements {
			return c.errorf(node, "too many hash pairs: %d", len(node.Pairs))
		}
		pairs := make([]ast.HashPair, len(node.Pairs))
		copy(pairs, node.Pairs)
		// source order is not preserved; sorting keeps the bytecode stable
		sort.SliceStable(pairs, func(i, j int) bool {
			return pairs[i].Key.String() < pairs[j].Key.String()
		})
		for _, p := range pairs {
			if err := c.Compile(p.Key); err != nil {
				return err
			}
			if err := c.Compile(p.Value); err != nil {
				return err
			}
		}
		c.emit(code.OpHash, len(pairs)*2)

	case *ast.IndexExpression:
		if err := c.Compile(node.Left); err != nil {
			return err
		}
		if err := c.Compile(node.Index); err != nil {
			return err
		}
		c.emit(code.OpIndex)

	case *ast.FunctionLiteral:
		return c.compileFunction(node)

	case *ast.CallExpression:
		if len(node.Arguments) > maxArgs {
			return c.errorf(node, "too many arguments: %d", len(node.Arguments))
		}
		if err := c.Compile(node.Function); err != nil {
			return err
		}
		for _, a := range node.Arguments {
			if err := c.Compile(a); err != nil {
				return err
			}
		}
		c.emit(code.OpCall, len(node.Arguments))

	default:
		return c.errorf(node, "compile not supported for node: %T", node)
	}

	return nil
}

func (c *Compiler) compileInfix(node *ast.InfixExpression) error {
	if node.Operator == "<" {
		if err := c.Compile(node.Right); err != nil {
			return err
		}
		if err := c.Compile(node.Left); err != nil {
			return err
		}
		c.emit(code.OpGreaterThan)
		return nil
	}

	if err := c.Compile(node.Left); err != nil {
		return err
	}
	if err := c.Compile(node.Right); err != nil {
		return err
	}

	switch node.Operator {
	case "+":
		c.emit(code.OpAdd)
	case "-":
		c.emit(code.OpSub)
	case "*":
		c.emit(code.OpMul)
	case "/":
		c.emit(code.OpDiv)
	case ">":
		c.emit(code.OpGreaterThan)
	case "==":
		c.emit(code.OpEqual)
	case "!=":
		c.emit(code.OpNotEqual)
	default:
		return c.errorf(node, "unknown operator %s", node.Operator)
	}
	return nil
}

func (c *Compiler) compileIf(node *ast.IfExpression) error {
	if err := c.Compile(node.Condition); err != nil {
		return err
	}

	jntPos := c.emit(code.OpJumpNotTruthy, placeholder)

	if err := c.compileBranch(node.Consequence); err != nil {
		return err
	}

	jmpPos := c.emit(code.OpJump, placeholder)
	c.changeOperand(jntPos, len(c.currentInstructions()))

	if node.Alternative == nil {
		c.emit(code.OpNull)
	} else if err := c.compileBranch(node.Alternative); err != nil {
		return err
	}

	c.changeOperand(jmpPos, len(c.currentInstructions()))
	return nil
}

// compileBranch compiles an if branch so that it leaves exactly one value
// on the stack: its last expression, or null when it ends in a statement.
func (c *Compiler) compileBranch(block *ast.BlockStatement) error {
	start := len(c.currentInstructions())
	if err := c.Compile(block); err != nil {
		return err
	}
	if len(c.currentInstructions()) > start && c.lastInstructionIs(code.OpPop) {
		c.removeLastPop()
		return nil
	}
	c.emit(code.OpNull)
	return nil
}

func (c *Compiler) compileFunction(node *ast.FunctionLiteral) error {
	if len(node.Parameters) > maxArgs {
		return c.errorf(node, "too many parameters: %d", len(node.Parameters))
	}

	c.enterScope()

	if node.Name != "" {
		c.scope().symbols.DefineFunctionName(node.Name)
	}
	for _, p := range node.Parameters {
		c.scope().symbols.Define(p.Value)
	}

	if err := c.Compile(node.Body); err != nil {
		c.leaveScope()
		return err
	}

	if c.lastInstructionIs(code.OpPop) {
		c.replaceLastPopWithReturn()
	}
	if !c.lastInstructionIs(code.OpReturnValue) {
		c.emit(code.OpReturn)
	}

	left := c.leaveScope()
	freeSymbols := left.symbols.FreeSymbols
	numLocals := left.symbols.NumDefinitions()

	if numLocals > maxLocals {
		return c.errorf(node, "too many local bindings: %d", numLocals)
	}
	if len(freeSymbols) > maxFree {
		return c.errorf(node, "too many free variables: %d", len(freeSymbols))
	}

	// Each free symbol was recorded as seen from the enclosing scope, so
	// loading it here may itself be a free load one level further out.
	for _, s := range freeSymbols {
		c.loadSymbol(s)
	}

	fn := &object.CompiledFunction{
		Instructions:  left.instructions,
		NumLocals:     numLocals,
		NumParameters: len(node.Parameters),
		Name:          ast.FunctionDisplayName(node),
	}
	idx, err := c.addConstant(node, fn)
	if err != nil {
		return err
	}
	c.emit(code.OpClosure, idx, len(freeSymbols))

	log.Debugf("compiled %s: params=%d locals=%d free=%d size=%d",
		fn.Name, fn.NumParameters, fn.NumLocals, len(freeSymbols), len(fn.Instructions))
	return nil
}

func (c *Compiler) loadSymbol(s Symbol) {
	switch s.Scope {
	case GlobalScope:
		c.emit(code.OpGetGlobal, s.Index)
	case LocalScope:
		c.emit(code.OpGetLocal, s.Index)
	case BuiltinScope:
		c.emit(code.OpGetBuiltin, s.Index)
	case FreeScope:
		c.emit(code.OpGetFree, s.Index)
	case FunctionScope:
		c.emit(code.OpCurrentClosure)
	}
}

func (c *Compiler) checkSlot(node ast.Node, s Symbol) error {
	switch {
	case s.Scope == GlobalScope && s.Index > maxGlobals:
		return c.errorf(node, "too many global bindings: %d", s.Index+1)
	case s.Scope == LocalScope && s.Index > maxLocals:
		return c.errorf(node, "too many local bindings: %d", s.Index+1)
	}
	return nil
}

func (c *Compiler) addConstant(node ast.Node, obj object.Object) (int, error) {
	if len(c.constants) > maxConstants {
		return 0, c.errorf(node, "too many constants: %d", len(c.constants)+1)
	}
	c.constants = append(c.constants, obj)
	return len(c.constants) - 1, nil
}

func (c *Compiler) emit(op code.Opcode, operands ...int) int {
	ins := code.Make(op, operands...)
	pos := c.addInstruction(ins)
	c.setLastInstruction(op, pos)
	return pos
}

func (c *Compiler) addInstruction(ins []byte) int {
	s := c.scope()
	pos := len(s.instructions)
	s.instructions = append(s.instructions, ins...)
	return pos
}

func (c *Compiler) setLastInstruction(op code.Opcode, pos int) {
	s := c.scope()
	s.prevInstruction = s.lastInstruction
	s.lastInstruction = EmittedInstruction{Opcode: op, Position: pos}
}

func (c *Compiler) lastInstructionIs(op code.Opcode) bool {
	s := c.scope()
	if len(s.instructions) == 0 {
		return false
	}
	return s.lastInstruction.Opcode == op
}

func (c *Compiler) removeLastPop() {
	s := c.scope()
	s.instructions = s.instructions[:s.lastInstruction.Position]
	s.lastInstruction = s.prevInstruction
}

func (c *Compiler) replaceLastPopWithReturn() {
	s := c.scope()
	pos := s.lastInstruction.Position
	c.replaceInstruction(pos, code.Make(code.OpReturnValue))
	s.lastInstruction.Opcode = code.OpReturnValue
}

// replaceInstruction overwrites bytes in place; the new encoding must have
// the same length as the one it replaces.
func (c *Compiler) replaceInstruction(pos int, newInstruction []byte) {
	ins := c.scope().instructions
	for i := 0; i < len(newInstruction); i++ {
		ins[pos+i] = newInstruction[i]
	}
}

func (c *Compiler) changeOperand(opPos int, operand int) {
	op := code.Opcode(c.currentInstructions()[opPos])
	c.replaceInstruction(opPos, code.Make(op, operand))
}

func (c *Compiler) scope() *compilationScope {
	return c.scopes[len(c.scopes)-1]
}

func (c *Compiler) currentInstructions() code.Instructions {
	return c.scope().instructions
}

func (c *Compiler) enterScope() {
	c.scopes = append(c.scopes, &compilationScope{
		instructions: code.Instructions{},
		symbols:      NewEnclosedSymbolTable(c.scope().symbols),
	})
}

func (c *Compiler) leaveScope() *compilationScope {
	if len(c.scopes) == 1 {
		panic("compiler: leaveScope without matching enterScope")
	}
	s := c.scope()
	c.scopes = c.scopes[:len(c.scopes)-1]
	return s
}

func (c *Compiler) errorf(node ast.Node, format string, args ...any) error {
	var tok token.Token
	if node != nil {
		tok = node.Pos()
	}
	return &Error{Token: tok, Message: fmt.Sprintf(format, args...)}
}
