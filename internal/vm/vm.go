package vm

import (
	"fmt"

	"github.com/tliron/commonlog"

	"monkey/internal/code"
	"monkey/internal/compiler"
	"monkey/internal/limits"
	"monkey/internal/object"
)

const StackSize = 2048
const GlobalsSize = 65536
const MaxFrames = 1024

var log = commonlog.GetLogger("monkey.vm")

var (
	True  = &object.Boolean{Value: true}
	False = &object.Boolean{Value: false}
	Null  = &object.Null{}
)

// Options sizes one VM. Zero fields take the package defaults; a zero
// MaxMemory disables allocation accounting.
type Options struct {
	StackSize   int
	MaxFrames   int
	GlobalsSize int
	MaxMemory   int64
	Trace       bool
}

func DefaultOptions() Options {
	return Options{
		StackSize:   StackSize,
		MaxFrames:   MaxFrames,
		GlobalsSize: GlobalsSize,
	}
}

func (o Options) withDefaults() Options {
	if o.StackSize <= 0 {
		o.StackSize = StackSize
	}
	if o.MaxFrames <= 0 {
		o.MaxFrames = MaxFrames
	}
	if o.GlobalsSize <= 0 {
		o.GlobalsSize = GlobalsSize
	}
	return o
}

type VM struct {
	constants []object.Object

	stack []object.Object
	sp    int // next free slot; the top of the stack is stack[sp-1]

	globals    []object.Object
	lastPopped object.Object

	frames      []*Frame
	framesIndex int

	op     code.Opcode // opcode being executed, for error reports
	trace  bool
	budget *limits.Budget
}

func New(bc *compiler.Bytecode) *VM {
	return NewWithOptions(bc, DefaultOptions())
}

func NewWithOptions(bc *compiler.Bytecode, opts Options) *VM {
	opts = opts.withDefaults()

	mainFn := &object.CompiledFunction{Instructions: bc.Instructions, Name: "<main>"}
	mainClosure := &object.Closure{Fn: mainFn}
	mainFrame := NewFrame(mainClosure, 0)

	frames := make([]*Frame, opts.MaxFrames)
	frames[0] = mainFrame

	m := &VM{
		constants:   bc.Constants,
		stack:       make([]object.Object, opts.StackSize),
		globals:     make([]object.Object, opts.GlobalsSize),
		frames:      frames,
		framesIndex: 1,
		trace:       opts.Trace,
	}
	if opts.MaxMemory > 0 {
		m.budget = limits.NewBudget(opts.MaxMemory)
	}
	return m
}

// NewWithGlobalsStore runs bc against an existing globals array, so
// bindings made by an earlier VM stay visible.
func NewWithGlobalsStore(bc *compiler.Bytecode, s []object.Object) *VM {
	m := New(bc)
	m.SetGlobals(s)
	return m
}

// NewGlobalsStore allocates a globals array of the default size.
func NewGlobalsStore() []object.Object {
	return make([]object.Object, GlobalsSize)
}

func (m *VM) SetGlobals(globals []object.Object) {
	if globals != nil {
		m.globals = globals
	}
}

func (m *VM) SetTrace(on bool) {
	m.trace = on
}

func (m *VM) SetMaxMemory(max int64) {
	m.budget = limits.NewBudget(max)
}

// LastPoppedStackElem is the value of the last top-level expression
// statement, or the value of a top-level return. It is nil
// when Run popped nothing.
func (m *VM) LastPoppedStackElem() object.Object {
	return m.lastPopped
}

// StackTop is the live top of the operand stack, nil when empty.
func (m *VM) StackTop() object.Object {
	if m.sp == 0 {
		return nil
	}
	return m.stack[m.sp-1]
}

func (m *VM) currentFrame() *Frame {
	return m.frames[m.framesIndex-1]
}

func (m *VM) pushFrame(f *Frame) error {
	if m.framesIndex >= len(m.frames) {
		return m.fail(ErrFrameOverflow, "frame overflow: more than %d nested calls", len(m.frames))
	}
	m.frames[m.framesIndex] = f
	m.framesIndex++
	return nil
}

func (m *VM) popFrame() *Frame {
	m.framesIndex--
	f := m.frames[m.framesIndex]
	m.frames[m.framesIndex] = nil
	return f
}

func (m *VM) push(o object.Object) error {
	if m.sp >= len(m.stack) {
		return m.fail(ErrStackOverflow, "stack overflow")
	}
	m.stack[m.sp] = o
	m.sp++
	return nil
}

func (m *VM) pop() object.Object {
	if m.sp <= 0 {
		panic(stackUnderflow{})
	}
	m.sp--
	o := m.stack[m.sp]
	m.stack[m.sp] = nil
	return o
}

func (m *VM) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(stackUnderflow); !ok {
				panic(r)
			}
			err = m.fail(ErrBadBytecode, "stack underflow")
		}
	}()

	for m.currentFrame().ip < len(m.currentFrame().Instructions())-1 {
		frame := m.currentFrame()
		frame.ip++

		ip := frame.ip
		ins := frame.Instructions()
		op := code.Opcode(ins[ip])
		m.op = op

		if m.trace {
			m.traceInstruction(frame, ins, ip)
		}

		switch op {
		case code.OpConstant:
			idx := int(code.ReadUint16(ins[ip+1:]))
			frame.ip += 2
			if idx >= len(m.constants) {
				return m.fail(ErrBadBytecode, "constant index out of range: %d", idx)
			}
			if err := m.push(m.constants[idx]); err != nil {
				return err
			}

		case code.OpAdd, code.OpSub, code.OpMul, code.OpDiv:
			if err := m.executeBinaryOperation(op); err != nil {
				return err
			}

		case code.OpEqual, code.OpNotEqual, code.OpGreaterThan:
			if err := m.executeComparison(op); err != nil {
				return err
			}

		case code.OpBang:
			if err := m.executeBangOperator(); err != nil {
				return err
			}

		case code.OpMinus:
			if err := m.executeMinusOperator(); err != nil {
				return err
			}

		case code.OpTrue:
			if err := m.push(True); err != nil {
				return err
			}

		case code.OpFalse:
			if err := m.push(False); err != nil {
				return err
			}

		case code.OpNull:
			if err := m.push(Null); err != nil {
				return err
			}

		case code.OpPop:
			popped := m.pop()
			if m.framesIndex == 1 {
				m.lastPopped = popped
			}

		case code.OpJump:
			pos := int(code.ReadUint16(ins[ip+1:]))
			frame.ip = pos - 1

		case code.OpJumpNotTruthy:
			pos := int(code.ReadUint16(ins[ip+1:]))
			frame.ip += 2

			condition := m.pop()
			if !isTruthy(condition) {
				frame.ip = pos - 1
			}

		case code.OpSetGlobal:
			globalIndex := int(code.ReadUint16(ins[ip+1:]))
			frame.ip += 2
			if globalIndex >= len(m.globals) {
				return m.fail(ErrGlobalsOverflow, "global slot %d exceeds capacity %d", globalIndex, len(m.globals))
			}
			m.globals[globalIndex] = m.pop()

		case code.OpGetGlobal:
			globalIndex := int(code.ReadUint16(ins[ip+1:]))
			frame.ip += 2
			if globalIndex >= len(m.globals) {
				return m.fail(ErrGlobalsOverflow, "global slot %d exceeds capacity %d", globalIndex, len(m.globals))
			}
			if err := m.push(orNull(m.globals[globalIndex])); err != nil {
				return err
			}

		case code.OpSetLocal:
			localIndex := int(code.ReadUint8(ins[ip+1:]))
			frame.ip += 1
			if localIndex >= frame.cl.Fn.NumLocals {
				return m.fail(ErrBadBytecode, "local slot %d out of range in %s", localIndex, frame.cl.Fn.Name)
			}
			m.stack[frame.basePointer+localIndex] = m.pop()

		case code.OpGetLocal:
			localIndex := int(code.ReadUint8(ins[ip+1:]))
			frame.ip += 1
			if localIndex >= frame.cl.Fn.NumLocals {
				return m.fail(ErrBadBytecode, "local slot %d out of range in %s", localIndex, frame.cl.Fn.Name)
			}
			if err := m.push(orNull(m.stack[frame.basePointer+localIndex])); err != nil {
				return err
			}

		case code.OpGetBuiltin:
			builtinIndex := int(code.ReadUint8(ins[ip+1:]))
			frame.ip += 1
			if builtinIndex >= len(object.Builtins) {
				return m.fail(ErrBadBytecode, "builtin index out of range: %d", builtinIndex)
			}
			if err := m.push(&object.Builtin{Name: object.Builtins[builtinIndex].Name}); err != nil {
				return err
			}

		case code.OpArray:
			numElements := int(code.ReadUint16(ins[ip+1:]))
			frame.ip += 2
			if numElements > m.sp {
				panic(stackUnderflow{})
			}

			array := m.buildArray(m.sp-numElements, m.sp)
			m.sp = m.sp - numElements
			if err := m.charge(array); err != nil {
				return err
			}
			if err := m.push(array); err != nil {
				return err
			}

		case code.OpHash:
			numElements := int(code.ReadUint16(ins[ip+1:]))
			frame.ip += 2
			if numElements > m.sp {
				panic(stackUnderflow{})
			}

			hash, err := m.buildHash(m.sp-numElements, m.sp)
			if err != nil {
				return err
			}
			m.sp = m.sp - numElements
			if err := m.charge(hash); err != nil {
				return err
			}
			if err := m.push(hash); err != nil {
				return err
			}

		case code.OpIndex:
			index := m.pop()
			left := m.pop()
			if err := m.executeIndexExpression(left, index); err != nil {
				return err
			}

		case code.OpCall:
			numArgs := int(code.ReadUint8(ins[ip+1:]))
			frame.ip += 1
			if err := m.executeCall(numArgs); err != nil {
				return err
			}

		case code.OpReturnValue:
			returnValue := m.pop()
			if m.framesIndex == 1 {
				m.lastPopped = returnValue
				frame.ip = len(ins) - 1
				continue
			}

			f := m.popFrame()
			m.sp = f.basePointer - 1
			if err := m.push(returnValue); err != nil {
				return err
			}

		case code.OpReturn:
			if m.framesIndex == 1 {
				m.lastPopped = Null
				frame.ip = len(ins) - 1
				continue
			}

			f := m.popFrame()
			m.sp = f.basePointer - 1
			if err := m.push(Null); err != nil {
				return err
			}

		case code.OpClosure:
			constIndex := int(code.ReadUint16(ins[ip+1:]))
			numFree := int(code.ReadUint8(ins[ip+3:]))
			frame.ip += 3
			if err := m.pushClosure(constIndex, numFree); err != nil {
				return err
			}

		case code.OpGetFree:
			freeIndex := int(code.ReadUint8(ins[ip+1:]))
			frame.ip += 1
			free := frame.cl.Free
			if freeIndex >= len(free) {
				return m.fail(ErrBadBytecode, "free variable index out of range: %d", freeIndex)
			}
			if err := m.push(free[freeIndex]); err != nil {
				return err
			}

		case code.OpCurrentClosure:
			if err := m.push(frame.cl); err != nil {
				return err
			}

		default:
			return m.fail(ErrBadBytecode, "unknown opcode %d at %04d", op, ip)
		}
	}

	if m.framesIndex > 1 {
		return m.fail(ErrBadBytecode, "%s ended without returning", m.currentFrame().cl.Fn.Name)
	}
	return nil
}

func (m *VM) executeBinaryOperation(op code.Opcode) error {
	right := m.pop()
	left := m.pop()

	leftType := left.Type()
	rightType := right.Type()

	switch {
	case leftType == object.INTEGER_OBJ && rightType == object.INTEGER_OBJ:
		return m.executeBinaryIntegerOperation(op, left, right)
	case leftType == object.STRING_OBJ && rightType == object.STRING_OBJ:
		return m.executeBinaryStringOperation(op, left, right)
	default:
		return m.fail(ErrTypeMismatch, "unsupported types for binary operation %s: %s %s", op, leftType, rightType)
	}
}

func (m *VM) executeBinaryIntegerOperation(op code.Opcode, left, right object.Object) error {
	leftValue := left.(*object.Integer).Value
	rightValue := right.(*object.Integer).Value

	var result int64
	switch op {
	case code.OpAdd:
		result = leftValue + rightValue
	case code.OpSub:
		result = leftValue - rightValue
	case code.OpMul:
		result = leftValue * rightValue
	case code.OpDiv:
		if rightValue == 0 {
			return m.fail(ErrDivisionByZero, "division by zero")
		}
		result = leftValue / rightValue
	default:
		return m.fail(ErrTypeMismatch, "unknown integer operator: %s", op)
	}

	return m.push(&object.Integer{Value: result})
}

func (m *VM) executeBinaryStringOperation(op code.Opcode, left, right object.Object) error {
	if op != code.OpAdd {
		return m.fail(ErrTypeMismatch, "unknown string operator: %s", op)
	}

	value := left.(*object.String).Value + right.(*object.String).Value
	s := &object.String{Value: value}
	if err := m.charge(s); err != nil {
		return err
	}
	return m.push(s)
}

func (m *VM) executeComparison(op code.Opcode) error {
	right := m.pop()
	left := m.pop()

	if left.Type() == object.INTEGER_OBJ && right.Type() == object.INTEGER_OBJ {
		return m.executeIntegerComparison(op, left, right)
	}

	if left.Type() == object.BOOLEAN_OBJ && right.Type() == object.BOOLEAN_OBJ {
		leftValue := left.(*object.Boolean).Value
		rightValue := right.(*object.Boolean).Value
		switch op {
		case code.OpEqual:
			return m.push(nativeBoolToBooleanObject(leftValue == rightValue))
		case code.OpNotEqual:
			return m.push(nativeBoolToBooleanObject(leftValue != rightValue))
		default:
			return m.fail(ErrTypeMismatch, "unsupported comparison %s on %s", op, left.Type())
		}
	}

	return m.fail(ErrTypeMismatch, "unsupported comparison %s on %s", op, left.Type())
}

func (m *VM) executeIntegerComparison(op code.Opcode, left, right object.Object) error {
	leftValue := left.(*object.Integer).Value
	rightValue := right.(*object.Integer).Value

	switch op {
	case code.OpEqual:
		return m.push(nativeBoolToBooleanObject(rightValue == leftValue))
	case code.OpNotEqual:
		return m.push(nativeBoolToBooleanObject(rightValue != leftValue))
	case code.OpGreaterThan:
		return m.push(nativeBoolToBooleanObject(leftValue > rightValue))
	default:
		return m.fail(ErrTypeMismatch, "unknown operator: %s", op)
	}
}

// executeBangOperator negates booleans. Every other operand, null
// included, yields false.
func (m *VM) executeBangOperator() error {
	operand := m.pop()

	if b, ok := operand.(*object.Boolean); ok {
		return m.push(nativeBoolToBooleanObject(!b.Value))
	}
	return m.push(False)
}

func (m *VM) executeMinusOperator() error {
	operand := m.pop()

	i, ok := operand.(*object.Integer)
	if !ok {
		return m.fail(ErrTypeMismatch, "unsupported type for negation: %s", operand.Type())
	}
	return m.push(&object.Integer{Value: -i.Value})
}

func (m *VM) executeIndexExpression(left, index object.Object) error {
	switch {
	case left.Type() == object.ARRAY_OBJ && index.Type() == object.INTEGER_OBJ:
		return m.executeArrayIndex(left, index)
	case left.Type() == object.HASH_OBJ:
		return m.executeHashIndex(left, index)
	default:
		return m.fail(ErrTypeMismatch, "index operator not supported: %s", left.Type())
	}
}

func (m *VM) executeArrayIndex(array, index object.Object) error {
	elements := array.(*object.Array).Elements
	i := index.(*object.Integer).Value
	last := int64(len(elements) - 1)

	if i < 0 || i > last {
		return m.push(Null)
	}
	return m.push(elements[i])
}

func (m *VM) executeHashIndex(hash, index object.Object) error {
	hashObject := hash.(*object.Hash)

	key, ok := object.HashKeyOf(index)
	if !ok {
		return m.fail(ErrTypeMismatch, "unusable as hash key: %s", index.Type())
	}

	pair, ok := hashObject.Pairs[key]
	if !ok {
		return m.push(Null)
	}
	return m.push(pair.Value)
}

func (m *VM) buildArray(startIndex, endIndex int) object.Object {
	elements := make([]object.Object, endIndex-startIndex)
	copy(elements, m.stack[startIndex:endIndex])
	for i := startIndex; i < endIndex; i++ {
		m.stack[i] = nil
	}
	return &object.Array{Elements: elements}
}

// buildHash reads key/value pairs in push order; a later pair overwrites
// an earlier one with the same hash key.
func (m *VM) buildHash(startIndex, endIndex int) (object.Object, error) {
	hashedPairs := make(map[object.HashKey]object.HashPair, (endIndex-startIndex)/2)

	for i := startIndex; i+1 < endIndex; i += 2 {
		key := m.stack[i]
		value := m.stack[i+1]

		hashKey, ok := object.HashKeyOf(key)
		if !ok {
			return nil, m.fail(ErrTypeMismatch, "unusable as hash key: %s", key.Type())
		}
		hashedPairs[hashKey] = object.HashPair{Key: key, Value: value}
	}
	for i := startIndex; i < endIndex; i++ {
		m.stack[i] = nil
	}

	return &object.Hash{Pairs: hashedPairs}, nil
}

func (m *VM) executeCall(numArgs int) error {
	if numArgs >= m.sp {
		panic(stackUnderflow{})
	}

	callee := m.stack[m.sp-1-numArgs]
	switch callee := callee.(type) {
	case *object.Closure:
		return m.callClosure(callee, numArgs)
	case *object.Builtin:
		return m.callBuiltin(callee, numArgs)
	default:
		return m.fail(ErrNotCallable, "calling non-function and non-built-in: %s", orNull(callee).Type())
	}
}

// callClosure makes the pushed arguments the first locals of the new
// frame and reserves the remaining local slots above them.
func (m *VM) callClosure(cl *object.Closure, numArgs int) error {
	if numArgs != cl.Fn.NumParameters {
		return m.fail(ErrWrongArity, "wrong number of arguments: want=%d, got=%d", cl.Fn.NumParameters, numArgs)
	}

	basePointer := m.sp - numArgs
	top := basePointer + cl.Fn.NumLocals
	if top > len(m.stack) {
		return m.fail(ErrStackOverflow, "stack overflow")
	}

	if err := m.pushFrame(NewFrame(cl, basePointer)); err != nil {
		return err
	}
	for i := m.sp; i < top; i++ {
		m.stack[i] = Null
	}
	m.sp = top
	return nil
}

func (m *VM) pushClosure(constIndex, numFree int) error {
	if constIndex >= len(m.constants) {
		return m.fail(ErrBadBytecode, "constant index out of range: %d", constIndex)
	}
	function, ok := m.constants[constIndex].(*object.CompiledFunction)
	if !ok {
		return m.fail(ErrBadBytecode, "not a function: %s", m.constants[constIndex].Type())
	}
	if numFree > m.sp {
		panic(stackUnderflow{})
	}

	free := make([]object.Object, numFree)
	copy(free, m.stack[m.sp-numFree:m.sp])
	for i := m.sp - numFree; i < m.sp; i++ {
		m.stack[i] = nil
	}
	m.sp = m.sp - numFree

	closure := &object.Closure{Fn: function, Free: free}
	if err := m.charge(closure); err != nil {
		return err
	}
	return m.push(closure)
}

func (m *VM) fail(cause error, format string, args ...any) error {
	return &RuntimeError{
		Op:      m.op,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
		Frames:  m.traceFrames(),
	}
}

func (m *VM) traceFrames() []TraceFrame {
	out := make([]TraceFrame, 0, m.framesIndex)
	for i := m.framesIndex - 1; i >= 0; i-- {
		f := m.frames[i]
		if f == nil || f.cl == nil || f.cl.Fn == nil {
			continue
		}
		out = append(out, TraceFrame{Function: f.cl.Fn.Name, IP: f.ip})
	}
	return out
}

func (m *VM) traceInstruction(f *Frame, ins code.Instructions, ip int) {
	def, ok := code.Lookup(code.Opcode(ins[ip]))
	if !ok || ip+def.Width() > len(ins) {
		log.Debugf("%s %04d <invalid> sp=%d", f.cl.Fn.Name, ip, m.sp)
		return
	}
	operands, _ := code.ReadOperands(def, ins[ip+1:])
	log.Debugf("%s %04d %s %v sp=%d", f.cl.Fn.Name, ip, def.Name, operands, m.sp)
}

func nativeBoolToBooleanObject(input bool) *object.Boolean {
	if input {
		return True
	}
	return False
}

func isTruthy(obj object.Object) bool {
	switch obj := obj.(type) {
	case *object.Boolean:
		return obj.Value
	case *object.Null:
		return false
	default:
		return true
	}
}

func orNull(obj object.Object) object.Object {
	if obj == nil {
		return Null
	}
	return obj
}
