package code

import "encoding/binary"

type Opcode byte

const (
	OpConstant Opcode = iota // push constants[operand]
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpTrue
	OpFalse
	OpPop

	OpEqual
	OpNotEqual
	OpGreaterThan

	OpMinus
	OpBang

	OpJumpNotTruthy // operand: jump address
	OpJump          // operand: jump address

	OpNull

	OpGetGlobal
	OpSetGlobal

	OpArray // operand: elementCount (2 bytes)
	OpHash  // operand: keys+values count (2 bytes)
	OpIndex // no operands

	OpCall // operand: argCount (1 byte)
	OpReturnValue
	OpReturn

	OpGetLocal
	OpSetLocal

	OpGetBuiltin // operand: builtin index (1 byte)

	OpClosure // operands: constIndex (2 bytes), numFree (1 byte)
	OpGetFree
	OpCurrentClosure

	opCount
)

type Instructions []byte

type Definition struct {
	Name          string
	OperandWidths []int
}

// definitions is indexed by opcode; adding an opcode past opCount fails to
// compile.
var definitions = [opCount]*Definition{
	OpConstant:       {"OpConstant", []int{2}},
	OpAdd:            {"OpAdd", nil},
	OpSub:            {"OpSub", nil},
	OpMul:            {"OpMul", nil},
	OpDiv:            {"OpDiv", nil},
	OpTrue:           {"OpTrue", nil},
	OpFalse:          {"OpFalse", nil},
	OpPop:            {"OpPop", nil},
	OpEqual:          {"OpEqual", nil},
	OpNotEqual:       {"OpNotEqual", nil},
	OpGreaterThan:    {"OpGreaterThan", nil},
	OpMinus:          {"OpMinus", nil},
	OpBang:           {"OpBang", nil},
	OpJumpNotTruthy:  {"OpJumpNotTruthy", []int{2}},
	OpJump:           {"OpJump", []int{2}},
	OpNull:           {"OpNull", nil},
	OpGetGlobal:      {"OpGetGlobal", []int{2}},
	OpSetGlobal:      {"OpSetGlobal", []int{2}},
	OpArray:          {"OpArray", []int{2}},
	OpHash:           {"OpHash", []int{2}},
	OpIndex:          {"OpIndex", nil},
	OpCall:           {"OpCall", []int{1}},
	OpReturnValue:    {"OpReturnValue", nil},
	OpReturn:         {"OpReturn", nil},
	OpGetLocal:       {"OpGetLocal", []int{1}},
	OpSetLocal:       {"OpSetLocal", []int{1}},
	OpGetBuiltin:     {"OpGetBuiltin", []int{1}},
	OpClosure:        {"OpClosure", []int{2, 1}},
	OpGetFree:        {"OpGetFree", []int{1}},
	OpCurrentClosure: {"OpCurrentClosure", nil},
}

func Lookup(op Opcode) (*Definition, bool) {
	if op >= opCount {
		return nil, false
	}
	def := definitions[op]
	return def, def != nil
}

func (op Opcode) String() string {
	if def, ok := Lookup(op); ok {
		return def.Name
	}
	return "UNKNOWN_OPCODE"
}

// Width is the encoded size of an instruction for op, opcode byte included.
func (d *Definition) Width() int {
	n := 1
	for _, w := range d.OperandWidths {
		n += w
	}
	return n
}

// Make encodes op and its operands big-endian. Operand counts and widths
// must match the definition; callers are the compiler and tests.
func Make(op Opcode, operands ...int) Instructions {
	def, ok := Lookup(op)
	if !ok {
		return Instructions{}
	}

	ins := make([]byte, def.Width())
	ins[0] = byte(op)

	offset := 1
	for i, o := range operands {
		w := def.OperandWidths[i]
		switch w {
		case 1:
			ins[offset] = byte(o)
		case 2:
			binary.BigEndian.PutUint16(ins[offset:], uint16(o))
		}
		offset += w
	}
	return ins
}

func ReadUint16(ins Instructions) uint16 {
	return binary.BigEndian.Uint16(ins)
}

func ReadUint8(ins Instructions) uint8 {
	return uint8(ins[0])
}
