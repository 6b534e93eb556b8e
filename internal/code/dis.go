package code

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, w := range def.OperandWidths {
		switch w {
		case 1:
			operands[i] = int(ins[offset])
		case 2:
			operands[i] = int(binary.BigEndian.Uint16(ins[offset:]))
		default:
			panic("unsupported operand width")
		}
		offset += w
	}
	return operands, offset
}

// String disassembles ins one instruction per line. Unknown opcodes are
// reported inline and skipped one byte at a time; an instruction whose
// operands run past the end is reported as truncated.
func (ins Instructions) String() string {
	var out bytes.Buffer

	i := 0
	for i < len(ins) {
		op := Opcode(ins[i])
		def, ok := Lookup(op)
		if !ok {
			fmt.Fprintf(&out, "%04d ERROR: unknown opcode %d\n", i, op)
			i++
			continue
		}
		if i+def.Width() > len(ins) {
			fmt.Fprintf(&out, "%04d ERROR: truncated %s\n", i, def.Name)
			break
		}

		operands, read := ReadOperands(def, ins[i+1:])
		fmt.Fprintf(&out, "%04d %s\n", i, fmtInstruction(def, operands))

		i += 1 + read
	}

	return out.String()
}

func fmtInstruction(def *Definition, operands []int) string {
	if len(operands) != len(def.OperandWidths) {
		return fmt.Sprintf("ERROR: operand len %d does not match defined %d", len(operands), len(def.OperandWidths))
	}
	out := def.Name
	for _, o := range operands {
		out += fmt.Sprintf(" %d", o)
	}
	return out
}
