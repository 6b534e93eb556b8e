package code

import "fmt"

// Validate checks that ins decodes cleanly: every opcode is defined, no
// instruction is cut short and every jump lands on an instruction
// boundary or the end of the stream.
func Validate(ins Instructions) error {
	starts := make(map[int]bool)
	var jumps []int

	i := 0
	for i < len(ins) {
		def, ok := Lookup(Opcode(ins[i]))
		if !ok {
			return fmt.Errorf("%04d: unknown opcode %d", i, ins[i])
		}
		if i+def.Width() > len(ins) {
			return fmt.Errorf("%04d: truncated %s", i, def.Name)
		}
		starts[i] = true

		op := Opcode(ins[i])
		if op == OpJump || op == OpJumpNotTruthy {
			jumps = append(jumps, i)
		}
		i += def.Width()
	}

	for _, pos := range jumps {
		target := int(ReadUint16(ins[pos+1:]))
		if target != len(ins) && !starts[target] {
			return fmt.Errorf("%04d: jump target %d is not an instruction boundary", pos, target)
		}
	}
	return nil
}
