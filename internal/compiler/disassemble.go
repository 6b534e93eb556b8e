package compiler

import (
	"fmt"
	"strings"

	"monkey/internal/object"
)

func FormatConstants(constants []object.Object) string {
	var b strings.Builder
	b.WriteString("== constants ==\n")
	for i, c := range constants {
		switch v := c.(type) {
		case *object.Integer:
			fmt.Fprintf(&b, "%04d INTEGER %d\n", i, v.Value)
		case *object.String:
			fmt.Fprintf(&b, "%04d STRING %q\n", i, v.Value)
		case *object.CompiledFunction:
			fmt.Fprintf(&b, "%04d COMPILED_FUNCTION %s (locals=%d params=%d ins=%dB)\n",
				i, v.Name, v.NumLocals, v.NumParameters, len(v.Instructions))
		default:
			fmt.Fprintf(&b, "%04d %s %s\n", i, c.Type(), c.Inspect())
		}
	}
	return b.String()
}

// Disassemble renders the constant pool followed by the main instruction
// stream and the body of every compiled function constant.
func Disassemble(bc *Bytecode) string {
	var b strings.Builder
	b.WriteString(FormatConstants(bc.Constants))
	b.WriteString("== main ==\n")
	b.WriteString(bc.Instructions.String())
	for i, c := range bc.Constants {
		fn, ok := c.(*object.CompiledFunction)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "== fn %04d %s ==\n", i, fn.Name)
		b.WriteString(fn.Instructions.String())
	}
	return b.String()
}
