package vm

import (
	"monkey/internal/code"
	"monkey/internal/object"
)

type Frame struct {
	cl          *object.Closure
	ip          int
	basePointer int
}

// NewFrame starts ip at -1; the dispatch loop increments before reading.
func NewFrame(cl *object.Closure, basePointer int) *Frame {
	return &Frame{cl: cl, ip: -1, basePointer: basePointer}
}

func (f *Frame) Instructions() code.Instructions { return f.cl.Fn.Instructions }
