// Package image persists compiled bytecode as a versioned CBOR document.
package image

import (
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"monkey/internal/code"
	"monkey/internal/compiler"
	"monkey/internal/object"
)

const (
	Magic   = "MKBC"
	Version = 1

	// Ext is the file extension the CLI recognises as an image.
	Ext = ".mkc"
)

var (
	ErrBadMagic        = errors.New("image: not a monkey bytecode image")
	ErrVersion         = errors.New("image: unsupported version")
	ErrUnknownConstant = errors.New("image: unknown constant kind")
)

type constKind uint8

const (
	kindInteger constKind = iota + 1
	kindString
	kindFunction
)

type wireImage struct {
	Magic        string         `cbor:"1,keyasint"`
	Version      uint           `cbor:"2,keyasint"`
	Instructions []byte         `cbor:"3,keyasint"`
	Constants    []wireConstant `cbor:"4,keyasint"`
}

type wireConstant struct {
	Kind constKind     `cbor:"1,keyasint"`
	Int  int64         `cbor:"2,keyasint,omitempty"`
	Str  string        `cbor:"3,keyasint,omitempty"`
	Fn   *wireFunction `cbor:"4,keyasint,omitempty"`
}

type wireFunction struct {
	Name          string `cbor:"1,keyasint"`
	Instructions  []byte `cbor:"2,keyasint"`
	NumLocals     int    `cbor:"3,keyasint"`
	NumParameters int    `cbor:"4,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal encodes bc. Only constants the compiler emits are accepted.
func Marshal(bc *compiler.Bytecode) ([]byte, error) {
	img := wireImage{
		Magic:        Magic,
		Version:      Version,
		Instructions: bc.Instructions,
		Constants:    make([]wireConstant, 0, len(bc.Constants)),
	}

	for i, c := range bc.Constants {
		switch v := c.(type) {
		case *object.Integer:
			img.Constants = append(img.Constants, wireConstant{Kind: kindInteger, Int: v.Value})
		case *object.String:
			img.Constants = append(img.Constants, wireConstant{Kind: kindString, Str: v.Value})
		case *object.CompiledFunction:
			img.Constants = append(img.Constants, wireConstant{Kind: kindFunction, Fn: &wireFunction{
				Name:          v.Name,
				Instructions:  v.Instructions,
				NumLocals:     v.NumLocals,
				NumParameters: v.NumParameters,
			}})
		default:
			return nil, fmt.Errorf("%w: constant %d has type %s", ErrUnknownConstant, i, c.Type())
		}
	}

	return cborEncMode.Marshal(&img)
}

// Unmarshal decodes an image and checks that every instruction stream in
// it is well formed before handing it to a VM.
func Unmarshal(data []byte) (*compiler.Bytecode, error) {
	var img wireImage
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if img.Magic != Magic {
		return nil, ErrBadMagic
	}
	if img.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, img.Version)
	}

	constants := make([]object.Object, 0, len(img.Constants))
	for i, c := range img.Constants {
		switch c.Kind {
		case kindInteger:
			constants = append(constants, &object.Integer{Value: c.Int})
		case kindString:
			constants = append(constants, &object.String{Value: c.Str})
		case kindFunction:
			if c.Fn == nil {
				return nil, fmt.Errorf("image: constant %d: function body missing", i)
			}
			constants = append(constants, &object.CompiledFunction{
				Instructions:  code.Instructions(c.Fn.Instructions),
				NumLocals:     c.Fn.NumLocals,
				NumParameters: c.Fn.NumParameters,
				Name:          c.Fn.Name,
			})
		default:
			return nil, fmt.Errorf("%w: constant %d has kind %d", ErrUnknownConstant, i, c.Kind)
		}
	}

	bc := &compiler.Bytecode{
		Instructions: code.Instructions(img.Instructions),
		Constants:    constants,
	}
	if err := verify(bc); err != nil {
		return nil, err
	}
	return bc, nil
}

func WriteFile(path string, bc *compiler.Bytecode) error {
	data, err := Marshal(bc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("image: write %s: %w", path, err)
	}
	return nil
}

func ReadFile(path string) (*compiler.Bytecode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: read %s: %w", path, err)
	}
	bc, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bc, nil
}

func verify(bc *compiler.Bytecode) error {
	check := func(name string, ins code.Instructions, numLocals int) (code.Opcode, error) {
		if err := code.Validate(ins); err != nil {
			return 0, fmt.Errorf("image: %s: %w", name, err)
		}
		return checkOperands(name, ins, len(bc.Constants), numLocals)
	}

	if _, err := check("<main>", bc.Instructions, 0); err != nil {
		return err
	}
	for _, c := range bc.Constants {
		fn, ok := c.(*object.CompiledFunction)
		if !ok {
			continue
		}
		if fn.NumParameters < 0 || fn.NumLocals < fn.NumParameters {
			return fmt.Errorf("image: %s: %d locals cannot hold %d parameters", fn.Name, fn.NumLocals, fn.NumParameters)
		}
		last, err := check(fn.Name, fn.Instructions, fn.NumLocals)
		if err != nil {
			return err
		}
		if len(fn.Instructions) == 0 || (last != code.OpReturn && last != code.OpReturnValue) {
			return fmt.Errorf("image: %s: body does not end in a return", fn.Name)
		}
	}
	return nil
}

// checkOperands bounds constant and local slot operands and reports the
// last opcode of ins. The main program has no locals.
func checkOperands(name string, ins code.Instructions, numConstants, numLocals int) (code.Opcode, error) {
	var last code.Opcode
	for i := 0; i < len(ins); {
		op := code.Opcode(ins[i])
		def, _ := code.Lookup(op)
		switch op {
		case code.OpConstant, code.OpClosure:
			idx := int(code.ReadUint16(ins[i+1:]))
			if idx >= numConstants {
				return 0, fmt.Errorf("image: %s: %04d: constant %d out of range", name, i, idx)
			}
		case code.OpGetLocal, code.OpSetLocal:
			slot := int(code.ReadUint8(ins[i+1:]))
			if slot >= numLocals {
				return 0, fmt.Errorf("image: %s: %04d: local %d out of range (%d locals)", name, i, slot, numLocals)
			}
		}
		last = op
		i += def.Width()
	}
	return last, nil
}
