package object

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"monkey/internal/code"
)

type Type string

const (
	INTEGER_OBJ           Type = "INTEGER"
	BOOLEAN_OBJ           Type = "BOOLEAN"
	STRING_OBJ            Type = "STRING"
	NULL_OBJ              Type = "NULL"
	ERROR_OBJ             Type = "ERROR"
	ARRAY_OBJ             Type = "ARRAY"
	HASH_OBJ              Type = "HASH"
	RETURN_VALUE_OBJ      Type = "RETURN_VALUE"
	COMPILED_FUNCTION_OBJ Type = "COMPILED_FUNCTION"
	CLOSURE_OBJ           Type = "CLOSURE"
	BUILTIN_OBJ           Type = "BUILTIN"
)

type Object interface {
	Type() Type
	Inspect() string
}

type Integer struct{ Value int64 }

func (*Integer) Type() Type        { return INTEGER_OBJ }
func (i *Integer) Inspect() string { return strconv.FormatInt(i.Value, 10) }

type Boolean struct{ Value bool }

func (*Boolean) Type() Type { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string {
	if b.Value {
		return "true"
	}
	return "false"
}

type String struct{ Value string }

func (*String) Type() Type        { return STRING_OBJ }
func (s *String) Inspect() string { return s.Value }

type Null struct{}

func (*Null) Type() Type      { return NULL_OBJ }
func (*Null) Inspect() string { return "null" }

type Error struct {
	Message string
}

func (*Error) Type() Type        { return ERROR_OBJ }
func (e *Error) Inspect() string { return "ERROR: " + e.Message }

// Errorf builds an Error object the way builtins report failure.
func Errorf(format string, a ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, a...)}
}

type Array struct {
	Elements []Object
}

func (*Array) Type() Type { return ARRAY_OBJ }
func (a *Array) Inspect() string {
	var out bytes.Buffer
	out.WriteString("[")
	for i, el := range a.Elements {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(el.Inspect())
	}
	out.WriteString("]")
	return out.String()
}

type HashPair struct {
	Key   Object
	Value Object
}

// Hash maps a key's HashKey to the stored pair. Distinct keys that hash
// equal share a slot; the later write wins.
type Hash struct {
	Pairs map[HashKey]HashPair
}

func (*Hash) Type() Type { return HASH_OBJ }
func (h *Hash) Inspect() string {
	pairs := make([]string, 0, len(h.Pairs))
	for _, pair := range h.Pairs {
		pairs = append(pairs, pair.Key.Inspect()+": "+pair.Value.Inspect())
	}
	// map iteration order is random; sort for stable output
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ", ") + "}"
}

// ReturnValue wraps a value unwinding out of a function body. The VM never
// produces it; it exists for tree-walking execution paths.
type ReturnValue struct{ Value Object }

func (*ReturnValue) Type() Type         { return RETURN_VALUE_OBJ }
func (rv *ReturnValue) Inspect() string { return rv.Value.Inspect() }

type CompiledFunction struct {
	Instructions  code.Instructions
	NumLocals     int
	NumParameters int
	Name          string
}

func (*CompiledFunction) Type() Type { return COMPILED_FUNCTION_OBJ }
func (cf *CompiledFunction) Inspect() string {
	return fmt.Sprintf("CompiledFunction[%s]", cf.Name)
}

type Closure struct {
	Fn   *CompiledFunction
	Free []Object
}

func (*Closure) Type() Type { return CLOSURE_OBJ }
func (c *Closure) Inspect() string {
	return fmt.Sprintf("Closure[%s]", c.Fn.Name)
}

// Builtin refers to an entry of the builtin table by name; the function
// itself is looked up when the call happens.
type Builtin struct {
	Name string
}

func (*Builtin) Type() Type        { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string { return "builtin function " + b.Name }
