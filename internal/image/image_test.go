package image

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"monkey/internal/code"
	"monkey/internal/compiler"
	"monkey/internal/lexer"
	"monkey/internal/object"
	"monkey/internal/parser"
	"monkey/internal/vm"
)

const program = `
let greeting = "hello";
let newAdder = fn(a) { fn(b) { a + b } };
let addTwo = newAdder(2);
let fib = fn(n) { if (n < 2) { n } else { fib(n - 1) + fib(n - 2) } };
addTwo(fib(10)) + len(greeting);
`

func compileSource(t *testing.T, src string) *compiler.Bytecode {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	c := compiler.New()
	if err := c.Compile(prog); err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return c.Bytecode()
}

func runBytecode(t *testing.T, bc *compiler.Bytecode) object.Object {
	t.Helper()
	m := vm.New(bc)
	if err := m.Run(); err != nil {
		t.Fatalf("vm error: %v", err)
	}
	return m.LastPoppedStackElem()
}

func TestRoundTrip(t *testing.T) {
	bc := compileSource(t, program)

	data, err := Marshal(bc)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if !bytes.Equal(decoded.Instructions, bc.Instructions) {
		t.Fatalf("instructions differ:\nwant=%s\ngot=%s", bc.Instructions, decoded.Instructions)
	}
	if len(decoded.Constants) != len(bc.Constants) {
		t.Fatalf("constant count: want %d, got %d", len(bc.Constants), len(decoded.Constants))
	}
	for i, c := range bc.Constants {
		if decoded.Constants[i].Inspect() != c.Inspect() {
			t.Fatalf("constant %d: want %s, got %s", i, c.Inspect(), decoded.Constants[i].Inspect())
		}
	}

	want := runBytecode(t, bc)
	got := runBytecode(t, decoded)
	if got.Inspect() != want.Inspect() || got.Inspect() != "62" {
		t.Fatalf("decoded image evaluates to %s, original to %s", got.Inspect(), want.Inspect())
	}
}

func TestMarshalDeterministic(t *testing.T) {
	bc := compileSource(t, program)
	a, err := Marshal(bc)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(compileSource(t, program))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("same source produced different images")
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog"+Ext)
	bc := compileSource(t, "let x = 20; x * 2 + 2")

	if err := WriteFile(path, bc); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	loaded, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if got := runBytecode(t, loaded); got.Inspect() != "42" {
		t.Fatalf("want 42, got %s", got.Inspect())
	}
}

func TestMarshalRejectsUnknownConstant(t *testing.T) {
	bc := &compiler.Bytecode{
		Instructions: code.Make(code.OpConstant, 0),
		Constants:    []object.Object{&object.Boolean{Value: true}},
	}
	if _, err := Marshal(bc); !errors.Is(err, ErrUnknownConstant) {
		t.Fatalf("expected ErrUnknownConstant, got %v", err)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	encode := func(img wireImage) []byte {
		data, err := cborEncMode.Marshal(&img)
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", encode(wireImage{Magic: "NOPE", Version: Version}), ErrBadMagic},
		{"bad version", encode(wireImage{Magic: Magic, Version: 99}), ErrVersion},
		{"unknown kind", encode(wireImage{Magic: Magic, Version: Version, Constants: []wireConstant{{Kind: 42}}}), ErrUnknownConstant},
	}
	for _, tt := range tests {
		if _, err := Unmarshal(tt.data); !errors.Is(err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}

	if _, err := Unmarshal([]byte("not cbor at all")); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestUnmarshalRejectsMalformedCode(t *testing.T) {
	tests := []struct {
		name string
		img  wireImage
	}{
		{"truncated", wireImage{Magic: Magic, Version: Version, Instructions: []byte{byte(code.OpConstant), 0}}},
		{"constant out of range", wireImage{Magic: Magic, Version: Version, Instructions: code.Make(code.OpConstant, 3)}},
		{"bad function body", wireImage{Magic: Magic, Version: Version, Constants: []wireConstant{
			{Kind: kindFunction, Fn: &wireFunction{Name: "f", Instructions: []byte{0xEE}}},
		}}},
		{"missing function", wireImage{Magic: Magic, Version: Version, Constants: []wireConstant{{Kind: kindFunction}}}},
		{"params exceed locals", wireImage{Magic: Magic, Version: Version, Constants: []wireConstant{
			{Kind: kindFunction, Fn: &wireFunction{Name: "g", Instructions: code.Make(code.OpReturn), NumLocals: 0, NumParameters: 2}},
		}}},
		{"local in main", wireImage{Magic: Magic, Version: Version, Instructions: concat(code.Make(code.OpGetLocal, 200), code.Make(code.OpPop))}},
		{"local beyond frame", wireImage{Magic: Magic, Version: Version, Constants: []wireConstant{
			{Kind: kindFunction, Fn: &wireFunction{Name: "h", Instructions: concat(code.Make(code.OpGetLocal, 1), code.Make(code.OpReturnValue)), NumLocals: 1, NumParameters: 1}},
		}}},
		{"set local beyond frame", wireImage{Magic: Magic, Version: Version, Constants: []wireConstant{
			{Kind: kindFunction, Fn: &wireFunction{Name: "k", Instructions: concat(code.Make(code.OpTrue), code.Make(code.OpSetLocal, 3), code.Make(code.OpReturn)), NumLocals: 2}},
		}}},
		{"function falls off the end", wireImage{Magic: Magic, Version: Version, Constants: []wireConstant{
			{Kind: kindFunction, Fn: &wireFunction{Name: "m", Instructions: concat(code.Make(code.OpTrue), code.Make(code.OpPop))}},
		}}},
		{"empty function body", wireImage{Magic: Magic, Version: Version, Constants: []wireConstant{
			{Kind: kindFunction, Fn: &wireFunction{Name: "e"}},
		}}},
	}
	for _, tt := range tests {
		data, err := cborEncMode.Marshal(&tt.img)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := Unmarshal(data); err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
	}
}

func concat(parts ...code.Instructions) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestLoadedImagesRunWithoutPanics(t *testing.T) {
	// every image that loads must either run or fail with an error
	sources := []string{
		program,
		"let f = fn(a, b) { let c = a * b; c + 1 }; f(3, 4)",
		"let x = 5; if (x > 3) { [x, x][1] } else { {1: x}[1] }",
	}
	for _, src := range sources {
		data, err := Marshal(compileSource(t, src))
		if err != nil {
			t.Fatal(err)
		}
		bc, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("%q: Unmarshal failed: %v", src, err)
		}
		m := vm.NewWithOptions(bc, vm.Options{StackSize: 64})
		if err := m.Run(); err != nil {
			t.Fatalf("%q: vm error: %v", src, err)
		}
	}
}
