package compiler

import "monkey/internal/object"

type SymbolScope string

const (
	GlobalScope   SymbolScope = "GLOBAL"
	LocalScope    SymbolScope = "LOCAL"
	BuiltinScope  SymbolScope = "BUILTIN"
	FreeScope     SymbolScope = "FREE"
	FunctionScope SymbolScope = "FUNCTION"
)

type Symbol struct {
	Name  string
	Scope SymbolScope
	Index int
}

type SymbolTable struct {
	Outer *SymbolTable

	store          map[string]Symbol
	numDefinitions int
	FreeSymbols    []Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{store: map[string]Symbol{}}
}

func NewEnclosedSymbolTable(outer *SymbolTable) *SymbolTable {
	st := NewSymbolTable()
	st.Outer = outer
	return st
}

// NewGlobalSymbolTable returns an outermost table with every builtin
// registered at its table index.
func NewGlobalSymbolTable() *SymbolTable {
	st := NewSymbolTable()
	for i, def := range object.Builtins {
		st.DefineBuiltin(i, def.Name)
	}
	return st
}

// Define binds name in this table. Redefining a name in the same table
// shadows it with a fresh slot; the old slot stays allocated.
func (st *SymbolTable) Define(name string) Symbol {
	scope := GlobalScope
	if st.Outer != nil {
		scope = LocalScope
	}
	sym := Symbol{Name: name, Scope: scope, Index: st.numDefinitions}
	st.store[name] = sym
	st.numDefinitions++
	return sym
}

func (st *SymbolTable) DefineBuiltin(index int, name string) Symbol {
	sym := Symbol{Name: name, Scope: BuiltinScope, Index: index}
	st.store[name] = sym
	return sym
}

// DefineFunctionName lets a function body refer to itself without
// capturing itself as a free variable.
func (st *SymbolTable) DefineFunctionName(name string) Symbol {
	sym := Symbol{Name: name, Scope: FunctionScope, Index: 0}
	st.store[name] = sym
	return sym
}

func (st *SymbolTable) defineFree(original Symbol) Symbol {
	st.FreeSymbols = append(st.FreeSymbols, original)
	sym := Symbol{Name: original.Name, Scope: FreeScope, Index: len(st.FreeSymbols) - 1}
	st.store[original.Name] = sym
	return sym
}

// Resolve looks name up from the innermost table outwards. A local of an
// enclosing function is promoted to a free variable in every table between
// its definition and this one.
func (st *SymbolTable) Resolve(name string) (Symbol, bool) {
	if sym, ok := st.store[name]; ok {
		return sym, true
	}
	if st.Outer == nil {
		return Symbol{}, false
	}

	outerSym, ok := st.Outer.Resolve(name)
	if !ok {
		return Symbol{}, false
	}

	if outerSym.Scope == GlobalScope || outerSym.Scope == BuiltinScope {
		return outerSym, true
	}

	return st.defineFree(outerSym), true
}

// NumDefinitions is the number of slots Define has handed out.
func (st *SymbolTable) NumDefinitions() int {
	return st.numDefinitions
}

// Symbols lists what is bound directly in this table, unordered.
func (st *SymbolTable) Symbols() []Symbol {
	out := make([]Symbol, 0, len(st.store))
	for _, sym := range st.store {
		out = append(out, sym)
	}
	return out
}
