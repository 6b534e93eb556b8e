package compiler

import "testing"

func TestDefine(t *testing.T) {
	expected := map[string]Symbol{
		"a": {Name: "a", Scope: GlobalScope, Index: 0},
		"b": {Name: "b", Scope: GlobalScope, Index: 1},
		"c": {Name: "c", Scope: LocalScope, Index: 0},
		"d": {Name: "d", Scope: LocalScope, Index: 1},
		"e": {Name: "e", Scope: LocalScope, Index: 0},
		"f": {Name: "f", Scope: LocalScope, Index: 1},
	}

	global := NewSymbolTable()
	if a := global.Define("a"); a != expected["a"] {
		t.Fatalf("expected a=%+v, got=%+v", expected["a"], a)
	}
	if b := global.Define("b"); b != expected["b"] {
		t.Fatalf("expected b=%+v, got=%+v", expected["b"], b)
	}

	firstLocal := NewEnclosedSymbolTable(global)
	if c := firstLocal.Define("c"); c != expected["c"] {
		t.Fatalf("expected c=%+v, got=%+v", expected["c"], c)
	}
	if d := firstLocal.Define("d"); d != expected["d"] {
		t.Fatalf("expected d=%+v, got=%+v", expected["d"], d)
	}

	secondLocal := NewEnclosedSymbolTable(firstLocal)
	if e := secondLocal.Define("e"); e != expected["e"] {
		t.Fatalf("expected e=%+v, got=%+v", expected["e"], e)
	}
	if f := secondLocal.Define("f"); f != expected["f"] {
		t.Fatalf("expected f=%+v, got=%+v", expected["f"], f)
	}
}

func TestRedefineShadowsWithFreshSlot(t *testing.T) {
	global := NewSymbolTable()
	global.Define("x")
	second := global.Define("x")

	if second.Index != 1 {
		t.Fatalf("expected redefinition to take slot 1, got %d", second.Index)
	}
	if global.NumDefinitions() != 2 {
		t.Fatalf("expected 2 definitions, got %d", global.NumDefinitions())
	}
	got, ok := global.Resolve("x")
	if !ok || got != second {
		t.Fatalf("expected x to resolve to %+v, got %+v (ok=%v)", second, got, ok)
	}
}

func TestResolveLocal(t *testing.T) {
	global := NewSymbolTable()
	global.Define("a")
	global.Define("b")

	local := NewEnclosedSymbolTable(global)
	local.Define("c")
	local.Define("d")

	expected := []Symbol{
		{Name: "a", Scope: GlobalScope, Index: 0},
		{Name: "b", Scope: GlobalScope, Index: 1},
		{Name: "c", Scope: LocalScope, Index: 0},
		{Name: "d", Scope: LocalScope, Index: 1},
	}

	for _, sym := range expected {
		result, ok := local.Resolve(sym.Name)
		if !ok {
			t.Errorf("name %s not resolvable", sym.Name)
			continue
		}
		if result != sym {
			t.Errorf("expected %s to resolve to %+v, got=%+v", sym.Name, sym, result)
		}
	}
	if len(local.FreeSymbols) != 0 {
		t.Fatalf("globals must not be captured, got %+v", local.FreeSymbols)
	}
}

func TestDefineResolveBuiltins(t *testing.T) {
	global := NewSymbolTable()
	firstLocal := NewEnclosedSymbolTable(global)
	secondLocal := NewEnclosedSymbolTable(firstLocal)

	expected := []Symbol{
		{Name: "a", Scope: BuiltinScope, Index: 0},
		{Name: "c", Scope: BuiltinScope, Index: 1},
		{Name: "e", Scope: BuiltinScope, Index: 2},
	}
	for i, v := range expected {
		global.DefineBuiltin(i, v.Name)
	}

	for _, table := range []*SymbolTable{global, firstLocal, secondLocal} {
		for _, sym := range expected {
			result, ok := table.Resolve(sym.Name)
			if !ok {
				t.Errorf("name %s not resolvable", sym.Name)
				continue
			}
			if result != sym {
				t.Errorf("expected %s to resolve to %+v, got=%+v", sym.Name, sym, result)
			}
		}
		if len(table.FreeSymbols) != 0 {
			t.Errorf("builtins must not be captured, got %+v", table.FreeSymbols)
		}
	}
}

func TestNewGlobalSymbolTableRegistersLen(t *testing.T) {
	st := NewGlobalSymbolTable()
	sym, ok := st.Resolve("len")
	if !ok {
		t.Fatal("len not registered")
	}
	if sym.Scope != BuiltinScope || sym.Index != 0 {
		t.Fatalf("unexpected len symbol %+v", sym)
	}
	if st.NumDefinitions() != 0 {
		t.Fatalf("builtins must not consume global slots, got %d", st.NumDefinitions())
	}
}

func TestResolveFree(t *testing.T) {
	global := NewSymbolTable()
	global.Define("a")
	global.Define("b")

	firstLocal := NewEnclosedSymbolTable(global)
	firstLocal.Define("c")
	firstLocal.Define("d")

	secondLocal := NewEnclosedSymbolTable(firstLocal)
	secondLocal.Define("e")
	secondLocal.Define("f")

	tests := []struct {
		table               *SymbolTable
		expectedSymbols     []Symbol
		expectedFreeSymbols []Symbol
	}{
		{
			firstLocal,
			[]Symbol{
				{Name: "a", Scope: GlobalScope, Index: 0},
				{Name: "b", Scope: GlobalScope, Index: 1},
				{Name: "c", Scope: LocalScope, Index: 0},
				{Name: "d", Scope: LocalScope, Index: 1},
			},
			[]Symbol{},
		},
		{
			secondLocal,
			[]Symbol{
				{Name: "a", Scope: GlobalScope, Index: 0},
				{Name: "b", Scope: GlobalScope, Index: 1},
				{Name: "c", Scope: FreeScope, Index: 0},
				{Name: "d", Scope: FreeScope, Index: 1},
				{Name: "e", Scope: LocalScope, Index: 0},
				{Name: "f", Scope: LocalScope, Index: 1},
			},
			[]Symbol{
				{Name: "c", Scope: LocalScope, Index: 0},
				{Name: "d", Scope: LocalScope, Index: 1},
			},
		},
	}

	for _, tt := range tests {
		for _, sym := range tt.expectedSymbols {
			result, ok := tt.table.Resolve(sym.Name)
			if !ok {
				t.Errorf("name %s not resolvable", sym.Name)
				continue
			}
			if result != sym {
				t.Errorf("expected %s to resolve to %+v, got=%+v", sym.Name, sym, result)
			}
		}

		if len(tt.table.FreeSymbols) != len(tt.expectedFreeSymbols) {
			t.Errorf("wrong number of free symbols. got=%d, want=%d",
				len(tt.table.FreeSymbols), len(tt.expectedFreeSymbols))
			continue
		}
		for i, sym := range tt.expectedFreeSymbols {
			if result := tt.table.FreeSymbols[i]; result != sym {
				t.Errorf("wrong free symbol. got=%+v, want=%+v", result, sym)
			}
		}
	}
}

func TestResolveFreeAcrossIntermediateScopes(t *testing.T) {
	global := NewSymbolTable()
	outer := NewEnclosedSymbolTable(global)
	outer.Define("x")
	middle := NewEnclosedSymbolTable(outer)
	inner := NewEnclosedSymbolTable(middle)

	sym, ok := inner.Resolve("x")
	if !ok {
		t.Fatal("x not resolvable")
	}
	if sym != (Symbol{Name: "x", Scope: FreeScope, Index: 0}) {
		t.Fatalf("unexpected inner symbol %+v", sym)
	}

	if len(middle.FreeSymbols) != 1 || middle.FreeSymbols[0] != (Symbol{Name: "x", Scope: LocalScope, Index: 0}) {
		t.Fatalf("middle scope should capture outer local, got %+v", middle.FreeSymbols)
	}
	if len(inner.FreeSymbols) != 1 || inner.FreeSymbols[0] != (Symbol{Name: "x", Scope: FreeScope, Index: 0}) {
		t.Fatalf("inner scope should capture middle free, got %+v", inner.FreeSymbols)
	}
}

func TestResolveUnresolvableFree(t *testing.T) {
	global := NewSymbolTable()
	global.Define("a")

	firstLocal := NewEnclosedSymbolTable(global)
	firstLocal.Define("c")

	secondLocal := NewEnclosedSymbolTable(firstLocal)
	secondLocal.Define("e")
	secondLocal.Define("f")

	for _, name := range []string{"b", "d"} {
		if _, ok := secondLocal.Resolve(name); ok {
			t.Errorf("name %s resolved, but was expected not to", name)
		}
	}
	if len(secondLocal.FreeSymbols) != 0 {
		t.Fatalf("failed lookups must not capture anything, got %+v", secondLocal.FreeSymbols)
	}
}

func TestDefineAndResolveFunctionName(t *testing.T) {
	global := NewSymbolTable()
	global.DefineFunctionName("a")

	expected := Symbol{Name: "a", Scope: FunctionScope, Index: 0}
	result, ok := global.Resolve(expected.Name)
	if !ok {
		t.Fatalf("function name %s not resolvable", expected.Name)
	}
	if result != expected {
		t.Errorf("expected %s to resolve to %+v, got=%+v", expected.Name, expected, result)
	}
}

func TestShadowingFunctionName(t *testing.T) {
	global := NewSymbolTable()
	global.DefineFunctionName("a")
	global.Define("a")

	expected := Symbol{Name: "a", Scope: GlobalScope, Index: 0}
	result, ok := global.Resolve(expected.Name)
	if !ok {
		t.Fatalf("function name %s not resolvable", expected.Name)
	}
	if result != expected {
		t.Errorf("expected %s to resolve to %+v, got=%+v", expected.Name, expected, result)
	}
}
