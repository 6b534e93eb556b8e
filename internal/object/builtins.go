package object

// BuiltinFunction returns nil when it has no meaningful result and an
// *Error when the call is invalid.
type BuiltinFunction func(args ...Object) Object

type BuiltinDef struct {
	Name string
	Fn   BuiltinFunction
}

// Builtins is the fixed builtin table. A builtin's position is the operand
// of OpGetBuiltin, so entries are only ever appended.
var Builtins = []BuiltinDef{
	{Name: "len", Fn: builtinLen},
}

// LookupBuiltin resolves a builtin by name.
func LookupBuiltin(name string) (BuiltinFunction, bool) {
	for _, def := range Builtins {
		if def.Name == name {
			return def.Fn, true
		}
	}
	return nil, false
}

// CallBuiltin resolves name and applies it to args.
func CallBuiltin(name string, args []Object) Object {
	fn, ok := LookupBuiltin(name)
	if !ok {
		return Errorf("unknown builtin: %s", name)
	}
	return fn(args...)
}

func builtinLen(args ...Object) Object {
	if len(args) != 1 {
		return Errorf("wrong number of arguments to len: got=%d, want=1", len(args))
	}
	switch arg := args[0].(type) {
	case *String:
		return &Integer{Value: int64(len(arg.Value))}
	case *Array:
		return &Integer{Value: int64(len(arg.Elements))}
	default:
		return Errorf("argument to `len` not supported, got %s", arg.Type())
	}
}
