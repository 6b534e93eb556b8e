package vm

import "monkey/internal/object"

// callBuiltin runs a builtin against the argument window without a frame,
// then replaces callee and arguments with the result.
func (m *VM) callBuiltin(b *object.Builtin, numArgs int) error {
	args := make([]object.Object, numArgs)
	copy(args, m.stack[m.sp-numArgs:m.sp])

	result := object.CallBuiltin(b.Name, args)
	for i := m.sp - numArgs - 1; i < m.sp; i++ {
		m.stack[i] = nil
	}
	m.sp = m.sp - numArgs - 1

	if errObj, ok := result.(*object.Error); ok {
		return m.fail(nil, "%s", errObj.Message)
	}
	if result == nil {
		return m.push(Null)
	}
	if err := m.charge(result); err != nil {
		return err
	}
	return m.push(result)
}
