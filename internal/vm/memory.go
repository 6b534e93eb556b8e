package vm

import "monkey/internal/object"

func costOfObject(obj object.Object) int64 {
	switch v := obj.(type) {
	case *object.String:
		return object.CostStringBytes(len(v.Value))
	case *object.Array:
		return object.CostArray(len(v.Elements))
	case *object.Hash:
		return object.CostHash(len(v.Pairs))
	case *object.Closure:
		return object.CostClosure(len(v.Free))
	default:
		return 0
	}
}

// charge bills a freshly allocated object against the memory budget.
func (m *VM) charge(obj object.Object) error {
	if m.budget == nil {
		return nil
	}
	if err := m.budget.Charge(costOfObject(obj)); err != nil {
		return m.fail(err, "%s", err.Error())
	}
	return nil
}

// MemoryUsed reports the bytes charged so far, zero without a budget.
func (m *VM) MemoryUsed() int64 {
	return m.budget.Used()
}
