package object

import "testing"

func TestMemCostBasics(t *testing.T) {
	if got := CostStringBytes(5); got != memStringHead+5 {
		t.Fatalf("CostStringBytes mismatch: got %d", got)
	}
	if got := CostArray(3); got != memArrayHead+3*memPtrSize {
		t.Fatalf("CostArray mismatch: got %d", got)
	}
	if got := CostHash(4); got != memHashHead+4*memHashEntry {
		t.Fatalf("CostHash mismatch: got %d", got)
	}
	if got := CostClosure(2); got != memClosureHead+2*memPtrSize {
		t.Fatalf("CostClosure mismatch: got %d", got)
	}
	if got := CostArray(-1); got != memArrayHead {
		t.Fatalf("negative CostArray should clamp, got %d", got)
	}
}
