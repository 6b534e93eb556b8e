package object

const (
	memPtrSize     int64 = 8
	memStringHead  int64 = 24
	memArrayHead   int64 = 24
	memHashHead    int64 = 32
	memHashEntry   int64 = 40
	memClosureHead int64 = 32
)

func CostStringBytes(n int) int64 {
	if n < 0 {
		return memStringHead
	}
	return memStringHead + int64(n)
}

func CostArray(n int) int64 {
	if n < 0 {
		return memArrayHead
	}
	return memArrayHead + int64(n)*memPtrSize
}

func CostHash(n int) int64 {
	if n < 0 {
		return memHashHead
	}
	return memHashHead + int64(n)*memHashEntry
}

func CostClosure(numFree int) int64 {
	if numFree < 0 {
		return memClosureHead
	}
	return memClosureHead + int64(numFree)*memPtrSize
}
