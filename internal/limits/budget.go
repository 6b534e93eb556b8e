package limits

import (
	"errors"
	"fmt"
)

// ErrMemoryLimit is wrapped by every MaxMemoryError.
var ErrMemoryLimit = errors.New("memory limit exceeded")

// Budget is the heap allowance of one VM. Strings, arrays, hashes and
// closures are charged an estimate when they are created; nothing is ever
// credited back. A zero limit disables accounting.
type Budget struct {
	limit int64
	used  int64
}

func NewBudget(limit int64) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: limit}
}

func (b *Budget) Limit() int64 {
	if b == nil {
		return 0
	}
	return b.limit
}

func (b *Budget) Used() int64 {
	if b == nil {
		return 0
	}
	return b.used
}

type MaxMemoryError struct {
	Limit     int64
	Requested int64
}

func (e MaxMemoryError) Error() string {
	return fmt.Sprintf("max memory exceeded (%d bytes, requested %d more)", e.Limit, e.Requested)
}

func (e MaxMemoryError) Unwrap() error { return ErrMemoryLimit }

func (b *Budget) Charge(n int64) error {
	if b == nil || b.limit == 0 || n <= 0 {
		return nil
	}
	if b.used+n > b.limit {
		return MaxMemoryError{Limit: b.limit, Requested: n}
	}
	b.used += n
	return nil
}
