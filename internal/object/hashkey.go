package object

import "hash/fnv"

// HashKey identifies a hash entry. Keys of different types never collide
// because Type is part of the key.
type HashKey struct {
	Type  Type
	Value uint64
}

// Hashable is implemented by the value types usable as hash keys:
// integers, booleans and strings.
type Hashable interface {
	Object
	HashKey() HashKey
}

func (i *Integer) HashKey() HashKey {
	return HashKey{Type: i.Type(), Value: uint64(i.Value)}
}

func (b *Boolean) HashKey() HashKey {
	var v uint64
	if b.Value {
		v = 1
	}
	return HashKey{Type: b.Type(), Value: v}
}

func (s *String) HashKey() HashKey {
	h := fnv.New64a()
	h.Write([]byte(s.Value))
	return HashKey{Type: s.Type(), Value: h.Sum64()}
}

// HashKeyOf reports o's key, or false when o cannot key a hash.
func HashKeyOf(o Object) (HashKey, bool) {
	if h, ok := o.(Hashable); ok {
		return h.HashKey(), true
	}
	return HashKey{}, false
}
