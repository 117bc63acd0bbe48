package vector

import "cmp"

// TokenPair is an ordered pair of interned token ids.
type TokenPair struct {
	ID1 int32
	ID2 int32
}

// Identity reports whether both sides of the pair are the same token.
func (p TokenPair) Identity() bool {
	return p.ID1 == p.ID2
}

// Compare orders pairs by first then second id.
func (p TokenPair) Compare(o TokenPair) int {
	if c := cmp.Compare(p.ID1, o.ID1); c != 0 {
		return c
	}
	return cmp.Compare(p.ID2, o.ID2)
}

// Weighted attaches a weight to a record.
type Weighted[T any] struct {
	Record T
	Weight float64
}

// WeightedPair is a scored entry pair, the unit of similarity output.
type WeightedPair = Weighted[TokenPair]

// WeightedToken is a single token with a weight, as read from frequency files.
type WeightedToken = Weighted[int32]

// CompareWeight orders weighted records by weight only.
func CompareWeight[T any](a, b Weighted[T]) int {
	return cmp.Compare(a.Weight, b.Weight)
}

// Entry is an entry token together with its feature vector.
type Entry struct {
	ID     int32
	Vector *Sparse
}
