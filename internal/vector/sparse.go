// Package vector holds the immutable data model shared by every stage of an
// all-pairs run: sparse feature vectors, tokens, token pairs and weighted
// records.
package vector

import (
	"fmt"
	"sort"
)

// Sparse is an immutable sparse vector. Keys are strictly increasing feature
// ids and Values is parallel to Keys. Cardinality is the dimensionality of
// the feature space, which may exceed the largest key.
type Sparse struct {
	keys        []int32
	values      []float64
	cardinality int
	sum         float64
}

// New builds a vector from parallel key and value slices. Keys must already
// be strictly increasing; the slices are owned by the vector afterwards.
func New(keys []int32, values []float64, cardinality int) *Sparse {
	if len(keys) != len(values) {
		panic(fmt.Sprintf("vector: %d keys but %d values", len(keys), len(values)))
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	if n := len(keys); n > 0 && int(keys[n-1]) >= cardinality {
		cardinality = int(keys[n-1]) + 1
	}
	return &Sparse{keys: keys, values: values, cardinality: cardinality, sum: sum}
}

// FromMap builds a vector from an unordered id to weight map.
func FromMap(m map[int32]float64, cardinality int) *Sparse {
	keys := make([]int32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	values := make([]float64, len(keys))
	for i, k := range keys {
		values[i] = m[k]
	}
	return New(keys, values, cardinality)
}

// Builder accumulates features in any order and merges repeated ids by
// summing their weights.
type Builder struct {
	weights map[int32]float64
}

func NewBuilder() *Builder {
	return &Builder{weights: make(map[int32]float64)}
}

// Add sums w into feature id and reports whether id was already present.
func (b *Builder) Add(id int32, w float64) bool {
	_, dup := b.weights[id]
	b.weights[id] += w
	return dup
}

// Build returns the vector and resets the builder.
func (b *Builder) Build(cardinality int) *Sparse {
	v := FromMap(b.weights, cardinality)
	b.weights = make(map[int32]float64, len(b.weights))
	return v
}

func (s *Sparse) Keys() []int32       { return s.keys }
func (s *Sparse) Values() []float64   { return s.values }
func (s *Sparse) Size() int           { return len(s.keys) }
func (s *Sparse) Cardinality() int    { return s.cardinality }
func (s *Sparse) Sum() float64        { return s.sum }
func (s *Sparse) Key(i int) int32     { return s.keys[i] }
func (s *Sparse) Value(i int) float64 { return s.values[i] }

// Get returns the weight of feature id, or zero when absent.
func (s *Sparse) Get(id int32) float64 {
	i := sort.Search(len(s.keys), func(i int) bool { return s.keys[i] >= id })
	if i < len(s.keys) && s.keys[i] == id {
		return s.values[i]
	}
	return 0
}

func (s *Sparse) String() string {
	return fmt.Sprintf("Sparse{size=%d, card=%d}", len(s.keys), s.cardinality)
}
