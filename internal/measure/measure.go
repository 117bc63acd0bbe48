// Package measure implements the proximity measures used to score entry
// pairs. Every measure splits its computation into a part over the shared
// features of both vectors, a part over each vector alone, and a final
// combination of the three, so that the engine can compute the per-vector
// parts once and reuse them across many comparisons.
package measure

import "github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"

// NoFeature disables feature filtering.
const NoFeature int32 = -1

// Measure scores a pair of sparse vectors as Combine(Shared(a, b), Left(a),
// Right(b)). Shared covers whatever depends on both vectors at once and
// never looks at the filtered feature.
type Measure interface {
	Shared(a, b *vector.Sparse) float64
	Left(a *vector.Sparse) float64
	Right(b *vector.Sparse) float64
	Combine(shared, left, right float64) float64
	// Symmetric reports whether Score(m, a, b) always equals Score(m, b, a).
	Symmetric() bool
	SetFilteredFeature(id int32)
}

// Score evaluates m on a and b.
func Score(m Measure, a, b *vector.Sparse) float64 {
	return m.Combine(m.Shared(a, b), m.Left(a), m.Right(b))
}

type filtering struct {
	filtered int32
}

func newFiltering() filtering {
	return filtering{filtered: NoFeature}
}

func (f *filtering) SetFilteredFeature(id int32) {
	f.filtered = id
}

// eachShared merge-joins the sorted keys of a and b and calls fn with the
// weights of every common feature except the filtered one.
func (f *filtering) eachShared(a, b *vector.Sparse, fn func(key int32, x, y float64)) {
	ak, av := a.Keys(), a.Values()
	bk, bv := b.Keys(), b.Values()
	i, j := 0, 0
	for i < len(ak) && j < len(bk) {
		switch {
		case ak[i] < bk[j]:
			i++
		case ak[i] > bk[j]:
			j++
		default:
			if ak[i] != f.filtered {
				fn(ak[i], av[i], bv[j])
			}
			i++
			j++
		}
	}
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Reversed swaps the arguments of m: Score(Reversed(m), a, b) equals
// Score(m, b, a).
func Reversed(m Measure) Measure {
	if r, ok := m.(*reversed); ok {
		return r.inner
	}
	return &reversed{inner: m}
}

type reversed struct {
	inner Measure
}

func (r *reversed) Shared(a, b *vector.Sparse) float64 { return r.inner.Shared(b, a) }
func (r *reversed) Left(a *vector.Sparse) float64      { return r.inner.Right(a) }
func (r *reversed) Right(b *vector.Sparse) float64     { return r.inner.Left(b) }

func (r *reversed) Combine(shared, left, right float64) float64 {
	return r.inner.Combine(shared, right, left)
}

func (r *reversed) Symmetric() bool { return r.inner.Symmetric() }

func (r *reversed) SetFilteredFeature(id int32) { r.inner.SetFilteredFeature(id) }
