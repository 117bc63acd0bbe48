package engine

import (
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
)

// Naive scores every B vector against every chunk entry and keeps the pairs
// that share a non-filtered feature. It is the reference the inverted engine
// is checked against.
type Naive struct {
	opts Options
}

func (*Naive) Name() string { return AlgorithmNaive }

func (e *Naive) Compare(chunk []vector.Entry, src Source) ([]vector.WeightedPair, Stats, error) {
	m := e.opts.Measure
	left := make([]float64, len(chunk))
	for i, a := range chunk {
		left[i] = m.Left(a.Vector)
	}

	c := newCollector(len(chunk), e.opts.Predicate)
	err := drain(src, &c.stats, func(b vector.Entry) {
		right := m.Right(b.Vector)
		for i, a := range chunk {
			c.stats.Comparisons++
			if !overlaps(a.Vector, b.Vector, e.opts.Filtered) {
				continue
			}
			c.stats.Candidates++
			w := m.Combine(m.Shared(a.Vector, b.Vector), left[i], right)
			c.offer(i, a.ID, b.ID, w)
		}
	})
	if err != nil {
		return nil, c.stats, err
	}
	return c.pairs(), c.stats, nil
}

// overlaps reports whether a and b share a key other than filtered.
func overlaps(a, b *vector.Sparse, filtered int32) bool {
	ak, bk := a.Keys(), b.Keys()
	i, j := 0, 0
	for i < len(ak) && j < len(bk) {
		switch {
		case ak[i] < bk[j]:
			i++
		case ak[i] > bk[j]:
			j++
		default:
			if ak[i] != filtered {
				return true
			}
			i++
			j++
		}
	}
	return false
}
