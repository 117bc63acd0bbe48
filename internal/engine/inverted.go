package engine

import (
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/index"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
)

// Inverted indexes the chunk by feature and only scores B vectors against
// chunk entries that share a non-filtered feature with them.
type Inverted struct {
	opts Options
}

func (*Inverted) Name() string { return AlgorithmInverted }

func (e *Inverted) Compare(chunk []vector.Entry, src Source) ([]vector.WeightedPair, Stats, error) {
	m := e.opts.Measure
	ix := index.New(e.opts.Filtered)
	for _, a := range chunk {
		ix.Add(a, m.Left(a.Vector))
	}

	c := newCollector(len(chunk), e.opts.Predicate)
	c.stats.IndexFeatures = int64(ix.Features())
	c.stats.IndexBytes = ix.Size()
	err := drain(src, &c.stats, func(b vector.Entry) {
		cands := ix.Candidates(b.Vector)
		if cands.IsEmpty() {
			return
		}
		right := m.Right(b.Vector)
		it := cands.Iterator()
		for it.HasNext() {
			pos := it.Next()
			a := ix.Entry(pos)
			c.stats.Candidates++
			c.stats.Comparisons++
			w := m.Combine(m.Shared(a.Vector, b.Vector), ix.Left(pos), right)
			c.offer(int(pos), a.ID, b.ID, w)
		}
	})
	if err != nil {
		return nil, c.stats, err
	}
	return c.pairs(), c.stats, nil
}
