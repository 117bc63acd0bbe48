package measure

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
)

// FeatureStats supplies the marginal feature frequencies needed by the
// mutual information measures.
type FeatureStats interface {
	// Weight is the total frequency of feature id, zero when unknown.
	Weight(id int32) float64
}

// pointwise computes I(E, f) = ln(w · total / (ΣE · freq(f))), the pointwise
// mutual information between an entry and one of its features.
type pointwise struct {
	filtering
	stats FeatureStats
	total float64
}

func newPointwise(stats FeatureStats, total float64) pointwise {
	return pointwise{filtering: newFiltering(), stats: stats, total: total}
}

func (m *pointwise) info(id int32, w, entrySum float64) float64 {
	freq := m.stats.Weight(id)
	if w <= 0 || entrySum <= 0 || freq <= 0 || m.total <= 0 {
		return 0
	}
	return math.Log(w * m.total / (entrySum * freq))
}

func (m *pointwise) eachInfo(a, b *vector.Sparse, fn func(ia, ib float64)) {
	sa, sb := a.Sum(), b.Sum()
	m.eachShared(a, b, func(key int32, x, y float64) {
		fn(m.info(key, x, sa), m.info(key, y, sb))
	})
}

// positiveInfo sums the positive information of every feature of v.
func (m *pointwise) positiveInfo(v *vector.Sparse) float64 {
	sum := v.Sum()
	var s float64
	for i, x := range v.Values() {
		key := v.Key(i)
		if key == m.filtered {
			continue
		}
		if info := m.info(key, x, sum); info > 0 {
			s += info
		}
	}
	return s
}

// Lin is Lin's information theoretic similarity: the information of the
// shared positive features over the information of all positive features.
type Lin struct{ pointwise }

func NewLin(stats FeatureStats, total float64) *Lin {
	return &Lin{newPointwise(stats, total)}
}

func (m *Lin) Shared(a, b *vector.Sparse) float64 {
	var s float64
	m.eachInfo(a, b, func(ia, ib float64) {
		if ia > 0 && ib > 0 {
			s += ia + ib
		}
	})
	return s
}

func (m *Lin) Left(a *vector.Sparse) float64  { return m.positiveInfo(a) }
func (m *Lin) Right(b *vector.Sparse) float64 { return m.positiveInfo(b) }

func (*Lin) Combine(shared, left, right float64) float64 {
	return ratio(shared, left+right)
}

func (*Lin) Symmetric() bool { return true }

// Hindle sums, over the shared features, the smaller information when both
// are positive and the magnitude of the larger when both are negative.
type Hindle struct{ pointwise }

func NewHindle(stats FeatureStats, total float64) *Hindle {
	return &Hindle{newPointwise(stats, total)}
}

func (m *Hindle) Shared(a, b *vector.Sparse) float64 {
	var s float64
	m.eachInfo(a, b, func(ia, ib float64) {
		switch {
		case ia > 0 && ib > 0:
			s += math.Min(ia, ib)
		case ia < 0 && ib < 0:
			s -= math.Max(ia, ib)
		}
	})
	return s
}

func (*Hindle) Left(*vector.Sparse) float64  { return 0 }
func (*Hindle) Right(*vector.Sparse) float64 { return 0 }

func (*Hindle) Combine(shared, _, _ float64) float64 { return shared }

func (*Hindle) Symmetric() bool { return true }

// JaccardMI is the weighted Jaccard coefficient over positive information.
type JaccardMI struct{ pointwise }

func NewJaccardMI(stats FeatureStats, total float64) *JaccardMI {
	return &JaccardMI{newPointwise(stats, total)}
}

func (m *JaccardMI) Shared(a, b *vector.Sparse) float64 {
	var s float64
	m.eachInfo(a, b, func(ia, ib float64) {
		if ia > 0 && ib > 0 {
			s += math.Min(ia, ib)
		}
	})
	return s
}

func (m *JaccardMI) Left(a *vector.Sparse) float64  { return m.positiveInfo(a) }
func (m *JaccardMI) Right(b *vector.Sparse) float64 { return m.positiveInfo(b) }

func (*JaccardMI) Combine(shared, left, right float64) float64 {
	return ratio(shared, left+right-shared)
}

func (*JaccardMI) Symmetric() bool { return true }

// Precision is Weeds and Weir's co-occurrence retrieval precision: the share
// of A's positive information carried by features B also has. Recall is the
// same measure with the arguments swapped.
type Precision struct{ pointwise }

func NewPrecision(stats FeatureStats, total float64) *Precision {
	return &Precision{newPointwise(stats, total)}
}

func (m *Precision) Shared(a, b *vector.Sparse) float64 {
	var s float64
	m.eachInfo(a, b, func(ia, ib float64) {
		if ia > 0 && ib > 0 {
			s += ia
		}
	})
	return s
}

func (m *Precision) Left(a *vector.Sparse) float64 { return m.positiveInfo(a) }
func (*Precision) Right(*vector.Sparse) float64    { return 0 }

func (*Precision) Combine(shared, left, _ float64) float64 {
	return ratio(shared, left)
}

func (*Precision) Symmetric() bool { return false }
