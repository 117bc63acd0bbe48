package measure

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
)

type dotProduct struct {
	filtering
}

func (m *dotProduct) Shared(a, b *vector.Sparse) float64 {
	var dot float64
	m.eachShared(a, b, func(_ int32, x, y float64) { dot += x * y })
	return dot
}

func (*dotProduct) Symmetric() bool { return true }

func sumSquares(v *vector.Sparse) float64 {
	var s float64
	for _, x := range v.Values() {
		s += x * x
	}
	return s
}

// Cosine is the cosine of the angle between two vectors.
type Cosine struct{ dotProduct }

func NewCosine() *Cosine {
	return &Cosine{dotProduct{newFiltering()}}
}

func (*Cosine) Left(a *vector.Sparse) float64  { return math.Sqrt(sumSquares(a)) }
func (*Cosine) Right(b *vector.Sparse) float64 { return math.Sqrt(sumSquares(b)) }

func (*Cosine) Combine(shared, left, right float64) float64 {
	return ratio(shared, left*right)
}

// Tanimoto is the extended Jaccard coefficient A·B / (|A|²+|B|²−A·B).
type Tanimoto struct{ dotProduct }

func NewTanimoto() *Tanimoto {
	return &Tanimoto{dotProduct{newFiltering()}}
}

func (*Tanimoto) Left(a *vector.Sparse) float64  { return sumSquares(a) }
func (*Tanimoto) Right(b *vector.Sparse) float64 { return sumSquares(b) }

func (*Tanimoto) Combine(shared, left, right float64) float64 {
	return ratio(shared, left+right-shared)
}

// Lp is the Minkowski distance of order P turned into a similarity by
// 1/(1+d). The distance over all features is assembled from per-vector sums
// of |x|^p corrected on the shared features.
type Lp struct {
	filtering
	P float64
}

func NewLp(p float64) *Lp {
	return &Lp{filtering: newFiltering(), P: p}
}

func (m *Lp) pow(x float64) float64 {
	x = math.Abs(x)
	switch m.P {
	case 1:
		return x
	case 2:
		return x * x
	}
	return math.Pow(x, m.P)
}

func (m *Lp) Shared(a, b *vector.Sparse) float64 {
	var s float64
	m.eachShared(a, b, func(_ int32, x, y float64) {
		s += m.pow(x-y) - m.pow(x) - m.pow(y)
	})
	return s
}

func (m *Lp) norm(v *vector.Sparse) float64 {
	var s float64
	for i, x := range v.Values() {
		if v.Key(i) == m.filtered {
			continue
		}
		s += m.pow(x)
	}
	return s
}

func (m *Lp) Left(a *vector.Sparse) float64  { return m.norm(a) }
func (m *Lp) Right(b *vector.Sparse) float64 { return m.norm(b) }

func (m *Lp) Combine(shared, left, right float64) float64 {
	d := shared + left + right
	if d <= 0 {
		return 1
	}
	return 1 / (1 + math.Pow(d, 1/m.P))
}

func (*Lp) Symmetric() bool { return true }
