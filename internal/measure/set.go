package measure

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
)

// setMeasure scores the feature sets of two vectors and ignores weights.
type setMeasure struct {
	filtering
}

func (m *setMeasure) Shared(a, b *vector.Sparse) float64 {
	var n float64
	m.eachShared(a, b, func(int32, float64, float64) { n++ })
	return n
}

func (m *setMeasure) Left(a *vector.Sparse) float64  { return float64(a.Size()) }
func (m *setMeasure) Right(b *vector.Sparse) float64 { return float64(b.Size()) }
func (m *setMeasure) Symmetric() bool                { return true }

// Jaccard is |A∩B| / |A∪B|.
type Jaccard struct{ setMeasure }

func NewJaccard() *Jaccard {
	return &Jaccard{setMeasure{newFiltering()}}
}

func (*Jaccard) Combine(shared, left, right float64) float64 {
	return ratio(shared, left+right-shared)
}

// Dice is 2|A∩B| / (|A|+|B|).
type Dice struct{ setMeasure }

func NewDice() *Dice {
	return &Dice{setMeasure{newFiltering()}}
}

func (*Dice) Combine(shared, left, right float64) float64 {
	return ratio(2*shared, left+right)
}

// Overlap is |A∩B| / min(|A|, |B|).
type Overlap struct{ setMeasure }

func NewOverlap() *Overlap {
	return &Overlap{setMeasure{newFiltering()}}
}

func (*Overlap) Combine(shared, left, right float64) float64 {
	return ratio(shared, math.Min(left, right))
}
