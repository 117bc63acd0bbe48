package measure

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
)

// Both divergences treat each vector as a probability distribution by
// dividing its weights by their sum.

// Lee is Lee's alpha-skew divergence D(B ‖ αA + (1−α)B), turned into a
// similarity by 1/(1+d). Features of B absent from A each contribute
// q·ln(1/(1−α)), which sums to a constant per vector; Shared corrects that
// constant on the common features.
type Lee struct {
	filtering
	Alpha float64
}

func NewLee(alpha float64) *Lee {
	return &Lee{filtering: newFiltering(), Alpha: alpha}
}

func (m *Lee) Shared(a, b *vector.Sparse) float64 {
	sa, sb := a.Sum(), b.Sum()
	if sa <= 0 || sb <= 0 {
		return 0
	}
	skew := math.Log(1 - m.Alpha)
	var s float64
	m.eachShared(a, b, func(_ int32, x, y float64) {
		p, q := x/sa, y/sb
		if q <= 0 || p <= 0 {
			return
		}
		s += q*math.Log(q/(m.Alpha*p+(1-m.Alpha)*q)) + q*skew
	})
	return s
}

func (*Lee) Left(*vector.Sparse) float64 { return 0 }

func (m *Lee) Right(b *vector.Sparse) float64 {
	if b.Size() == 0 || b.Sum() <= 0 {
		return 0
	}
	return -math.Log(1 - m.Alpha)
}

func (*Lee) Combine(shared, left, right float64) float64 {
	d := math.Max(0, shared+left+right)
	return 1 / (1 + d)
}

func (*Lee) Symmetric() bool { return false }

// JensenShannon is one minus the Jensen-Shannon divergence in bits, so that
// identical distributions score 1 and disjoint ones score 0.
type JensenShannon struct {
	filtering
}

func NewJensenShannon() *JensenShannon {
	return &JensenShannon{newFiltering()}
}

func (m *JensenShannon) Shared(a, b *vector.Sparse) float64 {
	sa, sb := a.Sum(), b.Sum()
	if sa <= 0 || sb <= 0 {
		return 0
	}
	var s float64
	m.eachShared(a, b, func(_ int32, x, y float64) {
		p, q := x/sa, y/sb
		if p <= 0 || q <= 0 {
			return
		}
		mid := p + q
		s += 0.5*(p*math.Log(2*p/mid)+q*math.Log(2*q/mid)) - 0.5*mid*math.Ln2
	})
	return s
}

func halfLn2(v *vector.Sparse) float64 {
	if v.Size() == 0 || v.Sum() <= 0 {
		return 0
	}
	return 0.5 * math.Ln2
}

func (*JensenShannon) Left(a *vector.Sparse) float64  { return halfLn2(a) }
func (*JensenShannon) Right(b *vector.Sparse) float64 { return halfLn2(b) }

func (*JensenShannon) Combine(shared, left, right float64) float64 {
	return clamp(1-(shared+left+right)/math.Ln2, 0, 1)
}

func (*JensenShannon) Symmetric() bool { return true }
