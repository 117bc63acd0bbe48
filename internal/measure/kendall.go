package measure

import (
	"cmp"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
)

// KendallTau is Kendall's tau-a rank correlation over a feature space of N
// features, features absent from a vector counting as zero weight. The
// whole coefficient is computed in Shared with Knight's algorithm over the
// features present in either vector, so it costs O(u log u) in the union
// size u.
type KendallTau struct {
	filtering
	N int
}

// NewKendallTau creates a KendallTau over a feature space of n features.
func NewKendallTau(n int) *KendallTau {
	return &KendallTau{filtering: newFiltering(), N: n}
}

func sign(x, y float64) float64 {
	return float64(cmp.Compare(x, y))
}

type rankPair struct{ x, y float64 }

func (m *KendallTau) Shared(a, b *vector.Sparse) float64 {
	pairs := m.union(a, b)
	u := len(pairs)
	n := max(m.N, u)
	if n < 2 {
		return 0
	}

	num := float64(concordance(pairs))
	// every feature outside the union is zero in both vectors
	if rest := n - u; rest > 0 {
		var tied float64
		for _, p := range pairs {
			tied += sign(p.x, 0) * sign(p.y, 0)
		}
		num += float64(rest) * tied
	}
	return num / (float64(n) * float64(n-1) / 2)
}

// concordance returns concordant minus discordant pairs. It reorders pairs.
func concordance(pairs []rankPair) int64 {
	u := int64(len(pairs))
	if u < 2 {
		return 0
	}
	slices.SortFunc(pairs, func(p, q rankPair) int {
		if c := cmp.Compare(p.x, q.x); c != 0 {
			return c
		}
		return cmp.Compare(p.y, q.y)
	})

	var tiedX, tiedXY int64
	for i := 0; i < len(pairs); {
		j := i + 1
		for j < len(pairs) && pairs[j].x == pairs[i].x {
			j++
		}
		tiedX += ties(j - i)
		for i < j {
			k := i + 1
			for k < j && pairs[k].y == pairs[i].y {
				k++
			}
			tiedXY += ties(k - i)
			i = k
		}
	}

	ys := make([]float64, len(pairs))
	for i, p := range pairs {
		ys[i] = p.y
	}
	swaps := inversions(ys, make([]float64, len(ys)))

	var tiedY int64
	for i := 0; i < len(ys); {
		j := i + 1
		for j < len(ys) && ys[j] == ys[i] {
			j++
		}
		tiedY += ties(j - i)
		i = j
	}
	return u*(u-1)/2 - tiedX - tiedY + tiedXY - 2*swaps
}

func ties(t int) int64 {
	return int64(t) * int64(t-1) / 2
}

// inversions sorts s in place and counts the pairs i < j with s[i] > s[j].
func inversions(s, buf []float64) int64 {
	if len(s) < 2 {
		return 0
	}
	mid := len(s) / 2
	count := inversions(s[:mid], buf[:mid]) + inversions(s[mid:], buf[mid:])
	left, right := s[:mid], s[mid:]
	out := buf[:0]
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if right[j] < left[i] {
			out = append(out, right[j])
			count += int64(len(left) - i)
			j++
		} else {
			out = append(out, left[i])
			i++
		}
	}
	out = append(out, left[i:]...)
	out = append(out, right[j:]...)
	copy(s, out)
	return count
}

// union lists the weights of both vectors over the union of their keys.
func (m *KendallTau) union(a, b *vector.Sparse) []rankPair {
	ak, av := a.Keys(), a.Values()
	bk, bv := b.Keys(), b.Values()
	pairs := make([]rankPair, 0, len(ak)+len(bk))
	i, j := 0, 0
	for i < len(ak) || j < len(bk) {
		var key int32
		var p rankPair
		switch {
		case j >= len(bk) || (i < len(ak) && ak[i] < bk[j]):
			key, p.x = ak[i], av[i]
			i++
		case i >= len(ak) || bk[j] < ak[i]:
			key, p.y = bk[j], bv[j]
			j++
		default:
			key, p.x, p.y = ak[i], av[i], bv[j]
			i++
			j++
		}
		if key == m.filtered {
			continue
		}
		pairs = append(pairs, p)
	}
	return pairs
}

func (*KendallTau) Left(*vector.Sparse) float64  { return 0 }
func (*KendallTau) Right(*vector.Sparse) float64 { return 0 }

func (*KendallTau) Combine(shared, _, _ float64) float64 { return shared }

func (*KendallTau) Symmetric() bool { return true }
