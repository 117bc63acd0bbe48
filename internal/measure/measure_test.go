package measure

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
	apperrors "github.com/Adithya-Monish-Kumar-K/allpairs/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type freqStats map[int32]float64

func (f freqStats) Weight(id int32) float64 { return f[id] }

func sparse(m map[int32]float64) *vector.Sparse {
	return vector.FromMap(m, 0)
}

func randomVector(r *rand.Rand, dims int) *vector.Sparse {
	m := make(map[int32]float64)
	n := 1 + r.IntN(8)
	for i := 0; i < n; i++ {
		m[int32(r.IntN(dims))] = float64(1 + r.IntN(20))
	}
	return sparse(m)
}

func testParams(dims int) Params {
	stats := make(freqStats)
	var total float64
	for i := 0; i < dims; i++ {
		stats[int32(i)] = float64(10 + i)
		total += float64(10 + i)
	}
	p := DefaultParams()
	p.Features = stats
	p.FeatureTotal = total
	p.FeatureCount = dims
	return p
}

func allMeasures(t *testing.T, p Params) map[string]Measure {
	t.Helper()
	out := make(map[string]Measure)
	for _, name := range Names() {
		spec, err := Lookup(name)
		require.NoError(t, err)
		m, err := spec.Build(p)
		require.NoError(t, err, name)
		out[name] = m
	}
	return out
}

func TestJaccardScenario(t *testing.T) {
	const f1, f2, f3 = 0, 1, 2
	e1 := sparse(map[int32]float64{f1: 1, f2: 1})
	e2 := sparse(map[int32]float64{f1: 1, f3: 1})
	e3 := sparse(map[int32]float64{f2: 1})

	m := NewJaccard()
	m.SetFilteredFeature(99)
	assert.InDelta(t, 1.0/3, Score(m, e1, e2), 1e-12)
	assert.InDelta(t, 0.5, Score(m, e1, e3), 1e-12)
	assert.Equal(t, 0.0, Score(m, e2, e3))
	assert.Equal(t, 1.0, Score(m, e1, e1))
}

func TestFilteredFeatureIgnored(t *testing.T) {
	a := sparse(map[int32]float64{0: 1, 7: 1})
	b := sparse(map[int32]float64{7: 1, 3: 1})

	m := NewJaccard()
	assert.Equal(t, 1.0, m.Shared(a, b))
	m.SetFilteredFeature(7)
	assert.Equal(t, 0.0, m.Shared(a, b))
	assert.Equal(t, 0.0, Score(m, a, b))
}

func TestEmptyVectors(t *testing.T) {
	empty := sparse(nil)
	for name, m := range allMeasures(t, testParams(4)) {
		s := Score(m, empty, empty)
		assert.False(t, math.IsNaN(s), name)
	}
}

func TestSymmetryLaw(t *testing.T) {
	const dims = 12
	r := rand.New(rand.NewPCG(1, 2))
	measures := allMeasures(t, testParams(dims))
	for i := 0; i < 200; i++ {
		a, b := randomVector(r, dims), randomVector(r, dims)
		for name, m := range measures {
			if !m.Symmetric() {
				continue
			}
			assert.InDelta(t, Score(m, a, b), Score(m, b, a), 1e-9, name)
		}
	}
}

func TestReversalLaw(t *testing.T) {
	const dims = 12
	r := rand.New(rand.NewPCG(3, 4))
	measures := allMeasures(t, testParams(dims))
	for i := 0; i < 200; i++ {
		a, b := randomVector(r, dims), randomVector(r, dims)
		for name, m := range measures {
			rev := Reversed(m)
			assert.Equal(t, Score(m, b, a), Score(rev, a, b), name)
			assert.Equal(t, m.Symmetric(), rev.Symmetric(), name)
		}
	}
}

func TestReversedTwiceUnwraps(t *testing.T) {
	m := NewLee(0.5)
	assert.Same(t, m, Reversed(Reversed(m)))
}

func TestReversedForwardsFilter(t *testing.T) {
	a := sparse(map[int32]float64{1: 1})
	rev := Reversed(NewJaccard())
	rev.SetFilteredFeature(1)
	assert.Equal(t, 0.0, rev.Shared(a, a))
}

func TestSelfSimilarity(t *testing.T) {
	a := sparse(map[int32]float64{0: 3, 2: 1, 5: 0.5})
	p := testParams(6)
	for _, name := range []string{"jaccard", "dice", "overlap", "cosine", "tanimoto", "l1", "l2", "lee", "jensen-shannon", "lin"} {
		spec, err := Lookup(name)
		require.NoError(t, err)
		m, err := spec.Build(p)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, Score(m, a, a), 1e-9, name)
	}
}

func TestKnownValues(t *testing.T) {
	a := sparse(map[int32]float64{1: 1})
	b := sparse(map[int32]float64{1: 4})
	assert.InDelta(t, 0.25, Score(NewLp(2), a, b), 1e-12)
	assert.InDelta(t, 0.25, Score(NewLp(1), a, b), 1e-12)

	c := sparse(map[int32]float64{1: 3})
	d := sparse(map[int32]float64{2: 4})
	assert.InDelta(t, 1.0/6, Score(NewLp(2), c, d), 1e-12)
	assert.Equal(t, 0.0, Score(NewJensenShannon(), c, d))
	assert.InDelta(t, 1/(1-math.Log(0.5)), Score(NewLee(0.5), c, d), 1e-12)

	x := sparse(map[int32]float64{0: 1, 1: 0})
	y := sparse(map[int32]float64{0: 2, 1: 2})
	assert.InDelta(t, 2/(math.Sqrt(1)*math.Sqrt(8)), Score(NewCosine(), x, y), 1e-12)
	assert.InDelta(t, 2.0/(1+8-2), Score(NewTanimoto(), x, y), 1e-12)
	assert.InDelta(t, 1.0, Score(NewOverlap(), x, y), 1e-12)
	assert.InDelta(t, 1.0, Score(NewDice(), x, y), 1e-12)
}

func TestLeeIsAsymmetric(t *testing.T) {
	a := sparse(map[int32]float64{0: 1, 1: 1, 2: 1})
	b := sparse(map[int32]float64{0: 1})
	m := NewLee(0.99)
	assert.False(t, m.Symmetric())
	assert.NotEqual(t, Score(m, a, b), Score(m, b, a))
}

func TestKendallTau(t *testing.T) {
	a := sparse(map[int32]float64{0: 1, 1: 2})
	assert.InDelta(t, 1.0, Score(NewKendallTau(3), a, a), 1e-12)

	x := sparse(map[int32]float64{0: 1})
	y := sparse(map[int32]float64{1: 1})
	assert.InDelta(t, -1.0, Score(NewKendallTau(2), x, y), 1e-12)

	// a feature space smaller than the union grows to cover it
	assert.InDelta(t, -1.0, Score(NewKendallTau(0), x, y), 1e-12)
	assert.Equal(t, 0.0, Score(NewKendallTau(0), x, x), "one feature has no pairs")
}

// kendallPairwise is tau-a over the union by direct pair enumeration.
func kendallPairwise(m *KendallTau, a, b *vector.Sparse) float64 {
	pairs := m.union(a, b)
	u := len(pairs)
	n := max(m.N, u)
	if n < 2 {
		return 0
	}
	var num float64
	for i := 0; i < u; i++ {
		for j := i + 1; j < u; j++ {
			num += sign(pairs[i].x, pairs[j].x) * sign(pairs[i].y, pairs[j].y)
		}
		num += float64(n-u) * sign(pairs[i].x, 0) * sign(pairs[i].y, 0)
	}
	return num / (float64(n) * float64(n-1) / 2)
}

func TestKendallTauMatchesPairwise(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	tied := func() *vector.Sparse {
		m := make(map[int32]float64)
		for i := 0; i < 1+r.IntN(60); i++ {
			// few distinct weights, negatives included, so ties are common
			m[int32(r.IntN(80))] = float64(r.IntN(7) - 3)
		}
		return vector.FromMap(m, 0)
	}
	for i := 0; i < 300; i++ {
		a, b := tied(), tied()
		m := NewKendallTau(r.IntN(120))
		if i%3 == 0 {
			m.SetFilteredFeature(int32(r.IntN(80)))
		}
		require.InDelta(t, kendallPairwise(m, a, b), m.Shared(a, b), 1e-12, "case %d", i)
	}
}

func TestConcordanceTies(t *testing.T) {
	tests := []struct {
		name  string
		pairs []rankPair
		want  int64
	}{
		{"empty", nil, 0},
		{"ordered", []rankPair{{1, 1}, {2, 2}, {3, 3}}, 3},
		{"reversed", []rankPair{{1, 3}, {2, 2}, {3, 1}}, -3},
		{"tied x", []rankPair{{1, 1}, {1, 2}, {2, 3}}, 2},
		{"tied y", []rankPair{{1, 1}, {2, 1}, {3, 0}}, -2},
		{"joint ties", []rankPair{{1, 1}, {1, 1}, {2, 2}}, 2},
		{"all tied", []rankPair{{5, 5}, {5, 5}, {5, 5}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, concordance(tt.pairs))
		})
	}
}

func TestMutualInformation(t *testing.T) {
	stats := freqStats{0: 10, 1: 10, 2: 80}
	const total = 100
	a := sparse(map[int32]float64{0: 5, 1: 5})
	b := sparse(map[int32]float64{0: 2, 2: 8})

	precision := NewPrecision(stats, total)
	assert.InDelta(t, 0.5, Score(precision, a, b), 1e-12)
	recall := Reversed(NewPrecision(stats, total))
	assert.InDelta(t, 1.0, Score(recall, a, b), 1e-12)
	assert.InDelta(t, Score(precision, b, a), Score(recall, a, b), 1e-12)

	ln2, ln5 := math.Log(2), math.Log(5)
	assert.InDelta(t, (ln5+ln2)/(2*ln5+ln2), Score(NewLin(stats, total), a, b), 1e-12)
	assert.InDelta(t, ln2, Score(NewHindle(stats, total), a, b), 1e-12)
	assert.InDelta(t, ln2/(2*ln5+ln2-ln2), Score(NewJaccardMI(stats, total), a, b), 1e-12)
}

func TestHindleNegativeInformation(t *testing.T) {
	stats := freqStats{0: 50, 1: 50}
	// both entries under-represent feature 0
	a := sparse(map[int32]float64{0: 1, 1: 9})
	b := sparse(map[int32]float64{0: 2, 1: 8})
	m := NewHindle(stats, 100)
	ia := math.Log(1 * 100 / (10.0 * 50))
	ib := math.Log(2 * 100 / (10.0 * 50))
	ja := math.Log(9 * 100 / (10.0 * 50))
	jb := math.Log(8 * 100 / (10.0 * 50))
	assert.InDelta(t, -math.Max(ia, ib)+math.Min(ja, jb), Score(m, a, b), 1e-12)
}

func TestRegistry(t *testing.T) {
	spec, err := Lookup("Euclidean")
	require.NoError(t, err)
	assert.Equal(t, "l2", spec.Name)

	spec, err = Lookup(" JS ")
	require.NoError(t, err)
	assert.Equal(t, "jensen-shannon", spec.Name)

	_, err = Lookup("hamming")
	assert.ErrorIs(t, err, apperrors.ErrUnknownMeasure)

	tests := []struct {
		name   string
		params Params
	}{
		{"lee", Params{LeeAlpha: 1}},
		{"lee", Params{LeeAlpha: 0}},
		{"lp", Params{LpP: 0}},
		{"lp", Params{LpP: math.NaN()}},
		{"lin", DefaultParams()},
		{"kendall-tau", DefaultParams()},
	}
	for _, tt := range tests {
		spec, err := Lookup(tt.name)
		require.NoError(t, err)
		_, err = spec.Build(tt.params)
		assert.ErrorIs(t, err, apperrors.ErrInvalidConfig, tt.name)
	}

	spec, err = Lookup("l1")
	require.NoError(t, err)
	m, err := spec.Build(Params{LpP: 7})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.(*Lp).P, "l1 ignores the configured order")
}

func BenchmarkJaccardScore(b *testing.B) {
	r := rand.New(rand.NewPCG(5, 6))
	vs := make([]*vector.Sparse, 64)
	for i := range vs {
		vs[i] = randomVector(r, 1000)
	}
	m := NewJaccard()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Score(m, vs[i%64], vs[(i+1)%64])
	}
}
