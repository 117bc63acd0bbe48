package measure

import (
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/allpairs/pkg/errors"
)

// Params carries everything a measure may need at construction time.
type Params struct {
	LpP      float64
	LeeAlpha float64

	// Features, FeatureTotal and FeatureCount describe the feature
	// frequency file. They are only set for measures that need them.
	Features     FeatureStats
	FeatureTotal float64
	FeatureCount int
}

// DefaultParams are the stock measure parameters.
func DefaultParams() Params {
	return Params{LpP: 2, LeeAlpha: 0.99}
}

// Requirement names the auxiliary data a measure needs before any
// comparison runs.
type Requirement int

const (
	NeedsNothing Requirement = iota
	// NeedsFeatureStats means Params.Features and FeatureTotal must be set.
	NeedsFeatureStats
	// NeedsFeatureCount means Params.FeatureCount must be set.
	NeedsFeatureCount
)

// Spec describes one registered measure.
type Spec struct {
	Name     string
	Aliases  []string
	Requires Requirement
	build    func(Params) (Measure, error)
}

// Build constructs the measure from p.
func (s Spec) Build(p Params) (Measure, error) {
	switch s.Requires {
	case NeedsFeatureStats:
		if p.Features == nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "measure %s needs a feature frequency file", s.Name)
		}
	case NeedsFeatureCount:
		if p.FeatureCount <= 0 {
			return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "measure %s needs a feature frequency file", s.Name)
		}
	}
	return s.build(p)
}

func stateless(m func() Measure) func(Params) (Measure, error) {
	return func(Params) (Measure, error) { return m(), nil }
}

func lpWith(fixed float64) func(Params) (Measure, error) {
	return func(p Params) (Measure, error) {
		order := p.LpP
		if fixed > 0 {
			order = fixed
		}
		if !(order > 0) {
			return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "lp order must be positive, got %v", order)
		}
		return NewLp(order), nil
	}
}

var specs = []Spec{
	{Name: "jaccard", build: stateless(func() Measure { return NewJaccard() })},
	{Name: "dice", build: stateless(func() Measure { return NewDice() })},
	{Name: "overlap", build: stateless(func() Measure { return NewOverlap() })},
	{Name: "cosine", build: stateless(func() Measure { return NewCosine() })},
	{Name: "tanimoto", Aliases: []string{"extended-jaccard"}, build: stateless(func() Measure { return NewTanimoto() })},
	{Name: "lp", Aliases: []string{"minkowski"}, build: lpWith(0)},
	{Name: "l1", Aliases: []string{"manhattan"}, build: lpWith(1)},
	{Name: "l2", Aliases: []string{"euclidean"}, build: lpWith(2)},
	{Name: "lee", Aliases: []string{"alpha-skew"}, build: func(p Params) (Measure, error) {
		if !(p.LeeAlpha > 0 && p.LeeAlpha < 1) {
			return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "lee alpha must be in (0, 1), got %v", p.LeeAlpha)
		}
		return NewLee(p.LeeAlpha), nil
	}},
	{Name: "jensen-shannon", Aliases: []string{"js", "jsd"}, build: stateless(func() Measure { return NewJensenShannon() })},
	{Name: "kendall-tau", Aliases: []string{"tau"}, Requires: NeedsFeatureCount, build: func(p Params) (Measure, error) {
		return NewKendallTau(p.FeatureCount), nil
	}},
	{Name: "lin", Requires: NeedsFeatureStats, build: func(p Params) (Measure, error) {
		return NewLin(p.Features, p.FeatureTotal), nil
	}},
	{Name: "hindle", Requires: NeedsFeatureStats, build: func(p Params) (Measure, error) {
		return NewHindle(p.Features, p.FeatureTotal), nil
	}},
	{Name: "jaccard-mi", Requires: NeedsFeatureStats, build: func(p Params) (Measure, error) {
		return NewJaccardMI(p.Features, p.FeatureTotal), nil
	}},
	{Name: "precision", Aliases: []string{"weeds-precision"}, Requires: NeedsFeatureStats, build: func(p Params) (Measure, error) {
		return NewPrecision(p.Features, p.FeatureTotal), nil
	}},
	{Name: "recall", Aliases: []string{"weeds-recall"}, Requires: NeedsFeatureStats, build: func(p Params) (Measure, error) {
		return Reversed(NewPrecision(p.Features, p.FeatureTotal)), nil
	}},
}

var byName = func() map[string]Spec {
	m := make(map[string]Spec)
	for _, s := range specs {
		m[s.Name] = s
		for _, alias := range s.Aliases {
			m[alias] = s
		}
	}
	return m
}()

// Lookup finds a measure by name or alias, ignoring case.
func Lookup(name string) (Spec, error) {
	s, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Spec{}, apperrors.Newf(apperrors.ErrUnknownMeasure, "%q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return s, nil
}

// Names lists the canonical measure names.
func Names() []string {
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}
