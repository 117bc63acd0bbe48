// Package engine compares one chunk of A-side entry vectors against a full
// pass over the B side and returns the scored pairs that pass the filter.
package engine

import (
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/filter"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/measure"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
	apperrors "github.com/Adithya-Monish-Kumar-K/allpairs/pkg/errors"
)

const (
	AlgorithmInverted = "inverted"
	AlgorithmNaive    = "naive"
)

// Source streams entry vectors until io.EOF.
type Source interface {
	Read() (vector.Entry, error)
}

// Stats counts the work done for one chunk. The index fields stay zero for
// engines that build no index.
type Stats struct {
	BVectors      int64
	Candidates    int64
	Comparisons   int64
	Emitted       int64
	Filtered      int64
	IndexFeatures int64
	IndexBytes    int64
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.BVectors += o.BVectors
	s.Candidates += o.Candidates
	s.Comparisons += o.Comparisons
	s.Emitted += o.Emitted
	s.Filtered += o.Filtered
	s.IndexFeatures += o.IndexFeatures
	s.IndexBytes += o.IndexBytes
}

// Engine scores a chunk against a B source. The returned pairs are grouped
// by chunk position, and each group is in B stream order. Implementations
// are safe for concurrent use as long as each call has its own source.
type Engine interface {
	Name() string
	Compare(chunk []vector.Entry, b Source) ([]vector.WeightedPair, Stats, error)
}

// Options configures an engine.
type Options struct {
	Measure   measure.Measure
	Predicate filter.Predicate
	// Filtered is the feature id ignored by candidate generation, or
	// measure.NoFeature.
	Filtered int32
}

// New returns the engine named by algorithm.
func New(algorithm string, opts Options) (Engine, error) {
	if opts.Measure == nil {
		return nil, apperrors.New(apperrors.ErrInvalidConfig, "engine needs a measure")
	}
	switch strings.ToLower(algorithm) {
	case "", AlgorithmInverted:
		return &Inverted{opts: opts}, nil
	case AlgorithmNaive:
		return &Naive{opts: opts}, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "unknown engine algorithm %q", algorithm)
	}
}

// collector buffers accepted pairs per chunk position.
type collector struct {
	pred   filter.Predicate
	groups [][]vector.WeightedPair
	stats  Stats
}

func newCollector(n int, pred filter.Predicate) *collector {
	return &collector{pred: pred, groups: make([][]vector.WeightedPair, n)}
}

func (c *collector) offer(pos int, a, b int32, w float64) {
	p := vector.WeightedPair{Record: vector.TokenPair{ID1: a, ID2: b}, Weight: w}
	if !c.pred.Accept(p) {
		c.stats.Filtered++
		return
	}
	c.groups[pos] = append(c.groups[pos], p)
	c.stats.Emitted++
}

func (c *collector) pairs() []vector.WeightedPair {
	out := make([]vector.WeightedPair, 0, c.stats.Emitted)
	for _, g := range c.groups {
		out = append(out, g...)
	}
	return out
}

// drain calls fn for every vector of src.
func drain(src Source, stats *Stats, fn func(vector.Entry)) error {
	for {
		b, err := src.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		stats.BVectors++
		fn(b)
	}
}
