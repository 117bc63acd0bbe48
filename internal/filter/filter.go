// Package filter decides which scored pairs reach the output.
package filter

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/config"
)

// Predicate reports whether a scored pair should be kept. A nil Predicate
// keeps everything.
type Predicate func(p vector.WeightedPair) bool

// Accept evaluates pred, treating nil as accept-all.
func (pred Predicate) Accept(p vector.WeightedPair) bool {
	return pred == nil || pred(p)
}

// MinWeight keeps pairs whose weight is at least lo.
func MinWeight(lo float64) Predicate {
	return func(p vector.WeightedPair) bool { return p.Weight >= lo }
}

// MaxWeight keeps pairs whose weight is at most hi.
func MaxWeight(hi float64) Predicate {
	return func(p vector.WeightedPair) bool { return p.Weight <= hi }
}

// NotIdentity drops pairs of an entry with itself.
func NotIdentity() Predicate {
	return func(p vector.WeightedPair) bool { return !p.Record.Identity() }
}

// And keeps a pair only when every predicate keeps it. Nil predicates are
// skipped; And of nothing is nil.
func And(preds ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return func(p vector.WeightedPair) bool {
		for _, pred := range kept {
			if !pred(p) {
				return false
			}
		}
		return true
	}
}

// Build assembles the predicate described by cfg. Infinite bounds count as
// unset, and identity pairs are dropped unless cfg.IdentityPairs is true.
func Build(cfg config.FilterConfig) Predicate {
	var preds []Predicate
	if !math.IsInf(cfg.MinSimilarity, -1) {
		preds = append(preds, MinWeight(cfg.MinSimilarity))
	}
	if !math.IsInf(cfg.MaxSimilarity, 1) {
		preds = append(preds, MaxWeight(cfg.MaxSimilarity))
	}
	if !cfg.IdentityPairs {
		preds = append(preds, NotIdentity())
	}
	return And(preds...)
}
