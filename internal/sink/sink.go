// Package sink delivers accepted pairs to the output file and to the
// optional Redis and PostgreSQL exports. Sinks are driven by a single writer
// goroutine and are not safe for concurrent use.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/metrics"
)

// Sink receives pairs in output order.
type Sink interface {
	Name() string
	Write(ctx context.Context, p vector.WeightedPair) error
	// Close flushes buffered pairs and releases the sink.
	Close(ctx context.Context) error
}

// Tee fans every pair out to several sinks in order.
type Tee struct {
	sinks   []Sink
	metrics *metrics.Metrics
}

// NewTee writes to every sink. m may be nil.
func NewTee(m *metrics.Metrics, sinks ...Sink) *Tee {
	return &Tee{sinks: sinks, metrics: m}
}

func (*Tee) Name() string { return "tee" }

func (t *Tee) Write(ctx context.Context, p vector.WeightedPair) error {
	for _, s := range t.sinks {
		if err := s.Write(ctx, p); err != nil {
			return fmt.Errorf("sink %s: %w", s.Name(), err)
		}
		if t.metrics != nil {
			t.metrics.SinkWritesTotal.WithLabelValues(s.Name()).Inc()
		}
	}
	return nil
}

// WriteAll writes a batch of pairs.
func (t *Tee) WriteAll(ctx context.Context, pairs []vector.WeightedPair) error {
	for _, p := range pairs {
		if err := t.Write(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink, even after a failure, and joins their errors.
func (t *Tee) Close(ctx context.Context) error {
	var errs []error
	for _, s := range t.sinks {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing sink %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
