// Package scheduler splits the A side into chunks, compares each chunk with
// the whole B side on a bounded worker pool, and writes the results in chunk
// order through a single writer goroutine.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/codec"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
	apperrors "github.com/Adithya-Monish-Kumar-K/allpairs/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/tracing"
)

const progressInterval = 5 * time.Second

// Config sizes the work units and the pool.
type Config struct {
	ChunkSize int
	// Threads is the pool size; zero means one more than the CPU count.
	Threads int
}

// Workers is the effective pool size.
func (c Config) Workers() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return runtime.NumCPU() + 1
}

// Source is the sequential A-side reader.
type Source interface {
	Read() (vector.Entry, error)
	Position() codec.Tell
}

// Cursor is one independent B-side reader.
type Cursor interface {
	engine.Source
	Seek(t codec.Tell) error
	Close() error
}

// Opener opens a new B-side cursor positioned at the start of the input.
type Opener func() (Cursor, error)

// WriteFunc receives the pairs of one chunk, in chunk order.
type WriteFunc func(ctx context.Context, pairs []vector.WeightedPair) error

// Chunk is one unit of work.
type Chunk struct {
	// Index numbers chunks from 1 in A-side order.
	Index   int
	Start   codec.Tell
	Entries []vector.Entry
}

// Result summarises a finished run.
type Result struct {
	Chunks int
	Pairs  int64
	Stats  engine.Stats
}

type unit struct {
	index   int
	pairs   []vector.WeightedPair
	stats   engine.Stats
	entries int
}

type Scheduler struct {
	cfg     Config
	engine  engine.Engine
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a scheduler. m may be nil.
func New(cfg Config, eng engine.Engine, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		engine:  eng,
		metrics: m,
		logger:  slog.Default().With("component", "scheduler"),
	}
}

// Run compares every chunk of a with the B side opened by open and passes
// the results to write. The first failure stops new chunks from being
// scheduled; chunks already running finish and later failures are only
// logged. Errors carry the failing stage.
func (s *Scheduler) Run(ctx context.Context, a Source, open Opener, write WriteFunc) (Result, error) {
	if s.cfg.ChunkSize <= 0 {
		return Result{}, apperrors.InStage(apperrors.StageSetup,
			apperrors.Newf(apperrors.ErrInvalidConfig, "chunk size must be positive, got %d", s.cfg.ChunkSize))
	}
	threads := s.cfg.Workers()
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	first := &firstError{cancel: cancel, logger: s.logger}

	pool := newCursorPool(open, threads)
	defer pool.close()

	sem := semaphore.NewWeighted(int64(2 * threads))
	results := make(chan unit, 2*threads)
	var res Result
	written := make(chan struct{})
	go func() {
		defer close(written)
		res = s.writeOrdered(runCtx, results, sem, write, first)
	}()

	s.logger.Info("run started", "threads", threads, "chunk_size", s.cfg.ChunkSize, "engine", s.engine.Name())
	g := new(errgroup.Group)
	g.SetLimit(threads)
	s.produce(runCtx, g, a, pool, sem, results, first)
	_ = g.Wait() // failures are recorded in first
	close(results)
	<-written

	if err := first.get(); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("run interrupted: %w", err)
	}
	return res, nil
}

// produce reads chunks and schedules one unit per chunk until the A side is
// exhausted or the run is cancelled.
func (s *Scheduler) produce(ctx context.Context, g *errgroup.Group, a Source, pool *cursorPool, sem *semaphore.Weighted, results chan<- unit, first *firstError) {
	for index := 1; ; index++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		if ctx.Err() != nil {
			sem.Release(1)
			return
		}
		chunk, last, err := readChunk(a, index, s.cfg.ChunkSize)
		if err != nil {
			sem.Release(1)
			first.set(apperrors.InChunk(index, err))
			return
		}
		if len(chunk.Entries) == 0 {
			sem.Release(1)
			return
		}
		if s.metrics != nil {
			s.metrics.ChunksInFlight.Inc()
			s.metrics.VectorsRead.WithLabelValues("a").Add(float64(len(chunk.Entries)))
		}
		g.Go(func() error {
			err := s.runUnit(ctx, chunk, pool, results)
			if err != nil {
				first.set(err)
			}
			return err
		})
		if last {
			return
		}
	}
}

func readChunk(a Source, index, size int) (Chunk, bool, error) {
	c := Chunk{Index: index, Start: a.Position(), Entries: make([]vector.Entry, 0, size)}
	for len(c.Entries) < size {
		e, err := a.Read()
		if err == io.EOF {
			return c, true, nil
		}
		if err != nil {
			return c, false, err
		}
		c.Entries = append(c.Entries, e)
	}
	return c, false, nil
}

// runUnit compares one chunk with a full pass over the B side.
func (s *Scheduler) runUnit(ctx context.Context, chunk Chunk, pool *cursorPool, results chan<- unit) error {
	_, span := tracing.StartChildSpan(ctx, "chunk")
	defer span.End()
	span.SetAttr("chunk", chunk.Index)
	span.SetAttr("entries", len(chunk.Entries))
	start := time.Now()

	pairs, stats, err := s.compare(chunk, pool)
	if s.metrics != nil {
		s.metrics.ChunkDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		span.SetAttr("error", err.Error())
		if s.metrics != nil {
			s.metrics.ChunksTotal.WithLabelValues("error").Inc()
			s.metrics.ChunksInFlight.Dec()
		}
		return apperrors.InChunk(chunk.Index, err)
	}
	span.SetAttr("pairs", len(pairs))
	if stats.IndexFeatures > 0 {
		span.SetAttr("index_features", stats.IndexFeatures)
		span.SetAttr("index_bytes", stats.IndexBytes)
	}
	if s.metrics != nil {
		s.metrics.ChunksTotal.WithLabelValues("ok").Inc()
		if stats.IndexBytes > 0 {
			s.metrics.ChunkIndexBytes.Observe(float64(stats.IndexBytes))
		}
	}
	s.logger.Debug("chunk compared",
		"chunk", chunk.Index,
		"start", chunk.Start.String(),
		"entries", len(chunk.Entries),
		"pairs", len(pairs),
		"index_features", stats.IndexFeatures,
		"index_bytes", stats.IndexBytes,
		"duration", time.Since(start),
	)
	results <- unit{index: chunk.Index, pairs: pairs, stats: stats, entries: len(chunk.Entries)}
	return nil
}

func (s *Scheduler) compare(chunk Chunk, pool *cursorPool) ([]vector.WeightedPair, engine.Stats, error) {
	cur, err := pool.get()
	if err != nil {
		return nil, engine.Stats{}, err
	}
	if err := cur.Seek(codec.Tell{}); err != nil {
		cur.Close()
		return nil, engine.Stats{}, err
	}
	pairs, stats, err := s.engine.Compare(chunk.Entries, cur)
	if err != nil {
		cur.Close()
		return nil, stats, err
	}
	pool.put(cur)
	return pairs, stats, nil
}

// writeOrdered drains results and writes whole units in chunk order. After
// the first failure it keeps draining without writing.
func (s *Scheduler) writeOrdered(ctx context.Context, results <-chan unit, sem *semaphore.Weighted, write WriteFunc, first *firstError) Result {
	var res Result
	pending := make(map[int]unit)
	next := 1
	progress := rate.Sometimes{Interval: progressInterval}
	start := time.Now()

	for u := range results {
		pending[u.index] = u
		for {
			w, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if ctx.Err() == nil {
				if err := write(ctx, w.pairs); err != nil {
					first.set(apperrors.InStage(apperrors.StageMerge, err))
				} else {
					res.Chunks++
					res.Pairs += int64(len(w.pairs))
					res.Stats.Add(w.stats)
					s.record(w)
				}
			}
			if s.metrics != nil {
				s.metrics.ChunksInFlight.Dec()
			}
			sem.Release(1)
			progress.Do(func() {
				s.logger.Info("progress",
					"chunks", res.Chunks,
					"pairs", res.Pairs,
					"b_vectors", res.Stats.BVectors,
					"elapsed", time.Since(start).Round(time.Millisecond),
				)
			})
		}
	}
	return res
}

func (s *Scheduler) record(u unit) {
	if s.metrics == nil {
		return
	}
	s.metrics.VectorsRead.WithLabelValues("b").Add(float64(u.stats.BVectors))
	s.metrics.CandidatesTotal.Add(float64(u.stats.Candidates))
	s.metrics.ComparisonsTotal.Add(float64(u.stats.Comparisons))
	s.metrics.PairsEmittedTotal.Add(float64(u.stats.Emitted))
	s.metrics.PairsFilteredTotal.Add(float64(u.stats.Filtered))
}

// firstError keeps the first failure of a run and cancels the run with it.
type firstError struct {
	mu     sync.Mutex
	err    error
	cancel context.CancelCauseFunc
	logger *slog.Logger
}

func (f *firstError) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		f.logger.Warn("suppressed error after first failure", "error", err)
		return
	}
	f.err = err
	f.cancel(err)
}

func (f *firstError) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
