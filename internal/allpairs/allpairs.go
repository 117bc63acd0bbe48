// Package allpairs wires a configured run together: setup (inputs, interning
// tables, measure, filter, engine), the chunked comparison, and the merge of
// unit results into the output sinks.
package allpairs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/codec"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/filter"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/intern"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/measure"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/notify"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/scheduler"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/stats"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/allpairs/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/tracing"
)

// Deps are the optional collaborators of a run. Zero values disable them.
type Deps struct {
	Metrics  *metrics.Metrics
	Notifier *notify.Notifier
	// Exports receive every written pair after the output file.
	Exports []sink.Sink
}

// Job is a fully prepared run. Everything that can be judged before the
// first comparison has been checked by Prepare.
type Job struct {
	cfg      *config.Config
	runID    string
	tables   intern.Tables
	charset  *codec.Charset
	engine   engine.Engine
	filtered int32
	aStream  io.ReadCloser
	bInput   *codec.Input
	exports  []sink.Sink
	clients  []io.Closer
	deps     Deps
	logger   *slog.Logger
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Chunks   int
	Pairs    int64
	Stats    engine.Stats
	Duration time.Duration
}

// Prepare validates cfg, loads auxiliary statistics, builds the measure and
// opens the B side. Every error it returns is a setup stage error.
func Prepare(ctx context.Context, cfg *config.Config, deps Deps) (*Job, error) {
	runID := logger.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx, span := tracing.StartChildSpan(ctx, "setup")
	defer span.End()

	j := &Job{
		cfg:    cfg,
		runID:  runID,
		deps:   deps,
		logger: slog.Default().With("component", "allpairs", "run_id", runID),
	}
	if err := j.prepare(ctx); err != nil {
		j.Close()
		span.SetAttr("error", err.Error())
		return nil, apperrors.InStage(apperrors.StageSetup, err)
	}
	return j, nil
}

func (j *Job) prepare(ctx context.Context) error {
	cfg := j.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}
	cs, err := codec.LookupCharset(cfg.Input.Charset)
	if err != nil {
		return err
	}
	j.charset = cs
	j.tables = intern.NewTables(cfg.Input.CombinedIndex)

	spec, err := measure.Lookup(cfg.Measure.Name)
	if err != nil {
		return err
	}
	params := measure.DefaultParams()
	params.LpP = cfg.Measure.LpP
	params.LeeAlpha = cfg.Measure.LeeAlpha
	if stats.Needed(spec) {
		freq, err := stats.LoadFeatures(cfg.Input.Features, j.tables.Features, cs, j.deps.Metrics)
		if err != nil {
			return err
		}
		params = stats.MeasureParams(params, freq)
	}
	m, err := spec.Build(params)
	if err != nil {
		return err
	}
	if cfg.Measure.Reversed {
		m = measure.Reversed(m)
	}

	j.filtered = measure.NoFeature
	if cfg.Measure.FilteredFeature != "" {
		j.filtered = j.tables.Features.Intern(cfg.Measure.FilteredFeature)
	}
	m.SetFilteredFeature(j.filtered)

	j.engine, err = engine.New(cfg.Engine.Algorithm, engine.Options{
		Measure:   m,
		Predicate: filter.Build(cfg.Filter),
		Filtered:  j.filtered,
	})
	if err != nil {
		return err
	}

	j.aStream, err = codec.OpenStream(cfg.Input.EntryFeatures)
	if err != nil {
		return err
	}
	j.bInput, err = codec.OpenInput(cfg.Input.BSide(), cfg.Input.Mmap)
	if err != nil {
		return err
	}
	if err := j.connectExports(ctx); err != nil {
		return err
	}
	j.logger.Info("run prepared",
		"measure", spec.Name,
		"reversed", cfg.Measure.Reversed,
		"symmetric", m.Symmetric(),
		"engine", j.engine.Name(),
		"a", cfg.Input.EntryFeatures,
		"b", cfg.Input.BSide(),
		"b_bytes", j.bInput.Size(),
		"charset", cs.Name(),
	)
	return nil
}

// RunID identifies the run in logs, metrics and notifications.
func (j *Job) RunID() string { return j.runID }

// Tables exposes the interning tables, for exports created after Prepare.
func (j *Job) Tables() intern.Tables { return j.tables }

// Close releases both inputs and the export clients. It is safe to call
// more than once.
func (j *Job) Close() error {
	var errs []error
	if j.aStream != nil {
		errs = append(errs, j.aStream.Close())
		j.aStream = nil
	}
	if j.bInput != nil {
		errs = append(errs, j.bInput.Close())
		j.bInput = nil
	}
	errs = append(errs, closeAll(j.clients))
	j.clients = nil
	return errors.Join(errs...)
}

// Run compares the A side with the B side and writes every accepted pair.
// A Job runs once. On failure the output may be incomplete and must be
// discarded.
func (j *Job) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	cfg := j.cfg
	summary := Summary{RunID: j.runID}
	j.notify(ctx, notify.RunEvent{Status: notify.StatusStarted})

	res, err := j.run(ctx)
	summary.Chunks, summary.Pairs, summary.Stats = res.Chunks, res.Pairs, res.Stats
	summary.Duration = time.Since(start)
	j.observe(summary)

	if err != nil {
		var se *apperrors.StageError
		ev := notify.RunEvent{Status: notify.StatusFailed, Error: err.Error(), Chunks: res.Chunks}
		if errors.As(err, &se) {
			ev.Stage = se.Stage
		}
		j.notify(ctx, ev)
		return summary, err
	}
	j.logger.Info("run completed",
		"chunks", summary.Chunks,
		"pairs", summary.Pairs,
		"candidates", summary.Stats.Candidates,
		"comparisons", summary.Stats.Comparisons,
		"filtered", summary.Stats.Filtered,
		"duration", summary.Duration.Round(time.Millisecond),
		"output", cfg.Output.Path,
	)
	j.notify(ctx, notify.RunEvent{
		Status:     notify.StatusCompleted,
		Chunks:     summary.Chunks,
		Pairs:      summary.Pairs,
		DurationMS: summary.Duration.Milliseconds(),
	})
	return summary, nil
}

func (j *Job) run(ctx context.Context) (scheduler.Result, error) {
	cfg := j.cfg
	ctx, span := tracing.StartChildSpan(ctx, "compare")
	defer span.End()

	out, err := sink.NewFile(cfg.Output.Path, j.tables.Entries, j.charset, cfg.Output.Compact)
	if err != nil {
		return scheduler.Result{}, apperrors.InStage(apperrors.StageSetup, err)
	}
	sinks := append([]sink.Sink{out}, j.exports...)
	sinks = append(sinks, j.deps.Exports...)
	tee := sink.NewTee(j.deps.Metrics, sinks...)

	src := codec.NewVectorSource(cfg.Input.EntryFeatures, j.aStream, j.tables.Entries, j.tables.Features, j.charset)
	sched := scheduler.New(scheduler.Config{
		ChunkSize: cfg.Engine.ChunkSize,
		Threads:   cfg.Engine.Threads,
	}, j.engine, j.deps.Metrics)

	res, runErr := sched.Run(ctx, src, j.openB, tee.WriteAll)
	closeErr := tee.Close(context.WithoutCancel(ctx))
	span.SetAttr("chunks", res.Chunks)
	span.SetAttr("pairs", res.Pairs)
	if runErr != nil {
		if closeErr != nil {
			j.logger.Warn("closing output after failure", "error", closeErr)
		}
		return res, runErr
	}
	if closeErr != nil {
		return res, apperrors.InStage(apperrors.StageMerge, closeErr)
	}
	return res, nil
}

// openB opens a B-side cursor with its own interning cache.
func (j *Job) openB() (scheduler.Cursor, error) {
	r, err := j.bInput.Cursor()
	if err != nil {
		return nil, err
	}
	size := j.cfg.Input.InternCacheSize
	entries, err := intern.NewCached(j.tables.Entries, size)
	if err != nil {
		r.Close()
		return nil, err
	}
	features := entries
	if !j.tables.Combined() {
		if features, err = intern.NewCached(j.tables.Features, size); err != nil {
			r.Close()
			return nil, err
		}
	}
	return &cursor{
		VectorSource: codec.NewVectorSource(j.bInput.Path(), r, entries, features, j.charset),
		closer:       r,
	}, nil
}

type cursor struct {
	*codec.VectorSource
	closer io.Closer
}

func (c *cursor) Close() error { return c.closer.Close() }

func (j *Job) observe(s Summary) {
	m := j.deps.Metrics
	if m == nil {
		return
	}
	m.RunDuration.Set(s.Duration.Seconds())
	m.InternedTokens.WithLabelValues("entries").Set(float64(j.tables.Entries.Len()))
	if !j.tables.Combined() {
		m.InternedTokens.WithLabelValues("features").Set(float64(j.tables.Features.Len()))
	}
}

func (j *Job) notify(ctx context.Context, ev notify.RunEvent) {
	if j.deps.Notifier == nil {
		return
	}
	ev.RunID = j.runID
	ev.Measure = j.cfg.Measure.Name
	ev.Input = j.cfg.Input.EntryFeatures
	ev.Output = j.cfg.Output.Path
	j.deps.Notifier.Send(context.WithoutCancel(ctx), ev)
}
