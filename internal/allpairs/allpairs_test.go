package allpairs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/notify"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/allpairs/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/metrics"
)

const jaccardInput = "e1\tf1\t1\ne1\tf2\t1\ne2\tf1\t1\ne2\tf3\t1\ne3\tf2\t1\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(t *testing.T, input string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Input.EntryFeatures = writeFile(t, dir, "input.tsv", input)
	cfg.Output.Path = filepath.Join(dir, "out.tsv")
	cfg.Engine.ChunkSize = 2
	cfg.Engine.Threads = 2
	return cfg
}

func runJob(t *testing.T, cfg *config.Config, deps Deps) (Summary, string) {
	t.Helper()
	job, err := Prepare(context.Background(), cfg, deps)
	require.NoError(t, err)
	defer job.Close()
	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	out, err := os.ReadFile(cfg.Output.Path)
	require.NoError(t, err)
	return summary, string(out)
}

type recordingPublisher struct {
	events []notify.RunEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev kafka.Event) error {
	p.events = append(p.events, ev.Value.(notify.RunEvent))
	return nil
}

func TestJaccardRun(t *testing.T) {
	for _, algorithm := range []string{"inverted", "naive"} {
		t.Run(algorithm, func(t *testing.T) {
			cfg := testConfig(t, jaccardInput)
			cfg.Engine.Algorithm = algorithm
			summary, out := runJob(t, cfg, Deps{})
			assert.Equal(t, "e1\te2\t0.333333\te3\t0.5\ne2\te1\t0.333333\ne3\te1\t0.5\n", out)
			assert.Equal(t, int64(4), summary.Pairs)
			assert.Equal(t, 2, summary.Chunks)
			assert.Equal(t, int64(3), summary.Stats.Filtered, "identity pairs")
			assert.NotEmpty(t, summary.RunID)
		})
	}
}

func TestVerboseOutputWithBounds(t *testing.T) {
	cfg := testConfig(t, jaccardInput)
	cfg.Output.Compact = false
	cfg.Filter.MinSimilarity = 0.4
	_, out := runJob(t, cfg, Deps{})
	assert.Equal(t, "e1\te3\t0.5\ne3\te1\t0.5\n", out)
}

func TestIdentityPairsKept(t *testing.T) {
	cfg := testConfig(t, jaccardInput)
	cfg.Output.Compact = false
	cfg.Filter.IdentityPairs = true
	cfg.Filter.MinSimilarity = 1
	_, out := runJob(t, cfg, Deps{})
	assert.Equal(t, "e1\te1\t1\ne2\te2\t1\ne3\te3\t1\n", out)
}

func TestSeparateBSide(t *testing.T) {
	cfg := testConfig(t, "x\tf1\t1\n")
	cfg.Input.EntryFeaturesB = writeFile(t, t.TempDir(), "b.tsv", jaccardInput)
	cfg.Input.CombinedIndex = false
	cfg.Output.Compact = false
	_, out := runJob(t, cfg, Deps{})
	assert.Equal(t, "x\te1\t0.5\nx\te2\t0.5\n", out)
}

func TestReversedMeasure(t *testing.T) {
	input := "a\tf1\t1\na\tf2\t1\na\tf3\t1\nb\tf1\t1\n"
	forward := testConfig(t, input)
	forward.Measure.Name = "lee"
	forward.Output.Compact = false
	_, fwd := runJob(t, forward, Deps{})

	reversed := testConfig(t, input)
	reversed.Measure.Name = "lee"
	reversed.Measure.Reversed = true
	reversed.Output.Compact = false
	_, rev := runJob(t, reversed, Deps{})

	assert.NotEqual(t, fwd, rev)
	parse := func(out string) map[string]string {
		m := make(map[string]string)
		for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
			fields := strings.Split(line, "\t")
			require.Len(t, fields, 3)
			m[fields[0]+">"+fields[1]] = fields[2]
		}
		return m
	}
	f, r := parse(fwd), parse(rev)
	assert.Equal(t, f["a>b"], r["b>a"])
	assert.Equal(t, f["b>a"], r["a>b"])
}

func TestFeatureFileMeasure(t *testing.T) {
	cfg := testConfig(t, "a\tf1\t2\na\tf2\t8\nb\tf1\t5\nb\tf2\t5\n")
	cfg.Measure.Name = "lin"
	cfg.Input.Features = writeFile(t, t.TempDir(), "features.tsv", "f1\t7\nf2\t13\n")
	m := metrics.New()
	summary, out := runJob(t, cfg, Deps{Metrics: m})
	assert.Equal(t, int64(2), summary.Pairs)
	assert.NotEmpty(t, out)
}

func TestNotifications(t *testing.T) {
	pub := &recordingPublisher{}
	cfg := testConfig(t, jaccardInput)
	ctx := logger.WithRun(context.Background(), "run-42")
	job, err := Prepare(ctx, cfg, Deps{Notifier: notify.New(pub)})
	require.NoError(t, err)
	defer job.Close()
	assert.Equal(t, "run-42", job.RunID())

	_, err = job.Run(ctx)
	require.NoError(t, err)
	require.Len(t, pub.events, 2)
	assert.Equal(t, notify.StatusStarted, pub.events[0].Status)
	assert.Equal(t, notify.StatusCompleted, pub.events[1].Status)
	assert.Equal(t, int64(4), pub.events[1].Pairs)
	assert.Equal(t, "run-42", pub.events[1].RunID)
	assert.Equal(t, "jaccard", pub.events[1].Measure)
}

type failingSink struct{}

func (failingSink) Name() string { return "failing" }

func (failingSink) Write(context.Context, vector.WeightedPair) error {
	return assert.AnError
}

func (failingSink) Close(context.Context) error { return nil }

func TestExportFailureIsMergeStage(t *testing.T) {
	pub := &recordingPublisher{}
	cfg := testConfig(t, jaccardInput)
	job, err := Prepare(context.Background(), cfg, Deps{
		Notifier: notify.New(pub),
		Exports:  []sink.Sink{failingSink{}},
	})
	require.NoError(t, err)
	defer job.Close()

	_, err = job.Run(context.Background())
	require.Error(t, err)
	var se *apperrors.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperrors.StageMerge, se.Stage)
	require.Len(t, pub.events, 2)
	assert.Equal(t, notify.StatusFailed, pub.events[1].Status)
	assert.Equal(t, apperrors.StageMerge, pub.events[1].Stage)
}

func TestMalformedInputIsDataError(t *testing.T) {
	cfg := testConfig(t, "e1\tf1\t1\ne2\tf1\tnot-a-number\n")
	job, err := Prepare(context.Background(), cfg, Deps{})
	require.NoError(t, err)
	defer job.Close()
	_, err = job.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMalformedRecord)
	assert.Equal(t, apperrors.ExitData, apperrors.ExitCode(err))
}

func TestSetupErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"missing input", func(c *config.Config) { c.Input.EntryFeatures = filepath.Join(t.TempDir(), "absent.tsv") }, apperrors.ErrMissingInput},
		{"missing b side", func(c *config.Config) { c.Input.EntryFeaturesB = filepath.Join(t.TempDir(), "absent.tsv") }, apperrors.ErrMissingInput},
		{"unknown measure", func(c *config.Config) { c.Measure.Name = "hamming" }, apperrors.ErrUnknownMeasure},
		{"bad charset", func(c *config.Config) { c.Input.Charset = "EBCDIC-9" }, apperrors.ErrUnsupportedCharset},
		{"no features file", func(c *config.Config) { c.Measure.Name = "lin" }, apperrors.ErrMissingInput},
		{"zero chunk", func(c *config.Config) { c.Engine.ChunkSize = 0 }, apperrors.ErrInvalidConfig},
		{"bad lee alpha", func(c *config.Config) { c.Measure.Name = "lee"; c.Measure.LeeAlpha = 1 }, apperrors.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, jaccardInput)
			tt.mutate(cfg)
			job, err := Prepare(context.Background(), cfg, Deps{})
			require.Error(t, err)
			assert.Nil(t, job)
			assert.ErrorIs(t, err, tt.want)
			var se *apperrors.StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, apperrors.StageSetup, se.Stage)
			assert.Equal(t, apperrors.ExitConfig, apperrors.ExitCode(err))
		})
	}
}

func TestPreflight(t *testing.T) {
	cfg := testConfig(t, jaccardInput)
	report := Preflight(context.Background(), cfg)
	assert.True(t, report.Healthy(), report.Failed())
	assert.Contains(t, report.Components, "input")

	cfg.Measure.Name = "hindle"
	cfg.Input.EntryFeaturesB = filepath.Join(t.TempDir(), "absent.tsv")
	report = Preflight(context.Background(), cfg)
	assert.Equal(t, []string{"config", "input-b"}, report.Failed())
}
