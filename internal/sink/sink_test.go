package sink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/codec"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/intern"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/redis"
)

func samplePairs(tbl *intern.Table) []vector.WeightedPair {
	p := func(a, b string, w float64) vector.WeightedPair {
		return vector.WeightedPair{Record: vector.TokenPair{ID1: tbl.Intern(a), ID2: tbl.Intern(b)}, Weight: w}
	}
	return []vector.WeightedPair{p("a", "b", 0.5), p("a", "c", 1), p("b", "a", 0.25)}
}

type fakeZAdder struct {
	batches [][]redis.Member
	ttl     time.Duration
	err     error
}

func (f *fakeZAdder) ZAddBatch(_ context.Context, members []redis.Member, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, append([]redis.Member(nil), members...))
	f.ttl = ttl
	return nil
}

type recordingSink struct {
	name   string
	pairs  []vector.WeightedPair
	closed bool
	err    error
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Write(_ context.Context, p vector.WeightedPair) error {
	if r.err != nil {
		return r.err
	}
	r.pairs = append(r.pairs, p)
	return nil
}

func (r *recordingSink) Close(context.Context) error {
	r.closed = true
	return r.err
}

func sinkWrites(t *testing.T, m *metrics.Metrics, sink string) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "allpairs_sink_writes_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "sink" && label.GetValue() == sink {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestFileSink(t *testing.T) {
	ctx := context.Background()
	tbl := intern.NewTable()
	pairs := samplePairs(tbl)

	tests := []struct {
		name    string
		file    string
		compact bool
		want    string
	}{
		{"compact", "out.tsv", true, "a\tb\t0.5\tc\t1\nb\ta\t0.25\n"},
		{"verbose", "out.tsv", false, "a\tb\t0.5\na\tc\t1\nb\ta\t0.25\n"},
		{"compressed", "out.tsv.zst", true, "a\tb\t0.5\tc\t1\nb\ta\t0.25\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			f, err := NewFile(path, tbl, codec.UTF8, tt.compact)
			require.NoError(t, err)
			for _, p := range pairs {
				require.NoError(t, f.Write(ctx, p))
			}
			assert.Equal(t, int64(3), f.Count())
			require.NoError(t, f.Close(ctx))

			r, err := codec.OpenStream(path)
			require.NoError(t, err)
			defer r.Close()
			var sb strings.Builder
			_, err = sb.ReadFrom(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sb.String())
		})
	}
}

func TestRedisSinkBatches(t *testing.T) {
	ctx := context.Background()
	tbl := intern.NewTable()
	fake := &fakeZAdder{}
	s := NewRedis(fake, tbl, "sim:", time.Hour, 2)
	for _, p := range samplePairs(tbl) {
		require.NoError(t, s.Write(ctx, p))
	}
	require.Len(t, fake.batches, 1, "first batch flushed when full")
	require.NoError(t, s.Close(ctx))
	require.Len(t, fake.batches, 2)

	assert.Equal(t, []redis.Member{
		{Key: "sim:a", Member: "b", Score: 0.5},
		{Key: "sim:a", Member: "c", Score: 1},
	}, fake.batches[0])
	assert.Equal(t, []redis.Member{{Key: "sim:b", Member: "a", Score: 0.25}}, fake.batches[1])
	assert.Equal(t, time.Hour, fake.ttl)
}

func TestRedisSinkErrors(t *testing.T) {
	ctx := context.Background()
	tbl := intern.NewTable()
	boom := errors.New("down")
	s := NewRedis(&fakeZAdder{err: boom}, tbl, "sim:", 0, 1)
	assert.ErrorIs(t, s.Write(ctx, samplePairs(tbl)[0]), boom)

	unknown := vector.WeightedPair{Record: vector.TokenPair{ID1: 99, ID2: 0}}
	assert.Error(t, NewRedis(&fakeZAdder{}, tbl, "", 0, 1).Write(ctx, unknown))
}

func TestTee(t *testing.T) {
	ctx := context.Background()
	tbl := intern.NewTable()
	m := metrics.New()
	first, second := &recordingSink{name: "one"}, &recordingSink{name: "two"}
	tee := NewTee(m, first, second)

	pairs := samplePairs(tbl)
	require.NoError(t, tee.WriteAll(ctx, pairs))
	require.NoError(t, tee.Close(ctx))

	assert.Equal(t, pairs, first.pairs)
	assert.Equal(t, pairs, second.pairs)
	assert.True(t, first.closed)
	assert.True(t, second.closed)
	assert.Equal(t, 3.0, sinkWrites(t, m, "two"))
}

func TestTeeClosesEverySink(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	bad, good := &recordingSink{name: "bad", err: boom}, &recordingSink{name: "good"}
	tee := NewTee(nil, bad, good)

	err := tee.Write(ctx, vector.WeightedPair{})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, good.pairs)

	err = tee.Close(ctx)
	assert.ErrorIs(t, err, boom)
	assert.True(t, good.closed)
}

func TestRedisSinkLive(t *testing.T) {
	addr := os.Getenv("APSS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("APSS_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	cfg := config.Default().Redis
	cfg.Addr = addr
	client, err := redis.NewClient(cfg)
	require.NoError(t, err)
	defer client.Close()

	prefix := "apss-test:" + time.Now().Format("150405.000") + ":"
	defer client.FlushByPattern(ctx, prefix+"*")

	tbl := intern.NewTable()
	s := NewRedis(client, tbl, prefix, time.Minute, 10)
	for _, p := range samplePairs(tbl) {
		require.NoError(t, s.Write(ctx, p))
	}
	require.NoError(t, s.Close(ctx))

	got, err := client.ZRevRangeWithScores(ctx, prefix+"a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Member)
	assert.Equal(t, 1.0, got[0].Score)
}

func TestPostgresSinkLive(t *testing.T) {
	host := os.Getenv("APSS_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("APSS_TEST_POSTGRES_HOST not set")
	}
	ctx := context.Background()
	cfg := config.Default().Postgres
	cfg.Host = host
	client, err := postgres.New(cfg)
	require.NoError(t, err)
	defer client.Close()

	table := "apss_test_" + time.Now().Format("150405")
	defer client.DB.ExecContext(ctx, "DROP TABLE IF EXISTS "+table)

	tbl := intern.NewTable()
	s, err := NewPostgres(ctx, client, tbl, table, 2)
	require.NoError(t, err)
	for _, p := range samplePairs(tbl) {
		require.NoError(t, s.Write(ctx, p))
	}
	require.NoError(t, s.Close(ctx))

	var n int
	require.NoError(t, client.DB.QueryRowContext(ctx, "SELECT count(*) FROM "+table).Scan(&n))
	assert.Equal(t, 3, n)
}
