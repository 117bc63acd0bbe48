package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/intern"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/redis"
)

// ZAdder is the part of the Redis client the export needs.
type ZAdder interface {
	ZAddBatch(ctx context.Context, members []redis.Member, ttl time.Duration) error
}

// Redis exports every pair as a member of the sorted set <prefix><entryA>,
// scored by similarity, so each entry's neighbours can be read back ranked.
type Redis struct {
	client    ZAdder
	entries   intern.Interner
	prefix    string
	ttl       time.Duration
	batchSize int
	buffer    []redis.Member
	written   int64
	logger    *slog.Logger
}

func NewRedis(client ZAdder, entries intern.Interner, prefix string, ttl time.Duration, batchSize int) *Redis {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Redis{
		client:    client,
		entries:   entries,
		prefix:    prefix,
		ttl:       ttl,
		batchSize: batchSize,
		buffer:    make([]redis.Member, 0, batchSize),
		logger:    slog.Default().With("component", "redis-sink"),
	}
}

func (*Redis) Name() string { return "redis" }

func (r *Redis) Write(ctx context.Context, p vector.WeightedPair) error {
	a, ok := r.entries.String(p.Record.ID1)
	if !ok {
		return fmt.Errorf("unknown entry id %d", p.Record.ID1)
	}
	b, ok := r.entries.String(p.Record.ID2)
	if !ok {
		return fmt.Errorf("unknown entry id %d", p.Record.ID2)
	}
	r.buffer = append(r.buffer, redis.Member{Key: r.prefix + a, Member: b, Score: p.Weight})
	if len(r.buffer) >= r.batchSize {
		return r.flush(ctx)
	}
	return nil
}

func (r *Redis) flush(ctx context.Context) error {
	if len(r.buffer) == 0 {
		return nil
	}
	if err := r.client.ZAddBatch(ctx, r.buffer, r.ttl); err != nil {
		return err
	}
	r.written += int64(len(r.buffer))
	r.buffer = r.buffer[:0]
	return nil
}

func (r *Redis) Close(ctx context.Context) error {
	if err := r.flush(ctx); err != nil {
		return err
	}
	r.logger.Info("redis export finished", "pairs", r.written, "prefix", r.prefix)
	return nil
}
