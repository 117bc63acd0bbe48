// Package redis provides a thin wrapper around go-redis/v9 used to export
// neighbour lists as sorted sets.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Client wraps a go-redis client.
type Client struct {
	rdb redis.UniversalClient
}

// Member is one scored sorted-set member.
type Member struct {
	Key    string
	Member string
	Score  float64
}

// NewClient creates a Redis client and verifies the connection with a PING.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// ZAddBatch adds every member in one pipeline round trip. A positive ttl
// refreshes the expiry of each touched key.
func (c *Client) ZAddBatch(ctx context.Context, members []Member, ttl time.Duration) error {
	if len(members) == 0 {
		return nil
	}
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		touched := make(map[string]struct{})
		for _, m := range members {
			pipe.ZAdd(ctx, m.Key, redis.Z{Score: m.Score, Member: m.Member})
			touched[m.Key] = struct{}{}
		}
		if ttl > 0 {
			for key := range touched {
				pipe.Expire(ctx, key, ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis pipeline of %d members: %w", len(members), err)
	}
	return nil
}

// ZRevRangeWithScores returns the members of key by descending score.
func (c *Client) ZRevRangeWithScores(ctx context.Context, key string) ([]Member, error) {
	zs, err := c.rdb.ZRevRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(zs))
	for _, z := range zs {
		out = append(out, Member{Key: key, Member: fmt.Sprint(z.Member), Score: z.Score})
	}
	return out, nil
}

// FlushByPattern scans for keys matching the glob pattern and deletes them,
// returning the number of keys removed.
func (c *Client) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("deleting key %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scanning pattern %s: %w", pattern, err)
	}
	return deleted, nil
}

// Close closes the underlying Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
