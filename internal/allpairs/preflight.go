package allpairs

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/measure"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/stats"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/allpairs/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/redis"
)

// Preflight probes everything a run with cfg would touch without reading
// any input: the config itself, the input files and the enabled backends.
func Preflight(ctx context.Context, cfg *config.Config) health.Report {
	c := health.NewChecker(5 * time.Second)
	c.Register("config", func(context.Context) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		spec, err := measure.Lookup(cfg.Measure.Name)
		if err != nil {
			return err
		}
		if stats.Needed(spec) && cfg.Input.Features == "" {
			return apperrors.Newf(apperrors.ErrMissingInput, "measure %s needs a feature frequency file", spec.Name)
		}
		return nil
	})
	if cfg.Input.EntryFeatures != "" {
		c.Register("input", health.Readable(cfg.Input.EntryFeatures))
	}
	if cfg.Input.EntryFeaturesB != "" {
		c.Register("input-b", health.Readable(cfg.Input.EntryFeaturesB))
	}
	if cfg.Input.Features != "" {
		c.Register("features", health.Readable(cfg.Input.Features))
	}
	if cfg.Redis.Enabled {
		c.Register("redis", func(context.Context) error {
			client, err := redis.NewClient(cfg.Redis)
			if err != nil {
				return err
			}
			return client.Close()
		})
	}
	if cfg.Postgres.Enabled {
		c.Register("postgres", func(context.Context) error {
			client, err := postgres.New(cfg.Postgres)
			if err != nil {
				return err
			}
			return client.Close()
		})
	}
	if cfg.Kafka.Enabled {
		c.Register("kafka", func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Kafka.Brokers)
		})
	}
	return c.Run(ctx)
}
