package allpairs

import (
	"context"
	"errors"
	"io"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/redis"
)

// connectExports opens the Redis and PostgreSQL exports enabled in the
// config. Their clients are closed by Job.Close.
func (j *Job) connectExports(ctx context.Context) error {
	cfg := j.cfg
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return err
		}
		j.clients = append(j.clients, client)
		j.exports = append(j.exports, sink.NewRedis(client, j.tables.Entries, cfg.Redis.KeyPrefix, cfg.Redis.TTL, cfg.Redis.BatchSize))
		j.logger.Info("redis export enabled", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.KeyPrefix)
	}
	if cfg.Postgres.Enabled {
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return err
		}
		j.clients = append(j.clients, client)
		s, err := sink.NewPostgres(ctx, client, j.tables.Entries, cfg.Postgres.Table, cfg.Postgres.BatchSize)
		if err != nil {
			return err
		}
		j.exports = append(j.exports, s)
		j.logger.Info("postgres export enabled", "host", cfg.Postgres.Host, "table", cfg.Postgres.Table)
	}
	return nil
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
