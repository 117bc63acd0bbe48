package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/intern"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/postgres"
)

type row struct {
	a, b string
	w    float64
}

// Postgres copies pairs into a (entry_a, entry_b, similarity) table. Each
// batch is streamed with COPY inside its own transaction.
type Postgres struct {
	client    *postgres.Client
	entries   intern.Interner
	table     string
	batchSize int
	buffer    []row
	written   int64
	logger    *slog.Logger
}

// NewPostgres creates the target table if needed.
func NewPostgres(ctx context.Context, client *postgres.Client, entries intern.Interner, table string, batchSize int) (*Postgres, error) {
	if err := client.EnsureSimilarityTable(ctx, table); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 5000
	}
	return &Postgres{
		client:    client,
		entries:   entries,
		table:     table,
		batchSize: batchSize,
		buffer:    make([]row, 0, batchSize),
		logger:    slog.Default().With("component", "postgres-sink", "table", table),
	}, nil
}

func (*Postgres) Name() string { return "postgres" }

func (s *Postgres) Write(ctx context.Context, p vector.WeightedPair) error {
	a, ok := s.entries.String(p.Record.ID1)
	if !ok {
		return fmt.Errorf("unknown entry id %d", p.Record.ID1)
	}
	b, ok := s.entries.String(p.Record.ID2)
	if !ok {
		return fmt.Errorf("unknown entry id %d", p.Record.ID2)
	}
	s.buffer = append(s.buffer, row{a: a, b: b, w: p.Weight})
	if len(s.buffer) >= s.batchSize {
		return s.flush(ctx)
	}
	return nil
}

func (s *Postgres) flush(ctx context.Context) error {
	if len(s.buffer) == 0 {
		return nil
	}
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := postgres.CopyStatement(ctx, tx, s.table, "entry_a", "entry_b", "similarity")
		if err != nil {
			return err
		}
		for _, r := range s.buffer {
			if _, err := stmt.ExecContext(ctx, r.a, r.b, r.w); err != nil {
				stmt.Close()
				return fmt.Errorf("copying row: %w", err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("finishing copy: %w", err)
		}
		return stmt.Close()
	})
	if err != nil {
		return err
	}
	s.written += int64(len(s.buffer))
	s.buffer = s.buffer[:0]
	return nil
}

func (s *Postgres) Close(ctx context.Context) error {
	if err := s.flush(ctx); err != nil {
		return err
	}
	s.logger.Info("postgres export finished", "pairs", s.written)
	return nil
}
