// Package notify publishes run lifecycle events (started, completed, failed)
// so downstream consumers can pick up finished similarity files. Publishing
// is best effort: a failed notification is logged and never fails the run.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/resilience"
)

const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Publisher is the part of the Kafka producer the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// RunEvent is the JSON payload of every notification.
type RunEvent struct {
	RunID      string    `json:"run_id"`
	Status     string    `json:"status"`
	Measure    string    `json:"measure"`
	Input      string    `json:"input"`
	Output     string    `json:"output"`
	Chunks     int       `json:"chunks,omitempty"`
	Pairs      int64     `json:"pairs,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Stage      string    `json:"stage,omitempty"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

// Notifier sends run events with retry. A nil Notifier drops every event.
type Notifier struct {
	pub     Publisher
	retry   resilience.RetryConfig
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Notifier that publishes through pub with the default retry
// policy.
func New(pub Publisher) *Notifier {
	return &Notifier{
		pub:     pub,
		retry:   resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond},
		timeout: 5 * time.Second,
		logger:  slog.Default().With("component", "notifier"),
	}
}

// Send publishes ev keyed by its run id and reports whether it was
// delivered.
func (n *Notifier) Send(ctx context.Context, ev RunEvent) bool {
	if n == nil {
		return false
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	err := resilience.Retry(ctx, "publish run event", n.retry, func() error {
		return resilience.WithTimeout(ctx, n.timeout, "publish run event", func(ctx context.Context) error {
			return n.pub.Publish(ctx, kafka.Event{Key: ev.RunID, Value: ev})
		})
	})
	if err != nil {
		n.logger.Warn("run event not delivered", "run_id", ev.RunID, "status", ev.Status, "error", err)
		return false
	}
	n.logger.Debug("run event delivered", "run_id", ev.RunID, "status", ev.Status)
	return true
}
