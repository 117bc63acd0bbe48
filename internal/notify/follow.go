package notify

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/kafka"
)

// Subscriber is the part of the Kafka consumer Follow needs.
type Subscriber interface {
	Consume(ctx context.Context, fn kafka.Handler) error
}

// Follow decodes every run event delivered by sub and passes it to fn until
// ctx is cancelled. Undecodable messages are rejected and skipped.
func Follow(ctx context.Context, sub Subscriber, fn func(RunEvent) error) error {
	return sub.Consume(ctx, func(_ context.Context, _, value []byte) error {
		ev, err := kafka.DecodeJSON[RunEvent](value)
		if err != nil {
			return err
		}
		return fn(ev)
	})
}
