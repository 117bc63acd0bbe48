package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/allpairs/pkg/resilience"
)

type flakyPublisher struct {
	failures int
	events   []kafka.Event
	calls    int
}

func (f *flakyPublisher) Publish(_ context.Context, ev kafka.Event) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("broker unavailable")
	}
	f.events = append(f.events, ev)
	return nil
}

func fastNotifier(pub Publisher) *Notifier {
	n := New(pub)
	n.retry = resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
	return n
}

func TestSendRetries(t *testing.T) {
	pub := &flakyPublisher{failures: 2}
	ok := fastNotifier(pub).Send(context.Background(), RunEvent{RunID: "r1", Status: StatusCompleted, Pairs: 7})
	assert.True(t, ok)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "r1", pub.events[0].Key)

	ev, isEvent := pub.events[0].Value.(RunEvent)
	require.True(t, isEvent)
	assert.Equal(t, int64(7), ev.Pairs)
	assert.False(t, ev.Time.IsZero())
}

func TestSendGivesUpQuietly(t *testing.T) {
	pub := &flakyPublisher{failures: 10}
	ok := fastNotifier(pub).Send(context.Background(), RunEvent{RunID: "r2", Status: StatusFailed})
	assert.False(t, ok)
	assert.Equal(t, 3, pub.calls)
}

func TestNilNotifier(t *testing.T) {
	var n *Notifier
	assert.False(t, n.Send(context.Background(), RunEvent{RunID: "r3"}))
}
