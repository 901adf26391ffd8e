package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/repository/memory"
	"github.com/iliyamo/freelance-marketplace/internal/service"
)

type recordingPublisher struct {
	events []NotificationEvent
	failAt int // 1-based publish call that fails; 0 never fails
	calls  int
}

func (p *recordingPublisher) Publish(_ context.Context, ev NotificationEvent) error {
	p.calls++
	if p.calls == p.failAt {
		return errors.New("broker down")
	}
	p.events = append(p.events, ev)
	return nil
}

func enqueueN(t *testing.T, store *memory.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, store.Outbox().Enqueue(context.Background(), &model.OutboxMessage{
			EventID:     string(rune('a'+i)) + "-event",
			RecipientID: uint64(i + 1),
			Message:     "hello",
			Type:        model.NotificationApplicationReceived,
		}))
	}
}

func TestRelayPublishesAndMarks(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	enqueueN(t, store, 3)
	log, _ := test.NewNullLogger()
	pub := &recordingPublisher{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	r := &OutboxRelay{Outbox: store.Outbox(), Publisher: pub, Log: log, Now: func() time.Time { return at }}
	n, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, pub.events, 3)
	assert.Equal(t, "a-event", pub.events[0].EventID)
	assert.Equal(t, uint64(3), pub.events[2].RecipientID)

	pending, err := store.Outbox().ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err = r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelayStopsOnPublishFailureAndRetries(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	enqueueN(t, store, 3)
	log, _ := test.NewNullLogger()
	pub := &recordingPublisher{failAt: 2}

	r := &OutboxRelay{Outbox: store.Outbox(), Publisher: pub, Log: log}
	n, err := r.RunOnce(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, n)

	pending, err := store.Outbox().ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "b-event", pending[0].EventID)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Zero(t, pending[1].Attempts)

	n, err = r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRelayHonoursBatchSize(t *testing.T) {
	store := memory.New()
	enqueueN(t, store, 5)
	log, _ := test.NewNullLogger()
	pub := &recordingPublisher{}

	r := &OutboxRelay{Outbox: store.Outbox(), Publisher: pub, BatchSize: 2, Log: log}
	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSinkPublisherDeduplicates(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sink := service.NewNotificationService(store.Notifications())
	pub := SinkPublisher{Sink: sink}

	ev := NotificationEvent{EventID: "e-1", RecipientID: 7, Message: "hi", Type: model.NotificationNewMessage}
	require.NoError(t, pub.Publish(ctx, ev))
	require.NoError(t, pub.Publish(ctx, ev))

	got, err := sink.List(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hi", got[0].Message)
}

func TestRunStopsWithContext(t *testing.T) {
	store := memory.New()
	log, _ := test.NewNullLogger()
	r := &OutboxRelay{Outbox: store.Outbox(), Publisher: &recordingPublisher{}, Interval: time.Millisecond, Log: log}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

type failingPublisher struct{ poison string }

func (p failingPublisher) Publish(_ context.Context, ev NotificationEvent) error {
	if ev.EventID == p.poison {
		return errors.New("rejected by broker")
	}
	return nil
}

func TestRelayDeadLettersAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	enqueueN(t, store, 3)
	log, _ := test.NewNullLogger()

	r := &OutboxRelay{Outbox: store.Outbox(), Publisher: failingPublisher{poison: "a-event"}, MaxAttempts: 2, Log: log}

	n, err := r.RunOnce(ctx)
	require.Error(t, err)
	assert.Zero(t, n)
	pending, err := store.Outbox().ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, 1, pending[0].Attempts)

	// Second failure exhausts the row; the rows behind it go out.
	n, err = r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pending, err = store.Outbox().ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
