package queue

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/freelance-marketplace/internal/metrics"
	"github.com/iliyamo/freelance-marketplace/internal/repository"
)

// DefaultMaxAttempts is how many failed publishes an outbox row gets
// before the relay dead-letters it.
const DefaultMaxAttempts = 10

// OutboxRelay publishes pending outbox rows and marks them published.  A
// row whose publish fails stays pending and is retried on the next tick,
// so a broker outage never loses a committed notification.  A row that has
// failed MaxAttempts times is dead-lettered so it cannot hold back the rows
// behind it.
type OutboxRelay struct {
	Outbox      repository.OutboxRepository
	Publisher   Publisher
	BatchSize   int
	MaxAttempts int
	Interval    time.Duration
	Log         logrus.FieldLogger
	Now         func() time.Time
}

// RunOnce drains one batch and reports how many rows were published.  It
// stops at the first publish failure to keep rows in order, unless that
// failure dead-letters the row, in which case it moves on to the next one.
func (r *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}
	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	pending, err := r.Outbox.ListPending(ctx, limit)
	if err != nil {
		return 0, err
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	published := 0
	for _, row := range pending {
		if err := r.Publisher.Publish(ctx, EventFromOutbox(row)); err != nil {
			metrics.RecordOutbox("failed")
			attempts := row.Attempts + 1
			fields := logrus.Fields{"outbox_id": row.ID, "attempts": attempts}
			if markErr := r.Outbox.MarkAttempt(ctx, row.ID); markErr != nil {
				r.Log.WithError(markErr).WithFields(fields).Warn("outbox attempt not recorded")
			}
			if attempts < maxAttempts {
				r.Log.WithError(err).WithFields(fields).Warn("outbox publish failed")
				return published, err
			}
			// Out of attempts: park the row and keep the queue moving.
			if markErr := r.Outbox.MarkFailed(ctx, row.ID, now().UTC()); markErr != nil {
				r.Log.WithError(markErr).WithFields(fields).Error("outbox row not dead-lettered")
				return published, markErr
			}
			metrics.RecordOutbox("dead")
			r.Log.WithError(err).WithFields(fields).Error("outbox row dead-lettered")
			continue
		}
		if err := r.Outbox.MarkPublished(ctx, row.ID, now().UTC()); err != nil {
			return published, err
		}
		metrics.RecordOutbox("published")
		published++
	}
	return published, nil
}

// Run calls RunOnce every Interval until ctx is done.
func (r *OutboxRelay) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if n, err := r.RunOnce(ctx); err == nil && n > 0 {
			r.Log.WithField("published", n).Debug("outbox drained")
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
