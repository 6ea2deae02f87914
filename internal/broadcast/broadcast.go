// Package broadcast fans a text message out to every registered user.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"kino-bot/internal/metrics"
)

// Recipients lists the ids to deliver to, in delivery order.
type Recipients interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// Deliverer sends one message to one user.
type Deliverer interface {
	DeliverText(ctx context.Context, chatID int64, text string) error
}

// Result is the aggregate outcome of one broadcast run.
type Result struct {
	JobID    string
	Total    int
	Sent     int
	Failed   int
	Duration time.Duration
}

// Broadcaster delivers messages sequentially with a pause between sends.
type Broadcaster struct {
	recipients Recipients
	deliverer  Deliverer
	delay      time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New returns a Broadcaster pausing delay between consecutive sends.
func New(recipients Recipients, deliverer Deliverer, delay time.Duration, metricRegistry *metrics.Metrics, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		recipients: recipients,
		deliverer:  deliverer,
		delay:      delay,
		metrics:    metricRegistry,
		logger:     logger.With("component", "broadcast"),
	}
}

// Run sends text to every recipient. Individual failures are counted and
// skipped. If ctx ends mid-run the undelivered remainder counts as failed,
// so Sent+Failed always equals Total.
func (b *Broadcaster) Run(ctx context.Context, text string) (Result, error) {
	res := Result{JobID: uuid.NewString()}
	started := time.Now()
	logger := b.logger.With("job_id", res.JobID)

	ids, err := b.recipients.ListUserIDs(ctx)
	if err != nil {
		b.metrics.IncError("broadcast")
		return res, fmt.Errorf("list recipients: %w", err)
	}
	res.Total = len(ids)
	logger.Info("broadcast started", "recipients", res.Total)

	for i, id := range ids {
		if i > 0 {
			if err := b.pause(ctx); err != nil {
				res.Failed += len(ids) - i
				b.metrics.IncError("broadcast")
				logger.Warn("broadcast interrupted", "delivered", res.Sent, "remaining", len(ids)-i, "error", err)
				break
			}
		}
		if err := b.deliverer.DeliverText(ctx, id, text); err != nil {
			res.Failed++
			b.metrics.IncDelivery("failed")
			logger.Debug("broadcast delivery failed", "user_id", id, "error", err)
			continue
		}
		res.Sent++
		b.metrics.IncDelivery("sent")
	}

	res.Duration = time.Since(started)
	logger.Info("broadcast finished", "total", res.Total, "sent", res.Sent, "failed", res.Failed, "duration", res.Duration)
	return res, nil
}

func (b *Broadcaster) pause(ctx context.Context) error {
	if b.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(b.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
