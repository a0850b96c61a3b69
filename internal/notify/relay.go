package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	defaultRelayInterval = 2 * time.Second
	defaultRelayBatch    = 100
)

// Outbox is the read side of the outbox consumed by the Relay.
type Outbox interface {
	Pending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkProcessed(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Publisher sends one payload to the broker.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Relay moves outbox rows to a Publisher. Delivery is at least once: a crash
// between Publish and MarkProcessed republishes the row.
type Relay struct {
	outbox    Outbox
	publisher Publisher
	interval  time.Duration
	batch     int
	logger    *slog.Logger
	metrics   *Metrics
}

type RelayOption func(*Relay)

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithRelayMetrics(m *Metrics) RelayOption {
	return func(r *Relay) {
		r.metrics = m
	}
}

func NewRelay(outbox Outbox, publisher Publisher, opts ...RelayOption) (*Relay, error) {
	if outbox == nil {
		return nil, errors.New("outbox is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	r := &Relay{
		outbox:    outbox,
		publisher: publisher,
		interval:  defaultRelayInterval,
		batch:     defaultRelayBatch,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run drains the outbox every interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.DrainOnce(ctx); err != nil && r.logger != nil && ctx.Err() == nil {
				r.logger.WarnContext(ctx, "outbox relay pass failed", "error", err)
			}
		}
	}
}

// DrainOnce publishes one batch in order and stops at the first failure so
// per-subject ordering is kept. Rows published before the failure are still
// marked processed.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	records, err := r.outbox.Pending(ctx, r.batch)
	if err != nil {
		return 0, err
	}

	published := make([]uuid.UUID, 0, len(records))
	var publishErr error
	for _, rec := range records {
		if err := r.publisher.Publish(ctx, rec.Key, rec.Payload); err != nil {
			publishErr = err
			r.metrics.incFailures()
			break
		}
		published = append(published, rec.ID)
	}

	if err := r.outbox.MarkProcessed(ctx, published, time.Now()); err != nil {
		return 0, errors.Join(publishErr, err)
	}
	r.metrics.addPublished(len(published))
	return len(published), publishErr
}
