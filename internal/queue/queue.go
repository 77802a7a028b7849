// Package queue is the on-device durable buffer between the location
// subsystem and the ingestion endpoint. One queue serves one tracker
// identity; samples drain oldest-first and never overtake an older
// unacknowledged sample.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/errors"

	"github.com/cenkalti/backoff/v4"
)

// ErrInvalidSample is returned for samples with out-of-range coordinates.
// Such samples are rejected at the door, never queued.
var ErrInvalidSample = errors.New("sample coordinates out of range")

// Sample is one raw position observation from the device.
type Sample struct {
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lng"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
	Source     string    `json:"source,omitempty"`
}

// Item wraps a sample with delivery metadata.
type Item struct {
	Sample        Sample     `json:"sample"`
	EnqueuedAt    time.Time  `json:"enqueued_at"`
	AttemptCount  int        `json:"attempt_count"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

// Config shapes the queue's pacing, retry, and drop policy.
type Config struct {
	// MinInterval is the client-side pacing window. Samples inside one
	// window coalesce to the latest; the server-side interval remains the
	// source of truth.
	MinInterval time.Duration

	// MaxAge is the horizon past which an undelivered sample is discarded.
	// A stale position has little operational value delivered late.
	MaxAge time.Duration

	// SendTimeout bounds each delivery attempt. Exceeding it counts as a
	// retryable failure, not a drop.
	SendTimeout time.Duration

	// BackoffInitial and BackoffMax shape the retry schedule.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Stats is the queue snapshot surfaced to the owning application.
type Stats struct {
	PendingCount    int        `json:"pending_count"`
	LastDeliveredAt *time.Time `json:"last_delivered_at,omitempty"`
	DeliveredCount  int        `json:"delivered_count"`
	DroppedCount    int        `json:"dropped_count"`
	Online          bool       `json:"online"`
	Paused          bool       `json:"paused"`
}

// Option customizes queue construction.
type Option func(*Queue)

// WithClock overrides the queue's time source.
func WithClock(clock func() time.Time) Option {
	return func(q *Queue) {
		q.clock = clock
	}
}

// WithReauthSignal registers a callback fired when a flush finds draining
// paused by an authentication failure. The owner refreshes the credential
// and calls Resume. The signal repeats on every flush while paused, so a
// refresh that fails is retried at the flush cadence.
func WithReauthSignal(fn func()) Option {
	return func(q *Queue) {
		q.onReauth = fn
	}
}

// Queue buffers samples and drains them to a Sender. All state is guarded
// by one mutex; a flush requested while another is in progress sets a
// flush-again flag instead of running in parallel.
type Queue struct {
	cfg      Config
	sender   Sender
	store    Store
	logger   *slog.Logger
	clock    func() time.Time
	onReauth func()

	mu              sync.Mutex
	items           []Item
	lastDeliveredAt *time.Time
	deliveredCount  int
	droppedCount    int
	online          bool
	paused          bool
	flushing        bool
	flushAgain      bool
	inflight        bool
	nextAttemptAt   time.Time

	retry *backoff.ExponentialBackOff
}

// New restores the queue from its store and returns it ready to run.
func New(ctx context.Context, cfg Config, sender Sender, store Store, logger *slog.Logger, opts ...Option) (*Queue, error) {
	retry := backoff.NewExponentialBackOff()
	if cfg.BackoffInitial > 0 {
		retry.InitialInterval = cfg.BackoffInitial
	}
	if cfg.BackoffMax > 0 {
		retry.MaxInterval = cfg.BackoffMax
	}
	retry.MaxElapsedTime = 0 // Items expire by age, never by elapsed retry time.
	retry.Reset()

	q := &Queue{
		cfg:    cfg,
		sender: sender,
		store:  store,
		logger: logger,
		clock:  time.Now,
		online: true,
		retry:  retry,
	}
	for _, opt := range opts {
		opt(q)
	}

	state, err := store.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to restore queue state")
	}
	q.items = state.Items
	q.lastDeliveredAt = state.LastDeliveredAt
	q.deliveredCount = state.DeliveredCount
	q.droppedCount = state.DroppedCount

	return q, nil
}

// Enqueue validates and buffers one sample. When the newest buffered sample
// is inside the same pacing window, the new sample supersedes it so queue
// growth stays bounded; older windows are never touched, preserving order.
func (q *Queue) Enqueue(ctx context.Context, sample Sample) error {
	if !entity.ValidCoordinates(sample.Latitude, sample.Longitude) {
		q.logger.Warn("rejecting sample with invalid coordinates",
			slog.Float64("lat", sample.Latitude),
			slog.Float64("lng", sample.Longitude),
		)

		return ErrInvalidSample
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock()
	if sample.CapturedAt.IsZero() {
		sample.CapturedAt = now
	}

	if n := len(q.items); n > 0 {
		last := &q.items[n-1]
		withinWindow := sample.CapturedAt.Sub(last.Sample.CapturedAt) < q.cfg.MinInterval
		headInFlight := n == 1 && q.inflight
		if withinWindow && !headInFlight {
			last.Sample = sample
			last.EnqueuedAt = now
			last.AttemptCount = 0
			last.LastAttemptAt = nil
			q.persistLocked(ctx)

			return nil
		}
	}

	q.items = append(q.items, Item{Sample: sample, EnqueuedAt: now})
	q.persistLocked(ctx)

	return nil
}

// SetOnline records connectivity. The offline-to-online transition triggers
// a flush.
func (q *Queue) SetOnline(ctx context.Context, online bool) {
	q.mu.Lock()
	wasOnline := q.online
	q.online = online
	q.mu.Unlock()

	if online && !wasOnline {
		q.Flush(ctx, "online")
	}
}

// Resume clears the reauthentication pause and restarts draining. Called by
// the owner after installing a fresh credential on the sender.
func (q *Queue) Resume(ctx context.Context) {
	q.mu.Lock()
	q.paused = false
	q.retry.Reset()
	q.nextAttemptAt = time.Time{}
	q.mu.Unlock()

	q.Flush(ctx, "resume")
}

// Flush drains queued items oldest-first. A flush requested while one is in
// progress is coalesced into a single follow-up pass.
func (q *Queue) Flush(ctx context.Context, reason string) {
	q.mu.Lock()
	if q.flushing {
		q.flushAgain = true
		q.mu.Unlock()

		return
	}
	q.flushing = true
	q.mu.Unlock()

	q.logger.Debug("flushing queue", slog.String("reason", reason))

	for {
		q.drain(ctx)

		q.mu.Lock()
		if !q.flushAgain {
			q.flushing = false
			q.mu.Unlock()

			return
		}
		q.flushAgain = false
		q.mu.Unlock()
	}
}

// Run operates the periodic flush timer until the context ends. The tick is
// half the pacing window so one missed tick never stretches the reporting
// gap to two windows.
func (q *Queue) Run(ctx context.Context) error {
	interval := q.cfg.MinInterval / 2
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			q.mu.Lock()
			q.persistLocked(context.WithoutCancel(ctx))
			q.mu.Unlock()

			return ctx.Err()
		case <-ticker.C:
			q.Flush(ctx, "timer")
		}
	}
}

// Stats returns the queue snapshot for the owning application.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Stats{
		PendingCount:    len(q.items),
		LastDeliveredAt: q.lastDeliveredAt,
		DeliveredCount:  q.deliveredCount,
		DroppedCount:    q.droppedCount,
		Online:          q.online,
		Paused:          q.paused,
	}
}

// drain delivers items until the queue empties or a stop condition holds:
// offline, paused, backoff gate, or the first retryable failure. Stopping at
// the first failure is what keeps delivery FIFO. A paused drain fires the
// reauth signal before returning, each time, until Resume clears the pause.
func (q *Queue) drain(ctx context.Context) {
	for {
		q.mu.Lock()
		now := q.clock()
		q.dropStaleLocked(ctx, now)

		if q.paused {
			fire := q.onReauth
			q.mu.Unlock()

			if fire != nil {
				fire()
			}

			return
		}

		if !q.online || len(q.items) == 0 || now.Before(q.nextAttemptAt) {
			q.mu.Unlock()

			return
		}

		item := q.items[0]
		q.inflight = true
		q.mu.Unlock()

		sendCtx := ctx
		var cancel context.CancelFunc
		if q.cfg.SendTimeout > 0 {
			sendCtx, cancel = context.WithTimeout(ctx, q.cfg.SendTimeout)
		}
		result, err := q.sender.Send(sendCtx, item.Sample)
		if cancel != nil {
			cancel()
		}

		q.mu.Lock()
		q.inflight = false

		if err != nil {
			q.items[0].AttemptCount++
			attemptAt := q.clock()
			q.items[0].LastAttemptAt = &attemptAt

			delay := q.retry.NextBackOff()
			q.nextAttemptAt = attemptAt.Add(delay)
			q.logger.Warn("delivery attempt failed",
				slog.Int("attempt", q.items[0].AttemptCount),
				slog.Duration("retryIn", delay),
				slog.Any("error", err),
			)
			q.persistLocked(ctx)
			q.mu.Unlock()

			return
		}

		q.applyResultLocked(ctx, result)
		q.mu.Unlock()
	}
}

func (q *Queue) applyResultLocked(ctx context.Context, result *SendResult) {
	switch result.Outcome {
	case OutcomeAccepted:
		q.items = q.items[1:]
		deliveredAt := q.clock()
		q.lastDeliveredAt = &deliveredAt
		q.deliveredCount++
		q.retry.Reset()
		q.nextAttemptAt = time.Time{}
	case OutcomeTooFrequent:
		// Expected policy outcome. The sample is obsolete, not failed;
		// discard it and defer draining until the server's window opens.
		q.items = q.items[1:]
		q.droppedCount++
		q.retry.Reset()
		if result.NextAllowedAt != nil {
			q.nextAttemptAt = *result.NextAllowedAt
		}
	case OutcomeRejected:
		q.items = q.items[1:]
		q.droppedCount++
		q.logger.Warn("server rejected sample permanently, dropping")
	case OutcomeUnauthorized:
		q.paused = true
		q.logger.Warn("delivery unauthorized, pausing until reauthentication")
	}

	q.persistLocked(ctx)
}

// dropStaleLocked discards samples older than the configured horizon.
func (q *Queue) dropStaleLocked(ctx context.Context, now time.Time) {
	if q.cfg.MaxAge <= 0 || len(q.items) == 0 {
		return
	}

	kept := q.items[:0]
	dropped := 0
	for _, item := range q.items {
		if now.Sub(item.Sample.CapturedAt) > q.cfg.MaxAge {
			dropped++
			q.logger.Warn("dropping stale sample",
				slog.Time("capturedAt", item.Sample.CapturedAt),
				slog.Int("attempts", item.AttemptCount),
			)

			continue
		}
		kept = append(kept, item)
	}

	if dropped > 0 {
		q.items = kept
		q.droppedCount += dropped
		q.persistLocked(ctx)
	}
}

func (q *Queue) persistLocked(ctx context.Context) {
	state := &State{
		Items:           q.items,
		LastDeliveredAt: q.lastDeliveredAt,
		DeliveredCount:  q.deliveredCount,
		DroppedCount:    q.droppedCount,
	}

	if err := q.store.Save(ctx, state); err != nil {
		q.logger.Error("failed to persist queue state", slog.Any("error", err))
	}
}
