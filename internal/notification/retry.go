package notification

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fintrackhq/fintrack-backend/pkg/observability"
)

const (
	// MaxRetries caps how many times a failed notification is re-attempted
	// before it is left failed permanently.
	MaxRetries = 3
	// RetryDelay is the minimum gap between attempts for one notification.
	RetryDelay = 30 * time.Second
	// retryBatchSize bounds one pass over the failed backlog.
	retryBatchSize = 50
	// retryInterval is the sleep between passes.
	retryInterval = 5 * time.Second
)

// attempter is the slice of DeliveryCoordinator the scheduler needs.
type attempter interface {
	Attempt(ctx context.Context, n *Notification) (bool, error)
}

// RetryScheduler re-attempts delivery for notifications stuck in the failed
// state. A single loop runs at a time: it is started lazily by Kick on the
// first delivery failure and terminates itself once the backlog drains.
type RetryScheduler struct {
	store    Store
	delivery attempter
	logger   *observability.Logger

	running    atomic.Bool
	maxRetries int
	delay      time.Duration
	batchSize  int
	interval   time.Duration
}

func NewRetryScheduler(store Store, delivery attempter, logger *observability.Logger) *RetryScheduler {
	return &RetryScheduler{
		store:      store,
		delivery:   delivery,
		logger:     logger,
		maxRetries: MaxRetries,
		delay:      RetryDelay,
		batchSize:  retryBatchSize,
		interval:   retryInterval,
	}
}

// Kick starts the retry loop unless one is already running.
func (s *RetryScheduler) Kick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	go s.loop(ctx)
}

// Running reports whether a retry loop is currently active.
func (s *RetryScheduler) Running() bool {
	return s.running.Load()
}

func (s *RetryScheduler) loop(ctx context.Context) {
	s.logger.Info("retry scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.running.Store(false)
			return
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logger.Error("retry batch failed", "error", err)
		}
		// An empty batch does not mean the backlog is empty: a freshly failed
		// notification stays ineligible for the delay window. Stop only when
		// no retryable row exists at all; otherwise keep sleeping until one
		// becomes eligible.
		if processed == 0 && err == nil && !s.backlogRemains(ctx) {
			s.logger.Info("retry scheduler drained backlog, stopping")
			s.running.Store(false)
			// A failure may have been recorded after the empty listing and
			// before the flag flipped; re-check so its Kick is not lost.
			if s.backlogRemains(ctx) {
				s.Kick(ctx)
			}
			return
		}

		select {
		case <-ctx.Done():
			s.running.Store(false)
			return
		case <-time.After(s.interval):
		}
	}
}

// processBatch re-attempts one bounded batch of eligible failed
// notifications and returns how many it picked up.
func (s *RetryScheduler) processBatch(ctx context.Context) (int, error) {
	eligibleBefore := time.Now().UTC().Add(-s.delay)
	batch, err := s.store.ListRetryable(ctx, eligibleBefore, s.maxRetries, s.batchSize)
	if err != nil {
		return 0, err
	}
	RetryBacklog.Set(float64(len(batch)))

	for _, n := range batch {
		// The scheduler is the sole writer of retry_count/last_retry_at, so
		// attempts for one notification are strictly sequential.
		if err := s.store.RecordRetryAttempt(ctx, n.ID); err != nil {
			s.logger.Error("failed to record retry attempt", "notification_id", n.ID, "error", err)
			continue
		}
		n.RetryCount++

		delivered, err := s.delivery.Attempt(ctx, n)
		if err != nil {
			s.logger.Error("retry delivery errored", "notification_id", n.ID, "error", err)
		}
		if !delivered && n.RetryCount >= s.maxRetries {
			RetriesExhausted.Inc()
			s.logger.Warn("notification permanently failed",
				"notification_id", n.ID, "event", string(n.Event), "retries", n.RetryCount)
		}
	}
	return len(batch), nil
}

// backlogRemains reports whether any failed notification below the retry
// ceiling exists, eligible now or not.
func (s *RetryScheduler) backlogRemains(ctx context.Context) bool {
	batch, err := s.store.ListRetryable(ctx, time.Now().UTC(), s.maxRetries, 1)
	if err != nil {
		return false
	}
	return len(batch) > 0
}
