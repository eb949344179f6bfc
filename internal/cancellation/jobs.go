package cancellation

import (
	"context"
	"time"

	"transigo/internal/bookings"
	"transigo/pkg/logger"
)

// JobProcessor runs the background expiry sweep: a booking left
// payment-pending past the configured TTL is cancelled through the same
// workflow as a user cancel, freeing its seat.
type JobProcessor struct {
	service     Service
	bookingRepo bookings.Repository
	config      *JobConfig
	done        chan struct{}
	log         *logger.Logger
}

// JobConfig contains configuration for the expiry sweep
type JobConfig struct {
	SweepInterval     time.Duration
	PendingPaymentTTL time.Duration
	BatchSize         int
}

// DefaultJobConfig returns default job configuration
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		SweepInterval:     1 * time.Minute,
		PendingPaymentTTL: 15 * time.Minute,
		BatchSize:         100,
	}
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(service Service, bookingRepo bookings.Repository, config *JobConfig) *JobProcessor {
	if config == nil {
		config = DefaultJobConfig()
	}

	return &JobProcessor{
		service:     service,
		bookingRepo: bookingRepo,
		config:      config,
		done:        make(chan struct{}),
		log:         logger.GetDefault(),
	}
}

// Start starts the expiry sweep loop
func (jp *JobProcessor) Start(ctx context.Context) {
	go jp.runSweeper(ctx)
}

// Stop stops the expiry sweep loop
func (jp *JobProcessor) Stop() {
	close(jp.done)
}

func (jp *JobProcessor) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(jp.config.SweepInterval)
	defer ticker.Stop()

	jp.log.Info("Expiry sweeper started",
		"interval", jp.config.SweepInterval.String(),
		"pending_ttl", jp.config.PendingPaymentTTL.String(),
	)

	for {
		select {
		case <-ticker.C:
			jp.SweepOnce(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// SweepOnce processes one batch of overdue pending bookings. Exported so an
// operator task can trigger a sweep outside the ticker.
func (jp *JobProcessor) SweepOnce(ctx context.Context) {
	cutoff := time.Now().Add(-jp.config.PendingPaymentTTL)

	expired, err := jp.bookingRepo.GetExpiredPending(ctx, cutoff, jp.config.BatchSize)
	if err != nil {
		jp.log.ErrorWithContext(ctx, "expiry sweep query failed", err, nil)
		return
	}

	cancelled := 0
	for i := range expired {
		if _, err := jp.service.Cancel(ctx, expired[i].ID, ActorExpiry, "pending payment expired"); err != nil {
			// A single stuck booking must not stop the batch
			jp.log.ErrorWithContext(ctx, "failed to cancel expired booking", err,
				map[string]interface{}{"booking_id": expired[i].ID.String()})
			continue
		}
		cancelled++
	}

	jp.log.LogExpirySweep(ctx, len(expired), cancelled)
}
