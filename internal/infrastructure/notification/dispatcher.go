package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/peg-league/internal/domain/notification"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
)

const defaultSendTimeout = 15 * time.Second

// Dispatcher hands confirmations to a bounded worker pool so a slow mail
// relay never holds up an admission response. Failures are logged.
type Dispatcher struct {
	next        notification.Notifier
	pool        *ants.Pool
	sendTimeout time.Duration
	logger      *logging.Logger
	inFlight    sync.WaitGroup
}

func NewDispatcher(next notification.Notifier, workers int, sendTimeout time.Duration, logger *logging.Logger) (*Dispatcher, error) {
	if next == nil {
		return nil, fmt.Errorf("dispatcher needs a notifier")
	}
	if workers < 1 {
		workers = 4
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}

	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create notification worker pool: %w", err)
	}

	return &Dispatcher{
		next:        next,
		pool:        pool,
		sendTimeout: sendTimeout,
		logger:      logger.Named("notification_dispatcher"),
	}, nil
}

// SendBookingConfirmation queues the message and returns at once. The send
// outlives the request context but keeps its values for tracing.
func (d *Dispatcher) SendBookingConfirmation(ctx context.Context, msg notification.Confirmation) error {
	detached := context.WithoutCancel(ctx)

	d.inFlight.Add(1)
	err := d.pool.Submit(func() {
		defer d.inFlight.Done()

		sendCtx, cancel := context.WithTimeout(detached, d.sendTimeout)
		defer cancel()

		if err := d.next.SendBookingConfirmation(sendCtx, msg); err != nil {
			d.logger.WarnContext(sendCtx, "booking confirmation failed",
				"competition_id", msg.CompetitionID,
				"competitor_id", msg.CompetitorID,
				"error", err,
			)
		}
	})
	if err != nil {
		d.inFlight.Done()
		return fmt.Errorf("queue booking confirmation: %w", err)
	}
	return nil
}

// Close waits for queued sends, up to timeout, then releases the pool.
func (d *Dispatcher) Close(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		d.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		d.logger.Warn("notification dispatcher closed with sends in flight", "running", d.pool.Running())
	}
	d.pool.Release()
}
