package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
)

// BreakerMailer stops calling a failing transport for a while so that a dead
// SMTP relay fails submissions fast instead of holding every request for the
// full send timeout. It never retries.
type BreakerMailer struct {
	next Mailer
	cb   circuitbreaker.CircuitBreaker[any]
}

var _ Mailer = (*BreakerMailer)(nil)

// NewBreakerMailer opens after threshold consecutive failures and probes
// again once delay has passed. onStateChange may be nil.
func NewBreakerMailer(next Mailer, threshold uint, delay time.Duration, onStateChange func(state string)) *BreakerMailer {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(threshold).
		WithDelay(delay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("circuit breaker state changed",
				"component", "smtp",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			if onStateChange != nil {
				onStateChange(e.NewState.String())
			}
		}).
		Build()

	return &BreakerMailer{next: next, cb: cb}
}

func (b *BreakerMailer) Send(ctx context.Context, msg Message) error {
	if !b.cb.TryAcquirePermit() {
		return fmt.Errorf("smtp circuit breaker open: %w", circuitbreaker.ErrOpen)
	}
	if err := b.next.Send(ctx, msg); err != nil {
		b.cb.RecordError(err)
		return err
	}
	b.cb.RecordSuccess()
	return nil
}

// State reports the current breaker state.
func (b *BreakerMailer) State() circuitbreaker.State {
	return b.cb.State()
}
