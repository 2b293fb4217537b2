package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// breakerTrips is the number of consecutive failures that opens the breaker.
const breakerTrips = 3

// Resilient guards a Completer with a rate limiter and a circuit breaker.
// While the breaker is open, calls fail fast with gobreaker.ErrOpenState.
type Resilient struct {
	next    Completer
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewResilient wraps next. requestsPerMinute <= 0 disables rate limiting.
func NewResilient(next Completer, requestsPerMinute int, cooldown time.Duration, logger *zap.Logger) *Resilient {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	log := logger.Named("breaker")
	return &Resilient{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    next.Name(),
			Timeout: cooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= breakerTrips
			},
			// a caller giving up says nothing about the provider
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state changed",
					zap.String("provider", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
	}
}

func (r *Resilient) Name() string { return r.next.Name() }

// Complete waits for the limiter, then calls through the breaker.
func (r *Resilient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.next.Complete(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}
