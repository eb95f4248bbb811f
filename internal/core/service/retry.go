package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gary-backend/auth-service/internal/core/domain"
	"github.com/gary-backend/auth-service/internal/pkg/metrics"
)

// RetryPolicy bounds how often a transient store failure is retried.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy is used when a zero policy is supplied.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 50 * time.Millisecond}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetryPolicy.Attempts
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	return p
}

// do runs fn until it succeeds, fails with a non-transient error, or the
// attempts are exhausted. Only errors wrapping domain.ErrStoreUnavailable are
// retried; the backoff grows linearly with the attempt number.
func (p RetryPolicy) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	p = p.normalized()

	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, domain.ErrStoreUnavailable) {
			return err
		}
		if attempt == p.Attempts {
			break
		}
		metrics.StoreRetriesTotal.WithLabelValues(op).Inc()

		timer := time.NewTimer(time.Duration(attempt) * p.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", op, domain.ErrStoreUnavailable)
		case <-timer.C:
		}
	}
	return fmt.Errorf("%s: %w", op, domain.ErrStoreUnavailable)
}

// retryValue is do for operations that return a value.
func retryValue[T any](ctx context.Context, p RetryPolicy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
