package indexing

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rx3lixir/event-listing/internal/opensearch/client"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

// RetryLogic повторяет запросы к индексу с экспоненциальной задержкой и джиттером.
// Ответы 4xx (кроме 429) не повторяются: документ от этого не станет валиднее.
type RetryLogic struct {
	attempts   int
	baseDelay  time.Duration
	maxDelay   time.Duration
	attemptTTL time.Duration
	logger     logger.Logger
}

func NewRetryLogic(logger logger.Logger) *RetryLogic {
	return &RetryLogic{
		attempts:   3,
		baseDelay:  time.Second,
		maxDelay:   30 * time.Second,
		attemptTTL: 30 * time.Second,
		logger:     logger,
	}
}

// WithMaxRetries задает число попыток.
func (r *RetryLogic) WithMaxRetries(n int) *RetryLogic {
	if n > 0 {
		r.attempts = n
	}
	return r
}

// WithBaseDelay задает задержку перед второй попыткой.
func (r *RetryLogic) WithBaseDelay(d time.Duration) *RetryLogic {
	r.baseDelay = d
	return r
}

// Do вызывает op, пока она не вернет nil, неповторяемую ошибку или не кончатся попытки.
// Каждая попытка получает свой таймаут.
func (r *RetryLogic) Do(ctx context.Context, name string, op func(context.Context) error) error {
	var err error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTTL)
		err = op(attemptCtx)
		cancel()

		if err == nil {
			if attempt > 1 {
				r.logger.Info("OpenSearch operation recovered", "operation", name, "attempt", attempt)
			}
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == r.attempts {
			break
		}

		delay := r.backoff(attempt)
		r.logger.Warn("OpenSearch operation failed, retrying",
			"operation", name,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, r.attempts, err)
}

// backoff: baseDelay * 2^(attempt-1) ±25%, не больше maxDelay.
func (r *RetryLogic) backoff(attempt int) time.Duration {
	d := r.baseDelay << (attempt - 1)
	if d <= 0 || d > r.maxDelay {
		d = r.maxDelay
	}
	jitter := time.Duration((rand.Float64() - 0.5) * 0.5 * float64(d))
	return d + jitter
}

func retryable(err error) bool {
	if isItemsError(err) {
		return false
	}
	var se *client.StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return !errors.Is(err, context.Canceled)
}
