package providers

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryPolicy controls opt-in retries of transient failures.
// The zero value fails fast: one attempt, no backoff.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// attempts returns the total number of tries including the first.
func (p RetryPolicy) attempts() uint {
	if p.MaxRetries <= 0 {
		return 1
	}
	return uint(p.MaxRetries) + 1
}

// do runs fn under the policy and returns how many attempts were made.
func (p RetryPolicy) do(ctx context.Context, fn func() error) (int, error) {
	if p.MaxRetries <= 0 {
		return 1, fn()
	}
	delay := p.Delay
	if delay == 0 {
		delay = time.Second
	}

	attempts := 0
	err := retry.Do(
		func() error {
			attempts++
			return fn()
		},
		retry.Context(ctx),
		retry.Attempts(p.attempts()),
		retry.Delay(delay),
		retry.MaxDelay(30*time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.RetryIf(IsTransient),
		retry.LastErrorOnly(true),
	)
	return attempts, err
}
