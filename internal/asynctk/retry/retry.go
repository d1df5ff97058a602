// Package retry implements the Retry Policy of spec section 4.5: bounded
// exponential backoff with jitter around github.com/cenkalti/backoff/v4,
// configured through an explicit struct rather than backoff's
// package-level defaults.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/evildarkarchon/scanner111/internal/scanerrors"
)

// Policy configures bounded exponential backoff with multiplicative
// jitter in [0.5, 1.5] applied to each computed delay.
type Policy struct {
	MaxRetries  int
	InitialWait time.Duration
	Multiplier  float64
	MaxWait     time.Duration
}

// Default, Aggressive, and Conservative are the three presets named in
// spec section 4.5.
func Default() Policy {
	return Policy{MaxRetries: 3, InitialWait: time.Second, Multiplier: 2, MaxWait: 30 * time.Second}
}
func Aggressive() Policy {
	return Policy{MaxRetries: 5, InitialWait: 100 * time.Millisecond, Multiplier: 2, MaxWait: 5 * time.Second}
}
func Conservative() Policy {
	return Policy{MaxRetries: 2, InitialWait: 5 * time.Second, Multiplier: 1.5, MaxWait: time.Minute}
}

// ShouldRetryFunc decides whether an error returned by the operation is
// worth retrying. A nil func retries on any error.
type ShouldRetryFunc func(error) bool

// Execute runs op, retrying on failure per p up to MaxRetries additional
// attempts (N+1 total invocations for MaxRetries=N). Context cancellation
// aborts immediately without consuming a retry. A context.Canceled /
// context.DeadlineExceeded error from op is never retried, matching spec
// section 4.5's "OperationCanceledException is never retried".
func Execute(ctx context.Context, p Policy, op func(ctx context.Context) error, shouldRetry ShouldRetryFunc) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialWait
	eb.Multiplier = p.Multiplier
	eb.MaxInterval = p.MaxWait
	eb.MaxElapsedTime = 0 // bounded by WithMaxRetries, not elapsed time
	// Jitter is applied once, by withJitter.
	eb.RandomizationFactor = 0

	bounded := backoff.WithMaxRetries(eb, uint64(p.MaxRetries))
	// WithContext must be the outermost wrapper: backoff.Retry only
	// watches ctx during the wait when it is handed a context backoff.
	b := backoff.WithContext(withJitter(bounded), ctx)

	return backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(scanerrors.Wrap(scanerrors.KindCancelled, "retry.Execute", err))
		}
		err := op(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// withJitter wraps b so each NextBackOff() is scaled by a uniform factor
// in [0.5, 1.5), per spec section 4.5's jitter requirement. Execute turns
// off cenkalti/backoff's own randomization, so this is the only jitter.
func withJitter(b backoff.BackOff) backoff.BackOff {
	return &jitterBackoff{inner: b}
}

type jitterBackoff struct {
	inner backoff.BackOff
}

func (j *jitterBackoff) NextBackOff() time.Duration {
	d := j.inner.NextBackOff()
	if d == backoff.Stop {
		return backoff.Stop
	}
	factor := 0.5 + rand.Float64()
	return time.Duration(float64(d) * factor)
}

func (j *jitterBackoff) Reset() { j.inner.Reset() }
