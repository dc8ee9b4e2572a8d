package oracle

import (
	"context"
	"strings"
	"time"

	"github.com/sfioritto/inbox-triage/pkg/errors"
	"github.com/sfioritto/inbox-triage/pkg/logging"
)

// transientSignatures are the substrings that mark an oracle failure as
// rate/quota related and therefore retryable.
var transientSignatures = []string{"429", "rate", "quota"}

// IsTransient reports whether an error looks like a rate-limit or quota
// failure. The match is on the error text because provider SDKs do not
// agree on typed errors for throttling.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// RetryPolicy retries an operation on transient failures with exponential
// backoff. It is the single place in the pipeline that distinguishes
// retryable from fatal oracle failures.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// BaseDelay is the first backoff delay; attempt n waits
	// BaseDelay * 2^n.
	BaseDelay time.Duration

	// Transient classifies errors as retryable. Defaults to IsTransient.
	Transient func(error) bool

	// Sleep waits for the backoff delay. Injectable for tests; defaults
	// to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy mirrors the canonical tuning: three retries starting
// at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.Canceled, "context canceled during retry backoff")
	case <-time.After(d):
		return nil
	}
}

// Do runs op, retrying transient failures until the retry budget runs out.
// Non-transient failures return immediately. The original error is always
// preserved in the chain.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	transient := p.Transient
	if transient == nil {
		transient = IsTransient
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	logger := logging.GetLogger()

	for attempt := 0; ; attempt++ {
		if err := errors.CheckContext(ctx, "oracle call"); err != nil {
			return err
		}

		err := op()
		if err == nil {
			return nil
		}
		if !transient(err) {
			return err
		}
		if attempt >= p.MaxRetries {
			return errors.WithFields(
				errors.Wrap(err, errors.RateLimitExceeded, "retry budget exhausted"),
				errors.Fields{"attempts": attempt + 1})
		}

		delay := p.BaseDelay << attempt
		logger.Warn(ctx, "transient oracle failure (attempt %d/%d), backing off %s: %v",
			attempt+1, p.MaxRetries+1, delay, err)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}
