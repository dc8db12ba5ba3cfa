// Package retry runs a solve attempt up to a bounded number of times,
// pausing between attempts for a duration chosen by the failure kind.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahrav/examsolve/internal/llm/configuration"
	llmerrors "github.com/ahrav/examsolve/internal/llm/errors"
)

var (
	errMaxAttemptsInvalid = errors.New("maxAttempts must be greater than 0")
	errWaitInvalid        = errors.New("retry waits must be >= 0")
	errSleeperRequired    = errors.New("sleeper is required")

	// ErrExhausted is returned once every attempt has failed.
	ErrExhausted = errors.New("all retries exhausted")
)

// Sleeper pauses for d or until ctx is done, whichever comes first.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Policy bounds attempts and assigns a wait to each failure kind.
type Policy struct {
	MaxAttempts    int
	RateLimitWait  time.Duration
	ParseErrorWait time.Duration
	DefaultWait    time.Duration
}

// PolicyFromConfig builds a Policy from run configuration.
func PolicyFromConfig(cfg configuration.RetryConfig) Policy {
	return Policy{
		MaxAttempts:    cfg.MaxAttempts,
		RateLimitWait:  cfg.RateLimitWait,
		ParseErrorWait: cfg.ParseErrorWait,
		DefaultWait:    cfg.DefaultWait,
	}
}

// Validate checks the policy bounds.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("%w, got %d", errMaxAttemptsInvalid, p.MaxAttempts)
	}
	if p.RateLimitWait < 0 || p.ParseErrorWait < 0 || p.DefaultWait < 0 {
		return errWaitInvalid
	}
	return nil
}

// WaitFor returns the pause taken after a failure of type t. API key and
// network failures share the default wait with anything unclassified.
func (p Policy) WaitFor(t llmerrors.ErrorType) time.Duration {
	switch t {
	case llmerrors.ErrorTypeRateLimit:
		return p.RateLimitWait
	case llmerrors.ErrorTypeParse:
		return p.ParseErrorWait
	default:
		return p.DefaultWait
	}
}

// Attempt describes one failed attempt. Wait is zero when no further
// attempt follows.
type Attempt struct {
	Number int
	Err    *llmerrors.SolveError
	Wait   time.Duration
	Final  bool
}

// Observer is notified after every failed attempt.
type Observer func(Attempt)

// Option configures a Retrier.
type Option func(*Retrier)

// WithLogger sets the logger used for attempt failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Retrier) { r.logger = l }
}

// WithObserver registers fn to be called after each failed attempt.
func WithObserver(fn Observer) Option {
	return func(r *Retrier) { r.observers = append(r.observers, fn) }
}

// Retrier executes an operation under a Policy.
type Retrier struct {
	policy    Policy
	sleeper   Sleeper
	logger    *slog.Logger
	observers []Observer
	stats     *retryStats
}

// New creates a Retrier. The sleeper performs every wait so tests can
// substitute a fake clock.
func New(policy Policy, sleeper Sleeper, opts ...Option) (*Retrier, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if sleeper == nil {
		return nil, errSleeperRequired
	}

	r := &Retrier{
		policy:  policy,
		sleeper: sleeper,
		logger:  slog.Default().With("component", "retry"),
		stats:   &retryStats{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Policy returns the policy the Retrier enforces.
func (r *Retrier) Policy() Policy { return r.policy }

// Do calls op until it succeeds, fails with a non-retryable error, or the
// attempt bound is reached. There is no wait after the final attempt.
//
// When ctx is cancelled during an attempt or a wait, Do returns an error
// wrapping ctx.Err() so callers can tell interruption from failure. A
// non-retryable failure is returned as its *SolveError. Exhaustion wraps
// ErrExhausted and the last classified error.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}

	var lastErr *llmerrors.SolveError
	maxAttempts := r.policy.MaxAttempts

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		r.stats.totalAttempts.Add(1)
		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				r.stats.successfulRetries.Add(1)
				r.logger.Info("succeeded after retry", "attempt", attempt)
			} else {
				r.stats.successfulFirstAttempts.Add(1)
			}
			return nil
		}

		// A failure caused by interruption is not a solve failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("retry: attempt %d: %w", attempt, ctxErr)
		}

		lastErr = llmerrors.Classify(err)

		if !lastErr.IsRetryable() {
			r.stats.nonRetryable.Add(1)
			r.notify(Attempt{Number: attempt, Err: lastErr, Final: true})
			r.logger.Warn("non-retryable error",
				"attempt", attempt,
				"error_type", lastErr.Type,
				"error", lastErr.Message)
			return lastErr
		}

		if attempt == maxAttempts {
			r.notify(Attempt{Number: attempt, Err: lastErr, Final: true})
			break
		}

		wait := r.policy.WaitFor(lastErr.Type)
		r.recordWait(wait)
		r.notify(Attempt{Number: attempt, Err: lastErr, Wait: wait})
		r.logger.Warn("attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error_type", lastErr.Type,
			"wait", wait,
			"hint", lastErr.Type.Describe(),
			"error", lastErr.Message)

		if err := r.sleeper.Sleep(ctx, wait); err != nil {
			return fmt.Errorf("retry: waiting after attempt %d: %w", attempt, err)
		}
	}

	r.stats.failedRetries.Add(1)
	r.logger.Error("all attempts failed",
		"attempts", maxAttempts,
		"error_type", lastErr.Type,
		"error", lastErr.Message)
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, maxAttempts, lastErr)
}

func (r *Retrier) notify(a Attempt) {
	for _, fn := range r.observers {
		fn(a)
	}
}
