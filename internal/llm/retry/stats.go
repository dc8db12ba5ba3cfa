package retry

import (
	"sync/atomic"
	"time"
)

// retryStats provides thread-safe retry counters using atomic operations.
type retryStats struct {
	totalAttempts           atomic.Int64 // Attempts across all operations
	successfulRetries       atomic.Int64 // Operations that succeeded after retry
	failedRetries           atomic.Int64 // Operations that failed after all retries
	successfulFirstAttempts atomic.Int64 // Operations that succeeded on first attempt
	nonRetryable            atomic.Int64 // Operations stopped by a non-retryable error
	maxWait                 atomic.Int64 // Longest wait in nanoseconds
	totalWait               atomic.Int64 // Cumulative wait in nanoseconds
}

// Stats is a snapshot of Retrier activity.
type Stats struct {
	// TotalAttempts counts every call to the operation, retries included.
	TotalAttempts int64 `json:"total_attempts"`
	// SuccessfulRetries counts operations that succeeded only after retrying.
	SuccessfulRetries int64 `json:"successful_retries"`
	// FailedRetries counts operations that exhausted every attempt.
	FailedRetries int64 `json:"failed_retries"`
	// NonRetryable counts operations stopped by a non-retryable error.
	NonRetryable int64 `json:"non_retryable"`
	// AverageAttempts is the mean number of attempts per operation.
	AverageAttempts float64 `json:"average_attempts"`
	// MaxWait is the longest pause taken between attempts.
	MaxWait time.Duration `json:"max_wait"`
	// TotalWait is the time spent waiting between attempts.
	TotalWait time.Duration `json:"total_wait"`
}

// recordWait tracks the wait for reporting.
func (r *Retrier) recordWait(wait time.Duration) {
	nanos := wait.Nanoseconds()
	r.stats.totalWait.Add(nanos)
	for {
		current := r.stats.maxWait.Load()
		if nanos <= current {
			break
		}
		if r.stats.maxWait.CompareAndSwap(current, nanos) {
			break
		}
	}
}

// Stats returns a snapshot of the Retrier's counters.
func (r *Retrier) Stats() Stats {
	totalAttempts := r.stats.totalAttempts.Load()
	successfulRetries := r.stats.successfulRetries.Load()
	failedRetries := r.stats.failedRetries.Load()
	successfulFirstAttempts := r.stats.successfulFirstAttempts.Load()
	nonRetryable := r.stats.nonRetryable.Load()

	averageAttempts := 0.0
	if ops := successfulFirstAttempts + successfulRetries + failedRetries + nonRetryable; ops > 0 {
		averageAttempts = float64(totalAttempts) / float64(ops)
	}

	return Stats{
		TotalAttempts:     totalAttempts,
		SuccessfulRetries: successfulRetries,
		FailedRetries:     failedRetries,
		NonRetryable:      nonRetryable,
		AverageAttempts:   averageAttempts,
		MaxWait:           time.Duration(r.stats.maxWait.Load()),
		TotalWait:         time.Duration(r.stats.totalWait.Load()),
	}
}
