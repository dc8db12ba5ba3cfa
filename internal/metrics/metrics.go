// Package metrics exposes Prometheus collectors for batch run activity and an
// optional HTTP endpoint to scrape them.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ahrav/examsolve/internal/domain"
)

const (
	namespace = "examsolve"
	subsystem = "runner"
)

// Problem results.
const (
	ResultCorrect = "correct"
	ResultWrong   = "wrong"
	ResultFailed  = "failed"
)

// OutcomeSuccess labels an attempt that returned an answer.
const OutcomeSuccess = "success"

// Metrics holds the run collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	attempts       *prometheus.CounterVec
	retryWaits     *prometheus.CounterVec
	problems       *prometheus.CounterVec
	pointsEarned   prometheus.Counter
	pointsPossible prometheus.Counter
	solveDuration  prometheus.Histogram
	remaining      prometheus.Gauge
}

// MustNewMetrics constructs Metrics registered with reg. Collectors already
// registered under the same names are reused so repeated construction
// against one registry does not panic; any other registration error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &Metrics{
		attempts: mustRegister(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_attempts_total",
				Help:      "Solve attempts by outcome: success or the failure's error type.",
			},
			[]string{"outcome"},
		)),
		retryWaits: mustRegister(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "retry_wait_seconds_total",
				Help:      "Time spent waiting between attempts, by error type.",
			},
			[]string{"error_type"},
		)),
		problems: mustRegister(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "problems_total",
				Help:      "Problems recorded to the result log, by result.",
			},
			[]string{"result"},
		)),
		pointsEarned: mustRegister(reg, prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "points_earned_total",
				Help:      "Points earned by problems recorded in this run.",
			},
		)),
		pointsPossible: mustRegister(reg, prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "points_possible_total",
				Help:      "Points available across problems recorded in this run.",
			},
		)),
		solveDuration: mustRegister(reg, prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "problem_duration_seconds",
				Help:      "Time to settle one problem, retries and waits included.",
				Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
			},
		)),
		remaining: mustRegister(reg, prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "problems_remaining",
				Help:      "Problems not yet recorded in the result log.",
			},
		)),
	}
}

func mustRegister[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveAttempt counts one solve attempt.
func (m *Metrics) ObserveAttempt(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

// ObserveRetryWait records a pause taken after a failure of errorType.
func (m *Metrics) ObserveRetryWait(errorType string, wait time.Duration) {
	if m == nil {
		return
	}
	m.retryWaits.WithLabelValues(errorType).Add(wait.Seconds())
}

// ObserveProblem records an answer appended to the result log.
func (m *Metrics) ObserveProblem(a domain.Answer, failed bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := ResultWrong
	switch {
	case failed:
		result = ResultFailed
	case a.IsCorrect:
		result = ResultCorrect
	}
	m.problems.WithLabelValues(result).Inc()
	m.pointsEarned.Add(float64(a.EarnedScore()))
	m.pointsPossible.Add(float64(a.Score))
	m.solveDuration.Observe(elapsed.Seconds())
	m.remaining.Dec()
}

// SetRemaining sets the number of problems left to solve.
func (m *Metrics) SetRemaining(n int) {
	if m == nil {
		return
	}
	m.remaining.Set(float64(n))
}
