package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ahrav/examsolve/internal/dataset"
	"github.com/ahrav/examsolve/internal/domain"
	"github.com/ahrav/examsolve/internal/llm"
	llmerrors "github.com/ahrav/examsolve/internal/llm/errors"
	"github.com/ahrav/examsolve/internal/llm/retry"
	"github.com/ahrav/examsolve/internal/metrics"
	"github.com/ahrav/examsolve/pkg/events"
)

// ErrInterrupted is returned by Run when ctx is cancelled before every
// problem is recorded. Answers appended before the interruption are kept.
var ErrInterrupted = errors.New("run interrupted")

var errMissingDependency = errors.New("runner: missing dependency")

// Source loads the full problem set.
type Source interface {
	Load() ([]domain.Problem, error)
}

// Store is the durable result log.
type Store interface {
	Initialize(target string) error
	CompletedIDs(target string) (map[int]struct{}, error)
	Append(a domain.Answer, target string) error
	Aggregate(target string) (domain.Summary, error)
}

// Reporter renders progress for an operator.
type Reporter interface {
	Loaded(count, maxScore int)
	Resumed(completed, remaining int)
	AllSolved()
	Progress(index, total int, a domain.Answer)
	Summary(s domain.Summary, interrupted bool)
}

// RunInfo labels a run in logs and events.
type RunInfo struct {
	Input string
	Kind  string
	Model string
}

// Deps are the collaborators a Runner is built from. Metrics, Events, and
// Info are optional.
type Deps struct {
	Source   Source
	Store    Store
	Solver   llm.Solver
	Retrier  *retry.Retrier
	Pacer    *Pacer
	Reporter Reporter
	Clock    Clock
	Metrics  *metrics.Metrics
	Events   *events.Emitter
	Logger   *slog.Logger
	Info     RunInfo
}

// Runner executes one batch run against one result log. A Runner is not
// safe for concurrent use and two Runners must not share a target.
type Runner struct {
	source   Source
	store    Store
	solver   llm.Solver
	retrier  *retry.Retrier
	pacer    *Pacer
	reporter Reporter
	clock    Clock
	metrics  *metrics.Metrics
	events   *events.Emitter
	logger   *slog.Logger
	info     RunInfo
	target   string
}

// NewRunner creates a Runner that records answers to target.
func NewRunner(target string, deps Deps) (*Runner, error) {
	switch {
	case target == "":
		return nil, fmt.Errorf("%w: target", errMissingDependency)
	case deps.Source == nil:
		return nil, fmt.Errorf("%w: source", errMissingDependency)
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: store", errMissingDependency)
	case deps.Solver == nil:
		return nil, fmt.Errorf("%w: solver", errMissingDependency)
	case deps.Retrier == nil:
		return nil, fmt.Errorf("%w: retrier", errMissingDependency)
	case deps.Pacer == nil:
		return nil, fmt.Errorf("%w: pacer", errMissingDependency)
	case deps.Reporter == nil:
		return nil, fmt.Errorf("%w: reporter", errMissingDependency)
	}

	clock := deps.Clock
	if clock == nil {
		clock = RealClock()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	emitter := deps.Events
	if emitter == nil {
		emitter = events.NewEmitter(nil, "runner", "", logger)
	}

	return &Runner{
		source:   deps.Source,
		store:    deps.Store,
		solver:   deps.Solver,
		retrier:  deps.Retrier,
		pacer:    deps.Pacer,
		reporter: deps.Reporter,
		clock:    clock,
		metrics:  deps.Metrics,
		events:   emitter,
		logger:   logger.With("component", "runner"),
		info:     deps.Info,
		target:   target,
	}, nil
}

// Result describes a finished or interrupted run.
type Result struct {
	// Summary aggregates the whole result log, including earlier runs.
	Summary domain.Summary
	// Processed counts answers appended by this run.
	Processed int
	// Remaining counts problems that were unrecorded when the run started.
	Remaining int
	// Interrupted is set when ctx ended the run early.
	Interrupted bool
}

// outcome describes how one problem was settled.
type outcome struct {
	attempts  int
	failed    bool
	errorType llmerrors.ErrorType
}

// Run processes every unrecorded problem. Errors loading the problem set or
// reading the result log abort the run before any work. Cancellation of ctx
// stops the run without recording the in-flight problem; the summary is
// still reported and the returned error wraps ErrInterrupted.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	// Discover.
	problems, err := r.source.Load()
	if err != nil {
		return Result{}, err
	}
	r.reporter.Loaded(len(problems), dataset.TotalScore(problems))

	done, err := r.store.CompletedIDs(r.target)
	if err != nil {
		return Result{}, fmt.Errorf("read completed problems: %w", err)
	}

	// Drain.
	remaining := make([]domain.Problem, 0, len(problems))
	for _, p := range problems {
		if _, ok := done[p.ID]; !ok {
			remaining = append(remaining, p)
		}
	}
	slices.SortStableFunc(remaining, func(a, b domain.Problem) int { return a.ID - b.ID })

	if len(done) > 0 {
		r.reporter.Resumed(len(done), len(remaining))
	} else if err := r.store.Initialize(r.target); err != nil {
		return Result{}, fmt.Errorf("initialize result log: %w", err)
	}

	res := Result{Remaining: len(remaining)}
	r.metrics.SetRemaining(len(remaining))
	r.events.Emit(ctx, events.TypeRunStarted, events.RunStarted{
		Input:     r.info.Input,
		Output:    r.target,
		Kind:      r.info.Kind,
		Model:     r.info.Model,
		Total:     len(problems),
		Completed: len(done),
		Remaining: len(remaining),
	})
	r.logger.Info("run started",
		"run_id", r.events.RunID(),
		"kind", r.info.Kind,
		"model", r.info.Model,
		"total", len(problems),
		"completed", len(done),
		"remaining", len(remaining))

	if len(remaining) == 0 {
		r.reporter.AllSolved()
	}

	var runErr error
	for i, p := range remaining {
		// Process.
		start := r.clock.Now()
		ans, out, err := r.solveWithRetry(ctx, p)
		if err != nil {
			res.Interrupted = true
			runErr = err
			break
		}

		if err := r.store.Append(ans, r.target); err != nil {
			runErr = fmt.Errorf("record problem %d: %w", p.ID, err)
			break
		}
		res.Processed++

		elapsed := r.clock.Now().Sub(start)
		r.reporter.Progress(i+1, len(remaining), ans)
		r.metrics.ObserveProblem(ans, out.failed, elapsed)
		r.events.Emit(ctx, events.TypeProblemSolved, events.ProblemSolved{
			ProblemID: ans.ProblemID,
			Predicted: ans.Predicted,
			Actual:    ans.Actual,
			IsCorrect: ans.IsCorrect,
			Score:     ans.Score,
			Earned:    ans.EarnedScore(),
			Attempts:  out.attempts,
			Failed:    out.failed,
			ErrorType: string(out.errorType),
			ElapsedMS: elapsed.Milliseconds(),
		})

		// Pace.
		if err := r.pacer.Pace(ctx, i+1, len(remaining)); err != nil {
			res.Interrupted = true
			runErr = err
			break
		}
	}

	// Report.
	summary, err := r.report(ctx, res)
	res.Summary = summary
	if res.Interrupted {
		r.logger.Warn("run interrupted", "processed", res.Processed, "remaining", res.Remaining-res.Processed)
		return res, fmt.Errorf("%w: %w", ErrInterrupted, runErr)
	}
	if runErr != nil {
		return res, runErr
	}
	return res, err
}

// report aggregates the result log and prints the summary. It runs even when
// ctx has been cancelled.
func (r *Runner) report(ctx context.Context, res Result) (domain.Summary, error) {
	ctx = context.WithoutCancel(ctx)

	summary, err := r.store.Aggregate(r.target)
	if err != nil {
		r.logger.Error("aggregate result log", "error", err)
		return summary, fmt.Errorf("aggregate result log: %w", err)
	}
	r.reporter.Summary(summary, res.Interrupted)

	rs := r.retrier.Stats()
	r.events.Emit(ctx, events.TypeRunFinished, events.RunFinished{
		Processed:         res.Processed,
		Total:             summary.Total,
		Correct:           summary.Correct,
		Earned:            summary.Earned,
		MaxPoints:         summary.MaxPoints,
		Accuracy:          summary.Accuracy(),
		Interrupted:       res.Interrupted,
		TotalAttempts:     rs.TotalAttempts,
		SuccessfulRetries: rs.SuccessfulRetries,
		FailedRetries:     rs.FailedRetries,
		NonRetryable:      rs.NonRetryable,
		RetryWaitMS:       rs.TotalWait.Milliseconds(),
	})
	r.logger.Info("run finished",
		"processed", res.Processed,
		"total", summary.Total,
		"correct", summary.Correct,
		"earned", summary.Earned,
		"max_points", summary.MaxPoints,
		"attempts", rs.TotalAttempts,
		"successful_retries", rs.SuccessfulRetries,
		"failed_retries", rs.FailedRetries,
		"non_retryable", rs.NonRetryable,
		"average_attempts", rs.AverageAttempts,
		"retry_wait", rs.TotalWait,
		"max_retry_wait", rs.MaxWait)
	return summary, nil
}

// solveWithRetry settles one problem. It returns an error only when ctx was
// cancelled; exhausted or non-retryable failures yield the sentinel answer.
func (r *Runner) solveWithRetry(ctx context.Context, p domain.Problem) (domain.Answer, outcome, error) {
	var (
		ans domain.Answer
		out outcome
	)

	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		out.attempts++
		a, err := r.solver.Solve(ctx, p)
		if err != nil {
			return err
		}
		r.metrics.ObserveAttempt(metrics.OutcomeSuccess)
		ans = a
		return nil
	})
	if err == nil {
		return ans, out, nil
	}
	if ctx.Err() != nil {
		return domain.Answer{}, out, err
	}

	out.failed = true
	if solveErr := llmerrors.Classify(err); solveErr != nil {
		out.errorType = solveErr.Type
	}
	r.logger.Warn("recording failed answer",
		"problem_id", p.ID,
		"attempts", out.attempts,
		"error_type", out.errorType,
		"error", err)
	return domain.FailedAnswer(p), out, nil
}
