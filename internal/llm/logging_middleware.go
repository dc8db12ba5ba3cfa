package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahrav/examsolve/internal/domain"
	llmerrors "github.com/ahrav/examsolve/internal/llm/errors"
)

const reasoningPreviewLen = 200

// LoggingMiddleware records each solve call with its latency and outcome.
type LoggingMiddleware struct {
	logger          *slog.Logger
	redactReasoning bool
}

// NewLoggingMiddleware creates logging middleware. With redactReasoning set
// only the reasoning length is logged.
func NewLoggingMiddleware(logger *slog.Logger, redactReasoning bool) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	lm := &LoggingMiddleware{logger: logger, redactReasoning: redactReasoning}
	return lm.Middleware
}

// Middleware wraps next with request logging.
func (m *LoggingMiddleware) Middleware(next Solver) Solver {
	return SolverFunc(func(ctx context.Context, p domain.Problem) (domain.Answer, error) {
		m.logger.Debug("solve started", "problem_id", p.ID, "score", p.Score)

		start := time.Now()
		ans, err := next.Solve(ctx, p)
		duration := time.Since(start)

		if err != nil {
			m.handleError(p, err, duration)
			return ans, err
		}
		m.handleSuccess(ans, duration)
		return ans, nil
	})
}

func (m *LoggingMiddleware) handleError(p domain.Problem, err error, duration time.Duration) {
	errorType := "unknown"
	if solveErr := llmerrors.Classify(err); solveErr != nil {
		errorType = string(solveErr.Type)
	}

	m.logger.Debug("solve failed",
		"problem_id", p.ID,
		"duration_ms", duration.Milliseconds(),
		"error_type", errorType,
		"error", err.Error())
}

func (m *LoggingMiddleware) handleSuccess(ans domain.Answer, duration time.Duration) {
	fields := []any{
		"problem_id", ans.ProblemID,
		"duration_ms", duration.Milliseconds(),
		"predicted", ans.Predicted,
		"actual", ans.Actual,
	}

	if m.redactReasoning {
		fields = append(fields, "reasoning_length", len(ans.Reasoning))
	} else {
		fields = append(fields, "reasoning_preview", preview(ans.Reasoning))
	}

	m.logger.Debug("solve completed", fields...)
}

// preview truncates s to reasoningPreviewLen runes.
func preview(s string) string {
	r := []rune(s)
	if len(r) <= reasoningPreviewLen {
		return s
	}
	return string(r[:reasoningPreviewLen]) + "..."
}
