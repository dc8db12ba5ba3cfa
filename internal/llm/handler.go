// Package llm defines the Solver capability the batch runner depends on and
// selects a concrete variant from configuration.
package llm

import (
	"context"

	"github.com/ahrav/examsolve/internal/domain"
)

// Solver answers one problem. Implementations are stateless across calls and
// report provider failures as errors that internal/llm/errors can classify.
type Solver interface {
	Solve(ctx context.Context, p domain.Problem) (domain.Answer, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(context.Context, domain.Problem) (domain.Answer, error)

// Solve implements the Solver interface.
func (f SolverFunc) Solve(ctx context.Context, p domain.Problem) (domain.Answer, error) {
	return f(ctx, p)
}

// Middleware wraps a Solver with cross-cutting behaviour.
type Middleware func(Solver) Solver

// Chain builds a middleware pipeline around a core solver. The first
// middleware is outermost.
func Chain(s Solver, middlewares ...Middleware) Solver {
	for i := len(middlewares) - 1; i >= 0; i-- {
		s = middlewares[i](s)
	}
	return s
}
