package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahrav/examsolve/internal/llm/configuration"
	"github.com/ahrav/examsolve/internal/llm/gemini"
)

// Kind names a Solver variant.
type Kind string

const (
	// KindText solves problems rendered as a text prompt.
	KindText Kind = "text"
	// KindMultimodal solves problems given as an image path.
	KindMultimodal Kind = "multi"
)

// ErrUnknownKind is returned for an unrecognized solver kind.
var ErrUnknownKind = errors.New("unknown solver kind")

// ParseKind maps a configuration value onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindText, KindMultimodal:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// String returns the kind's configuration value.
func (k Kind) String() string { return string(k) }

// New builds the Solver variant cfg.Type selects, wrapped with logging. It is
// called once at startup.
func New(ctx context.Context, cfg *configuration.Config, logger *slog.Logger) (Solver, error) {
	kind, err := ParseKind(cfg.Type)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := gemini.NewClient(ctx, cfg.Provider, cfg.HTTPClient, logger)
	if err != nil {
		return nil, err
	}

	var core Solver
	switch kind {
	case KindMultimodal:
		core = gemini.NewMultimodalSolver(client, cfg.Features)
	default:
		core = gemini.NewTextSolver(client, cfg.Provider.ResponseMode, cfg.Features)
	}

	logger.Info("solver ready",
		"kind", kind,
		"model", client.Model(),
		"response_mode", cfg.Provider.ResponseMode,
		"max_output_tokens", cfg.Provider.MaxOutputTokens)

	return Chain(core, NewLoggingMiddleware(logger.With("component", "solver"), cfg.Features.RedactReasoning)), nil
}
