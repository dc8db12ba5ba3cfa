package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/ahrav/examsolve/internal/domain"
	"github.com/ahrav/examsolve/internal/llm/configuration"
	"github.com/ahrav/examsolve/internal/llm/prompt"
	"github.com/ahrav/examsolve/internal/llm/response"
)

// TextSolver answers problems whose content is text.
type TextSolver struct {
	client *Client
	mode   configuration.ResponseMode
	opts   response.Options
}

// NewTextSolver creates a TextSolver that requests output in the given mode.
func NewTextSolver(client *Client, mode configuration.ResponseMode, flags configuration.FeatureFlags) *TextSolver {
	return &TextSolver{client: client, mode: mode, opts: parseOptions(flags)}
}

// Solve renders the problem, asks the model, and parses its answer. Output
// without a recognizable choice yields an answer with domain.Unanswered.
func (s *TextSolver) Solve(ctx context.Context, p domain.Problem) (domain.Answer, error) {
	text, err := prompt.Text(p)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("problem %d: %w", p.ID, err)
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	raw, err := s.client.generate(ctx, contents, s.client.generationConfig(s.mode))
	if err != nil {
		return domain.Answer{}, err
	}

	pred := response.Parse(raw, s.opts)
	if pred.Source != response.SourceStructured {
		s.client.logger.Debug("unstructured response", "problem_id", p.ID, "source", pred.Source)
	}
	return domain.NewAnswer(p, pred.Choice, pred.Reasoning), nil
}
