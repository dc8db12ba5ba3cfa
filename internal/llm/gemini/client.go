// Package gemini solves problems with Google's Gemini models through the
// google.golang.org/genai SDK. TextSolver renders the problem as a prompt;
// MultimodalSolver sends the problem's image alongside fixed instructions.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ahrav/examsolve/internal/llm/configuration"
	llmerrors "github.com/ahrav/examsolve/internal/llm/errors"
	"github.com/ahrav/examsolve/internal/llm/response"
)

var errAPIKeyRequired = errors.New("gemini: api key is required")

// Client issues generateContent calls for one model. It is safe for
// sequential use by a single solver; no state is shared across calls.
type Client struct {
	models    *genai.Models
	model     string
	timeout   time.Duration
	maxTokens int32
	logger    *slog.Logger
}

// NewClient creates a Client for the Gemini API backend. httpClient may be
// nil to use the SDK default; a nil logger falls back to slog.Default.
func NewClient(ctx context.Context, cfg configuration.ProviderConfig, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errAPIKeyRequired
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	if logger == nil {
		logger = slog.Default()
	}

	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Client{
		models:    gc.Models,
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		maxTokens: cfg.MaxOutputTokens,
		logger:    logger.With("component", "gemini", "model", cfg.Model),
	}, nil
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string { return c.model }

// generate sends contents and returns the candidate text. Provider errors are
// returned as classified *SolveError values; a response without text is
// ErrEmptyResponse.
func (c *Client) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", llmerrors.FromStatus(apiErr.Code, apiErr.Status, apiErr.Message, err)
		}
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	text := resp.Text()
	c.logger.Debug("generate content completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"response_length", len(text))

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini: %w", llmerrors.ErrEmptyResponse)
	}
	return text, nil
}

// generationConfig builds the request options for a response mode.
func (c *Client) generationConfig(mode configuration.ResponseMode) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{MaxOutputTokens: c.maxTokens}
	switch mode {
	case configuration.ResponseModePlain:
	case configuration.ResponseModeJSON:
		cfg.ResponseMIMEType = "application/json"
	default:
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = answerSchema()
	}
	return cfg
}

// answerSchema constrains output to {"choice": int, "reasoning": string}.
func answerSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"choice": {
				Type:        genai.TypeInteger,
				Description: "selected choice number, 1 to 5",
			},
			"reasoning": {
				Type:        genai.TypeString,
				Description: "explanation for the selected choice",
			},
		},
		Required:         []string{"choice", "reasoning"},
		PropertyOrdering: []string{"choice", "reasoning"},
	}
}

// parseOptions maps feature flags onto the response parser.
func parseOptions(flags configuration.FeatureFlags) response.Options {
	return response.Options{DisableRepair: flags.DisableJSONRepair}
}
