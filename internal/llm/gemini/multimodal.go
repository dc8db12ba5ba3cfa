package gemini

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/genai"

	"github.com/ahrav/examsolve/internal/domain"
	"github.com/ahrav/examsolve/internal/llm/configuration"
	llmerrors "github.com/ahrav/examsolve/internal/llm/errors"
	"github.com/ahrav/examsolve/internal/llm/prompt"
	"github.com/ahrav/examsolve/internal/llm/response"
)

// imageTypes maps accepted file extensions to their MIME type.
var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// MultimodalSolver answers problems whose Question field is the path of an
// image holding the whole problem. It always requests schema-constrained
// JSON.
type MultimodalSolver struct {
	client *Client
	opts   response.Options
}

// NewMultimodalSolver creates a MultimodalSolver.
func NewMultimodalSolver(client *Client, flags configuration.FeatureFlags) *MultimodalSolver {
	return &MultimodalSolver{client: client, opts: parseOptions(flags)}
}

// Solve validates and loads the problem image, then asks the model. Image
// validation failures are returned before any request is made.
func (s *MultimodalSolver) Solve(ctx context.Context, p domain.Problem) (domain.Answer, error) {
	data, mime, err := loadImage(p.Question)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("problem %d: %w", p.ID, err)
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt.SystemMultimodal),
		genai.NewPartFromBytes(data, mime),
		genai.NewPartFromText(prompt.UserMultimodal),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	raw, err := s.client.generate(ctx, contents, s.client.generationConfig(configuration.ResponseModeSchema))
	if err != nil {
		return domain.Answer{}, err
	}

	pred := response.Parse(raw, s.opts)
	return domain.NewAnswer(p, pred.Choice, pred.Reasoning), nil
}

// loadImage checks the extension, existence, and sniffed content of an image
// file in that order and returns its bytes and MIME type.
func loadImage(path string) ([]byte, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	declared, ok := imageTypes[ext]
	if !ok {
		return nil, "", llmerrors.Wrap(llmerrors.ErrorTypeUnsupportedImage,
			fmt.Errorf("%w: %q", llmerrors.ErrUnsupportedImage, path))
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", llmerrors.Wrap(llmerrors.ErrorTypeImageNotFound,
			fmt.Errorf("%w: %s", llmerrors.ErrImageNotFound, path))
	}
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}

	detected := mimetype.Detect(data)
	if !detected.Is("image/png") && !detected.Is("image/jpeg") {
		return nil, "", llmerrors.Wrap(llmerrors.ErrorTypeUnsupportedImage,
			fmt.Errorf("%w: %s has content type %s", llmerrors.ErrUnsupportedImage, path, detected.String()))
	}
	if !detected.Is(declared) {
		// Trust the content over the extension.
		declared = detected.String()
	}
	return data, declared, nil
}
