// Package dataset loads problems from the JSON input document. The document
// is a keyed object whose values describe one problem each; keys carry no
// meaning beyond uniqueness.
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/ahrav/examsolve/internal/domain"
)

// ErrNotFound indicates the input document does not exist.
var ErrNotFound = errors.New("input document not found")

// ErrMalformed indicates the input document could not be decoded.
var ErrMalformed = errors.New("malformed input document")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// record mirrors one value of the input document. Score is a pointer so an
// absent field can fall back to domain.DefaultScore.
type record struct {
	ID           *int     `json:"id"`
	Paragraph    string   `json:"paragraph"`
	Question     string   `json:"question"`
	QuestionPlus string   `json:"question_plus"`
	Choices      []string `json:"choices"`
	Answer       int      `json:"answer"`
	Score        *int     `json:"score"`
}

// Load reads every problem from the document at path and returns them sorted
// by ascending ID.
func Load(path string) ([]domain.Problem, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from run configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read input document: %w", err)
	}
	return Parse(data)
}

// Parse decodes an input document held in memory. A leading UTF-8 byte order
// mark is ignored.
func Parse(data []byte) ([]domain.Problem, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var doc map[string]record
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	problems := make([]domain.Problem, 0, len(doc))
	seen := make(map[int]string, len(doc))
	for key, rec := range doc {
		if rec.ID == nil {
			return nil, fmt.Errorf("%w: entry %q has no id", ErrMalformed, key)
		}
		if other, dup := seen[*rec.ID]; dup {
			return nil, fmt.Errorf("%w: %d (entries %q and %q)", domain.ErrDuplicateProblem, *rec.ID, other, key)
		}
		seen[*rec.ID] = key

		p := rec.toProblem()
		if err := p.Validate(); err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}

	slices.SortFunc(problems, func(a, b domain.Problem) int { return a.ID - b.ID })
	return problems, nil
}

func (r record) toProblem() domain.Problem {
	score := domain.DefaultScore
	if r.Score != nil {
		score = *r.Score
	}
	return domain.Problem{
		ID:           *r.ID,
		Paragraph:    r.Paragraph,
		Question:     r.Question,
		QuestionPlus: r.QuestionPlus,
		Choices:      slices.Clone(r.Choices),
		Answer:       r.Answer,
		Score:        score,
	}
}

// TotalScore sums the point values of problems.
func TotalScore(problems []domain.Problem) int {
	total := 0
	for _, p := range problems {
		total += p.Score
	}
	return total
}

// File is a problem source backed by a document on disk. The document is
// read on every Load so a resumed run sees edits made between runs.
type File struct {
	Path string
}

// NewFile returns a File source for path.
func NewFile(path string) *File { return &File{Path: path} }

// Load implements the runner's problem source.
func (f *File) Load() ([]domain.Problem, error) { return Load(f.Path) }
