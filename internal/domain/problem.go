// Package domain defines the value types that flow through a batch solve run:
// problems loaded from the input document, the answers recorded for them, and
// the score summary derived from the result log.
package domain

import (
	"fmt"
	"strings"
)

// ChoiceCount is the number of options every problem offers.
const ChoiceCount = 5

// DefaultScore is the point value assigned when the input omits one.
const DefaultScore = 2

// NoQuestionPlus marks a problem without supplementary material.
const NoQuestionPlus = "[없음]"

// Problem is one multiple-choice item. It is built once at load time and
// never mutated afterwards.
type Problem struct {
	// ID uniquely identifies the problem within an input document.
	ID int `json:"id" validate:"min=0"`

	// Paragraph is the reading passage shared by related problems.
	Paragraph string `json:"paragraph"`

	// Question is the question text, or a path to an image file when the
	// problem is solved by the multimodal solver.
	Question string `json:"question" validate:"required"`

	// QuestionPlus holds supplementary material. Empty or NoQuestionPlus
	// when the problem has none.
	QuestionPlus string `json:"question_plus"`

	// Choices are the ordered option texts, numbered 1 through ChoiceCount.
	Choices []string `json:"choices" validate:"len=5"`

	// Answer is the correct choice number.
	Answer int `json:"answer" validate:"min=1,max=5"`

	// Score is the point value earned for a correct answer.
	Score int `json:"score" validate:"min=0"`
}

// Validate checks the problem against its field constraints.
func (p *Problem) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: problem %d: %w", ErrInvalidProblem, p.ID, err)
	}
	return nil
}

// HasQuestionPlus reports whether the problem carries supplementary material.
func (p *Problem) HasQuestionPlus() bool {
	s := strings.TrimSpace(p.QuestionPlus)
	return s != "" && s != NoQuestionPlus
}
