package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/examsolve/internal/domain"
)

func TestText(t *testing.T) {
	p := domain.Problem{
		ID:        1,
		Paragraph: "PARAGRAPH",
		Question:  "QUESTION",
		Choices:   []string{"A", "B", "C", "D", "E"},
		Answer:    2,
		Score:     2,
	}

	out, err := Text(p)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, System))
	assert.Contains(t, out, "PARAGRAPH")
	assert.Contains(t, out, "QUESTION")
	assert.Contains(t, out, "[보기]\n"+domain.NoQuestionPlus)
	for i, c := range []string{"1. A", "2. B", "3. C", "4. D", "5. E"} {
		assert.Contains(t, out, c, "choice %d", i+1)
	}
	assert.Contains(t, out, `"choice"`)
}

func TestUser_QuestionPlus(t *testing.T) {
	p := domain.Problem{
		ID:           2,
		Question:     "Q",
		QuestionPlus: "EXTRA",
		Choices:      []string{"1", "2", "3", "4", "5"},
	}

	out, err := User(p)
	require.NoError(t, err)
	assert.Contains(t, out, "[보기]\nEXTRA")
	assert.NotContains(t, out, System)
}
