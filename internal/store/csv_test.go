package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/examsolve/internal/domain"
)

func newTestStore(t *testing.T) (*CSVStore, string) {
	t.Helper()
	return New(nil), filepath.Join(t.TempDir(), "out", "results.csv")
}

func answer(id, predicted, actual, score int, reasoning string) domain.Answer {
	return domain.Answer{
		ProblemID: id,
		Predicted: predicted,
		Actual:    actual,
		IsCorrect: predicted == actual,
		Reasoning: reasoning,
		Score:     score,
	}
}

func TestCSVStore_MissingLog(t *testing.T) {
	s, target := newTestStore(t)

	ids, err := s.CompletedIDs(target)
	require.NoError(t, err)
	assert.Empty(t, ids)

	sum, err := s.Aggregate(target)
	require.NoError(t, err)
	assert.Equal(t, domain.Summary{}, sum)
}

func TestCSVStore_Initialize(t *testing.T) {
	s, target := newTestStore(t)
	require.NoError(t, s.Initialize(target))

	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "\xEF\xBB\xBFproblem_id,score,predicted,actual,is_correct,earned_score,reasoning\n", string(raw))

	ids, err := s.CompletedIDs(target)
	require.NoError(t, err)
	assert.Empty(t, ids)

	t.Run("overwrites_existing_log", func(t *testing.T) {
		require.NoError(t, s.Append(answer(1, 1, 1, 2, "ok"), target))
		require.NoError(t, s.Initialize(target))

		ids, err := s.CompletedIDs(target)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

// TestCSVStore_AppendAndAggregate covers the three-problem run: earned points
// follow correctness and the aggregate matches the rows on disk.
func TestCSVStore_AppendAndAggregate(t *testing.T) {
	s, target := newTestStore(t)
	require.NoError(t, s.Initialize(target))

	require.NoError(t, s.Append(answer(1, 1, 1, 2, "first"), target))
	require.NoError(t, s.Append(answer(2, 4, 3, 2, "second"), target))
	require.NoError(t, s.Append(answer(3, 2, 2, 3, "third"), target))

	answers, err := s.ReadAnswers(target)
	require.NoError(t, err)
	require.Len(t, answers, 3)
	earned := make([]int, 0, len(answers))
	for _, a := range answers {
		earned = append(earned, a.EarnedScore())
	}
	assert.Equal(t, []int{2, 0, 3}, earned)

	ids, err := s.CompletedIDs(target)
	require.NoError(t, err)
	assert.Equal(t, map[int]struct{}{1: {}, 2: {}, 3: {}}, ids)

	sum, err := s.Aggregate(target)
	require.NoError(t, err)
	assert.Equal(t, domain.Summary{Total: 3, Correct: 2, Earned: 5, MaxPoints: 7}, sum)

	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "1,2,1,1,True,2,first\n")
	assert.Contains(t, string(raw), "2,2,4,3,False,0,second\n")
}

func TestCSVStore_ReasoningRoundTrip(t *testing.T) {
	s, target := newTestStore(t)
	require.NoError(t, s.Initialize(target))

	reasoning := "지문에서 \"근거\"를 찾으면,\n두 번째 문단이 답이다."
	require.NoError(t, s.Append(answer(9, 5, 5, 3, reasoning), target))

	answers, err := s.ReadAnswers(target)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, reasoning, answers[0].Reasoning)
	assert.True(t, answers[0].IsCorrect)
}

func TestCSVStore_AppendWithoutInitialize(t *testing.T) {
	s, target := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))

	require.NoError(t, s.Append(answer(4, 1, 2, 2, "x"), target))

	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "\xEF\xBB\xBFproblem_id,"))

	ids, err := s.CompletedIDs(target)
	require.NoError(t, err)
	assert.Equal(t, map[int]struct{}{4: {}}, ids)
}

// TestCSVStore_TornTail simulates a crash in the middle of a write: the torn
// record is not counted as done and the next append lands on a clean line.
func TestCSVStore_TornTail(t *testing.T) {
	s, target := newTestStore(t)
	require.NoError(t, s.Initialize(target))
	require.NoError(t, s.Append(answer(1, 1, 1, 2, "done"), target))

	f, err := os.OpenFile(target, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`2,2,3,3,True,2,"half a thought`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ids, err := s.CompletedIDs(target)
	require.NoError(t, err)
	assert.Equal(t, map[int]struct{}{1: {}}, ids)

	require.NoError(t, s.Append(answer(2, 3, 3, 2, "complete"), target))

	answers, err := s.ReadAnswers(target)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, 2, answers[1].ProblemID)
	assert.Equal(t, "complete", answers[1].Reasoning)
}

// TestCSVStore_UnterminatedFinalRecord covers a crash that cut a write short
// inside the last field: the record parses but lacks its newline, so it is
// treated as torn rather than done.
func TestCSVStore_UnterminatedFinalRecord(t *testing.T) {
	s, target := newTestStore(t)
	require.NoError(t, s.Initialize(target))
	require.NoError(t, s.Append(answer(1, 1, 1, 2, "done"), target))

	f, err := os.OpenFile(target, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("4,2,3,3,True,2,the passage st")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	t.Run("not_counted_as_done", func(t *testing.T) {
		ids, err := s.CompletedIDs(target)
		require.NoError(t, err)
		assert.Equal(t, map[int]struct{}{1: {}}, ids)

		sum, err := s.Aggregate(target)
		require.NoError(t, err)
		assert.Equal(t, domain.Summary{Total: 1, Correct: 1, Earned: 2, MaxPoints: 2}, sum)
	})

	t.Run("dropped_on_next_append", func(t *testing.T) {
		require.NoError(t, s.Append(answer(4, 3, 3, 2, "the passage states it"), target))

		answers, err := s.ReadAnswers(target)
		require.NoError(t, err)
		require.Len(t, answers, 2)
		assert.Equal(t, 4, answers[1].ProblemID)
		assert.Equal(t, "the passage states it", answers[1].Reasoning)

		raw, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "the passage st\n")
	})
}

func TestCSVStore_UnterminatedHeader(t *testing.T) {
	s, target := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte("\xEF\xBB\xBFproblem_id,score,pre"), 0o644))

	ids, err := s.CompletedIDs(target)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, s.Append(answer(1, 1, 1, 2, "first"), target))
	answers, err := s.ReadAnswers(target)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "first", answers[0].Reasoning)
}

func TestCSVStore_SkipsUnreadableRows(t *testing.T) {
	s, target := newTestStore(t)
	content := "problem_id,score,predicted,actual,is_correct,earned_score,reasoning\n" +
		"1,2,1,1,true,2,ok\n" +
		"x,2,1,1,true,2,bad id\n" +
		"3,2\n" +
		"4,3,2,2,1,3,numeric bool\n"
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte(content), 0o644))

	ids, err := s.CompletedIDs(target)
	require.NoError(t, err)
	assert.Equal(t, map[int]struct{}{1: {}, 4: {}}, ids)

	sum, err := s.Aggregate(target)
	require.NoError(t, err)
	assert.Equal(t, domain.Summary{Total: 2, Correct: 2, Earned: 5, MaxPoints: 5}, sum)
}

func TestCSVStore_CorruptHeader(t *testing.T) {
	s, target := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte("id,points\n1,2\n"), 0o644))

	_, err := s.CompletedIDs(target)
	require.ErrorIs(t, err, ErrCorruptLog)
}

func TestCSVStore_EmptyFile(t *testing.T) {
	s, target := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, nil, 0o644))

	ids, err := s.CompletedIDs(target)
	require.NoError(t, err)
	assert.Empty(t, ids)

	sum, err := s.Aggregate(target)
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
}
