package events

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySink struct {
	failures int
	got      []Envelope
}

func (s *flakySink) Append(_ context.Context, e Envelope) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.got = append(s.got, e)
	return nil
}

func TestNewEnvelope(t *testing.T) {
	now := time.Date(2024, 11, 14, 9, 0, 0, 0, time.FixedZone("KST", 9*3600))

	env, err := NewEnvelope(TypeProblemSolved, "runner", "run-1", ProblemSolved{ProblemID: 4, Earned: 2}, now)
	require.NoError(t, err)

	_, err = uuid.Parse(env.ID)
	assert.NoError(t, err)
	assert.Equal(t, TypeProblemSolved, env.Type)
	assert.Equal(t, SchemaVersion, env.Version)
	assert.Equal(t, "run-1", env.RunID)
	assert.Equal(t, time.UTC, env.Timestamp.Location())
	assert.JSONEq(t, `{"problem_id":4,"predicted":0,"actual":0,"is_correct":false,"score":0,"earned":2,
		"attempts":0,"failed":false,"elapsed_ms":0}`, string(env.Payload))

	_, err = NewEnvelope("bad", "runner", "run-1", make(chan int), now)
	assert.Error(t, err)
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")

	sink, err := NewFileSink(path)
	require.NoError(t, err)

	ctx := context.Background()
	for i := range 3 {
		env, err := NewEnvelope(TypeProblemSolved, "runner", "run-1", ProblemSolved{ProblemID: i}, time.Now())
		require.NoError(t, err)
		require.NoError(t, sink.Append(ctx, env))
	}
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	env, err := NewEnvelope(TypeRunFinished, "runner", "run-1", RunFinished{}, time.Now())
	require.NoError(t, err)
	assert.Error(t, sink.Append(ctx, env), "append after close")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var ids []int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var got Envelope
		require.NoError(t, json.Unmarshal(sc.Bytes(), &got))
		var p ProblemSolved
		require.NoError(t, json.Unmarshal(got.Payload, &p))
		ids = append(ids, p.ProblemID)
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, []int{0, 1, 2}, ids)
}

func TestEmitter(t *testing.T) {
	t.Run("retries_once", func(t *testing.T) {
		sink := &flakySink{failures: 1}
		NewEmitter(sink, "runner", "run-7", nil).Emit(context.Background(), TypeRunStarted, RunStarted{Total: 3})

		require.Len(t, sink.got, 1)
		assert.Equal(t, "run-7", sink.got[0].RunID)
		assert.Equal(t, "runner", sink.got[0].Source)
	})

	t.Run("gives_up_silently", func(t *testing.T) {
		sink := &flakySink{failures: 5}
		NewEmitter(sink, "runner", "run-7", nil).Emit(context.Background(), TypeRunStarted, RunStarted{})
		assert.Empty(t, sink.got)
	})

	t.Run("nil_sink", func(t *testing.T) {
		assert.NotPanics(t, func() {
			NewEmitter(nil, "runner", "run-7", nil).Emit(context.Background(), TypeRunFinished, RunFinished{})
		})
	})
}
