package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fastConfig = `
pacing:
  interval: 0s
  batch_interval: 0s
retry:
  rate_limit_wait: 0s
  parse_error_wait: 0s
  default_wait: 0s
`

// fakeGemini always answers choice 1.
type fakeGemini struct {
	calls atomic.Int32
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	f.calls.Add(1)
	body, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": `{"choice": 1, "reasoning": "first option"}`}},
				},
				"finishReason": "STOP",
			},
		},
	})
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

type env struct {
	dir    string
	input  string
	output string
	config string
	fake   *fakeGemini
	srvURL string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()

	doc := map[string]any{
		"p1": map[string]any{"id": 1, "question": "q1", "choices": []string{"a", "b", "c", "d", "e"}, "answer": 1, "score": 2},
		"p2": map[string]any{"id": 2, "question": "q2", "choices": []string{"a", "b", "c", "d", "e"}, "answer": 2},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	input := filepath.Join(dir, "exam.json")
	require.NoError(t, os.WriteFile(input, data, 0o600))

	config := filepath.Join(dir, "examsolve.yaml")
	require.NoError(t, os.WriteFile(config, []byte(fastConfig), 0o600))

	fake := &fakeGemini{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("NO_COLOR", "1")

	return &env{
		dir:    dir,
		input:  input,
		output: filepath.Join(dir, "out", "results.csv"),
		config: config,
		fake:   fake,
		srvURL: srv.URL,
	}
}

func (e *env) args(extra ...string) []string {
	return append([]string{
		"--config", e.config,
		"--env-file", filepath.Join(e.dir, "missing.env"),
		"-i", e.input,
		"-o", e.output,
		"--base-url", e.srvURL,
	}, extra...)
}

func run(ctx context.Context, args []string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := execute(ctx, args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExecuteRun(t *testing.T) {
	t.Run("solves_and_resumes", func(t *testing.T) {
		e := newEnv(t)

		code, stdout, stderr := run(context.Background(), e.args("--log-level", "error"))
		require.Equal(t, exitOK, code, stderr)
		assert.Contains(t, stdout, "loaded 2 problems (max score 4)")
		assert.Contains(t, stdout, "[1/2] problem 1 (2 pts): O (+2)")
		assert.Contains(t, stdout, "[2/2] problem 2 (2 pts): X (+0)")
		assert.Contains(t, stdout, "score: 2 / 4 (50.0%)")
		assert.Equal(t, int32(2), e.fake.calls.Load())

		data, err := os.ReadFile(e.output)
		require.NoError(t, err)
		assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 3, "header plus one row per problem")

		code, stdout, _ = run(context.Background(), append([]string{"run"}, e.args()...))
		require.Equal(t, exitOK, code)
		assert.Contains(t, stdout, "all problems already solved")
		assert.Equal(t, int32(2), e.fake.calls.Load(), "no model calls on rerun")
	})

	t.Run("interrupted", func(t *testing.T) {
		e := newEnv(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		code, stdout, _ := run(ctx, e.args())
		assert.Equal(t, exitInterrupted, code)
		assert.Contains(t, stdout, "interrupted, progress saved")
		assert.Zero(t, e.fake.calls.Load())
	})

	t.Run("missing_api_key", func(t *testing.T) {
		e := newEnv(t)
		t.Setenv("GEMINI_API_KEY", "")

		code, _, stderr := run(context.Background(), e.args())
		assert.Equal(t, exitFailure, code)
		assert.Contains(t, stderr, "invalid configuration")
	})

	t.Run("unknown_type", func(t *testing.T) {
		e := newEnv(t)

		code, _, stderr := run(context.Background(), e.args("-t", "pdf"))
		assert.Equal(t, exitFailure, code)
		assert.Contains(t, stderr, "invalid configuration")
	})

	t.Run("missing_input", func(t *testing.T) {
		e := newEnv(t)
		args := e.args()
		args = append(args, "-i", filepath.Join(e.dir, "nope.json"))

		code, _, stderr := run(context.Background(), args)
		assert.Equal(t, exitFailure, code)
		assert.Contains(t, stderr, "input document not found")
		_, err := os.Stat(e.output)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("dotenv_supplies_api_key", func(t *testing.T) {
		e := newEnv(t)
		os.Unsetenv("GEMINI_API_KEY")
		envFile := filepath.Join(e.dir, ".env")
		require.NoError(t, os.WriteFile(envFile, []byte("GEMINI_API_KEY=from-dotenv\n"), 0o600))

		args := append(e.args(), "--env-file", envFile)
		code, _, stderr := run(context.Background(), args)
		assert.Equal(t, exitOK, code, stderr)
	})
}

func TestExecuteScore(t *testing.T) {
	t.Run("prints_summary", func(t *testing.T) {
		e := newEnv(t)
		code, _, stderr := run(context.Background(), e.args())
		require.Equal(t, exitOK, code, stderr)

		code, stdout, stderr := run(context.Background(), []string{"score", "-o", e.output, "--env-file", filepath.Join(e.dir, "missing.env")})
		require.Equal(t, exitOK, code, stderr)
		assert.Contains(t, stdout, "total problems: 2")
		assert.Contains(t, stdout, "score: 2 / 4 (50.0%)")
		assert.Equal(t, int32(2), e.fake.calls.Load())
	})

	t.Run("missing_log", func(t *testing.T) {
		e := newEnv(t)
		code, _, stderr := run(context.Background(), []string{"score", "-o", e.output, "--env-file", filepath.Join(e.dir, "missing.env")})
		assert.Equal(t, exitFailure, code)
		assert.Contains(t, stderr, "no recorded answers")
	})
}
