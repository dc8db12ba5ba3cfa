package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/examsolve/internal/domain"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)

	m.SetRemaining(3)
	m.ObserveAttempt(OutcomeSuccess)
	m.ObserveAttempt("rate_limit")
	m.ObserveAttempt(OutcomeSuccess)
	m.ObserveRetryWait("rate_limit", 60*time.Second)

	m.ObserveProblem(domain.Answer{IsCorrect: true, Score: 2}, false, 3*time.Second)
	m.ObserveProblem(domain.Answer{IsCorrect: false, Score: 2}, false, time.Second)
	m.ObserveProblem(domain.Answer{IsCorrect: false, Score: 3}, true, 70*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("rate_limit")))
	assert.Equal(t, 60.0, testutil.ToFloat64(m.retryWaits.WithLabelValues("rate_limit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.problems.WithLabelValues(ResultCorrect)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.problems.WithLabelValues(ResultWrong)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.problems.WithLabelValues(ResultFailed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.pointsEarned))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.pointsPossible))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.remaining))
}

func TestMustNewMetricsReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MustNewMetrics(reg)

	var second *Metrics
	require.NotPanics(t, func() { second = MustNewMetrics(reg) })

	second.ObserveAttempt(OutcomeSuccess)
	assert.Equal(t, 1.0, testutil.ToFloat64(first.attempts.WithLabelValues(OutcomeSuccess)))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SetRemaining(1)
		m.ObserveAttempt(OutcomeSuccess)
		m.ObserveRetryWait("parse_error", time.Second)
		m.ObserveProblem(domain.Answer{}, true, time.Second)
	})
}

func TestServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustNewMetrics(reg).ObserveAttempt(OutcomeSuccess)

	srv, err := Listen("127.0.0.1:0", reg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(gctx) })

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + srv.Addr() + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	assert.Contains(t, body, `examsolve_runner_solve_attempts_total{outcome="success"} 1`)

	cancel()
	require.NoError(t, g.Wait())
	assert.NoError(t, srv.Close(), "close after serve is a no-op")
}

func TestServerCloseUnserved(t *testing.T) {
	srv, err := Listen("127.0.0.1:0", prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	addr := srv.Addr()

	require.NoError(t, srv.Close())

	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err, "listener released")
	require.NoError(t, ln.Close())
}

func TestListenInvalidAddr(t *testing.T) {
	_, err := Listen("256.0.0.1:bad", prometheus.NewRegistry(), nil)
	assert.Error(t, err)
}
