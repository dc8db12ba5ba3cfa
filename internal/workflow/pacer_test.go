package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/examsolve/internal/llm/configuration"
)

func TestPacerDelay(t *testing.T) {
	p, err := NewPacer(configuration.DefaultConfig().Pacing, newFakeClock(), discardLogger())
	require.NoError(t, err)

	tests := []struct {
		name  string
		done  int
		total int
		want  time.Duration
	}{
		{name: "after_first", done: 1, total: 10, want: 10 * time.Second},
		{name: "after_fifth", done: 5, total: 10, want: 60 * time.Second},
		{name: "after_tenth_of_eleven", done: 10, total: 11, want: 60 * time.Second},
		{name: "after_last", done: 10, total: 10, want: 0},
		{name: "fifth_is_last", done: 5, total: 5, want: 0},
		{name: "single_item", done: 1, total: 1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Delay(tt.done, tt.total))
		})
	}
}

func TestPacerPace(t *testing.T) {
	t.Run("sleeps_through_clock", func(t *testing.T) {
		clock := newFakeClock()
		p, err := NewPacer(configuration.PacingConfig{Interval: time.Second, BatchInterval: time.Minute, BatchSize: 2}, clock, nil)
		require.NoError(t, err)

		ctx := context.Background()
		for done := 1; done <= 4; done++ {
			require.NoError(t, p.Pace(ctx, done, 4))
		}
		assert.Equal(t, []time.Duration{time.Second, time.Minute, time.Second}, clock.recorded())
	})

	t.Run("zero_interval_skips_sleep", func(t *testing.T) {
		clock := newFakeClock()
		p, err := NewPacer(configuration.PacingConfig{BatchSize: 5}, clock, nil)
		require.NoError(t, err)

		require.NoError(t, p.Pace(context.Background(), 1, 3))
		assert.Empty(t, clock.recorded())
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p, err := NewPacer(configuration.DefaultConfig().Pacing, newFakeClock(), nil)
		require.NoError(t, err)
		assert.ErrorIs(t, p.Pace(ctx, 1, 3), context.Canceled)
	})

	t.Run("invalid_batch_size", func(t *testing.T) {
		_, err := NewPacer(configuration.PacingConfig{}, nil, nil)
		assert.Error(t, err)
	})
}

func TestRealClockSleep(t *testing.T) {
	clock := RealClock()

	require.NoError(t, clock.Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, clock.Sleep(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, clock.Sleep(ctx, 0), context.Canceled)
}
