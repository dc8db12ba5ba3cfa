package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ahrav/examsolve/internal/llm/configuration"
)

var errBatchSizeInvalid = errors.New("pacing batch size must be greater than 0")

// Pacer spaces out problems: a short pause after each one and a longer pause
// after every batch. It never pauses after the last problem of a run.
type Pacer struct {
	interval      time.Duration
	batchInterval time.Duration
	batchSize     int
	clock         Clock
	logger        *slog.Logger
}

// NewPacer creates a Pacer from configuration.
func NewPacer(cfg configuration.PacingConfig, clock Clock, logger *slog.Logger) (*Pacer, error) {
	if cfg.BatchSize <= 0 {
		return nil, errBatchSizeInvalid
	}
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pacer{
		interval:      cfg.Interval,
		batchInterval: cfg.BatchInterval,
		batchSize:     cfg.BatchSize,
		clock:         clock,
		logger:        logger.With("component", "pacer"),
	}, nil
}

// Delay returns the pause due after the done-th of total problems.
func (p *Pacer) Delay(done, total int) time.Duration {
	if done >= total {
		return 0
	}
	if done%p.batchSize == 0 {
		return p.batchInterval
	}
	return p.interval
}

// Pace sleeps for Delay(done, total). Pacing is unconditional: it applies
// whether or not the problem needed retries.
func (p *Pacer) Pace(ctx context.Context, done, total int) error {
	d := p.Delay(done, total)
	if d == 0 {
		return nil
	}
	if done%p.batchSize == 0 {
		p.logger.Info("batch boundary, pausing", "done", done, "total", total, "wait", d)
	} else {
		p.logger.Debug("pausing", "done", done, "total", total, "wait", d)
	}
	return p.clock.Sleep(ctx, d)
}
