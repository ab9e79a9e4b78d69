package application

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bnema/whitebunny-cli/internal/domain"
	"github.com/bnema/whitebunny-cli/internal/ports"
	"golang.org/x/sync/errgroup"
)

type Viewer interface {
	View(ctx context.Context) bool
}

type BatchConfig struct {
	SuccessDelayMin        time.Duration
	SuccessDelayMax        time.Duration
	FailureDelay           time.Duration
	MaxConsecutiveFailures int
	Parallel               int
	CycleInterval          time.Duration
}

func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		SuccessDelayMin:        5 * time.Second,
		SuccessDelayMax:        8 * time.Second,
		FailureDelay:           10 * time.Second,
		MaxConsecutiveFailures: 3,
		Parallel:               1,
		CycleInterval:          60 * time.Second,
	}
}

// BatchRunner drives the ad viewer, either as bounded sequential batches with
// a consecutive-failure breaker or as fixed-size parallel cycles.
type BatchRunner struct {
	viewer Viewer
	clock  ports.Clock
	cfg    BatchConfig
	stats  *Stats
	logger *slog.Logger
	jitter func(lo, hi time.Duration) time.Duration
}

func NewBatchRunner(viewer Viewer, clock ports.Clock, cfg BatchConfig, stats *Stats, logger *slog.Logger) *BatchRunner {
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = DefaultBatchConfig().MaxConsecutiveFailures
	}
	if cfg.Parallel <= 0 {
		cfg.Parallel = 1
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if stats == nil {
		stats = &Stats{}
	}
	if logger == nil {
		logger = discardLogger()
	}

	return &BatchRunner{
		viewer: viewer,
		clock:  clock,
		cfg:    cfg,
		stats:  stats,
		logger: logger,
		jitter: uniformJitter,
	}
}

// RunBatch views up to count ads in order and returns how many succeeded.
func (r *BatchRunner) RunBatch(ctx context.Context, count int) int {
	failures := domain.NewRetryBudget(domain.BackoffLinear, r.cfg.MaxConsecutiveFailures, r.cfg.FailureDelay)
	successes := 0

	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			break
		}

		r.logger.Info("Viewing ad", slog.Int("index", i+1), slog.Int("count", count))
		if r.view(ctx) {
			successes++
			failures = failures.Reset()
			if i < count-1 && !sleep(ctx, r.clock, r.jitter(r.cfg.SuccessDelayMin, r.cfg.SuccessDelayMax)) {
				break
			}
			continue
		}

		failures = failures.Next()
		if failures.Exhausted() {
			r.stats.batchesAborted.Add(1)
			r.logger.Error("Aborting batch after consecutive failures",
				slog.Int("consecutive_failures", failures.Attempts),
				slog.Int("viewed", i+1),
				slog.Int("count", count))
			break
		}
		if i < count-1 && !sleep(ctx, r.clock, failures.Delay()) {
			break
		}
	}

	r.logger.Info("Batch finished", slog.Int("succeeded", successes), slog.Int("count", count))
	return successes
}

// RunCycle starts the configured number of views at once and waits for all
// of them. Each view fails independently.
func (r *BatchRunner) RunCycle(ctx context.Context) int {
	var successes atomic.Int64
	var group errgroup.Group

	for i := 0; i < r.cfg.Parallel; i++ {
		group.Go(func() error {
			if r.view(ctx) {
				successes.Add(1)
			}
			return nil
		})
	}
	_ = group.Wait()

	return int(successes.Load())
}

func (r *BatchRunner) RunParallel(ctx context.Context) {
	r.logger.Info("Starting parallel ad viewing", slog.Int("parallel", r.cfg.Parallel))
	for ctx.Err() == nil {
		succeeded := r.RunCycle(ctx)
		r.logger.Info("Ad cycle finished",
			slog.Int("succeeded", succeeded),
			slog.Int("parallel", r.cfg.Parallel),
			slog.Duration("next_in", r.cfg.CycleInterval))
		if !sleep(ctx, r.clock, r.cfg.CycleInterval) {
			return
		}
	}
}

func (r *BatchRunner) RunSequential(ctx context.Context, perBatch int) {
	if perBatch <= 0 {
		perBatch = 1
	}

	for ctx.Err() == nil {
		r.RunBatch(ctx, perBatch)
		if !sleep(ctx, r.clock, r.cfg.CycleInterval) {
			return
		}
	}
}

func (r *BatchRunner) view(ctx context.Context) bool {
	r.stats.adsAttempted.Add(1)
	ok := r.viewer.View(ctx)
	if ok {
		r.stats.adsSucceeded.Add(1)
	}
	return ok
}
