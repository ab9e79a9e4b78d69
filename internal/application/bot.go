package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/whitebunny-cli/internal/domain"
	"github.com/bnema/whitebunny-cli/internal/ports"
	"github.com/google/uuid"
)

type RecoveryPolicy string

const (
	// RecoveryReconnect reconnects in place through the Supervisor.
	RecoveryReconnect RecoveryPolicy = "reconnect"
	// RecoveryRestart tears the whole run down and starts it again.
	RecoveryRestart RecoveryPolicy = "restart"
)

func (p RecoveryPolicy) Valid() bool {
	return p == RecoveryReconnect || p == RecoveryRestart
}

type AdMode string

const (
	AdModeSequential AdMode = "sequential"
	AdModeParallel   AdMode = "parallel"
)

func (m AdMode) Valid() bool {
	return m == AdModeSequential || m == AdModeParallel
}

type BotConfig struct {
	AdMode       AdMode
	AdsPerBatch  int
	Recovery     RecoveryPolicy
	TapInterval  time.Duration
	RestartDelay time.Duration
}

var errRestartRequested = errors.New("restart requested")

// Bot owns one account's run: connection, tap loop and ad cycles, and the
// policy applied when the server drops the session.
type Bot struct {
	transport  ports.Transport
	supervisor *Supervisor
	router     *UpdateRouter
	batch      *BatchRunner
	stats      *Stats
	clock      ports.Clock
	cfg        BotConfig
	logger     *slog.Logger

	restart chan struct{}

	mu        sync.Mutex
	running   bool
	runCtx    context.Context
	startedAt time.Time
}

func NewBot(transport ports.Transport, supervisor *Supervisor, router *UpdateRouter, batch *BatchRunner, stats *Stats, clock ports.Clock, cfg BotConfig, logger *slog.Logger) *Bot {
	if !cfg.Recovery.Valid() {
		cfg.Recovery = RecoveryReconnect
	}
	if !cfg.AdMode.Valid() {
		cfg.AdMode = AdModeSequential
	}
	if cfg.AdsPerBatch <= 0 {
		cfg.AdsPerBatch = 10
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = time.Second
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

	return &Bot{
		transport:  transport,
		supervisor: supervisor,
		router:     router,
		batch:      batch,
		stats:      stats,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
		restart:    make(chan struct{}, 1),
	}
}

// Run blocks until ctx ends or the credentials are rejected.
func (b *Bot) Run(ctx context.Context) error {
	b.markStarted()

	for {
		err := b.runOnce(ctx, func(runCtx context.Context) {
			switch b.cfg.AdMode {
			case AdModeParallel:
				b.batch.RunParallel(runCtx)
			default:
				b.batch.RunSequential(runCtx, b.cfg.AdsPerBatch)
			}
		})
		if !errors.Is(err, errRestartRequested) {
			return err
		}

		b.stats.restarts.Add(1)
		b.logger.Info("Initiating full bot restart")
		if !sleep(ctx, b.clock, b.cfg.RestartDelay) {
			return nil
		}
	}
}

// RunBatch connects, views count ads sequentially and disconnects.
func (b *Bot) RunBatch(ctx context.Context, count int) (int, error) {
	b.markStarted()

	var succeeded int
	err := b.runOnce(ctx, func(runCtx context.Context) {
		succeeded = b.batch.RunBatch(runCtx, count)
	})
	if errors.Is(err, errRestartRequested) {
		err = nil
	}
	return succeeded, err
}

func (b *Bot) runOnce(ctx context.Context, ads func(context.Context)) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := b.logger.With(slog.String("run", uuid.NewString()))
	logger.Info("Starting bot")

	b.drainRestart()
	b.setRunning(runCtx, true)
	defer b.setRunning(nil, false)

	if !b.supervisor.EnsureConnected(runCtx) {
		if err := b.supervisor.Err(); err != nil {
			return fmt.Errorf("start bot: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn("Starting disconnected, the next reward claim will retry")
	}

	tap := NewTapLoop(b.transport, b.cfg.TapInterval, logger)
	adsDone := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		tap.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		defer close(adsDone)
		ads(runCtx)
	}()

	var result error
	select {
	case <-ctx.Done():
	case <-adsDone:
	case <-b.restart:
		result = errRestartRequested
	case <-b.supervisor.Rejected():
	}

	if result == nil {
		if err := b.supervisor.Err(); err != nil {
			result = fmt.Errorf("bot stopped: %w", err)
		}
	}

	tap.Stop()
	cancel()
	b.setRunning(nil, false)
	if err := b.transport.Close(); err != nil {
		logger.Warn("Failed to close session", slog.Any("error", err))
	}
	wg.Wait()

	b.stats.tapsSent.Add(tap.Sent())
	b.stats.tapsSkipped.Add(tap.Skipped())
	logger.Info("Bot stopped")

	return result
}

// HandleDisconnect applies the recovery policy to a server-side close. It is
// wired as the transport's close callback.
func (b *Bot) HandleDisconnect(cause error) {
	b.mu.Lock()
	running := b.running
	runCtx := b.runCtx
	b.mu.Unlock()
	if !running {
		return
	}

	b.stats.disconnects.Add(1)
	if errors.Is(cause, domain.ErrUnauthorized) {
		b.logger.Error("Session rejected", slog.Any("error", cause))
	}

	switch b.cfg.Recovery {
	case RecoveryRestart:
		select {
		case b.restart <- struct{}{}:
		default:
		}
	default:
		go func() {
			if !b.supervisor.EnsureConnected(runCtx) {
				b.logger.Warn("Still disconnected after reconnect attempts")
			}
		}()
	}
}

func (b *Bot) Summary() Summary {
	b.mu.Lock()
	startedAt := b.startedAt
	b.mu.Unlock()

	summary := Summary{
		StartedAt: startedAt,
		Server:    b.supervisor.CurrentServer(),
		State:     b.transport.State().String(),
	}
	if !startedAt.IsZero() {
		summary.Elapsed = b.clock.Now().Sub(startedAt)
	}
	if latest, ok := b.router.Latest(); ok {
		summary.Player = latest.FirstName
		summary.Points = latest.TotalPoint
		summary.HasPoints = true
	}
	b.stats.fill(&summary)

	return summary
}

func (b *Bot) markStarted() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.startedAt.IsZero() {
		b.startedAt = b.clock.Now()
	}
}

func (b *Bot) setRunning(runCtx context.Context, running bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = running
	b.runCtx = runCtx
}

func (b *Bot) drainRestart() {
	select {
	case <-b.restart:
	default:
	}
}
