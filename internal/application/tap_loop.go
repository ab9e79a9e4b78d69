package application

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bnema/whitebunny-cli/internal/domain"
	"github.com/bnema/whitebunny-cli/internal/ports"
)

const (
	tapEvent           = "tapBunny"
	DefaultTapInterval = 100 * time.Millisecond
)

// TapLoop sends one tap per period while the session is open. Missed taps are
// not replayed.
type TapLoop struct {
	conn   ports.Connection
	period time.Duration
	logger *slog.Logger

	stopped atomic.Bool
	stopCh  chan struct{}
	sent    atomic.Int64
	skipped atomic.Int64
}

func NewTapLoop(conn ports.Connection, period time.Duration, logger *slog.Logger) *TapLoop {
	if period <= 0 {
		period = DefaultTapInterval
	}
	if logger == nil {
		logger = discardLogger()
	}

	return &TapLoop{
		conn:   conn,
		period: period,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

func (l *TapLoop) Run(ctx context.Context) {
	if l.stopped.Load() {
		return
	}

	l.logger.Info("Starting auto-tap", slog.Duration("interval", l.period))
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			return
		case <-ticker.C:
			if l.stopped.Load() {
				return
			}
			l.tap()
		}
	}
}

func (l *TapLoop) tap() {
	if l.conn.State() != domain.StateOpen {
		l.skipped.Add(1)
		return
	}
	if l.conn.Emit(tapEvent, nil) {
		l.sent.Add(1)
		return
	}
	l.skipped.Add(1)
}

func (l *TapLoop) Stop() {
	if l.stopped.CompareAndSwap(false, true) {
		close(l.stopCh)
	}
}

func (l *TapLoop) Sent() int64 {
	return l.sent.Load()
}

func (l *TapLoop) Skipped() int64 {
	return l.skipped.Load()
}
