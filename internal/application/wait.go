package application

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/bnema/whitebunny-cli/internal/ports"
)

// sleep waits for d on clock and reports false if ctx ended first.
func sleep(ctx context.Context, clock ports.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	select {
	case <-ctx.Done():
		return false
	case <-clock.After(d):
		return true
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
