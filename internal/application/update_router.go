package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bnema/whitebunny-cli/internal/domain"
)

// UpdateRouter receives every inbound "update" event. It keeps the latest
// player snapshot and resolves at most one armed reward waiter at a time.
type UpdateRouter struct {
	logger *slog.Logger
	slot   chan struct{}

	mu     sync.Mutex
	waiter chan domain.PlayerUpdate
	latest domain.PlayerUpdate
}

func NewUpdateRouter(logger *slog.Logger) *UpdateRouter {
	if logger == nil {
		logger = discardLogger()
	}

	return &UpdateRouter{
		logger: logger,
		slot:   make(chan struct{}, 1),
	}
}

func (r *UpdateRouter) HandleUpdate(update domain.PlayerUpdate) {
	var waiter chan domain.PlayerUpdate
	r.mu.Lock()
	if update.HasTotal {
		r.latest = update
		waiter = r.waiter
		r.waiter = nil
	}
	r.mu.Unlock()

	if update.HasTotal {
		r.logger.Info("Points", slog.String("player", update.FirstName), slog.Int64("total", update.TotalPoint))
	} else {
		r.logger.Debug("Update without point total", slog.String("player", update.FirstName))
	}

	if waiter != nil {
		waiter <- update
	}
}

func (r *UpdateRouter) Latest() (domain.PlayerUpdate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest, r.latest.HasTotal
}

func (r *UpdateRouter) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiter != nil
}

// Arm installs the single reward waiter, blocking while another claim holds
// it. The returned handle must be disarmed.
func (r *UpdateRouter) Arm(ctx context.Context) (*PendingClaim, error) {
	select {
	case r.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	ch := make(chan domain.PlayerUpdate, 1)
	r.mu.Lock()
	r.waiter = ch
	r.mu.Unlock()

	return &PendingClaim{router: r, ch: ch}, nil
}

// PendingClaim is the armed side of one reward confirmation.
type PendingClaim struct {
	router *UpdateRouter
	ch     chan domain.PlayerUpdate
	once   sync.Once
}

func (p *PendingClaim) C() <-chan domain.PlayerUpdate {
	return p.ch
}

func (p *PendingClaim) Disarm() {
	p.once.Do(func() {
		p.router.mu.Lock()
		if p.router.waiter == p.ch {
			p.router.waiter = nil
		}
		p.router.mu.Unlock()
		<-p.router.slot
	})
}
