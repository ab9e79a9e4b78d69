package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/whitebunny-cli/internal/domain"
	"github.com/bnema/whitebunny-cli/internal/ports"
	"golang.org/x/sync/singleflight"
)

const reconnectKey = "reconnect"

var DefaultServers = []string{
	"api-fra-2.whitebunny.wtf",
	"api-fra-1.whitebunny.wtf",
}

func DefaultReconnectBudget() domain.RetryBudget {
	return domain.NewRetryBudget(domain.BackoffExponential, 5, time.Second).WithMaxDelay(30 * time.Second)
}

// Supervisor keeps the transport connected. Concurrent callers share one
// reconnect sequence.
type Supervisor struct {
	transport ports.Transport
	budget    domain.RetryBudget
	clock     ports.Clock
	logger    *slog.Logger
	group     singleflight.Group
	rejected  chan struct{}

	mu       sync.Mutex
	servers  []string
	next     int
	terminal error
	sequence int64
}

var _ ports.Reconnector = (*Supervisor)(nil)

func NewSupervisor(transport ports.Transport, servers []string, budget domain.RetryBudget, clock ports.Clock, logger *slog.Logger) *Supervisor {
	if len(servers) == 0 {
		servers = DefaultServers
	}
	if budget.MaxAttempts <= 0 {
		budget = DefaultReconnectBudget()
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = discardLogger()
	}

	return &Supervisor{
		transport: transport,
		budget:    budget,
		clock:     clock,
		logger:    logger,
		servers:   append([]string(nil), servers...),
		rejected:  make(chan struct{}),
	}
}

func (s *Supervisor) EnsureConnected(ctx context.Context) bool {
	if s.transport.State() == domain.StateOpen {
		return true
	}

	result, _, _ := s.group.Do(reconnectKey, func() (any, error) {
		return s.reconnect(ctx), nil
	})
	connected, _ := result.(bool)
	return connected
}

// Err returns the terminal connect error, if one ended reconnection for good.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

// Rejected is closed once a terminal connect error has been recorded.
func (s *Supervisor) Rejected() <-chan struct{} {
	return s.rejected
}

func (s *Supervisor) CurrentServer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.servers[s.next]
}

// Sequences counts reconnect sequences started so far.
func (s *Supervisor) Sequences() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequence
}

func (s *Supervisor) reconnect(ctx context.Context) bool {
	s.mu.Lock()
	s.sequence++
	terminal := s.terminal
	s.mu.Unlock()
	if terminal != nil {
		s.logger.Error("Not reconnecting, credentials were rejected", slog.Any("error", terminal))
		return false
	}

	budget := s.budget.Reset()
	for {
		if s.transport.State() == domain.StateOpen {
			return true
		}

		server := s.CurrentServer()
		budget = budget.Next()
		s.logger.Info("Connecting",
			slog.String("server", server),
			slog.Int("attempt", budget.Attempts),
			slog.Int("max_attempts", budget.MaxAttempts))

		_, err := s.transport.Connect(ctx, server)
		if err == nil {
			return true
		}

		var connectErr *domain.ConnectError
		if errors.As(err, &connectErr) && connectErr.Terminal() {
			s.mu.Lock()
			if s.terminal == nil {
				s.terminal = err
				close(s.rejected)
			}
			s.mu.Unlock()
			s.logger.Error("Unauthorized - please check your token", slog.Any("error", err))
			return false
		}

		s.logger.Warn("Failed to connect",
			slog.String("server", server),
			slog.Bool("retryable", domain.IsRetryable(err)),
			slog.Any("error", err))
		s.advance()

		if budget.Exhausted() {
			s.logger.Error("Max retries reached, staying disconnected", slog.Int("attempts", budget.Attempts))
			return false
		}
		if !sleep(ctx, s.clock, budget.Delay()) {
			return false
		}
	}
}

func (s *Supervisor) advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = (s.next + 1) % len(s.servers)
}
