package ports

import (
	"context"

	"github.com/bnema/whitebunny-cli/internal/domain"
)

// Connection is the read side of the game session plus its fire-and-forget
// send. Emit reports whether the frame was written; it never returns an error.
type Connection interface {
	State() domain.ConnectionState
	Emit(event string, payload any) bool
}

type Transport interface {
	Connection
	Connect(ctx context.Context, endpoint string) (domain.Session, error)
	Close() error
}

type Reconnector interface {
	EnsureConnected(ctx context.Context) bool
}
