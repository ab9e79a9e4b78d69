package ports

import "context"

// SecretStore persists small credentials. Get wraps domain.ErrSecretNotFound
// when the key holds nothing.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
