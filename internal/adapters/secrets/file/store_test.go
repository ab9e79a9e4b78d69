package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/whitebunny-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRejectsInvalidKeys(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	testCases := []struct {
		name    string
		key     string
		wantErr string
	}{
		{name: "empty", key: "", wantErr: "secret key is empty"},
		{name: "whitespace", key: "   ", wantErr: "secret key is empty"},
		{name: "absolute", key: "/absolute/path", wantErr: "invalid secret key"},
		{name: "traversal", key: "../escape", wantErr: "invalid secret key"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Put(context.Background(), tc.key, "value")
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestStoreTokenRoundTripTrimsAndRestrictsPermissions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)

	require.NoError(t, store.Put(context.Background(), TokenKey, "  bearer-abc\n"))

	got, err := store.Get(context.Background(), TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "bearer-abc", got)

	info, err := os.Stat(filepath.Join(root, TokenKey))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(secretFileMode), info.Mode().Perm())

	leftovers, err := filepath.Glob(filepath.Join(root, ".secret-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestStoreOverwritesExistingToken(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	require.NoError(t, store.Put(context.Background(), TokenKey, "old"))
	require.NoError(t, store.Put(context.Background(), TokenKey, "new"))

	got, err := store.Get(context.Background(), TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}

func TestStoreGetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	_, err := store.Get(context.Background(), TokenKey)
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreRejectsEmptyValue(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	err := store.Put(context.Background(), TokenKey, " \n")
	require.ErrorContains(t, err, "value is empty")
}

func TestStoreDeleteIsIdempotentWhenSecretMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	require.NoError(t, store.Put(context.Background(), TokenKey, "value"))
	require.NoError(t, store.Delete(context.Background(), TokenKey))
	require.NoError(t, store.Delete(context.Background(), TokenKey))

	_, err := store.Get(context.Background(), TokenKey)
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, store.Put(ctx, TokenKey, "value"), context.Canceled)
}
