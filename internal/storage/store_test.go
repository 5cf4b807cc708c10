package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, KeyServiceToken)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, KeyServiceToken, "tok-1"))
	value, err := store.Get(ctx, KeyServiceToken)
	require.NoError(t, err)
	require.Equal(t, "tok-1", value)

	require.NoError(t, store.Delete(ctx, KeyServiceToken))
	_, err = store.Get(ctx, KeyServiceToken)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, KeyUserToken, "user-jwt"))
	require.NoError(t, store.Set(ctx, KeyUserToken, "user-jwt-2"))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	value, err := reopened.Get(ctx, KeyUserToken)
	require.NoError(t, err)
	require.Equal(t, "user-jwt-2", value)

	_, err = reopened.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
