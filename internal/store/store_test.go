package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apim-analytics-backend/internal/store"
)

func backends(t *testing.T) map[string]store.GlobalStateStore {
	t.Helper()
	fileStore, err := store.NewFileStore(filepath.Join(t.TempDir(), "global_state.json"))
	require.NoError(t, err)
	badgerStore, err := store.NewBadgerStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = badgerStore.Close() })

	return map[string]store.GlobalStateStore{
		"memory": store.NewInMemoryStore(),
		"file":   fileStore,
		"badger": badgerStore,
	}
}

func TestGlobalStateStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "platforms")
			assert.ErrorIs(t, err, store.ErrStateNotFound)

			require.NoError(t, s.Set(ctx, "platforms", []byte(`{"limit":5}`)))
			got, err := s.Get(ctx, "platforms")
			require.NoError(t, err)
			assert.JSONEq(t, `{"limit":5}`, string(got))

			require.NoError(t, s.Set(ctx, "platforms", []byte(`{"limit":10}`)))
			got, err = s.Get(ctx, "platforms")
			require.NoError(t, err)
			assert.JSONEq(t, `{"limit":10}`, string(got))
		})
	}
}

func TestGlobalStateStore_ReturnedBytesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()
	value := []byte(`{"a":1}`)
	require.NoError(t, s.Set(ctx, "k", value))
	value[2] = 'b'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "global_state.json")

	s, err := store.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "platforms", []byte(`{"apiSelected":"PizzaShack"}`)))

	reopened, err := store.NewFileStore(path)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "platforms")
	require.NoError(t, err)
	assert.JSONEq(t, `{"apiSelected":"PizzaShack"}`, string(got))
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "global_state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := store.NewFileStore(path)
	assert.Error(t, err)
}
