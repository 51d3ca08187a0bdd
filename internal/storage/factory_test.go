package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreBackends(t *testing.T) {
	store, err := NewStore("", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = NewStore(BackendMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
	assert.NoError(t, CloseIfSupported(store))

	store, err = NewStore(BackendBadger, "")
	require.NoError(t, err)
	badgerStore, ok := store.(*BadgerStore)
	require.True(t, ok)
	assert.True(t, badgerStore.cfg.InMemory)
	assert.NoError(t, CloseIfSupported(store))

	_, err = NewStore("postgres", "")
	assert.Error(t, err)
}
