package expiry_test

import (
	"testing"

	"github.com/chetanran/devsecops-sec-dashboard/session/expiry"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := expiry.NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, ok, err := store.Load()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Save(1748779200000))

	ms, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1748779200000), ms)
}

func TestFileStoreClearRemovesRecord(t *testing.T) {
	store, err := expiry.NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(1748779200000))
	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear()) // clearing an empty store is fine

	_, ok, err := store.Load()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileStoreSharedBetweenInstances(t *testing.T) {
	folder := t.TempDir()

	tabA, err := expiry.NewFileStore(folder)
	require.NoError(t, err)
	tabB, err := expiry.NewFileStore(folder)
	require.NoError(t, err)

	require.NoError(t, tabA.Save(1748779200000))

	ms, ok, err := tabB.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1748779200000), ms)

	// A logout in one tab is visible to the other.
	require.NoError(t, tabA.Clear())
	_, ok, err = tabB.Load()
	require.NoError(t, err)
	require.False(t, ok)
}
