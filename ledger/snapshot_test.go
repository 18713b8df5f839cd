package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yanlewen/TradeTrap/position"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	s, err := NewSnapshotStore(filepath.Join(t.TempDir(), "ledger_state.json"))
	require.NoError(t, err)
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	state, err := position.NewState(500)
	require.NoError(t, err)
	require.NoError(t, state.ApplyBuy("AAPL", 10, 10))

	require.NoError(t, store.Save(Snapshot{Positions: state, ID: 7, Date: "2024-03-01"}))

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(7), snap.ID)
	assert.Equal(t, "2024-03-01", snap.Date)
	assert.Equal(t, int64(10), snap.Positions.Quantity("AAPL"))
	assert.InDelta(t, 400.0, snap.Positions.Cash(), 1e-9)
}

func TestSnapshotMissingIsNotAnError(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	snap, err := store.Load()
	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSnapshotCorruptIsTyped(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("garbage"), 0o644))

	_, err := store.Load()
	var ce *CorruptSnapshotError
	assert.ErrorAs(t, err, &ce)
}

func TestSnapshotSaveOverwrites(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	s1, err := position.NewState(100)
	require.NoError(t, err)
	s2, err := position.NewState(200)
	require.NoError(t, err)

	require.NoError(t, store.Save(Snapshot{Positions: s1, ID: 1, Date: "2024-03-01"}))
	require.NoError(t, store.Save(Snapshot{Positions: s2, ID: 2, Date: "2024-03-02"}))

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.ID)
	assert.InDelta(t, 200.0, snap.Positions.Cash(), 1e-9)
}
