package db

import (
	"testing"

	"github.com/atlasprotocol/deposit-relayer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ScanCursorStore {
	t.Helper()
	config.AppConfig.DbDir = t.TempDir()
	dbm := NewDatabaseManager()
	return NewScanCursorStore(dbm)
}

func TestGetCursorDefaultsToZero(t *testing.T) {
	store := newTestStore(t)

	value, err := store.GetCursor(StreamKey("BITCOIN", "regtest", CURSOR_KIND_SCANNED_HEIGHT))
	require.NoError(t, err)
	assert.Equal(t, int64(0), value)
}

func TestSetCursorPersistsAndUpserts(t *testing.T) {
	store := newTestStore(t)
	key := StreamKey("BITCOIN", "regtest", CURSOR_KIND_SCANNED_HEIGHT)

	require.NoError(t, store.SetCursor(key, 100))
	value, err := store.GetCursor(key)
	require.NoError(t, err)
	assert.Equal(t, int64(100), value)

	require.NoError(t, store.SetCursor(key, 105))
	value, err = store.GetCursor(key)
	require.NoError(t, err)
	assert.Equal(t, int64(105), value)
}

func TestCursorStreamsAreIndependent(t *testing.T) {
	store := newTestStore(t)
	heightKey := StreamKey("BITCOIN", "testnet3", CURSOR_KIND_SCANNED_HEIGHT)
	timeKey := StreamKey("BITCOIN", "testnet3", CURSOR_KIND_CONFIRMED_TIME)

	require.NoError(t, store.SetCursor(heightKey, 7))
	require.NoError(t, store.SetCursor(timeKey, 1_700_000_000_000))

	height, err := store.GetCursor(heightKey)
	require.NoError(t, err)
	processed, err := store.GetCursor(timeKey)
	require.NoError(t, err)
	assert.Equal(t, int64(7), height)
	assert.Equal(t, int64(1_700_000_000_000), processed)
}

func TestCursorSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	config.AppConfig.DbDir = dir
	key := StreamKey("BITCOIN", "regtest", CURSOR_KIND_CONFIRMED_TIME)

	store := NewScanCursorStore(NewDatabaseManager())
	require.NoError(t, store.SetCursor(key, 42))

	// a fresh manager over the same directory sees the persisted value
	reopened := NewScanCursorStore(NewDatabaseManager())
	value, err := reopened.GetCursor(key)
	require.NoError(t, err)
	assert.Equal(t, int64(42), value)
}
