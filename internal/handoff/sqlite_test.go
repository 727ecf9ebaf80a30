package handoff

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docuflow/internal/common"
)

func openTestStore(t *testing.T, path string, ttl time.Duration) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(path, ttl, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "handoff.db"), 0)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "doc-1", sampleBlob()))

	got, err := s.Take(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "invoice-001", got.Document.Name)
	assert.Equal(t, "Invoices", got.FolderName)
	assert.Equal(t, "parsed text", got.Parse.Text)

	_, err = s.Take(ctx, "doc-1")
	assert.ErrorIs(t, err, common.ErrNotFound, "take removes the row")
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handoff.db")
	ctx := context.Background()

	first := openTestStore(t, path, 0)
	require.NoError(t, first.Put(ctx, "doc-1", sampleBlob()))
	require.NoError(t, first.Close())

	second := openTestStore(t, path, 0)
	got, err := second.Take(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.Document.ID)
}

func TestSQLiteStore_UpsertReplaces(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "handoff.db"), 0)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "doc-1", sampleBlob()))

	newer := sampleBlob()
	newer.Parse.Text = "newer parse"
	require.NoError(t, s.Put(ctx, "doc-1", newer))

	got, err := s.Take(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "newer parse", got.Parse.Text)
}

func TestSQLiteStore_ExpiredBlobIsAbsent(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "handoff.db"), time.Minute)
	ctx := context.Background()

	stale := sampleBlob()
	stale.StoredAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.Put(ctx, "doc-1", stale))

	_, err := s.Take(ctx, "doc-1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// The expired row is gone, not just hidden.
	_, err = s.Take(ctx, "doc-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStore_FreshBlobWithinTTL(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "handoff.db"), time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "doc-1", sampleBlob()))
	got, err := s.Take(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.Document.ID)
}
