package index_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/mediavault/internal/events"
	"github.com/TheMichaelB/mediavault/internal/index"
	"github.com/TheMichaelB/mediavault/internal/models"
)

func openIndex(t *testing.T) *index.SQLiteIndex {
	t.Helper()
	idx, err := index.Open(filepath.Join(t.TempDir(), "index.db"), events.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func item(id, filename, sourceAlbum, vaultAlbum string, added time.Time) *models.VaultItem {
	return &models.VaultItem{
		ID:               id,
		Kind:             models.MediaPhoto,
		OriginalFilename: filename,
		SourceAlbum:      sourceAlbum,
		VaultAlbum:       vaultAlbum,
		CreationDate:     added.Add(-24 * time.Hour),
		AddedAt:          added,
	}
}

func TestIndex_Search(t *testing.T) {
	idx := openIndex(t)
	now := time.Now().UTC()

	idx.ItemAdded(item("a", "beach_sunset.jpg", "Camera Roll", "Travel", now))
	idx.ItemAdded(item("b", "IMG_0002.jpg", "Camera Roll", "Family", now.Add(time.Minute)))
	idx.ItemAdded(item("c", "mountain.jpg", "Hiking", "Travel", now.Add(2*time.Minute)))

	t.Run("by filename", func(t *testing.T) {
		entries, err := idx.Search("beach")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "a", entries[0].ID)
	})

	t.Run("by source album", func(t *testing.T) {
		entries, err := idx.Search("Hiking")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "c", entries[0].ID)
	})

	t.Run("by vault album substring", func(t *testing.T) {
		entries, err := idx.Search("Trav")
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("no match", func(t *testing.T) {
		entries, err := idx.Search("nothing-here")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestIndex_ByAlbum(t *testing.T) {
	idx := openIndex(t)
	now := time.Now().UTC()

	idx.ItemAdded(item("a", "a.jpg", "", "Travel", now))
	idx.ItemAdded(item("b", "b.jpg", "", "Travel", now.Add(time.Minute)))
	idx.ItemAdded(item("c", "c.jpg", "", "Family", now))

	entries, err := idx.ByAlbum("Travel")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = idx.ByAlbum("Nothing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIndex_Recent(t *testing.T) {
	idx := openIndex(t)
	base := time.Now().UTC()

	for i, id := range []string{"one", "two", "three"} {
		idx.ItemAdded(item(id, id+".jpg", "", "", base.Add(time.Duration(i)*time.Minute)))
	}

	entries, err := idx.Recent(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "three", entries[0].ID, "newest first")
	assert.Equal(t, "two", entries[1].ID)
}

func TestIndex_UpdateAndRemove(t *testing.T) {
	idx := openIndex(t)
	now := time.Now().UTC()

	it := item("a", "a.jpg", "", "", now)
	idx.ItemAdded(it)

	it.VaultAlbum = "Travel"
	it.Flagged = true
	idx.ItemUpdated(it)

	entries, err := idx.ByAlbum("Travel")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Flagged)

	idx.ItemRemoved("a")
	entries, err = idx.Search("a.jpg")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIndex_Rebuild(t *testing.T) {
	idx := openIndex(t)
	now := time.Now().UTC()

	// Stale rows from a previous run.
	idx.ItemAdded(item("stale-1", "old.jpg", "", "", now))
	idx.ItemAdded(item("stale-2", "older.jpg", "", "", now))

	require.NoError(t, idx.Rebuild([]*models.VaultItem{
		item("fresh", "new.jpg", "", "", now),
	}))

	entries, err := idx.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].ID)
}

func TestIndex_RebuildEmpty(t *testing.T) {
	idx := openIndex(t)
	idx.ItemAdded(item("a", "a.jpg", "", "", time.Now().UTC()))

	require.NoError(t, idx.Rebuild(nil))

	entries, err := idx.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
