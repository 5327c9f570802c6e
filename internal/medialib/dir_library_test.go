package medialib_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/mediavault/internal/events"
	"github.com/TheMichaelB/mediavault/internal/medialib"
	"github.com/TheMichaelB/mediavault/internal/models"
)

func newLibrary(t *testing.T) (*medialib.DirLibrary, string) {
	t.Helper()
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "Holiday"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Holiday", "beach.jpg"), []byte("beach pixels"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Holiday", "surf.mov"), []byte("surf frames"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Holiday", "notes.txt"), []byte("not media"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "root.png"), []byte("root pixels"), 0644))

	lib, err := medialib.NewDirLibrary(root, events.NewTestLogger())
	require.NoError(t, err)
	return lib, root
}

func TestNewDirLibrary_MissingRoot(t *testing.T) {
	_, err := medialib.NewDirLibrary(filepath.Join(t.TempDir(), "absent"), events.NewTestLogger())
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)
}

func TestDirLibrary_ListAlbums(t *testing.T) {
	lib, _ := newLibrary(t)

	albums, err := lib.ListAlbums(context.Background())
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "Holiday", albums[0].Name)
	assert.Equal(t, 2, albums[0].AssetCount, "non-media files are not assets")
}

func TestDirLibrary_ListAssets(t *testing.T) {
	lib, _ := newLibrary(t)

	assets, err := lib.ListAssets(context.Background(), "Holiday")
	require.NoError(t, err)
	require.Len(t, assets, 2)

	byID := make(map[string]medialib.Asset)
	for _, a := range assets {
		byID[a.ID] = a
	}
	require.Contains(t, byID, "Holiday/beach.jpg")
	require.Contains(t, byID, "Holiday/surf.mov")
	assert.Equal(t, models.MediaPhoto, byID["Holiday/beach.jpg"].Kind)
	assert.Equal(t, models.MediaVideo, byID["Holiday/surf.mov"].Kind)

	flat, err := lib.ListAssets(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, flat, 1)
	assert.Equal(t, "root.png", flat[0].ID)
}

func TestDirLibrary_ReadAsset(t *testing.T) {
	lib, _ := newLibrary(t)

	data, asset, err := lib.ReadAsset(context.Background(), "Holiday/beach.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("beach pixels"), data)
	assert.Equal(t, "beach.jpg", asset.Filename)
	assert.Equal(t, "Holiday", asset.Album)
	assert.Equal(t, models.MediaPhoto, asset.Kind)

	_, _, err = lib.ReadAsset(context.Background(), "Holiday/missing.jpg")
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)

	_, _, err = lib.ReadAsset(context.Background(), "Holiday/notes.txt")
	assert.ErrorIs(t, err, models.ErrSourceUnavailable, "unsupported type")
}

func TestDirLibrary_DeleteAsset(t *testing.T) {
	lib, root := newLibrary(t)

	require.NoError(t, lib.DeleteAsset(context.Background(), "Holiday/beach.jpg"))
	_, err := os.Stat(filepath.Join(root, "Holiday", "beach.jpg"))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, lib.DeleteAsset(context.Background(), "Holiday/beach.jpg"), models.ErrSourceUnavailable)
}

func TestDirLibrary_CreateAsset(t *testing.T) {
	lib, root := newLibrary(t)
	taken := time.Date(2023, 8, 14, 10, 0, 0, 0, time.UTC)

	id, err := lib.CreateAsset(context.Background(), []byte("restored"), "photo.jpg", "Restored", taken)
	require.NoError(t, err)
	assert.Equal(t, "Restored/photo.jpg", id)

	path := filepath.Join(root, "Restored", "photo.jpg")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("restored"), data)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(taken), "creation date carried through the mtime")

	// A second write of the same name suffixes instead of overwriting.
	id2, err := lib.CreateAsset(context.Background(), []byte("second"), "photo.jpg", "Restored", taken)
	require.NoError(t, err)
	assert.Equal(t, "Restored/photo (1).jpg", id2)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("restored"), data, "original untouched")
}

func TestDirLibrary_CreateAsset_ConcurrentSameName(t *testing.T) {
	lib, root := newLibrary(t)

	const workers = 8
	var wg sync.WaitGroup
	ids := make([]string, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := []byte(fmt.Sprintf("copy-%d", i))
			ids[i], errs[i] = lib.CreateAsset(context.Background(), payload, "photo.jpg", "Restored", time.Time{})
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[ids[i]], "asset id %s claimed twice", ids[i])
		seen[ids[i]] = true

		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(ids[i])))
		require.NoError(t, err)
		assert.Equal(t, []byte(fmt.Sprintf("copy-%d", i)), data)
	}

	entries, err := os.ReadDir(filepath.Join(root, "Restored"))
	require.NoError(t, err)
	assert.Len(t, entries, workers)
}

func TestDirLibrary_RefusesEscapes(t *testing.T) {
	lib, _ := newLibrary(t)

	_, _, err := lib.ReadAsset(context.Background(), "../outside.jpg")
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)

	err = lib.DeleteAsset(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)
}

func TestKindForFilename(t *testing.T) {
	tests := []struct {
		name string
		kind models.MediaKind
		ok   bool
	}{
		{"a.jpg", models.MediaPhoto, true},
		{"a.JPEG", models.MediaPhoto, true},
		{"a.png", models.MediaPhoto, true},
		{"a.heic", models.MediaPhoto, true},
		{"b.mov", models.MediaVideo, true},
		{"b.MP4", models.MediaVideo, true},
		{"c.txt", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		kind, ok := medialib.KindForFilename(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		if tt.ok {
			assert.Equal(t, tt.kind, kind, tt.name)
		}
	}
}
