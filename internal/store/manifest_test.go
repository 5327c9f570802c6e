package store_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/mediavault/internal/crypto"
	"github.com/TheMichaelB/mediavault/internal/events"
	"github.com/TheMichaelB/mediavault/internal/models"
	"github.com/TheMichaelB/mediavault/internal/store"
)

func newManifestStore(t *testing.T) (*store.ManifestStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.NewManifestStore(dir, events.NewTestLogger())
	require.NoError(t, err)
	return s, dir
}

func sampleManifest() *models.Manifest {
	m := models.NewManifest(crypto.KDFLegacySHA256)
	m.Items["item-1"] = &models.VaultItem{
		ID:               "item-1",
		Kind:             models.MediaPhoto,
		ContentHash:      "abc123",
		Nonce:            "00112233445566778899aabb",
		AuthTag:          "00112233445566778899aabbccddeeff",
		CiphertextRef:    "blobs/item-1.bin",
		OriginalFilename: "IMG_0001.jpg",
		CreationDate:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Size:             1024,
		AddedAt:          time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
	}
	return m
}

func TestManifestStore_SaveLoad(t *testing.T) {
	s, _ := newManifestStore(t)

	require.NoError(t, s.Save(sampleManifest()))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, models.CurrentFormatVersion, loaded.FormatVersion)
	assert.Equal(t, crypto.KDFLegacySHA256, loaded.KDFVersion)
	require.Contains(t, loaded.Items, "item-1")
	assert.Equal(t, "IMG_0001.jpg", loaded.Items["item-1"].OriginalFilename)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestManifestStore_LoadMissing(t *testing.T) {
	s, _ := newManifestStore(t)

	_, err := s.Load()
	assert.ErrorIs(t, err, store.ErrManifestNotFound)
}

func TestManifestStore_ChecksumMismatch(t *testing.T) {
	s, dir := newManifestStore(t)
	require.NoError(t, s.Save(sampleManifest()))

	// Valid JSON, tampered content: the checksum no longer matches.
	path := filepath.Join(dir, "manifest.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"original_filename": "IMG_0001.jpg"`)
	tampered := strings.Replace(string(data), "IMG_0001.jpg", "IMG_9999.jpg", 1)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0600))

	_, err = s.Load()
	assert.ErrorIs(t, err, store.ErrManifestCorrupt)
}

func TestManifestStore_MalformedJSON(t *testing.T) {
	s, dir := newManifestStore(t)

	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0600))

	_, err := s.Load()
	assert.ErrorIs(t, err, store.ErrManifestCorrupt)
}

func TestManifestStore_DiscardsLeftoverStage(t *testing.T) {
	s, dir := newManifestStore(t)
	require.NoError(t, s.Save(sampleManifest()))

	// Simulate a crash between staging and swap: the staged file is on
	// disk but was never renamed over the live manifest.
	staged := filepath.Join(dir, "manifest.json.staged")
	require.NoError(t, os.WriteFile(staged, []byte(`{"manifest":{"format_version":1,"kdf_version":1,"items":{}}}`), 0600))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Contains(t, loaded.Items, "item-1", "live manifest is authoritative")

	_, err = os.Stat(staged)
	assert.True(t, os.IsNotExist(err), "leftover stage removed")
}

func TestManifestStore_RejectsNewerFormat(t *testing.T) {
	s, _ := newManifestStore(t)

	m := sampleManifest()
	m.FormatVersion = models.CurrentFormatVersion + 1
	require.NoError(t, s.Save(m))

	_, err := s.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format version")
}
