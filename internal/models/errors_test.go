package models_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/mediavault/internal/models"
)

func TestStorageError(t *testing.T) {
	tests := []struct {
		name string
		err  *models.StorageError
		want string
	}{
		{
			name: "with path",
			err: &models.StorageError{
				Op:   "write",
				Path: "blobs/abc.bin",
				Err:  errors.New("disk full"),
			},
			want: "storage write blobs/abc.bin: disk full",
		},
		{
			name: "without path",
			err: &models.StorageError{
				Op:  "sync",
				Err: errors.New("device busy"),
			},
			want: "storage sync: device busy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestItemError(t *testing.T) {
	err := &models.ItemError{
		ID:    "item-123",
		Stage: "decrypt",
		Err:   models.ErrAuthenticationFailed,
	}

	assert.Equal(t, "item item-123: decrypt: ciphertext authentication failed", err.Error())
}

func TestCorruptionError(t *testing.T) {
	err := &models.CorruptionError{ID: "item-123", Reason: "bad nonce"}

	assert.Equal(t, "item item-123 corrupted: bad nonce", err.Error())
}

func TestErrorUnwrapping(t *testing.T) {
	baseErr := errors.New("base error")

	t.Run("StorageError unwrap", func(t *testing.T) {
		err := &models.StorageError{Op: "read", Path: "manifest.json", Err: baseErr}
		assert.Equal(t, baseErr, errors.Unwrap(err))
	})

	t.Run("ItemError unwrap", func(t *testing.T) {
		err := &models.ItemError{ID: "item-1", Stage: "read", Err: models.ErrSourceUnavailable}
		assert.ErrorIs(t, err, models.ErrSourceUnavailable)
	})

	t.Run("CorruptionError unwraps to sentinel", func(t *testing.T) {
		err := &models.CorruptionError{ID: "item-1", Reason: "bad auth tag"}
		assert.ErrorIs(t, err, models.ErrCorruptedItem)
	})
}

func TestMediaKindValid(t *testing.T) {
	assert.True(t, models.MediaPhoto.Valid())
	assert.True(t, models.MediaVideo.Valid())
	assert.False(t, models.MediaKind("document").Valid())
	assert.False(t, models.MediaKind("").Valid())
}

func TestManifestClone(t *testing.T) {
	m := models.NewManifest(1)
	m.Items["a"] = &models.VaultItem{ID: "a", VaultAlbum: "Travel"}

	c := m.Clone()
	c.Items["a"].VaultAlbum = "Changed"
	c.Items["b"] = &models.VaultItem{ID: "b"}

	assert.Equal(t, "Travel", m.Items["a"].VaultAlbum, "clone mutations never reach the original")
	assert.NotContains(t, m.Items, "b")
}

func TestManifestAlbums(t *testing.T) {
	m := models.NewManifest(1)
	m.Items["a"] = &models.VaultItem{ID: "a", VaultAlbum: "Travel"}
	m.Items["b"] = &models.VaultItem{ID: "b", VaultAlbum: "Travel"}
	m.Items["c"] = &models.VaultItem{ID: "c"}

	assert.Equal(t, []string{"Travel"}, m.Albums())
}
