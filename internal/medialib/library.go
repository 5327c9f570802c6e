// Package medialib defines the photo-library collaborator: the
// shared, unencrypted library that items are hidden from and restored
// to. The engine never enumerates the library itself; it consumes
// this interface.
package medialib

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/TheMichaelB/mediavault/internal/models"
)

// Album describes one library album.
type Album struct {
	Name       string `json:"name"`
	AssetCount int    `json:"asset_count"`
}

// Asset describes one library item.
type Asset struct {
	ID       string           `json:"id"`
	Filename string           `json:"filename"`
	Album    string           `json:"album,omitempty"`
	Kind     models.MediaKind `json:"kind"`
	TakenAt  time.Time        `json:"taken_at"`
	Size     int64            `json:"size"`
}

// Library is the external media library collaborator.
type Library interface {
	// ListAlbums returns album metadata.
	ListAlbums(ctx context.Context) ([]Album, error)

	// ListAssets returns the assets in an album. An empty album name
	// means the flat library root.
	ListAssets(ctx context.Context, album string) ([]Asset, error)

	// ReadAsset returns the asset bytes and descriptor.
	ReadAsset(ctx context.Context, id string) ([]byte, Asset, error)

	// DeleteAsset removes the asset from the library.
	DeleteAsset(ctx context.Context, id string) error

	// CreateAsset writes a new asset, optionally into an album, and
	// returns its id.
	CreateAsset(ctx context.Context, data []byte, filename, album string, takenAt time.Time) (string, error)
}

// KindForFilename guesses the media kind from a filename extension.
func KindForFilename(name string) (models.MediaKind, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".heic", ".heif", ".webp", ".tiff", ".bmp":
		return models.MediaPhoto, true
	case ".mp4", ".mov", ".m4v", ".avi", ".mkv", ".webm":
		return models.MediaVideo, true
	default:
		return "", false
	}
}
