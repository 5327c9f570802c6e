package storage

import (
	"os"
	"time"
)

// BlobStore manages local file operations for the vault's blobs.
type BlobStore interface {
	// Write saves data atomically to a store-relative path.
	Write(path string, data []byte, mode os.FileMode) error

	// Read retrieves file contents.
	Read(path string) ([]byte, error)

	// Delete removes a file. Deleting an absent file is not an error.
	Delete(path string) error

	// Exists checks if a file exists.
	Exists(path string) (bool, error)

	// ListDir returns directory contents (non-recursive).
	ListDir(path string) ([]FileInfo, error)

	// EnsureDir creates a directory if it doesn't exist.
	EnsureDir(path string) error
}

// FileInfo contains file metadata.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}
