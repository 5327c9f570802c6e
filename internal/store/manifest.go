package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TheMichaelB/mediavault/internal/events"
	"github.com/TheMichaelB/mediavault/internal/models"
)

// Manifest persistence errors.
var (
	ErrManifestNotFound = errors.New("manifest not found")
	ErrManifestCorrupt  = errors.New("manifest file is corrupt")
)

const (
	manifestName = "manifest.json"
	stagedSuffix = ".staged"
)

// manifestFile wraps the manifest with integrity metadata on disk.
type manifestFile struct {
	Manifest *models.Manifest `json:"manifest"`
	SavedAt  time.Time        `json:"saved_at"`
	Checksum string           `json:"checksum,omitempty"`
}

// ManifestStore persists the manifest with a staged-then-swap commit:
// the new state is written to a staging file, synced, and renamed
// over the live manifest. A crash between the two steps leaves either
// the old or the new manifest intact, never a mix.
type ManifestStore struct {
	dir    string
	logger *events.Logger
}

// NewManifestStore creates a manifest store in dir.
func NewManifestStore(dir string, logger *events.Logger) (*ManifestStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, &models.StorageError{Op: "mkdir", Path: dir, Err: err}
	}
	return &ManifestStore{
		dir:    dir,
		logger: logger.WithField("component", "manifest_store"),
	}, nil
}

func (s *ManifestStore) livePath() string {
	return filepath.Join(s.dir, manifestName)
}

func (s *ManifestStore) stagedPath() string {
	return filepath.Join(s.dir, manifestName+stagedSuffix)
}

// Load reads the live manifest, verifying its checksum. A leftover
// staging file from an interrupted commit is discarded; the live
// manifest is authoritative.
func (s *ManifestStore) Load() (*models.Manifest, error) {
	// Interrupted commit: the stage was written but never swapped in.
	if _, err := os.Stat(s.stagedPath()); err == nil {
		s.logger.Warn("Discarding leftover staged manifest")
		_ = os.Remove(s.stagedPath())
	}

	data, err := os.ReadFile(s.livePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrManifestNotFound
		}
		return nil, &models.StorageError{Op: "read", Path: s.livePath(), Err: err}
	}

	var wrapper manifestFile
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, ErrManifestCorrupt
	}
	if wrapper.Manifest == nil {
		return nil, ErrManifestCorrupt
	}

	if wrapper.Checksum != "" {
		expected := wrapper.Checksum
		wrapper.Checksum = ""
		if computeChecksum(&wrapper) != expected {
			s.logger.Error("Manifest checksum mismatch")
			return nil, ErrManifestCorrupt
		}
	}

	if wrapper.Manifest.FormatVersion > models.CurrentFormatVersion {
		return nil, fmt.Errorf("manifest format version %d is newer than supported %d",
			wrapper.Manifest.FormatVersion, models.CurrentFormatVersion)
	}
	if wrapper.Manifest.Items == nil {
		wrapper.Manifest.Items = make(map[string]*models.VaultItem)
	}

	return wrapper.Manifest, nil
}

// Save commits the manifest: marshal with checksum, write the staging
// file, fsync, then atomically rename over the live manifest. On any
// failure the live manifest is untouched.
func (s *ManifestStore) Save(m *models.Manifest) error {
	m.UpdatedAt = time.Now().UTC()

	wrapper := manifestFile{Manifest: m, SavedAt: m.UpdatedAt}
	wrapper.Checksum = computeChecksum(&wrapper)

	data, err := json.MarshalIndent(wrapper, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	staged := s.stagedPath()
	f, err := os.OpenFile(staged, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return &models.StorageError{Op: "stage", Path: staged, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(staged)
		return &models.StorageError{Op: "stage", Path: staged, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(staged)
		return &models.StorageError{Op: "sync", Path: staged, Err: err}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(staged)
		return &models.StorageError{Op: "close", Path: staged, Err: err}
	}

	if err := os.Rename(staged, s.livePath()); err != nil {
		_ = os.Remove(staged)
		return &models.StorageError{Op: "swap", Path: s.livePath(), Err: err}
	}

	s.logger.WithField("items", len(m.Items)).Debug("Manifest committed")
	return nil
}

// computeChecksum hashes the wrapper with its checksum field empty.
func computeChecksum(w *manifestFile) string {
	data, err := json.Marshal(w)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
