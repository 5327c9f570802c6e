package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/TheMichaelB/mediavault/internal/events"
	"github.com/TheMichaelB/mediavault/internal/models"
)

// LocalStore implements BlobStore on the local filesystem, rooted at
// a base directory that no path may escape.
type LocalStore struct {
	baseDir     string
	logger      *events.Logger
	maxFileSize int64
}

// NewLocalStore creates a local blob store rooted at baseDir.
func NewLocalStore(baseDir string, maxFileSize int64, logger *events.Logger) (*LocalStore, error) {
	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}
	if err := os.MkdirAll(absPath, 0700); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	return &LocalStore{
		baseDir:     absPath,
		logger:      logger.WithField("component", "local_store"),
		maxFileSize: maxFileSize,
	}, nil
}

// Write saves data atomically: temp file, fsync, rename.
func (s *LocalStore) Write(path string, data []byte, mode os.FileMode) error {
	safePath, err := s.sanitizePath(path)
	if err != nil {
		return err
	}

	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return &models.StorageError{
			Op: "write", Path: path,
			Err: fmt.Errorf("file too large: %d bytes (max %d)", len(data), s.maxFileSize),
		}
	}

	if err := os.MkdirAll(filepath.Dir(safePath), 0700); err != nil {
		return &models.StorageError{Op: "mkdir", Path: path, Err: err}
	}

	tmpPath := safePath + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return &models.StorageError{Op: "write", Path: path, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return &models.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return &models.StorageError{Op: "sync", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &models.StorageError{Op: "close", Path: path, Err: err}
	}

	if err := os.Rename(tmpPath, safePath); err != nil {
		_ = os.Remove(tmpPath)
		return &models.StorageError{Op: "rename", Path: path, Err: err}
	}

	s.logger.WithFields(map[string]interface{}{
		"path": path,
		"size": len(data),
	}).Debug("Blob written")
	return nil
}

// Read retrieves file contents.
func (s *LocalStore) Read(path string) ([]byte, error) {
	safePath, err := s.sanitizePath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(safePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.ErrItemNotFound
		}
		return nil, &models.StorageError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

// Delete removes a file. An already-absent file is fine.
func (s *LocalStore) Delete(path string) error {
	safePath, err := s.sanitizePath(path)
	if err != nil {
		return err
	}

	if err := os.Remove(safePath); err != nil && !os.IsNotExist(err) {
		return &models.StorageError{Op: "delete", Path: path, Err: err}
	}
	return nil
}

// Exists checks if a file exists.
func (s *LocalStore) Exists(path string) (bool, error) {
	safePath, err := s.sanitizePath(path)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(safePath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, &models.StorageError{Op: "stat", Path: path, Err: err}
}

// ListDir returns directory contents.
func (s *LocalStore) ListDir(path string) ([]FileInfo, error) {
	safePath, err := s.sanitizePath(path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(safePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &models.StorageError{Op: "list", Path: path, Err: err}
	}

	var files []FileInfo
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(path, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   info.IsDir(),
		})
	}
	return files, nil
}

// EnsureDir creates a directory if it doesn't exist.
func (s *LocalStore) EnsureDir(path string) error {
	safePath, err := s.sanitizePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(safePath, 0700); err != nil {
		return &models.StorageError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

// sanitizePath validates a store-relative path and maps it under the
// base directory.
func (s *LocalStore) sanitizePath(path string) (string, error) {
	if strings.ContainsRune(path, 0) {
		return "", &models.StorageError{Op: "sanitize", Path: path, Err: fmt.Errorf("path contains null bytes")}
	}

	cleaned := filepath.Clean(filepath.FromSlash(path))
	if strings.Contains(cleaned, "..") {
		return "", &models.StorageError{Op: "sanitize", Path: path, Err: fmt.Errorf("path contains '..'")}
	}
	cleaned = strings.TrimPrefix(cleaned, string(filepath.Separator))

	fullPath := filepath.Join(s.baseDir, cleaned)
	if fullPath != s.baseDir && !strings.HasPrefix(fullPath, s.baseDir+string(filepath.Separator)) {
		return "", &models.StorageError{Op: "sanitize", Path: path, Err: fmt.Errorf("path escapes base directory")}
	}
	return fullPath, nil
}

// WriteExport writes plaintext to an absolute destination outside the
// store, resolving filename collisions by suffixing rather than
// overwriting. Returns the path actually written.
//
// The destination name is claimed with O_EXCL so concurrent exports of
// same-named items each get their own suffix; the content then lands
// via a uniquely-named temp file and rename over the claimed name.
func WriteExport(destDir, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", &models.StorageError{Op: "mkdir", Path: destDir, Err: err}
	}

	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	target := filepath.Join(destDir, base)
	for i := 1; ; i++ {
		f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			break
		}
		if !os.IsExist(err) {
			return "", &models.StorageError{Op: "create", Path: target, Err: err}
		}
		target = filepath.Join(destDir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
	}

	tmp, err := os.CreateTemp(destDir, ".export-*")
	if err != nil {
		_ = os.Remove(target)
		return "", &models.StorageError{Op: "write", Path: target, Err: err}
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		_ = os.Remove(target)
		return "", &models.StorageError{Op: "write", Path: target, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		_ = os.Remove(target)
		return "", &models.StorageError{Op: "close", Path: target, Err: err}
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		_ = os.Remove(target)
		return "", &models.StorageError{Op: "rename", Path: target, Err: err}
	}
	return target, nil
}
