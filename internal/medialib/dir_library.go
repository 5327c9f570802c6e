package medialib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/TheMichaelB/mediavault/internal/events"
	"github.com/TheMichaelB/mediavault/internal/models"
)

// DirLibrary implements Library over a plain directory tree: each
// immediate subdirectory is an album, files at the root are the flat
// library. Asset ids are root-relative paths.
type DirLibrary struct {
	root   string
	logger *events.Logger
}

// NewDirLibrary creates a directory-backed library.
func NewDirLibrary(root string, logger *events.Logger) (*DirLibrary, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve library root: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}
	return &DirLibrary{
		root:   abs,
		logger: logger.WithField("component", "dir_library"),
	}, nil
}

// ListAlbums returns each immediate subdirectory as an album.
func (l *DirLibrary) ListAlbums(ctx context.Context) ([]Album, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}

	var albums []Album
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		assets, err := l.ListAssets(ctx, entry.Name())
		if err != nil {
			return nil, err
		}
		albums = append(albums, Album{Name: entry.Name(), AssetCount: len(assets)})
	}
	return albums, nil
}

// ListAssets returns the media files in an album directory.
func (l *DirLibrary) ListAssets(ctx context.Context, album string) ([]Asset, error) {
	dir, err := l.resolve(album)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}

	var assets []Asset
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		kind, ok := KindForFilename(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		id := entry.Name()
		if album != "" {
			id = album + "/" + entry.Name()
		}
		assets = append(assets, Asset{
			ID:       id,
			Filename: entry.Name(),
			Album:    album,
			Kind:     kind,
			TakenAt:  info.ModTime(),
			Size:     info.Size(),
		})
	}
	return assets, nil
}

// ReadAsset returns the file bytes and descriptor.
func (l *DirLibrary) ReadAsset(ctx context.Context, id string) ([]byte, Asset, error) {
	path, err := l.resolve(id)
	if err != nil {
		return nil, Asset{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, Asset{}, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}
	kind, ok := KindForFilename(id)
	if !ok {
		return nil, Asset{}, fmt.Errorf("%w: unsupported file type %s", models.ErrSourceUnavailable, id)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Asset{}, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}

	album := ""
	if idx := strings.IndexByte(id, '/'); idx > 0 {
		album = id[:idx]
	}
	return data, Asset{
		ID:       id,
		Filename: filepath.Base(id),
		Album:    album,
		Kind:     kind,
		TakenAt:  info.ModTime(),
		Size:     info.Size(),
	}, nil
}

// DeleteAsset removes the file from the library.
func (l *DirLibrary) DeleteAsset(ctx context.Context, id string) error {
	path, err := l.resolve(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}
	l.logger.WithField("asset", id).Debug("Source asset deleted")
	return nil
}

// CreateAsset writes a new file, suffixing on collision, and returns
// its id.
func (l *DirLibrary) CreateAsset(ctx context.Context, data []byte, filename, album string, takenAt time.Time) (string, error) {
	dir, err := l.resolve(album)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}

	name := filepath.Base(filename)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	// O_EXCL claims the name, so concurrent restores of same-named
	// assets each land on their own suffix.
	var f *os.File
	target := filepath.Join(dir, name)
	for i := 1; ; i++ {
		var err error
		f, err = os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
		}
		name = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		target = filepath.Join(dir, name)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}
	if !takenAt.IsZero() {
		_ = os.Chtimes(target, time.Now(), takenAt)
	}

	id := name
	if album != "" {
		id = album + "/" + name
	}
	l.logger.WithField("asset", id).Debug("Asset created")
	return id, nil
}

// resolve maps an album or asset id under the root, refusing escapes.
func (l *DirLibrary) resolve(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("%w: invalid path %s", models.ErrSourceUnavailable, rel)
	}
	if cleaned == "." {
		cleaned = ""
	}
	return filepath.Join(l.root, cleaned), nil
}
