package medialib

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TheMichaelB/mediavault/internal/models"
)

// MockLibrary is an in-memory Library for tests. Individual asset ids
// can be set to fail on read, delete, or create.
type MockLibrary struct {
	mu     sync.Mutex
	assets map[string]mockAsset
	nextID int

	ReadErrs   map[string]error
	DeleteErrs map[string]error
	CreateErr  error

	Deleted []string
	Created []string
}

type mockAsset struct {
	data []byte
	meta Asset
}

// NewMockLibrary creates an empty mock library.
func NewMockLibrary() *MockLibrary {
	return &MockLibrary{
		assets:     make(map[string]mockAsset),
		ReadErrs:   make(map[string]error),
		DeleteErrs: make(map[string]error),
	}
}

// AddAsset seeds an asset and returns its id.
func (m *MockLibrary) AddAsset(data []byte, filename, album string, kind models.MediaKind) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := fmt.Sprintf("asset-%d", m.nextID)
	m.assets[id] = mockAsset{
		data: data,
		meta: Asset{
			ID:       id,
			Filename: filename,
			Album:    album,
			Kind:     kind,
			TakenAt:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			Size:     int64(len(data)),
		},
	}
	return id
}

// Has reports whether an asset is present.
func (m *MockLibrary) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.assets[id]
	return ok
}

func (m *MockLibrary) ListAlbums(ctx context.Context) ([]Album, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int)
	for _, a := range m.assets {
		if a.meta.Album != "" {
			counts[a.meta.Album]++
		}
	}
	var albums []Album
	for name, n := range counts {
		albums = append(albums, Album{Name: name, AssetCount: n})
	}
	return albums, nil
}

func (m *MockLibrary) ListAssets(ctx context.Context, album string) ([]Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var assets []Asset
	for _, a := range m.assets {
		if a.meta.Album == album {
			assets = append(assets, a.meta)
		}
	}
	return assets, nil
}

func (m *MockLibrary) ReadAsset(ctx context.Context, id string) ([]byte, Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ReadErrs[id]; err != nil {
		return nil, Asset{}, err
	}
	a, ok := m.assets[id]
	if !ok {
		return nil, Asset{}, models.ErrSourceUnavailable
	}
	return a.data, a.meta, nil
}

func (m *MockLibrary) DeleteAsset(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.DeleteErrs[id]; err != nil {
		return err
	}
	if _, ok := m.assets[id]; !ok {
		return models.ErrSourceUnavailable
	}
	delete(m.assets, id)
	m.Deleted = append(m.Deleted, id)
	return nil
}

func (m *MockLibrary) CreateAsset(ctx context.Context, data []byte, filename, album string, takenAt time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	m.nextID++
	id := fmt.Sprintf("asset-%d", m.nextID)
	m.assets[id] = mockAsset{
		data: data,
		meta: Asset{ID: id, Filename: filename, Album: album, Kind: models.MediaPhoto, TakenAt: takenAt, Size: int64(len(data))},
	}
	m.Created = append(m.Created, id)
	return id, nil
}
