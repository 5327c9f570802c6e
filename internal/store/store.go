// Package store implements the encrypted object store: authenticated
// encryption of media blobs plus the manifest that indexes them.
//
// The store exclusively owns the manifest and every ciphertext and
// thumbnail location. Mutations are serialized through a single
// writer; reads proceed concurrently against an immutable manifest
// snapshot.
package store

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TheMichaelB/mediavault/internal/crypto"
	"github.com/TheMichaelB/mediavault/internal/events"
	"github.com/TheMichaelB/mediavault/internal/models"
	"github.com/TheMichaelB/mediavault/internal/session"
	"github.com/TheMichaelB/mediavault/internal/storage"
)

const (
	blobDir  = "blobs"
	thumbDir = "thumbs"
)

// Thumbnailer produces the bounded low-resolution preview stored
// unencrypted alongside an item. A failure only costs the preview.
type Thumbnailer interface {
	Thumbnail(plaintext []byte, kind models.MediaKind) ([]byte, error)
}

// Observer is notified after each committed manifest mutation. Used
// by the search index to stay current.
type Observer interface {
	ItemAdded(item *models.VaultItem)
	ItemRemoved(id string)
	ItemUpdated(item *models.VaultItem)
}

// PutMeta carries the metadata captured from the source item.
type PutMeta struct {
	Kind             models.MediaKind
	OriginalFilename string
	SourceAlbum      string
	CreationDate     time.Time
	VaultAlbum       string
}

// Store is the encrypted object store.
type Store struct {
	blobs    storage.BlobStore
	manifest *ManifestStore
	provider crypto.Provider
	session  *session.Session
	thumbs   Thumbnailer
	logger   *events.Logger

	// writeMu serializes all manifest mutations. mu guards the live
	// manifest pointer for readers.
	writeMu sync.Mutex
	mu      sync.RWMutex
	live    *models.Manifest

	obsMu     sync.Mutex
	observers []Observer
}

// New opens the store, loading or creating the manifest and running
// the startup integrity scan.
func New(blobs storage.BlobStore, manifests *ManifestStore, provider crypto.Provider, sess *session.Session, thumbs Thumbnailer, kdfVersion int, logger *events.Logger) (*Store, error) {
	s := &Store{
		blobs:    blobs,
		manifest: manifests,
		provider: provider,
		session:  sess,
		thumbs:   thumbs,
		logger:   logger.WithField("component", "object_store"),
	}

	m, err := manifests.Load()
	if err == ErrManifestNotFound {
		m = models.NewManifest(kdfVersion)
		if err := manifests.Save(m); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	s.live = m

	if err := s.scan(); err != nil {
		return nil, err
	}
	return s, nil
}

// AddObserver registers an observer for committed mutations.
func (s *Store) AddObserver(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, o)
}

// Put encrypts plaintext under the active key and commits a new
// manifest entry. Fails with ErrVaultLocked when no key is loaded.
func (s *Store) Put(plaintext []byte, meta PutMeta) (*models.VaultItem, error) {
	key := s.session.Key()
	if key == nil {
		return nil, models.ErrVaultLocked
	}
	if !meta.Kind.Valid() {
		return nil, fmt.Errorf("invalid media kind %q", meta.Kind)
	}

	box, err := s.provider.Encrypt(plaintext, key)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	id := uuid.NewString()
	item := &models.VaultItem{
		ID:               id,
		Kind:             meta.Kind,
		ContentHash:      crypto.ContentHash(plaintext),
		Nonce:            hex.EncodeToString(box.Nonce),
		AuthTag:          hex.EncodeToString(box.Tag),
		CiphertextRef:    blobPath(id),
		OriginalFilename: meta.OriginalFilename,
		SourceAlbum:      meta.SourceAlbum,
		CreationDate:     meta.CreationDate,
		VaultAlbum:       meta.VaultAlbum,
		Size:             int64(len(plaintext)),
		AddedAt:          time.Now().UTC(),
	}

	// Thumbnail loss is acceptable, plaintext loss is not.
	var thumb []byte
	if s.thumbs != nil {
		if t, err := s.thumbs.Thumbnail(plaintext, meta.Kind); err != nil {
			s.logger.WithError(err).WithField("id", id).Warn("Thumbnail generation failed")
		} else {
			thumb = t
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.blobs.Write(item.CiphertextRef, box.Ciphertext, 0600); err != nil {
		return nil, err
	}
	if thumb != nil {
		if err := s.blobs.Write(thumbPath(id), thumb, 0600); err != nil {
			s.logger.WithError(err).WithField("id", id).Warn("Thumbnail write failed")
		} else {
			item.ThumbnailRef = thumbPath(id)
		}
	}

	next := s.snapshot().Clone()
	next.Items[id] = item

	if err := s.manifest.Save(next); err != nil {
		// Roll back the blobs; the manifest never saw the item.
		_ = s.blobs.Delete(item.CiphertextRef)
		_ = s.blobs.Delete(thumbPath(id))
		return nil, err
	}
	s.swap(next)

	s.logger.WithFields(map[string]interface{}{
		"id":   id,
		"kind": string(meta.Kind),
		"size": item.Size,
	}).Info("Item stored")

	cp := *item
	s.notify(func(o Observer) { o.ItemAdded(&cp) })
	return &cp, nil
}

// Get decrypts an item and returns the plaintext. The authentication
// tag is verified; tampered or wrong-key data is never returned. An
// item that fails authentication is flagged in the manifest.
func (s *Store) Get(id string) ([]byte, error) {
	key := s.session.Key()
	if key == nil {
		return nil, models.ErrVaultLocked
	}

	item, err := s.Item(id)
	if err != nil {
		return nil, err
	}

	nonce, tag, err := decodeNonceTag(item)
	if err != nil {
		return nil, err
	}

	ciphertext, err := s.blobs.Read(item.CiphertextRef)
	if err != nil {
		if err == models.ErrItemNotFound {
			// A delete may have committed between the manifest read
			// and the blob read. Only a blob the manifest still
			// claims counts as corruption.
			if _, itemErr := s.Item(id); itemErr != nil {
				return nil, itemErr
			}
			return nil, &models.CorruptionError{ID: id, Reason: "ciphertext blob missing"}
		}
		return nil, err
	}

	plaintext, err := s.provider.Decrypt(crypto.SealedBox{
		Nonce:      nonce,
		Ciphertext: ciphertext,
		Tag:        tag,
	}, key)
	if err != nil {
		s.flag(id)
		return nil, models.ErrAuthenticationFailed
	}
	return plaintext, nil
}

// Thumbnail returns the unencrypted preview bytes, or ErrItemNotFound
// when the item has none.
func (s *Store) Thumbnail(id string) ([]byte, error) {
	item, err := s.Item(id)
	if err != nil {
		return nil, err
	}
	if item.ThumbnailRef == "" {
		return nil, models.ErrItemNotFound
	}
	return s.blobs.Read(item.ThumbnailRef)
}

// Delete removes the manifest entry, ciphertext, and thumbnail.
// Irreversible. The manifest commit happens first so a crash can
// orphan blobs (swept at next open) but never orphan an entry.
func (s *Store) Delete(id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.snapshot().Clone()
	item, ok := next.Items[id]
	if !ok {
		return models.ErrItemNotFound
	}
	delete(next.Items, id)

	if err := s.manifest.Save(next); err != nil {
		return err
	}
	s.swap(next)

	if err := s.blobs.Delete(item.CiphertextRef); err != nil {
		s.logger.WithError(err).WithField("id", id).Warn("Ciphertext blob removal failed")
	}
	if item.ThumbnailRef != "" {
		if err := s.blobs.Delete(item.ThumbnailRef); err != nil {
			s.logger.WithError(err).WithField("id", id).Warn("Thumbnail removal failed")
		}
	}

	s.logger.WithField("id", id).Info("Item deleted")
	s.notify(func(o Observer) { o.ItemRemoved(id) })
	return nil
}

// Rename assigns the item's vault album. Metadata-only mutation.
func (s *Store) Rename(id, vaultAlbum string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.snapshot().Clone()
	item, ok := next.Items[id]
	if !ok {
		return models.ErrItemNotFound
	}
	item.VaultAlbum = vaultAlbum

	if err := s.manifest.Save(next); err != nil {
		return err
	}
	s.swap(next)

	cp := *item
	s.notify(func(o Observer) { o.ItemUpdated(&cp) })
	return nil
}

// Item returns a copy of one manifest entry.
func (s *Store) Item(id string) (*models.VaultItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.live.Items[id]
	if !ok {
		return nil, models.ErrItemNotFound
	}
	cp := *item
	return &cp, nil
}

// List returns copies of all manifest entries, newest first.
func (s *Store) List() []*models.VaultItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*models.VaultItem, 0, len(s.live.Items))
	for _, item := range s.live.Items {
		cp := *item
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].AddedAt.After(items[j].AddedAt)
	})
	return items
}

// Albums returns the distinct vault albums in use.
func (s *Store) Albums() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	albums := s.live.Albums()
	sort.Strings(albums)
	return albums
}

// KDFVersion returns the derivation version the vault was created
// with.
func (s *Store) KDFVersion() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live.KDFVersion
}

// flag marks an item non-openable after an authentication failure.
func (s *Store) flag(id string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.snapshot().Clone()
	item, ok := next.Items[id]
	if !ok || item.Flagged {
		return
	}
	item.Flagged = true

	if err := s.manifest.Save(next); err != nil {
		s.logger.WithError(err).WithField("id", id).Warn("Could not persist corruption flag")
		return
	}
	s.swap(next)

	cp := *item
	s.notify(func(o Observer) { o.ItemUpdated(&cp) })
}

// scan validates stored records at open: wrong-length nonce or tag
// flags the item as corrupted, and blobs with no manifest entry are
// swept.
func (s *Store) scan() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.snapshot().Clone()
	dirty := false
	for id, item := range next.Items {
		if item.Flagged {
			continue
		}
		if _, _, err := decodeNonceTag(item); err != nil {
			s.logger.WithField("id", id).Warn("Malformed stored record, flagging")
			item.Flagged = true
			dirty = true
		}
	}
	if dirty {
		if err := s.manifest.Save(next); err != nil {
			return err
		}
		s.swap(next)
	}

	files, err := s.blobs.ListDir(blobDir)
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.IsDir {
			continue
		}
		id := strings.TrimSuffix(pathBase(f.Path), ".bin")
		if _, ok := next.Items[id]; !ok {
			s.logger.WithField("path", f.Path).Warn("Sweeping orphan blob")
			_ = s.blobs.Delete(blobPath(id))
			_ = s.blobs.Delete(thumbPath(id))
		}
	}
	return nil
}

func (s *Store) snapshot() *models.Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

func (s *Store) swap(m *models.Manifest) {
	s.mu.Lock()
	s.live = m
	s.mu.Unlock()
}

func (s *Store) notify(fn func(Observer)) {
	s.obsMu.Lock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.obsMu.Unlock()
	for _, o := range observers {
		fn(o)
	}
}

// decodeNonceTag validates the fixed AEAD field lengths. Anything
// unexpected marks the record corrupted rather than being truncated
// or padded.
func decodeNonceTag(item *models.VaultItem) (nonce, tag []byte, err error) {
	nonce, err = hex.DecodeString(item.Nonce)
	if err != nil || len(nonce) != crypto.NonceSize {
		return nil, nil, &models.CorruptionError{ID: item.ID, Reason: "bad nonce"}
	}
	tag, err = hex.DecodeString(item.AuthTag)
	if err != nil || len(tag) != crypto.TagSize {
		return nil, nil, &models.CorruptionError{ID: item.ID, Reason: "bad auth tag"}
	}
	return nonce, tag, nil
}

func blobPath(id string) string {
	return blobDir + "/" + id + ".bin"
}

func thumbPath(id string) string {
	return thumbDir + "/" + id + ".jpg"
}

func pathBase(p string) string {
	if idx := strings.LastIndexAny(p, "/\\"); idx >= 0 {
		return p[idx+1:]
	}
	return p
}
