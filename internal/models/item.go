package models

import (
	"time"
)

// MediaKind identifies the type of a vault item.
type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// Valid reports whether the kind is a known media kind.
func (k MediaKind) Valid() bool {
	return k == MediaPhoto || k == MediaVideo
}

// VaultItem describes one encrypted media object in the vault.
type VaultItem struct {
	// ID is assigned at hide time and never changes.
	ID string `json:"id"`

	Kind MediaKind `json:"kind"`

	// ContentHash is the hex SHA-256 of the plaintext, used for
	// duplicate detection. Not unique across items.
	ContentHash string `json:"content_hash"`

	// Nonce and AuthTag are hex encoded. Their decoded lengths are
	// fixed by the AEAD algorithm; anything else marks the item
	// corrupted.
	Nonce   string `json:"nonce"`
	AuthTag string `json:"auth_tag"`

	// CiphertextRef and ThumbnailRef are store-relative blob paths.
	// The thumbnail is a bounded low-resolution preview kept
	// unencrypted for fast display.
	CiphertextRef string `json:"ciphertext_ref"`
	ThumbnailRef  string `json:"thumbnail_ref,omitempty"`

	OriginalFilename string    `json:"original_filename"`
	SourceAlbum      string    `json:"source_album,omitempty"`
	CreationDate     time.Time `json:"creation_date"`

	// VaultAlbum is the user-assigned grouping inside the vault.
	VaultAlbum string `json:"vault_album,omitempty"`

	Size    int64     `json:"size"`
	AddedAt time.Time `json:"added_at"`

	// Flagged is set when decryption failed authentication; the item
	// is surfaced as non-openable instead of crashing the pipeline.
	Flagged bool `json:"flagged,omitempty"`
}

// CurrentFormatVersion is the on-disk manifest format version.
const CurrentFormatVersion = 1

// Manifest is the durable index of everything in the vault. It is the
// single source of truth for vault membership; blobs without a
// manifest entry are garbage.
type Manifest struct {
	FormatVersion int `json:"format_version"`

	// KDFVersion pins the password derivation scheme chosen when the
	// vault was created.
	KDFVersion int `json:"kdf_version"`

	Items map[string]*VaultItem `json:"items"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewManifest returns an empty manifest at the current format version.
func NewManifest(kdfVersion int) *Manifest {
	return &Manifest{
		FormatVersion: CurrentFormatVersion,
		KDFVersion:    kdfVersion,
		Items:         make(map[string]*VaultItem),
	}
}

// Clone returns a deep copy. Mutations are staged on a copy so a
// failed commit never dirties the live manifest.
func (m *Manifest) Clone() *Manifest {
	c := &Manifest{
		FormatVersion: m.FormatVersion,
		KDFVersion:    m.KDFVersion,
		Items:         make(map[string]*VaultItem, len(m.Items)),
		UpdatedAt:     m.UpdatedAt,
	}
	for id, it := range m.Items {
		cp := *it
		c.Items[id] = &cp
	}
	return c
}

// Albums returns the distinct vault albums in use.
func (m *Manifest) Albums() []string {
	seen := make(map[string]bool)
	var albums []string
	for _, it := range m.Items {
		if it.VaultAlbum != "" && !seen[it.VaultAlbum] {
			seen[it.VaultAlbum] = true
			albums = append(albums, it.VaultAlbum)
		}
	}
	return albums
}
