// Package index maintains a SQLite search index over manifest
// metadata. The index is a rebuildable cache: the manifest stays the
// single source of truth, and a lost or stale index is recreated at
// open. Ciphertext never touches the index; only the metadata the
// manifest already stores in the clear.
package index

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/TheMichaelB/mediavault/internal/events"
	"github.com/TheMichaelB/mediavault/internal/models"
)

// Entry is one search result row.
type Entry struct {
	ID               string
	OriginalFilename string
	SourceAlbum      string
	VaultAlbum       string
	Kind             models.MediaKind
	CreationDate     time.Time
	AddedAt          time.Time
	Flagged          bool
}

// SQLiteIndex implements the metadata search index.
type SQLiteIndex struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *events.Logger
}

// Open creates or opens the index database.
func Open(dbPath string, logger *events.Logger) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}

	idx := &SQLiteIndex{
		db:     db,
		logger: logger.WithField("component", "search_index"),
	}
	if err := idx.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize index: %w", err)
	}
	return idx, nil
}

func (idx *SQLiteIndex) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS items (
        id TEXT PRIMARY KEY,
        filename TEXT NOT NULL,
        source_album TEXT NOT NULL DEFAULT '',
        vault_album TEXT NOT NULL DEFAULT '',
        kind TEXT NOT NULL,
        creation_date TIMESTAMP,
        added_at TIMESTAMP,
        flagged INTEGER NOT NULL DEFAULT 0
    );

    CREATE INDEX IF NOT EXISTS idx_items_vault_album ON items(vault_album);
    CREATE INDEX IF NOT EXISTS idx_items_filename ON items(filename);
    `
	if _, err := idx.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Rebuild replaces the index contents from the manifest.
func (idx *SQLiteIndex) Rebuild(items []*models.VaultItem) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM items`); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	for _, item := range items {
		if err := upsert(tx, item); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}

	idx.logger.WithField("items", len(items)).Debug("Index rebuilt")
	return nil
}

// ItemAdded implements store.Observer.
func (idx *SQLiteIndex) ItemAdded(item *models.VaultItem) {
	idx.write(item, "add")
}

// ItemUpdated implements store.Observer.
func (idx *SQLiteIndex) ItemUpdated(item *models.VaultItem) {
	idx.write(item, "update")
}

// ItemRemoved implements store.Observer.
func (idx *SQLiteIndex) ItemRemoved(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, err := idx.db.Exec(`DELETE FROM items WHERE id = ?`, id); err != nil {
		idx.logger.WithError(err).WithField("id", id).Warn("Index delete failed")
	}
}

func (idx *SQLiteIndex) write(item *models.VaultItem, op string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := upsert(idx.db, item); err != nil {
		// Index failures never fail the vault operation; the index
		// is rebuilt from the manifest at next open.
		idx.logger.WithError(err).WithFields(map[string]interface{}{
			"id": item.ID,
			"op": op,
		}).Warn("Index write failed")
	}
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func upsert(db execer, item *models.VaultItem) error {
	_, err := db.Exec(`
        INSERT INTO items (id, filename, source_album, vault_album, kind, creation_date, added_at, flagged)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            filename = excluded.filename,
            source_album = excluded.source_album,
            vault_album = excluded.vault_album,
            kind = excluded.kind,
            creation_date = excluded.creation_date,
            added_at = excluded.added_at,
            flagged = excluded.flagged
    `, item.ID, item.OriginalFilename, item.SourceAlbum, item.VaultAlbum,
		string(item.Kind), item.CreationDate, item.AddedAt, boolToInt(item.Flagged))
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

// Search matches the query as a substring of filename, source album,
// or vault album.
func (idx *SQLiteIndex) Search(query string) ([]Entry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	pattern := "%" + query + "%"
	rows, err := idx.db.Query(`
        SELECT id, filename, source_album, vault_album, kind, creation_date, added_at, flagged
        FROM items
        WHERE filename LIKE ? OR source_album LIKE ? OR vault_album LIKE ?
        ORDER BY added_at DESC
    `, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ByAlbum returns all items in a vault album.
func (idx *SQLiteIndex) ByAlbum(album string) ([]Entry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	rows, err := idx.db.Query(`
        SELECT id, filename, source_album, vault_album, kind, creation_date, added_at, flagged
        FROM items
        WHERE vault_album = ?
        ORDER BY creation_date DESC
    `, album)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Recent returns the n most recently hidden items.
func (idx *SQLiteIndex) Recent(n int) ([]Entry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	rows, err := idx.db.Query(`
        SELECT id, filename, source_album, vault_album, kind, creation_date, added_at, flagged
        FROM items
        ORDER BY added_at DESC
        LIMIT ?
    `, n)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Close releases the database handle.
func (idx *SQLiteIndex) Close() error {
	return idx.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind string
		var flagged int
		var creation, added sql.NullTime
		if err := rows.Scan(&e.ID, &e.OriginalFilename, &e.SourceAlbum, &e.VaultAlbum,
			&kind, &creation, &added, &flagged); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Kind = models.MediaKind(kind)
		if creation.Valid {
			e.CreationDate = creation.Time
		}
		if added.Valid {
			e.AddedAt = added.Time
		}
		e.Flagged = flagged != 0
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
