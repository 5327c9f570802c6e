// Package lifecycle implements the hide, restore, export, and delete
// pipelines over the encrypted object store and the external media
// library.
package lifecycle

import (
	"context"
	"sync"

	"github.com/TheMichaelB/mediavault/internal/events"
	"github.com/TheMichaelB/mediavault/internal/medialib"
	"github.com/TheMichaelB/mediavault/internal/models"
	"github.com/TheMichaelB/mediavault/internal/storage"
	"github.com/TheMichaelB/mediavault/internal/store"
)

// RestoreTarget selects where a restored item lands in the library.
type RestoreTarget int

const (
	// RestoreToOriginalAlbum recreates the item in its source album.
	RestoreToOriginalAlbum RestoreTarget = iota

	// RestoreFlat places the item in the library root.
	RestoreFlat

	// RestoreToAlbum places the item in a caller-named album.
	RestoreToAlbum
)

// RestoreOptions controls a restore operation.
type RestoreOptions struct {
	Target RestoreTarget

	// Album names the destination when Target is RestoreToAlbum.
	Album string

	// RemoveFromVault deletes the vault copy after a successful
	// restore. The default keeps it: restoring never implies removal.
	RemoveFromVault bool
}

// ItemResult is the per-item outcome of a batch operation.
type ItemResult struct {
	ID string

	// Path is the written destination for exports, or the created
	// asset id for restores.
	Path string

	Err error
}

// BatchResult aggregates per-item outcomes. A failed member never
// aborts the rest of the batch.
type BatchResult struct {
	Results []ItemResult
}

// Failed returns the results that carry an error.
func (r *BatchResult) Failed() []ItemResult {
	var failed []ItemResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// OK reports whether every member succeeded.
func (r *BatchResult) OK() bool {
	return len(r.Failed()) == 0
}

// HideResult is the outcome of hiding one asset.
type HideResult struct {
	AssetID string
	Item    *models.VaultItem

	// SourceDeleted reports whether the library copy was removed.
	// When false with a nil Err, the encrypted copy exists but the
	// source could not be deleted; the vault copy always wins.
	SourceDeleted bool

	Err error
}

// Controller drives the media lifecycle pipelines.
type Controller struct {
	store         *store.Store
	library       medialib.Library
	logger        *events.Logger
	maxConcurrent int
}

// NewController creates a lifecycle controller. The library may be
// nil; export and delete need only the store, while hide and restore
// report ErrSourceUnavailable.
func NewController(st *store.Store, library medialib.Library, maxConcurrent int, logger *events.Logger) *Controller {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Controller{
		store:         st,
		library:       library,
		logger:        logger.WithField("service", "lifecycle"),
		maxConcurrent: maxConcurrent,
	}
}

// Hide moves one asset into the vault: read, encrypt and persist,
// then delete the source. The source is deleted only after the vault
// copy is committed; a source-delete failure is reported but never
// undoes the hide.
func (c *Controller) Hide(ctx context.Context, assetID, vaultAlbum string) HideResult {
	res := HideResult{AssetID: assetID}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	if c.library == nil {
		res.Err = models.ErrSourceUnavailable
		return res
	}

	data, asset, err := c.library.ReadAsset(ctx, assetID)
	if err != nil {
		res.Err = &models.ItemError{ID: assetID, Stage: "read", Err: err}
		return res
	}

	item, err := c.store.Put(data, store.PutMeta{
		Kind:             asset.Kind,
		OriginalFilename: asset.Filename,
		SourceAlbum:      asset.Album,
		CreationDate:     asset.TakenAt,
		VaultAlbum:       vaultAlbum,
	})
	if err != nil {
		res.Err = &models.ItemError{ID: assetID, Stage: "encrypt", Err: err}
		return res
	}
	res.Item = item

	if err := c.library.DeleteAsset(ctx, assetID); err != nil {
		// The encrypted copy is committed; losing it to honor the
		// source delete would be the wrong trade.
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"asset": assetID,
			"item":  item.ID,
		}).Warn("Source deletion failed, vault copy retained")
		return res
	}
	res.SourceDeleted = true

	c.logger.WithFields(map[string]interface{}{
		"asset": assetID,
		"item":  item.ID,
	}).Info("Asset hidden")
	return res
}

// HideBatch hides each asset independently, in parallel up to the
// configured concurrency. Encryption parallelizes; manifest commits
// serialize inside the store.
func (c *Controller) HideBatch(ctx context.Context, assetIDs []string, vaultAlbum string) []HideResult {
	results := make([]HideResult, len(assetIDs))
	c.forEach(len(assetIDs), func(i int) {
		results[i] = c.Hide(ctx, assetIDs[i], vaultAlbum)
	})
	return results
}

// Restore decrypts an item and recreates it in the library. The
// vault copy is deleted only when the caller asked for it.
func (c *Controller) Restore(ctx context.Context, id string, opts RestoreOptions) ItemResult {
	res := ItemResult{ID: id}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	if c.library == nil {
		res.Err = models.ErrSourceUnavailable
		return res
	}

	item, err := c.store.Item(id)
	if err != nil {
		res.Err = &models.ItemError{ID: id, Stage: "lookup", Err: err}
		return res
	}

	plaintext, err := c.store.Get(id)
	if err != nil {
		res.Err = &models.ItemError{ID: id, Stage: "decrypt", Err: err}
		return res
	}

	album := ""
	switch opts.Target {
	case RestoreToOriginalAlbum:
		album = item.SourceAlbum
	case RestoreToAlbum:
		album = opts.Album
	}

	assetID, err := c.library.CreateAsset(ctx, plaintext, item.OriginalFilename, album, item.CreationDate)
	if err != nil {
		res.Err = &models.ItemError{ID: id, Stage: "write", Err: err}
		return res
	}
	res.Path = assetID

	if opts.RemoveFromVault {
		if err := c.store.Delete(id); err != nil {
			res.Err = &models.ItemError{ID: id, Stage: "remove", Err: err}
			return res
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"item":    id,
		"asset":   assetID,
		"removed": opts.RemoveFromVault,
	}).Info("Item restored")
	return res
}

// RestoreBatch restores each member independently and aggregates the
// per-item outcomes.
func (c *Controller) RestoreBatch(ctx context.Context, ids []string, opts RestoreOptions) *BatchResult {
	batch := &BatchResult{Results: make([]ItemResult, len(ids))}
	c.forEach(len(ids), func(i int) {
		batch.Results[i] = c.Restore(ctx, ids[i], opts)
	})
	return batch
}

// Export decrypts an item and writes the plaintext to destDir. The
// manifest is never touched; collisions are resolved by suffixing.
func (c *Controller) Export(ctx context.Context, id, destDir string) ItemResult {
	res := ItemResult{ID: id}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	item, err := c.store.Item(id)
	if err != nil {
		res.Err = &models.ItemError{ID: id, Stage: "lookup", Err: err}
		return res
	}

	plaintext, err := c.store.Get(id)
	if err != nil {
		res.Err = &models.ItemError{ID: id, Stage: "decrypt", Err: err}
		return res
	}

	path, err := storage.WriteExport(destDir, item.OriginalFilename, plaintext)
	if err != nil {
		res.Err = &models.ItemError{ID: id, Stage: "write", Err: err}
		return res
	}
	res.Path = path

	c.logger.WithFields(map[string]interface{}{
		"item": id,
		"path": path,
	}).Info("Item exported")
	return res
}

// ExportBatch exports each member independently.
func (c *Controller) ExportBatch(ctx context.Context, ids []string, destDir string) *BatchResult {
	batch := &BatchResult{Results: make([]ItemResult, len(ids))}
	c.forEach(len(ids), func(i int) {
		batch.Results[i] = c.Export(ctx, ids[i], destDir)
	})
	return batch
}

// DeleteBatch permanently removes each item independently; one
// failure never aborts the rest.
func (c *Controller) DeleteBatch(ctx context.Context, ids []string) *BatchResult {
	batch := &BatchResult{Results: make([]ItemResult, len(ids))}
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			batch.Results[i] = ItemResult{ID: id, Err: err}
			continue
		}
		res := ItemResult{ID: id}
		if err := c.store.Delete(id); err != nil {
			res.Err = &models.ItemError{ID: id, Stage: "delete", Err: err}
		}
		batch.Results[i] = res
	}
	return batch
}

// forEach runs fn over n indexes with bounded parallelism.
func (c *Controller) forEach(n int, fn func(i int)) {
	workers := c.maxConcurrent
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}
