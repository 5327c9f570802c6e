// Package app assembles the vault engine from its components.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/TheMichaelB/mediavault/internal/config"
	"github.com/TheMichaelB/mediavault/internal/crypto"
	"github.com/TheMichaelB/mediavault/internal/events"
	"github.com/TheMichaelB/mediavault/internal/index"
	"github.com/TheMichaelB/mediavault/internal/keyring"
	"github.com/TheMichaelB/mediavault/internal/medialib"
	"github.com/TheMichaelB/mediavault/internal/privacy"
	"github.com/TheMichaelB/mediavault/internal/services/dedup"
	"github.com/TheMichaelB/mediavault/internal/services/lifecycle"
	"github.com/TheMichaelB/mediavault/internal/session"
	"github.com/TheMichaelB/mediavault/internal/storage"
	"github.com/TheMichaelB/mediavault/internal/store"
	"github.com/TheMichaelB/mediavault/internal/thumbnail"
)

// App wires the engine together for a host (CLI or embedding UI).
type App struct {
	Config  *config.Config
	Logger  *events.Logger
	Session *session.Session
	Keyring *keyring.Manager
	Store   *store.Store
	Index   *index.SQLiteIndex
	Library medialib.Library

	Lifecycle *lifecycle.Controller
	Dedup     *dedup.Service
	Privacy   *privacy.Monitor
}

// Option overrides a collaborator before the engine is assembled.
type Option func(*App)

// WithLibrary substitutes the media library collaborator.
func WithLibrary(lib medialib.Library) Option {
	return func(a *App) { a.Library = lib }
}

// New builds the engine from configuration.
func New(cfg *config.Config, logger *events.Logger, opts ...Option) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Session: session.New(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	provider := crypto.NewProvider()

	a.Keyring = keyring.NewManager(cfg.Storage.DataDir, provider, a.Session, logger,
		keyring.WithKDFVersion(cfg.Vault.KDFVersion),
		keyring.WithMinPasswordLength(cfg.Vault.MinPasswordLength),
	)

	blobs, err := storage.NewLocalStore(cfg.Storage.DataDir, cfg.Storage.MaxFileSize, logger)
	if err != nil {
		return nil, err
	}

	manifests, err := store.NewManifestStore(cfg.Storage.DataDir, logger)
	if err != nil {
		return nil, err
	}

	thumbs := thumbnail.NewGenerator(cfg.Vault.ThumbnailMaxEdge, nil)

	a.Store, err = store.New(blobs, manifests, provider, a.Session, thumbs, cfg.Vault.KDFVersion, logger)
	if err != nil {
		return nil, err
	}

	a.Index, err = index.Open(filepath.Join(cfg.Storage.DataDir, "index.db"), logger)
	if err != nil {
		return nil, err
	}
	if err := a.Index.Rebuild(a.Store.List()); err != nil {
		return nil, err
	}
	a.Store.AddObserver(a.Index)

	if a.Library == nil && cfg.Storage.LibraryDir != "" {
		lib, err := medialib.NewDirLibrary(cfg.Storage.LibraryDir, logger)
		if err != nil {
			return nil, err
		}
		a.Library = lib
	}

	a.Lifecycle = lifecycle.NewController(a.Store, a.Library, cfg.Batch.MaxConcurrent, logger)
	a.Dedup = dedup.NewService(a.Store, logger)
	a.Privacy = privacy.NewMonitor(privacy.Options{
		PrivacyModeEnabled:                cfg.Privacy.PrivacyModeEnabled,
		RequireForegroundReauthentication: cfg.Privacy.RequireForegroundReauthentication,
	}, a.Keyring, a.Session, logger)

	return a, nil
}

// Close releases resources and locks the vault.
func (a *App) Close() error {
	a.Session.Lock()
	if a.Index != nil {
		return a.Index.Close()
	}
	return nil
}
