package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all application configuration.
type Config struct {
	// Storage paths
	Storage StorageConfig `json:"storage"`

	// Vault behavior
	Vault VaultConfig `json:"vault"`

	// Privacy cover / auto-lock behavior
	Privacy PrivacyConfig `json:"privacy"`

	// Batch operation behavior
	Batch BatchConfig `json:"batch"`

	// Logging
	Log LogConfig `json:"log"`
}

// StorageConfig for local file paths.
type StorageConfig struct {
	// DataDir is the application-support directory holding the
	// manifest, ciphertext blobs, thumbnails, and the search index.
	DataDir string `json:"data_dir"`

	// LibraryDir is the shared, unencrypted media library root used
	// by the directory-backed library implementation.
	LibraryDir string `json:"library_dir"`

	// MaxFileSize caps a single media item, in bytes.
	MaxFileSize int64 `json:"max_file_size"`
}

// VaultConfig for credential and store behavior.
type VaultConfig struct {
	// KDFVersion selects the password derivation for new vaults.
	// Existing vaults keep the version they were created with.
	KDFVersion int `json:"kdf_version"`

	// MinPasswordLength is re-validated by the engine regardless of
	// what the caller UI already checked.
	MinPasswordLength int `json:"min_password_length"`

	// ThumbnailMaxEdge bounds the unencrypted preview, in pixels.
	ThumbnailMaxEdge int `json:"thumbnail_max_edge"`
}

// PrivacyConfig for the lock/privacy state machine.
type PrivacyConfig struct {
	// PrivacyModeEnabled controls whether the opaque cover is ever
	// shown when foreground is lost.
	PrivacyModeEnabled bool `json:"privacy_mode_enabled"`

	// RequireForegroundReauthentication locks the vault on loss of
	// foreground, not just covers it.
	RequireForegroundReauthentication bool `json:"require_foreground_reauthentication"`
}

// BatchConfig for multi-item operations.
type BatchConfig struct {
	// MaxConcurrent bounds parallel encrypt/decrypt work. Manifest
	// commits are serialized regardless.
	MaxConcurrent int `json:"max_concurrent"`
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
	File   string `json:"file"`   // empty = stderr
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := ".mediavault"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".mediavault")
	}

	return &Config{
		Storage: StorageConfig{
			DataDir:     dataDir,
			MaxFileSize: 2 * 1024 * 1024 * 1024, // 2GB, videos included
		},
		Vault: VaultConfig{
			KDFVersion:        1,
			MinPasswordLength: 8,
			ThumbnailMaxEdge:  320,
		},
		Privacy: PrivacyConfig{
			PrivacyModeEnabled:                true,
			RequireForegroundReauthentication: true,
		},
		Batch: BatchConfig{
			MaxConcurrent: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if c.Storage.MaxFileSize <= 0 {
		return errors.New("storage.max_file_size must be positive")
	}
	if c.Vault.MinPasswordLength < 8 {
		return fmt.Errorf("vault.min_password_length must be at least 8, got %d", c.Vault.MinPasswordLength)
	}
	if c.Vault.ThumbnailMaxEdge <= 0 || c.Vault.ThumbnailMaxEdge > 1024 {
		return fmt.Errorf("vault.thumbnail_max_edge out of range: %d", c.Vault.ThumbnailMaxEdge)
	}
	if c.Batch.MaxConcurrent < 1 {
		return errors.New("batch.max_concurrent must be at least 1")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
