package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Loader handles configuration loading from file and environment.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a config loader. An empty path tries the default
// locations.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		envPrefix:  "MEDIAVAULT_",
	}
}

// Load reads configuration from file and environment, in that order.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	path := l.configPath
	if path == "" {
		for _, p := range l.defaultPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path != "" {
		if err := l.loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	l.loadEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (l *Loader) defaultPaths() []string {
	paths := []string{"mediavault.json", ".mediavault.json"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "mediavault", "config.json"),
			filepath.Join(home, ".mediavault", "config.json"),
		)
	}
	return paths
}

func (l *Loader) loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	return nil
}

// loadEnv overrides config values from MEDIAVAULT_* variables.
func (l *Loader) loadEnv(cfg *Config) {
	if v := os.Getenv(l.envPrefix + "DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv(l.envPrefix + "LIBRARY_DIR"); v != "" {
		cfg.Storage.LibraryDir = v
	}
	if v := os.Getenv(l.envPrefix + "MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Storage.MaxFileSize = n
		}
	}
	if v := os.Getenv(l.envPrefix + "KDF_VERSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vault.KDFVersion = n
		}
	}
	if v := os.Getenv(l.envPrefix + "PRIVACY_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Privacy.PrivacyModeEnabled = b
		}
	}
	if v := os.Getenv(l.envPrefix + "REQUIRE_REAUTH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Privacy.RequireForegroundReauthentication = b
		}
	}
	if v := os.Getenv(l.envPrefix + "MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.MaxConcurrent = n
		}
	}
	if v := os.Getenv(l.envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(l.envPrefix + "LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
