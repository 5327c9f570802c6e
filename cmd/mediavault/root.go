package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TheMichaelB/mediavault/internal/app"
	"github.com/TheMichaelB/mediavault/internal/config"
	"github.com/TheMichaelB/mediavault/internal/events"
)

var rootCmd = &cobra.Command{
	Use:   "mediavault",
	Short: "Move photos and videos into an encrypted vault",
	Long: `Mediavault hides media from a shared library inside a password-
protected, authenticated-encryption store, and restores, exports, or
permanently deletes it on request.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: teardownApp,
}

var (
	cfgPath    string
	libraryDir string
	jsonOutput bool

	cfg      *config.Config
	vaultApp *app.App
	procLock *flock.Flock
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"Config file path")
	rootCmd.PersistentFlags().StringVar(&libraryDir, "library", "",
		"Media library directory (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Emit machine-readable JSON output")
}

// setupApp loads config, takes the single-instance lock, and wires
// the engine.
func setupApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.NewLoader(cfgPath).Load()
	if err != nil {
		return err
	}
	if libraryDir != "" {
		cfg.Storage.LibraryDir = libraryDir
	}

	logger := events.NewLogger(events.ParseLevel(cfg.Log.Level), cfg.Log.Format, logOutput())

	if err := os.MkdirAll(cfg.Storage.DataDir, 0700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// One process at a time; concurrent invocations would race the
	// manifest swap.
	procLock = flock.New(filepath.Join(cfg.Storage.DataDir, "mediavault.lock"))
	locked, err := procLock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another mediavault instance is using %s", cfg.Storage.DataDir)
	}

	vaultApp, err = app.New(cfg, logger)
	if err != nil {
		_ = procLock.Unlock()
		return err
	}
	return nil
}

func teardownApp(cmd *cobra.Command, args []string) error {
	if vaultApp != nil {
		_ = vaultApp.Close()
	}
	if procLock != nil {
		_ = procLock.Unlock()
	}
	return nil
}

func logOutput() *os.File {
	if f := os.Getenv("MEDIAVAULT_LOG_FILE"); f != "" {
		if file, err := os.OpenFile(f, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600); err == nil {
			return file
		}
	}
	return os.Stderr
}

// promptPassword reads without echo.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ensureUnlocked prompts for the password and unlocks the vault.
func ensureUnlocked() error {
	if !vaultApp.Keyring.IsConfigured() {
		return fmt.Errorf("no vault configured; run 'mediavault setup' first")
	}
	password, err := promptPassword("Vault password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	return vaultApp.Keyring.Unlock(password)
}

func printSuccess(format string, args ...interface{}) {
	if !jsonOutput {
		color.Green(format, args...)
	}
}

func printWarning(format string, args ...interface{}) {
	if !jsonOutput {
		color.Yellow(format, args...)
	}
}

func printError(format string, args ...interface{}) {
	color.Red(format, args...)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
