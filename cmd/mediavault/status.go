package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	items := vaultApp.Store.List()

	var flagged int
	var totalSize int64
	for _, item := range items {
		if item.Flagged {
			flagged++
		}
		totalSize += item.Size
	}

	status := map[string]interface{}{
		"data_dir":    cfg.Storage.DataDir,
		"configured":  vaultApp.Keyring.IsConfigured(),
		"lock_state":  vaultApp.Session.State().String(),
		"kdf_version": vaultApp.Store.KDFVersion(),
		"items":       len(items),
		"flagged":     flagged,
		"total_bytes": totalSize,
		"albums":      len(vaultApp.Store.Albums()),
	}

	if jsonOutput {
		return printJSON(status)
	}

	fmt.Printf("Vault:       %s\n", cfg.Storage.DataDir)
	if !vaultApp.Keyring.IsConfigured() {
		printWarning("Not configured; run 'mediavault setup'")
		return nil
	}
	fmt.Printf("Lock state:  %s\n", vaultApp.Session.State())
	fmt.Printf("KDF version: %d\n", vaultApp.Store.KDFVersion())
	fmt.Printf("Items:       %d (%d corrupted)\n", len(items), flagged)
	fmt.Printf("Size:        %.1f MB\n", float64(totalSize)/(1024*1024))
	return nil
}
