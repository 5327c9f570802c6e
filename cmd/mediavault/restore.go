package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/mediavault/internal/services/lifecycle"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <item-id>...",
	Short: "Restore vault items to the media library",
	Long: `Restore decrypts items and recreates them in the library. By default
the item goes back to its original album and the vault copy is kept;
--rm removes it from the vault after a successful restore.`,
	Example: `  mediavault restore 4f1c9b2a-...
  mediavault restore --flat --rm 4f1c9b2a-...
  mediavault restore --to trip2024 4f1c9b2a-... 77e0d3c1-...`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRestore,
}

var (
	restoreFlat   bool
	restoreTo     string
	restoreRemove bool
)

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().BoolVar(&restoreFlat, "flat", false,
		"Restore into the library root instead of the original album")
	restoreCmd.Flags().StringVar(&restoreTo, "to", "",
		"Restore into this library album")
	restoreCmd.Flags().BoolVar(&restoreRemove, "rm", false,
		"Remove items from the vault after restoring")
}

func runRestore(cmd *cobra.Command, args []string) error {
	if vaultApp.Library == nil {
		return fmt.Errorf("no media library configured; pass --library or set storage.library_dir")
	}
	if restoreFlat && restoreTo != "" {
		return fmt.Errorf("--flat and --to are mutually exclusive")
	}

	opts := lifecycle.RestoreOptions{
		Target:          lifecycle.RestoreToOriginalAlbum,
		RemoveFromVault: restoreRemove,
	}
	if restoreFlat {
		opts.Target = lifecycle.RestoreFlat
	}
	if restoreTo != "" {
		opts.Target = lifecycle.RestoreToAlbum
		opts.Album = restoreTo
	}

	if err := ensureUnlocked(); err != nil {
		return err
	}

	batch := vaultApp.Lifecycle.RestoreBatch(context.Background(), args, opts)

	if jsonOutput {
		return printJSON(batch)
	}
	return reportBatch(batch, "restored")
}

func reportBatch(batch *lifecycle.BatchResult, verb string) error {
	for _, res := range batch.Results {
		if res.Err != nil {
			printError("  %s: %v", shortID(res.ID), res.Err)
			continue
		}
		if res.Path != "" {
			fmt.Printf("  %s %s to %s\n", shortID(res.ID), verb, res.Path)
		} else {
			fmt.Printf("  %s %s\n", shortID(res.ID), verb)
		}
	}

	if failed := batch.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d items failed", len(failed), len(batch.Results))
	}
	printSuccess("%d items %s", len(batch.Results), verb)
	return nil
}
