package main

import (
	"context"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <item-id>...",
	Short: "Write decrypted copies to a directory",
	Long: `Export decrypts items to a chosen directory without touching the
vault: the items stay hidden. Existing filenames at the destination
are never overwritten; exports get a numeric suffix instead.`,
	Example: `  mediavault export --dest ~/Desktop/out 4f1c9b2a-...`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runExport,
}

var exportDest string

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportDest, "dest", "d", "",
		"Destination directory (required)")
	_ = exportCmd.MarkFlagRequired("dest")
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := ensureUnlocked(); err != nil {
		return err
	}

	batch := vaultApp.Lifecycle.ExportBatch(context.Background(), args, exportDest)

	if jsonOutput {
		return printJSON(batch)
	}
	return reportBatch(batch, "exported")
}
