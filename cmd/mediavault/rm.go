package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <item-id>...",
	Short: "Permanently delete vault items",
	Long: `Rm removes items from the vault: ciphertext, thumbnail, and manifest
entry. This is irreversible. Each item is deleted independently; one
failure does not stop the rest.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

var tagCmd = &cobra.Command{
	Use:   "tag <vault-album> <item-id>...",
	Short: "Assign items to a vault album",
	Long:  `Tag sets the vault album of items. Use an empty name ("") to untag.`,
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTag,
}

var rmYes bool

func init() {
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(tagCmd)

	rmCmd.Flags().BoolVarP(&rmYes, "yes", "y", false,
		"Skip the confirmation prompt")
}

func runRemove(cmd *cobra.Command, args []string) error {
	if !rmYes && !jsonOutput {
		fmt.Printf("Permanently delete %d item(s)? This cannot be undone. [y/N] ", len(args))
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			fmt.Println("aborted")
			return nil
		}
	}

	batch := vaultApp.Lifecycle.DeleteBatch(context.Background(), args)

	if jsonOutput {
		return printJSON(batch)
	}
	return reportBatch(batch, "deleted")
}

func runTag(cmd *cobra.Command, args []string) error {
	album := args[0]
	ids := args[1:]

	var failed int
	for _, id := range ids {
		if err := vaultApp.Store.Rename(id, album); err != nil {
			failed++
			printError("  %s: %v", shortID(id), err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d items failed", failed, len(ids))
	}
	printSuccess("%d items tagged %q", len(ids), album)
	return nil
}
