package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var hideCmd = &cobra.Command{
	Use:   "hide <asset-id>...",
	Short: "Move library assets into the vault",
	Long: `Hide reads each asset from the media library, encrypts it into the
vault, and deletes the library copy. If the source cannot be deleted
the encrypted copy is kept and the asset is reported.`,
	Example: `  mediavault hide Holiday/IMG_0123.jpg
  mediavault hide --from-album Holiday
  mediavault hide --vault-album trip2024 IMG_0042.jpg`,
	RunE: runHide,
}

var (
	hideVaultAlbum string
	hideFromAlbum  string
)

func init() {
	rootCmd.AddCommand(hideCmd)

	hideCmd.Flags().StringVar(&hideVaultAlbum, "vault-album", "",
		"Vault album to place hidden items in")
	hideCmd.Flags().StringVar(&hideFromAlbum, "from-album", "",
		"Hide every asset in this library album")
}

func runHide(cmd *cobra.Command, args []string) error {
	if vaultApp.Library == nil {
		return fmt.Errorf("no media library configured; pass --library or set storage.library_dir")
	}
	if len(args) == 0 && hideFromAlbum == "" {
		return fmt.Errorf("nothing to hide: pass asset ids or --from-album")
	}

	ctx := context.Background()

	assetIDs := args
	if hideFromAlbum != "" {
		assets, err := vaultApp.Library.ListAssets(ctx, hideFromAlbum)
		if err != nil {
			return fmt.Errorf("list album %s: %w", hideFromAlbum, err)
		}
		for _, a := range assets {
			assetIDs = append(assetIDs, a.ID)
		}
	}

	if err := ensureUnlocked(); err != nil {
		return err
	}

	results := vaultApp.Lifecycle.HideBatch(ctx, assetIDs, hideVaultAlbum)

	if jsonOutput {
		return printJSON(results)
	}

	var failed int
	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
			printError("  %s: %v", res.AssetID, res.Err)
		case !res.SourceDeleted:
			printWarning("  %s hidden as %s (source not deleted)", res.AssetID, shortID(res.Item.ID))
		default:
			fmt.Printf("  %s hidden as %s\n", res.AssetID, shortID(res.Item.ID))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d assets failed", failed, len(results))
	}
	printSuccess("%d assets hidden", len(results))
	return nil
}
