package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/mediavault/internal/services/dedup"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Find and resolve duplicate vault items",
	Long: `Dedupe groups items by content hash. Without --apply it only reports
the groups; with --apply it keeps one item per group and permanently
deletes the rest.`,
	Example: `  mediavault dedupe
  mediavault dedupe --apply
  mediavault dedupe --apply --keep newest`,
	RunE: runDedupe,
}

var (
	dedupeApply bool
	dedupeKeep  string
)

func init() {
	rootCmd.AddCommand(dedupeCmd)

	dedupeCmd.Flags().BoolVar(&dedupeApply, "apply", false,
		"Delete duplicates instead of just reporting them")
	dedupeCmd.Flags().StringVar(&dedupeKeep, "keep", "oldest",
		"Which copy to keep: oldest or newest")
}

func runDedupe(cmd *cobra.Command, args []string) error {
	var policy dedup.KeepPolicy
	switch dedupeKeep {
	case "oldest":
		policy = dedup.KeepOldest
	case "newest":
		policy = dedup.KeepNewest
	default:
		return fmt.Errorf("invalid --keep value %q (oldest or newest)", dedupeKeep)
	}

	groups := vaultApp.Dedup.FindDuplicates()

	if !dedupeApply {
		if jsonOutput {
			return printJSON(groups)
		}
		if len(groups) == 0 {
			fmt.Println("no duplicates")
			return nil
		}
		for _, g := range groups {
			fmt.Printf("%s (%d copies)\n", g.ContentHash[:16], len(g.Items))
			for _, item := range g.Items {
				fmt.Printf("  %s  %s  %s\n", shortID(item.ID), item.OriginalFilename,
					item.CreationDate.Format("2006-01-02"))
			}
		}
		printWarning("run with --apply to delete duplicates")
		return nil
	}

	resolutions := vaultApp.Dedup.Resolve(groups, policy)

	if jsonOutput {
		return printJSON(resolutions)
	}

	var deleted, failed int
	for _, res := range resolutions {
		deleted += len(res.DeletedIDs)
		failed += len(res.Errs)
		for _, err := range res.Errs {
			printError("  %v", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d deletions failed", failed)
	}
	printSuccess("%d duplicates deleted across %d groups", deleted, len(resolutions))
	return nil
}
