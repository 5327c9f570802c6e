package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/mediavault/internal/index"
	"github.com/TheMichaelB/mediavault/internal/models"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List vault items",
	Long: `Ls lists vault items from the manifest metadata. Listing needs no
password: item names and dates are indexed in the clear, only content
is encrypted.`,
	Example: `  mediavault ls
  mediavault ls --album trip2024
  mediavault ls --search IMG_00`,
	RunE: runList,
}

var albumsCmd = &cobra.Command{
	Use:   "albums",
	Short: "List vault albums",
	RunE:  runAlbums,
}

var (
	listAlbum  string
	listSearch string
	listRecent int
)

func init() {
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(albumsCmd)

	lsCmd.Flags().StringVar(&listAlbum, "album", "", "Only items in this vault album")
	lsCmd.Flags().StringVar(&listSearch, "search", "", "Filter by filename or album substring")
	lsCmd.Flags().IntVar(&listRecent, "recent", 0, "Only the n most recently hidden items")
}

func runList(cmd *cobra.Command, args []string) error {
	var entries []index.Entry
	var err error

	switch {
	case listSearch != "":
		entries, err = vaultApp.Index.Search(listSearch)
	case listAlbum != "":
		entries, err = vaultApp.Index.ByAlbum(listAlbum)
	case listRecent > 0:
		entries, err = vaultApp.Index.Recent(listRecent)
	default:
		entries = entriesFromManifest()
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("vault is empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tNAME\tALBUM\tTAKEN\tSTATUS")
	for _, e := range entries {
		status := "ok"
		if e.Flagged {
			status = "corrupted"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Kind, e.OriginalFilename, e.VaultAlbum,
			e.CreationDate.Format("2006-01-02"), status)
	}
	return w.Flush()
}

func runAlbums(cmd *cobra.Command, args []string) error {
	albums := vaultApp.Store.Albums()
	if jsonOutput {
		return printJSON(albums)
	}
	if len(albums) == 0 {
		fmt.Println("no vault albums")
		return nil
	}
	for _, a := range albums {
		fmt.Println(a)
	}
	return nil
}

func entriesFromManifest() []index.Entry {
	var entries []index.Entry
	for _, item := range vaultApp.Store.List() {
		entries = append(entries, entryFromItem(item))
	}
	return entries
}

func entryFromItem(item *models.VaultItem) index.Entry {
	return index.Entry{
		ID:               item.ID,
		OriginalFilename: item.OriginalFilename,
		SourceAlbum:      item.SourceAlbum,
		VaultAlbum:       item.VaultAlbum,
		Kind:             item.Kind,
		CreationDate:     item.CreationDate,
		AddedAt:          item.AddedAt,
		Flagged:          item.Flagged,
	}
}
