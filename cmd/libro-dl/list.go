package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/handiism/libro-downloader/internal/download"
	"github.com/handiism/libro-downloader/internal/model"
	"github.com/handiism/libro-downloader/internal/tui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the books in your library",
	Long: `List prints the books of the library export. With --links it also fetches
each book's page and prints its download links, filtered by --format if set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		showLinks, _ := cmd.Flags().GetBool("links")

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		a.settings.Download.DryRun = true
		manager, err := download.NewManager(a.settings, a.client, a.logger, func(event download.ProgressEvent) {
			if event.Level == download.LevelWarning || event.Level == download.LevelError {
				printEvent(event)
			}
		})
		if err != nil {
			return err
		}

		books, err := manager.Catalog(ctx)
		if err != nil {
			return err
		}
		if showLinks {
			if err := manager.Initialize(ctx); err != nil {
				return err
			}
		}

		for i, book := range books {
			fmt.Println(tui.RenderBook(i+1, book.Title, book.Authors, details(book)))
			for _, link := range book.Links {
				fmt.Printf("       %s\n", link.FileName)
			}
		}
		fmt.Printf("\n%d book(s)\n", len(books))
		return nil
	},
}

func init() {
	listCmd.Flags().Bool("links", false, "resolve and print download links")
}

func details(book *model.Book) string {
	var parts []string
	if book.Narrators != "" {
		parts = append(parts, "read by "+book.Narrators)
	}
	if book.ISBN != 0 {
		parts = append(parts, "ISBN "+strconv.FormatInt(book.ISBN, 10))
	}
	if book.PurchasedDate != "" {
		parts = append(parts, "purchased "+book.PurchasedDate)
	}
	return strings.Join(parts, " · ")
}
