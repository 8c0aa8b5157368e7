// Package crawl implements the one-shot crawl command.
package crawl

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HariharanV1992/CrawlChat-sub000/cmd/common"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/bootstrap"
)

// Command returns the crawl command.
func Command() *cobra.Command {
	var params bootstrap.CrawlParams

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a site once, without the queue",
		Long: `Run one crawl inline: create a task record, drive the engine to
completion in this process, and store the documents. Meant for
development and debugging; production crawls go through the queue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := bootstrap.RunCrawl(cmd.Context(), common.OptionsFromFlags(cmd), params)
			if err != nil {
				return err
			}
			fmt.Printf("task %s %s: %d documents stored, %d urls failed, %d pages crawled\n",
				report.Task.TaskID,
				string(report.Task.Status),
				len(report.DocIDs),
				len(report.FailedURLs),
				report.Progress.PagesCrawled)
			for _, docID := range report.DocIDs {
				fmt.Println("  " + docID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&params.URL, "url", "", "seed URL to crawl (required)")
	cmd.Flags().IntVar(&params.MaxDocuments, "max-documents", 0, "maximum documents to store (0 uses the default cap)")
	cmd.Flags().BoolVar(&params.RenderJS, "render-js", false, "force JS rendering for every page")
	cmd.Flags().StringVar(&params.UserID, "user", "", "user ID owning the crawl")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}
