// Package worker implements the crawl-worker command.
package worker

import (
	"github.com/spf13/cobra"

	"github.com/HariharanV1992/CrawlChat-sub000/cmd/common"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/bootstrap"
)

// Command returns the worker command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Start a crawl worker",
		Long: `Consume crawl dispatches from the work queue, fetch and store the
documents, and publish progress back to the control plane.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.RunWorker(cmd.Context(), common.OptionsFromFlags(cmd))
		},
	}
}
