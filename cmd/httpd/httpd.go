// Package httpd implements the control-plane server command.
package httpd

import (
	"github.com/spf13/cobra"

	"github.com/HariharanV1992/CrawlChat-sub000/cmd/common"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/bootstrap"
)

// Command returns the httpd command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Start the HTTP control plane",
		Long: `Serve the crawl-task and chat APIs, dispatch crawl jobs onto the
work queue, and stream crawl progress to SSE subscribers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.RunHTTPD(cmd.Context(), common.OptionsFromFlags(cmd))
		},
	}
}
