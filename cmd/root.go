// Package cmd implements the crawlchat command-line interface: the two
// long-running processes (httpd, worker) and the one-shot operator
// commands, all behind a single cobra root.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HariharanV1992/CrawlChat-sub000/cmd/ask"
	"github.com/HariharanV1992/CrawlChat-sub000/cmd/common"
	"github.com/HariharanV1992/CrawlChat-sub000/cmd/crawl"
	"github.com/HariharanV1992/CrawlChat-sub000/cmd/httpd"
	cmdtasks "github.com/HariharanV1992/CrawlChat-sub000/cmd/tasks"
	"github.com/HariharanV1992/CrawlChat-sub000/cmd/worker"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "crawlchat",
	Short: "Crawl websites into chat-ready document sessions",
	Long: `CrawlChat crawls seed URLs through a cost-escalating fetch proxy,
extracts and indexes the documents, and answers questions about them
in chat sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	common.Version = version

	rootCmd.PersistentFlags().String("config", "", "config file (optional; defaults and environment otherwise)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("crawlchat version %s\n", version)
		},
	})

	rootCmd.AddCommand(httpd.Command())
	rootCmd.AddCommand(worker.Command())
	rootCmd.AddCommand(crawl.Command())
	rootCmd.AddCommand(ask.Command())
	rootCmd.AddCommand(cmdtasks.Command())
}
