package tasks

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/HariharanV1992/CrawlChat-sub000/cmd/common"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/bootstrap"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
)

func listCommand() *cobra.Command {
	var filter bootstrap.TaskFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List crawl tasks in a table, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := bootstrap.ListTasks(cmd.Context(), common.OptionsFromFlags(cmd), filter)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("no tasks found")
				return nil
			}
			renderTaskTable(items)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Status, "status", "", "filter by status (created|running|completed|failed|cancelled)")
	cmd.Flags().StringVar(&filter.UserID, "user", "", "filter by user ID")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "maximum rows")

	return cmd
}

func renderTaskTable(items []domain.CrawlTask) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Task ID", "Status", "Seed URL", "Docs", "Pages", "Created"})

	for _, item := range items {
		t.AppendRow(table.Row{
			item.TaskID,
			string(item.Status),
			item.SeedURL,
			fmt.Sprintf("%d/%d", item.Progress.DocumentsDownloaded, item.Progress.DocumentsFound),
			item.Progress.PagesCrawled,
			item.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	t.Render()
}
