// Package tasks implements the operator commands for inspecting crawl
// tasks.
package tasks

import (
	"github.com/spf13/cobra"
)

// Command returns the tasks command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect crawl tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(listCommand())
	return cmd
}
