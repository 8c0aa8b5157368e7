// Package ask implements the one-shot question command.
package ask

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HariharanV1992/CrawlChat-sub000/cmd/common"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/bootstrap"
)

// Command returns the ask command.
func Command() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "ask \"question\"",
		Short: "Ask a question against an existing chat session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := bootstrap.RunAsk(cmd.Context(), common.OptionsFromFlags(cmd), bootstrap.AskParams{
				SessionID: sessionID,
				Question:  args[0],
			})
			if err != nil {
				return err
			}

			fmt.Println(reply.Content)
			if len(reply.Sources) > 0 {
				fmt.Printf("\nsources: %s\n", strings.Join(reply.Sources, ", "))
			}
			if reply.Usage.InputTokens > 0 || reply.Usage.OutputTokens > 0 {
				fmt.Printf("tokens: %d in, %d out\n", reply.Usage.InputTokens, reply.Usage.OutputTokens)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "chat session ID (required)")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}
