package cmds

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/sidechat/pkg/conversation"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored conversations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, manager, err := openManager(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			limit, _ := cmd.Flags().GetInt("limit")
			summaries, err := manager.RecentConversations(limit)
			if err != nil {
				return err
			}
			printSummaries(summaries)
			return nil
		},
	}

	cmd.Flags().Int("limit", 0, "Show at most this many conversations (0 for all)")
	return cmd
}

func newSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search conversations by title and message content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, manager, err := openManager(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			summaries, err := manager.SearchConversations(args[0])
			if err != nil {
				return err
			}
			printSummaries(summaries)
			return nil
		},
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, manager, err := openManager(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			return manager.DeleteConversation(args[0])
		},
	}
}

func printSummaries(summaries []conversation.Summary) {
	for _, s := range summaries {
		fmt.Printf("%s  %s  %s\n", s.ID, s.LastUpdated.Format("2006-01-02 15:04"), s.Title)
		if s.Preview != "" {
			fmt.Printf("    %s\n", s.Preview)
		}
	}
}
