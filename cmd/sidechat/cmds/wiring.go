package cmds

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/sidechat/pkg/conversation"
	"github.com/go-go-golems/sidechat/pkg/store"
)

// AddCommands registers all sidechat subcommands on the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(
		newChatCommand(),
		newHistoryCommand(),
		newSearchCommand(),
		newDeleteCommand(),
		newConfigureCommand(),
	)
}

func openStore(cmd *cobra.Command) (*store.BoltStore, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		dbPath = filepath.Join(homeDir, ".sidechat", "sidechat.db")
	}

	var options []store.BoltStoreOption
	if quota, _ := cmd.Flags().GetInt64("quota"); quota > 0 {
		options = append(options, store.WithBoltQuota(quota))
	}

	s, err := store.NewBoltStore(dbPath, options...)
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}
	return s, nil
}

func openManager(cmd *cobra.Command) (*store.BoltStore, *conversation.Repository, *conversation.ManagerImpl, error) {
	s, err := openStore(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	repo := conversation.NewRepository(s)
	manager := conversation.NewManager(repo)
	if err := manager.Initialize(); err != nil {
		_ = s.Close()
		return nil, nil, nil, errors.Wrap(err, "initialize manager")
	}
	return s, repo, manager, nil
}
