package cmds

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/sidechat/pkg/settings"
)

func newConfigureCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Store API keys and model selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			cfg, err := settings.Load(s)
			if err != nil {
				return err
			}

			if key, _ := cmd.Flags().GetString("claude-api-key"); key != "" {
				cfg.ClaudeAPIKey = key
			}
			if key, _ := cmd.Flags().GetString("gpt-api-key"); key != "" {
				cfg.GPTAPIKey = key
			}
			if model, _ := cmd.Flags().GetString("model"); model != "" {
				cfg.Model = model
			}

			if err := cfg.Save(s); err != nil {
				return err
			}

			fmt.Printf("model: %s\n", cfg.Model)
			return nil
		},
	}

	cmd.Flags().String("claude-api-key", "", "Anthropic API key")
	cmd.Flags().String("gpt-api-key", "", "OpenAI API key")
	cmd.Flags().String("model", "", "Model identifier")

	return cmd
}
