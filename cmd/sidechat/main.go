package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/sidechat/cmd/sidechat/cmds"
)

var rootCmd = &cobra.Command{
	Use:   "sidechat",
	Short: "sidechat relays chat messages to Claude and keeps conversation history locally",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger(cmd)
	},
}

func initLogger(cmd *cobra.Command) {
	logLevel, _ := cmd.Flags().GetString("log-level")
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
}

func main() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("db", "", "Path to the conversation database (default ~/.sidechat/sidechat.db)")
	rootCmd.PersistentFlags().Int64("quota", 0, "Storage quota in bytes (default 10 MB)")

	cmds.AddCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
