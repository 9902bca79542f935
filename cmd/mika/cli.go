package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moekyun/mika/pkg/config"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "mika",
		Short: "Stream companion chat agent with response gating and context memory",
		Long: strings.TrimSpace(`mika is an AI chat companion for Twitch and Discord streams.

It decides when to speak (mentions, cooldowns, rate limits), remembers
recent conversation and per-user facts, and answers in character through
an OpenAI-compatible model endpoint.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")
	root.PersistentFlags().String("config", config.DefaultPath(), "Path to the config file")

	root.AddCommand(newOnboardCommand())
	root.AddCommand(newGatewayCommand())
	root.AddCommand(newChatCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if strings.TrimSpace(path) == "" {
		return config.DefaultPath()
	}
	return path
}

func newOnboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "onboard",
		Short:   "Write a default ~/.mika config",
		Example: "  mika onboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnboard(configPath(cmd))
		},
	}
}

func newGatewayCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "gateway",
		Short:   "Run the platform connectors, engine worker, scheduler and HTTP surface",
		Example: "  mika gateway --debug",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway(configPath(cmd), debug)
		},
	}
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newChatCommand() *cobra.Command {
	var (
		author string
		debug  bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the agent in a local REPL, no platform needed",
		Example: strings.Join([]string{
			"  mika chat",
			"  mika chat --author tester",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(configPath(cmd), author, debug)
		},
	}
	cmd.Flags().StringVarP(&author, "author", "a", "you", "Author name for REPL messages")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show configuration and runtime readiness",
		Example: "  mika status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(configPath(cmd))
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  mika version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}
