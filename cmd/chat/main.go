package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-chatty-client/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Two-party chat in the terminal, backed by a chat service",
		Example: `  chat --user 13 --peer 14 --peer-name Bob
  chat --config chat.yaml --realtime-url ws://localhost:5000/ws`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	config.RegisterFlags(cmd.Flags())
	return cmd
}
