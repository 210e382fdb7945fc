package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Support chat client",
	Long: `chat talks to the support assistant through the support-chat server.

Without a subcommand it opens the interactive terminal UI.

Examples:
  chat                      # interactive session
  chat send "How do I prepare for a coding interview?"
  chat history -o yaml      # stored conversation of the signed-in user`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(historyCmd)

	rootCmd.PersistentFlags().String("server", "", "Server URL (overrides CHAT_SERVER_URL)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file to load when present")
}
