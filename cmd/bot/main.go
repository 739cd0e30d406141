package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "listing-bot",
	Short: "Telegram intake bot for business-for-sale listings",
	Long: `listing-bot collects sell listings and buy requests over Telegram,
gates them behind the channel subscription and hands them to moderators.

Examples:
  listing-bot serve                  # Run the bot and the admin HTTP API
  listing-bot migrate                # Apply database migrations
  listing-bot migrate --status       # Show applied migrations
  listing-bot token --moderator 42   # Issue an admin API token`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}
