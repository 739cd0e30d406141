package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/listing-bot/internal/auth"
	"github.com/spec-kit/listing-bot/internal/config"
)

var tokenModerator int64

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the moderation HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if tokenModerator == 0 {
			return errors.New("--moderator is required")
		}
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if !cfg.Moderation.IsModerator(tokenModerator) {
			return fmt.Errorf("user %d is not listed in MODERATOR_IDS", tokenModerator)
		}
		tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
		token, expiresAt, err := tokens.GenerateToken(tokenModerator)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.Flags().Int64Var(&tokenModerator, "moderator", 0, "Telegram user id of the moderator")
}
