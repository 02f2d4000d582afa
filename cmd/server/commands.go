// File: cmd/server/commands.go
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-converse/internal/auth"
	"github.com/iyunix/go-converse/internal/metrics"
	"github.com/iyunix/go-converse/internal/repository/chat"
	"github.com/iyunix/go-converse/internal/services"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger()
		db, err := openDatabase(cfg, logger)
		if err != nil {
			return err
		}
		closeDatabase(db, logger)
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Process expired share links once, using SHARE_SWEEP_MODE",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger()
		db, err := openDatabase(cfg, logger)
		if err != nil {
			return err
		}
		defer closeDatabase(db, logger)

		shares, err := services.NewShareService(ProvideChatConfig(cfg), chat.NewChatRepository(db, logger), metrics.Nop(), logger)
		if err != nil {
			return err
		}
		n, err := shares.SweepExpiredShares(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d chat(s)\n", cfg.SweepMode, n)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <owner-id>",
	Short: "Issue a bearer token for an owner (development and operations)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ttl, err := cmd.Flags().GetDuration("ttl")
		if err != nil {
			return err
		}
		secret := ProvideJWTSecret(cfg, newLogger())
		token, err := auth.GenerateJWT(args[0], secret, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
}
