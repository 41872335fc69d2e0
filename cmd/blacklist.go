/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yummy-rest/apiserver/config"
	"github.com/yummy-rest/apiserver/internal/logging"
	"github.com/yummy-rest/apiserver/internal/server"
	"github.com/yummy-rest/apiserver/internal/services"
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Manage revoked access tokens",
}

var blacklistPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete blacklist entries whose tokens have expired",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logging.New(cfg.Env)

		repos, closeRepos, err := server.OpenRepositories(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = closeRepos()
		}()

		tokens := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, repos.Users, repos.Blacklist)
		removed, err := tokens.PruneBlacklist(cmd.Context())
		if err != nil {
			return fmt.Errorf("prune blacklist: %w", err)
		}
		logger.Info("blacklist pruned", "removed", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blacklistCmd)
	blacklistCmd.AddCommand(blacklistPruneCmd)
}
