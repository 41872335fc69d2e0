/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yummy-rest/apiserver/config"
	"github.com/yummy-rest/apiserver/internal/events"
	"github.com/yummy-rest/apiserver/internal/logging"
	"github.com/yummy-rest/apiserver/internal/server"
)

var promoteEmail string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Administer user accounts",
}

var userPromoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Grant the admin role to a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(promoteEmail) == "" {
			return errors.New("--email is required")
		}

		cfg := config.LoadConfig()
		logger := logging.New(cfg.Env)

		repos, closeRepos, err := server.OpenRepositories(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = closeRepos()
		}()

		svc := server.NewServices(cfg.Auth, repos, nil, events.Nop{})
		user, err := svc.Users.Promote(cmd.Context(), promoteEmail)
		if err != nil {
			return fmt.Errorf("promote %s: %w", promoteEmail, err)
		}
		logger.Info("user promoted", "public_id", user.PublicID, "username", user.Username)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userPromoteCmd)

	userPromoteCmd.Flags().StringVar(&promoteEmail, "email", "", "email of the user to promote")
}
