/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "yummy",
	Short: "Yummy recipes API",
	Long: `Yummy is a REST API for keeping recipe categories and recipes.

	yummy server          start the HTTP API
	yummy migrate up      apply database migrations
	yummy blacklist prune drop expired revoked tokens`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
