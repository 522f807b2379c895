package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "redman",
		Short:         "Fetch and manage torrent collections",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd.Flags(), map[string]string{
				"pool":      "POOL_DB",
				"base-url":  "BASE_URL",
				"log-level": "LOG_LEVEL",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringP("pool", "p", "", "Database file path for storing torrent pool data")
	rootCmd.PersistentFlags().StringP("base-url", "b", "", "Base URL for the tracker API")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newFetchCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newStatsCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newDaemonCommand())

	return rootCmd
}

// bindFlags binds the named flags of the running command onto config keys.
// Binding happens per invocation so commands sharing a key do not override each other.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}
