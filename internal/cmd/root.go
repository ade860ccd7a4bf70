// Package cmd holds the billingsync command line.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/billingsync/pkg/config"
)

// NewRootCmd builds the billingsync command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "billingsync",
		Short:         "Billing provider and subscription ledger reconciler",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			files, err := cmd.Flags().GetStringSlice("env-file")
			if err != nil {
				return err
			}
			return config.LoadFiles(files...)
		},
	}

	root.PersistentFlags().StringSlice("env-file", nil, "env files to load before reading configuration")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())

	return root
}
