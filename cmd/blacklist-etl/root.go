package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blacklist-etl",
		Short: "Publish moderated blacklist reports as a static JSON dataset",
		Long: `blacklist-etl reads blacklist reports and appeals from a GitHub issue tracker
and publishes the approved reports as a static JSON dataset.

Each run fetches the issues updated since the previous run, closes
duplicate appeals, derives one record per approved report and rewrites the
dataset: detail files, search shards, the index, the hot list and audit
statistics. Runs are recorded in a local history database.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits with status 1 on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
