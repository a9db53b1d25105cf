// Package cmd implements the glucoshare command line
package cmd

import "github.com/spf13/cobra"

type rootOptions struct {
	configFile string
	logLevel   string
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "glucoshare",
		Short:         "Dexcom Share follower: glucose API, badge and alerts",
		Long:          "glucoshare signs in to Dexcom Share as a follower, serves the latest glucose readings with their tendency over HTTP, prints them in the terminal and raises desktop alerts on threshold crossings.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Config file (toml, yaml or json); env vars take precedence")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug|info|warn|error)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRegionsCmd(),
		newServeCmd(opts),
		newCurrentCmd(opts),
		newHistoryCmd(opts),
		newWatchCmd(opts),
		newAutostartCmd(opts),
		newTestAlertCmd(opts),
	)

	return rootCmd
}
