package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"emberhold/realmd/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "realmd",
	Short: "realmd - Emberhold realm game server",
	Long: `realmd runs a single Emberhold realm.

It owns the realm's boot sequence and shutdown:
  - Schema migration of the game store before anything reads it
  - TCP front door and UDP datagram pipeline
  - Periodic world saves on a lowered-priority thread
  - Admin HTTP surface for metrics and health probes`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional env file loaded before REALMD_* overrides")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}
