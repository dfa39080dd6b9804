package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

const (
	checkMark = "✓"
	crossMark = "✗"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quotawatch",
	Short: "Metered usage watcher for GitHub billing with threshold notifications",
	Long: `Quotawatch polls the GitHub billing usage API for a metered product
(Copilot premium requests by default), derives spend and included-quota
usage for the current month, and notifies when configured warn or danger
thresholds are crossed.

Quick start:
  quotawatch check     # One-shot fetch, print current usage
  quotawatch run       # Start the polling daemon

Management:
  quotawatch validate  # Validate configuration`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "quotawatch.yaml", "config file path")
}
