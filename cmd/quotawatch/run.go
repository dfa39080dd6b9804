package main

import (
	"fmt"

	"github.com/quotawatch/quotawatch/bootstrap"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the usage polling daemon",
	Long: `Start the quotawatch daemon.

The daemon will:
  - Load configuration from quotawatch.yaml (or --config)
  - Or run from QUOTAWATCH_* environment variables alone
  - Poll the GitHub billing usage API on the configured interval
  - Notify when warn/danger thresholds are crossed
  - Serve status and Prometheus metrics if server.enabled is set

Environment variables (for containerized deployments):
  QUOTAWATCH_TOKEN            - GitHub token (falls back to GITHUB_TOKEN)
  QUOTAWATCH_PRODUCT          - Metered product (default: copilot)
  QUOTAWATCH_REFRESH_INTERVAL - Poll interval (default: 5m)
  QUOTAWATCH_BUDGET_USD       - Monthly dollar budget
  QUOTAWATCH_WARN_PERCENT     - Warn threshold percent
  QUOTAWATCH_DANGER_PERCENT   - Danger threshold percent
  QUOTAWATCH_DATABASE_DSN     - State database path (default: quotawatch.db)
  QUOTAWATCH_LOG_LEVEL        - Log level: debug, info, warn, error

Examples:
  quotawatch run
  quotawatch run --config /etc/quotawatch/config.yaml

  # Containers (env vars only):
  QUOTAWATCH_TOKEN=ghp_xxx QUOTAWATCH_BUDGET_USD=20 quotawatch run`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	app, err := bootstrap.New(bootstrap.Options{ConfigPath: cfgFile})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
