package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/quotawatch/quotawatch/app"
	"github.com/quotawatch/quotawatch/bootstrap"
	"github.com/spf13/cobra"
)

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Fetch current usage once and print it",
	Long: `Run a single fetch+compute cycle and print the resulting usage state.

Threshold bookkeeping is persisted the same way the daemon persists it, so
a cron-driven 'quotawatch check' delivers the same notifications the
daemon would.

Examples:
  quotawatch check
  quotawatch check --json`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the view state as JSON")
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := bootstrap.New(bootstrap.Options{
		ConfigPath:     cfgFile,
		WithoutServer:  true,
		WithoutMetrics: true,
	})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}
	defer a.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	outcome := a.RefreshOnce(ctx)
	view := a.Scheduler.View()

	switch outcome {
	case app.OutcomeOK:
	case app.OutcomeNoCredentials:
		if !checkJSON {
			fmt.Printf("%s No credential found (set QUOTAWATCH_TOKEN or GITHUB_TOKEN)\n", crossMark)
			return nil
		}
	default:
		return fmt.Errorf("refresh failed: %s", outcome)
	}

	if checkJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	fmt.Printf("Usage for %s\n\n", view.Period.Label())
	if view.BudgetUSD > 0 {
		fmt.Printf("  Budget:    $%.2f / $%.2f (%.0f%%)\n", view.SpendUSD, view.BudgetUSD, view.BudgetPercent)
	} else {
		fmt.Printf("  Spend:     $%.2f (no budget configured)\n", view.SpendUSD)
	}
	if view.IncludedTotal > 0 {
		fmt.Printf("  Included:  %d / %d requests (%.0f%%)\n", view.IncludedUsed, view.IncludedTotal, view.IncludedPercent)
	} else {
		fmt.Printf("  Included:  %d requests used (no quota known)\n", view.IncludedUsed)
	}
	fmt.Printf("  Phase:     %s\n", view.Phase)
	fmt.Printf("  Health:    %s\n", view.Health)

	return nil
}
