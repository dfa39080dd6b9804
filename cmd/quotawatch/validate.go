package main

import (
	"fmt"
	"os"

	"github.com/quotawatch/quotawatch/adapters/sqlite"
	"github.com/quotawatch/quotawatch/config"
	"github.com/spf13/cobra"
)

var validateCheckDatabase bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the quotawatch configuration file.

Checks:
  - YAML syntax is valid
  - Required fields are present and in range
  - Database is writable (optional)

Examples:
  quotawatch validate
  quotawatch validate --config /etc/quotawatch/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check if database is writable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Printf("  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Printf("  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Config valid\n", checkMark)

	if cfg.Budget.AmountUSD == 0 && cfg.Quota.IncludedOverride == 0 && cfg.Quota.SelectedPlan == "" {
		fmt.Printf("  %s No budget or quota configured; thresholds will never fire\n", crossMark)
	}

	if validateCheckDatabase {
		db, err := sqlite.Open(cfg.Database.DSN)
		if err != nil {
			fmt.Printf("  %s Database writable\n", crossMark)
			return fmt.Errorf("database error: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			fmt.Printf("  %s Database writable\n", crossMark)
			return fmt.Errorf("migrate error: %w", err)
		}
		db.Close()
		fmt.Printf("  %s Database writable\n", checkMark)
	}

	fmt.Println("\nConfiguration OK")
	return nil
}
