package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quotawatch/quotawatch/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quotawatch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "budget:\n  amount_usd: 20\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.GitHub.APIURL != "https://api.github.com" {
		t.Errorf("APIURL = %q", cfg.GitHub.APIURL)
	}
	if cfg.GitHub.Product != "copilot" {
		t.Errorf("Product = %q", cfg.GitHub.Product)
	}
	if cfg.Refresh.Interval != 5*time.Minute {
		t.Errorf("Interval = %s", cfg.Refresh.Interval)
	}
	if cfg.Refresh.ManualCooldown != 30*time.Second {
		t.Errorf("ManualCooldown = %s", cfg.Refresh.ManualCooldown)
	}
	if cfg.Thresholds.Cooldown != 6*time.Hour {
		t.Errorf("Cooldown = %s", cfg.Thresholds.Cooldown)
	}
	if cfg.Notifications.IdentifierPrefix != "io.quotawatch" {
		t.Errorf("IdentifierPrefix = %q", cfg.Notifications.IdentifierPrefix)
	}
	if cfg.Budget.Source != "manual" {
		t.Errorf("Source = %q", cfg.Budget.Source)
	}
	if cfg.Budget.AmountUSD != 20 {
		t.Errorf("AmountUSD = %g", cfg.Budget.AmountUSD)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
github:
  product: copilot
  fetch_timeout: 10s
refresh:
  interval: 2m
thresholds:
  warn_percent: 75
  danger_percent: 90
notifications:
  enabled: true
  webhook_url: https://hooks.example.com/x
budget:
  amount_usd: 50
quota:
  selected_plan: pro
plans:
  - id: pro
    name: Copilot Pro
    included_per_month: 300
server:
  enabled: true
  port: 9999
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Refresh.Interval != 2*time.Minute {
		t.Errorf("Interval = %s", cfg.Refresh.Interval)
	}
	if cfg.Thresholds.WarnPercent != 75 || cfg.Thresholds.DangerPercent != 90 {
		t.Errorf("thresholds = %g/%g", cfg.Thresholds.WarnPercent, cfg.Thresholds.DangerPercent)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}

	catalog := cfg.Catalog()
	if p, ok := catalog.Lookup("pro"); !ok || p.IncludedPerMonth != 300 {
		t.Errorf("catalog pro = (%+v, %v)", p, ok)
	}
}

func TestLoad_RejectsIntervalBelowMinimum(t *testing.T) {
	path := writeConfig(t, "refresh:\n  interval: 10s\n")

	if _, err := config.Load(path); err == nil {
		t.Error("expected sub-minute interval to be rejected")
	}
}

func TestLoad_RejectsOutOfRangePercent(t *testing.T) {
	path := writeConfig(t, "thresholds:\n  warn_percent: 150\n")

	if _, err := config.Load(path); err == nil {
		t.Error("expected percent above 100 to be rejected")
	}
}

func TestLoad_RejectsUnknownSelectedPlan(t *testing.T) {
	path := writeConfig(t, "quota:\n  selected_plan: enterprise\n")

	if _, err := config.Load(path); err == nil {
		t.Error("expected selected_plan without a matching plan to be rejected")
	}
}

func TestLoad_RejectsBadBudgetSource(t *testing.T) {
	path := writeConfig(t, "budget:\n  source: magic\n")

	if _, err := config.Load(path); err == nil {
		t.Error("expected unknown budget source to be rejected")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QUOTAWATCH_BUDGET_USD", "42.5")
	t.Setenv("QUOTAWATCH_REFRESH_INTERVAL", "10m")
	t.Setenv("QUOTAWATCH_NOTIFICATIONS", "false")

	path := writeConfig(t, `
budget:
  amount_usd: 20
refresh:
  interval: 5m
notifications:
  enabled: true
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Budget.AmountUSD != 42.5 {
		t.Errorf("AmountUSD = %g, want env override 42.5", cfg.Budget.AmountUSD)
	}
	if cfg.Refresh.Interval != 10*time.Minute {
		t.Errorf("Interval = %s, want env override 10m", cfg.Refresh.Interval)
	}
	if cfg.Notifications.Enabled {
		t.Error("Enabled = true, want env override false")
	}
}

func TestLoadOrDefault_NoFile(t *testing.T) {
	cfg, err := config.LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GitHub.Product != "copilot" {
		t.Errorf("Product = %q, want default", cfg.GitHub.Product)
	}
}

func TestPreferences_Snapshot(t *testing.T) {
	path := writeConfig(t, `
thresholds:
  warn_percent: 80
  danger_percent: 95
notifications:
  enabled: true
budget:
  amount_usd: 20
quota:
  included_override: 300
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	prefs := cfg.Preferences()
	if prefs.WarnAtPercent != 80 || prefs.DangerAtPercent != 95 {
		t.Errorf("thresholds = %g/%g", prefs.WarnAtPercent, prefs.DangerAtPercent)
	}
	if prefs.BudgetUSD != 20 || prefs.IncludedOverride != 300 {
		t.Errorf("prefs = %+v", prefs)
	}
	if !prefs.NotificationsEnabled {
		t.Error("NotificationsEnabled = false")
	}
}
