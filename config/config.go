// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quotawatch/quotawatch/domain/plan"
	"github.com/quotawatch/quotawatch/domain/usage"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	GitHub        GitHubConfig        `yaml:"github"`
	Refresh       RefreshConfig       `yaml:"refresh"`
	Thresholds    ThresholdConfig     `yaml:"thresholds"`
	Notifications NotificationConfig  `yaml:"notifications"`
	Budget        BudgetConfig        `yaml:"budget"`
	Quota         QuotaConfig         `yaml:"quota"`
	Plans         []PlanConfig        `yaml:"plans"`
	Credentials   CredentialConfig    `yaml:"credentials"`
	Database      DatabaseConfig      `yaml:"database"`
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// GitHubConfig configures the billing usage source.
type GitHubConfig struct {
	APIURL       string        `yaml:"api_url"`
	Product      string        `yaml:"product"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// RefreshConfig configures the scheduler timing.
type RefreshConfig struct {
	Interval       time.Duration `yaml:"interval"`
	ManualCooldown time.Duration `yaml:"manual_cooldown"`
}

// ThresholdConfig configures the warn/danger thresholds. Zero disables a
// threshold.
type ThresholdConfig struct {
	WarnPercent   float64       `yaml:"warn_percent"`
	DangerPercent float64       `yaml:"danger_percent"`
	Cooldown      time.Duration `yaml:"cooldown"`
}

// NotificationConfig configures notification delivery.
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled"`
	IdentifierPrefix string `yaml:"identifier_prefix"`
	Desktop          bool   `yaml:"desktop"`
	DesktopCommand   string `yaml:"desktop_command,omitempty"`
	WebhookURL       string `yaml:"webhook_url,omitempty"`
}

// BudgetConfig configures the dollar budget. Source "api" is accepted for
// forward compatibility but currently behaves identically to "manual":
// there is no official budget endpoint to fetch from yet.
type BudgetConfig struct {
	Source    string  `yaml:"source"` // "manual" or "api"
	AmountUSD float64 `yaml:"amount_usd"`
}

// QuotaConfig configures the included quota resolution.
type QuotaConfig struct {
	IncludedOverride int64  `yaml:"included_override"`
	SelectedPlan     string `yaml:"selected_plan,omitempty"`
}

// PlanConfig configures one subscription plan in the catalog.
type PlanConfig struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	IncludedPerMonth int64  `yaml:"included_per_month"`
}

// CredentialConfig configures where the bearer token is read from.
// Tokens are never written by this process.
type CredentialConfig struct {
	TokenFile string `yaml:"token_file,omitempty"`
	UseGHCLI  bool   `yaml:"use_gh_cli"`
}

// DatabaseConfig configures the state database.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ServerConfig configures the optional status HTTP server.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads from path when the file exists, otherwise returns a
// default configuration shaped by environment variables only.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	var cfg Config
	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Preferences returns the immutable snapshot injected into each
// computation cycle.
func (c *Config) Preferences() usage.Preferences {
	return usage.Preferences{
		Product:              c.GitHub.Product,
		RefreshInterval:      c.Refresh.Interval,
		WarnAtPercent:        c.Thresholds.WarnPercent,
		DangerAtPercent:      c.Thresholds.DangerPercent,
		NotificationsEnabled: c.Notifications.Enabled,
		BudgetUSD:            c.Budget.AmountUSD,
		IncludedOverride:     c.Quota.IncludedOverride,
		SelectedPlan:         c.Quota.SelectedPlan,
	}
}

// Catalog returns the configured plan catalog.
func (c *Config) Catalog() plan.Catalog {
	out := make(plan.Catalog, 0, len(c.Plans))
	for _, p := range c.Plans {
		out = append(out, plan.Plan{ID: p.ID, Name: p.Name, IncludedPerMonth: p.IncludedPerMonth})
	}
	return out
}

// applyEnvOverrides applies QUOTAWATCH_* environment variables.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QUOTAWATCH_API_URL"); v != "" {
		cfg.GitHub.APIURL = v
	}
	if v := os.Getenv("QUOTAWATCH_PRODUCT"); v != "" {
		cfg.GitHub.Product = v
	}
	if v := os.Getenv("QUOTAWATCH_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Refresh.Interval = d
		}
	}
	if v := os.Getenv("QUOTAWATCH_WARN_PERCENT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.WarnPercent = f
		}
	}
	if v := os.Getenv("QUOTAWATCH_DANGER_PERCENT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.DangerPercent = f
		}
	}
	if v := os.Getenv("QUOTAWATCH_BUDGET_USD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Budget.AmountUSD = f
		}
	}
	if v := os.Getenv("QUOTAWATCH_NOTIFICATIONS"); v != "" {
		cfg.Notifications.Enabled = parseBool(v)
	}
	if v := os.Getenv("QUOTAWATCH_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("QUOTAWATCH_SERVER_ENABLED"); v != "" {
		cfg.Server.Enabled = parseBool(v)
	}
	if v := os.Getenv("QUOTAWATCH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("QUOTAWATCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("QUOTAWATCH_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.GitHub.APIURL == "" {
		cfg.GitHub.APIURL = "https://api.github.com"
	}
	if cfg.GitHub.Product == "" {
		cfg.GitHub.Product = "copilot"
	}
	if cfg.GitHub.FetchTimeout == 0 {
		cfg.GitHub.FetchTimeout = 30 * time.Second
	}

	if cfg.Refresh.Interval == 0 {
		cfg.Refresh.Interval = 5 * time.Minute
	}
	if cfg.Refresh.ManualCooldown == 0 {
		cfg.Refresh.ManualCooldown = 30 * time.Second
	}

	if cfg.Thresholds.Cooldown == 0 {
		cfg.Thresholds.Cooldown = 6 * time.Hour
	}

	if cfg.Notifications.IdentifierPrefix == "" {
		cfg.Notifications.IdentifierPrefix = "io.quotawatch"
	}

	if cfg.Budget.Source == "" {
		cfg.Budget.Source = "manual"
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "quotawatch.db"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9465
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Refresh.Interval < time.Minute {
		return fmt.Errorf("refresh.interval must be at least 1m, got %s", cfg.Refresh.Interval)
	}

	for name, v := range map[string]float64{
		"thresholds.warn_percent":   cfg.Thresholds.WarnPercent,
		"thresholds.danger_percent": cfg.Thresholds.DangerPercent,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s must be in [0,100], got %g", name, v)
		}
	}

	if cfg.Budget.AmountUSD < 0 {
		return fmt.Errorf("budget.amount_usd must not be negative, got %g", cfg.Budget.AmountUSD)
	}
	if cfg.Budget.Source != "manual" && cfg.Budget.Source != "api" {
		return fmt.Errorf("budget.source must be 'manual' or 'api', got %q", cfg.Budget.Source)
	}

	if cfg.Quota.IncludedOverride < 0 {
		return fmt.Errorf("quota.included_override must not be negative, got %d", cfg.Quota.IncludedOverride)
	}

	for i, p := range cfg.Plans {
		if p.ID == "" {
			return fmt.Errorf("plans[%d].id is required", i)
		}
	}
	if cfg.Quota.SelectedPlan != "" {
		found := false
		for _, p := range cfg.Plans {
			if strings.EqualFold(p.ID, cfg.Quota.SelectedPlan) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("quota.selected_plan %q is not in plans", cfg.Quota.SelectedPlan)
		}
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid port, got %d", cfg.Server.Port)
	}

	return nil
}
