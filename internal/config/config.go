// Package config loads and validates the calendar-sync configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/imyu7/calendar-sync/internal/domain"
)

// Defaults applied when the configuration omits a value
const (
	DefaultWindowDays   = 21
	DefaultLookBackDays = 1
	DefaultDataDir      = "./data"
	DefaultTokensDir    = "./tokens"
	DefaultParallelism  = 1
)

// Config represents the complete configuration for calendar-sync
type Config struct {
	// Accounts define the calendar accounts rules refer to, keyed by
	// account key
	Accounts map[string]domain.Account `mapstructure:"accounts"`

	// Rules define synchronization relationships
	Rules []domain.SyncRule `mapstructure:"sync_rules"`

	// WindowDays is the global look-ahead window; rules may override it
	WindowDays int `mapstructure:"window_days"`

	// LookBackDays extends the fetch window into the past so recently
	// passed events stay visible to deletion detection; rules may
	// override it
	LookBackDays int `mapstructure:"look_back_days"`

	// DataDir holds the mapping database and run history
	DataDir string `mapstructure:"data_dir"`

	// TokensDir holds cached OAuth tokens
	TokensDir string `mapstructure:"tokens_dir"`

	// Parallelism bounds how many destination accounts sync concurrently;
	// 1 runs every rule sequentially
	Parallelism int `mapstructure:"parallelism"`

	// Log configures logging output
	Log LogConfig `mapstructure:"log"`

	// Scheduler configures periodic execution in daemon mode
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig configures log level, format and optional file output
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// SchedulerConfig configures the daemon sync cadence. Cron takes
// precedence over Interval when both are set.
type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Cron     string        `mapstructure:"cron"`
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("%w: no accounts configured", domain.ErrConfigInvalid)
	}

	for key, a := range c.Accounts {
		if a.Key != "" && a.Key != key {
			return fmt.Errorf("%w: account %s declares mismatched key %s", domain.ErrConfigInvalid, key, a.Key)
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("account %s: %w", key, err)
		}
	}

	if len(c.Rules) == 0 {
		return fmt.Errorf("%w: no sync rules configured", domain.ErrConfigInvalid)
	}

	ruleNames := make(map[string]bool)
	for _, r := range c.Rules {
		if r.Name == "" {
			return fmt.Errorf("%w: rule has no name", domain.ErrConfigInvalid)
		}
		if ruleNames[r.Name] {
			return fmt.Errorf("%w: duplicate rule name: %s", domain.ErrConfigInvalid, r.Name)
		}
		if _, ok := c.Accounts[r.Source]; !ok {
			return fmt.Errorf("%w: rule %s references unknown source account: %s",
				domain.ErrAccountNotFound, r.Name, r.Source)
		}
		if _, ok := c.Accounts[r.Destination]; !ok {
			return fmt.Errorf("%w: rule %s references unknown destination account: %s",
				domain.ErrAccountNotFound, r.Name, r.Destination)
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %s: %w", r.Name, err)
		}
		ruleNames[r.Name] = true
	}

	if c.WindowDays < 0 {
		return fmt.Errorf("%w: window_days cannot be negative", domain.ErrConfigInvalid)
	}
	if c.LookBackDays < 0 {
		return fmt.Errorf("%w: look_back_days cannot be negative", domain.ErrConfigInvalid)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism must be at least 1", domain.ErrConfigInvalid)
	}

	return nil
}

// GetAccount returns an account by key
func (c *Config) GetAccount(key string) (*domain.Account, error) {
	a, ok := c.Accounts[key]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

// GetRule returns a rule by name
func (c *Config) GetRule(name string) (*domain.SyncRule, error) {
	for i := range c.Rules {
		if c.Rules[i].Name == name {
			return &c.Rules[i], nil
		}
	}
	return nil, domain.ErrInvalidRule
}

// GetEnabledRules returns all enabled rules in declaration order
func (c *Config) GetEnabledRules() []domain.SyncRule {
	var rules []domain.SyncRule
	for _, r := range c.Rules {
		if r.Enabled {
			rules = append(rules, r)
		}
	}
	return rules
}

// RuleWindow returns the look-ahead window for a rule, honoring the
// per-rule override
func (c *Config) RuleWindow(r domain.SyncRule) int {
	if r.WindowDays > 0 {
		return r.WindowDays
	}
	return c.WindowDays
}

// RuleLookBack returns the look-back horizon for a rule, honoring the
// per-rule override
func (c *Config) RuleLookBack(r domain.SyncRule) int {
	if r.LookBackDays > 0 {
		return r.LookBackDays
	}
	return c.LookBackDays
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	// Expand ~ to home directory
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	// Expand environment variables
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
