package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/imyu7/calendar-sync/internal/domain"
)

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{
		".",
		"./configs",
	}

	// Add user config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "calendar-sync"))
	}

	// Add home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "calendar-sync"))
		paths = append(paths, filepath.Join(homeDir, ".calendar-sync"))
	}

	return paths
}

// Load reads and parses a configuration file.
// If path is empty, searches default locations for config.yaml or
// config.json.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		// Use specific file
		v.SetConfigFile(path)
	} else {
		// Search default paths
		v.SetConfigName("config")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, domain.ErrConfigNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return finish(v)
}

// LoadFromString parses configuration from a YAML or JSON string
func LoadFromString(content string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml") // yaml parser also accepts json

	if err := v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return finish(v)
}

// finish unmarshals, applies defaults and validates
func finish(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	// Propagate map keys onto accounts so rules can reference them
	for key, a := range cfg.Accounts {
		if a.Key == "" {
			a.Key = key
			cfg.Accounts[key] = a
		}
	}

	// Set defaults for rules
	for i := range cfg.Rules {
		r := &cfg.Rules[i]
		if r.Name == "" {
			r.Name = domain.DefaultRuleName(r.Source, r.Destination, i)
		}
		// Default to enabled if not specified
		if !v.IsSet(fmt.Sprintf("sync_rules.%d.enabled", i)) {
			r.Enabled = true
		}
	}

	if cfg.WindowDays == 0 {
		cfg.WindowDays = DefaultWindowDays
	}
	// Zero is a meaningful look-back (forward-only fetch), so the
	// default applies only when the key is absent
	if !v.IsSet("look_back_days") {
		cfg.LookBackDays = DefaultLookBackDays
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.TokensDir == "" {
		cfg.TokensDir = DefaultTokensDir
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = DefaultParallelism
	}
	cfg.DataDir = ExpandPath(cfg.DataDir)
	cfg.TokensDir = ExpandPath(cfg.TokensDir)

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
