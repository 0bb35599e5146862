package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/imyu7/calendar-sync/internal/domain"
)

const validYAML = `
accounts:
  work:
    email: work@example.com
    credentials_file: /etc/calendar-sync/work.json
  personal:
    email: personal@example.com
    calendar_id: family@group.calendar.google.com

sync_rules:
  - source: work
    destination: personal
    new_summary: Busy
  - name: private-to-work
    source: personal
    destination: work
    preserve_details: true
    window_days: 7
    enabled: false
`

func TestLoadFromString_Valid(t *testing.T) {
	cfg, err := LoadFromString(validYAML)
	if err != nil {
		t.Fatalf("LoadFromString failed: %v", err)
	}

	if len(cfg.Accounts) != 2 {
		t.Errorf("Expected 2 accounts, got %d", len(cfg.Accounts))
	}
	work, err := cfg.GetAccount("work")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if work.Key != "work" {
		t.Errorf("Expected map key propagated onto account, got %q", work.Key)
	}
	if work.Calendar() != "primary" {
		t.Errorf("Expected primary calendar default, got %q", work.Calendar())
	}

	personal, _ := cfg.GetAccount("personal")
	if personal.Calendar() != "family@group.calendar.google.com" {
		t.Errorf("Expected explicit calendar id, got %q", personal.Calendar())
	}
}

func TestLoadFromString_RuleDefaults(t *testing.T) {
	cfg, err := LoadFromString(validYAML)
	if err != nil {
		t.Fatalf("LoadFromString failed: %v", err)
	}

	if len(cfg.Rules) != 2 {
		t.Fatalf("Expected 2 rules, got %d", len(cfg.Rules))
	}

	first := cfg.Rules[0]
	if first.Name != "work->personal#0" {
		t.Errorf("Expected derived rule name, got %q", first.Name)
	}
	if !first.Enabled {
		t.Error("Expected rules enabled by default")
	}
	if first.NewSummary != "Busy" {
		t.Errorf("Expected summary override, got %q", first.NewSummary)
	}

	second := cfg.Rules[1]
	if second.Name != "private-to-work" {
		t.Errorf("Expected declared name kept, got %q", second.Name)
	}
	if second.Enabled {
		t.Error("Expected explicit enabled: false honored")
	}
	if !second.PreserveDetails {
		t.Error("Expected preserve_details true")
	}

	enabled := cfg.GetEnabledRules()
	if len(enabled) != 1 || enabled[0].Name != "work->personal#0" {
		t.Errorf("Expected only the first rule enabled, got %+v", enabled)
	}
}

func TestLoadFromString_GlobalDefaults(t *testing.T) {
	cfg, err := LoadFromString(validYAML)
	if err != nil {
		t.Fatalf("LoadFromString failed: %v", err)
	}

	if cfg.WindowDays != DefaultWindowDays {
		t.Errorf("Expected default window %d, got %d", DefaultWindowDays, cfg.WindowDays)
	}
	if cfg.Parallelism != DefaultParallelism {
		t.Errorf("Expected default parallelism %d, got %d", DefaultParallelism, cfg.Parallelism)
	}
	if cfg.DataDir == "" || cfg.TokensDir == "" {
		t.Error("Expected data and tokens directories defaulted")
	}

	if cfg.RuleWindow(cfg.Rules[0]) != DefaultWindowDays {
		t.Errorf("Expected global window for first rule, got %d", cfg.RuleWindow(cfg.Rules[0]))
	}
	if cfg.RuleWindow(cfg.Rules[1]) != 7 {
		t.Errorf("Expected per-rule window override 7, got %d", cfg.RuleWindow(cfg.Rules[1]))
	}

	if cfg.LookBackDays != DefaultLookBackDays {
		t.Errorf("Expected default look-back %d, got %d", DefaultLookBackDays, cfg.LookBackDays)
	}
	if cfg.RuleLookBack(cfg.Rules[0]) != DefaultLookBackDays {
		t.Errorf("Expected global look-back for first rule, got %d", cfg.RuleLookBack(cfg.Rules[0]))
	}
}

func TestLoadFromString_LookBack(t *testing.T) {
	base := `
accounts:
  work:
    email: work@example.com
  personal:
    email: personal@example.com
sync_rules:
  - source: work
    destination: personal
    look_back_days: 3
`

	cfg, err := LoadFromString(base + "look_back_days: 2\n")
	if err != nil {
		t.Fatalf("LoadFromString failed: %v", err)
	}
	if cfg.LookBackDays != 2 {
		t.Errorf("Expected look-back 2, got %d", cfg.LookBackDays)
	}
	if cfg.RuleLookBack(cfg.Rules[0]) != 3 {
		t.Errorf("Expected per-rule look-back override 3, got %d", cfg.RuleLookBack(cfg.Rules[0]))
	}

	// Explicit zero means forward-only fetch, not the default
	cfg, err = LoadFromString(base + "look_back_days: 0\n")
	if err != nil {
		t.Fatalf("LoadFromString failed: %v", err)
	}
	if cfg.LookBackDays != 0 {
		t.Errorf("Expected explicit zero look-back honored, got %d", cfg.LookBackDays)
	}
}

func TestLoadFromString_SchedulerAndLog(t *testing.T) {
	cfg, err := LoadFromString(validYAML + `
window_days: 14
parallelism: 3

log:
  level: debug
  format: json
  file: /var/log/calendar-sync.log
  max_size_mb: 20

scheduler:
  interval: 15m
  cron: "*/10 * * * *"
`)
	if err != nil {
		t.Fatalf("LoadFromString failed: %v", err)
	}

	if cfg.WindowDays != 14 || cfg.Parallelism != 3 {
		t.Errorf("Expected overrides applied, got window=%d parallelism=%d", cfg.WindowDays, cfg.Parallelism)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Expected log settings, got %+v", cfg.Log)
	}
	if cfg.Log.MaxSizeMB != 20 {
		t.Errorf("Expected max_size_mb 20, got %d", cfg.Log.MaxSizeMB)
	}
	if cfg.Scheduler.Interval != 15*time.Minute {
		t.Errorf("Expected 15m interval, got %v", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.Cron != "*/10 * * * *" {
		t.Errorf("Expected cron expression kept, got %q", cfg.Scheduler.Cron)
	}
}

func TestLoadFromString_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no accounts", `
sync_rules:
  - source: a
    destination: b
`},
		{"no rules", `
accounts:
  work:
    email: work@example.com
`},
		{"unknown source account", `
accounts:
  work:
    email: work@example.com
sync_rules:
  - source: nope
    destination: work
`},
		{"unknown destination account", `
accounts:
  work:
    email: work@example.com
sync_rules:
  - source: work
    destination: nope
`},
		{"self sync", `
accounts:
  work:
    email: work@example.com
sync_rules:
  - source: work
    destination: work
`},
		{"duplicate rule name", `
accounts:
  work:
    email: work@example.com
  home:
    email: home@example.com
sync_rules:
  - name: same
    source: work
    destination: home
  - name: same
    source: home
    destination: work
`},
		{"bad auth type", `
accounts:
  work:
    email: work@example.com
    auth_type: kerberos
  home:
    email: home@example.com
sync_rules:
  - source: work
    destination: home
`},
		{"negative window", `
accounts:
  work:
    email: work@example.com
  home:
    email: home@example.com
window_days: -1
sync_rules:
  - source: work
    destination: home
`},
		{"negative look-back", `
accounts:
  work:
    email: work@example.com
  home:
    email: home@example.com
look_back_days: -1
sync_rules:
  - source: work
    destination: home
`},
		{"malformed yaml", `accounts: [`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadFromString(tc.content); err == nil {
				t.Errorf("Expected error for %s", tc.name)
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Rules) != 2 {
		t.Errorf("Expected 2 rules, got %d", len(cfg.Rules))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestLoad_JSONConfig(t *testing.T) {
	content := `{
  "accounts": {
    "work": {"email": "work@example.com"},
    "home": {"email": "home@example.com"}
  },
  "sync_rules": [
    {"source": "work", "destination": "home"}
  ]
}`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed for json config: %v", err)
	}
	if cfg.Rules[0].Name != "work->home#0" {
		t.Errorf("Expected derived rule name, got %q", cfg.Rules[0].Name)
	}
}

func TestGetRule(t *testing.T) {
	cfg, err := LoadFromString(validYAML)
	if err != nil {
		t.Fatalf("LoadFromString failed: %v", err)
	}

	rule, err := cfg.GetRule("private-to-work")
	if err != nil {
		t.Fatalf("GetRule failed: %v", err)
	}
	if rule.Source != "personal" {
		t.Errorf("Expected personal source, got %s", rule.Source)
	}

	if _, err := cfg.GetRule("nope"); !errors.Is(err, domain.ErrInvalidRule) {
		t.Errorf("Expected ErrInvalidRule, got %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("No home directory: %v", err)
	}

	if got := ExpandPath("~/tokens"); got != filepath.Join(home, "tokens") {
		t.Errorf("Expected home-relative expansion, got %q", got)
	}
	if got := ExpandPath("~"); got != home {
		t.Errorf("Expected bare tilde to expand to home, got %q", got)
	}

	t.Setenv("CALSYNC_TEST_DIR", "/opt/data")
	if got := ExpandPath("$CALSYNC_TEST_DIR/state"); got != "/opt/data/state" {
		t.Errorf("Expected env expansion, got %q", got)
	}
}
