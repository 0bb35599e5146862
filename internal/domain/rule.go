package domain

import "fmt"

// SyncRule defines a directional synchronization relationship between
// two accounts: events observed on the source calendar are mirrored to
// the destination calendar.
type SyncRule struct {
	// Name is an optional stable identifier. When empty the loader
	// derives one from source, destination and declaration index so
	// repeated pairs stay individually addressable.
	Name string `mapstructure:"name"`

	// Source account key
	Source string `mapstructure:"source"`

	// Destination account key
	Destination string `mapstructure:"destination"`

	// NewSummary, when set, replaces the source summary verbatim on
	// every destination event created or updated under this rule
	NewSummary string `mapstructure:"new_summary"`

	// PreserveDetails copies description and location to the destination;
	// when false they are stripped (summary and timing always carry over)
	PreserveDetails bool `mapstructure:"preserve_details"`

	// WindowDays overrides the global look-ahead window for this rule
	WindowDays int `mapstructure:"window_days"`

	// LookBackDays overrides the global look-back horizon for this rule
	LookBackDays int `mapstructure:"look_back_days"`

	// Enabled allows disabling rules without removing them
	Enabled bool `mapstructure:"enabled"`
}

// ID returns the stable rule identifier
func (r SyncRule) ID() string {
	return r.Name
}

// DefaultRuleName derives a stable identifier for a rule declared at the
// given position. Repeated (source, destination) pairs get distinct names.
func DefaultRuleName(source, destination string, index int) string {
	return fmt.Sprintf("%s->%s#%d", source, destination, index)
}

// Validate checks if the rule is properly configured
func (r SyncRule) Validate() error {
	if r.Source == "" || r.Destination == "" {
		return ErrInvalidRule
	}
	if r.Source == r.Destination {
		return ErrInvalidRule // source and destination cannot be the same
	}
	if r.WindowDays < 0 {
		return ErrInvalidRule
	}
	if r.LookBackDays < 0 {
		return ErrInvalidRule
	}
	return nil
}
