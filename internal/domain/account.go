package domain

// AuthType identifies how an account authenticates against the provider
type AuthType string

const (
	// AuthOAuth uses the interactive authorization-code flow with a cached token
	AuthOAuth AuthType = "oauth"

	// AuthServiceAccount uses a service-account key file (non-interactive)
	AuthServiceAccount AuthType = "service_account"
)

// IsValid checks if the auth type is a known value
func (t AuthType) IsValid() bool {
	switch t {
	case AuthOAuth, AuthServiceAccount:
		return true
	}
	return false
}

// Account is one independently-authenticated calendar account.
// Accounts are immutable for the duration of a run and owned by configuration.
type Account struct {
	// Key is the unique identifier rules refer to
	Key string `mapstructure:"key"`

	// Email of the account, used in prompts and diagnostics
	Email string `mapstructure:"email"`

	// AuthType selects the credential flow (defaults to oauth)
	AuthType AuthType `mapstructure:"auth_type"`

	// CredentialsFile is the OAuth client secret or service-account key file
	CredentialsFile string `mapstructure:"credentials_file"`

	// TokenFile overrides the default token cache location (oauth only)
	TokenFile string `mapstructure:"token_file"`

	// CalendarID is the calendar operated on; empty means "primary"
	CalendarID string `mapstructure:"calendar_id"`
}

// Calendar returns the calendar id, defaulting to the primary calendar
func (a Account) Calendar() string {
	if a.CalendarID == "" {
		return "primary"
	}
	return a.CalendarID
}

// Validate checks if the account is properly configured
func (a Account) Validate() error {
	if a.Key == "" {
		return ErrInvalidAccount
	}
	if a.Email == "" {
		return ErrInvalidAccount
	}
	if a.AuthType != "" && !a.AuthType.IsValid() {
		return ErrInvalidAccount
	}
	return nil
}
