package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/imyu7/calendar-sync/internal/adapter"
	"github.com/imyu7/calendar-sync/internal/domain"
)

// TokenCache persists OAuth tokens between runs
type TokenCache interface {
	Load(accountKey string) (*oauth2.Token, error)
	Save(accountKey string, token *oauth2.Token) error
}

// FileTokenCache stores one token file per account under a directory
type FileTokenCache struct {
	dir string
}

// NewFileTokenCache creates a cache rooted at dir
func NewFileTokenCache(dir string) *FileTokenCache {
	return &FileTokenCache{dir: dir}
}

func (c *FileTokenCache) path(accountKey string) string {
	return filepath.Join(c.dir, fmt.Sprintf("token_%s.json", accountKey))
}

// Load reads a cached token, returning ErrAuthFailure when absent
func (c *FileTokenCache) Load(accountKey string) (*oauth2.Token, error) {
	data, err := os.ReadFile(c.path(accountKey))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no cached token for account %s", domain.ErrAuthFailure, accountKey)
		}
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%w: corrupt token for account %s", domain.ErrAuthFailure, accountKey)
	}
	return &token, nil
}

// Save writes the token atomically via a temp file rename
func (c *FileTokenCache) Save(accountKey string, token *oauth2.Token) error {
	if err := os.MkdirAll(c.dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	target := c.path(accountKey)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Authenticator derives token sources for configured accounts. OAuth
// accounts require a prior interactive Authorize; service accounts
// mint tokens directly from their key file.
type Authenticator struct {
	cache TokenCache
}

// NewAuthenticator creates an authenticator backed by a token cache
func NewAuthenticator(cache TokenCache) *Authenticator {
	return &Authenticator{cache: cache}
}

// TokenSource returns a self-refreshing token source for the account.
// Refreshed OAuth tokens are written back to the cache so the refresh
// survives the process.
func (a *Authenticator) TokenSource(ctx context.Context, account domain.Account) (oauth2.TokenSource, error) {
	switch account.AuthType {
	case domain.AuthServiceAccount:
		return a.serviceAccountSource(ctx, account)
	case domain.AuthOAuth, "":
		return a.oauthSource(ctx, account)
	default:
		return nil, fmt.Errorf("%w: unknown auth type %q", domain.ErrInvalidAccount, account.AuthType)
	}
}

func (a *Authenticator) oauthSource(ctx context.Context, account domain.Account) (oauth2.TokenSource, error) {
	config, err := a.oauthConfig(account)
	if err != nil {
		return nil, err
	}

	token, err := a.loadToken(account)
	if err != nil {
		return nil, err
	}

	base := config.TokenSource(ctx, token)
	return oauth2.ReuseTokenSource(token, &savingTokenSource{
		base: base,
		save: func(t *oauth2.Token) error { return a.saveToken(account, t) },
	}), nil
}

// loadToken honors a per-account token_file override before falling
// back to the shared cache
func (a *Authenticator) loadToken(account domain.Account) (*oauth2.Token, error) {
	if account.TokenFile == "" {
		return a.cache.Load(account.Key)
	}

	data, err := os.ReadFile(account.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: no cached token for account %s", domain.ErrAuthFailure, account.Key)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%w: corrupt token for account %s", domain.ErrAuthFailure, account.Key)
	}
	return &token, nil
}

func (a *Authenticator) saveToken(account domain.Account, token *oauth2.Token) error {
	if account.TokenFile == "" {
		return a.cache.Save(account.Key, token)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	tmp := account.TokenFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	if err := os.Rename(tmp, account.TokenFile); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (a *Authenticator) serviceAccountSource(ctx context.Context, account domain.Account) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(account.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read service account key: %v", domain.ErrAuthFailure, err)
	}

	config, err := google.JWTConfigFromJSON(data, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid service account key: %v", domain.ErrAuthFailure, err)
	}

	// Domain-wide delegation: act as the account's own identity
	if account.Email != "" {
		config.Subject = account.Email
	}
	return config.TokenSource(ctx), nil
}

// Authorize runs the interactive installed-app flow and caches the
// resulting token. Only OAuth accounts need this step.
func (a *Authenticator) Authorize(ctx context.Context, account domain.Account) error {
	if account.AuthType == domain.AuthServiceAccount {
		return nil
	}

	config, err := a.oauthConfig(account)
	if err != nil {
		return err
	}

	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following URL in your browser and authorize access:\n%s\n\n", authURL)
	fmt.Print("Enter the authorization code: ")

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: code exchange failed: %v", domain.ErrAuthFailure, err)
	}

	return a.saveToken(account, token)
}

func (a *Authenticator) oauthConfig(account domain.Account) (*oauth2.Config, error) {
	data, err := os.ReadFile(account.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read client credentials: %v", domain.ErrAuthFailure, err)
	}

	config, err := google.ConfigFromJSON(data, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid client credentials: %v", domain.ErrAuthFailure, err)
	}
	return config, nil
}

// savingTokenSource persists tokens whenever the underlying source
// issues a new one
type savingTokenSource struct {
	base oauth2.TokenSource
	save func(*oauth2.Token) error
	last *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthFailure, err)
	}

	if s.last == nil || s.last.AccessToken != token.AccessToken {
		s.last = token
		// Best effort: a lost save just forces a refresh next run
		_ = s.save(token)
	}
	return token, nil
}

// Factory builds authenticated providers per account
type Factory struct {
	creds adapter.CredentialProvider
}

// NewFactory creates a provider factory using the given credentials
func NewFactory(creds adapter.CredentialProvider) *Factory {
	return &Factory{creds: creds}
}

// Provider returns an authenticated provider for the account
func (f *Factory) Provider(ctx context.Context, account domain.Account) (adapter.Provider, error) {
	return New(ctx, account, f.creds)
}

var (
	_ adapter.CredentialProvider = (*Authenticator)(nil)
	_ adapter.Factory            = (*Factory)(nil)
	_ TokenCache                 = (*FileTokenCache)(nil)
)
