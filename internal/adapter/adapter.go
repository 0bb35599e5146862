package adapter

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/imyu7/calendar-sync/internal/domain"
)

// Window is the half-open fetch interval [Start, End) for event listing.
// The differencer detects deletions by absence from the fetch, so a
// rule's window must cover every previously mapped, still-relevant event.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether an instant falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Provider is the calendar backend contract consumed by the engine.
// All implementations must return domain-level errors for consistent
// handling: domain.ErrNotFound for missing events, domain.ErrRateLimited
// and domain.ErrUnavailable for retryable conditions.
type Provider interface {
	// ListEvents returns normalized events overlapping the window,
	// with recurring series expanded to concrete instances. Paginated
	// responses are merged into one slice.
	ListEvents(ctx context.Context, calendarID string, window Window) ([]domain.Event, error)

	// InsertEvent creates an event and returns its provider id
	InsertEvent(ctx context.Context, calendarID string, ev domain.Event) (string, error)

	// UpdateEvent overwrites an existing event by id
	UpdateEvent(ctx context.Context, calendarID, eventID string, ev domain.Event) error

	// DeleteEvent removes an event by id. Deleting an event that no
	// longer exists returns domain.ErrNotFound.
	DeleteEvent(ctx context.Context, calendarID, eventID string) error

	// Close releases any resources held by the provider
	Close() error
}

// CredentialProvider yields a per-account token source, injected into
// provider construction instead of read from ambient process state.
type CredentialProvider interface {
	// TokenSource returns credentials for the account, refreshing and
	// re-persisting cached tokens as needed. A failure here is an
	// account-level domain.ErrAuthFailure.
	TokenSource(ctx context.Context, account domain.Account) (oauth2.TokenSource, error)
}

// Factory creates providers for accounts
type Factory interface {
	// Provider returns a calendar provider bound to the account
	Provider(ctx context.Context, account domain.Account) (Provider, error)
}
