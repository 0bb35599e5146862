package domain

import "errors"

// Provider errors
var (
	// ErrNotFound indicates the requested event does not exist
	ErrNotFound = errors.New("event not found")

	// ErrPermissionDenied indicates insufficient calendar permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRateLimited indicates the provider refused the call for quota
	// reasons; the operation is retryable with backoff
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates a transient provider failure (5xx,
	// network timeout); retryable
	ErrUnavailable = errors.New("provider unavailable")

	// ErrAuthFailure indicates an account's credentials could not be
	// used; fatal for every rule touching the account this run
	ErrAuthFailure = errors.New("authentication failure")
)

// Sync errors
var (
	// ErrInvalidEvent indicates a malformed source record (missing a
	// usable start time); skipped with a warning, never retried
	ErrInvalidEvent = errors.New("invalid event")

	// ErrInvalidRule indicates a malformed sync rule
	ErrInvalidRule = errors.New("invalid sync rule")

	// ErrTombstoned indicates a write against a mapping entry whose
	// deletion was already propagated
	ErrTombstoned = errors.New("mapping is tombstoned")

	// ErrSyncInProgress indicates another sync pass is already running
	ErrSyncInProgress = errors.New("sync already in progress")
)

// Config errors
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")

	// ErrInvalidAccount indicates a malformed account entry
	ErrInvalidAccount = errors.New("invalid account")

	// ErrAccountNotFound indicates a referenced account doesn't exist
	ErrAccountNotFound = errors.New("account not found")
)

// Retryable reports whether an error is a transient provider condition
// worth retrying with backoff
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}
