// Package gcal implements the calendar provider contract on top of the
// Google Calendar API.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/imyu7/calendar-sync/internal/adapter"
	"github.com/imyu7/calendar-sync/internal/domain"
)

const (
	// PageSize is the number of events to fetch per request
	PageSize = 250

	// allDayFormat is the date-only format of all-day event boundaries
	allDayFormat = "2006-01-02"
)

// Provider implements adapter.Provider for Google Calendar
type Provider struct {
	service *calendar.Service
}

// New creates a provider from an authenticated token source
func New(ctx context.Context, account domain.Account, creds adapter.CredentialProvider) (*Provider, error) {
	ts, err := creds.TokenSource(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", account.Key, err)
	}

	service, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &Provider{service: service}, nil
}

// NewWithService creates a provider around an existing service
func NewWithService(service *calendar.Service) *Provider {
	return &Provider{service: service}
}

// ListEvents returns normalized events overlapping the window. Recurring
// series are expanded server-side into concrete instances. Records
// without a usable start time are dropped here; callers see only
// canonical events.
func (p *Provider) ListEvents(ctx context.Context, calendarID string, window adapter.Window) ([]domain.Event, error) {
	var result []domain.Event
	pageToken := ""

	for {
		call := p.service.Events.List(calendarID).
			TimeMin(window.Start.Format(time.RFC3339)).
			TimeMax(window.End.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(PageSize)

		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		events, err := call.Context(ctx).Do()
		if err != nil {
			return nil, mapError(err)
		}

		for _, item := range events.Items {
			ev, err := Normalize(item, calendarID)
			if err != nil {
				// Malformed records are skipped, never retried
				continue
			}
			result = append(result, ev)
		}

		pageToken = events.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return result, nil
}

// InsertEvent creates an event and returns its provider id
func (p *Provider) InsertEvent(ctx context.Context, calendarID string, ev domain.Event) (string, error) {
	created, err := p.service.Events.Insert(calendarID, toGoogleEvent(ev)).Context(ctx).Do()
	if err != nil {
		return "", mapError(err)
	}
	return created.Id, nil
}

// UpdateEvent overwrites an existing event by id
func (p *Provider) UpdateEvent(ctx context.Context, calendarID, eventID string, ev domain.Event) error {
	_, err := p.service.Events.Update(calendarID, eventID, toGoogleEvent(ev)).Context(ctx).Do()
	return mapError(err)
}

// DeleteEvent removes an event by id
func (p *Provider) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	err := p.service.Events.Delete(calendarID, eventID).Context(ctx).Do()
	return mapError(err)
}

// Close releases any resources
func (p *Provider) Close() error {
	return nil
}

// toGoogleEvent converts a destination payload into the wire format.
// The payload carries no provider id; reminders fall back to the
// destination calendar's defaults.
func toGoogleEvent(ev domain.Event) *calendar.Event {
	out := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Reminders: &calendar.EventReminders{
			UseDefault:      true,
			ForceSendFields: []string{"UseDefault"},
		},
	}

	if ev.AllDay {
		out.Start = &calendar.EventDateTime{Date: ev.Start.Format(allDayFormat)}
		out.End = &calendar.EventDateTime{Date: ev.End.Format(allDayFormat)}
	} else {
		out.Start = &calendar.EventDateTime{DateTime: ev.Start.Format(time.RFC3339)}
		out.End = &calendar.EventDateTime{DateTime: ev.End.Format(time.RFC3339)}
	}

	return out
}

// mapError converts Google API errors to domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 404 || apiErr.Code == 410:
			return domain.ErrNotFound
		case apiErr.Code == 429:
			return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		case apiErr.Code == 401:
			return fmt.Errorf("%w: %v", domain.ErrAuthFailure, err)
		case apiErr.Code == 403:
			if quotaReason(apiErr) {
				return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
			}
			return domain.ErrPermissionDenied
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
		}
		return err
	}

	// Network-level failures are transient
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	return err
}

// quotaReason reports whether a 403 is actually a quota condition,
// which the API signals through the error reason rather than the code
func quotaReason(apiErr *googleapi.Error) bool {
	for _, e := range apiErr.Errors {
		switch e.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded", "dailyLimitExceeded":
			return true
		}
	}
	return false
}

var _ adapter.Provider = (*Provider)(nil)
