// Package executor applies a classified plan against a destination
// calendar and records the outcome in the mapping store.
package executor

import (
	"context"
	"errors"
	"time"

	"github.com/imyu7/calendar-sync/internal/adapter"
	"github.com/imyu7/calendar-sync/internal/core/transform"
	"github.com/imyu7/calendar-sync/internal/domain"
	"github.com/imyu7/calendar-sync/internal/fingerprint"
	"github.com/imyu7/calendar-sync/internal/logger"
	"github.com/imyu7/calendar-sync/internal/progress"
	"github.com/imyu7/calendar-sync/internal/state"
)

// Executor applies plans to a destination calendar
type Executor interface {
	Execute(ctx context.Context, rule domain.SyncRule, dest adapter.Provider, destCalendar string, plan domain.Plan) domain.RuleResult
}

// DefaultExecutor is the standard implementation
type DefaultExecutor struct {
	store    state.Store
	retry    RetryPolicy
	dryRun   bool
	log      logger.Logger
	reporter progress.Reporter

	// dupes indexes unmapped destination events by content key, for
	// adopting existing copies instead of inserting duplicates
	dupes map[string]string
}

// Option configures a DefaultExecutor
type Option func(*DefaultExecutor)

// WithRetryPolicy overrides the default retry policy
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *DefaultExecutor) { e.retry = p }
}

// WithDryRun makes Execute report what it would do without touching
// the destination or the store
func WithDryRun(dryRun bool) Option {
	return func(e *DefaultExecutor) { e.dryRun = dryRun }
}

// WithReporter streams executed actions to a progress reporter
func WithReporter(r progress.Reporter) Option {
	return func(e *DefaultExecutor) {
		if r != nil {
			e.reporter = r
		}
	}
}

// WithDuplicateGuard indexes the destination window fetch so creates
// can adopt an existing unmapped copy with the same content key. Events
// already accounted for by a mapping entry are excluded: for those the
// mapping itself is the guard.
func WithDuplicateGuard(destEvents []domain.Event, mappings []domain.Mapping) Option {
	return func(e *DefaultExecutor) {
		mapped := make(map[string]bool, len(mappings))
		for _, m := range mappings {
			mapped[m.DestEventID] = true
		}
		e.dupes = make(map[string]string)
		for _, ev := range destEvents {
			if ev.ID == "" || ev.Cancelled() || mapped[ev.ID] {
				continue
			}
			e.dupes[fingerprint.New(ev).String()] = ev.ID
		}
	}
}

// NewDefaultExecutor creates an executor backed by the mapping store
func NewDefaultExecutor(store state.Store, log logger.Logger, opts ...Option) *DefaultExecutor {
	e := &DefaultExecutor{
		store:    store,
		retry:    DefaultRetryPolicy(),
		log:      log,
		reporter: progress.NullReporter{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute applies the plan action by action. Failures are collected
// per action; one failed event never aborts the rest of the plan.
// Mappings are written only after the destination write succeeded, so
// a crash mid-run leaves at worst an unmapped destination copy that
// the duplicate guard adopts on the next run.
func (e *DefaultExecutor) Execute(ctx context.Context, rule domain.SyncRule, dest adapter.Provider, destCalendar string, plan domain.Plan) domain.RuleResult {
	result := domain.RuleResult{
		RuleID:    rule.ID(),
		Unchanged: plan.Unchanged,
		Skipped:   plan.Skipped,
	}

	for _, act := range plan.Creates {
		if ctx.Err() != nil {
			result.Failures = append(result.Failures, e.aborted(rule, act, ctx.Err()))
			return result
		}
		e.create(ctx, rule, dest, destCalendar, act, &result)
	}

	for _, act := range plan.Updates {
		if ctx.Err() != nil {
			result.Failures = append(result.Failures, e.aborted(rule, act, ctx.Err()))
			return result
		}
		e.update(ctx, rule, dest, destCalendar, act, &result)
	}

	for _, act := range plan.Deletes {
		if ctx.Err() != nil {
			result.Failures = append(result.Failures, e.aborted(rule, act, ctx.Err()))
			return result
		}
		e.delete(ctx, rule, dest, destCalendar, act, &result)
	}

	return result
}

func (e *DefaultExecutor) create(ctx context.Context, rule domain.SyncRule, dest adapter.Provider, destCalendar string, act domain.Action, result *domain.RuleResult) {
	// Duplicate guard: a live mapping means an earlier run already
	// created the copy but the classification ran against stale state.
	// Adopt the existing copy instead of inserting a second one.
	existing, err := e.store.Get(rule.ID(), act.Event.ID)
	if err == nil && existing != nil && !existing.Tombstoned {
		e.log.Debug("adopting existing destination event",
			"rule", rule.ID(), "source_event", act.Event.ID, "dest_event", existing.DestEventID)
		adopted := act
		adopted.Mapping = existing
		e.update(ctx, rule, dest, destCalendar, adopted, result)
		return
	}

	payload := transform.Apply(rule, act.Event)

	// An unmapped destination event carrying the same content key means
	// the copy already exists but its mapping entry was lost, or the
	// copy was made by hand. Point a mapping at it instead of inserting
	// a second copy.
	fp := fingerprint.New(payload).String()
	if destID, ok := e.dupes[fp]; ok {
		delete(e.dupes, fp)
		if e.adopt(ctx, rule, dest, destCalendar, act, payload, destID, result) {
			return
		}
		// The copy vanished between the fetch and now; insert afresh.
	}

	if e.dryRun {
		e.log.Info("dry-run: would create event", "rule", rule.ID(), "source_event", act.Event.ID)
		e.reporter.Action(rule.ID(), domain.ActionCreate, payload.Summary)
		result.Created++
		return
	}

	var destID string
	err = e.retry.Do(ctx, func() error {
		var insertErr error
		destID, insertErr = dest.InsertEvent(ctx, destCalendar, payload)
		return insertErr
	})
	if err != nil {
		e.fail(rule, act.Event.ID, domain.ActionCreate, err, result)
		return
	}

	if err := e.saveMapping(rule, act.Event, destID); err != nil {
		e.fail(rule, act.Event.ID, domain.ActionCreate, err, result)
		return
	}

	result.Created++
	e.reporter.Action(rule.ID(), domain.ActionCreate, payload.Summary)
	e.log.Debug("created event", "rule", rule.ID(), "source_event", act.Event.ID, "dest_event", destID)
}

// adopt records a mapping pointing at an existing unmapped destination
// copy, refreshing its content on the way. Returns false when the copy
// is already gone and the caller should insert instead.
func (e *DefaultExecutor) adopt(ctx context.Context, rule domain.SyncRule, dest adapter.Provider, destCalendar string, act domain.Action, payload domain.Event, destID string, result *domain.RuleResult) bool {
	if e.dryRun {
		e.log.Info("dry-run: would adopt existing destination event",
			"rule", rule.ID(), "source_event", act.Event.ID, "dest_event", destID)
		e.reporter.Action(rule.ID(), domain.ActionUpdate, payload.Summary)
		result.Updated++
		return true
	}

	err := e.retry.Do(ctx, func() error {
		return dest.UpdateEvent(ctx, destCalendar, destID, payload)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return false
	}
	if err != nil {
		e.fail(rule, act.Event.ID, domain.ActionCreate, err, result)
		return true
	}

	if err := e.saveMapping(rule, act.Event, destID); err != nil {
		e.fail(rule, act.Event.ID, domain.ActionCreate, err, result)
		return true
	}

	result.Updated++
	e.reporter.Action(rule.ID(), domain.ActionUpdate, payload.Summary)
	e.log.Info("adopted existing destination event",
		"rule", rule.ID(), "source_event", act.Event.ID, "dest_event", destID)
	return true
}

func (e *DefaultExecutor) update(ctx context.Context, rule domain.SyncRule, dest adapter.Provider, destCalendar string, act domain.Action, result *domain.RuleResult) {
	if act.Mapping == nil {
		e.fail(rule, act.Event.ID, domain.ActionUpdate, errors.New("update action without mapping"), result)
		return
	}

	payload := transform.Apply(rule, act.Event)

	if e.dryRun {
		e.log.Info("dry-run: would update event", "rule", rule.ID(), "source_event", act.Event.ID)
		e.reporter.Action(rule.ID(), domain.ActionUpdate, payload.Summary)
		result.Updated++
		return
	}

	err := e.retry.Do(ctx, func() error {
		return dest.UpdateEvent(ctx, destCalendar, act.Mapping.DestEventID, payload)
	})

	// The copy was removed out of band: recreate it rather than
	// leaving the source event unsynced
	if errors.Is(err, domain.ErrNotFound) {
		e.log.Warn("destination event missing, recreating",
			"rule", rule.ID(), "source_event", act.Event.ID, "dest_event", act.Mapping.DestEventID)

		var destID string
		err = e.retry.Do(ctx, func() error {
			var insertErr error
			destID, insertErr = dest.InsertEvent(ctx, destCalendar, payload)
			return insertErr
		})
		if err != nil {
			e.fail(rule, act.Event.ID, domain.ActionUpdate, err, result)
			return
		}
		if err := e.saveMapping(rule, act.Event, destID); err != nil {
			e.fail(rule, act.Event.ID, domain.ActionUpdate, err, result)
			return
		}
		result.Updated++
		e.reporter.Action(rule.ID(), domain.ActionUpdate, payload.Summary)
		return
	}

	if err != nil {
		e.fail(rule, act.Event.ID, domain.ActionUpdate, err, result)
		return
	}

	if err := e.saveMapping(rule, act.Event, act.Mapping.DestEventID); err != nil {
		e.fail(rule, act.Event.ID, domain.ActionUpdate, err, result)
		return
	}

	result.Updated++
	e.reporter.Action(rule.ID(), domain.ActionUpdate, payload.Summary)
	e.log.Debug("updated event", "rule", rule.ID(), "source_event", act.Event.ID, "dest_event", act.Mapping.DestEventID)
}

func (e *DefaultExecutor) delete(ctx context.Context, rule domain.SyncRule, dest adapter.Provider, destCalendar string, act domain.Action, result *domain.RuleResult) {
	if act.Mapping == nil {
		e.fail(rule, act.Event.ID, domain.ActionDelete, errors.New("delete action without mapping"), result)
		return
	}

	// Absence-detected deletions carry no source event, only the
	// mapping entry; the entry is the record of which source id to
	// tombstone.
	sourceEventID := act.Event.ID
	if sourceEventID == "" {
		sourceEventID = act.Mapping.SourceEventID
	}

	if e.dryRun {
		e.log.Info("dry-run: would delete event", "rule", rule.ID(), "source_event", sourceEventID)
		e.reporter.Action(rule.ID(), domain.ActionDelete, act.Event.Summary)
		result.Deleted++
		return
	}

	err := e.retry.Do(ctx, func() error {
		return dest.DeleteEvent(ctx, destCalendar, act.Mapping.DestEventID)
	})

	// Already gone means the desired state holds
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		e.fail(rule, sourceEventID, domain.ActionDelete, err, result)
		return
	}

	if err := e.store.Tombstone(rule.ID(), sourceEventID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		e.fail(rule, sourceEventID, domain.ActionDelete, err, result)
		return
	}

	result.Deleted++
	e.reporter.Action(rule.ID(), domain.ActionDelete, act.Event.Summary)
	e.log.Debug("deleted event", "rule", rule.ID(), "source_event", sourceEventID, "dest_event", act.Mapping.DestEventID)
}

func (e *DefaultExecutor) saveMapping(rule domain.SyncRule, source domain.Event, destID string) error {
	return e.store.Put(domain.Mapping{
		RuleID:        rule.ID(),
		SourceEventID: source.ID,
		DestEventID:   destID,
		Fingerprint:   string(fingerprint.New(source)),
		SourceUpdated: source.Updated,
		UpdatedAt:     time.Now(),
	})
}

func (e *DefaultExecutor) fail(rule domain.SyncRule, sourceEventID string, op domain.ActionType, err error, result *domain.RuleResult) {
	e.log.Error("sync action failed", "rule", rule.ID(), "op", op, "source_event", sourceEventID, "error", err)
	result.Failures = append(result.Failures, domain.Failure{
		RuleID:        rule.ID(),
		SourceEventID: sourceEventID,
		Op:            op,
		Err:           err,
	})
}

func (e *DefaultExecutor) aborted(rule domain.SyncRule, act domain.Action, err error) domain.Failure {
	sourceEventID := act.Event.ID
	if sourceEventID == "" && act.Mapping != nil {
		sourceEventID = act.Mapping.SourceEventID
	}
	return domain.Failure{
		RuleID:        rule.ID(),
		SourceEventID: sourceEventID,
		Op:            act.Type,
		Err:           err,
	}
}

var _ Executor = (*DefaultExecutor)(nil)
