// Package service orchestrates sync runs: it resolves accounts to
// providers, fetches and filters source events, classifies them against
// stored mappings, and drives the executor per rule.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/imyu7/calendar-sync/internal/adapter"
	"github.com/imyu7/calendar-sync/internal/config"
	"github.com/imyu7/calendar-sync/internal/core/diff"
	"github.com/imyu7/calendar-sync/internal/core/executor"
	"github.com/imyu7/calendar-sync/internal/domain"
	"github.com/imyu7/calendar-sync/internal/lock"
	"github.com/imyu7/calendar-sync/internal/logger"
	"github.com/imyu7/calendar-sync/internal/progress"
	"github.com/imyu7/calendar-sync/internal/state"
)

// SyncService orchestrates sync runs
type SyncService struct {
	config   *config.Config
	factory  adapter.Factory
	store    state.Store
	lock     *lock.FileLock
	differ   diff.Differencer
	reporter progress.Reporter
	dryRun   bool

	mu        sync.Mutex
	providers map[string]adapter.Provider
}

// NewSyncService creates a new sync service
func NewSyncService(cfg *config.Config, factory adapter.Factory, store state.Store) (*SyncService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if factory == nil {
		return nil, fmt.Errorf("provider factory cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("mapping store cannot be nil")
	}

	fileLock, err := lock.NewFileLock(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create file lock: %w", err)
	}

	return &SyncService{
		config:    cfg,
		factory:   factory,
		store:     store,
		lock:      fileLock,
		differ:    diff.NewDefaultDifferencer(),
		providers: make(map[string]adapter.Provider),
	}, nil
}

// SetProgressReporter sets the progress reporter for sync runs
func (s *SyncService) SetProgressReporter(reporter progress.Reporter) {
	s.reporter = reporter
}

// SetDryRun makes runs report planned work without writing anywhere
func (s *SyncService) SetDryRun(dryRun bool) {
	s.dryRun = dryRun
}

// IsLocked checks if another sync run is in progress
func (s *SyncService) IsLocked() bool {
	return s.lock.IsLocked()
}

// ForceUnlock forcibly releases the run lock (use with caution)
func (s *SyncService) ForceUnlock() error {
	return s.lock.ForceRelease()
}

// getReporter returns the current progress reporter or a null reporter
func (s *SyncService) getReporter() progress.Reporter {
	if s.reporter != nil {
		return s.reporter
	}
	return progress.NullReporter{}
}

// provider returns a cached provider for the account, creating one on
// first use. Providers are shared across rules within a run.
func (s *SyncService) provider(ctx context.Context, account domain.Account) (adapter.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.providers[account.Key]; ok {
		return p, nil
	}

	p, err := s.factory.Provider(ctx, account)
	if err != nil {
		return nil, err
	}
	s.providers[account.Key] = p
	return p, nil
}

// Run executes every enabled rule once and returns the aggregated
// result. A rule failure never aborts the run; it is recorded and the
// remaining rules proceed. Rules that share a destination account run
// sequentially in declaration order; distinct destinations may run in
// parallel up to the configured limit.
func (s *SyncService) Run(ctx context.Context) (domain.RunResult, error) {
	return s.runRules(ctx, s.config.GetEnabledRules())
}

// RunRule executes a single rule by name, even if disabled
func (s *SyncService) RunRule(ctx context.Context, name string) (domain.RunResult, error) {
	rule, err := s.config.GetRule(name)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("rule %s: %w", name, err)
	}
	return s.runRules(ctx, []domain.SyncRule{*rule})
}

func (s *SyncService) runRules(ctx context.Context, rules []domain.SyncRule) (domain.RunResult, error) {
	result := domain.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	if len(rules) == 0 {
		result.FinishedAt = time.Now()
		return result, nil
	}

	log := logger.With("run", result.RunID)

	if err := s.lock.Acquire(result.RunID); err != nil {
		if lock.IsLockError(err) {
			return result, fmt.Errorf("%w: %v", domain.ErrSyncInProgress, err)
		}
		return result, err
	}
	defer func() {
		if err := s.lock.Release(); err != nil {
			log.Error("failed to release run lock", "error", err)
		}
	}()

	reporter := s.getReporter()
	reporter.RunStart(result.RunID, len(rules))
	log.Info("sync run started", "rules", len(rules), "dry_run", s.dryRun)

	results := make([]domain.RuleResult, len(rules))

	// Rules targeting the same destination calendar must not interleave
	// their writes, so parallelism is granted per destination group.
	groups := groupByDestination(rules)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Parallelism)

	for _, group := range groups {
		group := group
		g.Go(func() error {
			for _, idx := range group {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				results[idx] = s.syncRule(gctx, result.RunID, rules[idx])
			}
			return nil
		})
	}

	runErr := g.Wait()

	result.Rules = results
	result.FinishedAt = time.Now()
	reporter.RunDone(result)

	log.Info("sync run finished",
		"duration", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond),
		"failures", len(result.Failures()),
	)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return result, runErr
	}
	return result, ctx.Err()
}

// groupByDestination partitions rule indices by destination account,
// keeping declaration order both across groups and within each group
func groupByDestination(rules []domain.SyncRule) [][]int {
	byDest := make(map[string][]int)
	var order []string
	for i, r := range rules {
		if _, seen := byDest[r.Destination]; !seen {
			order = append(order, r.Destination)
		}
		byDest[r.Destination] = append(byDest[r.Destination], i)
	}

	groups := make([][]int, 0, len(order))
	for _, dest := range order {
		groups = append(groups, byDest[dest])
	}
	return groups
}

// syncRule runs one rule end to end and persists its run record.
// Errors surface in the returned result, never as panics or aborts.
func (s *SyncService) syncRule(ctx context.Context, runID string, rule domain.SyncRule) domain.RuleResult {
	log := logger.With("run", runID, "rule", rule.ID())
	started := time.Now()

	result, err := s.doSyncRule(ctx, rule, log)
	result.RuleID = rule.ID()

	record := state.RunRecord{
		RunID:     runID,
		RuleID:    rule.ID(),
		StartTime: started,
		EndTime:   time.Now(),
		Created:   result.Created,
		Updated:   result.Updated,
		Deleted:   result.Deleted,
		Skipped:   result.Skipped,
	}

	switch {
	case err != nil:
		record.Status = state.RunStatusFailed
		record.Error = err.Error()
		result.Failures = append(result.Failures, domain.Failure{
			RuleID: rule.ID(),
			Op:     domain.OpList,
			Err:    err,
		})
		log.Error("rule sync failed", "error", err)
	case result.Failed():
		record.Status = state.RunStatusPartial
		record.Error = result.Failures[0].Err.Error()
		log.Warn("rule sync finished with failures", "failures", len(result.Failures))
	default:
		record.Status = state.RunStatusSuccess
		log.Info("rule sync finished",
			"created", result.Created,
			"updated", result.Updated,
			"deleted", result.Deleted,
			"unchanged", result.Unchanged,
			"skipped", result.Skipped,
		)
	}

	if !s.dryRun {
		if saveErr := s.store.SaveRun(record); saveErr != nil {
			log.Error("failed to save run record", "error", saveErr)
		}
	}

	s.getReporter().RuleDone(result)
	return result
}

// doSyncRule performs the fetch, classify and execute phases for one
// rule. Errors returned here are rule-level (nothing was executed).
func (s *SyncService) doSyncRule(ctx context.Context, rule domain.SyncRule, log logger.Logger) (domain.RuleResult, error) {
	source, err := s.config.GetAccount(rule.Source)
	if err != nil {
		return domain.RuleResult{}, fmt.Errorf("source account %s: %w", rule.Source, err)
	}
	dest, err := s.config.GetAccount(rule.Destination)
	if err != nil {
		return domain.RuleResult{}, fmt.Errorf("destination account %s: %w", rule.Destination, err)
	}

	sourceProvider, err := s.provider(ctx, *source)
	if err != nil {
		return domain.RuleResult{}, fmt.Errorf("source provider: %w", err)
	}
	destProvider, err := s.provider(ctx, *dest)
	if err != nil {
		return domain.RuleResult{}, fmt.Errorf("destination provider: %w", err)
	}

	window := s.window(rule)
	events, err := sourceProvider.ListEvents(ctx, source.Calendar(), window)
	if err != nil {
		return domain.RuleResult{}, fmt.Errorf("list source events: %w", err)
	}

	events, filtered := filterSource(events)
	log.Debug("fetched source events",
		"total", len(events)+filtered,
		"filtered", filtered,
		"window_start", window.Start,
		"window_end", window.End,
	)

	mappings, err := s.store.List(rule.ID())
	if err != nil {
		return domain.RuleResult{}, fmt.Errorf("load mappings: %w", err)
	}

	// The destination window serves two purposes: the duplicate guard
	// adopts unmapped copies found in it, and absence-detected deletions
	// are scoped to copies it actually contains.
	destEvents, err := destProvider.ListEvents(ctx, dest.Calendar(), window)
	if err != nil {
		return domain.RuleResult{}, fmt.Errorf("list destination events: %w", err)
	}

	plan := s.differ.Classify(rule, events, mappings)
	plan.Skipped += filtered
	plan = scopeDeletes(plan, destEvents)
	s.getReporter().RuleStart(rule.ID(), plan)

	exec := executor.NewDefaultExecutor(s.store, log,
		executor.WithDryRun(s.dryRun),
		executor.WithReporter(s.getReporter()),
		executor.WithDuplicateGuard(destEvents, mappings),
	)
	result := exec.Execute(ctx, rule, destProvider, dest.Calendar(), plan)
	return result, nil
}

// scopeDeletes limits absence-detected deletions to mappings whose
// destination copy sits inside the fetched destination window. A mapped
// event that drifted out of the window (it already took place) is
// outside the pass's scope: its absence from the source fetch says
// nothing about whether it still exists. Cancelled-event deletions keep
// the source event and are never scoped out.
func scopeDeletes(plan domain.Plan, destEvents []domain.Event) domain.Plan {
	present := make(map[string]bool, len(destEvents))
	for _, ev := range destEvents {
		present[ev.ID] = true
	}

	kept := plan.Deletes[:0]
	for _, act := range plan.Deletes {
		if act.Event.ID == "" && act.Mapping != nil && !present[act.Mapping.DestEventID] {
			continue
		}
		kept = append(kept, act)
	}
	plan.Deletes = kept
	return plan
}

// window computes the rule's fetch window around now. The look-back
// keeps recently passed events inside the fetch so they are not
// mistaken for deletions while still relevant.
func (s *SyncService) window(rule domain.SyncRule) adapter.Window {
	now := time.Now()
	return adapter.Window{
		Start: now.AddDate(0, 0, -s.config.RuleLookBack(rule)),
		End:   now.AddDate(0, 0, s.config.RuleWindow(rule)),
	}
}

// filterSource drops source events that should never be mirrored:
// events without a summary, free (transparent) events, and invitations
// the account has not accepted. Returns the kept events and the number
// filtered out.
func filterSource(events []domain.Event) ([]domain.Event, int) {
	kept := events[:0]
	filtered := 0
	for _, ev := range events {
		if !ev.Cancelled() && !syncable(ev) {
			filtered++
			continue
		}
		kept = append(kept, ev)
	}
	return kept, filtered
}

// syncable reports whether a confirmed source event qualifies for
// mirroring
func syncable(ev domain.Event) bool {
	if ev.Summary == "" {
		return false
	}
	if ev.Transparent {
		return false
	}
	if ev.SelfResponse != "" && ev.SelfResponse != "accepted" {
		return false
	}
	return true
}

// Purge deletes every destination event a rule has created and clears
// its mappings, so a later run starts from a clean slate
func (s *SyncService) Purge(ctx context.Context, ruleName string) (int, error) {
	rule, err := s.config.GetRule(ruleName)
	if err != nil {
		return 0, fmt.Errorf("rule %s: %w", ruleName, err)
	}

	dest, err := s.config.GetAccount(rule.Destination)
	if err != nil {
		return 0, fmt.Errorf("destination account %s: %w", rule.Destination, err)
	}
	destProvider, err := s.provider(ctx, *dest)
	if err != nil {
		return 0, fmt.Errorf("destination provider: %w", err)
	}

	mappings, err := s.store.List(rule.ID())
	if err != nil {
		return 0, fmt.Errorf("load mappings: %w", err)
	}

	log := logger.With("rule", rule.ID())
	retry := executor.DefaultRetryPolicy()
	deleted := 0
	for _, m := range mappings {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if m.Tombstoned {
			continue
		}
		m := m
		err := retry.Do(ctx, func() error {
			return destProvider.DeleteEvent(ctx, dest.Calendar(), m.DestEventID)
		})
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return deleted, fmt.Errorf("delete event %s: %w", m.DestEventID, err)
		}
		deleted++
		log.Debug("purged destination event", "dest_event", m.DestEventID)
	}

	if _, err := s.store.DeleteRule(rule.ID()); err != nil {
		return deleted, fmt.Errorf("clear mappings: %w", err)
	}

	log.Info("purge finished", "deleted", deleted)
	return deleted, nil
}

// History returns recent run records, optionally filtered by rule
func (s *SyncService) History(ruleName string, limit int) ([]state.RunRecord, error) {
	if ruleName == "" {
		return s.store.History(limit)
	}
	return s.store.RuleHistory(ruleName, limit)
}

// Accounts returns the configured accounts sorted by key
func (s *SyncService) Accounts() []domain.Account {
	accounts := make([]domain.Account, 0, len(s.config.Accounts))
	for _, a := range s.config.Accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Key < accounts[j].Key })
	return accounts
}

// Close releases all providers
func (s *SyncService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for _, p := range s.providers {
		if err := p.Close(); err != nil {
			lastErr = err
		}
	}
	s.providers = make(map[string]adapter.Provider)
	return lastErr
}

var _ io.Closer = (*SyncService)(nil)
