package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/imyu7/calendar-sync/internal/config"
	"github.com/imyu7/calendar-sync/internal/scheduler"
	"github.com/imyu7/calendar-sync/internal/state"
)

// DaemonService runs sync passes on a schedule
type DaemonService struct {
	mu        sync.RWMutex
	config    *config.Config
	scheduler scheduler.Scheduler
	syncSvc   *SyncService
}

// DaemonStatus represents the current daemon status
type DaemonStatus struct {
	Running        bool
	SchedulerStats *scheduler.Status
	LastRun        *state.RunRecord
}

// NewDaemonService creates a daemon wrapping an existing sync service
func NewDaemonService(cfg *config.Config, syncSvc *SyncService) (*DaemonService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if syncSvc == nil {
		return nil, fmt.Errorf("sync service cannot be nil")
	}

	return &DaemonService{
		config:  cfg,
		syncSvc: syncSvc,
	}, nil
}

// Start begins scheduled execution using the configured cadence
func (d *DaemonService) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scheduler != nil {
		return fmt.Errorf("daemon is already running")
	}

	schedConfig := scheduler.Config{
		Interval: d.config.Scheduler.Interval,
		Cron:     d.config.Scheduler.Cron,
	}

	sched, err := scheduler.New(schedConfig, &syncRunner{syncSvc: d.syncSvc})
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	d.scheduler = sched
	return nil
}

// Stop stops the daemon
func (d *DaemonService) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scheduler == nil {
		return fmt.Errorf("daemon is not running")
	}

	if err := d.scheduler.Stop(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}

	d.scheduler = nil
	return nil
}

// Status returns the current daemon status
func (d *DaemonService) Status() *DaemonStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := &DaemonStatus{
		Running: d.scheduler != nil,
	}

	if d.scheduler != nil {
		status.SchedulerStats = d.scheduler.Status()
	}

	if history, err := d.syncSvc.History("", 1); err == nil && len(history) > 0 {
		status.LastRun = &history[0]
	}

	return status
}

// Close stops the scheduler and releases the sync service
func (d *DaemonService) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var lastErr error

	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil {
			lastErr = err
		}
		d.scheduler = nil
	}

	if d.syncSvc != nil {
		if err := d.syncSvc.Close(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// syncRunner adapts SyncService to the scheduler's runner interface
type syncRunner struct {
	syncSvc *SyncService
}

// RunSync executes one full sync pass. Per-event failures are already
// recorded in run history; only run-level errors surface here.
func (r *syncRunner) RunSync(ctx context.Context) error {
	result, err := r.syncSvc.Run(ctx)
	if err != nil {
		return err
	}
	if failures := result.Failures(); len(failures) > 0 {
		return fmt.Errorf("sync completed with %d failed event(s)", len(failures))
	}
	return nil
}
