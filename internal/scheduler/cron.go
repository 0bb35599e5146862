package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// CronScheduler triggers sync runs from a cron expression
type CronScheduler struct {
	config Config
	runner SyncRunner

	mu      sync.RWMutex
	cron    *cron.Cron
	entry   cron.EntryID
	running bool
	stopped bool

	stats struct {
		lastRunTime    time.Time
		totalRuns      int
		successfulRuns int
		failedRuns     int
		lastError      string
	}
}

// NewCronScheduler creates a scheduler from a standard 5-field cron
// expression
func NewCronScheduler(config Config, runner SyncRunner) (*CronScheduler, error) {
	if config.Cron == "" {
		return nil, fmt.Errorf("cron expression cannot be empty")
	}
	if runner == nil {
		return nil, fmt.Errorf("sync runner cannot be nil")
	}

	// Validate the expression before Start
	if _, err := cron.ParseStandard(config.Cron); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", config.Cron, err)
	}

	return &CronScheduler{
		config: config,
		runner: runner,
	}, nil
}

// Start registers the cron entry and begins scheduling
func (s *CronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if s.stopped {
		return fmt.Errorf("scheduler cannot be restarted after stop")
	}

	s.cron = cron.New()
	entry, err := s.cron.AddFunc(s.config.Cron, func() {
		s.executeSync(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to register cron entry: %w", err)
	}
	s.entry = entry

	s.cron.Start()
	s.running = true

	// Stop scheduling when the context ends
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *CronScheduler) executeSync(ctx context.Context) {
	s.mu.Lock()
	s.stats.lastRunTime = time.Now()
	s.stats.totalRuns++
	s.mu.Unlock()

	err := s.runner.RunSync(ctx)

	s.mu.Lock()
	if err != nil {
		s.stats.failedRuns++
		s.stats.lastError = err.Error()
	} else {
		s.stats.successfulRuns++
		s.stats.lastError = ""
	}
	s.mu.Unlock()
}

// Stop halts scheduling and waits for a running sync to finish
func (s *CronScheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is not running")
	}
	c := s.cron
	s.running = false
	s.stopped = true
	s.mu.Unlock()

	// cron.Stop returns a context that is done when jobs complete
	<-c.Stop().Done()
	return nil
}

// Status returns the current scheduler status
func (s *CronScheduler) Status() *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &Status{
		Running:        s.running,
		LastRunTime:    s.stats.lastRunTime,
		TotalRuns:      s.stats.totalRuns,
		SuccessfulRuns: s.stats.successfulRuns,
		FailedRuns:     s.stats.failedRuns,
		LastError:      s.stats.lastError,
	}
	if s.running && s.cron != nil {
		status.NextRunTime = s.cron.Entry(s.entry).Next
	}
	return status
}
