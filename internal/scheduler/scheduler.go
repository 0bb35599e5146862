// Package scheduler triggers sync runs on a fixed interval or a cron
// expression for daemon mode.
package scheduler

import (
	"context"
	"fmt"
	"time"
)

// Scheduler defines the interface for sync schedulers
type Scheduler interface {
	// Start begins the scheduling loop
	Start(ctx context.Context) error

	// Stop gracefully stops the scheduler
	Stop() error

	// Status returns the current scheduler status
	Status() *Status
}

// Status represents the current state of a scheduler
type Status struct {
	Running        bool
	LastRunTime    time.Time
	NextRunTime    time.Time
	TotalRuns      int
	SuccessfulRuns int
	FailedRuns     int
	LastError      string
}

// Config contains scheduler configuration
type Config struct {
	// Interval between sync runs (interval mode)
	Interval time.Duration

	// Cron expression (cron mode); takes precedence over Interval
	Cron string
}

// SyncRunner executes one full sync run covering every enabled rule
type SyncRunner interface {
	RunSync(ctx context.Context) error
}

// New builds a scheduler from the config, preferring cron when set
func New(config Config, runner SyncRunner) (Scheduler, error) {
	if config.Cron != "" {
		return NewCronScheduler(config, runner)
	}
	if config.Interval > 0 {
		return NewIntervalScheduler(config, runner)
	}
	return nil, fmt.Errorf("scheduler requires an interval or a cron expression")
}
