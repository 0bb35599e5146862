package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/imyu7/calendar-sync/internal/domain"
	"github.com/imyu7/calendar-sync/internal/progress"
)

var (
	syncRule   string
	syncDryRun bool
	forceSync  bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run every enabled sync rule once",
	Long: `Run every enabled sync rule once and exit.

Fetches the upcoming events of each rule's source calendar, compares
them against the mapping state and creates, updates or deletes the
destination copies accordingly. Use --rule to run a single rule and
--dry-run to see the planned work without writing anything.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncRule, "rule", "", "run only the named rule")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "report planned work without writing")
	syncCmd.Flags().BoolVar(&forceSync, "force", false, "break a stale run lock before starting")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	svc, store, err := newSyncService()
	if err != nil {
		return err
	}
	defer store.Close()
	defer svc.Close()

	if forceSync && svc.IsLocked() {
		if err := svc.ForceUnlock(); err != nil {
			return fmt.Errorf("force unlock: %w", err)
		}
		fmt.Println("Removed existing run lock.")
	}

	svc.SetDryRun(syncDryRun)
	svc.SetProgressReporter(progress.NewConsoleReporter(os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		result domain.RunResult
		runErr error
	)
	if syncRule != "" {
		result, runErr = svc.RunRule(ctx, syncRule)
	} else {
		result, runErr = svc.Run(ctx)
	}
	if runErr != nil {
		return runErr
	}
	if failures := result.Failures(); len(failures) > 0 {
		return fmt.Errorf("%d event(s) failed to sync", len(failures))
	}
	return nil
}
