package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/imyu7/calendar-sync/internal/daemon"
	"github.com/imyu7/calendar-sync/internal/logger"
	"github.com/imyu7/calendar-sync/internal/service"
)

var pidPath string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run sync continuously on a schedule",
	Long: `Run the sync engine as a long-lived process, executing a full
sync pass on the configured interval or cron expression.

The scheduler section of the config controls the cadence:

  scheduler:
    interval: 15m        # fixed interval
    cron: "*/10 * * * *" # or a cron expression (takes precedence)`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sync daemon in the foreground",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running sync daemon",
	RunE:  runDaemonStop,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the sync daemon is running",
	RunE:  runDaemonStatus,
}

func init() {
	daemonCmd.PersistentFlags().StringVar(&pidPath, "pid-file", "", "PID file path (default ~/.config/calendar-sync/daemon.pid)")
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	rootCmd.AddCommand(daemonCmd)
}

func pidFile() (*daemon.PIDFile, error) {
	path := pidPath
	if path == "" {
		var err error
		path, err = daemon.DefaultPIDPath()
		if err != nil {
			return nil, err
		}
	}
	return daemon.NewPIDFile(path), nil
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	pf, err := pidFile()
	if err != nil {
		return err
	}
	if err := pf.Write(); err != nil {
		return err
	}
	defer pf.Remove()

	svc, store, err := newSyncService()
	if err != nil {
		return err
	}
	defer store.Close()

	d, err := service.NewDaemonService(cfg, svc)
	if err != nil {
		svc.Close()
		return err
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Start(ctx); err != nil {
		return err
	}

	log := logger.Get()
	log.Info("daemon started", "pid", os.Getpid())
	fmt.Println("Daemon started. Press Ctrl+C to stop.")

	<-ctx.Done()
	log.Info("daemon stopping")
	return d.Stop()
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	pf, err := pidFile()
	if err != nil {
		return err
	}

	running, err := pf.IsRunning()
	if err != nil {
		return err
	}
	if !running {
		pf.Remove()
		return fmt.Errorf("daemon is not running")
	}

	if err := pf.Kill(); err != nil {
		return err
	}
	fmt.Println("Daemon stopped.")
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	pf, err := pidFile()
	if err != nil {
		return err
	}

	pid, err := pf.Read()
	if err != nil {
		fmt.Println("Daemon is not running.")
		return nil
	}

	running, _ := pf.IsRunning()
	if running {
		fmt.Printf("Daemon is running (PID %d).\n", pid)
	} else {
		fmt.Printf("Daemon is not running (stale PID file for %d).\n", pid)
	}
	return nil
}
