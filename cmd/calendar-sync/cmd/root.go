// Package cmd implements the calendar-sync command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imyu7/calendar-sync/internal/adapter/gcal"
	"github.com/imyu7/calendar-sync/internal/config"
	"github.com/imyu7/calendar-sync/internal/logger"
	"github.com/imyu7/calendar-sync/internal/service"
	"github.com/imyu7/calendar-sync/internal/state"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "calendar-sync",
	Short: "One-way calendar synchronization between Google accounts",
	Long: `calendar-sync mirrors events between Google Calendar accounts
according to directional sync rules. Each rule copies events from a
source calendar into a destination calendar, optionally masking the
summary and stripping details, and keeps the copies up to date as the
source changes.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Shutdown()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., ./configs, ~/.config/calendar-sync)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

// setup loads the configuration and initializes the global logger
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}

	logCfg := logger.Config{
		Level:   logger.ParseLevel(level),
		Format:  logger.ParseFormat(cfg.Log.Format),
		Outputs: []logger.OutputConfig{{Type: logger.OutputStderr}},
	}
	if cfg.Log.File != "" {
		logCfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       config.ExpandPath(cfg.Log.File),
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			MaxBackups: cfg.Log.MaxBackups,
			Compress:   cfg.Log.Compress,
		}
	}

	return logger.Init(logCfg)
}

// newSyncService builds the full service stack: token cache, provider
// factory, sqlite mapping store and the orchestrator. The caller owns
// Close on both returns.
func newSyncService() (*service.SyncService, state.Store, error) {
	store, err := state.NewSQLiteStore(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open mapping store: %w", err)
	}

	cache := gcal.NewFileTokenCache(cfg.TokensDir)
	factory := gcal.NewFactory(gcal.NewAuthenticator(cache))

	svc, err := service.NewSyncService(cfg, factory, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return svc, store, nil
}
