package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/config"
	"github.com/jkindrix/fitai/internal/logging"
	"github.com/jkindrix/fitai/internal/repository"
)

var version = "dev" // set via ldflags at build time

// app carries what every subcommand needs.
type app struct {
	loadConfig func() (*config.Config, error)
	verbose    bool
}

func newRootCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	a := &app{loadConfig: loadConfig}

	root := &cobra.Command{
		Use:   "leadctl",
		Short: "FitAI lead store administration",
		Long: `leadctl applies lead store migrations and lists captured leads.
It reads the same config.yaml and environment variables as the server.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log storage activity to stderr")

	root.AddCommand(a.migrateCmd())
	root.AddCommand(a.leadsCmd())
	return root
}

// logger returns a console logger at debug level with --verbose and a
// no-op logger otherwise.
func (a *app) logger() (*zap.Logger, error) {
	if !a.verbose {
		return zap.NewNop(), nil
	}
	l, err := logging.New(&logging.Config{Level: "debug", Format: "console"})
	if err != nil {
		return nil, err
	}
	return l.Zap(), nil
}

// open loads the configuration and opens the lead store it names. The
// memory driver is rejected because a fresh process would see no leads.
func (a *app) open(ctx context.Context, migrate bool) (*config.Config, *repository.LeadStore, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Storage.Driver == config.DriverMemory {
		return nil, nil, fmt.Errorf("storage driver %q keeps leads in the server process; set STORAGE_DRIVER to postgres or sqlite", cfg.Storage.Driver)
	}
	logger, err := a.logger()
	if err != nil {
		return nil, nil, err
	}
	store, err := repository.Open(ctx, cfg, migrate, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}
