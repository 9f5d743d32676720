// Package commands implements the agenda-configure CLI
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/benvon/smart-agenda/internal/config"
	"github.com/benvon/smart-agenda/internal/database"
)

// Options carries the persistent flags shared by every subcommand
type Options struct {
	ConfigFile string
	Timeout    time.Duration
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &Options{}
	root := &cobra.Command{
		Use:           "agenda-configure",
		Short:         "Configuration tool for the Smart Agenda API",
		Long:          "CLI tool for migrating the database, checking dependencies, tuning CORS and rate limits, and managing habit cadences.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "TOML config file (defaults to $"+config.ConfigFileEnv+")")
	root.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Timeout for each command")

	root.AddCommand(
		NewMigrateCmd(opts),
		NewCheckCmd(opts),
		NewCorsCmd(opts),
		NewRatelimitCmd(opts),
		NewHabitsCmd(opts),
		NewAgendaCmd(opts),
	)
	return root
}

func (o *Options) loadConfig() (*config.Config, error) {
	if o.ConfigFile != "" {
		return config.LoadFile(o.ConfigFile)
	}
	return config.Load()
}

// context returns a command context bounded by --timeout
func (o *Options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if o.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.Timeout)
}

// openDB loads config, connects and migrates. Callers close the DB.
func (o *Options) openDB(ctx context.Context) (*database.DB, *config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, cfg, nil
}
