package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/config"
	"github.com/benvon/smart-agenda/internal/database"
	"github.com/benvon/smart-agenda/internal/models"
	"github.com/benvon/smart-agenda/internal/registry"
	"github.com/benvon/smart-agenda/internal/services/habits"
)

// NewHabitsCmd groups the habit inspection and cadence commands
func NewHabitsCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "habits",
		Short: "Inspect pending habits and manage cadences",
	}
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage habit cadences",
	}
	configCmd.AddCommand(newHabitConfigListCmd(opts), newHabitConfigSetCmd(opts))
	cmd.AddCommand(newHabitsPendingCmd(opts), configCmd)
	return cmd
}

func parseTenant(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("--tenant must be a non-nil UUID")
	}
	return id, nil
}

// habitService builds an uncached service. The API's cache entries expire on
// their own TTL so writes made here show up there shortly after.
func habitService(db *database.DB, cfg *config.Config) *habits.Service {
	return habits.NewService(database.NewHabitRepository(db), registry.Default(), nil, cfg.SnapshotCacheTTL, zap.NewNop())
}

func newHabitsPendingCmd(opts *Options) *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List habits still due in their current period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := parseTenant(tenant)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			db, cfg, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			now := time.Now().In(cfg.Location())
			svc := habitService(db, cfg)
			entries, err := svc.Pending(ctx, tenantID, now)
			if err != nil {
				return fmt.Errorf("list pending habits: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderPending(calendar.Key(calendar.Today(now)), entries, svc.Registry()))
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant UUID (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newHabitConfigListCmd(opts *Options) *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the cadence of every habit item",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := parseTenant(tenant)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			db, _, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			configs, err := database.NewHabitRepository(db).ListConfigs(ctx, tenantID)
			if err != nil {
				return fmt.Errorf("list habit configs: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderConfigs(registry.Default(), configs))
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant UUID (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newHabitConfigSetCmd(opts *Options) *cobra.Command {
	var (
		tenant    string
		section   string
		item      string
		cadence   string
		period    string
		frequency int
		inactive  bool
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the cadence of one habit item",
		Example: "  agenda-configure habits config set --tenant <uuid> --section fitness --item gym --type weekly --frequency 3",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := parseTenant(tenant)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			db, cfg, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			want := models.RecurrenceConfig{
				Active:    !inactive,
				Frequency: frequency,
				Type:      models.CadenceType(cadence),
				Period:    models.CadencePeriod(period),
			}
			saved, err := habitService(db, cfg).SetConfig(ctx, tenantID, models.Section(section), item, want, time.Now().In(cfg.Location()))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, goodStyle.Render(fmt.Sprintf("Updated %s/%s.", section, item)))
			fmt.Fprintln(out, labelValue("Cadence", fmt.Sprintf("%d× %s (%s)", saved.Frequency, saved.Type, saved.Period)))
			fmt.Fprintln(out, labelValue("Active", saved.Active))
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant UUID (required)")
	cmd.Flags().StringVar(&section, "section", "", "Habit section, e.g. fitness (required)")
	cmd.Flags().StringVar(&item, "item", "", "Habit item id, e.g. gym (required)")
	cmd.Flags().StringVar(&cadence, "type", string(models.CadenceDaily), "Cadence type: daily, weekly or monthly")
	cmd.Flags().StringVar(&period, "period", "", "Counting period; defaults from --type")
	cmd.Flags().IntVar(&frequency, "frequency", 1, "Completions required per period")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Store the cadence but hide the item")
	for _, name := range []string{"tenant", "section", "item"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
