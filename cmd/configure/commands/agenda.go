package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/database"
	"github.com/benvon/smart-agenda/internal/models"
	"github.com/benvon/smart-agenda/internal/services/agenda"
	"github.com/benvon/smart-agenda/internal/validation"
)

// NewAgendaCmd prints a tenant's open tasks grouped into buckets
func NewAgendaCmd(opts *Options) *cobra.Command {
	var tenant, view string
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Show a tenant's agenda",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := parseTenant(tenant)
			if err != nil {
				return err
			}
			if err := validation.ValidateAgendaView(view); err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			db, cfg, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			tasks, err := database.NewTaskRepository(db).ListOpen(ctx, tenantID)
			if err != nil {
				return fmt.Errorf("list open tasks: %w", err)
			}
			now := time.Now().In(cfg.Location())
			v := models.AgendaView(view)
			fmt.Fprint(cmd.OutOrStdout(), renderAgenda(v, calendar.Key(calendar.Today(now)), agenda.View(tasks, v, now)))
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant UUID (required)")
	cmd.Flags().StringVar(&view, "view", string(models.AgendaViewNow), "Agenda view: now or later")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
