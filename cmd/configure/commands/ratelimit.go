package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benvon/smart-agenda/internal/database"
	"github.com/benvon/smart-agenda/internal/middleware"
	"github.com/benvon/smart-agenda/internal/models"
)

// NewRatelimitCmd creates the ratelimit command with list and set subcommands.
func NewRatelimitCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limit configuration",
		Long:  "List or update the per-tenant rate limit (e.g. 5-S, 100-M). Stored in database.",
	}
	cmd.AddCommand(newRatelimitListCmd(opts), newRatelimitSetCmd(opts))
	return cmd
}

func newRatelimitListCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current rate limit configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			db, _, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			c, err := database.NewRatelimitConfigRepository(db).Get(ctx)
			if err != nil {
				return fmt.Errorf("get ratelimit config: %w", err)
			}
			out := cmd.OutOrStdout()
			if c == nil {
				fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("No rate limit in database; servers use the default %s.", middleware.DefaultRatelimitRate)))
				return nil
			}
			fmt.Fprintln(out, titleStyle.Render("Rate limit configuration"))
			fmt.Fprintln(out, labelValue("Rate", c.Rate))
			return nil
		},
	}
}

func newRatelimitSetCmd(opts *Options) *cobra.Command {
	var rate string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set rate limit configuration",
		Long:  "Update the rate limit (e.g. 5-S, 100-M, 1000-H). Running servers pick the change up on their next reload.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rate = strings.TrimSpace(rate)
			if rate == "" {
				return fmt.Errorf("--rate is required (e.g. 5-S, 100-M)")
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			db, _, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := database.NewRatelimitConfigRepository(db).Set(ctx, &models.RatelimitConfig{Rate: rate}); err != nil {
				return fmt.Errorf("set ratelimit config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), goodStyle.Render("Rate limit configuration updated."))
			return nil
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 5-S, 100-M, 1000-H) (required)")
	return cmd
}
