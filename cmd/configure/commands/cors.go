package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benvon/smart-agenda/internal/database"
	"github.com/benvon/smart-agenda/internal/models"
)

// NewCorsCmd creates the cors command with list and set subcommands.
func NewCorsCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage CORS configuration",
		Long:  "List or update CORS allowed origins and options (stored in database).",
	}
	cmd.AddCommand(newCorsListCmd(opts), newCorsSetCmd(opts))
	return cmd
}

func newCorsListCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current CORS configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			db, _, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			c, err := database.NewCorsConfigRepository(db).Get(ctx)
			if err != nil {
				return fmt.Errorf("get cors config: %w", err)
			}
			out := cmd.OutOrStdout()
			if c == nil {
				fmt.Fprintln(out, mutedStyle.Render("No CORS configuration in database. Use 'cors set' to add one."))
				return nil
			}
			fmt.Fprintln(out, titleStyle.Render("CORS configuration"))
			fmt.Fprintln(out, labelValue("Allowed origins", strings.Join(database.AllowedOriginsSlice(c.AllowedOrigins), ", ")))
			fmt.Fprintln(out, labelValue("Allow credentials", c.AllowCredentials))
			fmt.Fprintln(out, labelValue("Max-Age", c.MaxAge))
			return nil
		},
	}
}

func newCorsSetCmd(opts *Options) *cobra.Command {
	var (
		origins    string
		allowCreds bool
		maxAge     int
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set CORS configuration",
		Long:  "Update CORS allowed origins (comma-separated). Running servers pick the change up on their next reload.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			origins = strings.TrimSpace(origins)
			if origins == "" {
				return fmt.Errorf("--origins is required (comma-separated list)")
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			db, _, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			c := &models.CorsConfig{
				AllowedOrigins:   origins,
				AllowCredentials: allowCreds,
				MaxAge:           maxAge,
			}
			if err := database.NewCorsConfigRepository(db).Set(ctx, c); err != nil {
				return fmt.Errorf("set cors config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), goodStyle.Render("CORS configuration updated."))
			return nil
		},
	}
	cmd.Flags().StringVar(&origins, "origins", "", "Comma-separated allowed origins (required)")
	cmd.Flags().BoolVar(&allowCreds, "allow-credentials", true, "Allow credentials")
	cmd.Flags().IntVar(&maxAge, "max-age", 86400, "Access-Control-Max-Age (seconds)")
	return cmd
}
