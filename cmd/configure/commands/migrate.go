package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCmd applies the database schema
func NewMigrateCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			db, _, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s).\n", db.Dialect())
			return nil
		},
	}
}
