package main

import (
	"github.com/spf13/cobra"

	"github.com/platinummonkey/huddle/pkg/database"
	"github.com/platinummonkey/huddle/pkg/observability"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := cfg.Observability.NewLogger()
			ctx := observability.WithLogger(cmd.Context(), logger)

			db, err := database.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := database.Migrate(ctx, db)
			if err != nil {
				return err
			}
			logger.WithField("applied", n).Info("migrations complete")
			return nil
		},
	}
}
