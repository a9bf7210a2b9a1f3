package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raushankrgupta/fitly-tryon/config"
	"github.com/raushankrgupta/fitly-tryon/utils"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables and indexes",
		Long: `Creates the identities, profiles and outfits tables on Postgres, or the
email and wardrobe indexes on MongoDB. Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close(context.Background())

			if err := migrate(cmd.Context(), db); err != nil {
				return err
			}
			utils.Log.Info("Migration complete", zap.String("backend", config.StoreBackend))
			return nil
		},
	}
}
