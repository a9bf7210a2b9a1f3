// Package cmd holds the fitly command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raushankrgupta/fitly-tryon/config"
	"github.com/raushankrgupta/fitly-tryon/utils"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fitly",
		Short: "Virtual try-on backend",
		Long: `Fitly serves the virtual try-on pages and their API: sign in, pick a
photo and a garment, run the try-on, and keep the looks you like in a
wardrobe.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadConfig()
			if err := utils.InitLogger(config.Env); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = utils.Log.Sync()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newBucketsCmd())
	cmd.AddCommand(newGarmentCmd())

	return cmd
}
