package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/celesta-db/celesta/internal/updater"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Bring the target database's schema in line with the configured score",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := cfg.NewLogger()

		ad, db, closeFn, err := openAdaptor(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		score, err := loadScore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("load score: %w", err)
		}

		up := updater.New(db, ad, cfg.SystemGrain, log)
		if err := up.UpdateSystemSchema(ctx, cfg.ForceDDInitialize); err != nil {
			return fmt.Errorf("update system schema: %w", err)
		}
		if err := up.UpdateDb(ctx, score); err != nil {
			return fmt.Errorf("update db: %w", err)
		}

		fmt.Println("upgrade complete")
		return nil
	},
}
