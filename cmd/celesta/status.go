package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/celesta-db/celesta/internal/syscat"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print each grain's current celesta.grains row",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ad, db, closeFn, err := openAdaptor(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		cur, err := ad.OpenGrainsCursor(ctx, tx, cfg.SystemGrain)
		if err != nil {
			return err
		}
		if err := cur.Init(ctx); err != nil {
			return err
		}

		fmt.Printf("%-24s %-12s %-10s %10s %10s\n", "GRAIN", "VERSION", "STATE", "LENGTH", "CHECKSUM")
		for {
			ok, err := cur.NextInSet(ctx)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			row := cur.Get()
			fmt.Printf("%-24s %-12s %-10s %10d %08X\n", row.ID, row.Version, row.State, row.Length, row.Checksum)
			if row.State == syscat.StateError {
				fmt.Printf("  error: %s\n", row.Message)
			}
		}
		return nil
	},
}
