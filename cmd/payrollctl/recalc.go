package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"tutordesk/internal/domain/payroll"
	"tutordesk/internal/platform/config"
	"tutordesk/internal/platform/db"
)

func newRecalcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recalc <payslipID>",
		Short: "Recalculate a stored payslip against DATABASE_URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			cfg := config.Load()
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			path, _ := cmd.Flags().GetString("table")
			if path == "" {
				path = cfg.TaxTableFile
			}
			table, err := payroll.LoadTaxTable(path)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := db.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := payroll.NewStore(pool)
			svc := payroll.NewService(store, payroll.NewReconciler(table, store))
			p, err := svc.Recalculate(ctx, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p.Summary())
		},
	}
}
