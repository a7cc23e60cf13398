package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"tutordesk/internal/domain/payroll"
)

func loadTable(cmd *cobra.Command) (payroll.TaxTable, error) {
	path, _ := cmd.Flags().GetString("table")
	return payroll.LoadTaxTable(path)
}

func newTaxCmd() *cobra.Command {
	tax := &cobra.Command{Use: "tax", Short: "Inspect the tax table"}

	tax.AddCommand(&cobra.Command{
		Use:   "annual <income>",
		Short: "Annual tax payable on an estimated annual income",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(cmd)
			if err != nil {
				return err
			}
			income, err := decimal.NewFromString(args[0])
			if err != nil || income.IsNegative() {
				return fmt.Errorf("income must be a non-negative amount, got %q", args[0])
			}
			annual := payroll.AnnualTax(table, income).Round(2)
			fmt.Fprintf(cmd.OutOrStdout(), "annual tax: %s\nmonthly:    %s\n",
				annual.StringFixed(2), annual.Div(decimal.NewFromInt(12)).Round(2).StringFixed(2))
			return nil
		},
	})

	tax.AddCommand(&cobra.Command{
		Use:   "brackets",
		Short: "Print brackets, rebate, threshold and UIF limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(cmd)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "UP TO\tRATE")
			for _, b := range table.Brackets {
				upTo := "and above"
				if b.UpTo.Valid {
					upTo = b.UpTo.Decimal.StringFixed(2)
				}
				fmt.Fprintf(w, "%s\t%s%%\n", upTo, b.Rate.Shift(2).String())
			}
			fmt.Fprintf(w, "\nprimary rebate\t%s\n", table.PrimaryRebate.StringFixed(2))
			fmt.Fprintf(w, "threshold\t%s\n", table.EffectiveThreshold().StringFixed(2))
			fmt.Fprintf(w, "uif\t%s%% up to %s\n", table.UIFRate.Shift(2).String(), table.UIFCeiling.StringFixed(2))
			return w.Flush()
		},
	})
	return tax
}
