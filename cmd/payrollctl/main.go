package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "payrollctl",
		Short:         "Tutor payroll tools",
		Long:          "Inspect tax tables, replay a tax year of lessons offline and recalculate stored payslips.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("table", "", "tax table YAML file (defaults to the built-in table)")
	root.AddCommand(newTaxCmd(), newSimulateCmd(), newRecalcCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
