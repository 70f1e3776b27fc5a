package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <sheet> <label> <text>",
	Short: "Write a cell's raw text and recalculate its dependents",
	Args:  cobra.ExactArgs(3),
	RunE: func(c *cobra.Command, args []string) error {
		wb, err := loadOrCreate()
		if err != nil {
			return err
		}
		if err := wb.Set(args[0], args[1], args[2]); err != nil {
			return err
		}
		if err := save(wb); err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "set %s!%s\n", args[0], args[1])
		return nil
	},
}
