package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EuphoricCatface/pycellsheet/internal/engine"
)

var getCmd = &cobra.Command{
	Use:   "get <sheet> <label>",
	Short: "Evaluate and print a cell's value",
	Args:  cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		wb, err := loadOrCreate()
		if err != nil {
			return err
		}
		v, err := wb.Get(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(c.OutOrStdout(), engine.DisplayString(v))
		return nil
	},
}
