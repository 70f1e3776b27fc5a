package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EuphoricCatface/pycellsheet/internal/engine"
)

var dirtyCmd = &cobra.Command{
	Use:   "dirty",
	Short: "List every cell currently marked dirty",
	RunE: func(c *cobra.Command, args []string) error {
		wb, err := loadOrCreate()
		if err != nil {
			return err
		}
		for _, addr := range wb.DirtyCells() {
			fmt.Fprintf(c.OutOrStdout(), "sheet=%d %s\n", addr.Sheet, engine.LabelOf(addr.Row, addr.Col))
		}
		return nil
	},
}
