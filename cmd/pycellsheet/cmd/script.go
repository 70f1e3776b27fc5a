package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scriptDraft string

var scriptCmd = &cobra.Command{
	Use:   "script <sheet>",
	Short: "Apply a sheet's pending draft script, or set and apply one with --set",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		wb, err := loadOrCreate()
		if err != nil {
			return err
		}
		sheetName := args[0]
		if scriptDraft != "" {
			if err := wb.SetSheetDraft(sheetName, scriptDraft); err != nil {
				return err
			}
		}
		warnings, err := wb.ApplySheetScript(sheetName)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(c.ErrOrStderr(), "warning[%s]: %s\n", w.Kind, w.Message)
		}
		if err := save(wb); err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "applied script on %s\n", sheetName)
		return nil
	},
}

func init() {
	scriptCmd.Flags().StringVar(&scriptDraft, "set", "", "draft script text to set before applying")
}
