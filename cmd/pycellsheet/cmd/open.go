package cmd

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/EuphoricCatface/pycellsheet/internal/engine"
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Validate that a workbook file loads without error",
	RunE: func(c *cobra.Command, args []string) error {
		wb, err := loadOrCreate()
		if err != nil {
			return err
		}
		_ = wb
		fmt.Fprintf(c.OutOrStdout(), "ok: %s loaded under mode %s\n", cfg.WorkbookPath, cfg.Mode)
		return nil
	},
}

// loadOrCreate reads cfg.WorkbookPath if it exists, otherwise returns a
// fresh empty workbook under cfg.Mode.
func loadOrCreate() (*engine.Workbook, error) {
	data, err := os.ReadFile(cfg.WorkbookPath)
	if os.IsNotExist(err) {
		return engine.NewWorkbook(engine.ParserMode(cfg.Mode), prometheus.DefaultRegisterer, log), nil
	}
	if err != nil {
		return nil, fmt.Errorf("pycellsheet: reading %q: %w", cfg.WorkbookPath, err)
	}
	return engine.LoadWorkbook(string(data), prometheus.DefaultRegisterer, log)
}

func save(wb *engine.Workbook) error {
	return os.WriteFile(cfg.WorkbookPath, []byte(wb.Serialize()), 0o644)
}
