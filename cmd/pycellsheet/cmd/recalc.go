package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Force full recalculation of every dirty cell",
	RunE: func(c *cobra.Command, args []string) error {
		wb, err := loadOrCreate()
		if err != nil {
			return err
		}

		if cfg.MetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Warn("metrics server stopped", zapErrField(err))
				}
			}()
			defer srv.Close()
		}

		wb.RecalcAll(context.Background())
		if err := save(wb); err != nil {
			return err
		}
		fmt.Fprintln(c.OutOrStdout(), "recalculated")
		return nil
	},
}
