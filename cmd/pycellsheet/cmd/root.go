// Package cmd implements the pycellsheet command-line tree: one
// subcommand per Workbook Core API operation, wired through cobra the
// way the teacher's RunnableSpreadsheet chains operations, but exposed
// as discrete invocations instead of method chaining.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	pcsconfig "github.com/EuphoricCatface/pycellsheet/config"
)

var (
	cfgFile     string
	workbookPath string
	parserMode  string
	metricsAddr string
	logLevel    string

	cfg Config
	log *zap.Logger
)

// Config aliases the shared settings struct so cmd package call sites
// read naturally (cmd.Config) without a second definition.
type Config = pcsconfig.Config

// RootCmd is the top-level pycellsheet command.
var RootCmd = &cobra.Command{
	Use:   "pycellsheet",
	Short: "A headless spreadsheet recalculation engine",
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		return loadConfig()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	RootCmd.PersistentFlags().StringVar(&workbookPath, "file", "", "workbook file to operate on")
	RootCmd.PersistentFlags().StringVar(&parserMode, "mode", "", "expression parser mode (pure_pythonic|mixed|reverse_mixed|pure_spreadsheet)")
	RootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus /metrics on, empty to disable")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "zap log level (debug|info|warn|error)")

	RootCmd.AddCommand(openCmd, getCmd, setCmd, recalcCmd, scriptCmd, dirtyCmd)
}

func loadConfig() error {
	k := koanf.New(".")
	defaults := pcsconfig.Default()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"workbook_path": defaults.WorkbookPath,
		"mode":          defaults.Mode,
		"log_level":     defaults.LogLevel,
	}, "."), nil); err != nil {
		return fmt.Errorf("pycellsheet: loading default config: %w", err)
	}

	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return fmt.Errorf("pycellsheet: loading config file %q: %w", cfgFile, err)
		}
	}

	if err := k.Load(env.Provider("PYCELLSHEET_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PYCELLSHEET_"))
	}), nil); err != nil {
		return fmt.Errorf("pycellsheet: loading environment overrides: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return fmt.Errorf("pycellsheet: unmarshaling config: %w", err)
	}

	if workbookPath != "" {
		cfg.WorkbookPath = workbookPath
	}
	if parserMode != "" {
		cfg.Mode = parserMode
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return initLogger()
}

func initLogger() error {
	level := zapcore.InfoLevel
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	built, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("pycellsheet: building logger: %w", err)
	}
	log = built
	return nil
}

func zapErrField(err error) zap.Field {
	return zap.Error(err)
}

// Execute runs the command tree, writing any top-level error to stderr.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
