// Package config defines pycellsheet's on-disk/env-sourced settings,
// loaded through koanf the way the CLI command tree expects: file
// provider first, environment overrides second, explicit flags last.
package config

// Config is the root settings struct, unmarshaled from a YAML file via
// koanf's yaml parser plus PYCELLSHEET_-prefixed environment overrides.
type Config struct {
	// WorkbookPath is the default file a command operates on when
	// --file is not given on the command line.
	WorkbookPath string `koanf:"workbook_path"`
	// Mode is the default expression-parser mode for newly created
	// workbooks (see engine.ParserMode).
	Mode string `koanf:"mode"`
	// MetricsAddr, if non-empty, serves Prometheus metrics on this
	// address for the duration of a long-running command (e.g. recalc
	// on a large workbook).
	MetricsAddr string `koanf:"metrics_addr"`
	// LogLevel is a zapcore level name: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
}

// Default returns the built-in defaults, applied before the file and
// environment providers are loaded.
func Default() Config {
	return Config{
		WorkbookPath: "workbook.pycs",
		Mode:         "mixed",
		LogLevel:     "info",
	}
}
