// Package cmd implements the CLI commands for amm.
package cmd

import (
	"fmt"

	"github.com/jmylchreest/amm-core/internal/config"
	"github.com/jmylchreest/amm-core/internal/observability"
	"github.com/jmylchreest/amm-core/internal/version"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "amm",
	Short:   "Personal music library manager",
	Version: version.Short(),
	Long: `amm moves audio files dropped into an import directory through a fixed
pipeline of stages — import, analysis, conversion, tagging, and sorting —
driven by a plugin registry of tasks and processors.

Configuration is loaded from a config file, AMM_-prefixed environment
variables, and defaults, in that order of precedence. Run "amm config dump"
to see every available option.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./config.yaml, /etc/amm, $HOME/.amm)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override logging.format (text, json)")
}

// loadConfig loads configuration from cfgFile and applies --log-level/
// --log-format overrides, which take precedence over both the file and
// AMM_LOGGING_* environment variables since they are the most specific
// source a caller can give.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}

// initLogging installs a provisional default logger before the command's
// own config is loaded, so early errors (e.g. a bad --config path) are
// still logged consistently with the rest of the ambient stack.
func initLogging() error {
	logger := observability.NewLogger(config.LoggingConfig{
		Level:  firstNonEmpty(logLevel, "info"),
		Format: firstNonEmpty(logFormat, "text"),
	})
	observability.SetDefault(logger)
	return nil
}

func firstNonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
