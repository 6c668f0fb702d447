// Command meetgrid builds a weekly meeting schedule from the schedule
// documents of several authors.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/karlla1220/meetgrid/config"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "meetgrid",
	Short: "Build one consistent meeting schedule from many schedule documents",
	Long: `meetgrid reads the schedule tables of a primary document and any number of
detail documents (DOCX, XLSX, ODT or HTML), reconciles their sessions slot by slot
and lays the result out on a time grid.

Example:
  meetgrid build --primary RAN1#124_main.docx --detail vice.docx --out schedule.json`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		zc := zap.NewProductionConfig()
		level, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("logging.level: %w", err)
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		zc.Level = zap.NewAtomicLevelAt(level)
		if cfg.Logging.Encoding != "" {
			zc.Encoding = cfg.Logging.Encoding
		}
		if zc.Encoding == "console" {
			zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("MEETGRID_CONFIG"), "meeting configuration file (YAML or TOML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
