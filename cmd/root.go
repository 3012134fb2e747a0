package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lease-abstract/internal/config"
)

var (
	cfg *config.Config

	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "lease-abstract",
	Short: "Lease extraction, validation and accuracy scoring",
	Long:  "Extracts structured lease abstracts from PDFs with Claude, normalizes and validates every field, and scores extraction accuracy against a gold-standard dataset.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyLogFlags(cmd, &c.Log)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configPath, "config", "", "config file (default ./config.yaml)")
	f.StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	f.StringVar(&logFormat, "log-format", "", "log format override (json or console)")
}

// applyLogFlags lets explicitly set flags win over file and env settings.
func applyLogFlags(cmd *cobra.Command, lc *config.LogConfig) {
	if cmd.Flags().Changed("log-level") {
		lc.Level = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		lc.Format = logFormat
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
