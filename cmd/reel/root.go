package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/reel/internal/config"
)

// Version will be set at build time
var Version = "dev"

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "reel",
	Short: "Reel analyzes the sentiment of uploaded videos",
	Long: `Reel issues presigned upload URLs, verifies uploaded videos, and runs
sentiment inference on them, charging each analysis against an account's
monthly quota.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "reel:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); REEL_* environment variables override it")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

// loadConfig resolves the configuration: file, then environment, then flags.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return cfg, nil, err
		}
	}

	logger := cfg.Log.Logger(os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
