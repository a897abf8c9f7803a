package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		// openEngine migrates on start.
		engine, err := openEngine(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		logger.Info("migrations applied", "driver", cfg.Database.Driver)
		return engine.Stop()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
