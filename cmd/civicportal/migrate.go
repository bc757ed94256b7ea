package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"civicportal/internal/config"
	"civicportal/internal/db"
	"civicportal/internal/logging"
)

var schemaDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the session schema to the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.DBDSN == "" {
			return errors.New("migrate: no database configured (set db_dsn or PORTAL_DB_DSN)")
		}
		logger := logging.New(cfg.LogLevel, cfg.LogFormat)

		dbConn, err := db.Open(cmd.Context(), cfg.DBDSN)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer dbConn.Close()

		applied, err := db.Migrate(cmd.Context(), dbConn, schemaDir)
		if err != nil {
			return err
		}
		logger.Info("schema applied", "dir", schemaDir, "files", applied)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&schemaDir, "schema-dir", "sql", "directory holding the .sql migrations")
}
