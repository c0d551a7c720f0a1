package main

import (
	"fmt"

	"github.com/frak/beam/internal/db"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long:  "Creates all tables if they do not exist, applies schema changes, and stamps the schema version. Safe to run multiple times.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(gormDB); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema migrated to version %d\n", db.SchemaVersion)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "beam.yaml", "path to Beam config file")
	return cmd
}
