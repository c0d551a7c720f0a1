package main

import (
	"fmt"

	"github.com/frak/beam/internal/models"
	"github.com/spf13/cobra"
)

func newClusterCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Manage registered clusters",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "beam.yaml", "path to Beam config file")

	add := &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Register a cluster",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			cluster := models.Cluster{ID: args[0], Name: args[1]}
			if err := gormDB.Create(&cluster).Error; err != nil {
				return fmt.Errorf("cluster add: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered cluster %s (%s)\n", cluster.ID, cluster.Name)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered clusters",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			var clusters []models.Cluster
			if err := gormDB.Order("id").Find(&clusters).Error; err != nil {
				return fmt.Errorf("cluster list: %w", err)
			}
			for _, cluster := range clusters {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", cluster.ID, cluster.Name)
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a cluster with no components or cases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			var components, reportables int64
			if err := gormDB.Model(&models.Component{}).Where("cluster = ?", args[0]).Count(&components).Error; err != nil {
				return fmt.Errorf("cluster delete: %w", err)
			}
			if err := gormDB.Model(&models.Reportable{}).Where("cluster = ?", args[0]).Count(&reportables).Error; err != nil {
				return fmt.Errorf("cluster delete: %w", err)
			}
			if components > 0 || reportables > 0 {
				return fmt.Errorf("cluster delete: %s is still referenced by %d components and %d cases", args[0], components, reportables)
			}
			if err := gormDB.Delete(&models.Cluster{}, "id = ?", args[0]).Error; err != nil {
				return fmt.Errorf("cluster delete: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted cluster %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}
