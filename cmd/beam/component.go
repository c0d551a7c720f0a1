package main

import (
	"fmt"
	"time"

	"github.com/frak/beam/internal/auth"
	"github.com/frak/beam/internal/models"
	"github.com/spf13/cobra"
)

func newComponentCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "component",
		Short: "Manage cluster components",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "beam.yaml", "path to Beam config file")

	add := &cobra.Command{
		Use:   "add <cluster> <service> <name>",
		Short: "Register a component; its id becomes {cluster}_{service}",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			var count int64
			if err := gormDB.Model(&models.Cluster{}).Where("id = ?", args[0]).Count(&count).Error; err != nil {
				return fmt.Errorf("component add: %w", err)
			}
			if count == 0 {
				return fmt.Errorf("component add: unknown cluster %q", args[0])
			}
			comp := models.Component{
				ID:      args[0] + "_" + args[1],
				Name:    args[2],
				Cluster: args[0],
				Service: args[1],
			}
			if err := gormDB.Create(&comp).Error; err != nil {
				return fmt.Errorf("component add: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered component %s (%s)\n", comp.ID, comp.Name)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List components with the time each was last heard from",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			var components []models.Component
			if err := gormDB.Order("id").Find(&components).Error; err != nil {
				return fmt.Errorf("component list: %w", err)
			}
			for _, comp := range components {
				heard, err := auth.LastHeard(gormDB, comp.ID)
				if err != nil {
					return err
				}
				when := "never"
				if heard != nil {
					when = time.Unix(*heard, 0).Format(time.RFC3339)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-24s last heard %s\n", comp.ID, comp.Name, when)
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a component with no credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			var keys int64
			if err := gormDB.Model(&models.APIKey{}).Where("component = ?", args[0]).Count(&keys).Error; err != nil {
				return fmt.Errorf("component delete: %w", err)
			}
			if keys > 0 {
				return fmt.Errorf("component delete: %s still has %d credentials", args[0], keys)
			}
			if err := gormDB.Delete(&models.Component{}, "id = ?", args[0]).Error; err != nil {
				return fmt.Errorf("component delete: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted component %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}
