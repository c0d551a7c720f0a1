package main

import (
	"encoding/json"
	"fmt"

	"github.com/frak/beam/internal/models"
	"github.com/frak/beam/internal/notify"
	"github.com/spf13/cobra"
)

func newNotifierCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "notifier",
		Short: "Manage notification sinks",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "beam.yaml", "path to Beam config file")

	add := &cobra.Command{
		Use:   "add <name> <type> <config-json>",
		Short: "Register a notification sink (types: Slack, Discord, Webhook)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if !json.Valid([]byte(args[2])) {
				return fmt.Errorf("notifier add: config is not valid JSON")
			}
			notifier := models.Notifier{Name: args[0], Type: args[1], Config: args[2]}
			if err := gormDB.Create(&notifier).Error; err != nil {
				return fmt.Errorf("notifier add: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered notifier %s (%s)\n", notifier.Name, notifier.Type)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered notification sinks",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			var notifiers []models.Notifier
			if err := gormDB.Order("name").Find(&notifiers).Error; err != nil {
				return fmt.Errorf("notifier list: %w", err)
			}
			for _, n := range notifiers {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", n.Name, n.Type)
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a notification sink",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := gormDB.Delete(&models.Notifier{}, "name = ?", args[0]).Error; err != nil {
				return fmt.Errorf("notifier delete: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted notifier %s\n", args[0])
			return nil
		},
	}

	test := &cobra.Command{
		Use:   "test [message]",
		Short: "Send a test notification to every configured sink",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			message := "test notification"
			if len(args) == 1 {
				message = args[0]
			}
			dispatcher := notify.NewDispatcher(gormDB, cfg.Tag)
			dispatcher.Dispatch(notify.Event{Type: "Test", Message: message})
			fmt.Fprintln(cmd.OutOrStdout(), "Dispatched test notification")
			return nil
		},
	}

	cmd.AddCommand(add, list, remove, test)
	return cmd
}
