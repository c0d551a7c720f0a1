package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frak/beam/internal/api"
	"github.com/frak/beam/internal/auth"
	"github.com/frak/beam/internal/cases"
	"github.com/frak/beam/internal/db"
	"github.com/frak/beam/internal/directory"
	"github.com/frak/beam/internal/notify"
	"github.com/frak/beam/internal/ticketing"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the manager HTTP server",
		Long:  "Starts the component API and dashboard XHR endpoints, plus the scheduled digest if one is configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "beam.yaml", "path to Beam config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	current, err := db.SchemaCurrent(gormDB)
	if err != nil {
		return fmt.Errorf("serve: check schema: %w (run 'beam migrate')", err)
	}
	if !current {
		return fmt.Errorf("serve: schema is out of date, run 'beam migrate'")
	}

	registry := cases.NewRegistry()
	if err := cases.RegisterBuiltins(registry); err != nil {
		return err
	}
	engine := cases.NewEngine(gormDB, registry)
	verifier := auth.NewVerifier(gormDB, time.Duration(cfg.Auth.ReplayWindow)*time.Second)
	dispatcher := notify.NewDispatcher(gormDB, cfg.Tag)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	digester := notify.NewDigester(gormDB, dispatcher, cfg.Digest.Schedule)
	if err := digester.Start(ctx); err != nil {
		return err
	}

	server := &api.Server{
		DB:         gormDB,
		Engine:     engine,
		Verifier:   verifier,
		Dispatcher: dispatcher,
		Directory:  directory.NewClient(cfg.Directory.URL),
		Ticketing:  ticketing.NewClient(cfg.Ticketing.URL),
		Prefix:     cfg.Auth.Prefix,
	}
	return api.Start(ctx, server, cfg.Listen, cmd.OutOrStdout())
}
