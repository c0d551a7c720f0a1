package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/frak/beam/internal/auth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newKeyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage component API credentials",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "beam.yaml", "path to Beam config file")

	var secret string
	create := &cobra.Command{
		Use:   "create <access> <component>",
		Short: "Create a credential for a component",
		Long:  "Creates an HMAC credential bound to a component. The secret is prompted for unless --secret is given.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if secret == "" {
				secret, err = promptSecret(cmd)
				if err != nil {
					return err
				}
			}
			if secret == "" {
				return fmt.Errorf("key create: secret must not be empty")
			}
			if err := auth.CreateKey(gormDB, args[0], secret, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created key %s for %s\n", args[0], args[1])
			return nil
		},
	}
	create.Flags().StringVar(&secret, "secret", "", "secret key (prompted when omitted)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List credentials (secrets are never shown)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			keys, err := auth.ListKeys(gormDB)
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-24s %s\n", key.Access, key.Component, key.Cluster)
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "delete <access>",
		Short: "Delete a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := auth.DeleteKey(gormDB, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted key %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(create, list, remove)
	return cmd
}

// promptSecret reads the secret without echo when stdin is a terminal, and
// falls back to a plain line read otherwise so scripts can pipe it in.
func promptSecret(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.OutOrStdout(), "Secret: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("key create: read secret: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	var line string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &line); err != nil {
		return "", fmt.Errorf("key create: read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}
