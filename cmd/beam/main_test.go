package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "beam dev") {
		t.Errorf("expected output to contain 'beam dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()
	want := []string{"serve", "migrate", "cluster", "component", "key", "notifier", "version"}
	for _, name := range want {
		if findSubcommand(cmd, name) == nil {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}

func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, sub := range cmd.Commands() {
		if sub.Name() == name {
			return sub
		}
	}
	return nil
}

func TestExecute_ReturnsErrorCode(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"no-such-command"})
	if code := execute(cmd); code != 1 {
		t.Errorf("execute() = %d for unknown command, want 1", code)
	}
}

func TestConnectFromConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "beam.yaml")
	config := "database:\n  backend: sqlite\n  path: " + filepath.Join(dir, "beam.db") + "\n"
	if err := os.WriteFile(path, []byte(config), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, gormDB, err := connectFromConfig(path)
	if err != nil {
		t.Fatalf("connectFromConfig: %v", err)
	}
	if cfg.Tag != "beam" {
		t.Errorf("tag = %q, want default", cfg.Tag)
	}
	var one int
	if err := gormDB.Raw("SELECT 1").Scan(&one).Error; err != nil {
		t.Fatalf("SELECT 1: %v", err)
	}
}

func TestConnectFromConfig_MissingFile(t *testing.T) {
	if _, _, err := connectFromConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("connectFromConfig succeeded on missing config")
	}
}
