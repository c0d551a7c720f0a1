package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Tag != "beam" {
		t.Errorf("tag = %q, want beam", cfg.Tag)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("listen = %q, want :8080", cfg.Listen)
	}
	if cfg.Database.Backend != "sqlite" || cfg.Database.Path != "beam.db" {
		t.Errorf("database = %+v, want sqlite beam.db", cfg.Database)
	}
	if cfg.Auth.Prefix != "beam" {
		t.Errorf("auth prefix = %q, want tag default", cfg.Auth.Prefix)
	}
	if cfg.Auth.ReplayWindow != 300 {
		t.Errorf("replay window = %d, want 300", cfg.Auth.ReplayWindow)
	}
}

func TestParse_Full(t *testing.T) {
	yaml := `
tag: prod-beam
listen: ":9090"
database:
  backend: mysql
  host: db.internal
  port: 3307
  database: beam
  user: beam
  password: hunter2
auth:
  prefix: hpc
  replay_window: 120
directory:
  url: https://directory.internal
ticketing:
  url: https://tickets.internal
digest:
  schedule: "0 9 * * *"
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Tag != "prod-beam" || cfg.Listen != ":9090" {
		t.Errorf("top-level = %q %q", cfg.Tag, cfg.Listen)
	}
	if cfg.Database.Backend != "mysql" || cfg.Database.Host != "db.internal" || cfg.Database.Port != 3307 {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Auth.Prefix != "hpc" || cfg.Auth.ReplayWindow != 120 {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Digest.Schedule != "0 9 * * *" {
		t.Errorf("digest schedule = %q", cfg.Digest.Schedule)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown backend", "database:\n  backend: postgres\n", "not supported"},
		{"mysql without database", "database:\n  backend: mysql\n  user: beam\n", "database.database is required"},
		{"mysql without user", "database:\n  backend: mysql\n  database: beam\n", "database.user is required"},
		{"negative window", "auth:\n  replay_window: -5\n", "must not be negative"},
		{"bad yaml", "listen: [\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beam.yaml")
	if err := os.WriteFile(path, []byte("tag: filetest\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tag != "filetest" {
		t.Errorf("tag = %q, want filetest", cfg.Tag)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load succeeded on missing file")
	}
}
