package store

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	t.Run("DefaultsToSQLite", func(t *testing.T) {
		cfg := &Config{}
		cfg.ApplyDefaults()
		if cfg.Type != DatabaseTypeSQLite {
			t.Errorf("Type = %q, want sqlite", cfg.Type)
		}
		if filepath.Base(cfg.SQLite.Path) != "corevisor.db" {
			t.Errorf("SQLite.Path = %q", cfg.SQLite.Path)
		}
	})

	t.Run("UsesXDGConfigHome", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("XDG paths are not used on windows")
		}
		tmpDir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", tmpDir)

		cfg := &Config{Type: DatabaseTypeBadger}
		cfg.ApplyDefaults()

		expected := filepath.Join(tmpDir, "corevisor", "badger")
		if cfg.Badger.Dir != expected {
			t.Errorf("Badger.Dir = %q, expected %q", cfg.Badger.Dir, expected)
		}
	})

	t.Run("PostgresDefaults", func(t *testing.T) {
		cfg := &Config{Type: DatabaseTypePostgres}
		cfg.ApplyDefaults()
		if cfg.Postgres.Port != 5432 || cfg.Postgres.SSLMode != "disable" {
			t.Errorf("unexpected postgres defaults: %+v", cfg.Postgres)
		}
	})

	t.Run("InMemoryBadgerKeepsEmptyDir", func(t *testing.T) {
		cfg := &Config{Type: DatabaseTypeBadger, Badger: BadgerConfig{InMemory: true}}
		cfg.ApplyDefaults()
		if cfg.Badger.Dir != "" {
			t.Errorf("Badger.Dir = %q, want empty", cfg.Badger.Dir)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"sqlite ok", Config{Type: DatabaseTypeSQLite, SQLite: SQLiteConfig{Path: "x.db"}}, ""},
		{"sqlite no path", Config{Type: DatabaseTypeSQLite}, "sqlite path"},
		{"postgres no host", Config{Type: DatabaseTypePostgres, Postgres: PostgresConfig{Database: "d", User: "u"}}, "host"},
		{"postgres ok", Config{Type: DatabaseTypePostgres, Postgres: PostgresConfig{Host: "h", Database: "d", User: "u"}}, ""},
		{"badger no dir", Config{Type: DatabaseTypeBadger}, "badger dir"},
		{"unknown", Config{Type: "mongo"}, "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestPostgresConnectionStrings(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5433, Database: "corevisor", User: "cv", Password: "pw", SSLMode: "require"}

	if got, want := cfg.DSN(), "host=db port=5433 user=cv password=pw dbname=corevisor sslmode=require"; got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
	if got, want := cfg.URL(), "postgres://cv:pw@db:5433/corevisor?sslmode=require"; got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}
