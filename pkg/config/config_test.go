package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Partition.Timeout != 120*time.Second {
		t.Errorf("partition timeout = %v, want 120s", cfg.Partition.Timeout)
	}
	if cfg.Storage.Root != "./data/uploads" {
		t.Errorf("storage root = %q", cfg.Storage.Root)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"http://localhost:3000"}) {
		t.Errorf("allowed origins = %v", cfg.CORS.AllowedOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clausecop.yaml")
	data := []byte(`
server:
  port: 9001
partition:
  url: http://partition.local/general/v0/general
  apiKey: secret
  timeout: 45s
storage:
  root: /var/lib/clausecop
cors:
  allowedOrigins:
    - https://app.example.com
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Partition.APIKey != "secret" || cfg.Partition.Timeout != 45*time.Second {
		t.Errorf("partition = %+v", cfg.Partition)
	}
	if cfg.Storage.Root != "/var/lib/clausecop" {
		t.Errorf("storage root = %q", cfg.Storage.Root)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://app.example.com"}) {
		t.Errorf("allowed origins = %v", cfg.CORS.AllowedOrigins)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Postgres.Database != "clausecop" {
		t.Errorf("postgres database = %q", cfg.Postgres.Database)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CC_PARTITION_API_KEY", "from-env")
	t.Setenv("CC_PARTITION_TIMEOUT", "2m")
	t.Setenv("CC_CORS_ORIGINS", " https://a.example , ,https://b.example ")
	t.Setenv("CC_SERVER_PORT", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Partition.APIKey != "from-env" {
		t.Errorf("api key = %q", cfg.Partition.APIKey)
	}
	if cfg.Partition.Timeout != 2*time.Minute {
		t.Errorf("timeout = %v", cfg.Partition.Timeout)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, want) {
		t.Errorf("origins = %v, want %v", cfg.CORS.AllowedOrigins, want)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("invalid port override should be ignored, got %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Partition.URL = ""
	cfg.Storage.Root = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}
