package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"coffeeroaster/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	wantDB := filepath.Join(tempHome, ".local", "share", "coffeeroaster", "coffeeroaster.db")
	if cfg.Storage.SQLitePath != wantDB {
		t.Fatalf("unexpected sqlite path: got %q want %q", cfg.Storage.SQLitePath, wantDB)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("unexpected storage driver %q", cfg.Storage.Driver)
	}
	if cfg.Blob.Driver != "fs" || !strings.HasPrefix(cfg.Blob.FSRoot, tempHome) {
		t.Fatalf("unexpected blob config: %+v", cfg.Blob)
	}
	if cfg.Server.Bind != "127.0.0.1:8420" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.Geocode.Timeout() != 10*time.Second {
		t.Fatalf("expected 10s geocode timeout, got %s", cfg.Geocode.Timeout())
	}
	if cfg.Roaster.VATRate != 0.15 {
		t.Fatalf("expected default VAT 0.15, got %v", cfg.Roaster.VATRate)
	}
	if cfg.Mail.Enabled() {
		t.Fatal("expected mail disabled by default")
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	content := []byte(`[storage]
driver = "memory"

[logging]
format = "JSON"
level = "DEBUG"

[machines]
watch_dir = "~/drop"
extensions = ["alog", " .CSV "]

[export]
key_prefix = "/sage/"
recipients = ["  finance@example.com ", ""]
`)
	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected %q to be loaded, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("unexpected driver %q", cfg.Storage.Driver)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
	if cfg.Machines.WatchDir != filepath.Join(tempHome, "drop") {
		t.Fatalf("unexpected watch dir %q", cfg.Machines.WatchDir)
	}
	if got := strings.Join(cfg.Machines.Extensions, ","); got != ".alog,.csv" {
		t.Fatalf("unexpected extensions %q", got)
	}
	if cfg.Export.KeyPrefix != "sage" {
		t.Fatalf("unexpected key prefix %q", cfg.Export.KeyPrefix)
	}
	if len(cfg.Export.Recipients) != 1 || cfg.Export.Recipients[0] != "finance@example.com" {
		t.Fatalf("unexpected recipients %v", cfg.Export.Recipients)
	}
}

func TestEnvironmentOverridesStorage(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.EnvStorageDriver, "postgres")
	t.Setenv(config.EnvPostgresDSN, "postgres://db/roastery")
	t.Setenv(config.EnvBlobS3PathStyle, "TRUE")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.PostgresDSN != "postgres://db/roastery" {
		t.Fatalf("expected env storage overrides, got %+v", cfg.Storage)
	}
	if !cfg.Blob.S3PathStyle {
		t.Fatal("expected path style from env")
	}
}

func TestValidateRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown storage", func(c *config.Config) { c.Storage.Driver = "mongo" }, "storage.driver"},
		{"postgres without dsn", func(c *config.Config) { c.Storage.Driver = "postgres" }, "storage.postgres_dsn"},
		{"s3 without bucket", func(c *config.Config) { c.Blob.Driver = "s3" }, "blob.s3_bucket"},
		{"half credentials", func(c *config.Config) {
			c.Blob.Driver = "s3"
			c.Blob.S3Bucket = "b"
			c.Blob.S3AccessKeyID = "id"
		}, "must be set together"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"vat out of range", func(c *config.Config) { c.Roaster.VATRate = 15 }, "roaster.vat_rate"},
		{"email without relay", func(c *config.Config) { c.Export.Email = true }, "mail.host"},
		{"email without sender", func(c *config.Config) {
			c.Export.Email = true
			c.Mail.Host = "smtp.example.com"
		}, "mail.from"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestCreateSampleProducesParsableConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	path := filepath.Join(tempHome, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if parsed.Server.Bind != config.Default().Server.Bind {
		t.Fatalf("sample bind %q differs from default", parsed.Server.Bind)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample should load: %v", err)
	}
}

func TestExpandPathHandlesTilde(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	got, err := config.ExpandPath("~/logs")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(tempHome, "logs") {
		t.Fatalf("unexpected expansion %q", got)
	}
	if got, _ := config.ExpandPath(""); got != "" {
		t.Fatalf("expected empty path unchanged, got %q", got)
	}
}
