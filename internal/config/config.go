package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the HTTP listener settings.
type Server struct {
	Bind                   string `toml:"bind"`
	ReadTimeoutSeconds     int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `toml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `toml:"shutdown_timeout_seconds"`
	MetricsEnabled         bool   `toml:"metrics_enabled"`
}

// Storage selects the document store backend.
type Storage struct {
	Driver      string `toml:"driver"`
	SQLitePath  string `toml:"sqlite_path"`
	PostgresDSN string `toml:"postgres_dsn"`
}

// Blob selects where attachments and export artifacts are kept.
type Blob struct {
	Driver            string `toml:"driver"`
	FSRoot            string `toml:"fs_root"`
	S3Bucket          string `toml:"s3_bucket"`
	S3Region          string `toml:"s3_region"`
	S3Endpoint        string `toml:"s3_endpoint"`
	S3PathStyle       bool   `toml:"s3_path_style"`
	S3AccessKeyID     string `toml:"s3_access_key_id"`
	S3SecretAccessKey string `toml:"s3_secret_access_key"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Roaster seeds the settings document on first start.
type Roaster struct {
	DefaultCompany           string  `toml:"default_company"`
	DefaultCurrency          string  `toml:"default_currency"`
	VATRate                  float64 `toml:"vat_rate"`
	StandardSellingPriceList string  `toml:"standard_selling_price_list"`
	AutoCreateRoastLog       bool    `toml:"auto_create_roast_log"`
	MachineWebhookToken      string  `toml:"machine_webhook_token"`
}

// Export contains settings for the monthly accounting export.
type Export struct {
	OutputDir string `toml:"output_dir"`
	KeyPrefix string `toml:"key_prefix"`
	LockPath  string `toml:"lock_path"`
	QueueSize int    `toml:"queue_size"`
	// RetentionHours is how long finished jobs stay queryable over HTTP.
	RetentionHours int      `toml:"retention_hours"`
	Email          bool     `toml:"email"`
	Recipients     []string `toml:"recipients"`
}

// Mail contains SMTP delivery settings.
type Mail struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

// Machines configures the roaster log drop directory.
type Machines struct {
	WatchDir   string   `toml:"watch_dir"`
	DebounceMS int      `toml:"debounce_ms"`
	Extensions []string `toml:"extensions"`
	Adapter    string   `toml:"adapter"`
}

// Geocode configures the reverse geocoding client.
type Geocode struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Config encapsulates all configuration values for roasterd.
//
// Configuration sections by subsystem:
//   - Server: HTTP bind address and timeouts
//   - Storage: document store driver (memory, sqlite, postgres)
//   - Blob: attachment and artifact storage (fs, memory, s3)
//   - Logging: log format and level
//   - Roaster: defaults written to the settings document on first start
//   - Export: monthly accounting export location and delivery
//   - Mail: SMTP relay for export delivery
//   - Machines: roast log drop directory
//   - Geocode: reverse geocoding for route assignments
type Config struct {
	Server   Server   `toml:"server"`
	Storage  Storage  `toml:"storage"`
	Blob     Blob     `toml:"blob"`
	Logging  Logging  `toml:"logging"`
	Roaster  Roaster  `toml:"roaster"`
	Export   Export   `toml:"export"`
	Mail     Mail     `toml:"mail"`
	Machines Machines `toml:"machines"`
	Geocode  Geocode  `toml:"geocode"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file is read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("coffeeroaster.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local directories the daemon writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Export.OutputDir}
	if c.Storage.Driver == "sqlite" {
		dirs = append(dirs, filepath.Dir(c.Storage.SQLitePath))
	}
	if c.Blob.Driver == "fs" {
		dirs = append(dirs, c.Blob.FSRoot)
	}
	if c.Machines.WatchDir != "" {
		dirs = append(dirs, c.Machines.WatchDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ReadTimeout returns the server read timeout.
func (s Server) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the server write timeout.
func (s Server) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown budget.
func (s Server) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// Debounce returns the watcher debounce interval.
func (m Machines) Debounce() time.Duration {
	return time.Duration(m.DebounceMS) * time.Millisecond
}

// Timeout returns the geocoding request timeout.
func (g Geocode) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// Enabled reports whether an SMTP relay is configured.
func (m Mail) Enabled() bool {
	return strings.TrimSpace(m.Host) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
