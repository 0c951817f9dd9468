package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables that override file values.
const (
	EnvStorageDriver    = "COFFEEROASTER_STORAGE_DRIVER"
	EnvSQLitePath       = "COFFEEROASTER_SQLITE_PATH"
	EnvPostgresDSN      = "COFFEEROASTER_POSTGRES_DSN"
	EnvBlobDriver       = "COFFEEROASTER_BLOB_DRIVER"
	EnvBlobFSRoot       = "COFFEEROASTER_BLOB_FS_ROOT"
	EnvBlobS3Bucket     = "COFFEEROASTER_BLOB_S3_BUCKET"
	EnvBlobS3Region     = "COFFEEROASTER_BLOB_S3_REGION"
	EnvBlobS3Endpoint   = "COFFEEROASTER_BLOB_S3_ENDPOINT"
	EnvBlobS3PathStyle  = "COFFEEROASTER_BLOB_S3_PATH_STYLE"
	EnvMailPassword     = "COFFEEROASTER_MAIL_PASSWORD"
	EnvLogLevel         = "COFFEEROASTER_LOG_LEVEL"
	EnvServerBind       = "COFFEEROASTER_BIND"
	EnvMachinesWatchDir = "COFFEEROASTER_WATCH_DIR"
	EnvGeocodeUserAgent = "COFFEEROASTER_GEOCODE_USER_AGENT"
	EnvDefaultCompany   = "COFFEEROASTER_DEFAULT_COMPANY"
	EnvWebhookToken     = "COFFEEROASTER_WEBHOOK_TOKEN"
)

func (c *Config) applyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{EnvStorageDriver, &c.Storage.Driver},
		{EnvSQLitePath, &c.Storage.SQLitePath},
		{EnvPostgresDSN, &c.Storage.PostgresDSN},
		{EnvBlobDriver, &c.Blob.Driver},
		{EnvBlobFSRoot, &c.Blob.FSRoot},
		{EnvBlobS3Bucket, &c.Blob.S3Bucket},
		{EnvBlobS3Region, &c.Blob.S3Region},
		{EnvBlobS3Endpoint, &c.Blob.S3Endpoint},
		{EnvMailPassword, &c.Mail.Password},
		{EnvLogLevel, &c.Logging.Level},
		{EnvServerBind, &c.Server.Bind},
		{EnvMachinesWatchDir, &c.Machines.WatchDir},
		{EnvGeocodeUserAgent, &c.Geocode.UserAgent},
		{EnvDefaultCompany, &c.Roaster.DefaultCompany},
		{EnvWebhookToken, &c.Roaster.MachineWebhookToken},
	}
	for _, o := range overrides {
		if value, ok := os.LookupEnv(o.key); ok && strings.TrimSpace(value) != "" {
			*o.dst = value
		}
	}
	if value, ok := os.LookupEnv(EnvBlobS3PathStyle); ok {
		c.Blob.S3PathStyle = strings.EqualFold(strings.TrimSpace(value), "true")
	}
}

func (c *Config) normalize() error {
	c.normalizeServer()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	if err := c.normalizeBlob(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeRoaster()
	if err := c.normalizeExport(); err != nil {
		return err
	}
	c.normalizeMail()
	if err := c.normalizeMachines(); err != nil {
		return err
	}
	c.normalizeGeocode()
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = defaultReadTimeoutSeconds
	}
	if c.Server.WriteTimeoutSeconds <= 0 {
		c.Server.WriteTimeoutSeconds = defaultWriteTimeoutSeconds
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = defaultShutdownTimeoutSeconds
	}
}

func (c *Config) normalizeStorage() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = defaultStorageDriver
	}
	if strings.TrimSpace(c.Storage.SQLitePath) == "" {
		c.Storage.SQLitePath = defaultSQLitePath
	}
	var err error
	if c.Storage.SQLitePath, err = expandPath(c.Storage.SQLitePath); err != nil {
		return fmt.Errorf("storage.sqlite_path: %w", err)
	}
	c.Storage.PostgresDSN = strings.TrimSpace(c.Storage.PostgresDSN)
	return nil
}

func (c *Config) normalizeBlob() error {
	c.Blob.Driver = strings.ToLower(strings.TrimSpace(c.Blob.Driver))
	if c.Blob.Driver == "" {
		c.Blob.Driver = defaultBlobDriver
	}
	if strings.TrimSpace(c.Blob.FSRoot) == "" {
		c.Blob.FSRoot = defaultBlobRoot
	}
	var err error
	if c.Blob.FSRoot, err = expandPath(c.Blob.FSRoot); err != nil {
		return fmt.Errorf("blob.fs_root: %w", err)
	}
	c.Blob.S3Bucket = strings.TrimSpace(c.Blob.S3Bucket)
	c.Blob.S3Endpoint = strings.TrimSpace(c.Blob.S3Endpoint)
	if strings.TrimSpace(c.Blob.S3Region) == "" {
		c.Blob.S3Region = defaultS3Region
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeRoaster() {
	c.Roaster.DefaultCompany = strings.TrimSpace(c.Roaster.DefaultCompany)
	c.Roaster.DefaultCurrency = strings.ToUpper(strings.TrimSpace(c.Roaster.DefaultCurrency))
	if c.Roaster.DefaultCurrency == "" {
		c.Roaster.DefaultCurrency = defaultCurrency
	}
	c.Roaster.StandardSellingPriceList = strings.TrimSpace(c.Roaster.StandardSellingPriceList)
	if c.Roaster.StandardSellingPriceList == "" {
		c.Roaster.StandardSellingPriceList = defaultPriceList
	}
	c.Roaster.MachineWebhookToken = strings.TrimSpace(c.Roaster.MachineWebhookToken)
}

func (c *Config) normalizeExport() error {
	if strings.TrimSpace(c.Export.OutputDir) == "" {
		c.Export.OutputDir = defaultExportDir
	}
	if strings.TrimSpace(c.Export.LockPath) == "" {
		c.Export.LockPath = defaultExportLock
	}
	var err error
	if c.Export.OutputDir, err = expandPath(c.Export.OutputDir); err != nil {
		return fmt.Errorf("export.output_dir: %w", err)
	}
	if c.Export.LockPath, err = expandPath(c.Export.LockPath); err != nil {
		return fmt.Errorf("export.lock_path: %w", err)
	}
	c.Export.KeyPrefix = strings.Trim(strings.TrimSpace(c.Export.KeyPrefix), "/")
	if c.Export.KeyPrefix == "" {
		c.Export.KeyPrefix = defaultExportPrefix
	}
	if c.Export.QueueSize <= 0 {
		c.Export.QueueSize = defaultExportQueueSize
	}
	if c.Export.RetentionHours <= 0 {
		c.Export.RetentionHours = defaultExportRetentionHours
	}
	recipients := c.Export.Recipients[:0]
	for _, r := range c.Export.Recipients {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	c.Export.Recipients = recipients
	return nil
}

func (c *Config) normalizeMail() {
	c.Mail.Host = strings.TrimSpace(c.Mail.Host)
	c.Mail.From = strings.TrimSpace(c.Mail.From)
	if c.Mail.Port <= 0 {
		c.Mail.Port = defaultMailPort
	}
}

func (c *Config) normalizeMachines() error {
	var err error
	if c.Machines.WatchDir, err = expandPath(strings.TrimSpace(c.Machines.WatchDir)); err != nil {
		return fmt.Errorf("machines.watch_dir: %w", err)
	}
	if c.Machines.DebounceMS <= 0 {
		c.Machines.DebounceMS = defaultDebounceMS
	}
	if len(c.Machines.Extensions) == 0 {
		c.Machines.Extensions = append([]string(nil), defaultExtensions...)
	}
	for i, ext := range c.Machines.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Machines.Extensions[i] = ext
	}
	c.Machines.Adapter = strings.ToLower(strings.TrimSpace(c.Machines.Adapter))
	return nil
}

func (c *Config) normalizeGeocode() {
	c.Geocode.BaseURL = strings.TrimRight(strings.TrimSpace(c.Geocode.BaseURL), "/")
	if c.Geocode.BaseURL == "" {
		c.Geocode.BaseURL = defaultGeocodeBaseURL
	}
	if strings.TrimSpace(c.Geocode.UserAgent) == "" {
		c.Geocode.UserAgent = defaultGeocodeUserAgent
	}
	if c.Geocode.TimeoutSeconds <= 0 {
		c.Geocode.TimeoutSeconds = defaultGeocodeTimeoutSeconds
	}
}
