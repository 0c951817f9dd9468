package config

const (
	defaultConfigPath             = "~/.config/coffeeroaster/config.toml"
	defaultBind                   = "127.0.0.1:8420"
	defaultReadTimeoutSeconds     = 30
	defaultWriteTimeoutSeconds    = 60
	defaultShutdownTimeoutSeconds = 10
	defaultStorageDriver          = "sqlite"
	defaultSQLitePath             = "~/.local/share/coffeeroaster/coffeeroaster.db"
	defaultBlobDriver             = "fs"
	defaultBlobRoot               = "~/.local/share/coffeeroaster/blobs"
	defaultS3Region               = "us-east-1"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultCurrency               = "ETB"
	defaultVATRate                = 0.15
	defaultPriceList              = "Standard Selling"
	defaultExportDir              = "~/.local/share/coffeeroaster/exports"
	defaultExportPrefix           = "exports/sage"
	defaultExportLock             = "~/.local/share/coffeeroaster/export.lock"
	defaultExportQueueSize        = 32
	defaultExportRetentionHours   = 24
	defaultMailPort               = 587
	defaultDebounceMS             = 500
	defaultGeocodeBaseURL         = "https://nominatim.openstreetmap.org"
	defaultGeocodeUserAgent       = "CoffeeRoaster-ERP/1.0 (admin@example.com)"
	defaultGeocodeTimeoutSeconds  = 10
)

var defaultExtensions = []string{".alog", ".json", ".csv", ".txt"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind:                   defaultBind,
			ReadTimeoutSeconds:     defaultReadTimeoutSeconds,
			WriteTimeoutSeconds:    defaultWriteTimeoutSeconds,
			ShutdownTimeoutSeconds: defaultShutdownTimeoutSeconds,
			MetricsEnabled:         true,
		},
		Storage: Storage{
			Driver:     defaultStorageDriver,
			SQLitePath: defaultSQLitePath,
		},
		Blob: Blob{
			Driver:   defaultBlobDriver,
			FSRoot:   defaultBlobRoot,
			S3Region: defaultS3Region,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Roaster: Roaster{
			DefaultCurrency:          defaultCurrency,
			VATRate:                  defaultVATRate,
			StandardSellingPriceList: defaultPriceList,
		},
		Export: Export{
			OutputDir:      defaultExportDir,
			KeyPrefix:      defaultExportPrefix,
			LockPath:       defaultExportLock,
			QueueSize:      defaultExportQueueSize,
			RetentionHours: defaultExportRetentionHours,
		},
		Mail: Mail{
			Port: defaultMailPort,
		},
		Machines: Machines{
			DebounceMS: defaultDebounceMS,
			Extensions: append([]string(nil), defaultExtensions...),
		},
		Geocode: Geocode{
			Enabled:        true,
			BaseURL:        defaultGeocodeBaseURL,
			UserAgent:      defaultGeocodeUserAgent,
			TimeoutSeconds: defaultGeocodeTimeoutSeconds,
		},
	}
}
