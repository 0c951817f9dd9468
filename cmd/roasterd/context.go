package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"coffeeroaster/internal/adapters/exports"
	"coffeeroaster/internal/blob"
	"coffeeroaster/internal/config"
	"coffeeroaster/internal/core"
	"coffeeroaster/internal/geocode"
	"coffeeroaster/internal/logging"
	"coffeeroaster/internal/mail"
)

type commandContext struct {
	configFlag *string
	traceFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, traceFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		traceFlag:  traceFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime holds the wired service graph shared by the commands.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    core.PersistentStore
	blobs    blob.Store
	svc      *core.Service
	registry *prometheus.Registry
}

// openRuntime opens the document store and blob storage and builds the
// service. stderr receives traces when --trace is set.
func (c *commandContext) openRuntime(ctx context.Context, stderr io.Writer) (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := core.OpenPersistentStore(ctx, cfg.Storage, core.NewDefaultRulesEngine())
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open store: %w", err)
	}
	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		_ = core.CloseStore(store)
		_ = logger.Sync()
		return nil, fmt.Errorf("open blob storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		_ = core.CloseStore(store)
		return nil, err
	}

	kv := logging.NewKV(logger)
	defaults := core.SettingsFromConfig(cfg.Roaster)
	defaults.SageEmailRecipients = append([]string(nil), cfg.Export.Recipients...)
	opts := []core.Option{
		core.WithLogger(kv),
		core.WithAuditRecorder(core.LogAuditRecorder{Logger: kv}),
		core.WithMetricsRecorder(core.MultiMetricsRecorder{prom, core.NewExpvarMetricsRecorder("")}),
		core.WithBlobStore(blobs),
		core.WithSettingsDefaults(defaults),
	}
	if cfg.Geocode.Enabled {
		opts = append(opts, core.WithGeocoder(geocode.New(cfg.Geocode.BaseURL,
			geocode.WithUserAgent(cfg.Geocode.UserAgent),
			geocode.WithHTTPClient(&http.Client{Timeout: cfg.Geocode.Timeout()}),
		)))
	}
	if c.traceFlag != nil && *c.traceFlag {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(stderr)))
	}
	svc := core.NewService(store, opts...)
	if _, err := svc.EnsureSettings(ctx); err != nil {
		_ = core.CloseStore(store)
		return nil, fmt.Errorf("initialise settings: %w", err)
	}

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		blobs:    blobs,
		svc:      svc,
		registry: reg,
	}, nil
}

// exportWorker builds the Sage export worker. Mail delivery is enabled when
// the [mail] section names a relay.
func (r *runtime) exportWorker(reg prometheus.Registerer) (*exports.Worker, error) {
	opts := []exports.Option{
		exports.WithLogger(r.logger.Named("exports")),
		exports.WithAudit(exports.LogAuditLog{Logger: r.logger.Named("audit")}),
		exports.WithKeyPrefix(r.cfg.Export.KeyPrefix),
		exports.WithQueueSize(r.cfg.Export.QueueSize),
		exports.WithRetention(time.Duration(r.cfg.Export.RetentionHours) * time.Hour),
		exports.WithClock(r.svc.Now),
	}
	if reg != nil {
		opts = append(opts, exports.WithRegisterer(reg))
	}
	if r.cfg.Mail.Enabled() {
		sender, err := mail.NewSMTP(mail.Config{
			Host:     r.cfg.Mail.Host,
			Port:     r.cfg.Mail.Port,
			Username: r.cfg.Mail.Username,
			Password: r.cfg.Mail.Password,
			From:     r.cfg.Mail.From,
		})
		if err != nil {
			return nil, fmt.Errorf("configure mail: %w", err)
		}
		opts = append(opts, exports.WithMailer(sender))
	}
	return exports.NewWorker(r.svc, r.blobs, opts...)
}

func (r *runtime) Close() error {
	var errs []error
	if err := core.CloseStore(r.store); err != nil {
		errs = append(errs, err)
	}
	_ = r.logger.Sync()
	return errors.Join(errs...)
}
