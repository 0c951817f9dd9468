package config

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateBlob(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateRoaster(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
		return nil
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn must be set when storage.driver is postgres (or set %s)", EnvPostgresDSN)
		}
		return nil
	default:
		return fmt.Errorf("storage.driver %q is not supported (memory, sqlite, postgres)", c.Storage.Driver)
	}
}

func (c *Config) validateBlob() error {
	switch c.Blob.Driver {
	case "fs", "memory":
		return nil
	case "s3":
		if c.Blob.S3Bucket == "" {
			return fmt.Errorf("blob.s3_bucket must be set when blob.driver is s3 (or set %s)", EnvBlobS3Bucket)
		}
		if (c.Blob.S3AccessKeyID == "") != (c.Blob.S3SecretAccessKey == "") {
			return errors.New("blob.s3_access_key_id and blob.s3_secret_access_key must be set together")
		}
		return nil
	default:
		return fmt.Errorf("blob.driver %q is not supported (fs, memory, s3)", c.Blob.Driver)
	}
}

func (c *Config) validateLogging() error {
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

func (c *Config) validateRoaster() error {
	if c.Roaster.VATRate < 0 || c.Roaster.VATRate >= 1 {
		return errors.New("roaster.vat_rate must be a fraction between 0 and 1")
	}
	return nil
}

func (c *Config) validateExport() error {
	if !c.Export.Email {
		return nil
	}
	if !c.Mail.Enabled() {
		return errors.New("mail.host must be set when export.email is true")
	}
	if strings.TrimSpace(c.Mail.From) == "" {
		return errors.New("mail.from must be set when export.email is true")
	}
	return nil
}
