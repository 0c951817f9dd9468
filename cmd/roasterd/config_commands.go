package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"coffeeroaster/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:         "config",
		Short:       "Inspect and bootstrap the roasterd configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	configCmd.AddCommand(
		newConfigInitCommand(),
		newConfigValidateCommand(ctx),
		newConfigPathCommand(ctx),
	)
	return configCmd
}

// flagPath is the --config value, or empty for the default location.
func (c *commandContext) flagPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// sampleTarget resolves where config init writes; an empty path means the
// default location.
func sampleTarget(path string) (string, error) {
	if path = strings.TrimSpace(path); path == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(path)
}

func newConfigInitCommand() *cobra.Command {
	var (
		path      string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample roasterd.toml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := sampleTarget(path)
			if err != nil {
				return fmt.Errorf("resolve config path: %w", err)
			}
			switch _, err := os.Stat(target); {
			case err == nil && !overwrite:
				return fmt.Errorf("config file already exists at %s (pass --overwrite to replace it)", target)
			case err != nil && !errors.Is(err, fs.ErrNotExist):
				return fmt.Errorf("check config path: %w", err)
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(cmd.OutOrStdout(), "Set roaster.default_company and roaster.machine_webhook_token before starting roasterd.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "Where to write the file (defaults to the standard location)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration, create its directories and print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, resolved, exists, err := config.Load(ctx.flagPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", resolved)
			if !exists {
				fmt.Fprintln(out, "No file found there; built-in defaults apply")
			}
			writeFields(out, configSummary(cfg))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigPathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file roasterd would read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := sampleTarget(ctx.flagPath())
			if err != nil {
				return fmt.Errorf("resolve config path: %w", err)
			}
			state := "missing"
			if _, err := os.Stat(target); err == nil {
				state = "present"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", target, state)
			return nil
		},
	}
}

// configSummary lists the settings operators most often get wrong. Secrets
// are reported as set or unset only.
func configSummary(cfg *config.Config) [][2]string {
	setOrUnset := func(v string) string {
		if v == "" {
			return "unset"
		}
		return "set"
	}
	storage := cfg.Storage.Driver
	switch storage {
	case "sqlite":
		storage += " " + cfg.Storage.SQLitePath
	case "postgres":
		storage += " (dsn " + setOrUnset(cfg.Storage.PostgresDSN) + ")"
	}
	blobs := cfg.Blob.Driver
	switch blobs {
	case "fs":
		blobs += " " + cfg.Blob.FSRoot
	case "s3":
		blobs += " s3://" + cfg.Blob.S3Bucket
	}
	watch := cfg.Machines.WatchDir
	if watch == "" {
		watch = "off"
	}
	return [][2]string{
		{"Storage", storage},
		{"Blob", blobs},
		{"Bind", cfg.Server.Bind},
		{"Default company", cfg.Roaster.DefaultCompany},
		{"Machine webhook token", setOrUnset(cfg.Roaster.MachineWebhookToken)},
		{"Auto-create roast logs", fmt.Sprint(cfg.Roaster.AutoCreateRoastLog)},
		{"Watch dir", watch},
		{"Export dir", cfg.Export.OutputDir},
	}
}
