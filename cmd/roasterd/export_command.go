package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"coffeeroaster/internal/adapters/exports"
	"coffeeroaster/internal/sage"
)

func newExportMonthCommand(ctx *commandContext) *cobra.Command {
	var (
		company    string
		period     string
		email      bool
		recipients []string
		outputDir  string
	)

	cmd := &cobra.Command{
		Use:   "export-month",
		Short: "Build the monthly Sage export archive",
		Long: "Builds the Sage import files for one company and month, stores the archive in blob storage " +
			"and writes a copy to the export directory. Defaults to the previous month.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			input := exports.Input{
				Company:     company,
				Email:       email || rt.cfg.Export.Email,
				Recipients:  recipients,
				RequestedBy: "cli",
			}
			if p := strings.TrimSpace(period); p != "" {
				parsed, err := sage.ParsePeriod(p)
				if err != nil {
					return err
				}
				input.Period = parsed
			}

			lock := flock.New(rt.cfg.Export.LockPath)
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire export lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another export is running (lock %s)", rt.cfg.Export.LockPath)
			}
			defer func() { _ = lock.Unlock() }()

			worker, err := rt.exportWorker(nil)
			if err != nil {
				return err
			}
			rec, payload, err := worker.Run(cmd.Context(), input)
			if err != nil {
				return fmt.Errorf("sage export: %w", err)
			}

			dir := strings.TrimSpace(outputDir)
			if dir == "" {
				dir = rt.cfg.Export.OutputDir
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create export directory: %w", err)
			}
			target := filepath.Join(dir, rec.Artifact.Filename)
			if err := os.WriteFile(target, payload, 0o644); err != nil {
				return fmt.Errorf("write archive: %w", err)
			}

			emailed := "no"
			switch {
			case rec.Emailed:
				emailed = strings.Join(rec.Recipients, ", ")
			case rec.MailError != "":
				emailed = "failed: " + rec.MailError
			}
			writeFields(cmd.OutOrStdout(), [][2]string{
				{"Company", rec.Company},
				{"Period", rec.Period},
				{"Archive", target},
				{"Size", strconv.FormatInt(rec.Artifact.SizeBytes, 10) + " bytes"},
				{"Blob key", rec.Artifact.Key},
				{"E-mailed", emailed},
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&company, "company", "", "Company to export (defaults to the settings default company)")
	cmd.Flags().StringVar(&period, "period", "", "Month to export as YYYY-MM (defaults to the previous month)")
	cmd.Flags().BoolVar(&email, "email", false, "E-mail the archive to the finance recipients")
	cmd.Flags().StringSliceVar(&recipients, "recipient", nil, "Override e-mail recipients (repeatable)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory receiving the archive (defaults to export.output_dir)")
	return cmd
}
