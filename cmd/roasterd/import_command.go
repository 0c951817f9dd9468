package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

func newImportCurveCommand(ctx *commandContext) *cobra.Command {
	var (
		logName string
		adapter string
		attach  bool
	)

	cmd := &cobra.Command{
		Use:   "import-curve <file>",
		Short: "Import a roaster export into a roasting log",
		Long: "Parses an Artisan, Cropster or Probat export and writes the phases, metrics and curve " +
			"onto the roasting log. Without --log a new log is created.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read export: %w", err)
			}
			filename := filepath.Base(path)

			rt, err := ctx.openRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			if logName == "" {
				if err := rt.svc.DropImporter(adapter)(cmd.Context(), filename, content); err != nil {
					return err
				}
				fmt.Fprintf(out, "Imported %s into a new roasting log\n", filename)
				return nil
			}
			if attach {
				if _, err := rt.svc.AttachToRoastingLog(cmd.Context(), logName, filename, content); err != nil {
					return err
				}
			}
			summary, err := rt.svc.ImportCurve(cmd.Context(), logName, filename, content, adapter)
			if err != nil {
				return err
			}
			writeTable(out,
				[]column{{title: "Log"}, {title: "Adapter"}, {title: "Points", numeric: true}, {title: "Events", numeric: true}, {title: "Phases", numeric: true}},
				[][]string{{logName, summary.Adapter, strconv.Itoa(summary.Points), strconv.Itoa(summary.Events), strconv.Itoa(summary.Phases)}},
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&logName, "log", "", "Roasting log to update (a new log is created when empty)")
	cmd.Flags().StringVar(&adapter, "adapter", "", "Force an adapter: artisan, cropster or probat")
	cmd.Flags().BoolVar(&attach, "attach", false, "Also attach the file to the log")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
