package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"coffeeroaster/internal/reports"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "List and run reports",
	}
	reportCmd.AddCommand(newReportListCommand(ctx))
	reportCmd.AddCommand(newReportRunCommand(ctx))
	return reportCmd
}

func newReportListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			catalog, err := reports.NewDefaultCatalog(rt.svc)
			if err != nil {
				return err
			}
			descs := catalog.Templates()
			rows := make([][]string, 0, len(descs))
			for _, d := range descs {
				formats := make([]string, len(d.Formats))
				for i, f := range d.Formats {
					formats[i] = string(f)
				}
				params := make([]string, len(d.Parameters))
				for i, p := range d.Parameters {
					params[i] = p.Name
					if p.Required {
						params[i] += "*"
					}
				}
				rows = append(rows, []string{d.Key, d.Version, d.Title, strings.Join(formats, ","), strings.Join(params, " ")})
			}
			writeTable(cmd.OutOrStdout(), textColumns("Key", "Version", "Title", "Formats", "Parameters"), rows)
			return nil
		},
	}
}

func newReportRunCommand(ctx *commandContext) *cobra.Command {
	var (
		params []string
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "run <report>",
		Short: "Run a report and print or save the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := reports.ParseFormat(format)
			if err != nil {
				return err
			}
			values, err := parseParams(params)
			if err != nil {
				return err
			}

			rt, err := ctx.openRuntime(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			catalog, err := reports.NewDefaultCatalog(rt.svc)
			if err != nil {
				return err
			}
			tpl, ok := catalog.Resolve(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", reports.ErrUnknownReport, args[0])
			}
			desc := tpl.Descriptor()
			res, perrs, err := catalog.Run(cmd.Context(), desc.Key, values, f)
			if len(perrs) > 0 {
				msgs := make([]string, len(perrs))
				for i, pe := range perrs {
					msgs[i] = pe.Error()
				}
				return errors.New("invalid report parameters: " + strings.Join(msgs, "; "))
			}
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				if dir := filepath.Dir(output); dir != "." {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return fmt.Errorf("create output directory: %w", err)
					}
				}
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create report file: %w", err)
				}
				defer file.Close()
				w = file
			}
			if err := reports.Render(w, desc, res); err != nil {
				return fmt.Errorf("render report: %w", err)
			}
			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d rows) to %s\n", desc.Title, len(res.Rows), output)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Report parameter as name=value (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, csv or html")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to a file instead of stdout")
	return cmd
}

// parseParams turns name=value pairs into report parameters. Repeated
// names collect into a comma separated list.
func parseParams(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q (want name=value)", pair)
		}
		if prev, seen := values[name]; seen {
			value = prev.(string) + "," + value
		}
		values[name] = value
	}
	return values, nil
}
