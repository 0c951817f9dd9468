// Package reports defines the roastery report catalog. Every report is a
// template with declared parameters, columns and output formats, bound to a
// read-only view of the document store.
package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"coffeeroaster/internal/core"
	"coffeeroaster/pkg/domain"
)

// Format names a rendering of a report result.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// ParseFormat accepts a format name in any case; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", s)
	}
}

// Parameter declares one report filter.
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Default     string   `json:"default,omitempty"`
}

// Column describes one output field.
type Column struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Unit  string `json:"unit,omitempty"`
}

// SummaryItem is a headline figure shown above the rows.
type SummaryItem struct {
	Label     string  `json:"label"`
	Value     float64 `json:"value"`
	Indicator string  `json:"indicator"`
}

// Result is the output of one report run.
type Result struct {
	Columns     []Column         `json:"columns"`
	Rows        []map[string]any `json:"rows"`
	Summary     []SummaryItem    `json:"summary,omitempty"`
	Message     string           `json:"message,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
	Format      Format           `json:"format"`
}

// Source is the store access a report needs.
type Source interface {
	View(ctx context.Context, fn func(domain.TransactionView) error) error
	Now() time.Time
	Settings(ctx context.Context) (domain.Settings, error)
	CompanyPrintProfile(ctx context.Context, company string) (core.PrintProfile, error)
}

// Request carries validated parameters into a runner.
type Request struct {
	Params map[string]any
	Source Source
}

// String returns a string parameter or "".
func (r Request) String(name string) string {
	s, _ := r.Params[name].(string)
	return strings.TrimSpace(s)
}

// Date returns a date parameter and whether it was given.
func (r Request) Date(name string) (time.Time, bool) {
	t, ok := r.Params[name].(time.Time)
	return t, ok
}

// Bool returns a boolean parameter.
func (r Request) Bool(name string) bool {
	b, _ := r.Params[name].(bool)
	return b
}

// Runner computes the rows of a report.
type Runner func(ctx context.Context, req Request) (Result, error)

// Template is a catalog entry.
type Template struct {
	Key         string
	Version     string
	Title       string
	Description string
	Parameters  []Parameter
	Columns     []Column
	Formats     []Format
	Run         Runner
}

// Descriptor is the serialisable view of a template.
type Descriptor struct {
	Key         string      `json:"key"`
	Version     string      `json:"version"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Columns     []Column    `json:"columns"`
	Formats     []Format    `json:"formats"`
	Slug        string      `json:"slug"`
}

// Descriptor snapshots the template metadata.
func (t Template) Descriptor() Descriptor {
	return Descriptor{
		Key:         t.Key,
		Version:     t.Version,
		Title:       t.Title,
		Description: t.Description,
		Parameters:  append([]Parameter(nil), t.Parameters...),
		Columns:     append([]Column(nil), t.Columns...),
		Formats:     append([]Format(nil), t.Formats...),
		Slug:        t.Key + "@" + t.Version,
	}
}

// SupportsFormat reports whether the template declares format.
func (t Template) SupportsFormat(format Format) bool {
	for _, f := range t.Formats {
		if f == format {
			return true
		}
	}
	return false
}

func validateTemplate(t Template) error {
	switch {
	case strings.TrimSpace(t.Key) == "":
		return errors.New("reports: template key required")
	case strings.TrimSpace(t.Version) == "":
		return fmt.Errorf("reports: %s: version required", t.Key)
	case strings.TrimSpace(t.Title) == "":
		return fmt.Errorf("reports: %s: title required", t.Key)
	case len(t.Columns) == 0:
		return fmt.Errorf("reports: %s: at least one column required", t.Key)
	case len(t.Formats) == 0:
		return fmt.Errorf("reports: %s: output formats required", t.Key)
	case t.Run == nil:
		return fmt.Errorf("reports: %s: runner required", t.Key)
	}
	return nil
}

// Catalog holds the registered templates bound to one source.
type Catalog struct {
	source    Source
	templates map[string]Template
}

// NewCatalog validates and registers templates. Keys must be unique.
func NewCatalog(src Source, templates ...Template) (*Catalog, error) {
	if src == nil {
		return nil, errors.New("reports: source required")
	}
	c := &Catalog{source: src, templates: make(map[string]Template, len(templates))}
	for _, t := range templates {
		if err := validateTemplate(t); err != nil {
			return nil, err
		}
		if _, dup := c.templates[t.Key]; dup {
			return nil, fmt.Errorf("reports: duplicate template %s", t.Key)
		}
		for i := range t.Columns {
			if t.Columns[i].Label == "" {
				t.Columns[i].Label = labelFor(t.Columns[i].Name)
			}
		}
		c.templates[t.Key] = t
	}
	return c, nil
}

// NewDefaultCatalog registers the built-in roastery reports.
func NewDefaultCatalog(src Source) (*Catalog, error) {
	return NewCatalog(src, Builtin()...)
}

// Builtin returns the built-in templates.
func Builtin() []Template {
	return []Template{
		cylinderTracking(),
		roastRoundsMachineData(),
		routePlanSummary(),
		combinedAssessment(),
		roastBatchProfitability(),
		skuPnLProfit(),
		masterRoutePlanBySubCity(),
		stockBalance(),
	}
}

// Templates lists descriptors ordered by key.
func (c *Catalog) Templates() []Descriptor {
	out := make([]Descriptor, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Resolve finds a template by key or key@version slug.
func (c *Catalog) Resolve(keyOrSlug string) (Template, bool) {
	key, version, _ := strings.Cut(strings.TrimSpace(keyOrSlug), "@")
	t, ok := c.templates[key]
	if !ok || (version != "" && version != t.Version) {
		return Template{}, false
	}
	return t, true
}

// ErrUnknownReport is returned for a key that is not in the catalog.
var ErrUnknownReport = errors.New("report not found")

// Run validates params and executes the report. Parameter problems are
// returned separately from execution errors.
func (c *Catalog) Run(ctx context.Context, key string, params map[string]any, format Format) (Result, []ParameterError, error) {
	t, ok := c.Resolve(key)
	if !ok {
		return Result{}, nil, fmt.Errorf("%w: %s", ErrUnknownReport, key)
	}
	if !t.SupportsFormat(format) {
		return Result{}, nil, fmt.Errorf("report %s does not support %s output", t.Key, format)
	}
	cleaned, errs := validateParameters(t.Parameters, params)
	if len(errs) > 0 {
		return Result{}, errs, nil
	}
	res, err := t.Run(ctx, Request{Params: cleaned, Source: c.source})
	if err != nil {
		return Result{}, nil, err
	}
	if len(res.Columns) == 0 {
		res.Columns = append([]Column(nil), t.Columns...)
	}
	if res.Rows == nil {
		res.Rows = []map[string]any{}
	}
	res.GeneratedAt = c.source.Now().UTC()
	res.Format = format
	return res, nil, nil
}

func labelFor(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

func inRange(t time.Time, req Request) bool {
	day := truncateDay(t)
	if from, ok := req.Date("from_date"); ok && day.Before(from) {
		return false
	}
	if to, ok := req.Date("to_date"); ok && day.After(to) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dateString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

var dateRangeParams = []Parameter{
	{Name: "from_date", Type: "date", Description: "inclusive start (YYYY-MM-DD)"},
	{Name: "to_date", Type: "date", Description: "inclusive end (YYYY-MM-DD)"},
}

func withDateRange(params ...Parameter) []Parameter {
	return append(append([]Parameter(nil), params...), dateRangeParams...)
}

var allFormats = []Format{FormatJSON, FormatCSV, FormatHTML}
