package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"coffeeroaster/internal/core"
	"coffeeroaster/pkg/domain"
)

var reportNow = time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC)

func newSource(t *testing.T) *core.Service {
	t.Helper()
	return core.NewInMemoryService(core.NewRulesEngine(),
		core.WithClock(func() time.Time { return reportNow }),
		core.WithSettingsDefaults(domain.Settings{DefaultCompany: "Acme Roasters"}),
	)
}

// seed stores records as given, docstatus included.
func seed(t *testing.T, svc *core.Service, recs ...domain.Record) {
	t.Helper()
	_, err := svc.Store().RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		for _, r := range recs {
			if _, err := tx.Insert(r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func run(t *testing.T, svc *core.Service, key string, params map[string]any) Result {
	t.Helper()
	cat, err := NewDefaultCatalog(svc)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	res, perrs, err := cat.Run(context.Background(), key, params, FormatJSON)
	if err != nil {
		t.Fatalf("run %s: %v", key, err)
	}
	if len(perrs) > 0 {
		t.Fatalf("run %s: parameter errors %v", key, perrs)
	}
	return res
}

func TestDefaultCatalog(t *testing.T) {
	cat, err := NewDefaultCatalog(newSource(t))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	var keys []string
	for _, d := range cat.Templates() {
		keys = append(keys, d.Key)
		if d.Slug != d.Key+"@1" {
			t.Fatalf("unexpected slug %s", d.Slug)
		}
	}
	want := []string{
		"combined_assessment",
		"cylinder_tracking",
		"master_route_plan_by_sub_city",
		"roast_batch_profitability",
		"roast_rounds_machine_data",
		"route_plan_summary",
		"sku_pnl_profit",
		"stock_balance",
	}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("templates mismatch (-want +got):\n%s", diff)
	}

	tpl, ok := cat.Resolve("cylinder_tracking@1")
	if !ok {
		t.Fatalf("expected slug to resolve")
	}
	if tpl.Columns[2].Label != "Roast Batch" {
		t.Fatalf("expected derived label, got %q", tpl.Columns[2].Label)
	}
	if _, ok := cat.Resolve("cylinder_tracking@2"); ok {
		t.Fatalf("unexpected resolve of unknown version")
	}
}

func TestNewCatalogRejectsInvalidTemplates(t *testing.T) {
	src := newSource(t)
	valid := stockBalance()
	noRunner := stockBalance()
	noRunner.Run = nil
	noFormats := stockBalance()
	noFormats.Formats = nil

	cases := []struct {
		name      string
		src       Source
		templates []Template
		want      string
	}{
		{"nil source", nil, nil, "source required"},
		{"duplicate", src, []Template{valid, valid}, "duplicate template stock_balance"},
		{"runner", src, []Template{noRunner}, "runner required"},
		{"formats", src, []Template{noFormats}, "output formats required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCatalog(tc.src, tc.templates...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	cat, err := NewDefaultCatalog(newSource(t))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	ctx := context.Background()
	if _, _, err := cat.Run(ctx, "nope", nil, FormatJSON); !errors.Is(err, ErrUnknownReport) {
		t.Fatalf("expected ErrUnknownReport, got %v", err)
	}
	if _, _, err := cat.Run(ctx, "stock_balance", nil, Format("xlsx")); err == nil {
		t.Fatalf("expected unsupported format error")
	}
	_, perrs, err := cat.Run(ctx, "roast_rounds_machine_data", nil, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []ParameterError{{Name: "roast_batch", Message: "required parameter missing"}}
	if diff := cmp.Diff(want, perrs); diff != "" {
		t.Fatalf("parameter errors mismatch (-want +got):\n%s", diff)
	}
	if _, _, err := cat.Run(ctx, "roast_rounds_machine_data", map[string]any{"roast_batch": "RB-404"}, FormatJSON); err == nil {
		t.Fatalf("expected not found error for missing roast batch")
	}
}

func TestValidateParameters(t *testing.T) {
	defs := []Parameter{
		{Name: "from_date", Type: "date"},
		{Name: "by_batch", Type: "boolean"},
		{Name: "limit", Type: "integer"},
		{Name: "status", Type: "string", Enum: []string{"Draft", "Submitted", "Both"}, Default: "Both"},
		{Name: "batch", Type: "string", Required: true},
	}
	cases := []struct {
		name     string
		supplied map[string]any
		want     map[string]any
		errs     []string
	}{
		{
			name:     "coerces and defaults",
			supplied: map[string]any{"FROM_DATE": "2024-03-01", "by_batch": "yes", "limit": float64(5), "batch": " RB-1 "},
			want:     map[string]any{"from_date": day("2024-03-01"), "by_batch": true, "limit": 5, "status": "Both", "batch": "RB-1"},
		},
		{
			name:     "blank counts as missing",
			supplied: map[string]any{"batch": "  "},
			want:     map[string]any{"status": "Both"},
			errs:     []string{"batch"},
		},
		{
			name:     "bad values",
			supplied: map[string]any{"from_date": "14/03/2024", "by_batch": "maybe", "limit": "x", "status": "Open", "batch": "RB-1"},
			want:     map[string]any{"batch": "RB-1"},
			errs:     []string{"by_batch", "from_date", "limit", "status"},
		},
		{
			name:     "undeclared",
			supplied: map[string]any{"batch": "RB-1", "warehouse": "Main"},
			want:     map[string]any{"batch": "RB-1", "status": "Both"},
			errs:     []string{"warehouse"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, errs := validateParameters(defs, tc.supplied)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("cleaned mismatch (-want +got):\n%s", diff)
			}
			var names []string
			for _, e := range errs {
				names = append(names, e.Name)
			}
			if diff := cmp.Diff(tc.errs, names); diff != "" {
				t.Fatalf("errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRender(t *testing.T) {
	d := Descriptor{Key: "demo", Version: "1", Title: "Demo <Report>"}
	res := Result{
		Columns:     []Column{{Name: "batch", Label: "Batch"}, {Name: "qty", Label: "Qty"}, {Name: "ok", Label: "OK"}},
		Rows:        []map[string]any{{"batch": "RB-1", "qty": 12.5, "ok": true}, {"batch": "RB, 2", "qty": 3}},
		Message:     "<h1>Letterhead</h1>",
		GeneratedAt: reportNow,
	}

	var buf bytes.Buffer
	res.Format = FormatCSV
	if err := Render(&buf, d, res); err != nil {
		t.Fatalf("csv: %v", err)
	}
	if want := "batch,qty,ok\nRB-1,12.5,1\n\"RB, 2\",3,\n"; buf.String() != want {
		t.Fatalf("unexpected csv:\n%q", buf.String())
	}

	buf.Reset()
	res.Format = FormatHTML
	if err := Render(&buf, d, res); err != nil {
		t.Fatalf("html: %v", err)
	}
	page := buf.String()
	for _, want := range []string{"<title>Demo &lt;Report&gt;</title>", "<h1>Letterhead</h1>", "<td>RB, 2</td>", "2024-03-20 08:00 UTC"} {
		if !strings.Contains(page, want) {
			t.Fatalf("html missing %q:\n%s", want, page)
		}
	}

	buf.Reset()
	res.Format = FormatJSON
	if err := Render(&buf, d, res); err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded struct {
		Report Descriptor `json:"report"`
		Result struct {
			Rows []map[string]any `json:"rows"`
		} `json:"result"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Report.Key != "demo" || len(decoded.Result.Rows) != 2 {
		t.Fatalf("unexpected json document: %+v", decoded)
	}

	if got := Filename("demo", FormatCSV, reportNow); got != "demo-20240320T080000Z.csv" {
		t.Fatalf("unexpected filename %s", got)
	}
	if got := ContentType(FormatHTML); got != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %s", got)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "CSV": FormatCSV, " html ": FormatHTML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Fatalf("expected error for pdf")
	}
}
