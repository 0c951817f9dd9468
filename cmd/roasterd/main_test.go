package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
)

const memoryConfig = `[storage]
driver = "memory"

[blob]
driver = "memory"

[logging]
level = "error"
format = "json"

[roaster]
default_company = "Acme Coffee"

[geocode]
enabled = false
`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeMemoryConfig(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "roasterd.toml")
	if err := os.WriteFile(path, []byte(memoryConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigInitWritesSample(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	target := filepath.Join(home, "conf", "roasterd.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected target path in output, got %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	path := writeMemoryConfig(t)
	out, err := runCLI(t, "--config", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	for _, want := range []string{"Config path: " + path, "Acme Coffee", "memory", "Configuration valid"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestConfigValidateRejectsUnknownDriver(t *testing.T) {
	path := writeMemoryConfig(t)
	t.Setenv("COFFEEROASTER_STORAGE_DRIVER", "oracle")
	if _, err := runCLI(t, "--config", path, "config", "validate"); err == nil {
		t.Fatal("expected validation error for unsupported driver")
	}
}

func TestReportList(t *testing.T) {
	path := writeMemoryConfig(t)
	out, err := runCLI(t, "--config", path, "report", "list")
	if err != nil {
		t.Fatalf("report list: %v", err)
	}
	for _, key := range []string{"stock_balance", "route_plan_summary", "cylinder_tracking"} {
		if !strings.Contains(out, key) {
			t.Fatalf("expected report %s in listing:\n%s", key, out)
		}
	}
}

func TestReportRunWritesCSV(t *testing.T) {
	path := writeMemoryConfig(t)
	target := filepath.Join(t.TempDir(), "out", "stock.csv")

	out, err := runCLI(t, "--config", path, "report", "run", "stock_balance", "--format", "csv", "--output", target)
	if err != nil {
		t.Fatalf("report run: %v", err)
	}
	if !strings.Contains(out, "Stock Balance") {
		t.Fatalf("unexpected summary %q", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.HasPrefix(string(data), "item_code,warehouse") {
		t.Fatalf("unexpected csv header: %q", data)
	}
}

func TestReportRunErrors(t *testing.T) {
	path := writeMemoryConfig(t)
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"unknown report", []string{"report", "run", "nope"}, "nope"},
		{"bad format", []string{"report", "run", "stock_balance", "--format", "pdf"}, "unsupported report format"},
		{"bad param", []string{"report", "run", "stock_balance", "-p", "by_batch=maybe"}, "invalid report parameters"},
		{"malformed param", []string{"report", "run", "stock_balance", "-p", "by_batch"}, "want name=value"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runCLI(t, append([]string{"--config", path}, tc.args...)...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRouteBuildWithoutAssignments(t *testing.T) {
	path := writeMemoryConfig(t)
	out, err := runCLI(t, "--config", path, "route", "build", "--json")
	if err != nil {
		t.Fatalf("route build: %v", err)
	}
	if !strings.Contains(out, `"stops"`) {
		t.Fatalf("expected JSON route, got %q", out)
	}
}

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"sub_city=Bole", "sub_city=Yeka", " from_date =2024-03-01"})
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	want := map[string]any{"sub_city": "Bole,Yeka", "from_date": "2024-03-01"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
	if _, err := parseParams([]string{"=x"}); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestShouldSkipConfig(t *testing.T) {
	parent := &cobra.Command{Use: "config", Annotations: map[string]string{"skipConfigLoad": "true"}}
	child := &cobra.Command{Use: "init"}
	parent.AddCommand(child)
	other := &cobra.Command{Use: "serve"}

	if !shouldSkipConfig(child) {
		t.Fatal("expected annotation on parent to be honoured")
	}
	if shouldSkipConfig(other) {
		t.Fatal("expected serve to load config")
	}
}

func TestWriteTable(t *testing.T) {
	var buf strings.Builder
	writeTable(&buf, nil, [][]string{{"x"}})
	if buf.Len() != 0 {
		t.Fatalf("expected nothing without columns, got %q", buf.String())
	}
	writeTable(&buf, textColumns("Key"), nil)
	if got := buf.String(); got != "(no rows)\n" {
		t.Fatalf("expected empty marker, got %q", got)
	}

	buf.Reset()
	writeTable(&buf, []column{{title: "Key"}, {title: "Qty", numeric: true}}, [][]string{{"GB-01", "12"}, {"RB-02"}})
	got := buf.String()
	for _, want := range []string{"Key", "Qty", "GB-01", "12", "RB-02", "╭"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in table:\n%s", want, got)
		}
	}
	if strings.Contains(got, "KEY") {
		t.Fatalf("headers must keep their case:\n%s", got)
	}
	if !strings.Contains(got, "│  12 │") {
		t.Fatalf("expected numeric column right aligned:\n%s", got)
	}
}

func TestWriteFieldsHasNoHeader(t *testing.T) {
	var buf strings.Builder
	writeFields(&buf, [][2]string{{"Storage", "memory"}, {"Bind", "127.0.0.1:8080"}})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 || !strings.Contains(lines[1], "Storage") || !strings.Contains(lines[2], "Bind") {
		t.Fatalf("expected two boxed rows, got:\n%s", buf.String())
	}
}

func TestConfigPath(t *testing.T) {
	path := writeMemoryConfig(t)
	out, err := runCLI(t, "--config", path, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if strings.TrimSpace(out) != path+" (present)" {
		t.Fatalf("unexpected output %q", out)
	}
	missing := filepath.Join(t.TempDir(), "none.toml")
	out, err = runCLI(t, "--config", missing, "config", "path")
	if err != nil || strings.TrimSpace(out) != missing+" (missing)" {
		t.Fatalf("unexpected output %q err %v", out, err)
	}
}

func TestConfigValidateHidesSecrets(t *testing.T) {
	path := writeMemoryConfig(t)
	t.Setenv("COFFEEROASTER_WEBHOOK_TOKEN", "s3cret")
	out, err := runCLI(t, "--config", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if strings.Contains(out, "s3cret") {
		t.Fatalf("token leaked into summary:\n%s", out)
	}
}
