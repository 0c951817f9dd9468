package reports

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"
)

// ContentType returns the MIME type of a format.
func ContentType(f Format) string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json"
	}
}

// Filename names a rendered report.
func Filename(key string, f Format, at time.Time) string {
	return fmt.Sprintf("%s-%s.%s", key, at.UTC().Format("20060102T150405Z"), f)
}

// Render writes res in its format.
func Render(w io.Writer, d Descriptor, res Result) error {
	switch res.Format {
	case FormatCSV:
		return renderCSV(w, res)
	case FormatHTML:
		return renderHTML(w, d, res)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Report Descriptor `json:"report"`
			Result Result     `json:"result"`
		}{d, res})
	}
}

func renderCSV(w io.Writer, res Result) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range res.Rows {
		rec := make([]string, len(res.Columns))
		for i, c := range res.Columns {
			rec[i] = FormatValue(row[c.Name])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatValue renders a cell as text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

var pageTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"cell": func(row map[string]any, name string) string { return FormatValue(row[name]) },
	"num":  func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) },
}).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
body{font-family:sans-serif;font-size:12px}
table{border-collapse:collapse;width:100%}
th,td{border:1px solid #999;padding:3px 5px;text-align:left}
th{background:#eee}
.summary span{display:inline-block;margin-right:18px}
</style></head><body>
{{if .Message}}{{.Message}}{{else}}<h2>{{.Title}}</h2>{{end}}
{{if .Summary}}<div class="summary">{{range .Summary}}<span class="{{.Indicator}}">{{.Label}}: <b>{{num .Value}}</b></span>{{end}}</div>{{end}}
<table><thead><tr>{{range .Columns}}<th>{{.Label}}</th>{{end}}</tr></thead>
<tbody>{{range $row := .Rows}}<tr>{{range $.Columns}}<td>{{cell $row .Name}}</td>{{end}}</tr>{{end}}</tbody></table>
<p class="generated">Generated {{.Generated}}</p>
</body></html>
`))

func renderHTML(w io.Writer, d Descriptor, res Result) error {
	return pageTemplate.Execute(w, struct {
		Title     string
		Message   template.HTML
		Summary   []SummaryItem
		Columns   []Column
		Rows      []map[string]any
		Generated string
	}{
		Title: d.Title,
		// Message is produced by the report's own html/template.
		Message:   template.HTML(res.Message), //nolint:gosec
		Summary:   res.Summary,
		Columns:   res.Columns,
		Rows:      res.Rows,
		Generated: res.GeneratedAt.Format("2006-01-02 15:04 MST"),
	})
}
