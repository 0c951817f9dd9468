// Package sage builds the monthly import pack for Sage 50 (Peachtree): tab
// delimited master and transaction files bundled into one ZIP archive.
package sage

import (
	"regexp"
	"strings"
	"time"
)

// USDateLayout is the date format Sage expects in transaction files.
const USDateLayout = "01/02/2006"

var slugPattern = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Slug replaces every run of non alphanumerics with "_" and trims the ends.
func Slug(s string) string {
	return strings.Trim(slugPattern.ReplaceAllString(s, "_"), "_")
}

// Sanitize removes tabs and line breaks so a value fits one cell.
func Sanitize(v string) string {
	return strings.TrimSpace(strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(v))
}

// USDate formats t as MM/DD/YYYY.
func USDate(t time.Time) string {
	return t.Format(USDateLayout)
}

// TabText renders a header line and rows, tab separated with LF endings.
func TabText(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, "\t"))
	b.WriteByte('\n')
	for _, r := range rows {
		writeRow(&b, r)
		b.WriteByte('\n')
	}
	return b.String()
}

// TabTextCRLF renders rows without a header using CRLF endings, the layout
// Sage requires for general journal imports.
func TabTextCRLF(rows [][]string) string {
	var b strings.Builder
	for _, r := range rows {
		writeRow(&b, r)
		b.WriteString("\r\n")
	}
	if len(rows) == 0 {
		b.WriteString("\r\n")
	}
	return b.String()
}

func writeRow(b *strings.Builder, r []string) {
	for i, v := range r {
		if i > 0 {
			b.WriteByte('\t')
		}
		b.WriteString(Sanitize(v))
	}
}
