// Package machines parses roast-curve exports from roasting machine software
// and segments them into roast phases.
package machines

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point is one sample of a roast curve. T is seconds since charge.
type Point struct {
	T   *int     `json:"t"`
	BT  *float64 `json:"bt"`
	ET  *float64 `json:"et"`
	RoR *float64 `json:"ror"`
}

// Event is a marker recorded during the roast, such as first crack or drop.
type Event struct {
	Type string   `json:"type"`
	T    *int     `json:"t"`
	Temp *float64 `json:"temp"`
}

// Curve is the parsed content of a machine export.
type Curve struct {
	Points []Point `json:"points"`
	Events []Event `json:"events"`
}

// hasReadings reports whether any point carries a time or a temperature.
func (c Curve) hasReadings() bool {
	for _, p := range c.Points {
		if p.T != nil || p.BT != nil || p.ET != nil {
			return true
		}
	}
	return false
}

// Adapter recognises and parses one vendor format.
type Adapter interface {
	Name() string
	Detect(filename, head string) bool
	Parse(content []byte, filename string) (Curve, error)
}

// ParseSeconds accepts whole or fractional seconds and "mm:ss" (or
// "hh:mm:ss", of which only the last two parts count).
func ParseSeconds(v any) *int {
	var s string
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		n := int(val)
		return &n
	case int:
		return &val
	case json.Number:
		s = val.String()
	case string:
		s = val
	default:
		s = fmt.Sprint(val)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		mm, err1 := strconv.ParseFloat(strings.TrimSpace(parts[len(parts)-2]), 64)
		ss, err2 := strconv.ParseFloat(strings.TrimSpace(parts[len(parts)-1]), 64)
		if err1 != nil || err2 != nil {
			return nil
		}
		n := int(mm)*60 + int(ss)
		return &n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

// ParseFloat converts a JSON or CSV cell to a temperature, nil when empty
// or not numeric.
func ParseFloat(v any) *float64 {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		return &val
	case int:
		f := float64(val)
		return &f
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil
		}
		return &f
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(v)), 64)
	if err != nil {
		return nil
	}
	return &f
}

// firstKey returns the first present value among keys.
func firstKey(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// csvRow is one delimited record keyed by its header cell.
type csvRow map[string]string

func readCSV(text string, comma rune) ([]csvRow, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	rows := make([]csvRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(csvRow, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// pick returns the cell of the first candidate column present in the row.
// Candidates are tried in order; column names compare trimmed and
// case-insensitively. ok is false when no candidate column exists.
func (r csvRow) pick(candidates ...string) (string, bool) {
	for _, c := range candidates {
		for k, v := range r {
			if strings.EqualFold(strings.TrimSpace(k), c) {
				return v, true
			}
		}
	}
	return "", false
}

func (r csvRow) value(candidates ...string) any {
	v, ok := r.pick(candidates...)
	if !ok {
		return nil
	}
	return v
}

func decodeText(content []byte) string {
	return strings.ToValidUTF8(string(content), "")
}
