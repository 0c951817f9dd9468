package machines

import (
	"encoding/json"
	"strings"
)

type artisan struct{}

// Artisan reads Artisan JSON and CSV exports. Its CSV heuristic is broad,
// so it is also the fallback adapter.
var Artisan Adapter = artisan{}

func (artisan) Name() string { return "artisan" }

func (artisan) Detect(filename, head string) bool {
	fn := strings.ToLower(filename)
	if strings.HasSuffix(fn, ".alog") || strings.HasSuffix(fn, ".json") {
		var doc any
		if err := json.Unmarshal([]byte(head), &doc); err != nil {
			return false
		}
		if m, ok := doc.(map[string]any); ok {
			if _, hasRoast := m["roast"]; hasRoast {
				return true
			}
		}
		raw, _ := json.Marshal(doc)
		return strings.Contains(strings.ToLower(string(raw)), "artisan")
	}
	if semicolonHeader(head) {
		return false
	}
	h := strings.ToLower(head)
	for _, k := range []string{"bt", "bean", "time", "event", "et"} {
		if strings.Contains(h, k) {
			return true
		}
	}
	return false
}

func (artisan) Parse(content []byte, _ string) (Curve, error) {
	text := decodeText(content)
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err == nil {
		var points []any
		switch v := doc.(type) {
		case []any:
			points = v
		case map[string]any:
			points, _ = v["points"].([]any)
		}
		if points != nil || isObject(doc) {
			return artisanJSON(points), nil
		}
	}

	rows, err := readCSV(text, ',')
	if err != nil {
		return Curve{}, err
	}
	var c Curve
	for _, r := range rows {
		t := ParseSeconds(r.value("time", "sec", "t", "elapsed", "time (s)", "time(s)"))
		bt := ParseFloat(r.value("bt", "bean", "bean temp", "bean_temp", "bean temperature"))
		c.Points = append(c.Points, Point{
			T:   t,
			BT:  bt,
			ET:  ParseFloat(r.value("et", "env", "environment", "env temp", "exhaust")),
			RoR: ParseFloat(r.value("ror", "rate of rise", "rate_of_rise")),
		})
		if ev, ok := r.pick("event", "flag", "mark"); ok && strings.TrimSpace(ev) != "" {
			c.Events = append(c.Events, Event{Type: ev, T: t, Temp: bt})
		}
	}
	return c, nil
}

func isObject(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

func artisanJSON(points []any) Curve {
	var c Curve
	for _, raw := range points {
		p, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		t := ParseSeconds(firstKey(p, "time", "t", "sec"))
		bt := ParseFloat(firstKey(p, "BT", "bean", "bean_temp"))
		c.Points = append(c.Points, Point{
			T:   t,
			BT:  bt,
			ET:  ParseFloat(firstKey(p, "ET", "env", "environment")),
			RoR: ParseFloat(firstKey(p, "RoR", "ror")),
		})
		if ev, ok := p["event"]; ok && ev != nil && ev != "" {
			c.Events = append(c.Events, Event{Type: toString(ev), T: t, Temp: bt})
		}
	}
	return c
}
