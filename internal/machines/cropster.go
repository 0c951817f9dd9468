package machines

import (
	"encoding/json"
	"fmt"
	"strings"
)

type cropster struct{}

// Cropster reads Cropster curve exports (JSON with curve and events, or CSV).
var Cropster Adapter = cropster{}

func (cropster) Name() string { return "cropster" }

func (cropster) Detect(filename, head string) bool {
	s := strings.ToLower(filename + " " + head)
	if strings.Contains(s, "cropster") {
		return true
	}
	if semicolonHeader(head) {
		return false
	}
	for _, k := range []string{"bean temp", "rate of rise", "first crack", "yellow"} {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func (cropster) Parse(content []byte, _ string) (Curve, error) {
	text := decodeText(content)
	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err == nil {
		var c Curve
		pts, _ := firstKey(doc, "curve", "points").([]any)
		for _, raw := range pts {
			p, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			c.Points = append(c.Points, Point{
				T:   ParseSeconds(firstKey(p, "t", "time")),
				BT:  ParseFloat(firstKey(p, "bt", "bean_temp")),
				ET:  ParseFloat(firstKey(p, "et", "env_temp")),
				RoR: ParseFloat(p["ror"]),
			})
		}
		evs, _ := doc["events"].([]any)
		for _, raw := range evs {
			e, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			c.Events = append(c.Events, Event{
				Type: toString(firstKey(e, "type", "name")),
				T:    ParseSeconds(firstKey(e, "t", "time")),
				Temp: ParseFloat(firstKey(e, "temp", "bt")),
			})
		}
		return c, nil
	}

	rows, err := readCSV(text, ',')
	if err != nil {
		return Curve{}, err
	}
	var c Curve
	for _, r := range rows {
		t := ParseSeconds(r.value("time", "sec", "elapsed"))
		bt := ParseFloat(r.value("bean temp", "bt", "bean_temp"))
		c.Points = append(c.Points, Point{
			T:   t,
			BT:  bt,
			ET:  ParseFloat(r.value("env temp", "et", "environment")),
			RoR: ParseFloat(r.value("rate of rise", "ror")),
		})
		if ev, ok := r.pick("event", "event name"); ok && strings.TrimSpace(ev) != "" {
			c.Events = append(c.Events, Event{Type: ev, T: t, Temp: bt})
		}
	}
	return c, nil
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
