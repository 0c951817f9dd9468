package machines

import "strings"

type probat struct{}

// Probat reads semicolon separated Probat Pilot exports.
var Probat Adapter = probat{}

func (probat) Name() string { return "probat" }

// Detect matches the probat marker in the filename or head, or a ';'
// separated header with a time column as written by Probat Pilot.
func (probat) Detect(filename, head string) bool {
	if strings.Contains(strings.ToLower(filename), "probat") || strings.Contains(strings.ToLower(head), "probat") {
		return true
	}
	return semicolonHeader(head) && strings.Contains(strings.ToLower(headerLine(head)), "time")
}

func (probat) Parse(content []byte, _ string) (Curve, error) {
	rows, err := readCSV(decodeText(content), ';')
	if err != nil {
		return Curve{}, err
	}
	var c Curve
	for _, r := range rows {
		t := ParseSeconds(r.value("Time"))
		bt := ParseFloat(r.value("BeanTemp", "Bean Temperature", "BT"))
		c.Points = append(c.Points, Point{
			T:   t,
			BT:  bt,
			ET:  ParseFloat(r.value("ExhaustTemp", "Environmental", "ET")),
			RoR: ParseFloat(r.value("RoR", "RateOfRise")),
		})
		if ev, ok := r.pick("Event", "Marker"); ok && strings.TrimSpace(ev) != "" {
			c.Events = append(c.Events, Event{Type: ev, T: t, Temp: bt})
		}
	}
	return c, nil
}
