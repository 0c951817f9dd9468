package machines

import (
	"fmt"
	"strings"

	"coffeeroaster/pkg/domain"
)

// Phase names written to roasting logs.
const (
	PhaseDrying      = "Drying"
	PhaseMaillard    = "Maillard"
	PhaseFirstCrack  = "First Crack"
	PhaseDevelopment = "Development"
)

// Metrics summarises the key timings of a roast, formatted "mm:ss".
type Metrics struct {
	FirstCrackStart string `json:"first_crack_start,omitempty"`
	FirstCrackEnd   string `json:"first_crack_end,omitempty"`
	DevelopmentTime string `json:"development_time,omitempty"`
	RoastTime       string `json:"roast_time,omitempty"`
}

// FormatSeconds renders seconds as "mm:ss".
func FormatSeconds(sec int) string {
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}

// findEvent returns the first event whose type contains one of names,
// trying names in priority order. Matching is case-insensitive.
func findEvent(events []Event, names ...string) *Event {
	for _, n := range names {
		n = strings.ToLower(n)
		for i := range events {
			if strings.Contains(strings.ToLower(events[i].Type), n) {
				return &events[i]
			}
		}
	}
	return nil
}

func eventTime(e *Event) (int, bool) {
	if e == nil || e.T == nil {
		return 0, false
	}
	return *e.T, true
}

// ComputePhases segments a curve into Drying, Maillard, First Crack and
// Development. Missing markers fall back to heuristics: drop defaults to the
// last sample, yellowing to four minutes (or half the roast, or first crack
// when earlier), and the first crack phase to two minutes after its start.
// Phases with a non-positive duration are omitted.
func ComputePhases(c Curve) ([]domain.RoastPhase, Metrics) {
	fcStart := findEvent(c.Events, "FCs", "first crack start", "first crack")
	fcEnd := findEvent(c.Events, "FCe", "first crack end")
	yellow := findEvent(c.Events, "yellow", "dry end", "color change")
	drop := findEvent(c.Events, "drop", "eject", "end")

	lastT := 0
	for _, p := range c.Points {
		if p.T != nil && *p.T > lastT {
			lastT = *p.T
		}
	}
	fcsT, hasFCs := eventTime(fcStart)
	fceT, hasFCe := eventTime(fcEnd)
	if hasFCs && fcsT > lastT {
		lastT = fcsT
	}
	if hasFCe && fceT > lastT {
		lastT = fceT
	}

	dropT, hasDrop := eventTime(drop)
	if drop == nil {
		dropT, hasDrop = lastT, true
	}
	yelT, hasYel := eventTime(yellow)
	if yellow == nil {
		guess := fcsT
		if !hasFCs {
			guess = lastT / 2
			if guess == 0 {
				guess = 240
			}
		}
		yelT, hasYel = min(240, guess), true
	}

	var phases []domain.RoastPhase
	add := func(name string, start int, hasStart bool, end int, hasEnd bool) {
		if !hasStart || !hasEnd || end <= start {
			return
		}
		phases = append(phases, domain.RoastPhase{Phase: name, StartTime: FormatSeconds(start), EndTime: FormatSeconds(end)})
	}

	add(PhaseDrying, 0, true, yelT, hasYel)
	if fcStart != nil {
		add(PhaseMaillard, yelT, hasYel, fcsT, hasFCs)
		fcEndT, fcEndOK := fceT, hasFCe
		if fcEnd == nil {
			fcEndT, fcEndOK = min(dropT, fcsT+120), hasDrop
		}
		add(PhaseFirstCrack, fcsT, hasFCs, fcEndT, fcEndOK)
		add(PhaseDevelopment, fcsT, hasFCs, dropT, hasDrop)
	} else {
		add(PhaseMaillard, yelT, hasYel, dropT, hasDrop)
	}

	var m Metrics
	if hasFCs {
		m.FirstCrackStart = FormatSeconds(fcsT)
	}
	if hasFCe {
		m.FirstCrackEnd = FormatSeconds(fceT)
	}
	if hasFCs && hasDrop && dropT >= fcsT {
		m.DevelopmentTime = FormatSeconds(dropT - fcsT)
	}
	if hasDrop {
		m.RoastTime = FormatSeconds(dropT)
	}
	return phases, m
}
