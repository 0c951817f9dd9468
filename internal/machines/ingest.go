package machines

import (
	"encoding/json"
	"fmt"

	"coffeeroaster/pkg/domain"
)

// ErrNoContent is returned when an import has nothing to parse.
var ErrNoContent = domain.ValidationError{Message: "No content to import. Provide file_url or content."}

// Import is a parsed and segmented machine export.
type Import struct {
	Adapter string
	Curve   Curve
	Phases  []domain.RoastPhase
	Metrics Metrics
}

// Summary is returned to webhook callers.
type Summary struct {
	Adapter string `json:"adapter"`
	Points  int    `json:"points"`
	Events  int    `json:"events"`
	Phases  int    `json:"phases"`
}

// ParseExport detects the format of content, parses it and computes the
// phases. hint optionally names the adapter.
func ParseExport(content []byte, filename, hint string) (Import, error) {
	if len(content) == 0 {
		return Import{}, ErrNoContent
	}
	adapter := Detect(hint, filename, content)
	curve, err := adapter.Parse(content, filename)
	if err != nil {
		return Import{}, fmt.Errorf("parse %s export: %w", adapter.Name(), err)
	}
	if !curve.hasReadings() {
		return Import{}, domain.Invalidf("No roast data found in %s as a %s export.", displayName(filename), adapter.Name())
	}
	phases, metrics := ComputePhases(curve)
	return Import{Adapter: adapter.Name(), Curve: curve, Phases: phases, Metrics: metrics}, nil
}

func displayName(filename string) string {
	if filename == "" {
		return "the upload"
	}
	return filename
}

// Summary counts the parsed points, events and phases.
func (i Import) Summary() Summary {
	return Summary{Adapter: i.Adapter, Points: len(i.Curve.Points), Events: len(i.Curve.Events), Phases: len(i.Phases)}
}

// Apply writes the phases, non-empty metrics and the raw curve onto log.
// Existing phases are replaced.
func (i Import) Apply(log *domain.CoffeeRoastingLog) error {
	data, err := json.Marshal(i.Curve)
	if err != nil {
		return fmt.Errorf("encode curve: %w", err)
	}
	log.Phases = append([]domain.RoastPhase(nil), i.Phases...)
	log.Adapter = i.Adapter
	log.PointCount = len(i.Curve.Points)
	log.EventCount = len(i.Curve.Events)
	log.DataJSON = string(data)
	setIf(&log.FirstCrackStart, i.Metrics.FirstCrackStart)
	setIf(&log.FirstCrackEnd, i.Metrics.FirstCrackEnd)
	setIf(&log.DevelopmentTime, i.Metrics.DevelopmentTime)
	setIf(&log.RoastTime, i.Metrics.RoastTime)
	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
