package roasting

import (
	"testing"
	"time"

	"coffeeroaster/pkg/domain"
)

func TestApplyMachineEvent(t *testing.T) {
	rb := domain.RoastBatch{Rounds: make([]domain.RoastRound, 3)}
	t0 := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	if !ApplyMachineEvent(&rb, 1, "start", t0) {
		t.Fatalf("expected first start to set charge start")
	}
	if ApplyMachineEvent(&rb, 2, "START", t0.Add(time.Hour)) {
		t.Fatalf("expected charge start to stay")
	}
	if !rb.ChargeStart.Equal(t0) {
		t.Fatalf("charge start overwritten: %v", rb.ChargeStart)
	}
	if ApplyMachineEvent(&rb, 2, "finish", t0.Add(time.Hour)) {
		t.Fatalf("finish of a middle round must not set development end")
	}
	if !ApplyMachineEvent(&rb, 3, "finish", t0.Add(2*time.Hour)) || rb.DevelopmentEnd == nil {
		t.Fatalf("expected final round finish to set development end")
	}
	if ApplyMachineEvent(&rb, 3, "pause", t0) {
		t.Fatalf("unknown states are ignored")
	}
}
