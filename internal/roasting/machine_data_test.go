package roasting

import (
	"testing"
	"time"

	"coffeeroaster/pkg/domain"
)

func TestRoundLogsBySuffix(t *testing.T) {
	rb := domain.RoastBatch{Rounds: make([]domain.RoastRound, 2)}
	logs := []domain.CoffeeRoastingLog{
		{LogName: "LOG-R1"},
		{LogName: "LOG-R2"},
		{LogName: "LOG-R02"},
		{LogName: "LOG-R9"},
		{LogName: "LOG"},
	}
	out := RoundLogs(rb, logs)
	if len(out[1]) != 1 || len(out[2]) != 2 {
		t.Fatalf("unexpected grouping %v", out)
	}
}

func TestRoundLogsMatchesLogNameNotID(t *testing.T) {
	rb := domain.RoastBatch{Rounds: make([]domain.RoastRound, 2)}
	logs := []domain.CoffeeRoastingLog{
		{Base: domain.Base{ID: "0b7c9a52-5d1e-4f7e-9a43-2f1c8e6d1a10"}, LogName: "RB-0007-R2"},
		{Base: domain.Base{ID: "CRL-00003-R1"}, LogName: "morning roast"},
	}
	out := RoundLogs(rb, logs)
	if len(out[2]) != 1 || out[2][0].LogName != "RB-0007-R2" {
		t.Fatalf("expected uuid log in round 2, got %v", out)
	}
	if len(out[1]) != 0 {
		t.Fatalf("document id suffix must not assign a round, got %v", out[1])
	}
}

func TestRoundLogsByTimeWindow(t *testing.T) {
	start := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	rb := domain.RoastBatch{Rounds: make([]domain.RoastRound, 3), ChargeStart: &start, DevelopmentEnd: &end}
	logs := []domain.CoffeeRoastingLog{
		{Base: domain.Base{ID: "b"}, Timestamp: start.Add(25 * time.Minute)},
		{Base: domain.Base{ID: "a"}, Timestamp: start.Add(time.Minute)},
		{Base: domain.Base{ID: "c"}, Timestamp: start.Add(15 * time.Minute)},
		{Base: domain.Base{ID: "late"}, Timestamp: end.Add(time.Hour)},
		{Base: domain.Base{ID: "early"}, Timestamp: start.Add(-time.Hour)},
	}
	out := RoundLogs(rb, logs)
	if len(out[1]) != 2 || out[1][0].ID != "early" || out[1][1].ID != "a" {
		t.Fatalf("unexpected round 1 %v", out[1])
	}
	if len(out[2]) != 1 || out[2][0].ID != "c" {
		t.Fatalf("unexpected round 2 %v", out[2])
	}
	if len(out[3]) != 2 {
		t.Fatalf("unexpected round 3 %v", out[3])
	}
}

func TestRoundLogsWithoutRounds(t *testing.T) {
	if out := RoundLogs(domain.RoastBatch{}, []domain.CoffeeRoastingLog{{}}); len(out) != 0 {
		t.Fatalf("expected empty map, got %v", out)
	}
}
