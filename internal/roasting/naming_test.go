package roasting

import (
	"testing"
	"time"
)

func TestNextInSeries(t *testing.T) {
	now := time.Date(2025, 3, 9, 14, 5, 6, 0, time.UTC)
	got := NextInSeries("RB-.YYYY.-.#####", now, []string{"RB-2025-00001", "RB-2025-00007", "RB-2024-00099", "OTHER"})
	if got != "RB-2025-00008" {
		t.Fatalf("unexpected name %s", got)
	}
	if got := NextInSeries("LOT.MM.DD", now, nil); got != "LOT030900001" {
		t.Fatalf("unexpected default-width name %s", got)
	}
}

func TestFallbackBatchID(t *testing.T) {
	now := time.Date(2025, 3, 9, 14, 5, 6, 0, time.UTC)
	if got := FallbackBatchID("ROAST-HOUSE", now); got != "ROAST-HOUSE-BATCH-20250309140506" {
		t.Fatalf("unexpected id %s", got)
	}
}
