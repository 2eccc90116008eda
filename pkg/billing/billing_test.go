package billing_test

import (
	"testing"
	"time"

	"github.com/garagelink/drivescan/pkg/billing"
)

func TestCurrentPeriodKeying(t *testing.T) {
	// Late on the last day of January, in a timezone ahead of UTC it is
	// already February. Periods are keyed in UTC.
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2025, time.February, 1, 1, 30, 0, 0, loc)

	period := billing.CurrentPeriod(now)
	if period.Key != "2025-01" {
		t.Fatalf("expected UTC period 2025-01, got %s", period.Key)
	}
	if !period.Start.Equal(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected period start %s", period.Start)
	}
	if !period.End.Equal(time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected period end %s", period.End)
	}
}

func TestCurrentPeriodDecemberRollsOver(t *testing.T) {
	period := billing.CurrentPeriod(time.Date(2025, time.December, 15, 12, 0, 0, 0, time.UTC))
	if period.Key != "2025-12" {
		t.Fatalf("expected 2025-12, got %s", period.Key)
	}
	if !period.End.Equal(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected end in January 2026, got %s", period.End)
	}
}

func TestMonthlyQuota(t *testing.T) {
	cases := map[string]int64{
		"free":       5,
		"starter":    50,
		"pro":        200,
		"enterprise": 0,
		"unknown":    5,
		"":           5,
	}
	for plan, want := range cases {
		if got := billing.MonthlyQuota(plan); got != want {
			t.Fatalf("plan %q: expected %d, got %d", plan, want, got)
		}
	}
}
