package quotation_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/quotation"
)

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func assertEqual(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("%s: expected %s, got %s", name, want, got)
	}
}

func TestComputeWorkedExample(t *testing.T) {
	parts := []quotation.Part{
		{Name: "Ignition coil", UnitPrice: dec("5000"), Qty: 1},
		{Name: "Spark plug", UnitPrice: dec("3000"), Qty: 2},
	}
	labor := quotation.Labor{Hours: dec("2"), RatePerHour: dec("1500")}

	totals, err := quotation.Compute(parts, &labor, dec("16"), dec("10"))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	assertEqual(t, "parts total", totals.Parts, dec("11000"))
	assertEqual(t, "labor total", totals.Labor, dec("3000"))
	assertEqual(t, "subtotal", totals.Subtotal, dec("14000"))
	assertEqual(t, "tax", totals.Tax, dec("2464"))
	assertEqual(t, "grand", totals.Grand, dec("17864"))

	assertEqual(t, "part 1 subtotal", parts[0].Subtotal, dec("5000"))
	assertEqual(t, "part 2 subtotal", parts[1].Subtotal, dec("6000"))
	assertEqual(t, "labor subtotal", labor.Subtotal, dec("3000"))
}

func TestComputeLaborOnly(t *testing.T) {
	labor := quotation.Labor{Hours: dec("1"), RatePerHour: dec("2000")}

	totals, err := quotation.Compute(nil, &labor, dec("16"), dec("10"))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	assertEqual(t, "parts total", totals.Parts, decimal.Zero)
	assertEqual(t, "subtotal", totals.Subtotal, dec("2000"))
	assertEqual(t, "tax", totals.Tax, dec("352"))
	assertEqual(t, "grand", totals.Grand, dec("2552"))
}

func TestComputeZeroRates(t *testing.T) {
	parts := []quotation.Part{{Name: "Bulb", UnitPrice: dec("150"), Qty: 2}}
	labor := quotation.Labor{}

	totals, err := quotation.Compute(parts, &labor, decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	assertEqual(t, "grand", totals.Grand, dec("300"))
	assertEqual(t, "tax", totals.Tax, decimal.Zero)
}

func TestComputeRejectsNonPositiveQty(t *testing.T) {
	for _, qty := range []int64{0, -1} {
		parts := []quotation.Part{{Name: "Filter", UnitPrice: dec("100"), Qty: qty}}
		labor := quotation.Labor{}

		_, err := quotation.Compute(parts, &labor, decimal.Zero, decimal.Zero)
		if err == nil {
			t.Fatalf("expected error for qty %d", qty)
		}
		e, ok := errx.As(err)
		if !ok || e.Type != errx.TypeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	}
}

func TestComputeRejectsNegativePrice(t *testing.T) {
	parts := []quotation.Part{{Name: "Filter", UnitPrice: dec("-1"), Qty: 1}}
	labor := quotation.Labor{}

	if _, err := quotation.Compute(parts, &labor, decimal.Zero, decimal.Zero); err == nil {
		t.Fatal("expected error for negative unit price")
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to quotation.Status
		allowed  bool
	}{
		{quotation.StatusDraft, quotation.StatusSent, true},
		{quotation.StatusSent, quotation.StatusApproved, true},
		{quotation.StatusSent, quotation.StatusRejected, true},
		{quotation.StatusDraft, quotation.StatusApproved, false},
		{quotation.StatusApproved, quotation.StatusRejected, false},
		{quotation.StatusRejected, quotation.StatusSent, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}
