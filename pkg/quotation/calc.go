package quotation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Compute derives all money fields from the priced lines. The order of
// operations is fixed: markup applies to the subtotal, tax applies to the
// marked-up amount. All arithmetic is exact decimal with no intermediate
// rounding.
//
// Mutates parts and labor in place to fill their subtotals.
func Compute(parts []Part, labor *Labor, taxPct, markupPct decimal.Decimal) (Totals, error) {
	partsTotal := decimal.Zero
	for i := range parts {
		if parts[i].Qty <= 0 {
			return Totals{}, ErrRegistry.NewWithMessage(CodeInvalidLine,
				fmt.Sprintf("Part %q: quantity must be positive.", parts[i].Name))
		}
		if parts[i].UnitPrice.IsNegative() {
			return Totals{}, ErrRegistry.NewWithMessage(CodeInvalidLine,
				fmt.Sprintf("Part %q: unit price must not be negative.", parts[i].Name))
		}
		parts[i].Subtotal = parts[i].UnitPrice.Mul(decimal.NewFromInt(parts[i].Qty))
		partsTotal = partsTotal.Add(parts[i].Subtotal)
	}

	if labor.Hours.IsNegative() || labor.RatePerHour.IsNegative() {
		return Totals{}, ErrRegistry.NewWithMessage(CodeInvalidLine,
			"Labor hours and rate must not be negative.")
	}
	labor.Subtotal = labor.Hours.Mul(labor.RatePerHour)

	subtotal := partsTotal.Add(labor.Subtotal)
	marked := subtotal.Mul(one.Add(markupPct.Div(hundred)))
	tax := marked.Mul(taxPct.Div(hundred))
	grand := marked.Add(tax)

	return Totals{
		Parts:    partsTotal,
		Labor:    labor.Subtotal,
		Subtotal: subtotal,
		Tax:      tax,
		Grand:    grand,
	}, nil
}
