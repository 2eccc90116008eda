package org

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/kernel"
)

// Organization is a tenant (garage or insurer). Users reference an
// organization for lookup; the reference never implies ownership.
type Organization struct {
	ID         kernel.OrgID    `db:"id" json:"id"`
	Type       kernel.OrgType  `db:"type" json:"type"`
	Name       string          `db:"name" json:"name"`
	Country    string          `db:"country" json:"country"`
	Currency   kernel.Currency `db:"currency" json:"currency"`
	Settings   Settings        `json:"settings"`
	Plan       string          `db:"plan" json:"plan"`
	PlanStatus string          `db:"plan_status" json:"planStatus"`
	IsActive   bool            `db:"is_active" json:"isActive"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updatedAt"`
}

// Settings are the tenant-level quotation defaults. Rates are non-negative
// and percentages are capped at 100.
type Settings struct {
	LaborRatePerHour decimal.Decimal `db:"labor_rate_per_hour" json:"laborRatePerHour"`
	TaxPct           decimal.Decimal `db:"tax_pct" json:"taxPct"`
	DefaultMarkupPct decimal.Decimal `db:"default_markup_pct" json:"defaultMarkupPct"`
}

var hundred = decimal.NewFromInt(100)

// Validate checks the declared bounds on settings values.
func (s Settings) Validate() error {
	if s.LaborRatePerHour.IsNegative() {
		return errx.New("labor rate per hour must not be negative", errx.TypeValidation)
	}
	if s.TaxPct.IsNegative() || s.TaxPct.GreaterThan(hundred) {
		return errx.New("tax percentage must be between 0 and 100", errx.TypeValidation)
	}
	if s.DefaultMarkupPct.IsNegative() || s.DefaultMarkupPct.GreaterThan(hundred) {
		return errx.New("markup percentage must be between 0 and 100", errx.TypeValidation)
	}
	return nil
}
