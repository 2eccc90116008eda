package quotation

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/kernel"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("QUOTATION")

var (
	CodeNotFound          = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Quotation not found")
	CodeInvalidLine       = ErrRegistry.Register("INVALID_LINE", errx.TypeValidation, http.StatusBadRequest, "Invalid quotation line.")
	CodeInvalidTransition = ErrRegistry.Register("INVALID_TRANSITION", errx.TypeBusiness, http.StatusUnprocessableEntity, "Invalid status transition.")
	CodeNotEditable       = ErrRegistry.Register("NOT_EDITABLE", errx.TypeBusiness, http.StatusUnprocessableEntity, "Only draft quotations can be edited.")
)

func ErrNotFound() *errx.Error { return ErrRegistry.New(CodeNotFound) }

// ============================================================================
// Domain Model
// ============================================================================

// Status is a quotation's lifecycle state.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// CanTransition reports whether a quotation may move to the target state.
// Draft quotations are sent; sent quotations are approved or rejected;
// approved and rejected are terminal.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusDraft:
		return to == StatusSent
	case StatusSent:
		return to == StatusApproved || to == StatusRejected
	}
	return false
}

// IsValid reports whether the status belongs to the fixed enumeration.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Part is one priced line item. Subtotal is computed, never client-supplied.
type Part struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Qty       int64           `json:"qty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Labor is the labor line. Subtotal is computed, never client-supplied.
type Labor struct {
	Hours       decimal.Decimal `json:"hours"`
	RatePerHour decimal.Decimal `json:"ratePerHour"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Vehicle identifies the vehicle being quoted for.
type Vehicle struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year,omitempty"`
	Registration string `json:"registration,omitempty"`
}

// Totals are the computed money fields, all derived by Compute.
type Totals struct {
	Parts    decimal.Decimal `json:"parts"`
	Labor    decimal.Decimal `json:"labor"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Grand    decimal.Decimal `json:"grand"`
}

// Quotation is a repair estimate issued by a garage.
type Quotation struct {
	ID            string          `json:"id"`
	OrgID         *kernel.OrgID   `json:"organizationId,omitempty"`
	CreatedBy     kernel.UserID   `json:"createdBy"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone *string         `json:"customerPhone,omitempty"`
	Vehicle       Vehicle         `json:"vehicle"`
	Currency      kernel.Currency `json:"currency"`
	Labor         Labor           `json:"labor"`
	Parts         []Part          `json:"parts"`
	TaxPct        decimal.Decimal `json:"taxPct"`
	MarkupPct     decimal.Decimal `json:"markupPct"`
	Totals        Totals          `json:"totals"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}
