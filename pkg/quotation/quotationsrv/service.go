package quotationsrv

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garagelink/drivescan/pkg/iam"
	"github.com/garagelink/drivescan/pkg/iam/org"
	"github.com/garagelink/drivescan/pkg/kernel"
	"github.com/garagelink/drivescan/pkg/quotation"
)

// QuotationService implements quotation creation, listing and lifecycle.
type QuotationService struct {
	quotes quotation.Repository
	orgs   org.Repository
}

// NewQuotationService wires the quotation service.
func NewQuotationService(quotes quotation.Repository, orgs org.Repository) *QuotationService {
	return &QuotationService{quotes: quotes, orgs: orgs}
}

// PartInput is one client-supplied part line.
type PartInput struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Qty       int64           `json:"qty"`
}

// LaborInput is the client-supplied labor line. RatePerHour defaults from
// the org settings when omitted.
type LaborInput struct {
	Hours       decimal.Decimal  `json:"hours"`
	RatePerHour *decimal.Decimal `json:"ratePerHour"`
}

// CreateRequest is the quotation creation input. Tax, markup, labor rate and
// currency all default from the creator's organization when omitted.
type CreateRequest struct {
	CustomerName  string            `json:"customerName"`
	CustomerPhone *string           `json:"customerPhone"`
	Vehicle       quotation.Vehicle `json:"vehicle"`
	Currency      *kernel.Currency  `json:"currency"`
	Labor         LaborInput        `json:"labor"`
	Parts         []PartInput       `json:"parts"`
	TaxPct        *decimal.Decimal  `json:"taxPct"`
	MarkupPct     *decimal.Decimal  `json:"markupPct"`
}

func (r CreateRequest) validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CustomerName, validation.Required, validation.Length(1, 160)),
	)
}

var hundred = decimal.NewFromInt(100)

// validatePcts enforces the 0..100 bounds on both create and update paths.
func validatePcts(taxPct, markupPct decimal.Decimal) error {
	if taxPct.IsNegative() || taxPct.GreaterThan(hundred) {
		return iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "taxPct: must be between 0 and 100")
	}
	if markupPct.IsNegative() || markupPct.GreaterThan(hundred) {
		return iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "markupPct: must be between 0 and 100")
	}
	return nil
}

// Create builds a draft quotation. Pricing defaults resolve from the actor's
// organization settings; explicit request values always win.
func (s *QuotationService) Create(ctx context.Context, actor *kernel.Actor, req CreateRequest) (*quotation.Quotation, error) {
	if err := req.validate(); err != nil {
		return nil, iam.ErrRegistry.NewWithMessage(iam.CodeValidation, err.Error())
	}

	var settings *org.Settings
	var orgID *kernel.OrgID
	currency := kernel.CurrencyUSD

	if actor.HasOrg() {
		o, err := s.orgs.FindByID(ctx, actor.OrgID)
		if err != nil {
			return nil, err
		}
		settings = &o.Settings
		orgID = &o.ID
		currency = o.Currency
	}

	if req.Currency != nil {
		if !req.Currency.IsValid() {
			return nil, iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "currency: must be one of KES, UGX, TZS, USD")
		}
		currency = *req.Currency
	}

	labor := quotation.Labor{Hours: req.Labor.Hours}
	switch {
	case req.Labor.RatePerHour != nil:
		labor.RatePerHour = *req.Labor.RatePerHour
	case settings != nil:
		labor.RatePerHour = settings.LaborRatePerHour
	}

	taxPct := decimal.Zero
	markupPct := decimal.Zero
	if settings != nil {
		taxPct = settings.TaxPct
		markupPct = settings.DefaultMarkupPct
	}
	if req.TaxPct != nil {
		taxPct = *req.TaxPct
	}
	if req.MarkupPct != nil {
		markupPct = *req.MarkupPct
	}
	if err := validatePcts(taxPct, markupPct); err != nil {
		return nil, err
	}

	parts := make([]quotation.Part, len(req.Parts))
	for i, in := range req.Parts {
		parts[i] = quotation.Part{Name: in.Name, UnitPrice: in.UnitPrice, Qty: in.Qty}
	}

	totals, err := quotation.Compute(parts, &labor, taxPct, markupPct)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	q := quotation.Quotation{
		ID:            uuid.New().String(),
		OrgID:         orgID,
		CreatedBy:     actor.UserID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Vehicle:       req.Vehicle,
		Currency:      currency,
		Labor:         labor,
		Parts:         parts,
		TaxPct:        taxPct,
		MarkupPct:     markupPct,
		Totals:        totals,
		Status:        quotation.StatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.quotes.Create(ctx, q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Get loads a quotation the actor is allowed to see.
func (s *QuotationService) Get(ctx context.Context, actor *kernel.Actor, id string) (*quotation.Quotation, error) {
	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canAccess(actor, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Update replaces the priced lines of a draft quotation and recomputes totals.
func (s *QuotationService) Update(ctx context.Context, actor *kernel.Actor, id string, req CreateRequest) (*quotation.Quotation, error) {
	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canAccess(actor, q); err != nil {
		return nil, err
	}
	if q.Status != quotation.StatusDraft {
		return nil, quotation.ErrRegistry.New(quotation.CodeNotEditable)
	}
	if err := req.validate(); err != nil {
		return nil, iam.ErrRegistry.NewWithMessage(iam.CodeValidation, err.Error())
	}

	q.CustomerName = req.CustomerName
	q.CustomerPhone = req.CustomerPhone
	q.Vehicle = req.Vehicle
	if req.Currency != nil {
		if !req.Currency.IsValid() {
			return nil, iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "currency: must be one of KES, UGX, TZS, USD")
		}
		q.Currency = *req.Currency
	}
	q.Labor.Hours = req.Labor.Hours
	if req.Labor.RatePerHour != nil {
		q.Labor.RatePerHour = *req.Labor.RatePerHour
	}
	if req.TaxPct != nil {
		q.TaxPct = *req.TaxPct
	}
	if req.MarkupPct != nil {
		q.MarkupPct = *req.MarkupPct
	}
	if err := validatePcts(q.TaxPct, q.MarkupPct); err != nil {
		return nil, err
	}

	parts := make([]quotation.Part, len(req.Parts))
	for i, in := range req.Parts {
		parts[i] = quotation.Part{Name: in.Name, UnitPrice: in.UnitPrice, Qty: in.Qty}
	}
	q.Parts = parts

	totals, err := quotation.Compute(q.Parts, &q.Labor, q.TaxPct, q.MarkupPct)
	if err != nil {
		return nil, err
	}
	q.Totals = totals

	if err := s.quotes.Update(ctx, *q); err != nil {
		return nil, err
	}
	return q, nil
}

// UpdateStatus moves a quotation through its lifecycle.
func (s *QuotationService) UpdateStatus(ctx context.Context, actor *kernel.Actor, id string, status quotation.Status) (*quotation.Quotation, error) {
	if !status.IsValid() {
		return nil, iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "status: must be one of draft, sent, approved, rejected")
	}

	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canAccess(actor, q); err != nil {
		return nil, err
	}
	if !q.Status.CanTransition(status) {
		return nil, quotation.ErrRegistry.New(quotation.CodeInvalidTransition)
	}

	if err := s.quotes.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	q.Status = status
	return q, nil
}

// List returns quotations scoped to the actor: superadmins see everything,
// org members see their tenant, individuals see their own.
func (s *QuotationService) List(ctx context.Context, actor *kernel.Actor, status *quotation.Status, opts kernel.PaginationOptions) (kernel.Paginated[quotation.Quotation], error) {
	filter := quotation.ListFilter{Status: status}
	switch {
	case actor.IsSuperadmin():
		// no scoping
	case actor.HasOrg():
		orgID := actor.OrgID
		filter.OrgID = &orgID
		if !actor.Role.IsOrgAdmin() {
			userID := actor.UserID
			filter.CreatedBy = &userID
		}
	default:
		userID := actor.UserID
		filter.CreatedBy = &userID
	}

	return s.quotes.List(ctx, filter, opts)
}

// canAccess applies the read scoping rules: superadmins always, org admins
// within their tenant, everyone else only their own records.
func canAccess(actor *kernel.Actor, q *quotation.Quotation) error {
	if actor.IsSuperadmin() {
		return nil
	}
	if q.OrgID != nil && actor.HasOrg() && *q.OrgID == actor.OrgID {
		if actor.Role.IsOrgAdmin() || q.CreatedBy == actor.UserID {
			return nil
		}
		return iam.ErrForbidden("Access denied. You can only access your own resources.")
	}
	if q.CreatedBy == actor.UserID {
		return nil
	}
	return iam.ErrForbidden("Access denied. You can only access your own resources.")
}
