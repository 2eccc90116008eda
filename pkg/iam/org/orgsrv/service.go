package orgsrv

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garagelink/drivescan/pkg/iam"
	"github.com/garagelink/drivescan/pkg/iam/identity"
	"github.com/garagelink/drivescan/pkg/iam/org"
	"github.com/garagelink/drivescan/pkg/kernel"
)

// OrgService implements tenant management.
type OrgService struct {
	orgs org.Repository
}

// NewOrgService creates the org service.
func NewOrgService(orgs org.Repository) *OrgService {
	return &OrgService{orgs: orgs}
}

// CreateRequest is the tenant creation input.
type CreateRequest struct {
	Type     string        `json:"type"`
	Name     string        `json:"name"`
	Country  string        `json:"country"`
	Currency string        `json:"currency"`
	Settings *org.Settings `json:"settings"`
}

func (r CreateRequest) validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required, validation.By(func(v any) error {
			if !kernel.OrgType(v.(string)).IsValid() {
				return validation.NewError("org_type", "must be garage or insurer")
			}
			return nil
		})),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 160)),
		validation.Field(&r.Country, validation.Required, validation.Length(2, 60)),
		validation.Field(&r.Currency, validation.Required, validation.By(func(v any) error {
			if !kernel.Currency(v.(string)).IsValid() {
				return validation.NewError("currency", "must be one of KES, UGX, TZS, USD")
			}
			return nil
		})),
	)
}

// Create persists a new tenant with validated settings.
func (s *OrgService) Create(ctx context.Context, req CreateRequest) (*org.Organization, error) {
	if err := req.validate(); err != nil {
		return nil, iam.ErrRegistry.NewWithMessage(iam.CodeValidation, err.Error())
	}

	settings := org.Settings{
		LaborRatePerHour: decimal.Zero,
		TaxPct:           decimal.Zero,
		DefaultMarkupPct: decimal.Zero,
	}
	if req.Settings != nil {
		settings = *req.Settings
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	o := org.Organization{
		ID:         kernel.NewOrgID(uuid.New().String()),
		Type:       kernel.OrgType(req.Type),
		Name:       req.Name,
		Country:    req.Country,
		Currency:   kernel.Currency(req.Currency),
		Settings:   settings,
		Plan:       identity.PlanFree,
		PlanStatus: identity.PlanStatusActive,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.orgs.Create(ctx, o); err != nil {
		return nil, err
	}
	return &o, nil
}

// Get loads a tenant by id.
func (s *OrgService) Get(ctx context.Context, id kernel.OrgID) (*org.Organization, error) {
	return s.orgs.FindByID(ctx, id)
}

// UpdateSettings replaces the tenant's quotation defaults after bounds checks.
func (s *OrgService) UpdateSettings(ctx context.Context, id kernel.OrgID, settings org.Settings) (*org.Organization, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := s.orgs.UpdateSettings(ctx, id, settings); err != nil {
		return nil, err
	}
	return s.orgs.FindByID(ctx, id)
}

// List returns tenants page by page. Superadmin operation.
func (s *OrgService) List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[org.Organization], error) {
	return s.orgs.List(ctx, opts)
}
