package quotation

import (
	"context"

	"github.com/garagelink/drivescan/pkg/kernel"
)

// ListFilter scopes quotation listings. Exactly one of OrgID or CreatedBy is
// normally set: org members list their tenant's quotations, individuals list
// their own.
type ListFilter struct {
	OrgID     *kernel.OrgID
	CreatedBy *kernel.UserID
	Status    *Status
}

// Repository persists quotations.
type Repository interface {
	Create(ctx context.Context, q Quotation) error
	FindByID(ctx context.Context, id string) (*Quotation, error)
	Update(ctx context.Context, q Quotation) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	List(ctx context.Context, filter ListFilter, opts kernel.PaginationOptions) (kernel.Paginated[Quotation], error)
}
