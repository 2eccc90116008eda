package org

import (
	"context"

	"github.com/garagelink/drivescan/pkg/kernel"
)

// Repository defines the contract for organization persistence.
type Repository interface {
	Create(ctx context.Context, o Organization) error
	FindByID(ctx context.Context, id kernel.OrgID) (*Organization, error)
	Update(ctx context.Context, o Organization) error
	UpdateSettings(ctx context.Context, id kernel.OrgID, settings Settings) error
	List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[Organization], error)
}
