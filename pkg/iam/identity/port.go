package identity

import (
	"context"

	"github.com/garagelink/drivescan/pkg/kernel"
)

// Repository defines the contract for user persistence.
type Repository interface {
	// Create persists a new user. Fails with iam.ErrUserExists on a
	// duplicate email.
	Create(ctx context.Context, user User) error

	// FindByID loads a user without its password hash. This is the lookup
	// used by the authentication gate.
	FindByID(ctx context.Context, id kernel.UserID) (*User, error)

	// FindByEmail loads a user including its password hash, for login.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Update persists profile and plan mutations.
	Update(ctx context.Context, user User) error

	// SetActive toggles the account-active flag. Deactivation is the
	// terminal state for access purposes; users are never hard-deleted.
	SetActive(ctx context.Context, id kernel.UserID, active bool) error

	// List returns users page by page, newest first.
	List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[User], error)
}
