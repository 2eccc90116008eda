package billing

import (
	"context"

	"github.com/garagelink/drivescan/pkg/kernel"
)

// CreditRepository persists accounts and their ledger. Grant and Debit are
// atomic: the balance update and the ledger entry commit together, and Debit
// never drives a balance below zero.
type CreditRepository interface {
	// EnsureAccount creates a zero-balance account when none exists.
	EnsureAccount(ctx context.Context, userID kernel.UserID) error

	// Balance returns the account. Missing account is a not-found error.
	Balance(ctx context.Context, userID kernel.UserID) (*Account, error)

	// Grant adds credits and records a ledger entry.
	Grant(ctx context.Context, userID kernel.UserID, amount int64, reason string, ref *string) (*Account, error)

	// Debit removes credits, failing with InsufficientCredits when the
	// balance would go negative.
	Debit(ctx context.Context, userID kernel.UserID, amount int64, reason string, ref *string) (*Account, error)

	// History lists ledger entries newest first.
	History(ctx context.Context, userID kernel.UserID, opts kernel.PaginationOptions) (kernel.Paginated[LedgerEntry], error)
}

// QuotaCounter tracks analysis runs per user per calendar month.
type QuotaCounter interface {
	// Hit increments the user's counter for the period and returns the
	// post-increment count.
	Hit(ctx context.Context, userID kernel.UserID, period Period) (int64, error)

	// Current returns the counter without incrementing.
	Current(ctx context.Context, userID kernel.UserID, period Period) (int64, error)
}
