package billing

import (
	"net/http"
	"time"

	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/kernel"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("BILLING")

var (
	CodeInsufficientCredits = ErrRegistry.Register("INSUFFICIENT_CREDITS", errx.TypeBusiness, http.StatusUnprocessableEntity, "Insufficient credits.")
	CodeQuotaExceeded       = ErrRegistry.Register("QUOTA_EXCEEDED", errx.TypeBusiness, http.StatusUnprocessableEntity, "Monthly analysis quota exceeded.")
	CodeAccountNotFound     = ErrRegistry.Register("ACCOUNT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Credit account not found")
	CodeInvalidGrant        = ErrRegistry.Register("INVALID_GRANT", errx.TypeValidation, http.StatusBadRequest, "Grant amount must be positive.")
)

func ErrInsufficientCredits() *errx.Error { return ErrRegistry.New(CodeInsufficientCredits) }
func ErrQuotaExceeded() *errx.Error       { return ErrRegistry.New(CodeQuotaExceeded) }
func ErrAccountNotFound() *errx.Error     { return ErrRegistry.New(CodeAccountNotFound) }
func ErrInvalidGrant() *errx.Error        { return ErrRegistry.New(CodeInvalidGrant) }

// ============================================================================
// Domain Model
// ============================================================================

// Account is a user's credit balance. One analysis run costs one credit.
type Account struct {
	UserID    kernel.UserID `json:"userId" db:"user_id"`
	Balance   int64         `json:"balance" db:"balance"`
	UpdatedAt time.Time     `json:"updatedAt" db:"updated_at"`
}

// Ledger entry reasons.
const (
	ReasonSignup   = "signup"
	ReasonAnalysis = "analysis"
	ReasonGrant    = "grant"
)

// LedgerEntry is one immutable movement on a credit account. BalanceAfter is
// captured inside the same transaction as the balance update.
type LedgerEntry struct {
	ID           string        `json:"id" db:"id"`
	UserID       kernel.UserID `json:"userId" db:"user_id"`
	Delta        int64         `json:"delta" db:"delta"`
	BalanceAfter int64         `json:"balanceAfter" db:"balance_after"`
	Reason       string        `json:"reason" db:"reason"`
	Ref          *string       `json:"ref,omitempty" db:"ref"`
	CreatedAt    time.Time     `json:"createdAt" db:"created_at"`
}

// MonthlyQuota returns how many analysis runs a plan allows per calendar
// month. Zero means unlimited.
func MonthlyQuota(plan string) int64 {
	switch plan {
	case "starter":
		return 50
	case "pro":
		return 200
	case "enterprise":
		return 0
	default: // free
		return 5
	}
}

// Period identifies a calendar-month usage window in UTC.
type Period struct {
	Key   string    `json:"key"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CurrentPeriod returns the usage window containing now.
func CurrentPeriod(now time.Time) Period {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Key:   start.Format("2006-01"),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// Usage is the per-user view of the current quota window.
type Usage struct {
	Period  Period `json:"period"`
	Plan    string `json:"plan"`
	Used    int64  `json:"used"`
	Limit   int64  `json:"limit"`
	Balance int64  `json:"balance"`
}
