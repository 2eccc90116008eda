package billinginfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/garagelink/drivescan/pkg/billing"
	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/kernel"
)

// PostgresCreditRepository implements billing.CreditRepository on Postgres.
// Balance mutations ride a single-row UPDATE so concurrent grants and debits
// serialize on the account row; the ledger entry commits in the same
// transaction.
type PostgresCreditRepository struct {
	db *sqlx.DB
}

// NewPostgresCreditRepository creates the repository.
func NewPostgresCreditRepository(db *sqlx.DB) *PostgresCreditRepository {
	return &PostgresCreditRepository{db: db}
}

func (r *PostgresCreditRepository) EnsureAccount(ctx context.Context, userID kernel.UserID) error {
	query := `
		INSERT INTO credit_accounts (user_id, balance, updated_at)
		VALUES ($1, 0, NOW())
		ON CONFLICT (user_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, userID.String()); err != nil {
		return errx.Wrap(err, "failed to ensure credit account", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresCreditRepository) Balance(ctx context.Context, userID kernel.UserID) (*billing.Account, error) {
	var account billing.Account
	query := `SELECT user_id, balance, updated_at FROM credit_accounts WHERE user_id = $1`

	if err := r.db.GetContext(ctx, &account, query, userID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrAccountNotFound()
		}
		return nil, errx.Wrap(err, "failed to load credit account", errx.TypeInternal)
	}
	return &account, nil
}

func (r *PostgresCreditRepository) Grant(ctx context.Context, userID kernel.UserID, amount int64, reason string, ref *string) (*billing.Account, error) {
	if amount <= 0 {
		return nil, billing.ErrInvalidGrant()
	}
	return r.apply(ctx, userID, amount, reason, ref)
}

func (r *PostgresCreditRepository) Debit(ctx context.Context, userID kernel.UserID, amount int64, reason string, ref *string) (*billing.Account, error) {
	if amount <= 0 {
		return nil, billing.ErrInvalidGrant()
	}
	return r.apply(ctx, userID, -amount, reason, ref)
}

// apply moves the balance by delta and appends the ledger entry atomically.
// A negative delta is guarded by the balance predicate in the UPDATE itself,
// so an overdraft surfaces as zero rows affected rather than a negative row.
func (r *PostgresCreditRepository) apply(ctx context.Context, userID kernel.UserID, delta int64, reason string, ref *string) (*billing.Account, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errx.Wrap(err, "failed to begin credit transaction", errx.TypeInternal)
	}
	defer tx.Rollback()

	var account billing.Account
	query := `
		UPDATE credit_accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE user_id = $2 AND balance + $1 >= 0
		RETURNING user_id, balance, updated_at`

	err = tx.GetContext(ctx, &account, query, delta, userID.String())
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing account from an overdraft.
		var exists bool
		if probeErr := tx.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM credit_accounts WHERE user_id = $1)`, userID.String()); probeErr != nil {
			return nil, errx.Wrap(probeErr, "failed to probe credit account", errx.TypeInternal)
		}
		if !exists {
			return nil, billing.ErrAccountNotFound()
		}
		return nil, billing.ErrInsufficientCredits()
	}
	if err != nil {
		return nil, errx.Wrap(err, "failed to update credit balance", errx.TypeInternal)
	}

	entry := billing.LedgerEntry{
		ID:           uuid.New().String(),
		UserID:       userID,
		Delta:        delta,
		BalanceAfter: account.Balance,
		Reason:       reason,
		Ref:          ref,
		CreatedAt:    time.Now(),
	}

	ledgerQuery := `
		INSERT INTO credit_ledger (id, user_id, delta, balance_after, reason, ref, created_at)
		VALUES (:id, :user_id, :delta, :balance_after, :reason, :ref, :created_at)`

	if _, err := tx.NamedExecContext(ctx, ledgerQuery, entry); err != nil {
		return nil, errx.Wrap(err, "failed to record ledger entry", errx.TypeInternal)
	}

	if err := tx.Commit(); err != nil {
		return nil, errx.Wrap(err, "failed to commit credit transaction", errx.TypeInternal)
	}
	return &account, nil
}

func (r *PostgresCreditRepository) History(ctx context.Context, userID kernel.UserID, opts kernel.PaginationOptions) (kernel.Paginated[billing.LedgerEntry], error) {
	opts = opts.Normalize()

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM credit_ledger WHERE user_id = $1`, userID.String()); err != nil {
		return kernel.Paginated[billing.LedgerEntry]{}, errx.Wrap(err, "failed to count ledger entries", errx.TypeInternal)
	}

	entries := []billing.LedgerEntry{}
	query := `
		SELECT id, user_id, delta, balance_after, reason, ref, created_at
		FROM credit_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	if err := r.db.SelectContext(ctx, &entries, query, userID.String(), opts.PageSize, opts.Offset()); err != nil {
		return kernel.Paginated[billing.LedgerEntry]{}, errx.Wrap(err, "failed to list ledger entries", errx.TypeInternal)
	}

	return kernel.NewPaginated(entries, opts.Page, opts.PageSize, total), nil
}
