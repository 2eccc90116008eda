package identityinfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/iam"
	"github.com/garagelink/drivescan/pkg/iam/identity"
	"github.com/garagelink/drivescan/pkg/kernel"
)

// PostgresUserRepository is the PostgreSQL implementation of identity.Repository.
type PostgresUserRepository struct {
	db *sqlx.DB
}

// NewPostgresUserRepository creates a new repository instance.
func NewPostgresUserRepository(db *sqlx.DB) identity.Repository {
	return &PostgresUserRepository{db: db}
}

// userColumns excludes password_hash so reads feeding a request context
// never load the secret.
const userColumns = `id, email, name, phone, country, role, org_id, is_active, plan, plan_status, created_at, updated_at`

func (r *PostgresUserRepository) Create(ctx context.Context, user identity.User) error {
	query := `
		INSERT INTO users (
			id, email, password_hash, name, phone, country, role, org_id,
			is_active, plan, plan_status, created_at, updated_at
		) VALUES (
			:id, :email, :password_hash, :name, :phone, :country, :role, :org_id,
			:is_active, :plan, :plan_status, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return iam.ErrUserExists()
		}
		return errx.Wrap(err, "failed to create user", errx.TypeInternal).
			WithDetail("user_id", user.ID.String())
	}
	return nil
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id kernel.UserID) (*identity.User, error) {
	var user identity.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	err := r.db.GetContext(ctx, &user, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, iam.ErrUserNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user by ID", errx.TypeInternal)
	}
	return &user, nil
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var user identity.User
	query := `SELECT * FROM users WHERE lower(email) = lower($1)`
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, iam.ErrUserNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user by email", errx.TypeInternal)
	}
	return &user, nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, user identity.User) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users SET
			name = :name,
			phone = :phone,
			country = :country,
			role = :role,
			org_id = :org_id,
			plan = :plan,
			plan_status = :plan_status,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return errx.Wrap(err, "failed to update user", errx.TypeInternal).
			WithDetail("user_id", user.ID.String())
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on update", errx.TypeInternal)
	}
	if rows == 0 {
		return iam.ErrUserNotFound()
	}
	return nil
}

func (r *PostgresUserRepository) SetActive(ctx context.Context, id kernel.UserID, active bool) error {
	query := `UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id.String(), active)
	if err != nil {
		return errx.Wrap(err, "failed to set user active flag", errx.TypeInternal).
			WithDetail("user_id", id.String())
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on set active", errx.TypeInternal)
	}
	if rows == 0 {
		return iam.ErrUserNotFound()
	}
	return nil
}

func (r *PostgresUserRepository) List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[identity.User], error) {
	opts = opts.Normalize()

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM users`); err != nil {
		return kernel.Paginated[identity.User]{}, errx.Wrap(err, "failed to count users", errx.TypeInternal)
	}

	var users []identity.User
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &users, query, opts.PageSize, opts.Offset()); err != nil {
		return kernel.Paginated[identity.User]{}, errx.Wrap(err, "failed to list users", errx.TypeInternal)
	}

	return kernel.NewPaginated(users, opts.Page, opts.PageSize, total), nil
}
