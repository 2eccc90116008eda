package orginfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/iam"
	"github.com/garagelink/drivescan/pkg/iam/org"
	"github.com/garagelink/drivescan/pkg/kernel"
)

// PostgresOrgRepository is the PostgreSQL implementation of org.Repository.
type PostgresOrgRepository struct {
	db *sqlx.DB
}

// NewPostgresOrgRepository creates a new repository instance.
func NewPostgresOrgRepository(db *sqlx.DB) org.Repository {
	return &PostgresOrgRepository{db: db}
}

// orgPersistence flattens the nested settings for row scanning.
type orgPersistence struct {
	ID               kernel.OrgID    `db:"id"`
	Type             kernel.OrgType  `db:"type"`
	Name             string          `db:"name"`
	Country          string          `db:"country"`
	Currency         kernel.Currency `db:"currency"`
	LaborRatePerHour decimal.Decimal `db:"labor_rate_per_hour"`
	TaxPct           decimal.Decimal `db:"tax_pct"`
	DefaultMarkupPct decimal.Decimal `db:"default_markup_pct"`
	Plan             string          `db:"plan"`
	PlanStatus       string          `db:"plan_status"`
	IsActive         bool            `db:"is_active"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func toPersistence(o org.Organization) orgPersistence {
	return orgPersistence{
		ID:               o.ID,
		Type:             o.Type,
		Name:             o.Name,
		Country:          o.Country,
		Currency:         o.Currency,
		LaborRatePerHour: o.Settings.LaborRatePerHour,
		TaxPct:           o.Settings.TaxPct,
		DefaultMarkupPct: o.Settings.DefaultMarkupPct,
		Plan:             o.Plan,
		PlanStatus:       o.PlanStatus,
		IsActive:         o.IsActive,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func toDomain(p orgPersistence) org.Organization {
	return org.Organization{
		ID:       p.ID,
		Type:     p.Type,
		Name:     p.Name,
		Country:  p.Country,
		Currency: p.Currency,
		Settings: org.Settings{
			LaborRatePerHour: p.LaborRatePerHour,
			TaxPct:           p.TaxPct,
			DefaultMarkupPct: p.DefaultMarkupPct,
		},
		Plan:       p.Plan,
		PlanStatus: p.PlanStatus,
		IsActive:   p.IsActive,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (r *PostgresOrgRepository) Create(ctx context.Context, o org.Organization) error {
	query := `
		INSERT INTO organizations (
			id, type, name, country, currency, labor_rate_per_hour, tax_pct,
			default_markup_pct, plan, plan_status, is_active, created_at, updated_at
		) VALUES (
			:id, :type, :name, :country, :currency, :labor_rate_per_hour, :tax_pct,
			:default_markup_pct, :plan, :plan_status, :is_active, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, toPersistence(o))
	if err != nil {
		return errx.Wrap(err, "failed to create organization", errx.TypeInternal).
			WithDetail("org_id", o.ID.String())
	}
	return nil
}

func (r *PostgresOrgRepository) FindByID(ctx context.Context, id kernel.OrgID) (*org.Organization, error) {
	var p orgPersistence
	query := `SELECT * FROM organizations WHERE id = $1`
	err := r.db.GetContext(ctx, &p, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, iam.ErrOrgNotFound()
		}
		return nil, errx.Wrap(err, "failed to find organization by ID", errx.TypeInternal)
	}
	o := toDomain(p)
	return &o, nil
}

func (r *PostgresOrgRepository) Update(ctx context.Context, o org.Organization) error {
	o.UpdatedAt = time.Now()

	query := `
		UPDATE organizations SET
			name = :name,
			country = :country,
			currency = :currency,
			labor_rate_per_hour = :labor_rate_per_hour,
			tax_pct = :tax_pct,
			default_markup_pct = :default_markup_pct,
			plan = :plan,
			plan_status = :plan_status,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, toPersistence(o))
	if err != nil {
		return errx.Wrap(err, "failed to update organization", errx.TypeInternal).
			WithDetail("org_id", o.ID.String())
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on update", errx.TypeInternal)
	}
	if rows == 0 {
		return iam.ErrOrgNotFound()
	}
	return nil
}

func (r *PostgresOrgRepository) UpdateSettings(ctx context.Context, id kernel.OrgID, settings org.Settings) error {
	query := `
		UPDATE organizations SET
			labor_rate_per_hour = $2,
			tax_pct = $3,
			default_markup_pct = $4,
			updated_at = now()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id.String(),
		settings.LaborRatePerHour, settings.TaxPct, settings.DefaultMarkupPct)
	if err != nil {
		return errx.Wrap(err, "failed to update organization settings", errx.TypeInternal).
			WithDetail("org_id", id.String())
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on settings update", errx.TypeInternal)
	}
	if rows == 0 {
		return iam.ErrOrgNotFound()
	}
	return nil
}

func (r *PostgresOrgRepository) List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[org.Organization], error) {
	opts = opts.Normalize()

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM organizations`); err != nil {
		return kernel.Paginated[org.Organization]{}, errx.Wrap(err, "failed to count organizations", errx.TypeInternal)
	}

	var rows []orgPersistence
	query := `SELECT * FROM organizations ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &rows, query, opts.PageSize, opts.Offset()); err != nil {
		return kernel.Paginated[org.Organization]{}, errx.Wrap(err, "failed to list organizations", errx.TypeInternal)
	}

	orgs := make([]org.Organization, 0, len(rows))
	for _, p := range rows {
		orgs = append(orgs, toDomain(p))
	}
	return kernel.NewPaginated(orgs, opts.Page, opts.PageSize, total), nil
}
