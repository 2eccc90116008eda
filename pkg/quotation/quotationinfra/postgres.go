package quotationinfra

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/kernel"
	"github.com/garagelink/drivescan/pkg/quotation"
)

// PostgresQuotationRepository is the PostgreSQL implementation of
// quotation.Repository. Parts and vehicle details are stored as JSONB; the
// money columns are NUMERIC and scanned through shopspring decimals.
type PostgresQuotationRepository struct {
	db *sqlx.DB
}

// NewPostgresQuotationRepository creates a new repository instance.
func NewPostgresQuotationRepository(db *sqlx.DB) quotation.Repository {
	return &PostgresQuotationRepository{db: db}
}

type quotationPersistence struct {
	ID            string          `db:"id"`
	OrgID         *string         `db:"org_id"`
	CreatedBy     string          `db:"created_by"`
	CustomerName  string          `db:"customer_name"`
	CustomerPhone *string         `db:"customer_phone"`
	Vehicle       []byte          `db:"vehicle"`
	Currency      string          `db:"currency"`
	LaborHours    decimal.Decimal `db:"labor_hours"`
	LaborRate     decimal.Decimal `db:"labor_rate"`
	LaborSubtotal decimal.Decimal `db:"labor_subtotal"`
	Parts         []byte          `db:"parts"`
	TaxPct        decimal.Decimal `db:"tax_pct"`
	MarkupPct     decimal.Decimal `db:"markup_pct"`
	PartsTotal    decimal.Decimal `db:"parts_total"`
	Subtotal      decimal.Decimal `db:"subtotal"`
	Tax           decimal.Decimal `db:"tax"`
	Grand         decimal.Decimal `db:"grand"`
	Status        string          `db:"status"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func toPersistence(q quotation.Quotation) (quotationPersistence, error) {
	vehicle, err := json.Marshal(q.Vehicle)
	if err != nil {
		return quotationPersistence{}, errx.Wrap(err, "failed to encode vehicle", errx.TypeInternal)
	}
	parts, err := json.Marshal(q.Parts)
	if err != nil {
		return quotationPersistence{}, errx.Wrap(err, "failed to encode parts", errx.TypeInternal)
	}

	var orgID *string
	if q.OrgID != nil {
		s := q.OrgID.String()
		orgID = &s
	}

	return quotationPersistence{
		ID:            q.ID,
		OrgID:         orgID,
		CreatedBy:     q.CreatedBy.String(),
		CustomerName:  q.CustomerName,
		CustomerPhone: q.CustomerPhone,
		Vehicle:       vehicle,
		Currency:      q.Currency.String(),
		LaborHours:    q.Labor.Hours,
		LaborRate:     q.Labor.RatePerHour,
		LaborSubtotal: q.Labor.Subtotal,
		Parts:         parts,
		TaxPct:        q.TaxPct,
		MarkupPct:     q.MarkupPct,
		PartsTotal:    q.Totals.Parts,
		Subtotal:      q.Totals.Subtotal,
		Tax:           q.Totals.Tax,
		Grand:         q.Totals.Grand,
		Status:        string(q.Status),
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}, nil
}

func toDomain(p quotationPersistence) (quotation.Quotation, error) {
	var vehicle quotation.Vehicle
	if err := json.Unmarshal(p.Vehicle, &vehicle); err != nil {
		return quotation.Quotation{}, errx.Wrap(err, "failed to decode vehicle", errx.TypeInternal)
	}
	var parts []quotation.Part
	if err := json.Unmarshal(p.Parts, &parts); err != nil {
		return quotation.Quotation{}, errx.Wrap(err, "failed to decode parts", errx.TypeInternal)
	}

	var orgID *kernel.OrgID
	if p.OrgID != nil {
		id := kernel.NewOrgID(*p.OrgID)
		orgID = &id
	}

	return quotation.Quotation{
		ID:            p.ID,
		OrgID:         orgID,
		CreatedBy:     kernel.NewUserID(p.CreatedBy),
		CustomerName:  p.CustomerName,
		CustomerPhone: p.CustomerPhone,
		Vehicle:       vehicle,
		Currency:      kernel.Currency(p.Currency),
		Labor: quotation.Labor{
			Hours:       p.LaborHours,
			RatePerHour: p.LaborRate,
			Subtotal:    p.LaborSubtotal,
		},
		Parts:     parts,
		TaxPct:    p.TaxPct,
		MarkupPct: p.MarkupPct,
		Totals: quotation.Totals{
			Parts:    p.PartsTotal,
			Labor:    p.LaborSubtotal,
			Subtotal: p.Subtotal,
			Tax:      p.Tax,
			Grand:    p.Grand,
		},
		Status:    quotation.Status(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

func (r *PostgresQuotationRepository) Create(ctx context.Context, q quotation.Quotation) error {
	p, err := toPersistence(q)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO quotations (
			id, org_id, created_by, customer_name, customer_phone, vehicle, currency,
			labor_hours, labor_rate, labor_subtotal, parts, tax_pct, markup_pct,
			parts_total, subtotal, tax, grand, status, created_at, updated_at
		) VALUES (
			:id, :org_id, :created_by, :customer_name, :customer_phone, :vehicle, :currency,
			:labor_hours, :labor_rate, :labor_subtotal, :parts, :tax_pct, :markup_pct,
			:parts_total, :subtotal, :tax, :grand, :status, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return errx.Wrap(err, "failed to create quotation", errx.TypeInternal).
			WithDetail("quotation_id", q.ID)
	}
	return nil
}

func (r *PostgresQuotationRepository) FindByID(ctx context.Context, id string) (*quotation.Quotation, error) {
	var p quotationPersistence
	query := `SELECT * FROM quotations WHERE id = $1`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, quotation.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find quotation by ID", errx.TypeInternal)
	}

	q, err := toDomain(p)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *PostgresQuotationRepository) Update(ctx context.Context, q quotation.Quotation) error {
	q.UpdatedAt = time.Now()
	p, err := toPersistence(q)
	if err != nil {
		return err
	}

	query := `
		UPDATE quotations SET
			customer_name = :customer_name,
			customer_phone = :customer_phone,
			vehicle = :vehicle,
			currency = :currency,
			labor_hours = :labor_hours,
			labor_rate = :labor_rate,
			labor_subtotal = :labor_subtotal,
			parts = :parts,
			tax_pct = :tax_pct,
			markup_pct = :markup_pct,
			parts_total = :parts_total,
			subtotal = :subtotal,
			tax = :tax,
			grand = :grand,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return errx.Wrap(err, "failed to update quotation", errx.TypeInternal).
			WithDetail("quotation_id", q.ID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on update", errx.TypeInternal)
	}
	if rows == 0 {
		return quotation.ErrNotFound()
	}
	return nil
}

func (r *PostgresQuotationRepository) UpdateStatus(ctx context.Context, id string, status quotation.Status) error {
	query := `UPDATE quotations SET status = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return errx.Wrap(err, "failed to update quotation status", errx.TypeInternal).
			WithDetail("quotation_id", id)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on status update", errx.TypeInternal)
	}
	if rows == 0 {
		return quotation.ErrNotFound()
	}
	return nil
}

func (r *PostgresQuotationRepository) List(ctx context.Context, filter quotation.ListFilter, opts kernel.PaginationOptions) (kernel.Paginated[quotation.Quotation], error) {
	opts = opts.Normalize()

	where := ""
	args := []any{}
	appendCond := func(cond string, arg any) {
		args = append(args, arg)
		clause := fmt.Sprintf(cond, len(args))
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
	}

	if filter.OrgID != nil {
		appendCond("org_id = $%d", filter.OrgID.String())
	}
	if filter.CreatedBy != nil {
		appendCond("created_by = $%d", filter.CreatedBy.String())
	}
	if filter.Status != nil {
		appendCond("status = $%d", string(*filter.Status))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM quotations`+where, args...); err != nil {
		return kernel.Paginated[quotation.Quotation]{}, errx.Wrap(err, "failed to count quotations", errx.TypeInternal)
	}

	query := fmt.Sprintf(`SELECT * FROM quotations%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, opts.PageSize, opts.Offset())

	var rows []quotationPersistence
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return kernel.Paginated[quotation.Quotation]{}, errx.Wrap(err, "failed to list quotations", errx.TypeInternal)
	}

	quotes := make([]quotation.Quotation, 0, len(rows))
	for _, p := range rows {
		q, err := toDomain(p)
		if err != nil {
			return kernel.Paginated[quotation.Quotation]{}, err
		}
		quotes = append(quotes, q)
	}
	return kernel.NewPaginated(quotes, opts.Page, opts.PageSize, total), nil
}
