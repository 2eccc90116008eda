package diagnosticinfra

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/garagelink/drivescan/pkg/diagnostic"
	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/kernel"
)

// PostgresDiagnosticRepository is the PostgreSQL implementation of
// diagnostic.Repository. Summaries and findings are stored as JSONB.
type PostgresDiagnosticRepository struct {
	db *sqlx.DB
}

// NewPostgresDiagnosticRepository creates a new repository instance.
func NewPostgresDiagnosticRepository(db *sqlx.DB) diagnostic.Repository {
	return &PostgresDiagnosticRepository{db: db}
}

type scanPersistence struct {
	ID          string    `db:"id"`
	OwnerID     string    `db:"owner_id"`
	OrgID       *string   `db:"org_id"`
	FileName    string    `db:"file_name"`
	StoragePath string    `db:"storage_path"`
	Size        int64     `db:"size"`
	ContentType string    `db:"content_type"`
	Summary     []byte    `db:"summary"`
	UploadedAt  time.Time `db:"uploaded_at"`
}

func toScanPersistence(s diagnostic.Scan) (scanPersistence, error) {
	summary, err := json.Marshal(s.Summary)
	if err != nil {
		return scanPersistence{}, errx.Wrap(err, "failed to encode scan summary", errx.TypeInternal)
	}

	var orgID *string
	if s.OrgID != nil {
		id := s.OrgID.String()
		orgID = &id
	}

	return scanPersistence{
		ID:          s.ID,
		OwnerID:     s.OwnerID.String(),
		OrgID:       orgID,
		FileName:    s.FileName,
		StoragePath: s.StoragePath,
		Size:        s.Size,
		ContentType: s.ContentType,
		Summary:     summary,
		UploadedAt:  s.UploadedAt,
	}, nil
}

func toScanDomain(p scanPersistence) (diagnostic.Scan, error) {
	var summary diagnostic.ScanSummary
	if err := json.Unmarshal(p.Summary, &summary); err != nil {
		return diagnostic.Scan{}, errx.Wrap(err, "failed to decode scan summary", errx.TypeInternal)
	}

	var orgID *kernel.OrgID
	if p.OrgID != nil {
		id := kernel.NewOrgID(*p.OrgID)
		orgID = &id
	}

	return diagnostic.Scan{
		ID:          p.ID,
		OwnerID:     kernel.NewUserID(p.OwnerID),
		OrgID:       orgID,
		FileName:    p.FileName,
		StoragePath: p.StoragePath,
		Size:        p.Size,
		ContentType: p.ContentType,
		Summary:     summary,
		UploadedAt:  p.UploadedAt,
	}, nil
}

func (r *PostgresDiagnosticRepository) CreateScan(ctx context.Context, s diagnostic.Scan) error {
	p, err := toScanPersistence(s)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scans (
			id, owner_id, org_id, file_name, storage_path, size, content_type, summary, uploaded_at
		) VALUES (
			:id, :owner_id, :org_id, :file_name, :storage_path, :size, :content_type, :summary, :uploaded_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return errx.Wrap(err, "failed to create scan", errx.TypeInternal).
			WithDetail("scan_id", s.ID)
	}
	return nil
}

func (r *PostgresDiagnosticRepository) FindScanByID(ctx context.Context, id string) (*diagnostic.Scan, error) {
	var p scanPersistence
	query := `SELECT * FROM scans WHERE id = $1`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, diagnostic.ErrScanNotFound()
		}
		return nil, errx.Wrap(err, "failed to find scan by ID", errx.TypeInternal)
	}

	s, err := toScanDomain(p)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresDiagnosticRepository) ListScans(ctx context.Context, filter diagnostic.ListFilter, opts kernel.PaginationOptions) (kernel.Paginated[diagnostic.Scan], error) {
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
	if filter.OwnerID != nil {
		appendCond("owner_id = $%d", filter.OwnerID.String())
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM scans`+where, args...); err != nil {
		return kernel.Paginated[diagnostic.Scan]{}, errx.Wrap(err, "failed to count scans", errx.TypeInternal)
	}

	query := fmt.Sprintf(`SELECT * FROM scans%s ORDER BY uploaded_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, opts.PageSize, opts.Offset())

	var rows []scanPersistence
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return kernel.Paginated[diagnostic.Scan]{}, errx.Wrap(err, "failed to list scans", errx.TypeInternal)
	}

	scans := make([]diagnostic.Scan, 0, len(rows))
	for _, p := range rows {
		s, err := toScanDomain(p)
		if err != nil {
			return kernel.Paginated[diagnostic.Scan]{}, err
		}
		scans = append(scans, s)
	}
	return kernel.NewPaginated(scans, opts.Page, opts.PageSize, total), nil
}

type reportPersistence struct {
	ID        string    `db:"id"`
	ScanID    string    `db:"scan_id"`
	UserID    string    `db:"user_id"`
	Findings  []byte    `db:"findings"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *PostgresDiagnosticRepository) CreateReport(ctx context.Context, report diagnostic.AnalysisReport) error {
	findings, err := json.Marshal(report.Findings)
	if err != nil {
		return errx.Wrap(err, "failed to encode findings", errx.TypeInternal)
	}

	p := reportPersistence{
		ID:        report.ID,
		ScanID:    report.ScanID,
		UserID:    report.UserID.String(),
		Findings:  findings,
		CreatedAt: report.CreatedAt,
	}

	query := `
		INSERT INTO analysis_reports (id, scan_id, user_id, findings, created_at)
		VALUES (:id, :scan_id, :user_id, :findings, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return errx.Wrap(err, "failed to create analysis report", errx.TypeInternal).
			WithDetail("scan_id", report.ScanID)
	}
	return nil
}

func (r *PostgresDiagnosticRepository) FindReportByScanID(ctx context.Context, scanID string) (*diagnostic.AnalysisReport, error) {
	var p reportPersistence
	query := `SELECT * FROM analysis_reports WHERE scan_id = $1 ORDER BY created_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &p, query, scanID); err != nil {
		if err == sql.ErrNoRows {
			return nil, diagnostic.ErrReportNotFound()
		}
		return nil, errx.Wrap(err, "failed to find analysis report", errx.TypeInternal)
	}

	var findings []diagnostic.Finding
	if err := json.Unmarshal(p.Findings, &findings); err != nil {
		return nil, errx.Wrap(err, "failed to decode findings", errx.TypeInternal)
	}

	return &diagnostic.AnalysisReport{
		ID:        p.ID,
		ScanID:    p.ScanID,
		UserID:    kernel.NewUserID(p.UserID),
		Findings:  findings,
		CreatedAt: p.CreatedAt,
	}, nil
}
