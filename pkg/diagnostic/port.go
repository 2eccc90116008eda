package diagnostic

import (
	"context"

	"github.com/garagelink/drivescan/pkg/kernel"
)

// ListFilter scopes scan listings the same way quotations are scoped.
type ListFilter struct {
	OrgID   *kernel.OrgID
	OwnerID *kernel.UserID
}

// Repository persists scans and analysis reports.
type Repository interface {
	CreateScan(ctx context.Context, s Scan) error
	FindScanByID(ctx context.Context, id string) (*Scan, error)
	ListScans(ctx context.Context, filter ListFilter, opts kernel.PaginationOptions) (kernel.Paginated[Scan], error)

	CreateReport(ctx context.Context, r AnalysisReport) error
	FindReportByScanID(ctx context.Context, scanID string) (*AnalysisReport, error)
}

// Provider turns a scan summary into findings. The remote implementation
// treats the analysis service as opaque: summary in, findings out.
type Provider interface {
	Analyze(ctx context.Context, summary ScanSummary) ([]Finding, error)
}
