package diagnosticsrv

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/garagelink/drivescan/pkg/billing"
	"github.com/garagelink/drivescan/pkg/diagnostic"
	"github.com/garagelink/drivescan/pkg/fsx"
	"github.com/garagelink/drivescan/pkg/iam"
	"github.com/garagelink/drivescan/pkg/kernel"
	"github.com/garagelink/drivescan/pkg/logx"
)

// CreditConsumer charges one analysis credit. Satisfied by the billing
// service; injected as an interface so diagnostics stays decoupled from the
// billing implementation.
type CreditConsumer interface {
	ConsumeAnalysisCredit(ctx context.Context, actor *kernel.Actor, ref string) (*billing.Account, error)
}

// DiagnosticService implements VCDS upload, parsing, storage and analysis.
type DiagnosticService struct {
	scans    diagnostic.Repository
	files    fsx.FileSystem
	provider diagnostic.Provider
	credits  CreditConsumer
}

// NewDiagnosticService wires the diagnostic service.
func NewDiagnosticService(
	scans diagnostic.Repository,
	files fsx.FileSystem,
	provider diagnostic.Provider,
	credits CreditConsumer,
) *DiagnosticService {
	return &DiagnosticService{
		scans:    scans,
		files:    files,
		provider: provider,
		credits:  credits,
	}
}

// Upload stores a VCDS report and persists the parsed scan record. The file
// is parsed before anything is written: an unrecognizable report costs no
// storage.
func (s *DiagnosticService) Upload(ctx context.Context, actor *kernel.Actor, fileName string, data []byte) (*diagnostic.Scan, error) {
	if len(data) == 0 {
		return nil, diagnostic.ErrRegistry.New(diagnostic.CodeEmptyUpload)
	}

	summary, err := diagnostic.ParseVCDS(string(data))
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	scope := actor.UserID.String()
	if actor.HasOrg() {
		scope = actor.OrgID.String()
	}
	path := s.files.Join("scans", scope, id+filepath.Ext(fileName))

	if err := s.files.WriteFile(ctx, path, data); err != nil {
		return nil, err
	}

	scan := diagnostic.Scan{
		ID:          id,
		OwnerID:     actor.UserID,
		FileName:    fileName,
		StoragePath: path,
		Size:        int64(len(data)),
		ContentType: "text/plain",
		Summary:     summary,
		UploadedAt:  time.Now(),
	}
	if actor.HasOrg() {
		orgID := actor.OrgID
		scan.OrgID = &orgID
	}

	if err := s.scans.CreateScan(ctx, scan); err != nil {
		// Avoid orphaned files when the record fails to persist.
		if delErr := s.files.DeleteFile(ctx, path); delErr != nil {
			logx.WithError(delErr).WithField("path", path).Warn("failed to remove orphaned scan file")
		}
		return nil, err
	}

	return &scan, nil
}

// Get loads a scan the actor is allowed to see.
func (s *DiagnosticService) Get(ctx context.Context, actor *kernel.Actor, id string) (*diagnostic.Scan, error) {
	scan, err := s.scans.FindScanByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canAccess(actor, scan); err != nil {
		return nil, err
	}
	return scan, nil
}

// List returns scans scoped to the actor.
func (s *DiagnosticService) List(ctx context.Context, actor *kernel.Actor, opts kernel.PaginationOptions) (kernel.Paginated[diagnostic.Scan], error) {
	filter := diagnostic.ListFilter{}
	switch {
	case actor.IsSuperadmin():
		// no scoping
	case actor.HasOrg():
		orgID := actor.OrgID
		filter.OrgID = &orgID
		if !actor.Role.IsOrgAdmin() {
			ownerID := actor.UserID
			filter.OwnerID = &ownerID
		}
	default:
		ownerID := actor.UserID
		filter.OwnerID = &ownerID
	}
	return s.scans.ListScans(ctx, filter, opts)
}

// Analyze charges one credit and runs the analysis provider over the scan's
// parsed summary. The credit is spent even when the provider then fails; the
// original system billed per attempt and refunds are a deliberate non-feature.
func (s *DiagnosticService) Analyze(ctx context.Context, actor *kernel.Actor, scanID string) (*diagnostic.AnalysisReport, error) {
	scan, err := s.scans.FindScanByID(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if err := canAccess(actor, scan); err != nil {
		return nil, err
	}

	if _, err := s.credits.ConsumeAnalysisCredit(ctx, actor, scanID); err != nil {
		return nil, err
	}

	findings, err := s.provider.Analyze(ctx, scan.Summary)
	if err != nil {
		return nil, err
	}

	report := diagnostic.AnalysisReport{
		ID:        uuid.New().String(),
		ScanID:    scan.ID,
		UserID:    actor.UserID,
		Findings:  findings,
		CreatedAt: time.Now(),
	}
	if err := s.scans.CreateReport(ctx, report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Report returns the most recent analysis report for a scan.
func (s *DiagnosticService) Report(ctx context.Context, actor *kernel.Actor, scanID string) (*diagnostic.AnalysisReport, error) {
	scan, err := s.scans.FindScanByID(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if err := canAccess(actor, scan); err != nil {
		return nil, err
	}
	return s.scans.FindReportByScanID(ctx, scanID)
}

// DownloadURL returns a time-limited link to the raw report file when the
// storage backend supports presigning.
func (s *DiagnosticService) DownloadURL(ctx context.Context, actor *kernel.Actor, scanID string, expiry time.Duration) (string, error) {
	scan, err := s.scans.FindScanByID(ctx, scanID)
	if err != nil {
		return "", err
	}
	if err := canAccess(actor, scan); err != nil {
		return "", err
	}

	presigner, ok := s.files.(fsx.Presigner)
	if !ok {
		return "", diagnostic.ErrRegistry.New(diagnostic.CodeNoDownloadURL)
	}
	return presigner.PresignedDownloadURL(ctx, scan.StoragePath, expiry)
}

// canAccess applies the read scoping rules shared with quotations.
func canAccess(actor *kernel.Actor, scan *diagnostic.Scan) error {
	if actor.IsSuperadmin() {
		return nil
	}
	if scan.OrgID != nil && actor.HasOrg() && *scan.OrgID == actor.OrgID {
		if actor.Role.IsOrgAdmin() || scan.OwnerID == actor.UserID {
			return nil
		}
		return iam.ErrForbidden("Access denied. You can only access your own resources.")
	}
	if scan.OwnerID == actor.UserID {
		return nil
	}
	return iam.ErrForbidden("Access denied. You can only access your own resources.")
}
