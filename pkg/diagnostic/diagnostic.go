package diagnostic

import (
	"net/http"
	"time"

	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/kernel"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("DIAGNOSTIC")

var (
	CodeScanNotFound     = ErrRegistry.Register("SCAN_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Scan not found")
	CodeReportNotFound   = ErrRegistry.Register("REPORT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Analysis report not found")
	CodeEmptyUpload      = ErrRegistry.Register("EMPTY_UPLOAD", errx.TypeValidation, http.StatusBadRequest, "No file uploaded.")
	CodeUnrecognizedFile = ErrRegistry.Register("UNRECOGNIZED_FILE", errx.TypeValidation, http.StatusBadRequest, "Unrecognized VCDS report format.")
	CodeAnalysisFailed   = ErrRegistry.Register("ANALYSIS_FAILED", errx.TypeExternal, http.StatusBadGateway, "Analysis service failed.")
	CodeNoDownloadURL    = ErrRegistry.Register("NO_DOWNLOAD_URL", errx.TypeBusiness, http.StatusUnprocessableEntity, "Download links are not available on this storage backend.")
)

func ErrScanNotFound() *errx.Error   { return ErrRegistry.New(CodeScanNotFound) }
func ErrReportNotFound() *errx.Error { return ErrRegistry.New(CodeReportNotFound) }

// ============================================================================
// Domain Model
// ============================================================================

// FaultCode is one diagnostic trouble code reported by a control module.
type FaultCode struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Detail      string `json:"detail,omitempty"`
}

// ControlModule is one ECU section of a VCDS report.
type ControlModule struct {
	Address string      `json:"address"`
	Name    string      `json:"name"`
	Faults  []FaultCode `json:"faults"`
}

// ScanSummary is the structured extract of a VCDS report. It is what the
// analysis provider receives; the raw file never leaves storage.
type ScanSummary struct {
	VIN        string          `json:"vin,omitempty"`
	Modules    []ControlModule `json:"modules"`
	FaultCount int             `json:"faultCount"`
}

// Scan is one uploaded VCDS report.
type Scan struct {
	ID          string        `json:"id"`
	OwnerID     kernel.UserID `json:"ownerId"`
	OrgID       *kernel.OrgID `json:"organizationId,omitempty"`
	FileName    string        `json:"fileName"`
	StoragePath string        `json:"-"`
	Size        int64         `json:"size"`
	ContentType string        `json:"contentType"`
	Summary     ScanSummary   `json:"summary"`
	UploadedAt  time.Time     `json:"uploadedAt"`
}

// Finding severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Finding is one analysis conclusion.
type Finding struct {
	Title    string `json:"title"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// AnalysisReport is the stored outcome of one analysis run.
type AnalysisReport struct {
	ID        string        `json:"id"`
	ScanID    string        `json:"scanId"`
	UserID    kernel.UserID `json:"userId"`
	Findings  []Finding     `json:"findings"`
	CreatedAt time.Time     `json:"createdAt"`
}
