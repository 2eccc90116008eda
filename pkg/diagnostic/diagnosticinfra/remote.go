package diagnosticinfra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/garagelink/drivescan/pkg/config"
	"github.com/garagelink/drivescan/pkg/diagnostic"
	"github.com/garagelink/drivescan/pkg/errx"
)

// RemoteAnalysisProvider calls the external analysis service. The service is
// opaque: a scan summary goes out, findings come back. Any failure surfaces
// as an external error and the caller's credit handling decides what to do.
type RemoteAnalysisProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewRemoteAnalysisProvider creates the provider from configuration.
func NewRemoteAnalysisProvider(cfg config.AnalysisConfig) *RemoteAnalysisProvider {
	return &RemoteAnalysisProvider{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

type analyzeRequest struct {
	Summary diagnostic.ScanSummary `json:"summary"`
}

type analyzeResponse struct {
	Findings []diagnostic.Finding `json:"findings"`
}

func (p *RemoteAnalysisProvider) Analyze(ctx context.Context, summary diagnostic.ScanSummary) ([]diagnostic.Finding, error) {
	body, err := json.Marshal(analyzeRequest{Summary: summary})
	if err != nil {
		return nil, errx.Wrap(err, "failed to encode analysis request", errx.TypeInternal)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errx.Wrap(err, "failed to build analysis request", errx.TypeInternal)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, diagnostic.ErrRegistry.NewWithCause(diagnostic.CodeAnalysisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a bounded slice of the body for the log detail only.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, diagnostic.ErrRegistry.NewWithCause(diagnostic.CodeAnalysisFailed,
			fmt.Errorf("analysis service returned %d: %s", resp.StatusCode, string(detail)))
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, diagnostic.ErrRegistry.NewWithCause(diagnostic.CodeAnalysisFailed, err)
	}
	return out.Findings, nil
}
