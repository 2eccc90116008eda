package diagnosticapi

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/garagelink/drivescan/pkg/diagnostic"
	"github.com/garagelink/drivescan/pkg/diagnostic/diagnosticsrv"
	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/iam"
	"github.com/garagelink/drivescan/pkg/iam/auth"
	"github.com/garagelink/drivescan/pkg/kernel"
)

// DiagnosticHandlers exposes scan upload and analysis over HTTP.
type DiagnosticHandlers struct {
	svc *diagnosticsrv.DiagnosticService
}

// NewDiagnosticHandlers creates the handler set.
func NewDiagnosticHandlers(svc *diagnosticsrv.DiagnosticService) *DiagnosticHandlers {
	return &DiagnosticHandlers{svc: svc}
}

// RegisterRoutes mounts scan routes.
func (h *DiagnosticHandlers) RegisterRoutes(app *fiber.App, mw *auth.Middleware) {
	grp := app.Group("/api/v1/scans", mw.Authenticate())
	grp.Post("/", h.upload)
	grp.Get("/", h.list)
	grp.Get("/:id", h.get)
	grp.Post("/:id/analyze", h.analyze)
	grp.Get("/:id/report", h.report)
	grp.Get("/:id/download", h.download)
}

func (h *DiagnosticHandlers) upload(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	header, err := c.FormFile("file")
	if err != nil {
		return diagnostic.ErrRegistry.New(diagnostic.CodeEmptyUpload)
	}

	f, err := header.Open()
	if err != nil {
		return errx.Wrap(err, "failed to open uploaded file", errx.TypeInternal)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return errx.Wrap(err, "failed to read uploaded file", errx.TypeInternal)
	}

	scan, err := h.svc.Upload(c.Context(), actor, header.Filename, data)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Scan uploaded.",
		"data":    fiber.Map{"scan": scan},
	})
}

func (h *DiagnosticHandlers) list(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	opts := kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}

	page, err := h.svc.List(c.Context(), actor, opts)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    page,
	})
}

func (h *DiagnosticHandlers) get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	scan, err := h.svc.Get(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"scan": scan},
	})
}

func (h *DiagnosticHandlers) analyze(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	report, err := h.svc.Analyze(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Analysis complete.",
		"data":    fiber.Map{"report": report},
	})
}

func (h *DiagnosticHandlers) report(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	report, err := h.svc.Report(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"report": report},
	})
}

func (h *DiagnosticHandlers) download(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	url, err := h.svc.DownloadURL(c.Context(), actor, c.Params("id"), 15*time.Minute)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"url": url},
	})
}
