package quotationapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/garagelink/drivescan/pkg/iam"
	"github.com/garagelink/drivescan/pkg/iam/auth"
	"github.com/garagelink/drivescan/pkg/kernel"
	"github.com/garagelink/drivescan/pkg/quotation"
	"github.com/garagelink/drivescan/pkg/quotation/quotationsrv"
)

// QuotationHandlers exposes quotation operations over HTTP.
type QuotationHandlers struct {
	svc *quotationsrv.QuotationService
}

// NewQuotationHandlers creates the handler set.
func NewQuotationHandlers(svc *quotationsrv.QuotationService) *QuotationHandlers {
	return &QuotationHandlers{svc: svc}
}

// RegisterRoutes mounts quotation routes. Creation is a garage-side
// operation; reads are scoped inside the service.
func (h *QuotationHandlers) RegisterRoutes(app *fiber.App, mw *auth.Middleware) {
	grp := app.Group("/api/v1/quotations", mw.Authenticate())
	grp.Post("/", mw.RequireGarage(), h.create)
	grp.Get("/", h.list)
	grp.Get("/:id", h.get)
	grp.Put("/:id", mw.RequireGarage(), h.update)
	grp.Patch("/:id/status", h.updateStatus)
}

func (h *QuotationHandlers) create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	var req quotationsrv.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "Invalid request body.")
	}

	q, err := h.svc.Create(c.Context(), actor, req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Quotation created.",
		"data":    fiber.Map{"quotation": q},
	})
}

func (h *QuotationHandlers) list(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	var status *quotation.Status
	if s := c.Query("status"); s != "" {
		st := quotation.Status(s)
		if !st.IsValid() {
			return iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "status: must be one of draft, sent, approved, rejected")
		}
		status = &st
	}

	opts := kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}

	page, err := h.svc.List(c.Context(), actor, status, opts)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    page,
	})
}

func (h *QuotationHandlers) get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	q, err := h.svc.Get(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"quotation": q},
	})
}

func (h *QuotationHandlers) update(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	var req quotationsrv.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "Invalid request body.")
	}

	q, err := h.svc.Update(c.Context(), actor, c.Params("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Quotation updated.",
		"data":    fiber.Map{"quotation": q},
	})
}

func (h *QuotationHandlers) updateStatus(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "Invalid request body.")
	}

	q, err := h.svc.UpdateStatus(c.Context(), actor, c.Params("id"), quotation.Status(req.Status))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Status updated.",
		"data":    fiber.Map{"quotation": q},
	})
}
