package billingapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/garagelink/drivescan/pkg/billing/billingsrv"
	"github.com/garagelink/drivescan/pkg/iam"
	"github.com/garagelink/drivescan/pkg/iam/auth"
	"github.com/garagelink/drivescan/pkg/kernel"
)

// BillingHandlers exposes credit balance, usage and ledger over HTTP.
type BillingHandlers struct {
	svc *billingsrv.BillingService
}

// NewBillingHandlers creates the handler set.
func NewBillingHandlers(svc *billingsrv.BillingService) *BillingHandlers {
	return &BillingHandlers{svc: svc}
}

// RegisterRoutes mounts billing routes.
func (h *BillingHandlers) RegisterRoutes(app *fiber.App, mw *auth.Middleware) {
	grp := app.Group("/api/v1/billing", mw.Authenticate())
	grp.Get("/balance", h.balance)
	grp.Get("/usage", h.usage)
	grp.Get("/history", h.history)
	grp.Post("/grant", mw.RequireSuperadmin(), h.grant)
}

func (h *BillingHandlers) balance(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	account, err := h.svc.Balance(c.Context(), actor.UserID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"account": account},
	})
}

func (h *BillingHandlers) usage(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	usage, err := h.svc.Usage(c.Context(), actor)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"usage": usage},
	})
}

func (h *BillingHandlers) history(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	opts := kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}

	page, err := h.svc.History(c.Context(), actor.UserID, opts)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    page,
	})
}

func (h *BillingHandlers) grant(c *fiber.Ctx) error {
	var req struct {
		UserID string  `json:"userId"`
		Amount int64   `json:"amount"`
		Ref    *string `json:"ref"`
	}
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "Invalid request body.")
	}

	account, err := h.svc.Grant(c.Context(), kernel.NewUserID(req.UserID), req.Amount, req.Ref)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Credits granted.",
		"data":    fiber.Map{"account": account},
	})
}
