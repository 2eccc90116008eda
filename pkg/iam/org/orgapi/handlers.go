package orgapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/garagelink/drivescan/pkg/iam"
	"github.com/garagelink/drivescan/pkg/iam/auth"
	"github.com/garagelink/drivescan/pkg/iam/org"
	"github.com/garagelink/drivescan/pkg/iam/org/orgsrv"
	"github.com/garagelink/drivescan/pkg/kernel"
)

// OrgHandlers exposes tenant management over HTTP.
type OrgHandlers struct {
	svc *orgsrv.OrgService
}

// NewOrgHandlers creates the handler set.
func NewOrgHandlers(svc *orgsrv.OrgService) *OrgHandlers {
	return &OrgHandlers{svc: svc}
}

// RegisterRoutes mounts tenant routes.
func (h *OrgHandlers) RegisterRoutes(app *fiber.App, mw *auth.Middleware) {
	grp := app.Group("/api/v1/orgs", mw.Authenticate())
	grp.Post("/", mw.RequireSuperadmin(), h.create)
	grp.Get("/", mw.RequireSuperadmin(), h.list)
	grp.Get("/:id", h.get)
	grp.Put("/:id/settings", mw.RequireAdmin(), h.updateSettings)
}

func (h *OrgHandlers) create(c *fiber.Ctx) error {
	var req orgsrv.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "Invalid request body.")
	}

	o, err := h.svc.Create(c.Context(), req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Organization created.",
		"data":    fiber.Map{"organization": o},
	})
}

func (h *OrgHandlers) get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	id := kernel.NewOrgID(c.Params("id"))

	// Members see their own tenant; only superadmins see others.
	if !actor.IsSuperadmin() && actor.OrgID != id {
		return iam.ErrForbidden("Access denied. Organization membership required.")
	}

	o, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"organization": o},
	})
}

func (h *OrgHandlers) updateSettings(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	id := kernel.NewOrgID(c.Params("id"))
	if !actor.IsSuperadmin() && actor.OrgID != id {
		return iam.ErrForbidden("Access denied. Organization membership required.")
	}

	var settings org.Settings
	if err := c.BodyParser(&settings); err != nil {
		return iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "Invalid request body.")
	}

	o, err := h.svc.UpdateSettings(c.Context(), id, settings)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Settings updated.",
		"data":    fiber.Map{"organization": o},
	})
}

func (h *OrgHandlers) list(c *fiber.Ctx) error {
	opts := kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}

	page, err := h.svc.List(c.Context(), opts)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    page,
	})
}
