package identityapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/garagelink/drivescan/pkg/iam"
	"github.com/garagelink/drivescan/pkg/iam/auth"
	"github.com/garagelink/drivescan/pkg/iam/identity/identitysrv"
	"github.com/garagelink/drivescan/pkg/kernel"
)

// IdentityHandlers exposes registration, login, token refresh, profile and
// superadmin account administration over HTTP.
type IdentityHandlers struct {
	svc *identitysrv.IdentityService
}

// NewIdentityHandlers creates the handler set.
func NewIdentityHandlers(svc *identitysrv.IdentityService) *IdentityHandlers {
	return &IdentityHandlers{svc: svc}
}

// RegisterRoutes mounts all identity routes.
func (h *IdentityHandlers) RegisterRoutes(app *fiber.App, mw *auth.Middleware) {
	grp := app.Group("/api/v1/auth")
	grp.Post("/register", h.register)
	grp.Post("/login", h.login)
	grp.Post("/refresh", h.refresh)
	grp.Get("/me", mw.Authenticate(), h.me)
	grp.Put("/me", mw.Authenticate(), h.updateProfile)

	admin := app.Group("/api/v1/admin", mw.Authenticate(), mw.RequireSuperadmin())
	admin.Get("/users", h.listUsers)
	admin.Patch("/users/:id/active", h.setUserActive)
}

func (h *IdentityHandlers) register(c *fiber.Ctx) error {
	var req identitysrv.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "Invalid request body.")
	}

	result, err := h.svc.Register(c.Context(), req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registration successful.",
		"data":    result,
	})
}

func (h *IdentityHandlers) login(c *fiber.Ctx) error {
	var req identitysrv.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "Invalid request body.")
	}

	result, err := h.svc.Login(c.Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful.",
		"data":    result,
	})
}

func (h *IdentityHandlers) refresh(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "Invalid request body.")
	}

	result, err := h.svc.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Token refreshed.",
		"data":    result,
	})
}

func (h *IdentityHandlers) me(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	user, err := h.svc.Get(c.Context(), actor.UserID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"user": user},
	})
}

func (h *IdentityHandlers) updateProfile(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromCtx(c)
	if !ok {
		return iam.ErrNoToken()
	}

	var req identitysrv.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "Invalid request body.")
	}

	user, err := h.svc.UpdateProfile(c.Context(), actor.UserID, req)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile updated.",
		"data":    fiber.Map{"user": user},
	})
}

func (h *IdentityHandlers) listUsers(c *fiber.Ctx) error {
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

func (h *IdentityHandlers) setUserActive(c *fiber.Ctx) error {
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "Invalid request body.")
	}

	id := kernel.NewUserID(c.Params("id"))
	if err := h.svc.SetActive(c.Context(), id, req.Active); err != nil {
		return err
	}

	message := "Account deactivated."
	if req.Active {
		message = "Account activated."
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
	})
}
