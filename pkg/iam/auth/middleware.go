package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/iam"
	"github.com/garagelink/drivescan/pkg/iam/identity"
	"github.com/garagelink/drivescan/pkg/iam/org"
	"github.com/garagelink/drivescan/pkg/kernel"
	"github.com/garagelink/drivescan/pkg/logx"
)

// Middleware is the authentication gate plus the authorization policies
// composed after it. Every protected route passes through Authenticate and
// then zero or more policies, left to right; the first stage to fail writes
// the error response and no handler code runs.
type Middleware struct {
	tokens TokenService
	users  identity.Repository
	orgs   org.Repository
}

// NewMiddleware creates the access-control middleware.
func NewMiddleware(tokens TokenService, users identity.Repository, orgs org.Repository) *Middleware {
	return &Middleware{
		tokens: tokens,
		users:  users,
		orgs:   orgs,
	}
}

// ActorFromCtx returns the resolved actor attached by Authenticate.
func ActorFromCtx(c *fiber.Ctx) (*kernel.Actor, bool) {
	actor, ok := c.Locals(string(kernel.ActorContextKey)).(*kernel.Actor)
	return actor, ok && actor != nil
}

// Authenticate validates the bearer token, resolves it to a live user and
// attaches the resolved actor to the request. Running it twice for the same
// request is a no-op: authentication causes no state mutation.
func (m *Middleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := ActorFromCtx(c); ok {
			return c.Next()
		}

		actor, err := m.resolveActor(c)
		if err != nil {
			return respondError(c, err)
		}

		c.Locals(string(kernel.ActorContextKey), actor)
		return c.Next()
	}
}

// RequireRole proceeds only when the actor's role is in the allowed set.
func (m *Middleware) RequireRole(roles ...kernel.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := m.actor(c)
		if err != nil {
			return respondError(c, err)
		}

		for _, role := range roles {
			if actor.Role == role {
				return c.Next()
			}
		}

		names := make([]string, len(roles))
		for i, role := range roles {
			names[i] = role.String()
		}
		return respondError(c, iam.ErrForbidden("Access denied. Required roles: "+strings.Join(names, ", ")))
	}
}

// RequireOrgAccess proceeds when the actor belongs to an organization of an
// allowed type. Superadmins always pass; individual accounts have no org
// concept and always pass.
func (m *Middleware) RequireOrgAccess(orgTypes ...kernel.OrgType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := m.actor(c)
		if err != nil {
			return respondError(c, err)
		}

		if actor.IsSuperadmin() || actor.Role == kernel.RoleIndividual {
			return c.Next()
		}

		if !actor.HasOrg() {
			return respondError(c, iam.ErrForbidden("Access denied. Organization membership required."))
		}

		if len(orgTypes) > 0 {
			for _, t := range orgTypes {
				if actor.OrgType == t {
					return c.Next()
				}
			}
			names := make([]string, len(orgTypes))
			for i, t := range orgTypes {
				names[i] = t.String()
			}
			return respondError(c, iam.ErrForbidden("Access denied. Organization type must be: "+strings.Join(names, ", ")))
		}

		return c.Next()
	}
}

// RequireOwnership proceeds when the request references a resource owned by
// the caller. Superadmins and org admins always pass. The owner id is taken
// from the named route parameter, falling back to the query string.
func (m *Middleware) RequireOwnership(ownerParam string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := m.actor(c)
		if err != nil {
			return respondError(c, err)
		}

		if actor.IsSuperadmin() || actor.Role.IsOrgAdmin() {
			return c.Next()
		}

		owner := c.Params(ownerParam)
		if owner == "" {
			owner = c.Query(ownerParam)
		}
		if owner != actor.UserID.String() {
			return respondError(c, iam.ErrForbidden("Access denied. You can only access your own resources."))
		}

		return c.Next()
	}
}

// Composed policy aliases used across route registration.

// RequireAdmin allows org admins of either tenant type plus superadmins.
func (m *Middleware) RequireAdmin() fiber.Handler {
	return m.RequireRole(kernel.RoleGarageAdmin, kernel.RoleInsurerAdmin, kernel.RoleSuperadmin)
}

// RequireSuperadmin allows superadmins only.
func (m *Middleware) RequireSuperadmin() fiber.Handler {
	return m.RequireRole(kernel.RoleSuperadmin)
}

// RequireGarage allows garage org members (plus the standing bypasses).
func (m *Middleware) RequireGarage() fiber.Handler {
	return m.RequireOrgAccess(kernel.OrgTypeGarage)
}

// RequireInsurer allows insurer org members (plus the standing bypasses).
func (m *Middleware) RequireInsurer() fiber.Handler {
	return m.RequireOrgAccess(kernel.OrgTypeInsurer)
}

// actor returns the request actor, re-running the gate when a policy is
// mounted without Authenticate upstream. Policies never assume ordering.
func (m *Middleware) actor(c *fiber.Ctx) (*kernel.Actor, *errx.Error) {
	if actor, ok := ActorFromCtx(c); ok {
		return actor, nil
	}

	actor, err := m.resolveActor(c)
	if err != nil {
		return nil, err
	}
	c.Locals(string(kernel.ActorContextKey), actor)
	return actor, nil
}

// resolveActor performs the full gate sequence: extract bearer token,
// verify, load the user (sans password hash), check the active flag and
// resolve the organization when one is referenced.
func (m *Middleware) resolveActor(c *fiber.Ctx) (*kernel.Actor, *errx.Error) {
	token := extractBearer(c.Get("Authorization"))
	if token == "" {
		return nil, iam.ErrNoToken()
	}

	claims, err := m.tokens.Verify(token)
	if err != nil {
		if e, ok := errx.As(err); ok {
			return nil, e
		}
		return nil, errx.Wrap(err, "token verification failed", errx.TypeInternal)
	}

	// A refresh token is never accepted where an access token is required.
	if claims.Type != TokenTypeAccess {
		return nil, iam.ErrInvalidToken()
	}

	user, err := m.users.FindByID(c.Context(), claims.UserID)
	if err != nil {
		if e, ok := errx.As(err); ok && e.Type == errx.TypeNotFound {
			return nil, iam.ErrTokenUserNotFound()
		}
		return nil, errx.Wrap(err, "failed to load user during authentication", errx.TypeInternal)
	}

	if !user.IsActive {
		return nil, iam.ErrAccountDeactivated()
	}

	actor := &kernel.Actor{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
		Plan:   user.Plan,
	}

	if user.HasOrg() {
		o, err := m.orgs.FindByID(c.Context(), *user.OrgID)
		if err != nil {
			// A dangling org reference is a data inconsistency, not a
			// client mistake.
			return nil, errx.Wrap(err, "failed to resolve organization during authentication", errx.TypeInternal)
		}
		actor.OrgID = o.ID
		actor.OrgType = o.Type
		actor.Currency = o.Currency
	}

	return actor, nil
}

// extractBearer pulls the token out of an "Authorization: Bearer x" header.
func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// respondError writes the wire-contract error shape. Internal failures are
// logged with detail and surface as a generic 500; nothing raw from the
// store or crypto layers reaches the client.
func respondError(c *fiber.Ctx, err error) error {
	e, ok := errx.As(err)
	if !ok {
		e = errx.Wrap(err, "unexpected error", errx.TypeInternal)
	}

	if e.Type == errx.TypeInternal {
		logx.WithError(e).WithFields(logx.Fields{
			"path":   c.Path(),
			"method": c.Method(),
		}).Error("request failed during access control")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error.",
		})
	}

	return c.Status(e.HTTPStatus).JSON(fiber.Map{"error": e.Message})
}
