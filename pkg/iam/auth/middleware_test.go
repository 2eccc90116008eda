package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/garagelink/drivescan/pkg/iam"
	"github.com/garagelink/drivescan/pkg/iam/auth"
	"github.com/garagelink/drivescan/pkg/iam/identity"
	"github.com/garagelink/drivescan/pkg/iam/org"
	"github.com/garagelink/drivescan/pkg/kernel"
)

type fakeUserRepo struct {
	users map[kernel.UserID]*identity.User
	finds int
}

func (r *fakeUserRepo) Create(ctx context.Context, user identity.User) error {
	r.users[user.ID] = &user
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id kernel.UserID) (*identity.User, error) {
	r.finds++
	user, ok := r.users[id]
	if !ok {
		return nil, iam.ErrUserNotFound()
	}
	copied := *user
	copied.PasswordHash = ""
	return &copied, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, iam.ErrUserNotFound()
}

func (r *fakeUserRepo) Update(ctx context.Context, user identity.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return iam.ErrUserNotFound()
	}
	r.users[user.ID] = &user
	return nil
}

func (r *fakeUserRepo) SetActive(ctx context.Context, id kernel.UserID, active bool) error {
	user, ok := r.users[id]
	if !ok {
		return iam.ErrUserNotFound()
	}
	user.IsActive = active
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[identity.User], error) {
	users := make([]identity.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, *u)
	}
	return kernel.NewPaginated(users, 1, len(users)+1, len(users)), nil
}

type fakeOrgRepo struct {
	orgs map[kernel.OrgID]*org.Organization
}

func (r *fakeOrgRepo) Create(ctx context.Context, o org.Organization) error {
	r.orgs[o.ID] = &o
	return nil
}

func (r *fakeOrgRepo) FindByID(ctx context.Context, id kernel.OrgID) (*org.Organization, error) {
	o, ok := r.orgs[id]
	if !ok {
		return nil, iam.ErrOrgNotFound()
	}
	copied := *o
	return &copied, nil
}

func (r *fakeOrgRepo) Update(ctx context.Context, o org.Organization) error {
	r.orgs[o.ID] = &o
	return nil
}

func (r *fakeOrgRepo) UpdateSettings(ctx context.Context, id kernel.OrgID, settings org.Settings) error {
	o, ok := r.orgs[id]
	if !ok {
		return iam.ErrOrgNotFound()
	}
	o.Settings = settings
	return nil
}

func (r *fakeOrgRepo) List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[org.Organization], error) {
	return kernel.Paginated[org.Organization]{}, nil
}

type gateFixture struct {
	tokens *auth.JWTService
	users  *fakeUserRepo
	orgs   *fakeOrgRepo
	mw     *auth.Middleware
}

func newGateFixture() *gateFixture {
	users := &fakeUserRepo{users: make(map[kernel.UserID]*identity.User)}
	orgs := &fakeOrgRepo{orgs: make(map[kernel.OrgID]*org.Organization)}
	tokens := auth.NewJWTService("middleware-test-secret", 0, 0, "")
	return &gateFixture{
		tokens: tokens,
		users:  users,
		orgs:   orgs,
		mw:     auth.NewMiddleware(tokens, users, orgs),
	}
}

func (f *gateFixture) addUser(id string, role kernel.Role, orgID *kernel.OrgID, active bool) kernel.UserID {
	userID := kernel.NewUserID(id)
	f.users.users[userID] = &identity.User{
		ID:       userID,
		Email:    id + "@example.com",
		Name:     id,
		Role:     role,
		OrgID:    orgID,
		IsActive: active,
		Plan:     identity.PlanFree,
	}
	return userID
}

func (f *gateFixture) addOrg(id string, orgType kernel.OrgType) kernel.OrgID {
	orgID := kernel.NewOrgID(id)
	f.orgs.orgs[orgID] = &org.Organization{
		ID:       orgID,
		Type:     orgType,
		Name:     id,
		Currency: kernel.CurrencyKES,
		IsActive: true,
	}
	return orgID
}

func (f *gateFixture) accessToken(t *testing.T, userID kernel.UserID) string {
	t.Helper()
	token, err := f.tokens.GenerateAccessToken(userID)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return token
}

func newApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	chain := append([]fiber.Handler{}, handlers...)
	chain = append(chain, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/protected", chain...)
	app.Get("/owned/:userId", chain...)
	return app
}

func doRequest(t *testing.T, app *fiber.App, path, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("unmarshal body %q: %v", raw, err)
		}
	}
	return resp.StatusCode, body
}

func assertError(t *testing.T, status int, body map[string]any, wantStatus int, wantMessage string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("expected status %d, got %d (body %v)", wantStatus, status, body)
	}
	if body["error"] != wantMessage {
		t.Fatalf("expected error %q, got %v", wantMessage, body["error"])
	}
}

func TestAuthenticateMissingToken(t *testing.T) {
	f := newGateFixture()
	app := newApp(f.mw.Authenticate())

	status, body := doRequest(t, app, "/protected", "")
	assertError(t, status, body, http.StatusUnauthorized, "Access denied. No token provided.")
}

func TestAuthenticateMalformedHeader(t *testing.T) {
	f := newGateFixture()
	app := newApp(f.mw.Authenticate())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc123")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-bearer header, got %d", resp.StatusCode)
	}
}

func TestAuthenticateInvalidToken(t *testing.T) {
	f := newGateFixture()
	app := newApp(f.mw.Authenticate())

	status, body := doRequest(t, app, "/protected", "not-a-valid-token")
	assertError(t, status, body, http.StatusUnauthorized, "Invalid token.")
}

func TestAuthenticateExpiredToken(t *testing.T) {
	f := newGateFixture()
	userID := f.addUser("u1", kernel.RoleIndividual, nil, true)

	expiring := auth.NewJWTService("middleware-test-secret", -time.Minute, 0, "")
	token, err := expiring.GenerateAccessToken(userID)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	app := newApp(f.mw.Authenticate())
	status, body := doRequest(t, app, "/protected", token)
	assertError(t, status, body, http.StatusUnauthorized, "Token expired.")
}

func TestAuthenticateUserNotFound(t *testing.T) {
	f := newGateFixture()
	app := newApp(f.mw.Authenticate())

	token := f.accessToken(t, kernel.NewUserID("ghost"))
	status, body := doRequest(t, app, "/protected", token)
	assertError(t, status, body, http.StatusUnauthorized, "Invalid token. User not found.")
}

func TestAuthenticateDeactivatedUser(t *testing.T) {
	f := newGateFixture()
	userID := f.addUser("u1", kernel.RoleIndividual, nil, false)
	app := newApp(f.mw.Authenticate())

	status, body := doRequest(t, app, "/protected", f.accessToken(t, userID))
	assertError(t, status, body, http.StatusUnauthorized, "Account is deactivated.")
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	f := newGateFixture()
	userID := f.addUser("u1", kernel.RoleIndividual, nil, true)
	app := newApp(f.mw.Authenticate())

	refresh, err := f.tokens.GenerateRefreshToken(userID)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	status, body := doRequest(t, app, "/protected", refresh)
	assertError(t, status, body, http.StatusUnauthorized, "Invalid token.")
}

func TestAuthenticateSuccess(t *testing.T) {
	f := newGateFixture()
	orgID := f.addOrg("org-1", kernel.OrgTypeGarage)
	userID := f.addUser("u1", kernel.RoleGarageUser, &orgID, true)
	app := newApp(f.mw.Authenticate())

	status, _ := doRequest(t, app, "/protected", f.accessToken(t, userID))
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
}

func TestAuthenticateDanglingOrgReference(t *testing.T) {
	f := newGateFixture()
	orgID := kernel.NewOrgID("missing-org")
	userID := f.addUser("u1", kernel.RoleGarageUser, &orgID, true)
	app := newApp(f.mw.Authenticate())

	status, body := doRequest(t, app, "/protected", f.accessToken(t, userID))
	assertError(t, status, body, http.StatusInternalServerError, "Internal server error.")
}

func TestRequireRoleForbidden(t *testing.T) {
	f := newGateFixture()
	userID := f.addUser("u1", kernel.RoleIndividual, nil, true)
	app := newApp(f.mw.Authenticate(), f.mw.RequireSuperadmin())

	status, body := doRequest(t, app, "/protected", f.accessToken(t, userID))
	assertError(t, status, body, http.StatusForbidden, "Access denied. Required roles: superadmin")
}

func TestRequireRoleMultiple(t *testing.T) {
	f := newGateFixture()
	userID := f.addUser("u1", kernel.RoleIndividual, nil, true)
	app := newApp(f.mw.Authenticate(), f.mw.RequireAdmin())

	status, body := doRequest(t, app, "/protected", f.accessToken(t, userID))
	assertError(t, status, body, http.StatusForbidden,
		"Access denied. Required roles: garage_admin, insurer_admin, superadmin")
}

func TestRequireOrgAccessIndividualBypass(t *testing.T) {
	f := newGateFixture()
	userID := f.addUser("u1", kernel.RoleIndividual, nil, true)
	app := newApp(f.mw.Authenticate(), f.mw.RequireGarage())

	status, _ := doRequest(t, app, "/protected", f.accessToken(t, userID))
	if status != http.StatusOK {
		t.Fatalf("expected individual bypass, got %d", status)
	}
}

func TestRequireOrgAccessTypeMismatch(t *testing.T) {
	f := newGateFixture()
	orgID := f.addOrg("org-1", kernel.OrgTypeGarage)
	userID := f.addUser("u1", kernel.RoleGarageUser, &orgID, true)
	app := newApp(f.mw.Authenticate(), f.mw.RequireInsurer())

	status, body := doRequest(t, app, "/protected", f.accessToken(t, userID))
	assertError(t, status, body, http.StatusForbidden, "Access denied. Organization type must be: insurer")
}

func TestRequireOrgAccessSuperadminBypass(t *testing.T) {
	f := newGateFixture()
	userID := f.addUser("root", kernel.RoleSuperadmin, nil, true)
	app := newApp(f.mw.Authenticate(), f.mw.RequireInsurer())

	status, _ := doRequest(t, app, "/protected", f.accessToken(t, userID))
	if status != http.StatusOK {
		t.Fatalf("expected superadmin bypass, got %d", status)
	}
}

func TestAuthenticateIdempotent(t *testing.T) {
	f := newGateFixture()
	orgID := f.addOrg("org-1", kernel.OrgTypeGarage)
	userID := f.addUser("u1", kernel.RoleGarageUser, &orgID, true)

	var first, second *kernel.Actor
	app := fiber.New()
	app.Get("/protected",
		f.mw.Authenticate(),
		func(c *fiber.Ctx) error {
			first, _ = auth.ActorFromCtx(c)
			return c.Next()
		},
		f.mw.Authenticate(),
		func(c *fiber.Ctx) error {
			second, _ = auth.ActorFromCtx(c)
			return c.JSON(fiber.Map{"ok": true})
		},
	)

	status, _ := doRequest(t, app, "/protected", f.accessToken(t, userID))
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if first == nil || first != second {
		t.Fatalf("expected both stages to observe the same actor, got %p and %p", first, second)
	}
	if f.users.finds != 1 {
		t.Fatalf("expected a single user resolution, got %d", f.users.finds)
	}
}

func TestRequireOwnership(t *testing.T) {
	f := newGateFixture()
	userID := f.addUser("u1", kernel.RoleIndividual, nil, true)
	app := newApp(f.mw.Authenticate(), f.mw.RequireOwnership("userId"))

	status, _ := doRequest(t, app, "/owned/u1", f.accessToken(t, userID))
	if status != http.StatusOK {
		t.Fatalf("expected owner to pass, got %d", status)
	}

	status, body := doRequest(t, app, "/owned/someone-else", f.accessToken(t, userID))
	assertError(t, status, body, http.StatusForbidden, "Access denied. You can only access your own resources.")
}

func TestRequireOwnershipAdminBypass(t *testing.T) {
	f := newGateFixture()
	orgID := f.addOrg("org-1", kernel.OrgTypeGarage)
	userID := f.addUser("admin", kernel.RoleGarageAdmin, &orgID, true)
	app := newApp(f.mw.Authenticate(), f.mw.RequireOwnership("userId"))

	status, _ := doRequest(t, app, "/owned/someone-else", f.accessToken(t, userID))
	if status != http.StatusOK {
		t.Fatalf("expected admin bypass, got %d", status)
	}
}
