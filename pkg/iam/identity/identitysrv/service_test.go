package identitysrv_test

import (
	"context"
	"strings"
	"testing"

	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/iam"
	"github.com/garagelink/drivescan/pkg/iam/auth"
	"github.com/garagelink/drivescan/pkg/iam/identity"
	"github.com/garagelink/drivescan/pkg/iam/identity/identitysrv"
	"github.com/garagelink/drivescan/pkg/iam/org"
	"github.com/garagelink/drivescan/pkg/kernel"
)

type memUserRepo struct {
	byID map[kernel.UserID]*identity.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[kernel.UserID]*identity.User)}
}

func (r *memUserRepo) Create(ctx context.Context, user identity.User) error {
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, user.Email) {
			return iam.ErrUserExists()
		}
	}
	r.byID[user.ID] = &user
	return nil
}

func (r *memUserRepo) FindByID(ctx context.Context, id kernel.UserID) (*identity.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, iam.ErrUserNotFound()
	}
	copied := *u
	copied.PasswordHash = ""
	return &copied, nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, iam.ErrUserNotFound()
}

func (r *memUserRepo) Update(ctx context.Context, user identity.User) error {
	if _, ok := r.byID[user.ID]; !ok {
		return iam.ErrUserNotFound()
	}
	r.byID[user.ID] = &user
	return nil
}

func (r *memUserRepo) SetActive(ctx context.Context, id kernel.UserID, active bool) error {
	u, ok := r.byID[id]
	if !ok {
		return iam.ErrUserNotFound()
	}
	u.IsActive = active
	return nil
}

func (r *memUserRepo) List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[identity.User], error) {
	users := make([]identity.User, 0, len(r.byID))
	for _, u := range r.byID {
		users = append(users, *u)
	}
	return kernel.NewPaginated(users, 1, len(users)+1, len(users)), nil
}

type memOrgRepo struct {
	byID map[kernel.OrgID]*org.Organization
}

func newMemOrgRepo() *memOrgRepo {
	return &memOrgRepo{byID: make(map[kernel.OrgID]*org.Organization)}
}

func (r *memOrgRepo) Create(ctx context.Context, o org.Organization) error {
	r.byID[o.ID] = &o
	return nil
}

func (r *memOrgRepo) FindByID(ctx context.Context, id kernel.OrgID) (*org.Organization, error) {
	o, ok := r.byID[id]
	if !ok {
		return nil, iam.ErrOrgNotFound()
	}
	copied := *o
	return &copied, nil
}

func (r *memOrgRepo) Update(ctx context.Context, o org.Organization) error {
	r.byID[o.ID] = &o
	return nil
}

func (r *memOrgRepo) UpdateSettings(ctx context.Context, id kernel.OrgID, settings org.Settings) error {
	o, ok := r.byID[id]
	if !ok {
		return iam.ErrOrgNotFound()
	}
	o.Settings = settings
	return nil
}

func (r *memOrgRepo) List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[org.Organization], error) {
	return kernel.Paginated[org.Organization]{}, nil
}

type recordingGranter struct {
	granted []kernel.UserID
}

func (g *recordingGranter) GrantSignupCredits(ctx context.Context, userID kernel.UserID) error {
	g.granted = append(g.granted, userID)
	return nil
}

type blockingThrottle struct {
	over bool
	hits int
}

func (t *blockingThrottle) Hit(ctx context.Context, key string) (bool, error) {
	t.hits++
	return t.over, nil
}

func (t *blockingThrottle) Reset(ctx context.Context, key string) error {
	t.hits = 0
	return nil
}

type fixture struct {
	users    *memUserRepo
	orgs     *memOrgRepo
	granter  *recordingGranter
	throttle *blockingThrottle
	svc      *identitysrv.IdentityService
}

func newFixture() *fixture {
	users := newMemUserRepo()
	orgs := newMemOrgRepo()
	granter := &recordingGranter{}
	throttle := &blockingThrottle{}
	tokens := auth.NewJWTService("service-test-secret", 0, 0, "")
	passwords := auth.NewBcryptPasswordService(4)

	return &fixture{
		users:    users,
		orgs:     orgs,
		granter:  granter,
		throttle: throttle,
		svc:      identitysrv.NewIdentityService(users, orgs, tokens, passwords, throttle, granter, nil),
	}
}

func registerReq(email string) identitysrv.RegisterRequest {
	return identitysrv.RegisterRequest{
		Email:    email,
		Password: "correct-horse",
		Name:     "Test User",
	}
}

func assertErrCode(t *testing.T, err error, code *errx.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %s, got nil", code.Code)
	}
	e, ok := errx.As(err)
	if !ok || e.Code != code.Code {
		t.Fatalf("expected error %s, got %v", code.Code, err)
	}
}

func TestRegisterIssuesBothTokens(t *testing.T) {
	f := newFixture()

	result, err := f.svc.Register(context.Background(), registerReq("jane@example.com"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if result.User.Role != kernel.RoleIndividual {
		t.Fatalf("expected role to default to individual, got %q", result.User.Role)
	}
	if result.User.PasswordHash != "" {
		t.Fatal("password hash must never be returned")
	}
	if len(f.granter.granted) != 1 || f.granter.granted[0] != result.User.ID {
		t.Fatalf("expected signup credits for %s, got %v", result.User.ID, f.granter.granted)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.Register(context.Background(), registerReq("jane@example.com")); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := f.svc.Register(context.Background(), registerReq("JANE@example.com"))
	assertErrCode(t, err, iam.CodeUserExists)
}

func TestRegisterRejectsSuperadminRole(t *testing.T) {
	f := newFixture()

	req := registerReq("root@example.com")
	req.Role = string(kernel.RoleSuperadmin)
	_, err := f.svc.Register(context.Background(), req)
	assertErrCode(t, err, iam.CodeValidation)
}

func TestRegisterOrgRoleRequiresMatchingOrg(t *testing.T) {
	f := newFixture()
	garage := kernel.NewOrgID("garage-1")
	f.orgs.byID[garage] = &org.Organization{ID: garage, Type: kernel.OrgTypeGarage, Name: "Garage One"}

	// Missing org id
	req := registerReq("mech@example.com")
	req.Role = string(kernel.RoleGarageUser)
	_, err := f.svc.Register(context.Background(), req)
	assertErrCode(t, err, iam.CodeInvalidOrganization)

	// Unknown org id
	req.OrganizationID = "no-such-org"
	_, err = f.svc.Register(context.Background(), req)
	assertErrCode(t, err, iam.CodeInvalidOrganization)

	// Role/type mismatch
	req.Role = string(kernel.RoleInsurerUser)
	req.OrganizationID = garage.String()
	_, err = f.svc.Register(context.Background(), req)
	assertErrCode(t, err, iam.CodeInvalidOrganization)

	// Matching role and type
	req.Role = string(kernel.RoleGarageUser)
	result, err := f.svc.Register(context.Background(), req)
	if err != nil {
		t.Fatalf("Register with matching org: %v", err)
	}
	if result.User.OrgID == nil || *result.User.OrgID != garage {
		t.Fatalf("expected org reference %s, got %v", garage, result.User.OrgID)
	}
}

func TestLoginWrongEmailAndWrongPasswordLookIdentical(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Register(context.Background(), registerReq("jane@example.com")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, errUnknown := f.svc.Login(context.Background(), identitysrv.LoginRequest{
		Email: "nobody@example.com", Password: "whatever",
	})
	_, errWrongPass := f.svc.Login(context.Background(), identitysrv.LoginRequest{
		Email: "jane@example.com", Password: "wrong-password",
	})

	assertErrCode(t, errUnknown, iam.CodeInvalidCredentials)
	assertErrCode(t, errWrongPass, iam.CodeInvalidCredentials)

	a, _ := errx.As(errUnknown)
	b, _ := errx.As(errWrongPass)
	if a.Message != b.Message {
		t.Fatalf("login failures must be indistinguishable: %q vs %q", a.Message, b.Message)
	}
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Register(context.Background(), registerReq("jane@example.com")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	result, err := f.svc.Login(context.Background(), identitysrv.LoginRequest{
		Email: "jane@example.com", Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.User.PasswordHash != "" {
		t.Fatal("password hash must never be returned")
	}
	if f.throttle.hits != 0 {
		t.Fatal("successful login must reset the throttle")
	}
}

func TestLoginDeactivatedAccount(t *testing.T) {
	f := newFixture()
	result, err := f.svc.Register(context.Background(), registerReq("jane@example.com"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := f.users.SetActive(context.Background(), result.User.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	_, err = f.svc.Login(context.Background(), identitysrv.LoginRequest{
		Email: "jane@example.com", Password: "correct-horse",
	})
	assertErrCode(t, err, iam.CodeAccountDeactivated)
}

func TestLoginThrottled(t *testing.T) {
	f := newFixture()
	f.throttle.over = true

	_, err := f.svc.Login(context.Background(), identitysrv.LoginRequest{
		Email: "jane@example.com", Password: "correct-horse",
	})
	assertErrCode(t, err, iam.CodeTooManyAttempts)
}

func TestRefreshRotatesTokens(t *testing.T) {
	f := newFixture()
	registered, err := f.svc.Register(context.Background(), registerReq("jane@example.com"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	refreshed, err := f.svc.Refresh(context.Background(), registered.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.AccessToken == "" || refreshed.RefreshToken == "" {
		t.Fatal("refresh must issue a full token pair")
	}
	if refreshed.User.ID != registered.User.ID {
		t.Fatalf("refresh changed subject: %s vs %s", refreshed.User.ID, registered.User.ID)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newFixture()
	registered, err := f.svc.Register(context.Background(), registerReq("jane@example.com"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err = f.svc.Refresh(context.Background(), registered.AccessToken)
	assertErrCode(t, err, iam.CodeInvalidToken)
}

func TestRefreshDeactivatedAccount(t *testing.T) {
	f := newFixture()
	registered, err := f.svc.Register(context.Background(), registerReq("jane@example.com"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := f.users.SetActive(context.Background(), registered.User.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	_, err = f.svc.Refresh(context.Background(), registered.RefreshToken)
	assertErrCode(t, err, iam.CodeAccountDeactivated)
}
