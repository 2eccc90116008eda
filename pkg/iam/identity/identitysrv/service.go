package identitysrv

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/garagelink/drivescan/pkg/asyncx"
	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/iam"
	"github.com/garagelink/drivescan/pkg/iam/auth"
	"github.com/garagelink/drivescan/pkg/iam/identity"
	"github.com/garagelink/drivescan/pkg/iam/org"
	"github.com/garagelink/drivescan/pkg/kernel"
	"github.com/garagelink/drivescan/pkg/logx"
)

// CreditGranter seeds a new account with credits. Injected as an interface
// so this module has zero knowledge of the billing implementation.
type CreditGranter interface {
	GrantSignupCredits(ctx context.Context, userID kernel.UserID) error
}

// WelcomeNotifier sends the post-registration email.
type WelcomeNotifier interface {
	SendWelcome(ctx context.Context, email, name string) error
}

// IdentityService implements registration, login, token refresh and
// account administration.
type IdentityService struct {
	users     identity.Repository
	orgs      org.Repository
	tokens    auth.TokenService
	passwords auth.PasswordService
	throttle  auth.LoginThrottle
	credits   CreditGranter
	notifier  WelcomeNotifier
}

// NewIdentityService wires the identity service. Throttle, credits and
// notifier may be nil; the corresponding behavior is skipped.
func NewIdentityService(
	users identity.Repository,
	orgs org.Repository,
	tokens auth.TokenService,
	passwords auth.PasswordService,
	throttle auth.LoginThrottle,
	credits CreditGranter,
	notifier WelcomeNotifier,
) *IdentityService {
	return &IdentityService{
		users:     users,
		orgs:      orgs,
		tokens:    tokens,
		passwords: passwords,
		throttle:  throttle,
		credits:   credits,
		notifier:  notifier,
	}
}

// RegisterRequest is the registration input.
type RegisterRequest struct {
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	Name           string  `json:"name"`
	Phone          *string `json:"phone"`
	Country        *string `json:"country"`
	Role           string  `json:"role"`
	OrganizationID string  `json:"organizationId"`
}

func (r RegisterRequest) validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&r.Role, validation.By(validRegistrationRole)),
	)
}

func validRegistrationRole(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil // defaults to individual
	}
	role := kernel.Role(s)
	if !role.IsValid() || role == kernel.RoleSuperadmin {
		return errx.New("invalid role", errx.TypeValidation)
	}
	return nil
}

// AuthResult is what every successful auth operation returns.
type AuthResult struct {
	User         *identity.User `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

// Register creates a new identity and issues both token types.
func (s *IdentityService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := req.validate(); err != nil {
		return nil, iam.ErrRegistry.NewWithMessage(iam.CodeValidation, err.Error())
	}

	role := kernel.RoleIndividual
	if req.Role != "" {
		role = kernel.Role(req.Role)
	}

	var orgID *kernel.OrgID
	if role.RequiresOrg() {
		if req.OrganizationID == "" {
			return nil, iam.ErrInvalidOrganization().WithDetail("reason", "organization id is required for this role")
		}
		o, err := s.orgs.FindByID(ctx, kernel.NewOrgID(req.OrganizationID))
		if err != nil {
			if e, ok := errx.As(err); ok && e.Type == errx.TypeNotFound {
				return nil, iam.ErrInvalidOrganization()
			}
			return nil, err
		}
		if !roleMatchesOrgType(role, o.Type) {
			return nil, iam.ErrInvalidOrganization().WithDetail("reason", "role does not match organization type")
		}
		orgID = &o.ID
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := identity.User{
		ID:           kernel.NewUserID(uuid.New().String()),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Name:         req.Name,
		Phone:        req.Phone,
		Country:      req.Country,
		Role:         role,
		OrgID:        orgID,
		IsActive:     true,
		Plan:         identity.PlanFree,
		PlanStatus:   identity.PlanStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	result, err := s.issueTokens(&user)
	if err != nil {
		return nil, err
	}

	// Best-effort side effects; registration already succeeded. The two are
	// independent, so they run concurrently and failures only log.
	var sideEffects []func(context.Context) (struct{}, error)
	if s.credits != nil {
		sideEffects = append(sideEffects, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.credits.GrantSignupCredits(ctx, user.ID)
		})
	}
	if s.notifier != nil {
		sideEffects = append(sideEffects, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.notifier.SendWelcome(ctx, user.Email, user.Name)
		})
	}
	for _, r := range asyncx.AllSettled(ctx, sideEffects...) {
		if !r.OK() {
			logx.WithError(r.Err).WithField("user_id", user.ID.String()).Warn("registration side effect failed")
		}
	}

	return result, nil
}

func roleMatchesOrgType(role kernel.Role, orgType kernel.OrgType) bool {
	switch role {
	case kernel.RoleGarageUser, kernel.RoleGarageAdmin:
		return orgType == kernel.OrgTypeGarage
	case kernel.RoleInsurerUser, kernel.RoleInsurerAdmin:
		return orgType == kernel.OrgTypeInsurer
	}
	return true
}

// LoginRequest is the login input.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates by email and password. Unknown email and wrong
// password return the identical error so neither case leaks which failed.
func (s *IdentityService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if req.Email == "" || req.Password == "" {
		return nil, iam.ErrInvalidCredentials()
	}

	key := strings.ToLower(strings.TrimSpace(req.Email))
	if s.throttle != nil {
		over, err := s.throttle.Hit(ctx, key)
		if err != nil {
			// Throttle unavailability must not take logins down with it.
			logx.WithError(err).Warn("login throttle unavailable")
		} else if over {
			return nil, iam.ErrTooManyAttempts()
		}
	}

	user, err := s.users.FindByEmail(ctx, key)
	if err != nil {
		if e, ok := errx.As(err); ok && e.Type == errx.TypeNotFound {
			return nil, iam.ErrInvalidCredentials()
		}
		return nil, err
	}

	if err := s.passwords.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, iam.ErrInvalidCredentials()
	}

	if !user.IsActive {
		return nil, iam.ErrAccountDeactivated()
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, key); err != nil {
			logx.WithError(err).Warn("failed to reset login throttle")
		}
	}

	user.PasswordHash = ""
	return s.issueTokens(user)
}

// Refresh exchanges a refresh token for a fresh token pair. The type tag is
// checked explicitly: a validly signed access token is rejected here.
// Rotation policy: every refresh issues a new refresh token as well.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		if e, ok := errx.As(err); ok && e.Code == iam.CodeTokenExpired.Code {
			return nil, e
		}
		return nil, iam.ErrInvalidToken()
	}

	if claims.Type != auth.TokenTypeRefresh {
		return nil, iam.ErrInvalidToken()
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if e, ok := errx.As(err); ok && e.Type == errx.TypeNotFound {
			return nil, iam.ErrInvalidToken()
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, iam.ErrAccountDeactivated()
	}

	return s.issueTokens(user)
}

func (s *IdentityService) issueTokens(user *identity.User) (*AuthResult, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Get loads a user without its password hash.
func (s *IdentityService) Get(ctx context.Context, id kernel.UserID) (*identity.User, error) {
	return s.users.FindByID(ctx, id)
}

// UpdateProfileRequest carries profile mutations.
type UpdateProfileRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Country *string `json:"country"`
}

// UpdateProfile applies profile edits to the caller's own record.
func (s *IdentityService) UpdateProfile(ctx context.Context, id kernel.UserID, req UpdateProfileRequest) (*identity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if err := validation.Validate(*req.Name, validation.Required, validation.Length(1, 120)); err != nil {
			return nil, iam.ErrRegistry.NewWithMessage(iam.CodeValidation, "name: "+err.Error())
		}
		user.Name = *req.Name
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.Country != nil {
		user.Country = req.Country
	}

	if err := s.users.Update(ctx, *user); err != nil {
		return nil, err
	}
	return user, nil
}

// List returns users page by page. Superadmin operation.
func (s *IdentityService) List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[identity.User], error) {
	return s.users.List(ctx, opts)
}

// SetActive toggles an account's active flag. Superadmin operation;
// deactivation is the terminal state for access purposes.
func (s *IdentityService) SetActive(ctx context.Context, id kernel.UserID, active bool) error {
	return s.users.SetActive(ctx, id, active)
}
