package iamcontainer

import (
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/garagelink/drivescan/pkg/config"
	"github.com/garagelink/drivescan/pkg/iam/auth"
	"github.com/garagelink/drivescan/pkg/iam/identity"
	"github.com/garagelink/drivescan/pkg/iam/identity/identityapi"
	"github.com/garagelink/drivescan/pkg/iam/identity/identityinfra"
	"github.com/garagelink/drivescan/pkg/iam/identity/identitysrv"
	"github.com/garagelink/drivescan/pkg/iam/org"
	"github.com/garagelink/drivescan/pkg/iam/org/orgapi"
	"github.com/garagelink/drivescan/pkg/iam/org/orginfra"
	"github.com/garagelink/drivescan/pkg/iam/org/orgsrv"
)

// Deps are the cross-context dependencies the IAM module needs but does not
// own. Credits and Notifier may be nil.
type Deps struct {
	DB       *sqlx.DB
	Redis    *redis.Client
	Cfg      *config.Config
	Credits  identitysrv.CreditGranter
	Notifier identitysrv.WelcomeNotifier
}

// Container wires the IAM module: repositories, services, HTTP handlers and
// the access-control middleware every other module mounts.
type Container struct {
	Users identity.Repository
	Orgs  org.Repository

	Tokens     auth.TokenService
	Middleware *auth.Middleware

	IdentityService *identitysrv.IdentityService
	OrgService      *orgsrv.OrgService

	IdentityHandlers *identityapi.IdentityHandlers
	OrgHandlers      *orgapi.OrgHandlers
}

// New composes the IAM module.
func New(deps Deps) *Container {
	users := identityinfra.NewPostgresUserRepository(deps.DB)
	orgs := orginfra.NewPostgresOrgRepository(deps.DB)

	tokens := auth.NewJWTService(
		deps.Cfg.Auth.JWTSecret,
		deps.Cfg.Auth.AccessTokenTTL,
		deps.Cfg.Auth.RefreshTokenTTL,
		deps.Cfg.Auth.Issuer,
	)
	passwords := auth.NewBcryptPasswordService(0)
	throttle := auth.NewRedisLoginThrottle(deps.Redis, deps.Cfg.Auth.LoginMaxTries, deps.Cfg.Auth.LoginWindow)
	mw := auth.NewMiddleware(tokens, users, orgs)

	identityService := identitysrv.NewIdentityService(users, orgs, tokens, passwords, throttle, deps.Credits, deps.Notifier)
	orgService := orgsrv.NewOrgService(orgs)

	return &Container{
		Users:            users,
		Orgs:             orgs,
		Tokens:           tokens,
		Middleware:       mw,
		IdentityService:  identityService,
		OrgService:       orgService,
		IdentityHandlers: identityapi.NewIdentityHandlers(identityService),
		OrgHandlers:      orgapi.NewOrgHandlers(orgService),
	}
}
