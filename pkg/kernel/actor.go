package kernel

// Role is the fixed set of principal roles.
type Role string

const (
	RoleIndividual   Role = "individual"
	RoleGarageUser   Role = "garage_user"
	RoleGarageAdmin  Role = "garage_admin"
	RoleInsurerUser  Role = "insurer_user"
	RoleInsurerAdmin Role = "insurer_admin"
	RoleSuperadmin   Role = "superadmin"
)

func (r Role) String() string { return string(r) }

// IsValid reports whether the role belongs to the fixed enumeration.
func (r Role) IsValid() bool {
	switch r {
	case RoleIndividual, RoleGarageUser, RoleGarageAdmin, RoleInsurerUser, RoleInsurerAdmin, RoleSuperadmin:
		return true
	}
	return false
}

// RequiresOrg reports whether the role implies organization membership.
func (r Role) RequiresOrg() bool {
	switch r {
	case RoleGarageUser, RoleGarageAdmin, RoleInsurerUser, RoleInsurerAdmin:
		return true
	}
	return false
}

// IsOrgAdmin reports whether the role administers its organization.
func (r Role) IsOrgAdmin() bool {
	return r == RoleGarageAdmin || r == RoleInsurerAdmin
}

// OrgType is the fixed set of tenant types.
type OrgType string

const (
	OrgTypeGarage  OrgType = "garage"
	OrgTypeInsurer OrgType = "insurer"
)

func (t OrgType) String() string { return string(t) }

// IsValid reports whether the org type belongs to the fixed enumeration.
func (t OrgType) IsValid() bool {
	return t == OrgTypeGarage || t == OrgTypeInsurer
}

// Actor is the resolved identity attached to a request after authentication.
// It is built once per request by the authentication gate and treated as
// read-only by everything downstream.
type Actor struct {
	UserID   UserID   `json:"user_id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Role     Role     `json:"role"`
	OrgID    OrgID    `json:"org_id,omitempty"`
	OrgType  OrgType  `json:"org_type,omitempty"`
	Plan     string   `json:"plan"`
	Currency Currency `json:"currency,omitempty"`
}

// HasOrg reports whether the actor carries an organization reference.
func (a *Actor) HasOrg() bool {
	return !a.OrgID.IsEmpty()
}

// IsSuperadmin reports whether the actor bypasses tenant scoping.
func (a *Actor) IsSuperadmin() bool {
	return a.Role == RoleSuperadmin
}

// Currency is the fixed set of supported billing currencies.
type Currency string

const (
	CurrencyKES Currency = "KES"
	CurrencyUGX Currency = "UGX"
	CurrencyTZS Currency = "TZS"
	CurrencyUSD Currency = "USD"
)

func (c Currency) String() string { return string(c) }

// IsValid reports whether the currency belongs to the fixed enumeration.
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyKES, CurrencyUGX, CurrencyTZS, CurrencyUSD:
		return true
	}
	return false
}

// ContextKey is the type for request-scoped value keys.
type ContextKey string

const (
	// ActorContextKey stores the resolved Actor on the request.
	ActorContextKey ContextKey = "actor"

	// RequestIDKey stores the request correlation id.
	RequestIDKey ContextKey = "request_id"
)
