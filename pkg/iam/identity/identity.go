package identity

import (
	"time"

	"github.com/garagelink/drivescan/pkg/kernel"
)

// User is an authenticable principal. The password hash never leaves the
// process: it is excluded from JSON and from every read that feeds a
// request context.
type User struct {
	ID           kernel.UserID  `db:"id" json:"id"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Name         string         `db:"name" json:"name"`
	Phone        *string        `db:"phone" json:"phone,omitempty"`
	Country      *string        `db:"country" json:"country,omitempty"`
	Role         kernel.Role    `db:"role" json:"role"`
	OrgID        *kernel.OrgID  `db:"org_id" json:"organizationId,omitempty"`
	IsActive     bool           `db:"is_active" json:"isActive"`
	Plan         string         `db:"plan" json:"plan"`
	PlanStatus   string         `db:"plan_status" json:"planStatus"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

// HasOrg reports whether the user carries an organization reference.
func (u *User) HasOrg() bool {
	return u.OrgID != nil && !u.OrgID.IsEmpty()
}

// Plan tiers. Quota interpretation lives in the billing module.
const (
	PlanFree       = "free"
	PlanStarter    = "starter"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Plan statuses.
const (
	PlanStatusActive   = "active"
	PlanStatusPastDue  = "past_due"
	PlanStatusCanceled = "canceled"
)
