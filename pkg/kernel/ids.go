package kernel

// UserID identifies an authenticable principal.
type UserID string

func NewUserID(id string) UserID { return UserID(id) }
func (u UserID) String() string  { return string(u) }
func (u UserID) IsEmpty() bool   { return string(u) == "" }

// OrgID identifies a tenant organization.
type OrgID string

func NewOrgID(id string) OrgID { return OrgID(id) }
func (o OrgID) String() string { return string(o) }
func (o OrgID) IsEmpty() bool  { return string(o) == "" }
