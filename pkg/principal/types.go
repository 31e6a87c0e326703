package principal

// Role is the coarse access role attached to an identity.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

// Identity is the stored account record behind a principal.
// SecretHash holds a bcrypt hash of the login secret used by the mock
// token-issuance flow; it never leaves the identity store boundary.
type Identity struct {
	ID          string
	Name        string
	Role        Role
	SecretHash  []byte
	Deactivated bool
}

// Principal is a resolved, request-scoped view of a caller:
// identity plus the role and plan assignment current at resolve time.
type Principal struct {
	ID     string
	Name   string
	Role   Role
	PlanID string
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
