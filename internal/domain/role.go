package domain

// Role is the closed two-value role set. Any other value in a token or a
// database row is a data-integrity fault, not a third role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a member of the closed set.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

func (r Role) String() string { return string(r) }
