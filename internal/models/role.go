package models

// Role is the closed set of account roles. Every permission decision in the
// application goes through the policy package; nothing else compares roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
