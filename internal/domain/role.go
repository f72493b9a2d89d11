package domain

import "fmt"

// Role is the authorisation tier of a user account.
type Role string

const (
	// RoleUser may only see and change the tasks it owns.
	RoleUser Role = "user"

	// RoleAdmin bypasses ownership checks and may use admin-only endpoints.
	RoleAdmin Role = "admin"
)

// AllRoles lists every valid role.
var AllRoles = []Role{RoleUser, RoleAdmin}

// ParseRole converts a raw role string. An empty string is RoleUser.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "":
		return RoleUser, nil
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrValidationFailed, s)
	}
}

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}
