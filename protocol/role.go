package protocol

import "fmt"

// Role is a permission class granted to a connection.
type Role uint32

const (
	RolePublic          Role = 0
	RolePlatformAdmin   Role = 1
	RolePlatformSupport Role = 2
	RoleAppNewUser      Role = 3
	RoleAppAdmin        Role = 4
	RoleAppSupport      Role = 5
	RoleAppAPIKey       Role = 6
)

var roleNames = map[Role]string{
	RolePublic:          "public",
	RolePlatformAdmin:   "platform_admin",
	RolePlatformSupport: "platform_support",
	RoleAppNewUser:      "app_new_user",
	RoleAppAdmin:        "app_admin",
	RoleAppSupport:      "app_support",
	RoleAppAPIKey:       "app_api_key",
}

// String returns the role name, or "role(<n>)" for unknown values.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", uint32(r))
}

// ParseRole parses a role name as produced by String.
func ParseRole(s string) (Role, error) {
	for r, name := range roleNames {
		if name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("protocol: unknown role %q", s)
}

// ContainsRole reports whether roles contains r.
func ContainsRole(roles []Role, r Role) bool {
	for _, have := range roles {
		if have == r {
			return true
		}
	}
	return false
}

// RolesIntersect reports whether any role in have appears in want.
func RolesIntersect(have, want []Role) bool {
	for _, r := range have {
		if ContainsRole(want, r) {
			return true
		}
	}
	return false
}
