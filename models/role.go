package models

// Role is the access level stored on a profile.
type Role string

const (
	RoleNone      Role = ""
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// ParseRole maps a stored role string to a known Role. Unknown values are
// treated as RoleNone.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleUser, RoleModerator, RoleAdmin:
		return Role(s)
	}
	return RoleNone
}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}
