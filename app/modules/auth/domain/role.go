package authdomain

// Role represents a user's role for authorization purposes.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// IsValid checks if the role is a valid value.
func (r Role) IsValid() bool {
	return r.rank() > 0
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return r.IsValid() && r.rank() >= min.rank()
}

func (r Role) rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleModerator:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}
