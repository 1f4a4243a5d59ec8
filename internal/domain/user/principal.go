package user

// Principal is the authenticated caller of a request.
type Principal struct {
	ID   string
	Role Role
}

// IsStaff reports whether the caller may manage notes.
func (p Principal) IsStaff() bool { return p.Role == RoleStaff }

// IsStudent reports whether the caller may chat.
func (p Principal) IsStudent() bool { return p.Role == RoleStudent }
