package domain

import "time"

// Role is the authorization class of a principal.
type Role string

const (
	RoleAdmin   Role = "admin"
	RolePatient Role = "patient"
)

// Roles lists every role.
var Roles = []Role{RoleAdmin, RolePatient}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePatient:
		return true
	}
	return false
}

// User is a principal's profile record.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Sector       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// SectorOrEmpty dereferences Sector.
func (u *User) SectorOrEmpty() string {
	if u == nil || u.Sector == nil {
		return ""
	}
	return *u.Sector
}
