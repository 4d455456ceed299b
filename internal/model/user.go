package model

import (
	"time"
	"unicode/utf8"
)

// User is an account that can sign in and act on the inventory.
// The password hash is never part of the JSON form.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	LastLogin    time.Time `json:"lastLogin"`
	AvatarURL    string    `json:"avatarUrl"`
	Phone        string    `json:"phone,omitempty"`
	RegdNum      string    `json:"regdNum,omitempty"`
}

// Roles, lowest to highest.
const (
	RoleNewUser    = "New User"
	RoleMember     = "General Member"
	RoleAdmin      = "Admin"
	RoleSuperAdmin = "Super Admin"
)

// User statuses.
const (
	UserStatusActive   = "Active"
	UserStatusInactive = "Inactive"
)

var roleLevels = map[string]int{
	RoleNewUser:    1,
	RoleMember:     2,
	RoleAdmin:      3,
	RoleSuperAdmin: 4,
}

// RoleAtLeast checks if role meets or exceeds the minimum required role.
// Unknown roles on either side fail closed.
func RoleAtLeast(role, minimum string) bool {
	have, ok := roleLevels[role]
	if !ok {
		return false
	}
	need, ok := roleLevels[minimum]
	if !ok {
		return false
	}
	return have >= need
}

// ValidRole reports whether role is a known role.
func ValidRole(role string) bool {
	_, ok := roleLevels[role]
	return ok
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePassword checks password strength rules.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return Invalid("password", "password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// CanSignIn reports whether the account has been approved and is active.
func (u *User) CanSignIn() bool {
	return u.Status == UserStatusActive && RoleAtLeast(u.Role, RoleMember)
}
