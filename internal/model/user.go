// Package model defines the data structures used throughout the application.
package model

import "time"

// User is an account identity.
//
// PasswordHash is empty for accounts created through GitHub login; such users
// cannot log in with a password until they set one through a reset link.
// GitHubID is nil for accounts that never linked GitHub.
//
// IsStaff and IsSuperuser are only ever set by the createsuperuser command.
// Registration has no path that writes them.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	IsStaff      bool      `json:"isStaff"`
	IsSuperuser  bool      `json:"isSuperuser"`
	GitHubID     *int64    `json:"githubId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasUsablePassword reports whether the user can log in with a password.
func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != ""
}

// CanManageTeams reports whether the user may delete other people's teams.
func (u *User) CanManageTeams() bool {
	return u.IsStaff || u.IsSuperuser
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}
