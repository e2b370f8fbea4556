package domain

import (
	"sort"
	"time"
)

const (
	// RoleAdmin grants the mark-attendance and account-management privileges.
	RoleAdmin = "ADMIN"
	// RoleUser is assigned to accounts created without an explicit role.
	RoleUser = "USER"
)

// Roles is an unordered set of role names, kept sorted and de-duplicated.
type Roles []string

// NewRoles normalizes names into a set.
func NewRoles(names ...string) Roles {
	seen := make(map[string]struct{}, len(names))
	out := make(Roles, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Has reports whether role is a member of the set.
func (r Roles) Has(role string) bool {
	for _, name := range r {
		if name == role {
			return true
		}
	}
	return false
}

// User is the directory entry used for authentication and attendance ownership.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Roles        Roles
	Enabled      bool
	FirstLogin   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ref returns the lightweight reference stored on tokens and records.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username}
}

// UserRef identifies the owner of an attendance token or record.
type UserRef struct {
	ID       string
	Username string
}
