package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles an authenticated user can hold.
const (
	RoleCandidate = "candidate"
	RoleRecruiter = "recruiter"
	RoleAdmin     = "admin"
)

// User is an entry in the user directory. The connection authenticator
// resolves token subjects against this table, so a deleted user can no longer
// connect even with an unexpired token.
type User struct {
	ID    string `gorm:"primaryKey" json:"id"`
	Email string `gorm:"uniqueIndex" json:"email"`
	Name  string `json:"name"`
	// Role is one of RoleCandidate, RoleRecruiter, RoleAdmin.
	Role string `gorm:"type:text;not null" json:"role"`
}

// BeforeCreate is a GORM hook that assigns a UUID when ID is empty.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// ValidRole reports whether role is a known role.
func ValidRole(role string) bool {
	switch role {
	case RoleCandidate, RoleRecruiter, RoleAdmin:
		return true
	}
	return false
}
