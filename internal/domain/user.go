package domain

import (
	"context"
)

type ContextKey string

const UserContextKey ContextKey = "user"

// User is the authenticated caller, built from token claims.
type User struct {
	ID    string `json:"id"` // UUID
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == "admin"
}

// UserProfileRepository reads the merchant settings the shipping flow needs.
type UserProfileRepository interface {
	// GetEarlyCODSetting returns the user's remittance preference, or "" when none is stored.
	GetEarlyCODSetting(ctx context.Context, userID string) (string, error)
}
