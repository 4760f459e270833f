package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// User is a storefront account. Only ADMIN users may manage the catalog and fulfil orders.
type User struct {
	UserID       uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AccountStatus is the externally reported state of the account.
func (u User) AccountStatus() string {
	if u.IsActive {
		return "active"
	}
	return "disabled"
}

// Session models a login session. It is persisted separately from the token so a
// logout can revoke it before the token expires.
type Session struct {
	SessionID      uuid.UUID
	UserID         uuid.UUID
	IPAddress      string
	UserAgent      string
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
	RevokedAt      *time.Time
}
