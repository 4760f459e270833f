package application

import (
	"context"

	"github.com/google/uuid"
)

// UserIdentity is the narrow account projection served to internal callers over gRPC.
type UserIdentity struct {
	UserID uuid.UUID
	Name   string
	Email  string
	Role   string
	Status string
}

// GetUserIdentity resolves a user id without exposing the password hash or timestamps.
func (s *Service) GetUserIdentity(ctx context.Context, userID uuid.UUID) (UserIdentity, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return UserIdentity{}, err
	}
	return UserIdentity{UserID: u.UserID, Name: u.Name, Email: u.Email, Role: u.Role, Status: u.AccountStatus()}, nil
}
