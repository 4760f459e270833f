package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sessionRepository struct {
	db *gorm.DB
}

// Create stores a login session; the id comes from the column default.
func (r *sessionRepository) Create(ctx context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	row := sessionModel{
		UserID:         params.UserID,
		IPAddress:      nullableString(params.IPAddress),
		UserAgent:      params.UserAgent,
		CreatedAt:      params.LastActivityAt,
		LastActivityAt: params.LastActivityAt,
		ExpiresAt:      params.ExpiresAt,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.Returning{}).Create(&row).Error; err != nil {
		return domain.Session{}, err
	}
	return toDomainSession(row), nil
}

func (r *sessionRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (domain.Session, error) {
	var row sessionModel
	err := r.db.WithContext(ctx).Take(&row, "session_id = ?", sessionID).Error
	if err != nil {
		return domain.Session{}, notFoundOr(err)
	}
	return toDomainSession(row), nil
}

// TouchActivity bumps last activity and never moves it backwards.
func (r *sessionRepository) TouchActivity(ctx context.Context, sessionID uuid.UUID, touchedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("session_id = ? AND last_activity_at < ?", sessionID, touchedAt).
		Update("last_activity_at", touchedAt).Error
}

// RevokeByID stamps revoked_at once. Revoking an already revoked session is a no-op;
// an unknown id is ErrNotFound.
func (r *sessionRepository) RevokeByID(ctx context.Context, sessionID uuid.UUID, revokedAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sessionModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&row, "session_id = ?", sessionID).Error; err != nil {
			return notFoundOr(err)
		}
		if row.RevokedAt != nil {
			return nil
		}
		return tx.Model(&row).Update("revoked_at", revokedAt).Error
	})
}
