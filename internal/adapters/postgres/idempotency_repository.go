package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	idempotencyPending   = "PENDING"
	idempotencyCompleted = "COMPLETED"
)

type idempotencyRepository struct {
	db *gorm.DB
}

// Get returns the live record for key, or nil when the key is unknown or expired.
func (r *idempotencyRepository) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	var rows []idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ? AND expires_at > ?", key, time.Now().UTC()).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	rec := toIdempotencyRecord(rows[0])
	return &rec, nil
}

// Reserve claims key for requestHash. An expired reservation is taken over in place;
// a live one is a conflict.
func (r *idempotencyRepository) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	now := time.Now().UTC()
	rec := idempotencyModel{
		IdempotencyKey: key,
		RequestHash:    requestHash,
		Status:         idempotencyPending,
		ExpiresAt:      expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "idempotency_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"request_hash", "status", "response_code", "response_body", "expires_at", "created_at", "updated_at",
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "idempotency_keys.expires_at <= ?", Vars: []any{now}},
		}},
	}).Create(&rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: idempotency key already reserved", domain.ErrConflict)
	}
	return nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&idempotencyModel{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]any{
			"status":        idempotencyCompleted,
			"response_code": responseCode,
			"response_body": nullableBytes(responseBody),
			"updated_at":    at,
		}).Error
}
