package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// CreateWithOutboxTx inserts the user and its registration event atomically. The event
// payload gains the generated user_id and is partitioned by it.
func (r *userRepository) CreateWithOutboxTx(ctx context.Context, params ports.CreateUserTxParams, outboxEvent ports.OutboxEvent) (domain.User, error) {
	var result domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := userModel{
			Name:         params.Name,
			Email:        params.Email,
			PasswordHash: params.PasswordHash,
			Role:         params.Role,
			IsActive:     true,
			CreatedAt:    params.RegisteredAtUTC,
			UpdatedAt:    params.RegisteredAtUTC,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: email already registered", domain.ErrConflict)
			}
			return err
		}

		payload := outboxEvent.Payload
		var payloadObj map[string]any
		if err := json.Unmarshal(payload, &payloadObj); err == nil {
			payloadObj["user_id"] = rec.UserID.String()
			if adjusted, mErr := json.Marshal(payloadObj); mErr == nil {
				payload = adjusted
			}
		}
		outboxEvent.Payload = payload
		outboxEvent.PartitionKey = rec.UserID.String()
		outbox := toOutboxModel(outboxEvent)
		if err := tx.Create(&outbox).Error; err != nil {
			return err
		}

		result = toDomainUser(rec)
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return result, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&rec).Error; err != nil {
		return domain.User{}, notFoundOr(err)
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		return domain.User{}, notFoundOr(err)
	}
	return toDomainUser(rec), nil
}

// UpdateProfile sets the non-empty fields and returns the stored row.
func (r *userRepository) UpdateProfile(ctx context.Context, userID uuid.UUID, name, passwordHash string, updatedAt time.Time) (domain.User, error) {
	updates := map[string]any{"updated_at": updatedAt}
	if name != "" {
		updates["name"] = name
	}
	if passwordHash != "" {
		updates["password_hash"] = passwordHash
	}
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id = ?", userID).
		Updates(updates)
	if res.Error != nil {
		return domain.User{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	return r.GetByID(ctx, userID)
}
