package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderRepository struct {
	db *gorm.DB
}

// PlaceTx locks the referenced product rows in id order, lets build assemble the order
// from them, then decrements stock and writes the order with its outbox event. Any
// failure rolls everything back.
func (r *orderRepository) PlaceTx(ctx context.Context, productIDs []uuid.UUID, build ports.OrderBuilder) (domain.Order, error) {
	var placed domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []productModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id IN ?", productIDs).
			Order("product_id").
			Find(&rows).Error; err != nil {
			return err
		}
		locked := make(map[uuid.UUID]domain.Product, len(rows))
		for _, row := range rows {
			locked[row.ProductID] = toDomainProduct(row)
		}

		order, event, err := build(locked)
		if err != nil {
			return err
		}

		for _, line := range order.Lines {
			res := tx.Model(&productModel{}).
				Where("product_id = ?", line.ProductID).
				Where("count_in_stock >= ?", line.Quantity).
				Updates(map[string]any{
					"count_in_stock": gorm.Expr("count_in_stock - ?", line.Quantity),
					"updated_at":     order.CreatedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %s", domain.ErrInsufficientStock, line.Name)
			}
		}

		rec := toOrderModel(order)
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: duplicate order number", domain.ErrConflict)
			}
			return err
		}
		outbox := toOutboxModel(event)
		if err := tx.Create(&outbox).Error; err != nil {
			return err
		}
		placed = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return placed, nil
}

// MutateTx loads the order under a row lock and persists whatever mutate changed,
// restoring line stock when asked to.
func (r *orderRepository) MutateTx(ctx context.Context, orderID uuid.UUID, mutate ports.OrderMutator) (domain.Order, error) {
	var result domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row orderModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", orderID).
			Take(&row).Error; err != nil {
			return notFoundOr(err)
		}
		if err := tx.Where("order_id = ?", orderID).Order("position").Find(&row.Items).Error; err != nil {
			return err
		}

		order := toDomainOrder(row)
		restoreStock, event, err := mutate(&order)
		if err != nil {
			return err
		}

		if restoreStock {
			for _, line := range order.Lines {
				if err := tx.Model(&productModel{}).
					Where("product_id = ?", line.ProductID).
					Updates(map[string]any{
						"count_in_stock": gorm.Expr("count_in_stock + ?", line.Quantity),
						"updated_at":     order.UpdatedAt,
					}).Error; err != nil {
					return err
				}
			}
		}

		updated := toOrderModel(order)
		if err := tx.Model(&orderModel{}).
			Where("order_id = ?", orderID).
			Updates(map[string]any{
				"status":             updated.Status,
				"payment_id":         updated.PaymentID,
				"payment_status":     updated.PaymentStatus,
				"payment_email":      updated.PaymentEmail,
				"payment_updated_at": updated.PaymentUpdated,
				"paid_at":            updated.PaidAt,
				"delivered_at":       updated.DeliveredAt,
				"cancelled_at":       updated.CancelledAt,
				"updated_at":         updated.UpdatedAt,
			}).Error; err != nil {
			return err
		}

		if event.EventType != "" {
			outbox := toOutboxModel(event)
			if err := tx.Create(&outbox).Error; err != nil {
				return err
			}
		}
		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

func (r *orderRepository) GetByID(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	var row orderModel
	if err := r.withItems(ctx).Where("order_id = ?", orderID).Take(&row).Error; err != nil {
		return domain.Order{}, notFoundOr(err)
	}
	return toDomainOrder(row), nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Order, int64, error) {
	return r.page(ctx, r.db.WithContext(ctx).Model(&orderModel{}).Where("user_id = ?", userID), limit, offset)
}

func (r *orderRepository) List(ctx context.Context, status *domain.OrderStatus, limit, offset int) ([]domain.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&orderModel{})
	if status != nil {
		query = query.Where("status = ?", string(*status))
	}
	return r.page(ctx, query, limit, offset)
}

func (r *orderRepository) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]domain.Order, error) {
	var rows []orderModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.OrderStatusPending)).
		Where("created_at < ?", before).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainOrder(row))
	}
	return out, nil
}

func (r *orderRepository) page(ctx context.Context, query *gorm.DB, limit, offset int) ([]domain.Order, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ids []uuid.UUID
	if err := query.
		Order("created_at DESC").
		Order("order_id").
		Limit(limit).
		Offset(offset).
		Pluck("order_id", &ids).Error; err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return []domain.Order{}, total, nil
	}

	var rows []orderModel
	if err := r.withItems(ctx).
		Where("order_id IN ?", ids).
		Order("created_at DESC").
		Order("order_id").
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainOrder(row))
	}
	return out, total, nil
}

func (r *orderRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	})
}
