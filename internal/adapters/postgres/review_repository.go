package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type reviewRepository struct {
	db *gorm.DB
}

// AddAndRecalculate inserts the review and recomputes the product's rating and review
// count under a row lock on the product.
func (r *reviewRepository) AddAndRecalculate(ctx context.Context, review domain.Review) (domain.Product, error) {
	var result domain.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product productModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ?", review.ProductID).
			Take(&product).Error; err != nil {
			return notFoundOr(err)
		}

		rec := reviewModel{
			ReviewID:  review.ReviewID,
			ProductID: review.ProductID,
			UserID:    review.UserID,
			Name:      review.Name,
			Rating:    review.Rating,
			Comment:   review.Comment,
			CreatedAt: review.CreatedAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: product already reviewed", domain.ErrConflict)
			}
			return err
		}

		var agg struct {
			Count int
			Avg   float64
		}
		if err := tx.Model(&reviewModel{}).
			Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS avg").
			Where("product_id = ?", review.ProductID).
			Scan(&agg).Error; err != nil {
			return err
		}

		if err := tx.Model(&productModel{}).
			Where("product_id = ?", review.ProductID).
			Updates(map[string]any{
				"rating":      agg.Avg,
				"num_reviews": agg.Count,
				"updated_at":  review.CreatedAt,
			}).Error; err != nil {
			return err
		}
		product.Rating = agg.Avg
		product.NumReviews = agg.Count
		product.UpdatedAt = review.CreatedAt
		result = toDomainProduct(product)
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return result, nil
}

func (r *reviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.Review, error) {
	var rows []reviewModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Review, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainReview(row))
	}
	return out, nil
}
