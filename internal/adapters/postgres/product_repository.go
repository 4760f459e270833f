package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sortableProductColumns guards ORDER BY against anything the service did not whitelist.
var sortableProductColumns = map[string]bool{
	"name":       true,
	"price":      true,
	"rating":     true,
	"created_at": true,
}

type productRepository struct {
	db *gorm.DB
}

func (r *productRepository) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	rec := toProductModel(product)
	if rec.ProductID == uuid.Nil {
		rec.ProductID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, fmt.Errorf("%w: product already exists", domain.ErrConflict)
		}
		return domain.Product{}, err
	}
	return toDomainProduct(rec), nil
}

func (r *productRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	rec := toProductModel(product)
	res := r.db.WithContext(ctx).
		Model(&productModel{}).
		Where("product_id = ?", product.ProductID).
		Updates(map[string]any{
			"name":           rec.Name,
			"description":    rec.Description,
			"brand":          rec.Brand,
			"category":       rec.Category,
			"price":          rec.Price,
			"image":          rec.Image,
			"count_in_stock": rec.CountInStock,
			"updated_at":     rec.UpdatedAt,
		})
	if res.Error != nil {
		return domain.Product{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Product{}, domain.ErrNotFound
	}
	return r.GetByID(ctx, product.ProductID)
}

// Delete removes a product and its reviews. Order lines keep their own snapshot of the
// product, so past orders are unaffected.
func (r *productRepository) Delete(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&reviewModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("product_id = ?", productID).Delete(&productModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *productRepository) GetByID(ctx context.Context, productID uuid.UUID) (domain.Product, error) {
	var rec productModel
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Take(&rec).Error; err != nil {
		return domain.Product{}, notFoundOr(err)
	}
	return toDomainProduct(rec), nil
}

func (r *productRepository) List(ctx context.Context, q ports.ProductQuery) ([]domain.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&productModel{})
	if q.Search != "" {
		query = query.Where("name ILIKE ?", "%"+escapeLike(q.Search)+"%")
	}
	if q.Category != "" {
		query = query.Where("LOWER(category) = LOWER(?)", q.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column := q.SortBy
	if !sortableProductColumns[column] {
		column = "created_at"
	}
	var rows []productModel
	err := query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: q.Desc}).
		Order("product_id").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainProduct(row))
	}
	return out, total, nil
}

func (r *productRepository) Top(ctx context.Context, limit int) ([]domain.Product, error) {
	var rows []productModel
	if err := r.db.WithContext(ctx).
		Order("rating DESC").
		Order("num_reviews DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainProduct(row))
	}
	return out, nil
}

func escapeLike(v string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(v)
}
