package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
	"github.com/shopfront/storefront/internal/productcard"
)

// productSortColumns whitelists the catalog sort keys accepted from query strings.
var productSortColumns = map[string]string{
	"name":       "name",
	"price":      "price",
	"rating":     "rating",
	"created_at": "created_at",
	"newest":     "created_at",
}

func (s *Service) ListProducts(ctx context.Context, q ProductListQuery) (ProductPage, error) {
	page, perPage, offset := s.pageBounds(q.Page, q.PerPage)

	sortKey := strings.ToLower(strings.TrimSpace(q.Sort))
	column := "created_at"
	desc := true
	if sortKey != "" {
		mapped, ok := productSortColumns[sortKey]
		if !ok {
			return ProductPage{}, fmt.Errorf("%w: unsupported sort %q", domain.ErrInvalidInput, q.Sort)
		}
		column = mapped
		desc = sortKey == "newest"
	}
	switch strings.ToLower(strings.TrimSpace(q.Order)) {
	case "":
	case "asc":
		desc = false
	case "desc":
		desc = true
	default:
		return ProductPage{}, fmt.Errorf("%w: order must be asc or desc", domain.ErrInvalidInput)
	}

	items, total, err := s.products.List(ctx, ports.ProductQuery{
		Search:   strings.TrimSpace(q.Search),
		Category: strings.TrimSpace(q.Category),
		SortBy:   column,
		Desc:     desc,
		Limit:    perPage,
		Offset:   offset,
	})
	if err != nil {
		return ProductPage{}, err
	}

	views := make([]ProductView, 0, len(items))
	for _, p := range items {
		views = append(views, toProductView(p))
	}
	return ProductPage{
		Items:   views,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pageCount(total, perPage),
	}, nil
}

func (s *Service) TopProducts(ctx context.Context, limit int) ([]ProductView, error) {
	if limit <= 0 {
		limit = s.cfg.TopProductsLimit
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	items, err := s.products.Top(ctx, limit)
	if err != nil {
		return nil, err
	}
	views := make([]ProductView, 0, len(items))
	for _, p := range items {
		views = append(views, toProductView(p))
	}
	return views, nil
}

func (s *Service) GetProduct(ctx context.Context, productID uuid.UUID) (ProductDetail, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return ProductDetail{}, err
	}
	reviews, err := s.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return ProductDetail{}, err
	}
	detail := ProductDetail{ProductView: toProductView(product), Reviews: make([]ReviewView, 0, len(reviews))}
	for _, r := range reviews {
		detail.Reviews = append(detail.Reviews, toReviewView(r))
	}
	return detail, nil
}

// ProductCard renders the summary card of one product.
func (s *Service) ProductCard(ctx context.Context, productID uuid.UUID, view string) (productcard.Card, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return productcard.Card{}, err
	}
	return productcard.Render(product, productcard.ParseViewMode(view)), nil
}

func (s *Service) CreateProduct(ctx context.Context, actor ports.AuthClaims, req ProductInput) (ProductView, error) {
	if err := requireAdmin(actor); err != nil {
		return ProductView{}, err
	}
	if err := s.validateRequest(req); err != nil {
		return ProductView{}, err
	}
	now := s.nowFn()
	product := domain.Product{
		ProductID:    uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Description:  strings.TrimSpace(req.Description),
		Brand:        strings.TrimSpace(req.Brand),
		Category:     strings.TrimSpace(req.Category),
		Price:        req.Price.Round(2),
		Image:        strings.TrimSpace(req.Image),
		CountInStock: req.CountInStock,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := product.Validate(); err != nil {
		return ProductView{}, err
	}
	created, err := s.products.Create(ctx, product)
	if err != nil {
		return ProductView{}, err
	}
	return toProductView(created), nil
}

func (s *Service) UpdateProduct(ctx context.Context, actor ports.AuthClaims, productID uuid.UUID, patch ProductPatch) (ProductView, error) {
	if err := requireAdmin(actor); err != nil {
		return ProductView{}, err
	}
	if err := s.validateRequest(patch); err != nil {
		return ProductView{}, err
	}
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return ProductView{}, err
	}
	if patch.Name != nil {
		product.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		product.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Brand != nil {
		product.Brand = strings.TrimSpace(*patch.Brand)
	}
	if patch.Category != nil {
		product.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Price != nil {
		product.Price = patch.Price.Round(2)
	}
	if patch.Image != nil {
		product.Image = strings.TrimSpace(*patch.Image)
	}
	if patch.CountInStock != nil {
		product.CountInStock = *patch.CountInStock
	}
	product.UpdatedAt = s.nowFn()
	if err := product.Validate(); err != nil {
		return ProductView{}, err
	}
	updated, err := s.products.Update(ctx, product)
	if err != nil {
		return ProductView{}, err
	}
	return toProductView(updated), nil
}

func (s *Service) DeleteProduct(ctx context.Context, actor ports.AuthClaims, productID uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.products.Delete(ctx, productID)
}

// AddReview records the caller's review and refreshes the product's rating and review
// count. A second review of the same product by the same user is a conflict.
func (s *Service) AddReview(ctx context.Context, actor ports.AuthClaims, productID uuid.UUID, req ReviewRequest) (ProductView, error) {
	if err := s.validateRequest(req); err != nil {
		return ProductView{}, err
	}
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return ProductView{}, err
	}
	review := domain.Review{
		ReviewID:  uuid.New(),
		ProductID: productID,
		UserID:    user.UserID,
		Name:      user.Name,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
		CreatedAt: s.nowFn(),
	}
	if err := review.Validate(); err != nil {
		return ProductView{}, err
	}
	product, err := s.reviews.AddAndRecalculate(ctx, review)
	if err != nil {
		return ProductView{}, err
	}
	return toProductView(product), nil
}

// AddProductToCart is the product card's add-to-cart action for the calling shopper.
func (s *Service) AddProductToCart(ctx context.Context, actor ports.AuthClaims, productID uuid.UUID) (CartView, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return CartView{}, err
	}
	if err := productcard.AddToCart(ctx, s, actor.UserID, product); err != nil {
		return CartView{}, err
	}
	return s.GetCart(ctx, actor)
}
