// Package productcard builds the storefront's product summary card and runs its single
// user action, adding one unit of the product to the shopper's cart.
package productcard

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
)

type ViewMode string

const (
	ViewGrid ViewMode = "grid"
	ViewList ViewMode = "list"

	StarCount = 5
)

// ParseViewMode maps anything other than "list" to the grid view.
func ParseViewMode(raw string) ViewMode {
	if strings.EqualFold(strings.TrimSpace(raw), string(ViewList)) {
		return ViewList
	}
	return ViewGrid
}

// Card is the rendered summary of one product.
type Card struct {
	ViewMode          ViewMode  `json:"view_mode"`
	ProductID         uuid.UUID `json:"product_id"`
	Link              string    `json:"link"`
	Image             string    `json:"image"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	Stars             []bool    `json:"stars"`
	FilledStars       int       `json:"filled_stars"`
	ReviewLabel       string    `json:"review_label"`
	PriceLabel        string    `json:"price_label"`
	StockLabel        string    `json:"stock_label,omitempty"`
	AddToCartDisabled bool      `json:"add_to_cart_disabled"`
}

// Render builds the card for a product in the given view mode.
func Render(p domain.Product, view ViewMode) Card {
	if view != ViewList {
		view = ViewGrid
	}
	filled := FilledStars(p.Rating)
	stars := make([]bool, StarCount)
	for i := range stars {
		stars[i] = i < filled
	}

	card := Card{
		ViewMode:          view,
		ProductID:         p.ProductID,
		Link:              "/products/" + p.ProductID.String(),
		Image:             imageOrPlaceholder(p.Image, view),
		Name:              p.Name,
		Stars:             stars,
		FilledStars:       filled,
		PriceLabel:        "$" + p.Price.StringFixed(2),
		AddToCartDisabled: p.CountInStock == 0,
	}
	if view == ViewList {
		card.Description = p.Description
		card.ReviewLabel = fmt.Sprintf("(%d reviews)", p.NumReviews)
		card.StockLabel = "Out of Stock"
		if p.CountInStock > 0 {
			card.StockLabel = "In Stock"
		}
	} else {
		card.ReviewLabel = fmt.Sprintf("(%d)", p.NumReviews)
	}
	return card
}

// FilledStars is floor(rating) clamped to [0, StarCount].
func FilledStars(rating float64) int {
	if math.IsNaN(rating) || rating <= 0 {
		return 0
	}
	n := int(math.Floor(rating))
	if n > StarCount {
		return StarCount
	}
	return n
}

func imageOrPlaceholder(image string, view ViewMode) string {
	if strings.TrimSpace(image) != "" {
		return image
	}
	if view == ViewList {
		return PlaceholderPath(150, 150)
	}
	return PlaceholderPath(300, 300)
}

func PlaceholderPath(width, height int) string {
	return fmt.Sprintf("/api/placeholder/%d/%d", width, height)
}

// CartAdder is the cart collaborator: it accumulates products and quantities for a
// shopper until checkout.
type CartAdder interface {
	AddToCart(ctx context.Context, userID uuid.UUID, product domain.Product, quantity int) error
}

// AddToCart is the card's click action. It hands exactly one unit of the product to the
// cart and refuses, without touching the cart, when the card's button is disabled.
func AddToCart(ctx context.Context, cart CartAdder, userID uuid.UUID, p domain.Product) error {
	if p.CountInStock == 0 {
		return fmt.Errorf("%w: %s is out of stock", domain.ErrInsufficientStock, p.Name)
	}
	return cart.AddToCart(ctx, userID, p, 1)
}
