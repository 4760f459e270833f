package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MaxRating         = 5
	maxProductNameLen = 200
)

// Product is a catalog item. Rating and NumReviews are derived from Reviews and are
// never set directly by clients.
type Product struct {
	ProductID    uuid.UUID
	Name         string
	Description  string
	Brand        string
	Category     string
	Price        decimal.Decimal
	Image        string
	Rating       float64
	NumReviews   int
	CountInStock int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p Product) InStock() bool {
	return p.CountInStock > 0
}

// Validate checks the catalog invariants shared by create and update.
func (p Product) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(name) > maxProductNameLen {
		return fmt.Errorf("%w: name must be <= %d characters", ErrInvalidInput, maxProductNameLen)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must be >= 0", ErrInvalidInput)
	}
	if p.CountInStock < 0 {
		return fmt.Errorf("%w: count_in_stock must be >= 0", ErrInvalidInput)
	}
	if p.Rating < 0 || p.Rating > MaxRating {
		return fmt.Errorf("%w: rating must be between 0 and %d", ErrInvalidInput, MaxRating)
	}
	if p.NumReviews < 0 {
		return fmt.Errorf("%w: num_reviews must be >= 0", ErrInvalidInput)
	}
	return nil
}

// Review is one user's rating of a product.
type Review struct {
	ReviewID  uuid.UUID
	ProductID uuid.UUID
	UserID    uuid.UUID
	Name      string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

func (r Review) Validate() error {
	if r.Rating < 1 || r.Rating > MaxRating {
		return fmt.Errorf("%w: rating must be between 1 and %d", ErrInvalidInput, MaxRating)
	}
	return nil
}

// AverageRating returns the mean review rating, 0 for no reviews.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}
