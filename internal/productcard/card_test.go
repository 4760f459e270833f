package productcard

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

func sampleProduct() domain.Product {
	return domain.Product{
		ProductID:    uuid.MustParse("6f1c2b4e-4f7b-4e0b-9a53-3c1f5d2f6a10"),
		Name:         "Wireless Headphones",
		Description:  "Over-ear, 30h battery",
		Price:        decimal.RequireFromString("89.9"),
		Image:        "/images/headphones.jpg",
		Rating:       4.5,
		NumReviews:   12,
		CountInStock: 7,
	}
}

func TestFilledStars(t *testing.T) {
	t.Parallel()

	cases := []struct {
		rating float64
		want   int
	}{
		{rating: 0, want: 0},
		{rating: 0.9, want: 0},
		{rating: 1, want: 1},
		{rating: 3.99, want: 3},
		{rating: 4.5, want: 4},
		{rating: 5, want: 5},
		{rating: 7, want: 5},
		{rating: -2, want: 0},
		{rating: math.NaN(), want: 0},
	}
	for _, tc := range cases {
		if got := FilledStars(tc.rating); got != tc.want {
			t.Fatalf("FilledStars(%v): expected %d, got %d", tc.rating, tc.want, got)
		}
	}
}

func TestRenderGrid(t *testing.T) {
	t.Parallel()

	p := sampleProduct()
	card := Render(p, ParseViewMode("anything"))
	if card.ViewMode != ViewGrid {
		t.Fatalf("expected grid view, got %s", card.ViewMode)
	}
	if len(card.Stars) != StarCount || card.FilledStars != 4 {
		t.Fatalf("expected 4 of 5 stars, got %d of %d", card.FilledStars, len(card.Stars))
	}
	for i, filled := range card.Stars {
		if filled != (i < 4) {
			t.Fatalf("star %d: expected filled=%v", i, i < 4)
		}
	}
	if card.PriceLabel != "$89.90" {
		t.Fatalf("unexpected price label %q", card.PriceLabel)
	}
	if card.ReviewLabel != "(12)" {
		t.Fatalf("unexpected review label %q", card.ReviewLabel)
	}
	if card.Description != "" || card.StockLabel != "" {
		t.Fatalf("grid card should not carry description or stock label")
	}
	if card.Link != "/products/"+p.ProductID.String() {
		t.Fatalf("unexpected link %q", card.Link)
	}
}

func TestRenderListOutOfStockWithoutImage(t *testing.T) {
	t.Parallel()

	p := sampleProduct()
	p.Image = ""
	p.CountInStock = 0
	card := Render(p, ParseViewMode("LIST"))
	if card.ViewMode != ViewList {
		t.Fatalf("expected list view, got %s", card.ViewMode)
	}
	if card.Image != "/api/placeholder/150/150" {
		t.Fatalf("unexpected placeholder %q", card.Image)
	}
	if card.StockLabel != "Out of Stock" || !card.AddToCartDisabled {
		t.Fatalf("expected disabled out-of-stock card, got %+v", card)
	}
	if card.ReviewLabel != "(12 reviews)" || card.Description == "" {
		t.Fatalf("list card should carry description and long review label, got %+v", card)
	}

	grid := Render(p, ViewGrid)
	if grid.Image != "/api/placeholder/300/300" {
		t.Fatalf("unexpected grid placeholder %q", grid.Image)
	}
}

type recordingCart struct {
	calls []cartCall
	err   error
}

type cartCall struct {
	userID    uuid.UUID
	productID uuid.UUID
	quantity  int
}

func (c *recordingCart) AddToCart(_ context.Context, userID uuid.UUID, p domain.Product, quantity int) error {
	c.calls = append(c.calls, cartCall{userID: userID, productID: p.ProductID, quantity: quantity})
	return c.err
}

func TestAddToCartCallsCartOnceWithQuantityOne(t *testing.T) {
	t.Parallel()

	cart := &recordingCart{}
	userID := uuid.New()
	p := sampleProduct()
	if err := AddToCart(context.Background(), cart, userID, p); err != nil {
		t.Fatalf("add to cart failed: %v", err)
	}
	if len(cart.calls) != 1 {
		t.Fatalf("expected exactly one cart call, got %d", len(cart.calls))
	}
	got := cart.calls[0]
	if got.userID != userID || got.productID != p.ProductID || got.quantity != 1 {
		t.Fatalf("unexpected cart call %+v", got)
	}
}

func TestAddToCartOutOfStockSkipsCart(t *testing.T) {
	t.Parallel()

	cart := &recordingCart{}
	p := sampleProduct()
	p.CountInStock = 0
	err := AddToCart(context.Background(), cart, uuid.New(), p)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if len(cart.calls) != 0 {
		t.Fatalf("cart must not be called for a disabled card")
	}
}

func TestAddToCartPropagatesCartError(t *testing.T) {
	t.Parallel()

	cart := &recordingCart{err: domain.ErrInsufficientStock}
	if err := AddToCart(context.Background(), cart, uuid.New(), sampleProduct()); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected cart error to propagate, got %v", err)
	}
}
