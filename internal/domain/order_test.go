package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func testPricing() Pricing {
	return Pricing{
		TaxRate:               decimal.RequireFromString("0.15"),
		ShippingFee:           decimal.RequireFromString("10.00"),
		FreeShippingThreshold: decimal.RequireFromString("100.00"),
	}
}

func TestPricingPrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		lines    []OrderLine
		items    string
		shipping string
		tax      string
		total    string
	}{
		{
			name:     "below threshold pays shipping",
			lines:    []OrderLine{{UnitPrice: decimal.RequireFromString("19.99"), Quantity: 2}},
			items:    "39.98",
			shipping: "10",
			tax:      "6",
			total:    "55.98",
		},
		{
			name:     "exactly at threshold pays shipping",
			lines:    []OrderLine{{UnitPrice: decimal.RequireFromString("50"), Quantity: 2}},
			items:    "100",
			shipping: "10",
			tax:      "15",
			total:    "125",
		},
		{
			name: "above threshold ships free",
			lines: []OrderLine{
				{UnitPrice: decimal.RequireFromString("89.99"), Quantity: 1},
				{UnitPrice: decimal.RequireFromString("29.99"), Quantity: 1},
			},
			items:    "119.98",
			shipping: "0",
			tax:      "18",
			total:    "137.98",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := testPricing().Price(tc.lines)
			check := func(field string, got decimal.Decimal, want string) {
				if !got.Equal(decimal.RequireFromString(want)) {
					t.Fatalf("%s: expected %s, got %s", field, want, got)
				}
			}
			check("items", got.ItemsPrice, tc.items)
			check("shipping", got.ShippingPrice, tc.shipping)
			check("tax", got.TaxPrice, tc.tax)
			check("total", got.TotalPrice, tc.total)
		})
	}
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := [][2]OrderStatus{
		{OrderStatusPending, OrderStatusPaid},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusPaid, OrderStatusDelivered},
		{OrderStatusPaid, OrderStatusCancelled},
	}
	for _, pair := range allowed {
		if !CanTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be allowed", pair[0], pair[1])
		}
	}

	rejected := [][2]OrderStatus{
		{OrderStatusPending, OrderStatusDelivered},
		{OrderStatusDelivered, OrderStatusCancelled},
		{OrderStatusCancelled, OrderStatusPaid},
		{OrderStatusPaid, OrderStatusPaid},
	}
	for _, pair := range rejected {
		if CanTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be rejected", pair[0], pair[1])
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	t.Parallel()

	status, err := ParseOrderStatus(" paid ")
	if err != nil || status != OrderStatusPaid {
		t.Fatalf("expected PAID, got %q err=%v", status, err)
	}
	if _, err := ParseOrderStatus("shipped"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCheckStock(t *testing.T) {
	t.Parallel()

	p := Product{ProductID: uuid.New(), Name: "Mouse", CountInStock: 3}
	if err := CheckStock(p, 3); err != nil {
		t.Fatalf("expected full stock to be available, got %v", err)
	}
	if err := CheckStock(p, 4); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if err := CheckStock(p, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero quantity, got %v", err)
	}
	p.CountInStock = 0
	if err := CheckStock(p, 1); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected out of stock product to be rejected, got %v", err)
	}
}
