package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// allowedTransitions is the order state machine.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusDelivered, OrderStatusCancelled},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case OrderStatusPending, OrderStatusPaid, OrderStatusDelivered, OrderStatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, raw)
	}
}

type OrderLine struct {
	ProductID uuid.UUID
	Name      string
	Image     string
	UnitPrice decimal.Decimal
	Quantity  int
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type ShippingAddress struct {
	Address    string
	City       string
	PostalCode string
	Country    string
}

func (a ShippingAddress) Validate() error {
	if strings.TrimSpace(a.Address) == "" || strings.TrimSpace(a.City) == "" ||
		strings.TrimSpace(a.PostalCode) == "" || strings.TrimSpace(a.Country) == "" {
		return fmt.Errorf("%w: shipping address is incomplete", ErrInvalidInput)
	}
	return nil
}

// PaymentResult is what the client reports back from the payment provider.
type PaymentResult struct {
	PaymentID    string
	Status       string
	EmailAddress string
	UpdatedAt    time.Time
}

type Order struct {
	OrderID         uuid.UUID
	OrderNumber     string
	UserID          uuid.UUID
	Lines           []OrderLine
	ShippingAddress ShippingAddress
	PaymentMethod   string
	PaymentResult   *PaymentResult
	ItemsPrice      decimal.Decimal
	ShippingPrice   decimal.Decimal
	TaxPrice        decimal.Decimal
	TotalPrice      decimal.Decimal
	Status          OrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PaidAt          *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
}

// Pricing holds the store's order pricing rules.
type Pricing struct {
	TaxRate               decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// OrderTotals is the server-side price breakdown of an order.
type OrderTotals struct {
	ItemsPrice    decimal.Decimal
	ShippingPrice decimal.Decimal
	TaxPrice      decimal.Decimal
	TotalPrice    decimal.Decimal
}

// Price computes order totals from line unit prices. Shipping is free strictly above the
// threshold; tax is rounded to cents.
func (p Pricing) Price(lines []OrderLine) OrderTotals {
	items := decimal.Zero
	for _, line := range lines {
		items = items.Add(line.Subtotal())
	}
	items = items.Round(2)

	shipping := p.ShippingFee
	if items.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	shipping = shipping.Round(2)
	tax := items.Mul(p.TaxRate).Round(2)

	return OrderTotals{
		ItemsPrice:    items,
		ShippingPrice: shipping,
		TaxPrice:      tax,
		TotalPrice:    items.Add(shipping).Add(tax),
	}
}
