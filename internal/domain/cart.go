package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is one product in a shopping cart. Name, image and price are a snapshot taken
// when the line was last written and are refreshed from the catalog at checkout.
type CartLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"added_at"`
}

type Cart struct {
	UserID uuid.UUID
	Lines  []CartLine
}

func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total.Round(2)
}

func (c Cart) ItemCount() int {
	n := 0
	for _, line := range c.Lines {
		n += line.Quantity
	}
	return n
}

// CheckStock enforces the cart rule that a line never exceeds the product's stock.
func CheckStock(product Product, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be >= 1", ErrInvalidInput)
	}
	if !product.InStock() || quantity > product.CountInStock {
		return fmt.Errorf("%w: %s has %d in stock", ErrInsufficientStock, product.Name, product.CountInStock)
	}
	return nil
}
