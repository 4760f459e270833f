package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type RegisterRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type LoginRequest struct {
	Email     string `json:"email" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type UpdateProfileRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Password *string `json:"password,omitempty"`
}

type UserView struct {
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthResponse struct {
	User      UserView  `json:"user"`
	Token     string    `json:"token"`
	SessionID uuid.UUID `json:"session_id"`
	ExpiresIn int64     `json:"expires_in"`
}

type RefreshResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

type ProductListQuery struct {
	Page     int
	PerPage  int
	Search   string
	Category string
	Sort     string
	Order    string
}

type ProductInput struct {
	Name         string          `json:"name" validate:"required,max=200"`
	Description  string          `json:"description" validate:"max=4000"`
	Brand        string          `json:"brand" validate:"max=100"`
	Category     string          `json:"category" validate:"max=100"`
	Price        decimal.Decimal `json:"price"`
	Image        string          `json:"image" validate:"max=1024"`
	CountInStock int             `json:"count_in_stock" validate:"gte=0"`
}

// ProductPatch updates only the fields that are present.
type ProductPatch struct {
	Name         *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description  *string          `json:"description,omitempty" validate:"omitempty,max=4000"`
	Brand        *string          `json:"brand,omitempty" validate:"omitempty,max=100"`
	Category     *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Image        *string          `json:"image,omitempty" validate:"omitempty,max=1024"`
	CountInStock *int             `json:"count_in_stock,omitempty" validate:"omitempty,gte=0"`
}

type ProductView struct {
	ProductID    uuid.UUID       `json:"product_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Brand        string          `json:"brand,omitempty"`
	Category     string          `json:"category,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Image        string          `json:"image"`
	Rating       float64         `json:"rating"`
	NumReviews   int             `json:"num_reviews"`
	CountInStock int             `json:"count_in_stock"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type ProductPage struct {
	Items   []ProductView `json:"items"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
	Total   int64         `json:"total"`
	Pages   int           `json:"pages"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type ReviewView struct {
	ReviewID  uuid.UUID `json:"review_id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type ProductDetail struct {
	ProductView
	Reviews []ReviewView `json:"reviews"`
}

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=0,lte=1000"`
}

type SetCartQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=1000"`
}

type CartLineView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartView struct {
	Lines     []CartLineView  `json:"lines"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"min=1,max=1000"`
}

type ShippingAddressInput struct {
	Address    string `json:"address" validate:"required,max=300"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
}

type PlaceOrderRequest struct {
	Items           []OrderItemRequest   `json:"items" validate:"omitempty,dive"`
	FromCart        bool                 `json:"from_cart"`
	ShippingAddress ShippingAddressInput `json:"shipping_address"`
	PaymentMethod   string               `json:"payment_method" validate:"required,max=50"`
}

type PayOrderRequest struct {
	PaymentID    string `json:"payment_id" validate:"required,max=200"`
	Status       string `json:"status" validate:"required,max=50"`
	EmailAddress string `json:"email_address" validate:"omitempty,email"`
}

type OrderListQuery struct {
	Page    int
	PerPage int
	Status  string
}

type OrderLineView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

type PaymentResultView struct {
	PaymentID    string    `json:"payment_id"`
	Status       string    `json:"status"`
	EmailAddress string    `json:"email_address,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type OrderView struct {
	OrderID         uuid.UUID            `json:"order_id"`
	OrderNumber     string               `json:"order_number"`
	UserID          uuid.UUID            `json:"user_id"`
	Lines           []OrderLineView      `json:"lines"`
	ShippingAddress ShippingAddressInput `json:"shipping_address"`
	PaymentMethod   string               `json:"payment_method"`
	PaymentResult   *PaymentResultView   `json:"payment_result,omitempty"`
	ItemsPrice      decimal.Decimal      `json:"items_price"`
	ShippingPrice   decimal.Decimal      `json:"shipping_price"`
	TaxPrice        decimal.Decimal      `json:"tax_price"`
	TotalPrice      decimal.Decimal      `json:"total_price"`
	Status          domain.OrderStatus   `json:"status"`
	CreatedAt       time.Time            `json:"created_at"`
	PaidAt          *time.Time           `json:"paid_at,omitempty"`
	DeliveredAt     *time.Time           `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time           `json:"cancelled_at,omitempty"`
}

type OrderPage struct {
	Items   []OrderView `json:"items"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
	Total   int64       `json:"total"`
	Pages   int         `json:"pages"`
}

func toUserView(u domain.User) UserView {
	return UserView{
		UserID:    u.UserID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		IsAdmin:   u.IsAdmin(),
		CreatedAt: u.CreatedAt,
	}
}

func toProductView(p domain.Product) ProductView {
	return ProductView{
		ProductID:    p.ProductID,
		Name:         p.Name,
		Description:  p.Description,
		Brand:        p.Brand,
		Category:     p.Category,
		Price:        p.Price,
		Image:        p.Image,
		Rating:       p.Rating,
		NumReviews:   p.NumReviews,
		CountInStock: p.CountInStock,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toReviewView(r domain.Review) ReviewView {
	return ReviewView{
		ReviewID:  r.ReviewID,
		UserID:    r.UserID,
		Name:      r.Name,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func toCartView(c domain.Cart) CartView {
	lines := make([]CartLineView, 0, len(c.Lines))
	for _, line := range c.Lines {
		lines = append(lines, CartLineView{
			ProductID: line.ProductID,
			Name:      line.Name,
			Image:     line.Image,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			Subtotal:  line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2),
		})
	}
	return CartView{Lines: lines, ItemCount: c.ItemCount(), Subtotal: c.Subtotal()}
}

func toOrderView(o domain.Order) OrderView {
	lines := make([]OrderLineView, 0, len(o.Lines))
	for _, line := range o.Lines {
		lines = append(lines, OrderLineView{
			ProductID: line.ProductID,
			Name:      line.Name,
			Image:     line.Image,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}
	view := OrderView{
		OrderID:     o.OrderID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Lines:       lines,
		ShippingAddress: ShippingAddressInput{
			Address:    o.ShippingAddress.Address,
			City:       o.ShippingAddress.City,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
		},
		PaymentMethod: o.PaymentMethod,
		ItemsPrice:    o.ItemsPrice,
		ShippingPrice: o.ShippingPrice,
		TaxPrice:      o.TaxPrice,
		TotalPrice:    o.TotalPrice,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
		PaidAt:        o.PaidAt,
		DeliveredAt:   o.DeliveredAt,
		CancelledAt:   o.CancelledAt,
	}
	if o.PaymentResult != nil {
		view.PaymentResult = &PaymentResultView{
			PaymentID:    o.PaymentResult.PaymentID,
			Status:       o.PaymentResult.Status,
			EmailAddress: o.PaymentResult.EmailAddress,
			UpdatedAt:    o.PaymentResult.UpdatedAt,
		}
	}
	return view
}
