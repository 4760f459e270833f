package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type userModel struct {
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"column:name"`
	Email        string    `gorm:"column:email"`
	PasswordHash string    `gorm:"column:password_hash"`
	Role         string    `gorm:"column:role"`
	IsActive     bool      `gorm:"column:is_active"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type sessionModel struct {
	SessionID      uuid.UUID  `gorm:"column:session_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID  `gorm:"column:user_id"`
	IPAddress      *string    `gorm:"column:ip_address"`
	UserAgent      string     `gorm:"column:user_agent"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	LastActivityAt time.Time  `gorm:"column:last_activity_at"`
	ExpiresAt      time.Time  `gorm:"column:expires_at"`
	RevokedAt      *time.Time `gorm:"column:revoked_at"`
}

func (sessionModel) TableName() string { return "sessions" }

type productModel struct {
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;primaryKey"`
	Name         string          `gorm:"column:name"`
	Description  string          `gorm:"column:description"`
	Brand        string          `gorm:"column:brand"`
	Category     string          `gorm:"column:category"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	Image        string          `gorm:"column:image"`
	Rating       float64         `gorm:"column:rating"`
	NumReviews   int             `gorm:"column:num_reviews"`
	CountInStock int             `gorm:"column:count_in_stock"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at"`
}

func (productModel) TableName() string { return "products" }

type reviewModel struct {
	ReviewID  uuid.UUID `gorm:"column:review_id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id"`
	UserID    uuid.UUID `gorm:"column:user_id"`
	Name      string    `gorm:"column:name"`
	Rating    int       `gorm:"column:rating"`
	Comment   string    `gorm:"column:comment"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (reviewModel) TableName() string { return "reviews" }

type orderModel struct {
	OrderID         uuid.UUID        `gorm:"column:order_id;type:uuid;primaryKey"`
	OrderNumber     string           `gorm:"column:order_number"`
	UserID          uuid.UUID        `gorm:"column:user_id"`
	ShipAddress     string           `gorm:"column:ship_address"`
	ShipCity        string           `gorm:"column:ship_city"`
	ShipPostalCode  string           `gorm:"column:ship_postal_code"`
	ShipCountry     string           `gorm:"column:ship_country"`
	PaymentMethod   string           `gorm:"column:payment_method"`
	PaymentID       *string          `gorm:"column:payment_id"`
	PaymentStatus   *string          `gorm:"column:payment_status"`
	PaymentEmail    *string          `gorm:"column:payment_email"`
	PaymentUpdated  *time.Time       `gorm:"column:payment_updated_at"`
	ItemsPrice      decimal.Decimal  `gorm:"column:items_price;type:numeric(12,2)"`
	ShippingPrice   decimal.Decimal  `gorm:"column:shipping_price;type:numeric(12,2)"`
	TaxPrice        decimal.Decimal  `gorm:"column:tax_price;type:numeric(12,2)"`
	TotalPrice      decimal.Decimal  `gorm:"column:total_price;type:numeric(12,2)"`
	Status          string           `gorm:"column:status"`
	CreatedAt       time.Time        `gorm:"column:created_at"`
	UpdatedAt       time.Time        `gorm:"column:updated_at"`
	PaidAt          *time.Time       `gorm:"column:paid_at"`
	DeliveredAt     *time.Time       `gorm:"column:delivered_at"`
	CancelledAt     *time.Time       `gorm:"column:cancelled_at"`
	Items           []orderItemModel `gorm:"foreignKey:OrderID;references:OrderID"`
}

func (orderModel) TableName() string { return "orders" }

type orderItemModel struct {
	OrderItemID int64           `gorm:"column:order_item_id;primaryKey;autoIncrement"`
	OrderID     uuid.UUID       `gorm:"column:order_id"`
	ProductID   uuid.UUID       `gorm:"column:product_id"`
	Name        string          `gorm:"column:name"`
	Image       string          `gorm:"column:image"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2)"`
	Quantity    int             `gorm:"column:quantity"`
	Position    int             `gorm:"column:position"`
}

func (orderItemModel) TableName() string { return "order_items" }

type outboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (outboxModel) TableName() string { return "outbox_events" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (idempotencyModel) TableName() string { return "idempotency_keys" }
