package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
)

// CreateUserTxParams captures atomic user-creation inputs.
type CreateUserTxParams struct {
	Name            string
	Email           string
	PasswordHash    string
	Role            string
	RegisteredAtUTC time.Time
}

// UserRepository defines persistence operations for storefront accounts.
// The transactional create method keeps the user row and its outbox event consistent.
type UserRepository interface {
	CreateWithOutboxTx(ctx context.Context, params CreateUserTxParams, outboxEvent OutboxEvent) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, name, passwordHash string, updatedAt time.Time) (domain.User, error)
}

// SessionCreateParams captures metadata required to create a session record.
type SessionCreateParams struct {
	UserID         uuid.UUID
	IPAddress      string
	UserAgent      string
	ExpiresAt      time.Time
	LastActivityAt time.Time
}

// SessionRepository manages persistent session lifecycle.
type SessionRepository interface {
	Create(ctx context.Context, params SessionCreateParams) (domain.Session, error)
	GetByID(ctx context.Context, sessionID uuid.UUID) (domain.Session, error)
	TouchActivity(ctx context.Context, sessionID uuid.UUID, touchedAt time.Time) error
	RevokeByID(ctx context.Context, sessionID uuid.UUID, revokedAt time.Time) error
}

// ProductQuery is the catalog listing filter. SortBy must already be whitelisted.
type ProductQuery struct {
	Search   string
	Category string
	SortBy   string
	Desc     bool
	Limit    int
	Offset   int
}

// ProductRepository persists the catalog.
type ProductRepository interface {
	Create(ctx context.Context, product domain.Product) (domain.Product, error)
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
	Delete(ctx context.Context, productID uuid.UUID) error
	GetByID(ctx context.Context, productID uuid.UUID) (domain.Product, error)
	List(ctx context.Context, q ProductQuery) ([]domain.Product, int64, error)
	Top(ctx context.Context, limit int) ([]domain.Product, error)
}

// ReviewRepository stores reviews. AddAndRecalculate inserts a review and refreshes the
// product's rating and review count in the same transaction.
type ReviewRepository interface {
	AddAndRecalculate(ctx context.Context, review domain.Review) (domain.Product, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.Review, error)
}

// OrderBuilder turns the locked product rows of an order into the order to persist.
// Returning an error aborts the transaction with nothing written.
type OrderBuilder func(products map[uuid.UUID]domain.Product) (domain.Order, OutboxEvent, error)

// OrderMutator changes a locked order in place. When restoreStock is true the order's
// line quantities are returned to product stock in the same transaction.
type OrderMutator func(order *domain.Order) (restoreStock bool, event OutboxEvent, err error)

// OrderRepository persists orders together with the stock they reserve.
type OrderRepository interface {
	PlaceTx(ctx context.Context, productIDs []uuid.UUID, build OrderBuilder) (domain.Order, error)
	MutateTx(ctx context.Context, orderID uuid.UUID, mutate OrderMutator) (domain.Order, error)
	GetByID(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Order, int64, error)
	List(ctx context.Context, status *domain.OrderStatus, limit, offset int) ([]domain.Order, int64, error)
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]domain.Order, error)
}

// OutboxEvent is the write-side event payload prior to storage.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls the publish-retry workflow for domain events.
type OutboxRepository interface {
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}

// IdempotencyRecord tracks a previously accepted mutating request.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	Status       string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdempotencyRepository enforces idempotent mutation semantics.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}
