package postgres

import (
	"github.com/shopfront/storefront/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Users       ports.UserRepository
	Sessions    ports.SessionRepository
	Products    ports.ProductRepository
	Reviews     ports.ReviewRepository
	Orders      ports.OrderRepository
	Outbox      ports.OutboxRepository
	Idempotency ports.IdempotencyRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:       &userRepository{db: db},
		Sessions:    &sessionRepository{db: db},
		Products:    &productRepository{db: db},
		Reviews:     &reviewRepository{db: db},
		Orders:      &orderRepository{db: db},
		Outbox:      &outboxRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
	}
}
