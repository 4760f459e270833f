package application

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
)

type Config struct {
	AdminEmails          []string
	TokenTTL             time.Duration
	SessionTTL           time.Duration
	FailedLoginThreshold int
	LockoutDuration      time.Duration
	IdempotencyTTL       time.Duration
	Pricing              domain.Pricing
	OrderUnpaidTTL       time.Duration
	DefaultPageSize      int
	MaxPageSize          int
	TopProductsLimit     int
}

type Service struct {
	cfg          Config
	users        ports.UserRepository
	sessions     ports.SessionRepository
	products     ports.ProductRepository
	reviews      ports.ReviewRepository
	orders       ports.OrderRepository
	idempotency  ports.IdempotencyRepository
	lockouts     ports.LockoutStore
	revocations  ports.SessionRevocationStore
	carts        ports.CartStore
	hasher       ports.PasswordHasher
	tokenSigner  ports.TokenSigner
	orderNumbers ports.OrderNumberGenerator
	validate     *validator.Validate
	adminEmails  map[string]struct{}
	nowFn        func() time.Time
}

type Dependencies struct {
	Config       Config
	Users        ports.UserRepository
	Sessions     ports.SessionRepository
	Products     ports.ProductRepository
	Reviews      ports.ReviewRepository
	Orders       ports.OrderRepository
	Idempotency  ports.IdempotencyRepository
	Lockouts     ports.LockoutStore
	Revocations  ports.SessionRevocationStore
	Carts        ports.CartStore
	Hasher       ports.PasswordHasher
	TokenSigner  ports.TokenSigner
	OrderNumbers ports.OrderNumberGenerator
	// Now overrides the clock; nil means time.Now in UTC.
	Now func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := withDefaults(deps.Config)
	admins := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		if normalized, err := normalizeEmail(email); err == nil {
			admins[normalized] = struct{}{}
		}
	}
	nowFn := deps.Now
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		cfg:          cfg,
		users:        deps.Users,
		sessions:     deps.Sessions,
		products:     deps.Products,
		reviews:      deps.Reviews,
		orders:       deps.Orders,
		idempotency:  deps.Idempotency,
		lockouts:     deps.Lockouts,
		revocations:  deps.Revocations,
		carts:        deps.Carts,
		hasher:       deps.Hasher,
		tokenSigner:  deps.TokenSigner,
		orderNumbers: deps.OrderNumbers,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		adminEmails:  admins,
		nowFn:        nowFn,
	}
}

func withDefaults(cfg Config) Config {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	if cfg.FailedLoginThreshold <= 0 {
		cfg.FailedLoginThreshold = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 15 * time.Minute
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.OrderUnpaidTTL <= 0 {
		cfg.OrderUnpaidTTL = 48 * time.Hour
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 12
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.TopProductsLimit <= 0 {
		cfg.TopProductsLimit = 3
	}
	return cfg
}
