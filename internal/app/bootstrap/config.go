package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the storefront API and worker.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string
	MaxDBConns  int32

	JWTPrivateKeyPEM  string
	JWTPublicKeyPEM   string
	JWTKeyID          string
	AllowEphemeralJWT bool

	BcryptCost int

	TokenTTL        time.Duration
	SessionTTL      time.Duration
	LockoutDuration time.Duration
	FailedThreshold int
	AdminEmails     []string

	TaxRate               decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	OrderUnpaidTTL        time.Duration
	OrderExpirySchedule   string
	CartTTL               time.Duration
	SnowflakeNode         int64

	AllowedOrigins    []string
	AuthRateRPS       float64
	AuthRateBurst     int
	TrustProxyHeaders bool

	KafkaBrokers     []string
	KafkaTopicOrders string
	KafkaTopicUsers  string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int

	LogLevel slog.Level
	LogFile  string
}

// configFile mirrors the YAML schema used by configs/default.yaml.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
	} `yaml:"dependencies"`
	HTTP struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
		// AuthRateRPS is a pointer so an explicit 0 switches the limiter off.
		AuthRateRPS       *float64 `yaml:"auth_rate_rps"`
		AuthRateBurst     int      `yaml:"auth_rate_burst"`
		TrustProxyHeaders *bool    `yaml:"trust_proxy_headers"`
	} `yaml:"http"`
	Store struct {
		AdminEmails           []string `yaml:"admin_emails"`
		TaxRate               string   `yaml:"tax_rate"`
		ShippingFee           string   `yaml:"shipping_fee"`
		FreeShippingThreshold string   `yaml:"free_shipping_threshold"`
		OrderExpirySchedule   string   `yaml:"order_expiry_schedule"`
	} `yaml:"store"`
	Kafka struct {
		OrdersTopic string `yaml:"orders_topic"`
		UsersTopic  string `yaml:"users_topic"`
	} `yaml:"kafka"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// A .env file in the working directory is loaded first; variables already present in
// the environment win over it.
func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		ServiceID:             "storefront-api",
		HTTPPort:              5000,
		GRPCPort:              9090,
		MaxDBConns:            20,
		JWTKeyID:              "storefront-key-1",
		AllowEphemeralJWT:     true,
		BcryptCost:            12,
		TokenTTL:              24 * time.Hour,
		SessionTTL:            30 * 24 * time.Hour,
		LockoutDuration:       15 * time.Minute,
		FailedThreshold:       5,
		TaxRate:               decimal.RequireFromString("0.15"),
		ShippingFee:           decimal.RequireFromString("10.00"),
		FreeShippingThreshold: decimal.RequireFromString("100.00"),
		OrderUnpaidTTL:        48 * time.Hour,
		OrderExpirySchedule:   "@every 10m",
		CartTTL:               30 * 24 * time.Hour,
		SnowflakeNode:         1,
		AllowedOrigins:        []string{"http://localhost:3000"},
		AuthRateRPS:           5,
		AuthRateBurst:         10,
		KafkaTopicOrders:      "storefront.orders",
		KafkaTopicUsers:       "storefront.users",
		OutboxPollInterval:    2 * time.Second,
		OutboxBatchSize:       100,
		OutboxClaimTTL:        30 * time.Second,
		OutboxMaxRetries:      5,
		LogLevel:              slog.LevelInfo,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		if err := applyConfigFile(&cfg, raw); err != nil {
			return Config{}, err
		}
	}

	cfg.HTTPPort = envInt("PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.JWTPrivateKeyPEM = envOrDefault("JWT_PRIVATE_KEY_PEM", cfg.JWTPrivateKeyPEM)
	cfg.JWTPublicKeyPEM = envOrDefault("JWT_PUBLIC_KEY_PEM", cfg.JWTPublicKeyPEM)
	cfg.JWTKeyID = envOrDefault("JWT_KEY_ID", cfg.JWTKeyID)
	cfg.AllowEphemeralJWT = envBool("JWT_ALLOW_EPHEMERAL", cfg.AllowEphemeralJWT)
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.FailedThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.FailedThreshold)
	cfg.AdminEmails = envCSV("ADMIN_EMAILS", cfg.AdminEmails)

	cfg.TokenTTL = time.Duration(envInt("TOKEN_EXPIRY_HOURS", int(cfg.TokenTTL.Hours()))) * time.Hour
	cfg.SessionTTL = time.Duration(envInt("SESSION_EXPIRY_DAYS", int(cfg.SessionTTL.Hours()/24))) * 24 * time.Hour
	cfg.LockoutDuration = time.Duration(envInt("ACCOUNT_LOCKOUT_MINUTES", int(cfg.LockoutDuration.Minutes()))) * time.Minute
	cfg.OrderUnpaidTTL = time.Duration(envInt("ORDER_UNPAID_TTL_HOURS", int(cfg.OrderUnpaidTTL.Hours()))) * time.Hour
	cfg.OrderExpirySchedule = envOrDefault("ORDER_EXPIRY_SCHEDULE", cfg.OrderExpirySchedule)
	cfg.CartTTL = time.Duration(envInt("CART_TTL_DAYS", int(cfg.CartTTL.Hours()/24))) * 24 * time.Hour
	cfg.SnowflakeNode = int64(envInt("SNOWFLAKE_NODE", int(cfg.SnowflakeNode)))

	if cfg.TaxRate, err = envDecimal("TAX_RATE", cfg.TaxRate); err != nil {
		return Config{}, err
	}
	if cfg.ShippingFee, err = envDecimal("SHIPPING_FEE", cfg.ShippingFee); err != nil {
		return Config{}, err
	}
	if cfg.FreeShippingThreshold, err = envDecimal("FREE_SHIPPING_THRESHOLD", cfg.FreeShippingThreshold); err != nil {
		return Config{}, err
	}

	cfg.AllowedOrigins = envCSV("CORS_ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.AuthRateRPS = envFloat("AUTH_RATE_LIMIT_RPS", cfg.AuthRateRPS)
	cfg.AuthRateBurst = envInt("AUTH_RATE_LIMIT_BURST", cfg.AuthRateBurst)
	cfg.TrustProxyHeaders = envBool("TRUST_PROXY_HEADERS", cfg.TrustProxyHeaders)

	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopicOrders = envOrDefault("KAFKA_TOPIC_ORDERS", cfg.KafkaTopicOrders)
	cfg.KafkaTopicUsers = envOrDefault("KAFKA_TOPIC_USERS", cfg.KafkaTopicUsers)

	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	cfg.LogLevel = envLogLevel("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = envOrDefault("LOG_FILE", cfg.LogFile)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	switch hasPriv, hasPub := cfg.JWTPrivateKeyPEM != "", cfg.JWTPublicKeyPEM != ""; {
	case hasPriv != hasPub:
		return Config{}, fmt.Errorf("JWT_PRIVATE_KEY_PEM and JWT_PUBLIC_KEY_PEM must be set together")
	case !hasPriv && !cfg.AllowEphemeralJWT:
		return Config{}, fmt.Errorf("missing JWT_PRIVATE_KEY_PEM or JWT_PUBLIC_KEY_PEM")
	}
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return Config{}, fmt.Errorf("invalid PORT %d", cfg.HTTPPort)
	}
	if cfg.TaxRate.IsNegative() || cfg.ShippingFee.IsNegative() || cfg.FreeShippingThreshold.IsNegative() {
		return Config{}, fmt.Errorf("pricing values must not be negative")
	}

	return cfg, nil
}

func applyConfigFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
	}
	if len(f.HTTP.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = f.HTTP.AllowedOrigins
	}
	if f.HTTP.AuthRateRPS != nil {
		cfg.AuthRateRPS = *f.HTTP.AuthRateRPS
	}
	if f.HTTP.AuthRateBurst > 0 {
		cfg.AuthRateBurst = f.HTTP.AuthRateBurst
	}
	if f.HTTP.TrustProxyHeaders != nil {
		cfg.TrustProxyHeaders = *f.HTTP.TrustProxyHeaders
	}
	if len(f.Store.AdminEmails) > 0 {
		cfg.AdminEmails = f.Store.AdminEmails
	}
	if f.Store.OrderExpirySchedule != "" {
		cfg.OrderExpirySchedule = f.Store.OrderExpirySchedule
	}
	for _, field := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"store.tax_rate", f.Store.TaxRate, &cfg.TaxRate},
		{"store.shipping_fee", f.Store.ShippingFee, &cfg.ShippingFee},
		{"store.free_shipping_threshold", f.Store.FreeShippingThreshold, &cfg.FreeShippingThreshold},
	} {
		if field.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(field.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", field.name, err)
		}
		*field.dst = v
	}
	if f.Kafka.OrdersTopic != "" {
		cfg.KafkaTopicOrders = f.Kafka.OrdersTopic
	}
	if f.Kafka.UsersTopic != "" {
		cfg.KafkaTopicUsers = f.Kafka.UsersTopic
	}
	return nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

// envDecimal is strict: a malformed money value is a startup error, not a silent default.
func envDecimal(name string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

func envLogLevel(name string, fallback slog.Level) slog.Level {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return fallback
	}
	return level
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
