package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	cacheadapter "github.com/shopfront/storefront/internal/adapters/cache"
	eventadapter "github.com/shopfront/storefront/internal/adapters/events"
	grpcadapter "github.com/shopfront/storefront/internal/adapters/grpc"
	httpadapter "github.com/shopfront/storefront/internal/adapters/http"
	"github.com/shopfront/storefront/internal/adapters/idgen"
	"github.com/shopfront/storefront/internal/adapters/postgres"
	"github.com/shopfront/storefront/internal/adapters/security"
	"github.com/shopfront/storefront/internal/application"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
)

type publisher interface {
	ports.EventPublisher
	Close() error
}

// Runtime owns the shared infrastructure both binaries run on.
type Runtime struct {
	cfg         Config
	logger      *slog.Logger
	db          *gorm.DB
	redis       *redis.Client
	repos       postgres.Repositories
	tokenSigner *security.JWTSigner
	service     *application.Service
	closeLog    func() error
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, closeLog := newLogger(cfg)
	slog.SetDefault(logger)
	decimal.MarshalJSONWithoutQuotes = true
	logger.Info("bootstrapping storefront", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		_ = closeLog()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		_ = closeLog()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	closeAll := func() {
		_ = redisClient.Close()
		_ = sqlDB.Close()
		_ = closeLog()
	}

	tokenSigner, err := newTokenSigner(cfg, logger)
	if err != nil {
		closeAll()
		return nil, err
	}

	orderNumbers, err := idgen.NewSnowflakeOrderNumbers(cfg.SnowflakeNode)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("init order numbers: %w", err)
	}

	repos := postgres.NewRepositories(db)
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			AdminEmails:          cfg.AdminEmails,
			TokenTTL:             cfg.TokenTTL,
			SessionTTL:           cfg.SessionTTL,
			FailedLoginThreshold: cfg.FailedThreshold,
			LockoutDuration:      cfg.LockoutDuration,
			Pricing: domain.Pricing{
				TaxRate:               cfg.TaxRate,
				ShippingFee:           cfg.ShippingFee,
				FreeShippingThreshold: cfg.FreeShippingThreshold,
			},
			OrderUnpaidTTL: cfg.OrderUnpaidTTL,
		},
		Users:        repos.Users,
		Sessions:     repos.Sessions,
		Products:     repos.Products,
		Reviews:      repos.Reviews,
		Orders:       repos.Orders,
		Idempotency:  repos.Idempotency,
		Lockouts:     cacheadapter.NewRedisLockoutStore(redisClient),
		Revocations:  cacheadapter.NewRedisSessionRevocationStore(redisClient),
		Carts:        cacheadapter.NewRedisCartStore(redisClient, cfg.CartTTL),
		Hasher:       security.NewBcryptHasher(cfg.BcryptCost),
		TokenSigner:  tokenSigner,
		OrderNumbers: orderNumbers,
	})

	return &Runtime{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		redis:       redisClient,
		repos:       repos,
		tokenSigner: tokenSigner,
		service:     svc,
		closeLog:    closeLog,
	}, nil
}

// newTokenSigner loads the configured keypair. Ephemeral keys are only minted when no key
// material is configured at all; a configured but unreadable key is a startup error.
func newTokenSigner(cfg Config, logger *slog.Logger) (*security.JWTSigner, error) {
	if cfg.JWTPrivateKeyPEM == "" && cfg.JWTPublicKeyPEM == "" {
		if !cfg.AllowEphemeralJWT {
			return nil, errors.New("init jwt signer: no key material configured")
		}
		logger.Warn("using ephemeral JWT keys for local/dev runtime")
		signer, err := security.NewEphemeralJWTSigner(cfg.JWTKeyID)
		if err != nil {
			return nil, fmt.Errorf("init ephemeral jwt signer: %w", err)
		}
		return signer, nil
	}
	signer, err := security.NewJWTSigner(cfg.JWTKeyID, cfg.JWTPrivateKeyPEM, cfg.JWTPublicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("init jwt signer: %w", err)
	}
	return signer, nil
}

// newLogger writes JSON records to stdout and, when LOG_FILE is set, to a rotating file.
func newLogger(cfg Config) (*slog.Logger, func() error) {
	var out io.Writer = os.Stdout
	closeFn := func() error { return nil }
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
		}
		out = io.MultiWriter(os.Stdout, file)
		closeFn = file.Close
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: cfg.LogLevel})
	return slog.New(handler).With("service", cfg.ServiceID), closeFn
}

func (r *Runtime) ready(ctx context.Context) error {
	if err := postgres.Ping(ctx, r.db); err != nil {
		return err
	}
	return r.redis.Ping(ctx).Err()
}

func (r *Runtime) close() {
	_ = r.redis.Close()
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = r.closeLog()
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer r.close()

	handler := httpadapter.NewHandler(r.service, httpadapter.HandlerOptions{
		Ready: r.ready,
		Keys:  r.tokenSigner,
	})
	router := httpadapter.NewRouter(handler, httpadapter.RouterConfig{
		AllowedOrigins:    r.cfg.AllowedOrigins,
		AuthRateRPS:       r.cfg.AuthRateRPS,
		AuthRateBurst:     r.cfg.AuthRateBurst,
		TrustProxyHeaders: r.cfg.TrustProxyHeaders,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", r.cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewAuthInternalServer(grpcadapter.AuthInternalServiceDeps{
		Auth: r.service,
		Keys: r.tokenSigner,
	}))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen gRPC: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		r.logger.Error("server failure", "error", runErr)
	}

	healthSrv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	return runErr
}

// RunWorker drives the outbox relay and the unpaid-order expiry job until shutdown.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer r.close()

	pub, err := r.newPublisher()
	if err != nil {
		return err
	}
	defer func() { _ = pub.Close() }()

	outbox := eventadapter.NewOutboxWorker(r.logger, r.repos.Outbox, pub, eventadapter.OutboxWorkerConfig{
		Interval:   r.cfg.OutboxPollInterval,
		BatchSize:  r.cfg.OutboxBatchSize,
		ClaimTTL:   r.cfg.OutboxClaimTTL,
		MaxRetries: r.cfg.OutboxMaxRetries,
	})
	expiry := eventadapter.NewOrderExpiryJob(r.logger, r.service, r.cfg.OrderExpirySchedule, r.cfg.OutboxBatchSize)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.logger.Info("worker started", "worker", name)
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", name, err)
				}
				mu.Unlock()
				cancel()
			}
		}()
	}
	run("outbox", outbox.Run)
	run("order_expiry", expiry.Run)
	wg.Wait()
	return firstErr
}

func (r *Runtime) newPublisher() (publisher, error) {
	if len(r.cfg.KafkaBrokers) == 0 {
		r.logger.Warn("no kafka brokers configured, events are logged only")
		return eventadapter.NewLoggingPublisher(r.logger), nil
	}
	pub, err := eventadapter.NewKafkaPublisher(r.cfg.KafkaBrokers, eventadapter.KafkaTopics{
		Orders: r.cfg.KafkaTopicOrders,
		Users:  r.cfg.KafkaTopicUsers,
	})
	if err != nil {
		return nil, fmt.Errorf("init kafka publisher: %w", err)
	}
	return pub, nil
}
