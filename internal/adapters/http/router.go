package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopfront/storefront/internal/application"
)

// KeySource publishes the token verification keys served at /api/auth/jwks.
type KeySource interface {
	PublicJWKs() ([]map[string]any, error)
}

// Handler binds the storefront HTTP surface to the application service.
type Handler struct {
	service *application.Service
	ready   func(context.Context) error
	keys    KeySource
}

// HandlerOptions carries optional collaborators. A nil Ready reports always ready.
type HandlerOptions struct {
	Ready func(context.Context) error
	Keys  KeySource
}

func NewHandler(service *application.Service, opts HandlerOptions) *Handler {
	return &Handler{service: service, ready: opts.Ready, keys: opts.Keys}
}

// RouterConfig holds the edge policies applied in front of the handlers.
type RouterConfig struct {
	AllowedOrigins []string
	AuthRateRPS    float64
	AuthRateBurst  int
	// TrustProxyHeaders takes the client address from True-Client-IP, X-Real-IP or
	// X-Forwarded-For. Enable it only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// NewRouter mounts the storefront routes under /api with the shared middleware stack.
func NewRouter(handler *Handler, cfg RouterConfig) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "route not found: "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.Get("/", handler.root)
	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	r.Get("/api/placeholder/{width}/{height}", handler.placeholder)

	limiter := newIPRateLimiter(cfg.AuthRateRPS, cfg.AuthRateBurst)
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(limiter.middleware)
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Get("/jwks", handler.jwks)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Get("/me", handler.me)
			r.Put("/me", handler.updateMe)
			r.Post("/refresh", handler.refresh)
			r.Post("/logout", handler.logout)
		})
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", handler.listProducts)
		r.Get("/top", handler.topProducts)
		r.Get("/{productID}", handler.getProduct)
		r.Get("/{productID}/card", handler.productCard)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Post("/", handler.createProduct)
			r.Put("/{productID}", handler.updateProduct)
			r.Delete("/{productID}", handler.deleteProduct)
			r.Post("/{productID}/reviews", handler.addReview)
			r.Post("/{productID}/cart", handler.addProductToCart)
		})
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(handler.authMiddleware)
		r.Get("/", handler.getCart)
		r.Delete("/", handler.clearCart)
		r.Post("/items", handler.addCartItem)
		r.Put("/items/{productID}", handler.setCartQuantity)
		r.Delete("/items/{productID}", handler.removeCartItem)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(handler.authMiddleware)
		r.Post("/", handler.placeOrder)
		r.Get("/", handler.listOrders)
		r.Get("/mine", handler.myOrders)
		r.Get("/{orderID}", handler.getOrder)
		r.Put("/{orderID}/pay", handler.payOrder)
		r.Put("/{orderID}/deliver", handler.deliverOrder)
		r.Post("/{orderID}/cancel", handler.cancelOrder)
	})

	return r
}
