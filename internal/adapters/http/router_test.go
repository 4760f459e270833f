package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopfront/storefront/internal/application"
	"github.com/shopfront/storefront/internal/application/apptest"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/productcard"
	"github.com/shopspring/decimal"
)

type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t       *testing.T
	fixture *apptest.Fixture
	handler http.Handler
}

func newTestServer(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()
	f := apptest.NewFixture()
	return &testServer{
		t:       t,
		fixture: f,
		handler: NewRouter(NewHandler(f.Service, HandlerOptions{}), cfg),
	}
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func (s *testServer) register(name, email string) application.AuthResponse {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "shopper42",
	})
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("register %s: expected 201, got %d %s", email, rec.Code, rec.Body.String())
	}
	var res application.AuthResponse
	decodeData(s.t, env, &res)
	return res
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v (%s)", err, string(env.Data))
	}
}

func TestRootReportsAPIRunning(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, RouterConfig{})
	rec, _ := s.do(http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "API is running..." {
		t.Fatalf("unexpected body %q", got)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestMountedPrefixesRouteToTheirGroups(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, RouterConfig{})
	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/products", http.StatusOK},
		{http.MethodGet, "/api/products/top", http.StatusOK},
		{http.MethodGet, "/api/auth/me", http.StatusUnauthorized},
		{http.MethodGet, "/api/orders/mine", http.StatusUnauthorized},
		{http.MethodGet, "/api/cart", http.StatusUnauthorized},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
	}
	for _, tc := range cases {
		rec, _ := s.do(tc.method, tc.path, "", nil)
		if rec.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, rec.Code)
		}
	}
}

func TestPlaceholderSVG(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, RouterConfig{})
	rec, _ := s.do(http.MethodGet, "/api/placeholder/300/300", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), `width="300" height="300"`) {
		t.Fatalf("unexpected svg %s", rec.Body.String())
	}

	for _, path := range []string{"/api/placeholder/0/10", "/api/placeholder/10/5000", "/api/placeholder/abc/10"} {
		rec, env := s.do(http.MethodGet, path, "", nil)
		if rec.Code != http.StatusBadRequest || env.Code != "VALIDATION_ERROR" {
			t.Fatalf("%s: expected 400 VALIDATION_ERROR, got %d %s", path, rec.Code, env.Code)
		}
	}
}

func TestAuthFlowOverHTTP(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, RouterConfig{})
	reg := s.register("Ada Shopper", "ada@example.com")
	if reg.Token == "" || reg.User.Email != "ada@example.com" {
		t.Fatalf("unexpected register response %+v", reg)
	}

	rec, env := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "ADA@example.com",
		"password": "shopper42",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var login application.AuthResponse
	decodeData(t, env, &login)

	rec, env = s.do(http.MethodGet, "/api/auth/me", login.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	var me application.UserView
	decodeData(t, env, &me)
	if me.Name != "Ada Shopper" {
		t.Fatalf("unexpected profile %+v", me)
	}

	rec, _ = s.do(http.MethodPut, "/api/auth/me", login.Token, map[string]string{"name": "Ada L."})
	if rec.Code != http.StatusOK {
		t.Fatalf("update me: expected 200, got %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = s.do(http.MethodPost, "/api/auth/logout", login.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	rec, env = s.do(http.MethodGet, "/api/auth/me", login.Token, nil)
	if rec.Code != http.StatusUnauthorized || env.Code != "SESSION_REVOKED" {
		t.Fatalf("expected 401 SESSION_REVOKED after logout, got %d %s", rec.Code, env.Code)
	}

	rec, env = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "wrong-pass1",
	})
	if rec.Code != http.StatusUnauthorized || env.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("expected 401 INVALID_CREDENTIALS, got %d %s", rec.Code, env.Code)
	}
}

func TestRegisterRejectsUnknownFieldsAndDuplicates(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, RouterConfig{})
	rec, env := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "shopper42",
		"isAdmin":  "true",
	})
	if rec.Code != http.StatusBadRequest || env.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected 400 for unknown field, got %d %s", rec.Code, env.Code)
	}

	s.register("Ada", "ada@example.com")
	rec, env = s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Ada Again",
		"email":    "ada@example.com",
		"password": "shopper42",
	})
	if rec.Code != http.StatusConflict || env.Code != "CONFLICT" {
		t.Fatalf("expected 409 CONFLICT, got %d %s", rec.Code, env.Code)
	}
}

func TestProductCardAndAddToCartOverHTTP(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, RouterConfig{})
	mouse := s.fixture.SeedProduct("Gaming Mouse", "49.99", 2)
	soldOut := s.fixture.SeedProduct("Echo Dot", "29.99", 0)
	buyer := s.register("Ada", "ada@example.com")

	rec, env := s.do(http.MethodGet, "/api/products/"+mouse.ProductID.String()+"/card?view=list", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("card: expected 200, got %d", rec.Code)
	}
	var card productcard.Card
	decodeData(t, env, &card)
	if card.ViewMode != productcard.ViewList || card.PriceLabel != "$49.99" || card.StockLabel != "In Stock" {
		t.Fatalf("unexpected card %+v", card)
	}
	if card.Image != "/api/placeholder/150/150" {
		t.Fatalf("expected list placeholder image, got %q", card.Image)
	}

	rec, _ = s.do(http.MethodPost, "/api/products/"+mouse.ProductID.String()+"/cart", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	for i := 1; i <= 2; i++ {
		rec, env = s.do(http.MethodPost, "/api/products/"+mouse.ProductID.String()+"/cart", buyer.Token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("add to cart #%d: expected 200, got %d %s", i, rec.Code, rec.Body.String())
		}
		var cart application.CartView
		decodeData(t, env, &cart)
		if cart.ItemCount != i {
			t.Fatalf("expected %d items after press %d, got %d", i, i, cart.ItemCount)
		}
	}
	rec, env = s.do(http.MethodPost, "/api/products/"+mouse.ProductID.String()+"/cart", buyer.Token, nil)
	if rec.Code != http.StatusConflict || env.Code != "INSUFFICIENT_STOCK" {
		t.Fatalf("expected 409 INSUFFICIENT_STOCK past stock, got %d %s", rec.Code, env.Code)
	}
	rec, env = s.do(http.MethodPost, "/api/products/"+soldOut.ProductID.String()+"/cart", buyer.Token, nil)
	if rec.Code != http.StatusConflict || env.Code != "INSUFFICIENT_STOCK" {
		t.Fatalf("expected 409 for sold out product, got %d %s", rec.Code, env.Code)
	}

	rec, env = s.do(http.MethodGet, "/api/products/not-a-uuid", "", nil)
	if rec.Code != http.StatusBadRequest || env.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected 400 for bad id, got %d %s", rec.Code, env.Code)
	}
}

func TestProductAdminRoutes(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, RouterConfig{})
	buyer := s.register("Ada", "ada@example.com")
	admin := s.register("Admin", "admin@example.com")
	body := map[string]any{
		"name":           "Desk Lamp",
		"price":          "19.99",
		"count_in_stock": 4,
		"category":       "Home",
	}

	rec, env := s.do(http.MethodPost, "/api/products", buyer.Token, body)
	if rec.Code != http.StatusForbidden || env.Code != "FORBIDDEN" {
		t.Fatalf("expected 403 for non-admin, got %d %s", rec.Code, env.Code)
	}
	rec, env = s.do(http.MethodPost, "/api/products", admin.Token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var created application.ProductView
	decodeData(t, env, &created)

	rec, _ = s.do(http.MethodPut, "/api/products/"+created.ProductID.String(), admin.Token, map[string]any{"count_in_stock": 9})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d %s", rec.Code, rec.Body.String())
	}

	rec, env = s.do(http.MethodPost, "/api/products/"+created.ProductID.String()+"/reviews", buyer.Token, map[string]any{"rating": 4, "comment": "bright"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("review: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var reviewed application.ProductView
	decodeData(t, env, &reviewed)
	if reviewed.NumReviews != 1 || reviewed.Rating != 4 {
		t.Fatalf("unexpected rating after review %+v", reviewed)
	}

	rec, env = s.do(http.MethodGet, "/api/products?category=home&sort=price&order=asc", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var page application.ProductPage
	decodeData(t, env, &page)
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].CountInStock != 9 {
		t.Fatalf("unexpected page %+v", page)
	}

	rec, env = s.do(http.MethodGet, "/api/products?sort=password_hash", "", nil)
	if rec.Code != http.StatusBadRequest || env.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected 400 for unsupported sort, got %d %s", rec.Code, env.Code)
	}

	rec, _ = s.do(http.MethodDelete, "/api/products/"+created.ProductID.String(), admin.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	rec, _ = s.do(http.MethodGet, "/api/products/"+created.ProductID.String(), "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, RouterConfig{})
	lamp := s.fixture.SeedProduct("Desk Lamp", "19.99", 5)
	buyer := s.register("Ada", "ada@example.com")
	other := s.register("Eve", "eve@example.com")
	admin := s.register("Admin", "admin@example.com")

	rec, env := s.do(http.MethodPost, "/api/orders", buyer.Token, map[string]any{
		"items": []map[string]any{{"product_id": lamp.ProductID, "quantity": 2}},
		"shipping_address": map[string]string{
			"address":     "1 Market St",
			"city":        "Springfield",
			"postal_code": "12345",
			"country":     "US",
		},
		"payment_method": "PayPal",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("place order: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var order application.OrderView
	decodeData(t, env, &order)
	if !order.TotalPrice.Equal(decimal.RequireFromString("55.98")) || order.Status != domain.OrderStatusPending {
		t.Fatalf("unexpected order %+v", order)
	}
	orderPath := "/api/orders/" + order.OrderID.String()

	rec, env = s.do(http.MethodGet, orderPath, other.Token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another user, got %d %s", rec.Code, env.Code)
	}
	rec, _ = s.do(http.MethodGet, orderPath, admin.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected admin to read order, got %d", rec.Code)
	}

	rec, env = s.do(http.MethodPut, orderPath+"/deliver", buyer.Token, nil)
	if rec.Code != http.StatusForbidden || env.Code != "FORBIDDEN" {
		t.Fatalf("expected 403 deliver by buyer, got %d %s", rec.Code, env.Code)
	}
	rec, env = s.do(http.MethodPut, orderPath+"/deliver", admin.Token, nil)
	if rec.Code != http.StatusConflict || env.Code != "INVALID_STATUS_TRANSITION" {
		t.Fatalf("expected 409 deliver before pay, got %d %s", rec.Code, env.Code)
	}

	rec, _ = s.do(http.MethodPut, orderPath+"/pay", buyer.Token, map[string]string{
		"payment_id": "PAY-1",
		"status":     "COMPLETED",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("pay: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	rec, env = s.do(http.MethodPut, orderPath+"/deliver", admin.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deliver: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	decodeData(t, env, &order)
	if order.Status != domain.OrderStatusDelivered || order.DeliveredAt == nil {
		t.Fatalf("unexpected delivered order %+v", order)
	}

	rec, _ = s.do(http.MethodPost, orderPath+"/cancel", buyer.Token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 cancelling delivered order, got %d", rec.Code)
	}

	rec, env = s.do(http.MethodGet, "/api/orders/mine", buyer.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mine: expected 200, got %d", rec.Code)
	}
	var mine application.OrderPage
	decodeData(t, env, &mine)
	if mine.Total != 1 {
		t.Fatalf("expected one order, got %+v", mine)
	}

	rec, _ = s.do(http.MethodGet, "/api/orders", buyer.Token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 listing all orders as buyer, got %d", rec.Code)
	}
	rec, env = s.do(http.MethodGet, "/api/orders?status=DELIVERED", admin.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list: expected 200, got %d", rec.Code)
	}
	var all application.OrderPage
	decodeData(t, env, &all)
	if all.Total != 1 {
		t.Fatalf("expected one delivered order, got %+v", all)
	}
}

func TestCartRoutes(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, RouterConfig{})
	lamp := s.fixture.SeedProduct("Desk Lamp", "19.99", 5)
	buyer := s.register("Ada", "ada@example.com")

	rec, env := s.do(http.MethodPost, "/api/cart/items", buyer.Token, map[string]any{"product_id": lamp.ProductID, "quantity": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("add item: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var cart application.CartView
	decodeData(t, env, &cart)
	if cart.ItemCount != 3 || cart.Subtotal.StringFixed(2) != "59.97" {
		t.Fatalf("unexpected cart %+v", cart)
	}

	itemPath := "/api/cart/items/" + lamp.ProductID.String()
	rec, env = s.do(http.MethodPut, itemPath, buyer.Token, map[string]int{"quantity": 9})
	if rec.Code != http.StatusConflict || env.Code != "INSUFFICIENT_STOCK" {
		t.Fatalf("expected 409 above stock, got %d %s", rec.Code, env.Code)
	}
	rec, env = s.do(http.MethodPut, itemPath, buyer.Token, map[string]int{"quantity": 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("set 0: expected 200, got %d", rec.Code)
	}
	decodeData(t, env, &cart)
	if len(cart.Lines) != 0 {
		t.Fatalf("expected quantity 0 to remove the line, got %+v", cart.Lines)
	}

	rec, _ = s.do(http.MethodDelete, "/api/cart", buyer.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear: expected 200, got %d", rec.Code)
	}
}

func TestAuthRateLimit(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, RouterConfig{AuthRateRPS: 0.001, AuthRateBurst: 2})
	body := map[string]string{"email": "nobody@example.com", "password": "shopper42"}
	for i := 0; i < 2; i++ {
		rec, _ := s.do(http.MethodPost, "/api/auth/login", "", body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}
	rec, env := s.do(http.MethodPost, "/api/auth/login", "", body)
	if rec.Code != http.StatusTooManyRequests || env.Code != "RATE_LIMITED" {
		t.Fatalf("expected 429 RATE_LIMITED, got %d %s", rec.Code, env.Code)
	}
	rec, _ = s.do(http.MethodGet, "/api/products", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("rate limit must only cover /api/auth, got %d", rec.Code)
	}
}

func loginFrom(s *testServer, remoteAddr, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"nobody@example.com","password":"shopper42"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestAuthRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, RouterConfig{AuthRateRPS: 0.001, AuthRateBurst: 2})
	limited := 0
	for i := 0; i < 20; i++ {
		if loginFrom(s, "198.51.100.7:40000", fmt.Sprintf("10.0.0.%d", i)) == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 18 {
		t.Fatalf("expected 18 of 20 requests limited, got %d", limited)
	}
	if code := loginFrom(s, "198.51.100.8:40000", ""); code != http.StatusUnauthorized {
		t.Fatalf("a different peer keeps its own bucket, got %d", code)
	}
}

func TestAuthRateLimitHonoursProxyHeadersWhenTrusted(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, RouterConfig{AuthRateRPS: 0.001, AuthRateBurst: 2, TrustProxyHeaders: true})
	for i := 0; i < 5; i++ {
		if code := loginFrom(s, "10.1.1.1:8080", fmt.Sprintf("203.0.113.%d", i)); code != http.StatusUnauthorized {
			t.Fatalf("client %d behind the proxy: expected 401, got %d", i, code)
		}
	}
	for i := 0; i < 2; i++ {
		loginFrom(s, "10.1.1.1:8080", "203.0.113.200")
	}
	if code := loginFrom(s, "10.1.1.1:8080", "203.0.113.200"); code != http.StatusTooManyRequests {
		t.Fatalf("expected the forwarded client to be limited, got %d", code)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, RouterConfig{AllowedOrigins: []string{"http://localhost:3000"}})
	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}

func TestReadyzReportsDependencyFailure(t *testing.T) {
	t.Parallel()
	f := apptest.NewFixture()
	handler := NewRouter(NewHandler(f.Service, HandlerOptions{
		Ready: func(context.Context) error { return errors.New("postgres: connection refused") },
	}), RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Code != "NOT_READY" {
		t.Fatalf("expected NOT_READY, got %s", env.Code)
	}
}

func TestMapDomainError(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: bad", domain.ErrInvalidInput), http.StatusBadRequest, "VALIDATION_ERROR"},
		{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("%w: lamp", domain.ErrInsufficientStock), http.StatusConflict, "INSUFFICIENT_STOCK"},
		{domain.ErrInvalidTransition, http.StatusConflict, "INVALID_STATUS_TRANSITION"},
		{domain.ErrIdempotencyConflict, http.StatusConflict, "IDEMPOTENCY_CONFLICT"},
		{domain.ErrAccountLocked, http.StatusTooManyRequests, "ACCOUNT_LOCKED"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		status, code, _ := mapDomainError(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("%v: expected %d %s, got %d %s", tc.err, tc.status, tc.code, status, code)
		}
	}
}
