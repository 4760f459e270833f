// Package apptest provides in-memory implementations of the application ports and a
// ready-wired Service for tests of the application and its adapters.
package apptest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/application"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
	"github.com/shopspring/decimal"
)

type Fixture struct {
	Service     *application.Service
	Users       *Users
	Sessions    *Sessions
	Products    *Catalog
	Orders      *Orders
	Outbox      *Outbox
	Idempotency *Idempotency
	Lockouts    *Lockouts
	Revocations *Revocations
	Carts       *Carts
	Signer      *Signer
	Clock       *Clock
}

func DefaultConfig() application.Config {
	return application.Config{
		AdminEmails:          []string{"admin@example.com"},
		TokenTTL:             time.Hour,
		SessionTTL:           30 * 24 * time.Hour,
		FailedLoginThreshold: 3,
		LockoutDuration:      15 * time.Minute,
		Pricing: domain.Pricing{
			TaxRate:               decimal.RequireFromString("0.15"),
			ShippingFee:           decimal.RequireFromString("10.00"),
			FreeShippingThreshold: decimal.RequireFromString("100.00"),
		},
		OrderUnpaidTTL: 48 * time.Hour,
	}
}

func NewFixture() *Fixture {
	return NewFixtureWithConfig(DefaultConfig())
}

func NewFixtureWithConfig(cfg application.Config) *Fixture {
	clock := &Clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	outbox := &Outbox{}
	catalog := &Catalog{byID: map[uuid.UUID]domain.Product{}, reviews: map[uuid.UUID][]domain.Review{}}
	f := &Fixture{
		Users:       &Users{byEmail: map[string]domain.User{}, byID: map[uuid.UUID]domain.User{}, outbox: outbox},
		Sessions:    &Sessions{byID: map[uuid.UUID]domain.Session{}},
		Products:    catalog,
		Orders:      &Orders{byID: map[uuid.UUID]domain.Order{}, catalog: catalog, outbox: outbox},
		Outbox:      outbox,
		Idempotency: &Idempotency{records: map[string]ports.IdempotencyRecord{}},
		Lockouts:    &Lockouts{state: map[string]ports.LockoutState{}},
		Revocations: &Revocations{revoked: map[uuid.UUID]bool{}},
		Carts:       &Carts{lines: map[uuid.UUID]map[uuid.UUID]domain.CartLine{}},
		Signer:      &Signer{tokens: map[string]ports.AuthClaims{}},
		Clock:       clock,
	}
	f.Service = application.NewService(application.Dependencies{
		Config:       cfg,
		Users:        f.Users,
		Sessions:     f.Sessions,
		Products:     catalog,
		Reviews:      catalog,
		Orders:       f.Orders,
		Idempotency:  f.Idempotency,
		Lockouts:     f.Lockouts,
		Revocations:  f.Revocations,
		Carts:        f.Carts,
		Hasher:       Hasher{},
		TokenSigner:  f.Signer,
		OrderNumbers: &OrderNumbers{},
		Now:          clock.Now,
	})
	return f
}

// SeedProduct stores a product and returns it.
func (f *Fixture) SeedProduct(name, price string, stock int) domain.Product {
	now := f.Clock.Now()
	p := domain.Product{
		ProductID:    uuid.New(),
		Name:         name,
		Description:  name + " description",
		Category:     "general",
		Price:        decimal.RequireFromString(price),
		CountInStock: stock,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, _ := f.Products.Create(context.Background(), p)
	return created
}

// Clock is a settable test clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type Users struct {
	mu      sync.Mutex
	byEmail map[string]domain.User
	byID    map[uuid.UUID]domain.User
	outbox  *Outbox
}

func (f *Users) CreateWithOutboxTx(ctx context.Context, params ports.CreateUserTxParams, outboxEvent ports.OutboxEvent) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[params.Email]; ok {
		return domain.User{}, fmt.Errorf("%w: email already registered", domain.ErrConflict)
	}
	u := domain.User{
		UserID:       uuid.New(),
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		IsActive:     true,
		CreatedAt:    params.RegisteredAtUTC,
		UpdatedAt:    params.RegisteredAtUTC,
	}
	f.byEmail[u.Email] = u
	f.byID[u.UserID] = u
	_ = f.outbox.Enqueue(ctx, outboxEvent)
	return u, nil
}

func (f *Users) GetByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *Users) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *Users) UpdateProfile(_ context.Context, userID uuid.UUID, name, passwordHash string, updatedAt time.Time) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	if name != "" {
		u.Name = name
	}
	if passwordHash != "" {
		u.PasswordHash = passwordHash
	}
	u.UpdatedAt = updatedAt
	f.byID[userID] = u
	f.byEmail[u.Email] = u
	return u, nil
}

type Sessions struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.Session
}

func (f *Sessions) Create(_ context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := domain.Session{
		SessionID:      uuid.New(),
		UserID:         params.UserID,
		IPAddress:      params.IPAddress,
		UserAgent:      params.UserAgent,
		CreatedAt:      params.LastActivityAt,
		LastActivityAt: params.LastActivityAt,
		ExpiresAt:      params.ExpiresAt,
	}
	f.byID[s.SessionID] = s
	return s, nil
}

func (f *Sessions) GetByID(_ context.Context, sessionID uuid.UUID) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *Sessions) TouchActivity(_ context.Context, sessionID uuid.UUID, touchedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byID[sessionID]; ok && s.LastActivityAt.Before(touchedAt) {
		s.LastActivityAt = touchedAt
		f.byID[sessionID] = s
	}
	return nil
}

func (f *Sessions) RevokeByID(_ context.Context, sessionID uuid.UUID, revokedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	if s.RevokedAt == nil {
		s.RevokedAt = &revokedAt
		f.byID[sessionID] = s
	}
	return nil
}

// Catalog implements both the product and the review repository.
type Catalog struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]domain.Product
	reviews map[uuid.UUID][]domain.Review
}

func (f *Catalog) Create(_ context.Context, product domain.Product) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if product.ProductID == uuid.Nil {
		product.ProductID = uuid.New()
	}
	f.byID[product.ProductID] = product
	return product, nil
}

func (f *Catalog) Update(_ context.Context, product domain.Product) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[product.ProductID]; !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	f.byID[product.ProductID] = product
	return product, nil
}

func (f *Catalog) Delete(_ context.Context, productID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[productID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, productID)
	delete(f.reviews, productID)
	return nil
}

func (f *Catalog) GetByID(_ context.Context, productID uuid.UUID) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[productID]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *Catalog) List(_ context.Context, q ports.ProductQuery) ([]domain.Product, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []domain.Product
	for _, p := range f.byID {
		if q.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Search)) {
			continue
		}
		if q.Category != "" && !strings.EqualFold(p.Category, q.Category) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		less := productLess(matched[i], matched[j], q.SortBy)
		if q.Desc {
			return productLess(matched[j], matched[i], q.SortBy)
		}
		return less
	})
	total := int64(len(matched))
	if q.Offset >= len(matched) {
		return []domain.Product{}, total, nil
	}
	end := q.Offset + q.Limit
	if q.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[q.Offset:end], total, nil
}

func productLess(a, b domain.Product, column string) bool {
	switch column {
	case "name":
		return a.Name < b.Name
	case "price":
		return a.Price.LessThan(b.Price)
	case "rating":
		return a.Rating < b.Rating
	default:
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.Name < b.Name
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

func (f *Catalog) Top(ctx context.Context, limit int) ([]domain.Product, error) {
	items, _, err := f.List(ctx, ports.ProductQuery{SortBy: "rating", Desc: true, Limit: limit})
	return items, err
}

func (f *Catalog) AddAndRecalculate(_ context.Context, review domain.Review) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[review.ProductID]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	for _, existing := range f.reviews[review.ProductID] {
		if existing.UserID == review.UserID {
			return domain.Product{}, fmt.Errorf("%w: product already reviewed", domain.ErrConflict)
		}
	}
	f.reviews[review.ProductID] = append(f.reviews[review.ProductID], review)
	p.NumReviews = len(f.reviews[review.ProductID])
	p.Rating = domain.AverageRating(f.reviews[review.ProductID])
	f.byID[p.ProductID] = p
	return p, nil
}

func (f *Catalog) ListByProduct(_ context.Context, productID uuid.UUID) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Review(nil), f.reviews[productID]...), nil
}

// Orders mirrors the transactional repository: builders and mutators see a consistent
// snapshot and nothing is written when they fail.
type Orders struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]domain.Order
	catalog *Catalog
	outbox  *Outbox
}

func (f *Orders) PlaceTx(ctx context.Context, productIDs []uuid.UUID, build ports.OrderBuilder) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalog.mu.Lock()
	defer f.catalog.mu.Unlock()

	locked := make(map[uuid.UUID]domain.Product, len(productIDs))
	for _, id := range productIDs {
		if p, ok := f.catalog.byID[id]; ok {
			locked[id] = p
		}
	}
	order, event, err := build(locked)
	if err != nil {
		return domain.Order{}, err
	}
	for _, line := range order.Lines {
		p := locked[line.ProductID]
		if p.CountInStock < line.Quantity {
			return domain.Order{}, domain.ErrInsufficientStock
		}
	}
	for _, line := range order.Lines {
		p := f.catalog.byID[line.ProductID]
		p.CountInStock -= line.Quantity
		f.catalog.byID[line.ProductID] = p
	}
	f.byID[order.OrderID] = order
	_ = f.outbox.Enqueue(ctx, event)
	return order, nil
}

func (f *Orders) MutateTx(ctx context.Context, orderID uuid.UUID, mutate ports.OrderMutator) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.byID[orderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	working := current
	working.Lines = append([]domain.OrderLine(nil), current.Lines...)
	restore, event, err := mutate(&working)
	if err != nil {
		return domain.Order{}, err
	}
	if restore {
		f.catalog.mu.Lock()
		for _, line := range working.Lines {
			if p, ok := f.catalog.byID[line.ProductID]; ok {
				p.CountInStock += line.Quantity
				f.catalog.byID[line.ProductID] = p
			}
		}
		f.catalog.mu.Unlock()
	}
	f.byID[orderID] = working
	if event.EventType != "" {
		_ = f.outbox.Enqueue(ctx, event)
	}
	return working, nil
}

func (f *Orders) GetByID(_ context.Context, orderID uuid.UUID) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[orderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (f *Orders) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]domain.Order, int64, error) {
	return f.filter(func(o domain.Order) bool { return o.UserID == userID }, limit, offset)
}

func (f *Orders) List(_ context.Context, status *domain.OrderStatus, limit, offset int) ([]domain.Order, int64, error) {
	return f.filter(func(o domain.Order) bool { return status == nil || o.Status == *status }, limit, offset)
}

func (f *Orders) ListPendingBefore(_ context.Context, before time.Time, limit int) ([]domain.Order, error) {
	items, _, err := f.filter(func(o domain.Order) bool {
		return o.Status == domain.OrderStatusPending && o.CreatedAt.Before(before)
	}, limit, 0)
	return items, err
}

func (f *Orders) filter(keep func(domain.Order) bool, limit, offset int) ([]domain.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.byID {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber > out[j].OrderNumber })
	total := int64(len(out))
	if offset >= len(out) {
		return []domain.Order{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

type Outbox struct {
	mu     sync.Mutex
	events []ports.OutboxEvent
}

// Enqueue records an event written alongside a repository transaction.
func (f *Outbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *Outbox) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (f *Outbox) MarkPublished(context.Context, uuid.UUID, string, time.Time) error { return nil }

func (f *Outbox) MarkFailed(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

func (f *Outbox) MarkDeadLettered(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

// EventTypes returns the enqueued event types in order.
func (f *Outbox) EventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

type Idempotency struct {
	mu      sync.Mutex
	records map[string]ports.IdempotencyRecord
}

func (f *Idempotency) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.records[key]
	if !ok {
		return nil, nil
	}
	cp := v
	return &cp, nil
}

func (f *Idempotency) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[key]; ok {
		return domain.ErrConflict
	}
	f.records[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      "PENDING",
		ExpiresAt:   expiresAt,
	}
	return nil
}

func (f *Idempotency) Complete(_ context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.records[key]
	v.Status = "COMPLETED"
	v.ResponseCode = responseCode
	v.ResponseBody = responseBody
	v.UpdatedAt = at
	f.records[key] = v
	return nil
}

type Lockouts struct {
	mu    sync.Mutex
	state map[string]ports.LockoutState
}

func (f *Lockouts) Get(_ context.Context, key string) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[key], nil
}

func (f *Lockouts) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.state[key]
	st.FailedCount++
	if st.FailedCount >= threshold {
		lockUntil := now.Add(lockoutWindow)
		st.LockedUntil = &lockUntil
	}
	f.state[key] = st
	return st, nil
}

func (f *Lockouts) Clear(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.state, key)
	return nil
}

type Revocations struct {
	mu      sync.Mutex
	revoked map[uuid.UUID]bool
}

func (f *Revocations) MarkRevoked(_ context.Context, sessionID uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[sessionID] = true
	return nil
}

func (f *Revocations) IsRevoked(_ context.Context, sessionID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[sessionID], nil
}

type Carts struct {
	mu    sync.Mutex
	lines map[uuid.UUID]map[uuid.UUID]domain.CartLine
}

func (f *Carts) Get(_ context.Context, userID uuid.UUID) (domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cart := domain.Cart{UserID: userID}
	for _, line := range f.lines[userID] {
		cart.Lines = append(cart.Lines, line)
	}
	sort.Slice(cart.Lines, func(i, j int) bool { return cart.Lines[i].AddedAt.Before(cart.Lines[j].AddedAt) })
	return cart, nil
}

func (f *Carts) UpdateLine(_ context.Context, userID, productID uuid.UUID, update ports.CartLineUpdate) (domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var current *domain.CartLine
	if line, ok := f.lines[userID][productID]; ok {
		current = &line
	}
	next, err := update(current)
	if err != nil {
		return domain.CartLine{}, err
	}
	if f.lines[userID] == nil {
		f.lines[userID] = map[uuid.UUID]domain.CartLine{}
	}
	f.lines[userID][productID] = next
	return next, nil
}

func (f *Carts) RemoveLine(_ context.Context, userID, productID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lines[userID], productID)
	return nil
}

func (f *Carts) Clear(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lines, userID)
	return nil
}

type Hasher struct{}

func (Hasher) Hash(password string) (string, error) { return "hash:" + password, nil }

func (Hasher) Compare(hash, password string) error {
	if hash != "hash:"+password {
		return errors.New("hash mismatch")
	}
	return nil
}

type Signer struct {
	mu     sync.Mutex
	tokens map[string]ports.AuthClaims
}

func (f *Signer) Sign(claims ports.AuthClaims) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := uuid.NewString()
	f.tokens[token] = claims
	return token, nil
}

func (f *Signer) ParseAndValidate(token string) (ports.AuthClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.tokens[token]
	if !ok {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	return claims, nil
}

type OrderNumbers struct {
	mu   sync.Mutex
	next int
}

func (f *OrderNumbers) NextOrderNumber() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return fmt.Sprintf("%012d", f.next)
}
