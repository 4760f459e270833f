package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestConnectAcceptsURL(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	_ = client.Close()
}

func TestLockoutStoreLocksAtThreshold(t *testing.T) {
	t.Parallel()
	mr, client := newTestClient(t)
	store := NewRedisLockoutStore(client)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 2; i++ {
		state, err := store.RecordFailure(ctx, "shopper@example.com", now, 3, 15*time.Minute)
		if err != nil {
			t.Fatalf("record failure: %v", err)
		}
		if state.FailedCount != i || state.LockedUntil != nil {
			t.Fatalf("unexpected state after %d failures: %+v", i, state)
		}
	}
	state, err := store.RecordFailure(ctx, "shopper@example.com", now, 3, 15*time.Minute)
	if err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if state.LockedUntil == nil || !state.LockedUntil.Equal(now.Add(15*time.Minute)) {
		t.Fatalf("expected lock until %v, got %+v", now.Add(15*time.Minute), state)
	}

	got, err := store.Get(ctx, "shopper@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FailedCount != 3 || got.LockedUntil == nil {
		t.Fatalf("stored state mismatch: %+v", got)
	}
	if ttl := mr.TTL(lockoutKey("shopper@example.com")); ttl != 15*time.Minute {
		t.Fatalf("expected lockout ttl 15m, got %v", ttl)
	}

	if err := store.Clear(ctx, "shopper@example.com"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	cleared, err := store.Get(ctx, "shopper@example.com")
	if err != nil {
		t.Fatalf("get after clear: %v", err)
	}
	if cleared.FailedCount != 0 || cleared.LockedUntil != nil {
		t.Fatalf("expected empty state, got %+v", cleared)
	}
}

func TestSessionRevocationStoreExpiresWithToken(t *testing.T) {
	t.Parallel()
	mr, client := newTestClient(t)
	store := NewRedisSessionRevocationStore(client)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()
	sessionID := uuid.New()

	revoked, err := store.IsRevoked(ctx, sessionID)
	if err != nil || revoked {
		t.Fatalf("expected not revoked, got %v %v", revoked, err)
	}
	if err := store.MarkRevoked(ctx, sessionID, now.Add(10*time.Minute)); err != nil {
		t.Fatalf("mark revoked: %v", err)
	}
	revoked, err = store.IsRevoked(ctx, sessionID)
	if err != nil || !revoked {
		t.Fatalf("expected revoked, got %v %v", revoked, err)
	}

	mr.FastForward(11 * time.Minute)
	revoked, err = store.IsRevoked(ctx, sessionID)
	if err != nil || revoked {
		t.Fatalf("expected marker to expire, got %v %v", revoked, err)
	}
}

func TestCartStoreRoundTripsLinesInAddedOrder(t *testing.T) {
	t.Parallel()
	mr, client := newTestClient(t)
	store := NewRedisCartStore(client, time.Hour)
	ctx := context.Background()
	userID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mouse := domain.CartLine{
		ProductID: uuid.New(),
		Name:      "Gaming Mouse",
		UnitPrice: decimal.RequireFromString("49.99"),
		Quantity:  1,
		AddedAt:   base.Add(time.Minute),
	}
	phone := domain.CartLine{
		ProductID: uuid.New(),
		Name:      "Phone",
		UnitPrice: decimal.RequireFromString("599.99"),
		Quantity:  2,
		AddedAt:   base,
	}
	for _, line := range []domain.CartLine{mouse, phone} {
		if _, err := store.UpdateLine(ctx, userID, line.ProductID, replaceWith(line)); err != nil {
			t.Fatalf("put line: %v", err)
		}
	}

	cart, err := store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(cart.Lines) != 2 || cart.Lines[0].ProductID != phone.ProductID || cart.Lines[1].ProductID != mouse.ProductID {
		t.Fatalf("unexpected line order: %+v", cart.Lines)
	}
	if !cart.Lines[0].UnitPrice.Equal(phone.UnitPrice) {
		t.Fatalf("price lost in round trip: %s", cart.Lines[0].UnitPrice)
	}
	if got := cart.Subtotal().StringFixed(2); got != "1249.97" {
		t.Fatalf("expected subtotal 1249.97, got %s", got)
	}
	if ttl := mr.TTL(cartKey(userID)); ttl != time.Hour {
		t.Fatalf("expected cart ttl 1h, got %v", ttl)
	}

	phone.Quantity = 3
	if _, err := store.UpdateLine(ctx, userID, phone.ProductID, replaceWith(phone)); err != nil {
		t.Fatalf("replace line: %v", err)
	}
	if err := store.RemoveLine(ctx, userID, mouse.ProductID); err != nil {
		t.Fatalf("remove line: %v", err)
	}
	cart, err = store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].Quantity != 3 {
		t.Fatalf("expected single line with qty 3, got %+v", cart.Lines)
	}

	if err := store.Clear(ctx, userID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	cart, err = store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(cart.Lines) != 0 || cart.UserID != userID {
		t.Fatalf("expected empty cart, got %+v", cart)
	}
}

func replaceWith(line domain.CartLine) ports.CartLineUpdate {
	return func(*domain.CartLine) (domain.CartLine, error) { return line, nil }
}

// addOne mirrors the add-to-cart rule: accumulate one unit, capped at stock.
func addOne(productID uuid.UUID, stock int) ports.CartLineUpdate {
	return func(current *domain.CartLine) (domain.CartLine, error) {
		next := domain.CartLine{ProductID: productID, Name: "Lamp", UnitPrice: decimal.NewFromInt(20), Quantity: 1}
		if current != nil {
			next = *current
			next.Quantity++
		}
		if next.Quantity > stock {
			return domain.CartLine{}, domain.ErrInsufficientStock
		}
		return next, nil
	}
}

func TestCartStoreConcurrentAddsAccumulate(t *testing.T) {
	t.Parallel()
	_, client := newTestClient(t)
	store := NewRedisCartStore(client, time.Hour)
	ctx := context.Background()
	userID, productID := uuid.New(), uuid.New()

	const clicks = 50
	var wg sync.WaitGroup
	errs := make(chan error, clicks)
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.UpdateLine(ctx, userID, productID, addOne(productID, 1000)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent add: %v", err)
	}

	cart, err := store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].Quantity != clicks {
		t.Fatalf("expected one line with qty %d, got %+v", clicks, cart.Lines)
	}
}

func TestCartStoreConcurrentAddsRespectStockCap(t *testing.T) {
	t.Parallel()
	_, client := newTestClient(t)
	store := NewRedisCartStore(client, time.Hour)
	ctx := context.Background()
	userID, productID := uuid.New(), uuid.New()

	const clicks, stock = 40, 25
	var (
		wg       sync.WaitGroup
		rejected atomic.Int32
	)
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.UpdateLine(ctx, userID, productID, addOne(productID, stock))
			switch {
			case errors.Is(err, domain.ErrInsufficientStock):
				rejected.Add(1)
			case err != nil:
				t.Errorf("concurrent add: %v", err)
			}
		}()
	}
	wg.Wait()

	cart, err := store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].Quantity != stock {
		t.Fatalf("expected qty capped at %d, got %+v", stock, cart.Lines)
	}
	if got := rejected.Load(); got != clicks-stock {
		t.Fatalf("expected %d rejected adds, got %d", clicks-stock, got)
	}
}

func TestCartStoreUpdateErrorLeavesCartUntouched(t *testing.T) {
	t.Parallel()
	mr, client := newTestClient(t)
	store := NewRedisCartStore(client, time.Hour)
	userID, productID := uuid.New(), uuid.New()

	_, err := store.UpdateLine(context.Background(), userID, productID, func(*domain.CartLine) (domain.CartLine, error) {
		return domain.CartLine{}, domain.ErrNotFound
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if mr.Exists(cartKey(userID)) {
		t.Fatal("cart must not be created by a rejected update")
	}
}
