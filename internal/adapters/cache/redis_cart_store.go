package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
)

// DefaultCartTTL is how long an untouched cart survives.
const DefaultCartTTL = 30 * 24 * time.Hour

// maxCartTxAttempts bounds optimistic retries for one line update.
const maxCartTxAttempts = 64

var errCartContention = errors.New("cart is being modified concurrently")

// RedisCartStore keeps one hash per user, field = product id, value = JSON cart line.
// Every write refreshes the hash TTL.
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCartStore(client *redis.Client, ttl time.Duration) *RedisCartStore {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &RedisCartStore{client: client, ttl: ttl}
}

func cartKey(userID uuid.UUID) string {
	return keyPrefix + "cart:" + userID.String()
}

func (s *RedisCartStore) Get(ctx context.Context, userID uuid.UUID) (domain.Cart, error) {
	fields, err := s.client.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return domain.Cart{}, err
	}
	cart := domain.Cart{UserID: userID, Lines: make([]domain.CartLine, 0, len(fields))}
	for field, raw := range fields {
		var line domain.CartLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			return domain.Cart{}, fmt.Errorf("decode cart line %s: %w", field, err)
		}
		cart.Lines = append(cart.Lines, line)
	}
	sort.Slice(cart.Lines, func(i, j int) bool {
		if cart.Lines[i].AddedAt.Equal(cart.Lines[j].AddedAt) {
			return cart.Lines[i].ProductID.String() < cart.Lines[j].ProductID.String()
		}
		return cart.Lines[i].AddedAt.Before(cart.Lines[j].AddedAt)
	})
	return cart, nil
}

// UpdateLine reads the line under WATCH and writes update's result in a MULTI block. A
// concurrent write to the same cart aborts the transaction and the update is rerun on the
// fresh line.
func (s *RedisCartStore) UpdateLine(ctx context.Context, userID, productID uuid.UUID, update ports.CartLineUpdate) (domain.CartLine, error) {
	key := cartKey(userID)
	field := productID.String()
	var next domain.CartLine

	txf := func(tx *redis.Tx) error {
		current, err := readCartLine(ctx, tx, key, field)
		if err != nil {
			return err
		}
		next, err = update(current)
		if err != nil {
			return err
		}
		if next.ProductID != productID {
			return fmt.Errorf("cart line for %s cannot be stored under %s", next.ProductID, productID)
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, field, raw)
			p.Expire(ctx, key, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxCartTxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.CartLine{}, err
		}
		return next, nil
	}
	return domain.CartLine{}, fmt.Errorf("update cart %s: %w", userID, errCartContention)
}

func readCartLine(ctx context.Context, tx *redis.Tx, key, field string) (*domain.CartLine, error) {
	raw, err := tx.HGet(ctx, key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var line domain.CartLine
	if err := json.Unmarshal(raw, &line); err != nil {
		return nil, fmt.Errorf("decode cart line %s: %w", field, err)
	}
	return &line, nil
}

func (s *RedisCartStore) RemoveLine(ctx context.Context, userID, productID uuid.UUID) error {
	return s.client.HDel(ctx, cartKey(userID), productID.String()).Err()
}

func (s *RedisCartStore) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.client.Del(ctx, cartKey(userID)).Err()
}
