package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
)

// AddToCart accumulates quantity units of product into the user's cart. The resulting
// line may not exceed the product's stock.
func (s *Service) AddToCart(ctx context.Context, userID uuid.UUID, product domain.Product, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be >= 1", domain.ErrInvalidInput)
	}
	_, err := s.carts.UpdateLine(ctx, userID, product.ProductID, func(current *domain.CartLine) (domain.CartLine, error) {
		total, addedAt := quantity, s.nowFn()
		if current != nil {
			total += current.Quantity
			addedAt = current.AddedAt
		}
		if err := domain.CheckStock(product, total); err != nil {
			return domain.CartLine{}, err
		}
		return cartLineFor(product, total, addedAt), nil
	})
	return err
}

func (s *Service) GetCart(ctx context.Context, actor ports.AuthClaims) (CartView, error) {
	cart, err := s.carts.Get(ctx, actor.UserID)
	if err != nil {
		return CartView{}, fmt.Errorf("load cart: %w", err)
	}
	return toCartView(cart), nil
}

// AddCartItem adds a product to the caller's cart; a zero quantity means one unit.
func (s *Service) AddCartItem(ctx context.Context, actor ports.AuthClaims, req AddCartItemRequest) (CartView, error) {
	if err := s.validateRequest(req); err != nil {
		return CartView{}, err
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	product, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return CartView{}, err
	}
	if err := s.AddToCart(ctx, actor.UserID, product, req.Quantity); err != nil {
		return CartView{}, err
	}
	return s.GetCart(ctx, actor)
}

// SetCartQuantity replaces a line's quantity; zero removes the line.
func (s *Service) SetCartQuantity(ctx context.Context, actor ports.AuthClaims, productID uuid.UUID, req SetCartQuantityRequest) (CartView, error) {
	if err := s.validateRequest(req); err != nil {
		return CartView{}, err
	}
	if req.Quantity == 0 {
		return s.RemoveCartItem(ctx, actor, productID)
	}
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return CartView{}, err
	}
	_, err = s.carts.UpdateLine(ctx, actor.UserID, productID, func(current *domain.CartLine) (domain.CartLine, error) {
		if current == nil {
			return domain.CartLine{}, fmt.Errorf("%w: product is not in the cart", domain.ErrNotFound)
		}
		if err := domain.CheckStock(product, req.Quantity); err != nil {
			return domain.CartLine{}, err
		}
		return cartLineFor(product, req.Quantity, current.AddedAt), nil
	})
	if err != nil {
		return CartView{}, err
	}
	return s.GetCart(ctx, actor)
}

func (s *Service) RemoveCartItem(ctx context.Context, actor ports.AuthClaims, productID uuid.UUID) (CartView, error) {
	if err := s.carts.RemoveLine(ctx, actor.UserID, productID); err != nil {
		return CartView{}, err
	}
	return s.GetCart(ctx, actor)
}

func (s *Service) ClearCart(ctx context.Context, actor ports.AuthClaims) error {
	return s.carts.Clear(ctx, actor.UserID)
}

func cartLineFor(product domain.Product, quantity int, addedAt time.Time) domain.CartLine {
	return domain.CartLine{
		ProductID: product.ProductID,
		Name:      product.Name,
		Image:     product.Image,
		UnitPrice: product.Price,
		Quantity:  quantity,
		AddedAt:   addedAt,
	}
}
