package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
)

const (
	cancelReasonBuyer   = "cancelled_by_buyer"
	cancelReasonAdmin   = "cancelled_by_admin"
	cancelReasonExpired = "payment_window_expired"
)

// PlaceOrder prices the requested lines from the catalog, reserves their stock and
// persists the order in one transaction. Client-sent prices are never trusted. With
// FromCart the caller's cart supplies the lines and is emptied once the order exists.
func (s *Service) PlaceOrder(ctx context.Context, actor ports.AuthClaims, req PlaceOrderRequest) (OrderView, error) {
	if err := s.validateRequest(req); err != nil {
		return OrderView{}, err
	}
	address := domain.ShippingAddress{
		Address:    strings.TrimSpace(req.ShippingAddress.Address),
		City:       strings.TrimSpace(req.ShippingAddress.City),
		PostalCode: strings.TrimSpace(req.ShippingAddress.PostalCode),
		Country:    strings.TrimSpace(req.ShippingAddress.Country),
	}
	if err := address.Validate(); err != nil {
		return OrderView{}, err
	}

	items := req.Items
	if req.FromCart {
		if len(items) > 0 {
			return OrderView{}, fmt.Errorf("%w: items and from_cart are mutually exclusive", domain.ErrInvalidInput)
		}
		cart, err := s.carts.Get(ctx, actor.UserID)
		if err != nil {
			return OrderView{}, fmt.Errorf("load cart: %w", err)
		}
		for _, line := range cart.Lines {
			items = append(items, OrderItemRequest{ProductID: line.ProductID, Quantity: line.Quantity})
		}
	}
	quantities, productIDs, err := mergeOrderItems(items)
	if err != nil {
		return OrderView{}, err
	}

	orderNumber := s.orderNumbers.NextOrderNumber()
	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	order, err := s.orders.PlaceTx(ctx, productIDs, func(products map[uuid.UUID]domain.Product) (domain.Order, ports.OutboxEvent, error) {
		lines := make([]domain.OrderLine, 0, len(productIDs))
		for _, id := range productIDs {
			product, ok := products[id]
			if !ok {
				return domain.Order{}, ports.OutboxEvent{}, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
			}
			if err := domain.CheckStock(product, quantities[id]); err != nil {
				return domain.Order{}, ports.OutboxEvent{}, err
			}
			lines = append(lines, domain.OrderLine{
				ProductID: product.ProductID,
				Name:      product.Name,
				Image:     product.Image,
				UnitPrice: product.Price,
				Quantity:  quantities[id],
			})
		}

		now := s.nowFn()
		totals := s.cfg.Pricing.Price(lines)
		placed := domain.Order{
			OrderID:         uuid.New(),
			OrderNumber:     orderNumber,
			UserID:          actor.UserID,
			Lines:           lines,
			ShippingAddress: address,
			PaymentMethod:   paymentMethod,
			ItemsPrice:      totals.ItemsPrice,
			ShippingPrice:   totals.ShippingPrice,
			TaxPrice:        totals.TaxPrice,
			TotalPrice:      totals.TotalPrice,
			Status:          domain.OrderStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return placed, newOrderEvent(EventTypeOrderPlaced, placed, ""), nil
	})
	if err != nil {
		return OrderView{}, err
	}

	if req.FromCart {
		if err := s.carts.Clear(ctx, actor.UserID); err != nil {
			logWarn(ctx, "place_order", "failed to clear cart after checkout",
				"order_id", order.OrderID,
				"error", err,
			)
		}
	}
	return toOrderView(order), nil
}

// mergeOrderItems folds repeated products into one line each and returns the product
// ids in ascending order, which is also the row-lock order.
func mergeOrderItems(items []OrderItemRequest) (map[uuid.UUID]int, []uuid.UUID, error) {
	if len(items) == 0 {
		return nil, nil, fmt.Errorf("%w: order has no items", domain.ErrInvalidInput)
	}
	quantities := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, nil, fmt.Errorf("%w: product_id is required", domain.ErrInvalidInput)
		}
		if item.Quantity < 1 {
			return nil, nil, fmt.Errorf("%w: quantity must be >= 1", domain.ErrInvalidInput)
		}
		quantities[item.ProductID] += item.Quantity
	}
	ids := make([]uuid.UUID, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return quantities, ids, nil
}

func (s *Service) GetOrder(ctx context.Context, actor ports.AuthClaims, orderID uuid.UUID) (OrderView, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return OrderView{}, err
	}
	if err := canAccessOrder(actor, order); err != nil {
		return OrderView{}, err
	}
	return toOrderView(order), nil
}

func (s *Service) MyOrders(ctx context.Context, actor ports.AuthClaims, q OrderListQuery) (OrderPage, error) {
	page, perPage, offset := s.pageBounds(q.Page, q.PerPage)
	orders, total, err := s.orders.ListByUser(ctx, actor.UserID, perPage, offset)
	if err != nil {
		return OrderPage{}, err
	}
	return toOrderPage(orders, total, page, perPage), nil
}

// ListOrders is the admin view of all orders, optionally filtered by status.
func (s *Service) ListOrders(ctx context.Context, actor ports.AuthClaims, q OrderListQuery) (OrderPage, error) {
	if err := requireAdmin(actor); err != nil {
		return OrderPage{}, err
	}
	var status *domain.OrderStatus
	if strings.TrimSpace(q.Status) != "" {
		parsed, err := domain.ParseOrderStatus(q.Status)
		if err != nil {
			return OrderPage{}, err
		}
		status = &parsed
	}
	page, perPage, offset := s.pageBounds(q.Page, q.PerPage)
	orders, total, err := s.orders.List(ctx, status, perPage, offset)
	if err != nil {
		return OrderPage{}, err
	}
	return toOrderPage(orders, total, page, perPage), nil
}

// PayOrder records the client-reported payment result and moves the order to PAID.
func (s *Service) PayOrder(ctx context.Context, actor ports.AuthClaims, orderID uuid.UUID, req PayOrderRequest) (OrderView, error) {
	if err := s.validateRequest(req); err != nil {
		return OrderView{}, err
	}
	order, err := s.orders.MutateTx(ctx, orderID, func(o *domain.Order) (bool, ports.OutboxEvent, error) {
		if err := canAccessOrder(actor, *o); err != nil {
			return false, ports.OutboxEvent{}, err
		}
		if err := transition(o, domain.OrderStatusPaid); err != nil {
			return false, ports.OutboxEvent{}, err
		}
		now := s.nowFn()
		o.PaidAt = &now
		o.UpdatedAt = now
		o.PaymentResult = &domain.PaymentResult{
			PaymentID:    strings.TrimSpace(req.PaymentID),
			Status:       strings.TrimSpace(req.Status),
			EmailAddress: strings.TrimSpace(req.EmailAddress),
			UpdatedAt:    now,
		}
		return false, newOrderEvent(EventTypeOrderPaid, *o, ""), nil
	})
	if err != nil {
		return OrderView{}, err
	}
	return toOrderView(order), nil
}

func (s *Service) DeliverOrder(ctx context.Context, actor ports.AuthClaims, orderID uuid.UUID) (OrderView, error) {
	if err := requireAdmin(actor); err != nil {
		return OrderView{}, err
	}
	order, err := s.orders.MutateTx(ctx, orderID, func(o *domain.Order) (bool, ports.OutboxEvent, error) {
		if err := transition(o, domain.OrderStatusDelivered); err != nil {
			return false, ports.OutboxEvent{}, err
		}
		now := s.nowFn()
		o.DeliveredAt = &now
		o.UpdatedAt = now
		return false, newOrderEvent(EventTypeOrderDelivered, *o, ""), nil
	})
	if err != nil {
		return OrderView{}, err
	}
	return toOrderView(order), nil
}

// CancelOrder cancels a pending or paid order and returns its stock.
func (s *Service) CancelOrder(ctx context.Context, actor ports.AuthClaims, orderID uuid.UUID) (OrderView, error) {
	reason := cancelReasonBuyer
	if actor.Role == domain.RoleAdmin {
		reason = cancelReasonAdmin
	}
	order, err := s.orders.MutateTx(ctx, orderID, func(o *domain.Order) (bool, ports.OutboxEvent, error) {
		if err := canAccessOrder(actor, *o); err != nil {
			return false, ports.OutboxEvent{}, err
		}
		return s.cancel(o, reason)
	})
	if err != nil {
		return OrderView{}, err
	}
	return toOrderView(order), nil
}

// ExpireUnpaidOrders cancels up to batchSize orders that stayed PENDING longer than the
// unpaid window. Orders paid or cancelled concurrently are skipped.
func (s *Service) ExpireUnpaidOrders(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	cutoff := s.nowFn().Add(-s.cfg.OrderUnpaidTTL)
	pending, err := s.orders.ListPendingBefore(ctx, cutoff, batchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range pending {
		_, err := s.orders.MutateTx(ctx, candidate.OrderID, func(o *domain.Order) (bool, ports.OutboxEvent, error) {
			if o.Status != domain.OrderStatusPending {
				return false, ports.OutboxEvent{}, domain.ErrInvalidTransition
			}
			return s.cancel(o, cancelReasonExpired)
		})
		switch {
		case err == nil:
			expired++
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNotFound):
		default:
			return expired, fmt.Errorf("expire order %s: %w", candidate.OrderID, err)
		}
	}
	return expired, nil
}

func (s *Service) cancel(o *domain.Order, reason string) (bool, ports.OutboxEvent, error) {
	if err := transition(o, domain.OrderStatusCancelled); err != nil {
		return false, ports.OutboxEvent{}, err
	}
	now := s.nowFn()
	o.CancelledAt = &now
	o.UpdatedAt = now
	return true, newOrderEvent(EventTypeOrderCancelled, *o, reason), nil
}

func transition(o *domain.Order, to domain.OrderStatus) error {
	if !domain.CanTransition(o.Status, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, to)
	}
	o.Status = to
	return nil
}

func canAccessOrder(actor ports.AuthClaims, order domain.Order) error {
	if order.UserID == actor.UserID || actor.Role == domain.RoleAdmin {
		return nil
	}
	return domain.ErrForbidden
}

func toOrderPage(orders []domain.Order, total int64, page, perPage int) OrderPage {
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	return OrderPage{
		Items:   views,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pageCount(total, perPage),
	}
}
