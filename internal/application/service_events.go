package application

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
)

const (
	// EventTypeUserRegistered is emitted when a user account is created.
	EventTypeUserRegistered = "user.registered"
	EventTypeOrderPlaced    = "order.placed"
	EventTypeOrderPaid      = "order.paid"
	EventTypeOrderDelivered = "order.delivered"
	// EventTypeOrderCancelled is emitted for buyer, admin and expiry cancellations alike.
	EventTypeOrderCancelled = "order.cancelled"
)

type orderEventPayload struct {
	OrderID     uuid.UUID          `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	UserID      uuid.UUID          `json:"user_id"`
	Status      domain.OrderStatus `json:"status"`
	TotalPrice  string             `json:"total_price"`
	ItemCount   int                `json:"item_count"`
	Reason      string             `json:"reason,omitempty"`
	OccurredAt  string             `json:"occurred_at"`
}

func newOrderEvent(eventType string, order domain.Order, reason string) ports.OutboxEvent {
	items := 0
	for _, line := range order.Lines {
		items += line.Quantity
	}
	at := order.UpdatedAt
	payload, _ := json.Marshal(orderEventPayload{
		OrderID:     order.OrderID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalPrice:  order.TotalPrice.StringFixed(2),
		ItemCount:   items,
		Reason:      reason,
		OccurredAt:  at.Format(time.RFC3339),
	})
	return ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: order.OrderID.String(),
		Payload:      payload,
		OccurredAt:   at,
	}
}
