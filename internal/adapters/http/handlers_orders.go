package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/application"
	"github.com/shopfront/storefront/internal/ports"
)

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r, "place_order")
	if !ok {
		return
	}
	var req application.PlaceOrderRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeValidationError(r.Context(), w, "place_order", err)
		return
	}
	res, err := h.service.PlaceOrder(r.Context(), claims, req)
	if err != nil {
		writeMappedError(r.Context(), w, "place_order", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func orderListQuery(r *http.Request) application.OrderListQuery {
	q := r.URL.Query()
	return application.OrderListQuery{
		Page:    parseIntDefault(q.Get("page"), 1),
		PerPage: parseIntDefault(q.Get("perPage"), 0),
		Status:  q.Get("status"),
	}
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r, "my_orders")
	if !ok {
		return
	}
	res, err := h.service.MyOrders(r.Context(), claims, orderListQuery(r))
	if err != nil {
		writeMappedError(r.Context(), w, "my_orders", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r, "list_orders")
	if !ok {
		return
	}
	res, err := h.service.ListOrders(r.Context(), claims, orderListQuery(r))
	if err != nil {
		writeMappedError(r.Context(), w, "list_orders", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	h.withOrder(w, r, "get_order", h.service.GetOrder)
}

func (h *Handler) deliverOrder(w http.ResponseWriter, r *http.Request) {
	h.withOrder(w, r, "deliver_order", h.service.DeliverOrder)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	h.withOrder(w, r, "cancel_order", h.service.CancelOrder)
}

func (h *Handler) payOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r, "pay_order")
	if !ok {
		return
	}
	orderID, err := pathUUID(r, "orderID")
	if err != nil {
		writeMappedError(r.Context(), w, "pay_order", err)
		return
	}
	var req application.PayOrderRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeValidationError(r.Context(), w, "pay_order", err)
		return
	}
	res, err := h.service.PayOrder(r.Context(), claims, orderID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "pay_order", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

type orderAction func(ctx context.Context, actor ports.AuthClaims, orderID uuid.UUID) (application.OrderView, error)

// withOrder runs a body-less action against the order named in the path.
func (h *Handler) withOrder(w http.ResponseWriter, r *http.Request, operation string, action orderAction) {
	claims, ok := actor(w, r, operation)
	if !ok {
		return
	}
	orderID, err := pathUUID(r, "orderID")
	if err != nil {
		writeMappedError(r.Context(), w, operation, err)
		return
	}
	res, err := action(r.Context(), claims, orderID)
	if err != nil {
		writeMappedError(r.Context(), w, operation, err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
