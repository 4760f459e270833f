package http

import (
	"net/http"

	"github.com/shopfront/storefront/internal/application"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r, "get_cart")
	if !ok {
		return
	}
	res, err := h.service.GetCart(r.Context(), claims)
	if err != nil {
		writeMappedError(r.Context(), w, "get_cart", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r, "add_cart_item")
	if !ok {
		return
	}
	var req application.AddCartItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeValidationError(r.Context(), w, "add_cart_item", err)
		return
	}
	res, err := h.service.AddCartItem(r.Context(), claims, req)
	if err != nil {
		writeMappedError(r.Context(), w, "add_cart_item", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) setCartQuantity(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r, "set_cart_quantity")
	if !ok {
		return
	}
	productID, err := pathUUID(r, "productID")
	if err != nil {
		writeMappedError(r.Context(), w, "set_cart_quantity", err)
		return
	}
	var req application.SetCartQuantityRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeValidationError(r.Context(), w, "set_cart_quantity", err)
		return
	}
	res, err := h.service.SetCartQuantity(r.Context(), claims, productID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "set_cart_quantity", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r, "remove_cart_item")
	if !ok {
		return
	}
	productID, err := pathUUID(r, "productID")
	if err != nil {
		writeMappedError(r.Context(), w, "remove_cart_item", err)
		return
	}
	res, err := h.service.RemoveCartItem(r.Context(), claims, productID)
	if err != nil {
		writeMappedError(r.Context(), w, "remove_cart_item", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r, "clear_cart")
	if !ok {
		return
	}
	if err := h.service.ClearCart(r.Context(), claims); err != nil {
		writeMappedError(r.Context(), w, "clear_cart", err)
		return
	}
	writeMessage(w, http.StatusOK, "Cart cleared")
}
