package http

import (
	"net/http"

	"github.com/shopfront/storefront/internal/application"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.service.ListProducts(r.Context(), application.ProductListQuery{
		Page:     parseIntDefault(q.Get("page"), 1),
		PerPage:  parseIntDefault(q.Get("perPage"), 0),
		Search:   q.Get("q"),
		Category: q.Get("category"),
		Sort:     q.Get("sort"),
		Order:    q.Get("order"),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "list_products", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) topProducts(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.TopProducts(r.Context(), parseIntDefault(r.URL.Query().Get("limit"), 0))
	if err != nil {
		writeMappedError(r.Context(), w, "top_products", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := pathUUID(r, "productID")
	if err != nil {
		writeMappedError(r.Context(), w, "get_product", err)
		return
	}
	res, err := h.service.GetProduct(r.Context(), productID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_product", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) productCard(w http.ResponseWriter, r *http.Request) {
	productID, err := pathUUID(r, "productID")
	if err != nil {
		writeMappedError(r.Context(), w, "product_card", err)
		return
	}
	res, err := h.service.ProductCard(r.Context(), productID, r.URL.Query().Get("view"))
	if err != nil {
		writeMappedError(r.Context(), w, "product_card", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r, "create_product")
	if !ok {
		return
	}
	var req application.ProductInput
	if err := decodeBody(w, r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_product", err)
		return
	}
	res, err := h.service.CreateProduct(r.Context(), claims, req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_product", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r, "update_product")
	if !ok {
		return
	}
	productID, err := pathUUID(r, "productID")
	if err != nil {
		writeMappedError(r.Context(), w, "update_product", err)
		return
	}
	var patch application.ProductPatch
	if err := decodeBody(w, r, &patch); err != nil {
		writeValidationError(r.Context(), w, "update_product", err)
		return
	}
	res, err := h.service.UpdateProduct(r.Context(), claims, productID, patch)
	if err != nil {
		writeMappedError(r.Context(), w, "update_product", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r, "delete_product")
	if !ok {
		return
	}
	productID, err := pathUUID(r, "productID")
	if err != nil {
		writeMappedError(r.Context(), w, "delete_product", err)
		return
	}
	if err := h.service.DeleteProduct(r.Context(), claims, productID); err != nil {
		writeMappedError(r.Context(), w, "delete_product", err)
		return
	}
	writeMessage(w, http.StatusOK, "Product removed")
}

func (h *Handler) addReview(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r, "add_review")
	if !ok {
		return
	}
	productID, err := pathUUID(r, "productID")
	if err != nil {
		writeMappedError(r.Context(), w, "add_review", err)
		return
	}
	var req application.ReviewRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeValidationError(r.Context(), w, "add_review", err)
		return
	}
	res, err := h.service.AddReview(r.Context(), claims, productID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "add_review", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

// addProductToCart is the product card's add-to-cart button: one unit per press.
func (h *Handler) addProductToCart(w http.ResponseWriter, r *http.Request) {
	claims, ok := actor(w, r, "add_product_to_cart")
	if !ok {
		return
	}
	productID, err := pathUUID(r, "productID")
	if err != nil {
		writeMappedError(r.Context(), w, "add_product_to_cart", err)
		return
	}
	res, err := h.service.AddProductToCart(r.Context(), claims, productID)
	if err != nil {
		writeMappedError(r.Context(), w, "add_product_to_cart", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
