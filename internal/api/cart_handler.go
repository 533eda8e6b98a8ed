package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/safar/go-marketplace/internal/auth"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
)

type CartService interface {
	View(ctx context.Context, customer auth.Principal) (*models.CartView, error)
	Add(ctx context.Context, customer auth.Principal, variantID int64, quantity int) (*models.CartItem, bool, error)
	Update(ctx context.Context, customer auth.Principal, itemID int64, quantity int) (*models.CartItem, error)
	Remove(ctx context.Context, customer auth.Principal, itemID int64) error
	Clear(ctx context.Context, customer auth.Principal) error
}

type CartHandler struct {
	carts CartService
}

func NewCartHandler(carts CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type AddItemRequestDTO struct {
	VariantID *int64 `json:"variant_id" validate:"required,gt=0"`
	Quantity  *int   `json:"quantity" validate:"required,min=1"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity" validate:"required,min=1"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.View(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Cart retrieved successfully", view)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, created, err := h.carts.Add(r.Context(), principal(r), *req.VariantID, *req.Quantity)
	if errors.Is(err, database.ErrVariantNotFound) {
		respondValidation(w, map[string][]string{"variant_id": {"Selected product variant does not exist."}})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	if created {
		respondSuccess(w, http.StatusCreated, "Item added to cart successfully", item)
		return
	}
	respondSuccess(w, http.StatusOK, "Cart item updated successfully", item)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	itemID, ok := urlID(w, r, "id", "Cart item not found.")
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.carts.Update(r.Context(), principal(r), itemID, *req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Cart item updated successfully", item)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := urlID(w, r, "id", "Cart item not found.")
	if !ok {
		return
	}

	if err := h.carts.Remove(r.Context(), principal(r), itemID); err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Item removed from cart successfully", nil)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), principal(r)); err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Cart cleared successfully", nil)
}
