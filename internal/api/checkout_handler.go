package api

import (
	"context"
	"net/http"

	"github.com/safar/go-marketplace/internal/auth"
	"github.com/safar/go-marketplace/internal/checkout"
)

type CheckoutService interface {
	Checkout(ctx context.Context, customer auth.Principal) (*checkout.Result, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
}

func NewCheckoutHandler(svc CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: svc}
}

// Checkout answers with {order} when the cart held a single vendor's items
// and {orders} otherwise.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	result, err := h.checkout.Checkout(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var data map[string]any
	if len(result.Orders) == 1 {
		data = map[string]any{"order": result.Orders[0]}
	} else {
		data = map[string]any{"orders": result.Orders}
	}

	respondSuccess(w, http.StatusCreated, "Checkout completed successfully", data)
}
