package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/safar/go-marketplace/internal/auth"
	"github.com/safar/go-marketplace/internal/cart"
	"github.com/safar/go-marketplace/internal/catalog"
	"github.com/safar/go-marketplace/internal/checkout"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/orders"
)

var notFoundMessages = []struct {
	err     error
	message string
}{
	{database.ErrOrderNotFound, "Order not found."},
	{database.ErrCartItemNotFound, "Cart item not found."},
	{database.ErrCartNotFound, "Cart not found."},
	{database.ErrVariantNotFound, "Product variant not found."},
	{database.ErrProductNotFound, "Product not found."},
	{database.ErrCategoryNotFound, "Category not found."},
	{database.ErrVendorNotFound, "Vendor not found."},
	{database.ErrUserNotFound, "User not found."},
}

// writeError maps err to a status, code and customer-safe message. Anything
// not recognized is logged with the request id and reported as a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		checkoutErr    *checkout.Error
		ruleErr        *cart.RuleError
		changeErr      *orders.StatusChangeError
		refusedErr     *auth.LoginRefusedError
		decisionErr    *auth.DecisionError
		notApprovedErr *catalog.VendorNotApprovedError
	)

	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, CodeEmptyCart, checkout.EmptyCartMessage)
		return
	case errors.As(err, &checkoutErr):
		respondError(w, http.StatusBadRequest, CodeCheckoutFailed, checkoutErr.Message)
		return
	case errors.As(err, &ruleErr):
		respondError(w, http.StatusBadRequest, ruleErr.Code, ruleErr.Message)
		return
	case errors.Is(err, orders.ErrInvalidStatus):
		respondValidation(w, map[string][]string{"status": {"The selected status is invalid."}})
		return
	case errors.Is(err, orders.ErrInvalidDateRange):
		respondValidation(w, map[string][]string{"to_date": {"The to date must be a date after or equal to from date."}})
		return
	case errors.Is(err, database.ErrInvalidCursor):
		respondValidation(w, map[string][]string{"cursor": {"The cursor is invalid."}})
		return
	case errors.Is(err, database.ErrInvalidQuantity):
		respondValidation(w, map[string][]string{"quantity": {"Quantity must be at least 1."}})
		return
	case errors.As(err, &changeErr):
		respondError(w, http.StatusBadRequest, CodeInvalidStatusChange, changeErr.Error())
		return
	case errors.Is(err, auth.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, CodeUnauthenticated, "Unauthenticated. Please provide a valid authentication token.")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password. Please check your credentials and try again.")
		return
	case errors.As(err, &refusedErr):
		respondError(w, http.StatusForbidden, refusedErr.Code, refusedErr.Message)
		return
	case errors.As(err, &decisionErr):
		respondError(w, http.StatusBadRequest, decisionErr.Code, decisionErr.Message)
		return
	case errors.As(err, &notApprovedErr):
		respondError(w, http.StatusBadRequest, catalog.CodeVendorNotApproved, notApprovedErr.Message)
		return
	case errors.Is(err, database.ErrProductHasOrders):
		respondError(w, http.StatusBadRequest, CodeProductHasOrders,
			"Cannot delete product that has been ordered. Please deactivate it instead by setting status to inactive.")
		return
	case errors.Is(err, auth.ErrNoVendor):
		respondError(w, http.StatusForbidden, CodeNoVendor, "User is not associated with a vendor.")
		return
	case errors.Is(err, auth.ErrForbidden):
		respondError(w, http.StatusForbidden, CodeForbidden, "You do not have permission to perform this action.")
		return
	case errors.Is(err, database.ErrInsufficientStock):
		respondError(w, http.StatusBadRequest, CodeInsufficientStock, "Insufficient stock.")
		return
	case errors.Is(err, database.ErrCategoryNotLeaf):
		respondError(w, http.StatusBadRequest, CodeCategoryNotLeaf, "Products can only be attached to categories without subcategories.")
		return
	case errors.Is(err, database.ErrCategoryHasChildren):
		respondError(w, http.StatusBadRequest, CodeCategoryHasChildren, "Cannot delete a category that has subcategories.")
		return
	case errors.Is(err, database.ErrOptimisticLockFailed):
		respondError(w, http.StatusConflict, CodeConflict, "The resource was modified by someone else. Reload it and try again.")
		return
	case errors.Is(err, database.ErrDuplicateEmail):
		respondValidation(w, map[string][]string{"email": {"The email has already been taken."}})
		return
	case errors.Is(err, database.ErrDuplicateSKU):
		respondValidation(w, map[string][]string{"sku": {"The sku has already been taken."}})
		return
	case errors.Is(err, database.ErrDuplicateSlug):
		respondValidation(w, map[string][]string{"slug": {"The slug has already been taken under this parent."}})
		return
	}

	for _, nf := range notFoundMessages {
		if errors.Is(err, nf.err) {
			respondError(w, http.StatusNotFound, CodeNotFound, nf.message)
			return
		}
	}

	if database.ClassifyError(err) == database.ErrorClassConstraint {
		respondError(w, http.StatusConflict, CodeConflict, "The request conflicts with existing data.")
		return
	}

	log.Printf("[%s] %s %s: %v", middleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
	respondError(w, http.StatusInternalServerError, CodeInternal, "An unexpected error occurred.")
}
