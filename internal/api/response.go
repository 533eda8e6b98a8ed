package api

import (
	"encoding/json"
	"log"
	"net/http"
)

const (
	CodeEmptyCart           = "EMPTY_CART"
	CodeCheckoutFailed      = "CHECKOUT_FAILED"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeInvalidStatusChange = "INVALID_STATUS_CHANGE"
	CodeNotFound            = "NOT_FOUND"
	CodeForbidden           = "FORBIDDEN"
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeValidation          = "VALIDATION_ERROR"
	CodeConflict            = "CONFLICT"
	CodeCategoryNotLeaf     = "CATEGORY_NOT_LEAF"
	CodeCategoryHasChildren = "CATEGORY_HAS_CHILDREN"
	CodeNoVendor            = "NO_VENDOR"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeProductHasOrders    = "PRODUCT_HAS_ORDERS"
	CodeBadRequest          = "BAD_REQUEST"
	CodeInternal            = "INTERNAL_ERROR"
)

type successEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

type errorEnvelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func respondSuccess(w http.ResponseWriter, status int, message string, data any) {
	respondJSON(w, status, successEnvelope{Success: true, Message: message, Data: data})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorEnvelope{Success: false, Message: message, Error: code})
}

func respondValidation(w http.ResponseWriter, fields map[string][]string) {
	respondJSON(w, http.StatusUnprocessableEntity, errorEnvelope{
		Success: false,
		Message: "Validation failed. Please check your input.",
		Error:   CodeValidation,
		Errors:  fields,
	})
}
