package api

import (
	"context"
	"net/http"

	"github.com/safar/go-marketplace/internal/auth"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/orders"
	"github.com/safar/go-marketplace/internal/store"
)

type OrderService interface {
	UpdateStatus(ctx context.Context, actor auth.Principal, orderID int64, status string) (*models.Order, error)
	Get(ctx context.Context, actor auth.Principal, orderID int64) (*models.Order, error)
	ListForCustomer(ctx context.Context, actor auth.Principal, status, cursor string, limit int) (*store.CursorPage, error)
	ListForVendor(ctx context.Context, actor auth.Principal, f orders.ListFilter) (*store.OffsetPage, error)
	ListAll(ctx context.Context, actor auth.Principal, f orders.ListFilter) (*store.OffsetPage, error)
}

type OrdersHandler struct {
	orders OrderService
}

func NewOrdersHandler(svc OrderService) *OrdersHandler {
	return &OrdersHandler{orders: svc}
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status" validate:"required"`
}

func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "id", "Order not found.")
	if !ok {
		return
	}

	var req UpdateStatusRequestDTO
	if !decodeAndValidate(w, r, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), principal(r), orderID, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Order status updated successfully", order)
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "id", "Order not found.")
	if !ok {
		return
	}

	order, err := h.orders.Get(r.Context(), principal(r), orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Order details retrieved successfully", order)
}

func (h *OrdersHandler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	limit := q.Int("limit", 1)
	if !q.Valid(w) {
		return
	}

	page, err := h.orders.ListForCustomer(r.Context(), principal(r), q.String("status"), q.String("cursor"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Orders retrieved successfully", page)
}

func (h *OrdersHandler) ListVendorOrders(w http.ResponseWriter, r *http.Request) {
	filter, ok := listFilter(w, r)
	if !ok {
		return
	}

	page, err := h.orders.ListForVendor(r.Context(), principal(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Orders retrieved successfully", page)
}

func (h *OrdersHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	filter, ok := listFilter(w, r)
	if !ok {
		return
	}

	page, err := h.orders.ListAll(r.Context(), principal(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Orders retrieved successfully", page)
}

func listFilter(w http.ResponseWriter, r *http.Request) (orders.ListFilter, bool) {
	q := newQueryParams(r)
	filter := orders.ListFilter{
		Status:   q.String("status"),
		VendorID: q.Int64Ptr("vendor_id"),
		FromDate: q.Date("from_date"),
		ToDate:   q.Date("to_date"),
		Page:     q.Int("page", 1),
		PerPage:  q.Int("per_page", 1),
	}
	return filter, q.Valid(w)
}
