package api

import (
	"context"
	"net/http"

	"github.com/safar/go-marketplace/internal/auth"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/store"
)

type AccountService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.Account, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	ListUsers(ctx context.Context, actor auth.Principal, filter store.UserFilter, page, perPage int) (*store.OffsetPage, error)
	ListVendors(ctx context.Context, actor auth.Principal, filter store.VendorFilter, page, perPage int) (*store.OffsetPage, error)
	ApproveUser(ctx context.Context, actor auth.Principal, userID int64) (*auth.Account, error)
	RejectUser(ctx context.Context, actor auth.Principal, userID int64, reason string) (*auth.Account, error)
	ApproveVendor(ctx context.Context, actor auth.Principal, vendorID int64) (*auth.Account, error)
	RejectVendor(ctx context.Context, actor auth.Principal, vendorID int64, reason string) (*auth.Account, error)
}

type AccountHandler struct {
	accounts AccountService
}

func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type RegisterRequestDTO struct {
	Name       string `json:"name" validate:"required,max=255"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,min=8"`
	Role       string `json:"role" validate:"omitempty,oneof=customer vendor"`
	VendorName string `json:"vendor_name" validate:"omitempty,max=255"`
}

type RejectRequestDTO struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type LoginRequestDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequestDTO
	if !decodeAndValidate(w, r, &req) {
		return
	}

	account, err := h.accounts.Register(r.Context(), auth.RegisterRequest{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Role:       models.Role(req.Role),
		VendorName: req.VendorName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "Registration successful. Your account is pending approval.", account)
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Login successful", session)
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	respondSuccess(w, http.StatusOK, "User retrieved successfully", map[string]any{
		"id":        p.UserID,
		"role":      p.Role,
		"vendor_id": p.VendorID,
	})
}

func (h *AccountHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	filter := store.UserFilter{
		ApprovalStatus: q.OneOf("approval_status", approvalStates...),
		Role:           models.Role(q.OneOf("role", string(models.RoleAdmin), string(models.RoleVendor), string(models.RoleCustomer))),
	}
	page, perPage := q.Int("page", 1), q.Int("per_page", 1)
	if !q.Valid(w) {
		return
	}

	users, err := h.accounts.ListUsers(r.Context(), principal(r), filter, page, perPage)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Users retrieved successfully", users)
}

var approvalStates = []string{models.ApprovalPending, models.ApprovalApproved, models.ApprovalRejected}

func (h *AccountHandler) ListVendors(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	filter := store.VendorFilter{
		Status: q.OneOf("status", approvalStates...),
		Search: q.String("search"),
	}
	page, perPage := q.Int("page", 1), q.Int("per_page", 1)
	if !q.Valid(w) {
		return
	}

	vendors, err := h.accounts.ListVendors(r.Context(), principal(r), filter, page, perPage)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Vendors retrieved successfully", vendors)
}

func (h *AccountHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "User not found.")
	if !ok {
		return
	}

	account, err := h.accounts.ApproveUser(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "User approved successfully", account)
}

func (h *AccountHandler) RejectUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "User not found.")
	if !ok {
		return
	}

	var req RejectRequestDTO
	if !decodeOptional(w, r, &req) {
		return
	}

	account, err := h.accounts.RejectUser(r.Context(), principal(r), id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "User rejected successfully", account)
}

func (h *AccountHandler) ApproveVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Vendor not found.")
	if !ok {
		return
	}

	account, err := h.accounts.ApproveVendor(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Vendor approved successfully", account)
}

func (h *AccountHandler) RejectVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Vendor not found.")
	if !ok {
		return
	}

	var req RejectRequestDTO
	if !decodeOptional(w, r, &req) {
		return
	}

	account, err := h.accounts.RejectVendor(r.Context(), principal(r), id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Vendor rejected successfully", account)
}
