// Package auth identifies the caller and decides what it may do. Every
// protected operation names its Capability and calls Authorize at its entry
// point; roles are a closed enum and there is no role inheritance.
package auth

import (
	"context"
	"errors"

	"github.com/safar/go-marketplace/internal/models"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("you do not have permission to perform this action")
	ErrNoVendor           = errors.New("user is not associated with a vendor")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Principal is the authenticated caller. VendorID is set only for vendor users.
type Principal struct {
	UserID   int64
	Role     models.Role
	VendorID *int64
}

type Capability string

const (
	CapManageCart        Capability = "cart:manage"
	CapCheckout          Capability = "checkout"
	CapViewOwnOrders     Capability = "orders:view-own"
	CapViewVendorOrders  Capability = "orders:view-vendor"
	CapViewAllOrders     Capability = "orders:view-all"
	CapUpdateOrderStatus Capability = "orders:update-status"
	CapManageProducts    Capability = "products:manage"
	CapManageCategories  Capability = "categories:manage"
	CapManageUsers       Capability = "users:manage"
	CapApproveAccounts   Capability = "accounts:approve"
)

var grants = map[Capability][]models.Role{
	CapManageCart:        {models.RoleCustomer},
	CapCheckout:          {models.RoleCustomer},
	CapViewOwnOrders:     {models.RoleCustomer},
	CapViewVendorOrders:  {models.RoleVendor},
	CapViewAllOrders:     {models.RoleAdmin},
	CapUpdateOrderStatus: {models.RoleVendor, models.RoleAdmin},
	CapManageProducts:    {models.RoleVendor, models.RoleAdmin},
	CapManageCategories:  {models.RoleAdmin},
	CapManageUsers:       {models.RoleAdmin},
	CapApproveAccounts:   {models.RoleAdmin},
}

// Authorize fails with ErrUnauthenticated for an empty principal and
// ErrForbidden when the role is not granted the capability.
func Authorize(p Principal, c Capability) error {
	if p.UserID == 0 {
		return ErrUnauthenticated
	}
	for _, role := range grants[c] {
		if p.Role == role {
			return nil
		}
	}
	return ErrForbidden
}

// VendorScope returns the vendor the principal acts for.
func (p Principal) VendorScope() (int64, error) {
	if p.Role != models.RoleVendor || p.VendorID == nil {
		return 0, ErrNoVendor
	}
	return *p.VendorID, nil
}

// OwnsOrder reports whether the principal may see or change the order:
// admins see everything, vendors their own vendor's orders, customers
// the orders they placed.
func (p Principal) OwnsOrder(order *models.Order) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleVendor:
		return p.VendorID != nil && order.VendorID != nil && *p.VendorID == *order.VendorID
	case models.RoleCustomer:
		return order.UserID == p.UserID
	}
	return false
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
