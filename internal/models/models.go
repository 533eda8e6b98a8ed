package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleVendor   Role = "vendor"
	RoleCustomer Role = "customer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleVendor, RoleCustomer:
		return true
	}
	return false
}

// Approval states shared by users.approval_status and vendors.status.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

type User struct {
	ID              int64      `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	PasswordHash    string     `json:"-"`
	Role            Role       `json:"role"`
	ApprovalStatus  string     `json:"approval_status"`
	ApprovedAt      *time.Time `json:"approved_at"`
	ApprovedBy      *int64     `json:"approved_by"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Version         int        `json:"version"`
}

func (u *User) IsApproved() bool {
	return u.ApprovalStatus == ApprovalApproved
}

type Vendor struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (v *Vendor) IsApproved() bool {
	return v.Status == ApprovalApproved
}

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	ParentID  *int64    `json:"parent_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

type Product struct {
	ID          int64           `json:"id"`
	VendorID    *int64          `json:"vendor_id"`
	CategoryID  int64           `json:"category_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	MOQ         int             `json:"moq"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

type ProductVariant struct {
	ID            int64               `json:"id"`
	ProductID     int64               `json:"product_id"`
	SKU           string              `json:"sku"`
	PriceOverride decimal.NullDecimal `json:"price_override"`
	Stock         int                 `json:"stock"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Version       int                 `json:"version"`
	Attributes    map[string]string   `json:"attributes,omitempty"`
	Product       *Product            `json:"product,omitempty"`
}

// HasStock reports whether qty units can be taken from the last observed stock.
func (v *ProductVariant) HasStock(qty int) bool {
	return v.Stock >= qty
}

// EffectivePrice returns the override price, falling back to the loaded
// product's price. The second result is false when the fallback is needed
// but Product has not been loaded.
func (v *ProductVariant) EffectivePrice() (decimal.Decimal, bool) {
	if v.PriceOverride.Valid {
		return v.PriceOverride.Decimal, true
	}
	if v.Product == nil {
		return decimal.Zero, false
	}
	return v.Product.Price, true
}

type Cart struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CartItem struct {
	ID        int64           `json:"id"`
	CartID    int64           `json:"cart_id"`
	VariantID *int64          `json:"product_variant_id"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Variant   *ProductVariant `json:"variant,omitempty"`
}

// ComputeSubtotal sets Subtotal from the loaded variant. Items whose variant
// is gone (or not loaded) count as zero.
func (i *CartItem) ComputeSubtotal() decimal.Decimal {
	i.Subtotal = decimal.Zero
	if i.Variant == nil {
		return i.Subtotal
	}
	price, ok := i.Variant.EffectivePrice()
	if !ok {
		return i.Subtotal
	}
	i.Subtotal = price.Mul(decimal.NewFromInt(int64(i.Quantity)))
	return i.Subtotal
}

// CartView is the customer-facing cart: the cart row, its items and total.
type CartView struct {
	Cart  Cart            `json:"cart"`
	Items []CartItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

type Order struct {
	ID            int64                `json:"id"`
	OrderNumber   string               `json:"order_number"`
	VendorID      *int64               `json:"vendor_id"`
	UserID        int64                `json:"user_id"`
	Status        string               `json:"status"`
	Total         decimal.Decimal      `json:"total"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Version       int                  `json:"version"`
	Items         []OrderItem          `json:"items,omitempty"`
	StatusHistory []OrderStatusHistory `json:"status_history,omitempty"`
}

type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	VendorID  *int64          `json:"vendor_id"`
	VariantID *int64          `json:"product_variant_id"`
	SKU       string          `json:"sku,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
}

type OrderStatusHistory struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Status    string    `json:"status"`
	ChangedBy int64     `json:"changed_by"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// OrderStatuses lists the recognized statuses in lifecycle order.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}
