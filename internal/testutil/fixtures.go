package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/safar/go-marketplace/internal/auth"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/store"
	"github.com/shopspring/decimal"
)

var seq atomic.Int64

func next() int64 { return seq.Add(1) }

func CreateCustomer(t *testing.T, db *sql.DB) auth.Principal {
	t.Helper()
	user := createUser(t, db, models.RoleCustomer, models.ApprovalApproved)
	return auth.Principal{UserID: user.ID, Role: models.RoleCustomer}
}

func CreateAdmin(t *testing.T, db *sql.DB) auth.Principal {
	t.Helper()
	user := createUser(t, db, models.RoleAdmin, models.ApprovalApproved)
	return auth.Principal{UserID: user.ID, Role: models.RoleAdmin}
}

// CreateVendor creates a vendor user with its vendor row.
func CreateVendor(t *testing.T, db *sql.DB) auth.Principal {
	t.Helper()
	return CreateVendorWithStatus(t, db, models.ApprovalApproved)
}

// CreateVendorWithStatus creates a vendor whose user and vendor rows are both
// in the given approval state.
func CreateVendorWithStatus(t *testing.T, db *sql.DB, status string) auth.Principal {
	t.Helper()
	user := createUser(t, db, models.RoleVendor, status)

	vendor, err := store.CreateVendor(context.Background(), db, user.ID, fmt.Sprintf("Vendor %d", user.ID), status)
	if err != nil {
		t.Fatalf("Failed to create vendor: %v", err)
	}

	return auth.Principal{UserID: user.ID, Role: models.RoleVendor, VendorID: &vendor.ID}
}

func createUser(t *testing.T, db *sql.DB, role models.Role, approval string) *models.User {
	t.Helper()
	n := next()

	user, err := store.CreateUser(context.Background(), db,
		fmt.Sprintf("%s%d@example.com", role, n), fmt.Sprintf("%s %d", role, n), "not-a-real-hash", role, approval)
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func CreateLeafCategory(t *testing.T, db *sql.DB) *models.Category {
	t.Helper()
	n := next()

	category, err := store.CreateCategory(context.Background(), db, fmt.Sprintf("Category %d", n), fmt.Sprintf("category-%d", n), nil)
	if err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}
	return category
}

type ProductOpts struct {
	VendorID *int64
	Price    string
	MOQ      int
	Status   string
}

func CreateProduct(t *testing.T, db *sql.DB, opts ProductOpts) *models.Product {
	t.Helper()
	if opts.Price == "" {
		opts.Price = "10.00"
	}
	if opts.MOQ == 0 {
		opts.MOQ = 1
	}
	if opts.Status == "" {
		opts.Status = models.ProductStatusActive
	}

	category := CreateLeafCategory(t, db)
	product, err := store.CreateProduct(context.Background(), db, store.CreateProductRequest{
		VendorID:   opts.VendorID,
		CategoryID: category.ID,
		Name:       fmt.Sprintf("Product %d", next()),
		Price:      decimal.RequireFromString(opts.Price),
		MOQ:        opts.MOQ,
		Status:     opts.Status,
	})
	if err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}
	return product
}

// CreateVariant adds a variant with the given stock. An empty priceOverride
// leaves the product price in effect.
func CreateVariant(t *testing.T, db *sql.DB, productID int64, stock int, priceOverride string) *models.ProductVariant {
	t.Helper()

	req := store.CreateVariantRequest{
		ProductID: productID,
		SKU:       fmt.Sprintf("SKU-%d", next()),
		Stock:     stock,
	}
	if priceOverride != "" {
		req.PriceOverride = decimal.NewNullDecimal(decimal.RequireFromString(priceOverride))
	}

	variant, err := store.CreateVariant(context.Background(), db, req)
	if err != nil {
		t.Fatalf("Failed to create variant: %v", err)
	}
	return variant
}

// AddToCart writes a cart line directly, bypassing stock checks.
func AddToCart(t *testing.T, db *sql.DB, userID, variantID int64, quantity int) *models.CartItem {
	t.Helper()
	ctx := context.Background()

	cart, err := store.GetOrCreateCart(ctx, db, userID)
	if err != nil {
		t.Fatalf("Failed to create cart: %v", err)
	}
	item, err := store.InsertCartItem(ctx, db, cart.ID, variantID, quantity)
	if err != nil {
		t.Fatalf("Failed to add cart item: %v", err)
	}
	return item
}

func VariantStock(t *testing.T, db *sql.DB, variantID int64) int {
	t.Helper()

	variant, err := store.GetVariant(context.Background(), db, variantID)
	if err != nil {
		t.Fatalf("Failed to get variant: %v", err)
	}
	return variant.Stock
}

func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}
