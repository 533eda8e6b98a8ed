package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/store"
	"github.com/safar/go-marketplace/internal/testutil"
	"github.com/shopspring/decimal"
)

func TestEffectivePrice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	product := testutil.CreateProduct(t, db, testutil.ProductOpts{Price: "25.00"})
	plain := testutil.CreateVariant(t, db, product.ID, 1, "")
	override := testutil.CreateVariant(t, db, product.ID, 1, "19.99")

	price, err := store.EffectivePrice(ctx, db, plain)
	if err != nil {
		t.Fatalf("Effective price: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("25.00")) {
		t.Errorf("Expected product price 25.00, got %s", price)
	}
	if plain.Product == nil || plain.Product.ID != product.ID {
		t.Errorf("Expected product to be attached to the variant")
	}

	price, err = store.EffectivePrice(ctx, db, override)
	if err != nil {
		t.Fatalf("Effective price: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("19.99")) {
		t.Errorf("Expected override price 19.99, got %s", price)
	}
}

func TestCategoryTree(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	root, err := store.CreateCategory(ctx, db, "Eyewear", "eyewear", nil)
	if err != nil {
		t.Fatalf("Create root: %v", err)
	}
	men, err := store.CreateCategory(ctx, db, "Men", "men", &root.ID)
	if err != nil {
		t.Fatalf("Create child: %v", err)
	}
	women, err := store.CreateCategory(ctx, db, "Women", "women", &root.ID)
	if err != nil {
		t.Fatalf("Create child: %v", err)
	}
	aviator, err := store.CreateCategory(ctx, db, "Aviator", "aviator", &men.ID)
	if err != nil {
		t.Fatalf("Create grandchild: %v", err)
	}

	if _, err := store.CreateCategory(ctx, db, "Men again", "men", &root.ID); !errors.Is(err, database.ErrDuplicateSlug) {
		t.Errorf("Expected duplicate slug under the same parent, got: %v", err)
	}
	if _, err := store.CreateCategory(ctx, db, "Men", "men", &women.ID); err != nil {
		t.Errorf("Same slug under a different parent should be allowed: %v", err)
	}

	path, err := store.CategoryPath(ctx, db, aviator.ID, " > ")
	if err != nil {
		t.Fatalf("Category path: %v", err)
	}
	if path != "Eyewear > Men > Aviator" {
		t.Errorf("Expected path %q, got %q", "Eyewear > Men > Aviator", path)
	}

	descendants, err := store.CategoryDescendants(ctx, db, root.ID)
	if err != nil {
		t.Fatalf("Descendants: %v", err)
	}
	if len(descendants) != 4 {
		t.Fatalf("Expected 4 descendants, got %d", len(descendants))
	}
	for i, d := range descendants {
		directChild := d.ParentID != nil && *d.ParentID == root.ID
		if directChild != (i < 2) {
			t.Errorf("Expected children before grandchildren, got %s at position %d", d.Name, i)
		}
	}

	leaf, err := store.IsLeafCategory(ctx, db, men.ID)
	if err != nil {
		t.Fatalf("Is leaf: %v", err)
	}
	if leaf {
		t.Errorf("Category with children should not be a leaf")
	}

	_, err = store.CreateProduct(ctx, db, store.CreateProductRequest{
		CategoryID: men.ID,
		Name:       "Frames",
		Price:      decimal.NewFromInt(10),
	})
	if !errors.Is(err, database.ErrCategoryNotLeaf) {
		t.Errorf("Expected category not leaf, got: %v", err)
	}

	if err := store.DeleteCategory(ctx, db, men.ID); !errors.Is(err, database.ErrCategoryHasChildren) {
		t.Errorf("Expected category has children, got: %v", err)
	}
	if err := store.DeleteCategory(ctx, db, aviator.ID); err != nil {
		t.Errorf("Delete leaf category: %v", err)
	}
}

func TestUpdateVariant(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	product := testutil.CreateProduct(t, db, testutil.ProductOpts{Price: "40.00"})
	variant := testutil.CreateVariant(t, db, product.ID, 5, "35.00")

	stale := variant.Version
	newStock := 8

	var updated *models.ProductVariant
	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(uow *database.UnitOfWork) error {
		var err error
		updated, err = store.UpdateVariant(ctx, uow, variant.ID, store.UpdateVariantRequest{
			ClearPriceOverride: true,
			Stock:              &newStock,
			Attributes:         map[string]string{"color": "black", "size": "L"},
			Version:            &stale,
		})
		return err
	})
	if err != nil {
		t.Fatalf("Update variant: %v", err)
	}

	if updated.PriceOverride.Valid {
		t.Errorf("Expected price override to be cleared")
	}
	if updated.Stock != 8 {
		t.Errorf("Expected stock 8, got %d", updated.Stock)
	}
	if updated.Attributes["color"] != "black" || updated.Attributes["size"] != "L" {
		t.Errorf("Unexpected attributes: %v", updated.Attributes)
	}
	price, _ := updated.EffectivePrice()
	if !price.Equal(decimal.RequireFromString("40.00")) {
		t.Errorf("Expected product price after clearing override, got %s", price)
	}

	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(uow *database.UnitOfWork) error {
		_, err := store.UpdateVariant(ctx, uow, variant.ID, store.UpdateVariantRequest{Version: &stale})
		return err
	})
	if !errors.Is(err, database.ErrOptimisticLockFailed) {
		t.Errorf("Expected optimistic lock failure with stale version, got: %v", err)
	}
}

func TestVariantAttributes_LastWriteWins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	product := testutil.CreateProduct(t, db, testutil.ProductOpts{})
	variant := testutil.CreateVariant(t, db, product.ID, 1, "")

	for _, color := range []string{"red", "blue"} {
		if err := store.SetVariantAttribute(ctx, db, variant.ID, "color", color); err != nil {
			t.Fatalf("Set attribute: %v", err)
		}
	}

	attrs, err := store.VariantAttributes(ctx, db, variant.ID)
	if err != nil {
		t.Fatalf("Variant attributes: %v", err)
	}
	if len(attrs) != 1 || attrs["color"] != "blue" {
		t.Errorf("Expected single color=blue attribute, got %v", attrs)
	}
}

func TestDuplicateSKU(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	product := testutil.CreateProduct(t, db, testutil.ProductOpts{})
	variant := testutil.CreateVariant(t, db, product.ID, 1, "")

	_, err := store.CreateVariant(ctx, db, store.CreateVariantRequest{ProductID: product.ID, SKU: variant.SKU})
	if !errors.Is(err, database.ErrDuplicateSKU) {
		t.Errorf("Expected duplicate SKU, got: %v", err)
	}
}

func TestCartItems_DeletedVariantContributesZero(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	customer := testutil.CreateCustomer(t, db)
	product := testutil.CreateProduct(t, db, testutil.ProductOpts{Price: "10.00"})
	kept := testutil.CreateVariant(t, db, product.ID, 10, "")
	gone := testutil.CreateVariant(t, db, product.ID, 10, "")

	testutil.AddToCart(t, db, customer.UserID, kept.ID, 2)
	testutil.AddToCart(t, db, customer.UserID, gone.ID, 3)

	if _, err := db.Exec(`DELETE FROM product_variants WHERE id = $1`, gone.ID); err != nil {
		t.Fatalf("Delete variant: %v", err)
	}

	cart, err := store.GetCart(ctx, db, customer.UserID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}
	items, err := store.ListCartItems(ctx, db, cart.ID)
	if err != nil {
		t.Fatalf("List cart items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	if !total.Equal(decimal.RequireFromString("20.00")) {
		t.Errorf("Expected total 20.00, got %s", total)
	}
	if items[1].Variant != nil || !items[1].Subtotal.IsZero() {
		t.Errorf("Expected stale item with no variant and zero subtotal")
	}
}

func TestCartItem_UniquePerVariant(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	customer := testutil.CreateCustomer(t, db)
	product := testutil.CreateProduct(t, db, testutil.ProductOpts{})
	variant := testutil.CreateVariant(t, db, product.ID, 10, "")

	item := testutil.AddToCart(t, db, customer.UserID, variant.ID, 1)

	_, err := store.InsertCartItem(ctx, db, item.CartID, variant.ID, 1)
	if !database.IsUniqueViolation(err, "") {
		t.Errorf("Expected unique violation, got: %v", err)
	}

	if _, err := store.InsertCartItem(ctx, db, item.CartID, variant.ID, 0); !errors.Is(err, database.ErrInvalidQuantity) {
		t.Errorf("Expected invalid quantity, got: %v", err)
	}
}
