package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
)

const cartItemColumns = `id, cart_id, product_variant_id, quantity, created_at, updated_at`

func scanCartItem(row rowScanner, item *models.CartItem) error {
	var variantID sql.NullInt64
	err := row.Scan(
		&item.ID,
		&item.CartID,
		&variantID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return err
	}
	item.VariantID = nullInt64Ptr(variantID)
	return nil
}

// GetOrCreateCart returns the customer's cart, creating it on first access.
func GetOrCreateCart(ctx context.Context, q database.Querier, userID int64) (*models.Cart, error) {
	_, err := q.ExecContext(ctx,
		`INSERT INTO carts (user_id, created_at, updated_at)
		 VALUES ($1, NOW(), NOW())
		 ON CONFLICT (user_id) DO NOTHING`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	return GetCart(ctx, q, userID)
}

func GetCart(ctx context.Context, q database.Querier, userID int64) (*models.Cart, error) {
	cart := &models.Cart{}

	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`,
		userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return cart, nil
}

// LockCart creates the cart if needed and holds its row lock for the rest of
// the unit of work, serializing mutations of one customer's cart.
func LockCart(ctx context.Context, uow *database.UnitOfWork, userID int64) (*models.Cart, error) {
	if _, err := GetOrCreateCart(ctx, uow, userID); err != nil {
		return nil, err
	}

	cart := &models.Cart{}
	err := uow.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1 FOR UPDATE`,
		userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("lock cart: %w", err)
	}

	return cart, nil
}

// ListCartItems returns the cart's items with their variants and products
// loaded. Items whose variant has been deleted keep a nil Variant.
func ListCartItems(ctx context.Context, q database.Querier, cartID int64) ([]models.CartItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+cartItemColumns+`
		 FROM cart_items
		 WHERE cart_id = $1
		 ORDER BY id`,
		cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	var variantIDs []int64
	for rows.Next() {
		var item models.CartItem
		if err := scanCartItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		if item.VariantID != nil {
			variantIDs = append(variantIDs, *item.VariantID)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	rows.Close()

	variants, err := loadVariantsWithProducts(ctx, q, variantIDs)
	if err != nil {
		return nil, err
	}

	for i := range items {
		if items[i].VariantID != nil {
			items[i].Variant = variants[*items[i].VariantID]
		}
		items[i].ComputeSubtotal()
	}

	return items, nil
}

func loadVariantsWithProducts(ctx context.Context, q database.Querier, ids []int64) (map[int64]*models.ProductVariant, error) {
	variants := make(map[int64]*models.ProductVariant, len(ids))
	if len(ids) == 0 {
		return variants, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+variantColumns+` FROM product_variants WHERE id = ANY($1)`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("load variants: %w", err)
	}
	defer rows.Close()

	var productIDs []int64
	for rows.Next() {
		variant := &models.ProductVariant{}
		if err := scanVariant(rows, variant); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants[variant.ID] = variant
		productIDs = append(productIDs, variant.ProductID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	rows.Close()

	products, err := loadProducts(ctx, q, productIDs)
	if err != nil {
		return nil, err
	}
	for _, variant := range variants {
		variant.Product = products[variant.ProductID]
	}

	return variants, nil
}

func loadProducts(ctx context.Context, q database.Querier, ids []int64) (map[int64]*models.Product, error) {
	products := make(map[int64]*models.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1)`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		product := &models.Product{}
		if err := scanProduct(rows, product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products[product.ID] = product
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// GetCartItem returns the item only when it belongs to cartID.
func GetCartItem(ctx context.Context, q database.Querier, cartID, itemID int64) (*models.CartItem, error) {
	item := &models.CartItem{}

	err := scanCartItem(q.QueryRowContext(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE id = $1 AND cart_id = $2`,
		itemID, cartID), item)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("get cart item: %w", err)
	}

	return item, nil
}

// FindCartItemByVariant returns the cart's line for variantID, or nil.
func FindCartItemByVariant(ctx context.Context, q database.Querier, cartID, variantID int64) (*models.CartItem, error) {
	item := &models.CartItem{}

	err := scanCartItem(q.QueryRowContext(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = $1 AND product_variant_id = $2`,
		cartID, variantID), item)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find cart item: %w", err)
	}

	return item, nil
}

func InsertCartItem(ctx context.Context, q database.Querier, cartID, variantID int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, database.ErrInvalidQuantity
	}

	item := &models.CartItem{}

	err := scanCartItem(q.QueryRowContext(ctx,
		`INSERT INTO cart_items (cart_id, product_variant_id, quantity, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 RETURNING `+cartItemColumns,
		cartID, variantID, quantity), item)
	if err != nil {
		return nil, fmt.Errorf("insert cart item: %w", err)
	}
	if err := touchCart(ctx, q, cartID); err != nil {
		return nil, err
	}

	return item, nil
}

func SetCartItemQuantity(ctx context.Context, q database.Querier, itemID int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, database.ErrInvalidQuantity
	}

	item := &models.CartItem{}

	err := scanCartItem(q.QueryRowContext(ctx,
		`UPDATE cart_items
		 SET quantity = $1, updated_at = NOW()
		 WHERE id = $2
		 RETURNING `+cartItemColumns,
		quantity, itemID), item)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	if err := touchCart(ctx, q, item.CartID); err != nil {
		return nil, err
	}

	return item, nil
}

func DeleteCartItem(ctx context.Context, q database.Querier, cartID, itemID int64) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`,
		itemID, cartID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrCartItemNotFound
	}

	return touchCart(ctx, q, cartID)
}

// ClearCart deletes every item of the cart; the cart row itself stays.
func ClearCart(ctx context.Context, q database.Querier, cartID int64) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		if err := touchCart(ctx, q, cartID); err != nil {
			return 0, err
		}
	}

	return rowsAffected, nil
}

// touchCart bumps the cart's version after any change to its items.
func touchCart(ctx context.Context, q database.Querier, cartID int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE carts SET version = version + 1, updated_at = NOW() WHERE id = $1`,
		cartID)
	if err != nil {
		return fmt.Errorf("touch cart %d: %w", cartID, err)
	}
	return nil
}

// CartStamp fingerprints everything a rendered cart view is built from: the
// cart's own version, how many of its lines still point at a variant, and the
// versions of those variants and their products. Every cart mutation and every
// variant, stock or product edit moves it, and it never returns to an earlier
// value, so a view rendered under an older stamp is known to be stale.
func CartStamp(ctx context.Context, q database.Querier, userID int64) (string, error) {
	var cartVersion, lines, variantVersions, productVersions int64

	err := q.QueryRowContext(ctx,
		`SELECT c.version,
		        COUNT(v.id),
		        COALESCE(SUM(v.version), 0),
		        COALESCE(SUM(p.version), 0)
		 FROM carts c
		 LEFT JOIN cart_items ci ON ci.cart_id = c.id
		 LEFT JOIN product_variants v ON v.id = ci.product_variant_id
		 LEFT JOIN products p ON p.id = v.product_id
		 WHERE c.user_id = $1
		 GROUP BY c.id, c.version`,
		userID).Scan(&cartVersion, &lines, &variantVersions, &productVersions)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", database.ErrCartNotFound
		}
		return "", fmt.Errorf("cart stamp: %w", err)
	}

	return fmt.Sprintf("%d.%d.%d.%d", cartVersion, lines, variantVersions, productVersions), nil
}
