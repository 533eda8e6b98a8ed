package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

const variantColumns = `id, product_id, sku, price_override, stock, created_at, updated_at, version`

func scanVariant(row rowScanner, variant *models.ProductVariant) error {
	return row.Scan(
		&variant.ID,
		&variant.ProductID,
		&variant.SKU,
		&variant.PriceOverride,
		&variant.Stock,
		&variant.CreatedAt,
		&variant.UpdatedAt,
		&variant.Version,
	)
}

type CreateVariantRequest struct {
	ProductID     int64
	SKU           string
	PriceOverride decimal.NullDecimal
	Stock         int
	Attributes    map[string]string
}

// CreateVariant inserts the variant and its attributes. Pass a unit of work
// to make both writes atomic.
func CreateVariant(ctx context.Context, q database.Querier, req CreateVariantRequest) (*models.ProductVariant, error) {
	if _, err := GetProduct(ctx, q, req.ProductID); err != nil {
		return nil, err
	}

	variant := &models.ProductVariant{}

	query := `
		INSERT INTO product_variants (product_id, sku, price_override, stock, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, NOW(), NOW(), 1)
		RETURNING ` + variantColumns

	err := scanVariant(q.QueryRowContext(ctx, query,
		req.ProductID, req.SKU, req.PriceOverride, max(0, req.Stock)), variant)
	if err != nil {
		if database.IsUniqueViolation(err, "product_variants_sku_unique") {
			return nil, database.ErrDuplicateSKU
		}
		return nil, fmt.Errorf("create variant: %w", err)
	}

	for name, value := range req.Attributes {
		if err := SetVariantAttribute(ctx, q, variant.ID, name, value); err != nil {
			return nil, err
		}
	}

	variant.Attributes, err = VariantAttributes(ctx, q, variant.ID)
	if err != nil {
		return nil, err
	}

	return variant, nil
}

func GetVariant(ctx context.Context, q database.Querier, id int64) (*models.ProductVariant, error) {
	variant := &models.ProductVariant{}

	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE id = $1`

	if err := scanVariant(q.QueryRowContext(ctx, query, id), variant); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrVariantNotFound
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}

	return variant, nil
}

// GetVariantWithProduct loads the variant, its product and its attributes.
func GetVariantWithProduct(ctx context.Context, q database.Querier, id int64) (*models.ProductVariant, error) {
	variant, err := GetVariant(ctx, q, id)
	if err != nil {
		return nil, err
	}

	variant.Product, err = GetProduct(ctx, q, variant.ProductID)
	if err != nil {
		return nil, err
	}

	variant.Attributes, err = VariantAttributes(ctx, q, variant.ID)
	if err != nil {
		return nil, err
	}

	return variant, nil
}

func ListVariants(ctx context.Context, q database.Querier, productID int64) ([]models.ProductVariant, error) {
	query := `
		SELECT ` + variantColumns + `
		FROM product_variants
		WHERE product_id = $1
		ORDER BY id`

	rows, err := q.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	variants := []models.ProductVariant{}
	for rows.Next() {
		var variant models.ProductVariant
		if err := scanVariant(rows, &variant); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants = append(variants, variant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return variants, nil
}

// LockVariants takes row locks on the given variants in ascending id order
// and returns their current state keyed by id. Locking in a fixed order keeps
// concurrent checkouts over overlapping carts from deadlocking each other.
func LockVariants(ctx context.Context, uow *database.UnitOfWork, ids []int64) (map[int64]*models.ProductVariant, error) {
	query := `
		SELECT ` + variantColumns + `
		FROM product_variants
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`

	rows, err := uow.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("lock variants: %w", err)
	}
	defer rows.Close()

	locked := make(map[int64]*models.ProductVariant, len(ids))
	for rows.Next() {
		variant := &models.ProductVariant{}
		if err := scanVariant(rows, variant); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		locked[variant.ID] = variant
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return locked, nil
}

// UpdateStock is the only writer of product_variants.stock. An increase is
// applied unconditionally; a decrease that would take stock below zero fails
// with ErrInsufficientStock and leaves the row untouched. The row is read
// FOR UPDATE so concurrent writers serialize on it and the second one sees
// the stock left by the first.
func UpdateStock(ctx context.Context, uow *database.UnitOfWork, variantID int64, quantity int, increase bool) (int, error) {
	if quantity < 0 {
		return 0, fmt.Errorf("update stock: negative quantity %d", quantity)
	}

	var stock int
	err := uow.QueryRowContext(ctx,
		`SELECT stock FROM product_variants WHERE id = $1 FOR UPDATE`,
		variantID).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, database.ErrVariantNotFound
		}
		return 0, fmt.Errorf("lock variant %d: %w", variantID, err)
	}

	newStock := stock + quantity
	if !increase {
		newStock = stock - quantity
		if newStock < 0 {
			return stock, database.ErrInsufficientStock
		}
	}

	_, err = uow.ExecContext(ctx,
		`UPDATE product_variants
		 SET stock = $1,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $2`,
		newStock, variantID)
	if err != nil {
		return stock, fmt.Errorf("update stock: %w", err)
	}

	return newStock, nil
}

// SetStock moves a variant to an absolute stock level through UpdateStock.
func SetStock(ctx context.Context, uow *database.UnitOfWork, variantID int64, stock int) (int, error) {
	stock = max(0, stock)

	variant, err := LockVariants(ctx, uow, []int64{variantID})
	if err != nil {
		return 0, err
	}
	current, ok := variant[variantID]
	if !ok {
		return 0, database.ErrVariantNotFound
	}

	delta := stock - current.Stock
	if delta >= 0 {
		return UpdateStock(ctx, uow, variantID, delta, true)
	}
	return UpdateStock(ctx, uow, variantID, -delta, false)
}

// DeleteVariant removes the variant. Cart and order lines keep their rows with
// a NULL variant; orders already carry their frozen price.
func DeleteVariant(ctx context.Context, q database.Querier, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM product_variants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete variant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrVariantNotFound
	}

	return nil
}

type UpdateVariantRequest struct {
	SKU                *string
	PriceOverride      *decimal.Decimal
	ClearPriceOverride bool
	Stock              *int
	Attributes         map[string]string
	// Version, when set, must match the stored version or the update fails
	// with ErrOptimisticLockFailed.
	Version *int
}

func UpdateVariant(ctx context.Context, uow *database.UnitOfWork, id int64, req UpdateVariantRequest) (*models.ProductVariant, error) {
	locked, err := LockVariants(ctx, uow, []int64{id})
	if err != nil {
		return nil, err
	}
	current, ok := locked[id]
	if !ok {
		return nil, database.ErrVariantNotFound
	}

	if req.Version != nil && *req.Version != current.Version {
		return nil, database.ErrOptimisticLockFailed
	}

	priceOverride := current.PriceOverride
	if req.ClearPriceOverride {
		priceOverride = decimal.NullDecimal{}
	} else if req.PriceOverride != nil {
		priceOverride = decimal.NewNullDecimal(*req.PriceOverride)
	}

	sku := current.SKU
	if req.SKU != nil {
		sku = *req.SKU
	}

	_, err = uow.ExecContext(ctx,
		`UPDATE product_variants
		 SET sku = $1,
		     price_override = $2,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $3`,
		sku, priceOverride, id)
	if err != nil {
		if database.IsUniqueViolation(err, "product_variants_sku_unique") {
			return nil, database.ErrDuplicateSKU
		}
		return nil, fmt.Errorf("update variant: %w", err)
	}

	if req.Stock != nil {
		if _, err := SetStock(ctx, uow, id, *req.Stock); err != nil {
			return nil, err
		}
	}

	for name, value := range req.Attributes {
		if err := SetVariantAttribute(ctx, uow, id, name, value); err != nil {
			return nil, err
		}
	}

	return GetVariantWithProduct(ctx, uow, id)
}

// SetVariantAttribute sets or replaces the named attribute of a variant.
func SetVariantAttribute(ctx context.Context, q database.Querier, variantID int64, name, value string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO product_variant_attributes (product_variant_id, attribute_name, attribute_value, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 ON CONFLICT (product_variant_id, attribute_name)
		 DO UPDATE SET attribute_value = EXCLUDED.attribute_value, updated_at = NOW()`,
		variantID, name, value)
	if err != nil {
		return fmt.Errorf("set variant attribute %q: %w", name, err)
	}
	return nil
}

func VariantAttributes(ctx context.Context, q database.Querier, variantID int64) (map[string]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT attribute_name, attribute_value
		 FROM product_variant_attributes
		 WHERE product_variant_id = $1`,
		variantID)
	if err != nil {
		return nil, fmt.Errorf("list variant attributes: %w", err)
	}
	defer rows.Close()

	attributes := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan variant attribute: %w", err)
		}
		attributes[name] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return attributes, nil
}
