package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = `id, vendor_id, category_id, name, description, price, moq, status, created_at, updated_at`

func scanProduct(row rowScanner, product *models.Product) error {
	var vendorID sql.NullInt64
	err := row.Scan(
		&product.ID,
		&vendorID,
		&product.CategoryID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.MOQ,
		&product.Status,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return err
	}
	product.VendorID = nullInt64Ptr(vendorID)
	return nil
}

// CreateProductRequest creates a product; a nil VendorID makes it admin-owned.
type CreateProductRequest struct {
	VendorID    *int64
	CategoryID  int64
	Name        string
	Description string
	Price       decimal.Decimal
	MOQ         int
	Status      string
}

func CreateProduct(ctx context.Context, q database.Querier, req CreateProductRequest) (*models.Product, error) {
	if _, err := GetCategory(ctx, q, req.CategoryID); err != nil {
		return nil, err
	}
	leaf, err := IsLeafCategory(ctx, q, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if !leaf {
		return nil, database.ErrCategoryNotLeaf
	}

	if req.MOQ < 1 {
		req.MOQ = 1
	}
	if req.Status == "" {
		req.Status = models.ProductStatusActive
	}

	product := &models.Product{}

	query := `
		INSERT INTO products (vendor_id, category_id, name, description, price, moq, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + productColumns

	err = scanProduct(q.QueryRowContext(ctx, query,
		req.VendorID, req.CategoryID, req.Name, req.Description, req.Price, req.MOQ, req.Status), product)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, q database.Querier, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	if err := scanProduct(q.QueryRowContext(ctx, query, id), product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// UpdateProductRequest carries the fields to change; nil fields are left as is.
type UpdateProductRequest struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	MOQ         *int
	Status      *string
	// VendorID reassigns the product; ClearVendor makes it admin-owned.
	VendorID    *int64
	ClearVendor bool
}

// Reassigns reports whether the request moves the product to another owner.
func (r UpdateProductRequest) Reassigns() bool {
	return r.VendorID != nil || r.ClearVendor
}

// UpdateProduct changes catalog fields. Existing orders are unaffected
// because order items freeze their price at checkout.
func UpdateProduct(ctx context.Context, q database.Querier, id int64, req UpdateProductRequest) (*models.Product, error) {
	product := &models.Product{}

	query := `
		UPDATE products
		SET name        = COALESCE($2, name),
		    description = COALESCE($3, description),
		    price       = COALESCE($4, price),
		    moq         = COALESCE($5, moq),
		    status      = COALESCE($6, status),
		    vendor_id   = CASE WHEN $7 THEN NULL ELSE COALESCE($8, vendor_id) END,
		    version     = version + 1,
		    updated_at  = NOW()
		WHERE id = $1
		RETURNING ` + productColumns

	var price any
	if req.Price != nil {
		price = *req.Price
	}

	err := scanProduct(q.QueryRowContext(ctx, query,
		id, req.Name, req.Description, price, req.MOQ, req.Status, req.ClearVendor, req.VendorID), product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

// ProductHasOrders reports whether any variant of the product was ever ordered.
func ProductHasOrders(ctx context.Context, q database.Querier, id int64) (bool, error) {
	var ordered bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1
		     FROM order_items oi
		     JOIN product_variants v ON v.id = oi.product_variant_id
		     WHERE v.product_id = $1
		 )`,
		id).Scan(&ordered)
	if err != nil {
		return false, fmt.Errorf("check product orders: %w", err)
	}
	return ordered, nil
}

// DeleteProduct removes the product and, by cascade, its variants. Cart lines
// pointing at those variants stay behind with a NULL variant.
func DeleteProduct(ctx context.Context, q database.Querier, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

type ProductFilter struct {
	VendorID   *int64
	CategoryID *int64
	Status     string
}

func ListProducts(ctx context.Context, q database.Querier, filter ProductFilter, page, pageSize int) (*OffsetPage, error) {
	var conditions []string
	var args []any

	if filter.VendorID != nil {
		args = append(args, *filter.VendorID)
		conditions = append(conditions, fmt.Sprintf("vendor_id = $%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	args = append(args, pageSize, offsetFor(page, pageSize))
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, productColumns, where, len(args)-1, len(args))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(products, total, page, pageSize), nil
}
