package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
)

const vendorColumns = `id, user_id, name, status, created_at, updated_at`

func scanVendor(row rowScanner, vendor *models.Vendor) error {
	return row.Scan(
		&vendor.ID,
		&vendor.UserID,
		&vendor.Name,
		&vendor.Status,
		&vendor.CreatedAt,
		&vendor.UpdatedAt,
	)
}

func CreateVendor(ctx context.Context, q database.Querier, userID int64, name, status string) (*models.Vendor, error) {
	vendor := &models.Vendor{}

	query := `
		INSERT INTO vendors (user_id, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING ` + vendorColumns

	if err := scanVendor(q.QueryRowContext(ctx, query, userID, name, status), vendor); err != nil {
		return nil, fmt.Errorf("create vendor: %w", err)
	}

	return vendor, nil
}

func GetVendor(ctx context.Context, q database.Querier, id int64) (*models.Vendor, error) {
	vendor := &models.Vendor{}

	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1`

	if err := scanVendor(q.QueryRowContext(ctx, query, id), vendor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrVendorNotFound
		}
		return nil, fmt.Errorf("get vendor: %w", err)
	}

	return vendor, nil
}

func GetVendorByUserID(ctx context.Context, q database.Querier, userID int64) (*models.Vendor, error) {
	vendor := &models.Vendor{}

	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE user_id = $1`

	if err := scanVendor(q.QueryRowContext(ctx, query, userID), vendor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrVendorNotFound
		}
		return nil, fmt.Errorf("get vendor by user: %w", err)
	}

	return vendor, nil
}

func LockVendor(ctx context.Context, uow *database.UnitOfWork, id int64) (*models.Vendor, error) {
	vendor := &models.Vendor{}

	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1 FOR UPDATE`

	if err := scanVendor(uow.QueryRowContext(ctx, query, id), vendor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrVendorNotFound
		}
		return nil, fmt.Errorf("lock vendor %d: %w", id, err)
	}

	return vendor, nil
}

func SetVendorStatus(ctx context.Context, q database.Querier, id int64, status string) (*models.Vendor, error) {
	vendor := &models.Vendor{}

	query := `
		UPDATE vendors
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + vendorColumns

	if err := scanVendor(q.QueryRowContext(ctx, query, id, status), vendor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrVendorNotFound
		}
		return nil, fmt.Errorf("set vendor status: %w", err)
	}

	return vendor, nil
}

type VendorFilter struct {
	Status string
	Search string
}

func ListVendors(ctx context.Context, q database.Querier, filter VendorFilter, page, pageSize int) (*OffsetPage, error) {
	var conditions []string
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM vendors `+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count vendors: %w", err)
	}

	args = append(args, pageSize, offsetFor(page, pageSize))
	query := fmt.Sprintf(`
		SELECT %s
		FROM vendors
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, vendorColumns, where, len(args)-1, len(args))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	vendors := []models.Vendor{}
	for rows.Next() {
		var vendor models.Vendor
		if err := scanVendor(rows, &vendor); err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, vendor)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(vendors, total, page, pageSize), nil
}
