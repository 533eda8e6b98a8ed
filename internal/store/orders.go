package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, order_number, vendor_id, user_id, status, total, created_at, updated_at, version`

func scanOrder(row rowScanner, order *models.Order) error {
	var vendorID sql.NullInt64
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&vendorID,
		&order.UserID,
		&order.Status,
		&order.Total,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	if err != nil {
		return err
	}
	order.VendorID = nullInt64Ptr(vendorID)
	return nil
}

func generateOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString())
}

// CreateOrder inserts a pending order header. Items and history are added
// by the caller within the same unit of work.
func CreateOrder(ctx context.Context, uow *database.UnitOfWork, vendorID *int64, userID int64, total decimal.Decimal) (*models.Order, error) {
	order := &models.Order{}

	query := `
		INSERT INTO orders (order_number, vendor_id, user_id, status, total, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW(), 1)
		RETURNING ` + orderColumns

	err := scanOrder(uow.QueryRowContext(ctx, query,
		generateOrderNumber(), vendorID, userID, models.OrderStatusPending, total), order)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return order, nil
}

// CreateOrderItem freezes the unit price and quantity charged for a variant.
func CreateOrderItem(ctx context.Context, uow *database.UnitOfWork, orderID int64, vendorID *int64, variantID int64, quantity int, price decimal.Decimal) (*models.OrderItem, error) {
	item := &models.OrderItem{}
	var vID, varID sql.NullInt64

	err := uow.QueryRowContext(ctx,
		`INSERT INTO order_items (order_id, vendor_id, product_variant_id, quantity, price, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING id, order_id, vendor_id, product_variant_id, quantity, price, created_at`,
		orderID, vendorID, variantID, quantity, price).Scan(
		&item.ID,
		&item.OrderID,
		&vID,
		&varID,
		&item.Quantity,
		&item.Price,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create order item: %w", err)
	}

	item.VendorID = nullInt64Ptr(vID)
	item.VariantID = nullInt64Ptr(varID)
	item.Subtotal = item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
	return item, nil
}

// AppendStatusHistory records a status the order entered. History rows are
// never updated or deleted.
func AppendStatusHistory(ctx context.Context, uow *database.UnitOfWork, orderID int64, status string, changedBy int64) (*models.OrderStatusHistory, error) {
	entry := &models.OrderStatusHistory{}

	err := uow.QueryRowContext(ctx,
		`INSERT INTO order_status_histories (order_id, status, changed_by, created_at)
		 VALUES ($1, $2, $3, NOW())
		 RETURNING id, order_id, status, changed_by, created_at`,
		orderID, status, changedBy).Scan(
		&entry.ID,
		&entry.OrderID,
		&entry.Status,
		&entry.ChangedBy,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("append status history: %w", err)
	}

	return entry, nil
}

// LockOrder reads the order header FOR UPDATE so status changes serialize.
func LockOrder(ctx context.Context, uow *database.UnitOfWork, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	if err := scanOrder(uow.QueryRowContext(ctx, query, id), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	return order, nil
}

func SetOrderStatus(ctx context.Context, uow *database.UnitOfWork, id int64, status string) error {
	_, err := uow.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

// GetOrder loads the order with its items and status history.
func GetOrder(ctx context.Context, q database.Querier, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	if err := scanOrder(q.QueryRowContext(ctx, query, id), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := ListOrderItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	history, err := ListStatusHistory(ctx, q, id)
	if err != nil {
		return nil, err
	}
	order.StatusHistory = history

	return order, nil
}

func ListOrderItems(ctx context.Context, q database.Querier, orderID int64) ([]models.OrderItem, error) {
	itemsQuery := `
		SELECT oi.id, oi.order_id, oi.vendor_id, oi.product_variant_id, COALESCE(v.sku, ''),
		       oi.quantity, oi.price, oi.created_at
		FROM order_items oi
		LEFT JOIN product_variants v ON v.id = oi.product_variant_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`

	rows, err := q.QueryContext(ctx, itemsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		var vendorID, variantID sql.NullInt64
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&vendorID,
			&variantID,
			&item.SKU,
			&item.Quantity,
			&item.Price,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.VendorID = nullInt64Ptr(vendorID)
		item.VariantID = nullInt64Ptr(variantID)
		item.Subtotal = item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func ListStatusHistory(ctx context.Context, q database.Querier, orderID int64) ([]models.OrderStatusHistory, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, status, changed_by, created_at
		 FROM order_status_histories
		 WHERE order_id = $1
		 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("get status history: %w", err)
	}
	defer rows.Close()

	history := []models.OrderStatusHistory{}
	for rows.Next() {
		var entry models.OrderStatusHistory
		err := rows.Scan(&entry.ID, &entry.OrderID, &entry.Status, &entry.ChangedBy, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		history = append(history, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return history, nil
}

// ListOrdersCursor pages through a customer's orders newest first.
func ListOrdersCursor(ctx context.Context, q database.Querier, userID int64, status, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	var after any
	if !cursorData.IsZero() {
		after = cursorData.CreatedAt
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		  AND ($2::text = '' OR status = $2::text)
		  AND ($3::timestamptz IS NULL OR (created_at, id) < ($3::timestamptz, $4::bigint))
		ORDER BY created_at DESC, id DESC
		LIMIT $5`

	rows, err := q.QueryContext(ctx, query, userID, status, after, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// OrderFilter narrows vendor and admin order listings. Zero values are ignored.
type OrderFilter struct {
	VendorID *int64
	UserID   *int64
	Status   string
	FromDate *time.Time
	ToDate   *time.Time
}

func ListOrders(ctx context.Context, q database.Querier, filter OrderFilter, page, pageSize int) (*OffsetPage, error) {
	var conditions []string
	var args []any

	if filter.VendorID != nil {
		args = append(args, *filter.VendorID)
		conditions = append(conditions, fmt.Sprintf("vendor_id = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.FromDate != nil {
		args = append(args, *filter.FromDate)
		conditions = append(conditions, fmt.Sprintf("created_at::date >= $%d::date", len(args)))
	}
	if filter.ToDate != nil {
		args = append(args, *filter.ToDate)
		conditions = append(conditions, fmt.Sprintf("created_at::date <= $%d::date", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	args = append(args, pageSize, offsetFor(page, pageSize))
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, orderColumns, where, len(args)-1, len(args))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(orders, total, page, pageSize), nil
}
