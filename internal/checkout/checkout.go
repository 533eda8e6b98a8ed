// Package checkout turns a customer's cart into one order per vendor.
package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/safar/go-marketplace/internal/auth"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/events"
	"github.com/safar/go-marketplace/internal/metrics"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/store"
	"github.com/shopspring/decimal"
)

// EmptyCartMessage is shown to customers who check out an empty cart.
const EmptyCartMessage = "Your cart is empty. Add items to cart before checkout."

var ErrEmptyCart = errors.New("cart is empty")

// Error is a business rule violation that aborted the checkout. Message is
// safe to show to the customer.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func failf(err error, format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Err: err}
}

// CartInvalidator drops any cached view of a customer's cart.
type CartInvalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

type Result struct {
	Orders []*models.Order
}

type Service struct {
	db        *sql.DB
	publisher events.Publisher
	carts     CartInvalidator
	metrics   *metrics.Metrics
}

func NewService(db *sql.DB, publisher events.Publisher, carts CartInvalidator, m *metrics.Metrics) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{db: db, publisher: publisher, carts: carts, metrics: m}
}

type vendorKey struct {
	id    int64
	valid bool
}

type vendorGroup struct {
	vendorID *int64
	items    []models.CartItem
}

// groupByVendor partitions items by their product's vendor, keeping groups
// in the order their first item appears. Products without a vendor form one
// group of their own.
func groupByVendor(items []models.CartItem) []*vendorGroup {
	var groups []*vendorGroup
	index := make(map[vendorKey]*vendorGroup)

	for _, item := range items {
		var key vendorKey
		if vid := item.Variant.Product.VendorID; vid != nil {
			key = vendorKey{id: *vid, valid: true}
		}

		group, ok := index[key]
		if !ok {
			group = &vendorGroup{}
			if key.valid {
				id := key.id
				group.vendorID = &id
			}
			index[key] = group
			groups = append(groups, group)
		}
		group.items = append(group.items, item)
	}

	return groups
}

// Checkout converts the customer's cart into orders in one unit of work.
// Every vendor group succeeds or none does, and the cart is emptied only
// when all orders are written.
func (s *Service) Checkout(ctx context.Context, customer auth.Principal) (*Result, error) {
	if err := auth.Authorize(customer, auth.CapCheckout); err != nil {
		return nil, err
	}

	cart, err := store.GetCart(ctx, s.db, customer.UserID)
	if errors.Is(err, database.ErrCartNotFound) {
		s.metrics.ObserveCheckout("empty", 0)
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}
	items, err := store.ListCartItems(ctx, s.db, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		s.metrics.ObserveCheckout("empty", 0)
		return nil, ErrEmptyCart
	}

	var orders []*models.Order
	err = database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(uow *database.UnitOfWork) error {
		var err error
		orders, err = s.placeOrders(ctx, uow, customer.UserID)
		return err
	})
	if err != nil {
		return nil, s.checkoutFailed(err)
	}

	s.metrics.ObserveCheckout("success", len(orders))

	if s.carts != nil {
		if err := s.carts.Invalidate(ctx, customer.UserID); err != nil {
			log.Printf("invalidate cart cache for user %d: %v", customer.UserID, err)
		}
	}

	created := make([]events.OrderEvent, 0, len(orders))
	for _, order := range orders {
		created = append(created, events.OrderCreated(order, customer.UserID))
	}
	if err := s.publisher.Publish(ctx, created...); err != nil {
		log.Printf("publish order.created for user %d: %v", customer.UserID, err)
	}

	return &Result{Orders: orders}, nil
}

func (s *Service) checkoutFailed(err error) error {
	var cerr *Error
	switch {
	case errors.Is(err, ErrEmptyCart):
		s.metrics.ObserveCheckout("empty", 0)
		return err
	case errors.As(err, &cerr):
		s.metrics.ObserveCheckout("rejected", 0)
		return err
	case database.IsRetryable(err):
		s.metrics.ObserveCheckout("conflict", 0)
		return failf(err, "Checkout could not be completed because another order touched the same items. Please retry.")
	}
	s.metrics.ObserveCheckout("error", 0)
	return err
}

// placeOrders runs inside the checkout unit of work. The cart row is locked
// first so cart edits and a second checkout of the same cart wait for this
// one, then all variant rows are locked in ascending id order.
func (s *Service) placeOrders(ctx context.Context, uow *database.UnitOfWork, userID int64) ([]*models.Order, error) {
	cart, err := store.LockCart(ctx, uow, userID)
	if err != nil {
		return nil, err
	}
	items, err := store.ListCartItems(ctx, uow, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	variantIDs := make([]int64, 0, len(items))
	for _, item := range items {
		if item.Variant == nil || item.Variant.Product == nil {
			return nil, failf(database.ErrVariantNotFound,
				"Cart item #%d is no longer available. Remove it from your cart and try again.", item.ID)
		}
		variantIDs = append(variantIDs, item.Variant.ID)
	}

	locked, err := store.LockVariants(ctx, uow, variantIDs)
	if err != nil {
		return nil, err
	}
	for i := range items {
		fresh, ok := locked[items[i].Variant.ID]
		if !ok {
			return nil, failf(database.ErrVariantNotFound,
				"Cart item #%d is no longer available. Remove it from your cart and try again.", items[i].ID)
		}
		items[i].Variant.Stock = fresh.Stock
		items[i].Variant.PriceOverride = fresh.PriceOverride
	}

	var orders []*models.Order
	for _, group := range groupByVendor(items) {
		order, err := placeGroupOrder(ctx, uow, userID, group)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if _, err := store.ClearCart(ctx, uow, cart.ID); err != nil {
		return nil, err
	}

	return orders, nil
}

func validateItem(item models.CartItem) error {
	variant := item.Variant
	product := variant.Product

	if !variant.HasStock(item.Quantity) {
		return failf(database.ErrInsufficientStock,
			"Insufficient stock for %s. Only %d items available.", variant.SKU, variant.Stock)
	}
	if !product.IsActive() {
		return failf(nil, "Product %s is no longer available.", product.Name)
	}
	if item.Quantity < product.MOQ {
		return failf(nil, "Minimum order quantity for %s is %d. You have %d in your cart.",
			product.Name, product.MOQ, item.Quantity)
	}
	return nil
}

func placeGroupOrder(ctx context.Context, uow *database.UnitOfWork, userID int64, group *vendorGroup) (*models.Order, error) {
	total := decimal.Zero
	for _, item := range group.items {
		if err := validateItem(item); err != nil {
			return nil, err
		}
		price, err := store.EffectivePrice(ctx, uow, item.Variant)
		if err != nil {
			return nil, err
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	order, err := store.CreateOrder(ctx, uow, group.vendorID, userID, total)
	if err != nil {
		return nil, err
	}

	for _, item := range group.items {
		price, err := store.EffectivePrice(ctx, uow, item.Variant)
		if err != nil {
			return nil, err
		}
		if _, err := store.CreateOrderItem(ctx, uow, order.ID, group.vendorID, item.Variant.ID, item.Quantity, price); err != nil {
			return nil, err
		}
		if _, err := store.UpdateStock(ctx, uow, item.Variant.ID, item.Quantity, false); err != nil {
			if errors.Is(err, database.ErrInsufficientStock) {
				return nil, failf(err, "Failed to update stock for %s. Insufficient stock.", item.Variant.SKU)
			}
			return nil, err
		}
	}

	if _, err := store.AppendStatusHistory(ctx, uow, order.ID, models.OrderStatusPending, userID); err != nil {
		return nil, err
	}

	return store.GetOrder(ctx, uow, order.ID)
}
