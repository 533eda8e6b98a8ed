// Package cart implements the customer's shopping cart on top of the store,
// with an optional cache in front of the cart view.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/safar/go-marketplace/internal/auth"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeProductUnavailable = "PRODUCT_UNAVAILABLE"
)

// RuleError rejects a cart change. Message is safe to show to the customer.
type RuleError struct {
	Code    string
	Message string
}

func (e *RuleError) Error() string { return e.Message }

func insufficientStock(format string, args ...any) *RuleError {
	return &RuleError{Code: CodeInsufficientStock, Message: fmt.Sprintf(format, args...)}
}

var errProductUnavailable = &RuleError{
	Code:    CodeProductUnavailable,
	Message: "This product is not available for purchase.",
}

type Service struct {
	db    *sql.DB
	cache Cache
	sfg   singleflight.Group
}

func NewService(db *sql.DB, cache Cache) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{db: db, cache: cache}
}

// Invalidate drops the cached view; checkout calls it after emptying a cart.
func (s *Service) Invalidate(ctx context.Context, userID int64) error {
	return s.cache.Invalidate(ctx, userID)
}

// View returns the customer's cart, creating an empty one on first access.
// The cart stamp is read before the view is loaded and stored with it, so a
// view that loses a race with a mutation is cached under a stamp that no
// longer matches and is never served. Concurrent misses for one customer and
// stamp share a single load.
func (s *Service) View(ctx context.Context, customer auth.Principal) (*models.CartView, error) {
	if err := auth.Authorize(customer, auth.CapManageCart); err != nil {
		return nil, err
	}

	stamp, err := s.stamp(ctx, customer.UserID)
	if err != nil {
		return nil, err
	}

	key := strconv.FormatInt(customer.UserID, 10) + "@" + stamp
	v, err, _ := s.sfg.Do(key, func() (any, error) {
		view, err := s.cache.Get(ctx, customer.UserID, stamp)
		if err == nil {
			return view, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("cart cache get for user %d: %v", customer.UserID, err)
		}

		view, err = s.load(ctx, customer.UserID)
		if err != nil {
			return nil, err
		}

		if err := s.cache.Set(ctx, customer.UserID, stamp, view); err != nil {
			log.Printf("cart cache set for user %d: %v", customer.UserID, err)
		}
		return view, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*models.CartView), nil
}

func (s *Service) stamp(ctx context.Context, userID int64) (string, error) {
	stamp, err := store.CartStamp(ctx, s.db, userID)
	if !errors.Is(err, database.ErrCartNotFound) {
		return stamp, err
	}
	if _, err := store.GetOrCreateCart(ctx, s.db, userID); err != nil {
		return "", err
	}
	return store.CartStamp(ctx, s.db, userID)
}

func (s *Service) load(ctx context.Context, userID int64) (*models.CartView, error) {
	cart, err := store.GetOrCreateCart(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	items, err := store.ListCartItems(ctx, s.db, cart.ID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}

	return &models.CartView{Cart: *cart, Items: items, Total: total}, nil
}

// Add puts quantity units of a variant in the cart. An existing line for the
// variant has its quantity increased instead; created reports which happened.
func (s *Service) Add(ctx context.Context, customer auth.Principal, variantID int64, quantity int) (item *models.CartItem, created bool, err error) {
	if err := auth.Authorize(customer, auth.CapManageCart); err != nil {
		return nil, false, err
	}
	if quantity < 1 {
		return nil, false, database.ErrInvalidQuantity
	}

	err = database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(uow *database.UnitOfWork) error {
		variant, err := store.GetVariantWithProduct(ctx, uow, variantID)
		if err != nil {
			return err
		}
		if !variant.HasStock(quantity) {
			return insufficientStock("Insufficient stock. Only %d items available.", variant.Stock)
		}
		if !variant.Product.IsActive() {
			return errProductUnavailable
		}

		cart, err := store.LockCart(ctx, uow, customer.UserID)
		if err != nil {
			return err
		}

		existing, err := store.FindCartItemByVariant(ctx, uow, cart.ID, variantID)
		if err != nil {
			return err
		}

		if existing != nil {
			newQuantity := existing.Quantity + quantity
			if !variant.HasStock(newQuantity) {
				return insufficientStock("Cannot add more items. Only %d items available (you already have %d in cart).",
					variant.Stock, existing.Quantity)
			}
			item, err = store.SetCartItemQuantity(ctx, uow, existing.ID, newQuantity)
		} else {
			item, err = store.InsertCartItem(ctx, uow, cart.ID, variantID, quantity)
			created = true
		}
		if err != nil {
			return err
		}

		item.Variant = variant
		item.ComputeSubtotal()
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	s.invalidate(ctx, customer.UserID)
	return item, created, nil
}

// Update sets the quantity of one of the customer's cart items.
func (s *Service) Update(ctx context.Context, customer auth.Principal, itemID int64, quantity int) (*models.CartItem, error) {
	if err := auth.Authorize(customer, auth.CapManageCart); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, database.ErrInvalidQuantity
	}

	var item *models.CartItem
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(uow *database.UnitOfWork) error {
		cart, err := store.LockCart(ctx, uow, customer.UserID)
		if err != nil {
			return err
		}

		existing, err := store.GetCartItem(ctx, uow, cart.ID, itemID)
		if err != nil {
			return err
		}
		if existing.VariantID == nil {
			return errProductUnavailable
		}

		variant, err := store.GetVariantWithProduct(ctx, uow, *existing.VariantID)
		if err != nil {
			return err
		}
		if !variant.HasStock(quantity) {
			return insufficientStock("Insufficient stock. Only %d items available.", variant.Stock)
		}

		item, err = store.SetCartItemQuantity(ctx, uow, itemID, quantity)
		if err != nil {
			return err
		}

		item.Variant = variant
		item.ComputeSubtotal()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, customer.UserID)
	return item, nil
}

func (s *Service) Remove(ctx context.Context, customer auth.Principal, itemID int64) error {
	if err := auth.Authorize(customer, auth.CapManageCart); err != nil {
		return err
	}

	cart, err := store.GetOrCreateCart(ctx, s.db, customer.UserID)
	if err != nil {
		return err
	}
	if err := store.DeleteCartItem(ctx, s.db, cart.ID, itemID); err != nil {
		return err
	}

	s.invalidate(ctx, customer.UserID)
	return nil
}

func (s *Service) Clear(ctx context.Context, customer auth.Principal) error {
	if err := auth.Authorize(customer, auth.CapManageCart); err != nil {
		return err
	}

	cart, err := store.GetOrCreateCart(ctx, s.db, customer.UserID)
	if err != nil {
		return err
	}
	if _, err := store.ClearCart(ctx, s.db, cart.ID); err != nil {
		return err
	}

	s.invalidate(ctx, customer.UserID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		log.Printf("cart cache invalidate for user %d: %v", userID, err)
	}
}
