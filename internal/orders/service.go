package orders

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/safar/go-marketplace/internal/auth"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/events"
	"github.com/safar/go-marketplace/internal/metrics"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/store"
)

const (
	DefaultPerPage    = 15
	DefaultCursorSize = 20
	maxPageSize       = 100
)

type Service struct {
	db        *sql.DB
	publisher events.Publisher
	metrics   *metrics.Metrics
}

func NewService(db *sql.DB, publisher events.Publisher, m *metrics.Metrics) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{db: db, publisher: publisher, metrics: m}
}

// UpdateStatus changes an order's status on behalf of a vendor that owns it
// or an admin. The order row is locked for the whole unit of work so
// concurrent changes to one order apply one after the other.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Principal, orderID int64, status string) (*models.Order, error) {
	if err := auth.Authorize(actor, auth.CapUpdateOrderStatus); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleVendor {
		if _, err := actor.VendorScope(); err != nil {
			return nil, err
		}
	}
	if !IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	var (
		order  *models.Order
		result *TransitionResult
	)
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(uow *database.UnitOfWork) error {
		locked, err := store.LockOrder(ctx, uow, orderID)
		if err != nil {
			return err
		}
		if !actor.OwnsOrder(locked) {
			return auth.ErrForbidden
		}

		result, err = Transition(ctx, uow, locked, status, actor.UserID)
		if err != nil {
			return err
		}

		order, err = store.GetOrder(ctx, uow, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(status, result.RestoredUnits)
	if err := s.publisher.Publish(ctx, events.OrderStatusChanged(order, result.Previous, actor.UserID)); err != nil {
		log.Printf("publish status change for order %s: %v", order.OrderNumber, err)
	}

	return order, nil
}

// Get returns the order with its items and history when the actor may see it.
func (s *Service) Get(ctx context.Context, actor auth.Principal, orderID int64) (*models.Order, error) {
	if actor.UserID == 0 {
		return nil, auth.ErrUnauthenticated
	}
	if actor.Role == models.RoleVendor {
		if _, err := actor.VendorScope(); err != nil {
			return nil, err
		}
	}

	order, err := store.GetOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.OwnsOrder(order) {
		return nil, auth.ErrForbidden
	}
	return order, nil
}

// ListForCustomer pages through the customer's own orders newest first.
func (s *Service) ListForCustomer(ctx context.Context, actor auth.Principal, status, cursor string, limit int) (*store.CursorPage, error) {
	if err := auth.Authorize(actor, auth.CapViewOwnOrders); err != nil {
		return nil, err
	}
	if status != "" && !IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	return store.ListOrdersCursor(ctx, s.db, actor.UserID, status, cursor, clampPageSize(limit, DefaultCursorSize))
}

type ListFilter struct {
	Status   string
	VendorID *int64
	FromDate *time.Time
	ToDate   *time.Time
	Page     int
	PerPage  int
}

func (f ListFilter) validate() error {
	if f.Status != "" && !IsValidStatus(f.Status) {
		return ErrInvalidStatus
	}
	if f.FromDate != nil && f.ToDate != nil && f.ToDate.Before(*f.FromDate) {
		return ErrInvalidDateRange
	}
	return nil
}

var ErrInvalidDateRange = errors.New("to_date must not be before from_date")

// ListForVendor lists the vendor's orders. The vendor filter of f is ignored.
func (s *Service) ListForVendor(ctx context.Context, actor auth.Principal, f ListFilter) (*store.OffsetPage, error) {
	if err := auth.Authorize(actor, auth.CapViewVendorOrders); err != nil {
		return nil, err
	}
	vendorID, err := actor.VendorScope()
	if err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}

	return store.ListOrders(ctx, s.db, store.OrderFilter{
		VendorID: &vendorID,
		Status:   f.Status,
		FromDate: f.FromDate,
		ToDate:   f.ToDate,
	}, max(f.Page, 1), clampPageSize(f.PerPage, DefaultPerPage))
}

func (s *Service) ListAll(ctx context.Context, actor auth.Principal, f ListFilter) (*store.OffsetPage, error) {
	if err := auth.Authorize(actor, auth.CapViewAllOrders); err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}

	return store.ListOrders(ctx, s.db, store.OrderFilter{
		VendorID: f.VendorID,
		Status:   f.Status,
		FromDate: f.FromDate,
		ToDate:   f.ToDate,
	}, max(f.Page, 1), clampPageSize(f.PerPage, DefaultPerPage))
}

func clampPageSize(size, fallback int) int {
	if size <= 0 {
		return fallback
	}
	return min(size, maxPageSize)
}
