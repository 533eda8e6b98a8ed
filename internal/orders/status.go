// Package orders owns the order status machine and the order read side.
package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/store"
)

var ErrInvalidStatus = errors.New("invalid order status")

// ErrInvalidStatusChange is matched by every *StatusChangeError.
var ErrInvalidStatusChange = errors.New("invalid status change")

type StatusChangeError struct {
	Current string
}

func (e *StatusChangeError) Error() string {
	return fmt.Sprintf("Cannot change status of a %s order.", e.Current)
}

func (e *StatusChangeError) Is(target error) bool {
	return target == ErrInvalidStatusChange
}

func IsValidStatus(status string) bool {
	for _, s := range models.OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func IsTerminal(status string) bool {
	return status == models.OrderStatusDelivered || status == models.OrderStatusCancelled
}

// CheckTransition reports whether an order in current may move to next.
// Any recognized status may follow a non-terminal one.
func CheckTransition(current, next string) error {
	if !IsValidStatus(next) {
		return ErrInvalidStatus
	}
	if IsTerminal(current) {
		return &StatusChangeError{Current: current}
	}
	return nil
}

type TransitionResult struct {
	Previous      string
	RestoredUnits int
}

// Transition moves a locked order to newStatus inside uow, appends the
// history row and, when the order enters cancelled, returns every item's
// quantity to stock. Items whose variant was deleted are skipped.
func Transition(ctx context.Context, uow *database.UnitOfWork, order *models.Order, newStatus string, actorID int64) (*TransitionResult, error) {
	if err := CheckTransition(order.Status, newStatus); err != nil {
		return nil, err
	}

	result := &TransitionResult{Previous: order.Status}

	if err := store.SetOrderStatus(ctx, uow, order.ID, newStatus); err != nil {
		return nil, err
	}
	if _, err := store.AppendStatusHistory(ctx, uow, order.ID, newStatus, actorID); err != nil {
		return nil, err
	}

	if newStatus == models.OrderStatusCancelled {
		items, err := store.ListOrderItems(ctx, uow, order.ID)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if item.VariantID == nil {
				continue
			}
			if _, err := store.UpdateStock(ctx, uow, *item.VariantID, item.Quantity, true); err != nil {
				return nil, fmt.Errorf("restock variant %d: %w", *item.VariantID, err)
			}
			result.RestoredUnits += item.Quantity
		}
	}

	order.Status = newStatus
	return result, nil
}
