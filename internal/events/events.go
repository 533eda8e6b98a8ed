// Package events publishes order lifecycle events after their transaction
// commits. Publishing is best effort: the order is already durable, so a
// failed publish is reported to the caller for logging and nothing else.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

type OrderEvent struct {
	Type           string          `json:"type"`
	OrderID        int64           `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	VendorID       *int64          `json:"vendor_id"`
	UserID         int64           `json:"user_id"`
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	Total          decimal.Decimal `json:"total"`
	ChangedBy      int64           `json:"changed_by"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

func OrderCreated(order *models.Order, actorID int64) OrderEvent {
	return OrderEvent{
		Type:        TypeOrderCreated,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		VendorID:    order.VendorID,
		UserID:      order.UserID,
		Status:      order.Status,
		Total:       order.Total,
		ChangedBy:   actorID,
		OccurredAt:  time.Now().UTC(),
	}
}

func OrderStatusChanged(order *models.Order, previous string, actorID int64) OrderEvent {
	return OrderEvent{
		Type:           TypeOrderStatusChanged,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		VendorID:       order.VendorID,
		UserID:         order.UserID,
		Status:         order.Status,
		PreviousStatus: previous,
		Total:          order.Total,
		ChangedBy:      actorID,
		OccurredAt:     time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, events ...OrderEvent) error
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...OrderEvent) error { return nil }

// MemoryPublisher keeps published events in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (m *MemoryPublisher) Publish(_ context.Context, events ...OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MemoryPublisher) Events() []OrderEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OrderEvent, len(m.events))
	copy(out, m.events)
	return out
}
