package restaurant

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusUpdated = "order.status.updated"
)

// OrderEvent is published after an order is placed or changes status.
type OrderEvent struct {
	Type           string          `json:"type"`
	OrderID        int64           `json:"orderId"`
	Status         Status          `json:"status"`
	PreviousStatus Status          `json:"previousStatus,omitempty"`
	OrderType      OrderType       `json:"orderType"`
	TableNumber    string          `json:"tableNumber,omitempty"`
	Total          decimal.Decimal `json:"total"`
	OccurredAt     time.Time       `json:"occurredAt"`
}

// EventSink receives order events. Implementations must not block for long;
// failures are logged by the caller and never undo the order change.
type EventSink interface {
	PublishOrderEvent(ctx context.Context, ev OrderEvent) error
}
