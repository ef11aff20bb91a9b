package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aroma-order-service/internal/restaurant"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PlaceOrderLine struct {
	ItemID   int64
	Quantity int
}

type PlaceOrderInput struct {
	Lines         []PlaceOrderLine
	OrderType     string
	TableToken    string
	TableNumber   string
	PaymentMethod string
}

const eventPublishTimeout = 5 * time.Second

type Orders struct {
	store restaurant.Store
	log   *zap.Logger
	sinks []restaurant.EventSink
	now   func() time.Time
}

func NewOrders(store restaurant.Store, log *zap.Logger, sinks ...restaurant.EventSink) *Orders {
	return &Orders{
		store: store,
		log:   log,
		sinks: sinks,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// AddSink registers another receiver of order events.
func (o *Orders) AddSink(sink restaurant.EventSink) {
	if sink != nil {
		o.sinks = append(o.sinks, sink)
	}
}

// Place prices the order from the current catalog and writes it with all of
// its lines. Nothing is written if any line references an unknown item.
func (o *Orders) Place(ctx context.Context, in PlaceOrderInput) (restaurant.Order, error) {
	if len(in.Lines) == 0 {
		return restaurant.Order{}, restaurant.ValidationError("No items")
	}
	orderType := restaurant.OrderType(strings.TrimSpace(in.OrderType))
	if !orderType.Valid() {
		return restaurant.Order{}, restaurant.ValidationError("Invalid orderType")
	}

	tableToken := strings.TrimSpace(in.TableToken)
	tableNumber := strings.TrimSpace(in.TableNumber)
	if tableToken != "" {
		table, err := o.store.GetTableByToken(ctx, tableToken)
		if err != nil {
			if errors.Is(err, restaurant.ErrNotFound) {
				return restaurant.Order{}, restaurant.ValidationError("Unknown table token")
			}
			return restaurant.Order{}, err
		}
		tableNumber = table.Number
	}

	total := decimal.Zero
	lines := make([]restaurant.OrderItem, 0, len(in.Lines))
	for _, l := range in.Lines {
		item, err := o.store.GetItem(ctx, l.ItemID)
		if err != nil {
			if errors.Is(err, restaurant.ErrNotFound) {
				return restaurant.Order{}, restaurant.InvalidItemError(l.ItemID)
			}
			return restaurant.Order{}, err
		}
		qty := l.Quantity
		if qty < 1 {
			qty = 1
		}
		if qty > restaurant.MaxLineQuantity {
			return restaurant.Order{}, restaurant.ValidationError(fmt.Sprintf("Quantity may not exceed %d", restaurant.MaxLineQuantity))
		}
		line := restaurant.OrderItem{ItemID: item.ID, Name: item.Name, Price: item.Price, Quantity: qty}
		total = total.Add(line.Subtotal())
		lines = append(lines, line)
	}

	paymentMethod := strings.TrimSpace(in.PaymentMethod)
	paymentStatus := ""
	if paymentMethod != "" {
		paymentStatus = restaurant.PaymentStatusPending
	}

	order, err := o.store.CreateOrder(ctx, restaurant.NewOrder{
		TableNumber:   tableNumber,
		TableToken:    tableToken,
		Type:          orderType,
		Total:         total,
		PaymentMethod: paymentMethod,
		PaymentStatus: paymentStatus,
		CreatedAt:     o.now().Truncate(time.Microsecond),
		Lines:         lines,
	})
	if err != nil {
		return restaurant.Order{}, err
	}

	o.log.Info("order placed",
		zap.Int64("orderId", order.ID),
		zap.String("orderType", string(order.Type)),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Int("lines", len(order.Items)),
	)
	o.publish(ctx, restaurant.OrderEvent{
		Type:        restaurant.EventOrderCreated,
		OrderID:     order.ID,
		Status:      order.Status,
		OrderType:   order.Type,
		TableNumber: order.TableNumber,
		Total:       order.Total,
		OccurredAt:  o.now(),
	})
	return order, nil
}

// Transition moves an order along the status machine. The store applies the
// change only if the status has not moved since it was read, so two racing
// transitions cannot both succeed.
func (o *Orders) Transition(ctx context.Context, id int64, to restaurant.Status) (restaurant.Order, error) {
	if !to.Valid() {
		return restaurant.Order{}, restaurant.ValidationError("Invalid status")
	}
	order, err := o.store.GetOrder(ctx, id)
	if err != nil {
		return restaurant.Order{}, err
	}
	from := order.Status
	if !from.CanTransition(to) {
		return restaurant.Order{}, restaurant.TransitionError(from, to)
	}
	if err := o.store.UpdateOrderStatus(ctx, id, from, to); err != nil {
		return restaurant.Order{}, err
	}
	order.Status = to

	o.log.Info("order status updated",
		zap.Int64("orderId", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	o.publish(ctx, restaurant.OrderEvent{
		Type:           restaurant.EventOrderStatusUpdated,
		OrderID:        id,
		Status:         to,
		PreviousStatus: from,
		OrderType:      order.Type,
		TableNumber:    order.TableNumber,
		Total:          order.Total,
		OccurredAt:     o.now(),
	})
	return order, nil
}

func (o *Orders) Get(ctx context.Context, id int64) (restaurant.Order, error) {
	return o.store.GetOrder(ctx, id)
}

func (o *Orders) ListRecent(ctx context.Context, limit int) ([]restaurant.Order, error) {
	if limit <= 0 {
		limit = restaurant.DefaultRecentOrders
	}
	return o.store.ListRecentOrders(ctx, limit)
}

// publish fans the event out to every sink. The order change is already
// committed, so sink failures are only logged.
func (o *Orders) publish(ctx context.Context, ev restaurant.OrderEvent) {
	if len(o.sinks) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()
	for _, sink := range o.sinks {
		if err := sink.PublishOrderEvent(ctx, ev); err != nil {
			o.log.Warn("order event publish failed",
				zap.String("event", ev.Type),
				zap.Int64("orderId", ev.OrderID),
				zap.Error(err),
			)
		}
	}
}
