package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"aroma-order-service/internal/receipt"
	"aroma-order-service/internal/restaurant"
	"aroma-order-service/internal/storage"

	"go.uber.org/zap"
)

// ReceiptWorker renders a PDF receipt for every completed order and stores it
// in the object store.
type ReceiptWorker struct {
	Store    restaurant.Store
	Uploader storage.Uploader
	Logger   *zap.Logger
}

// Handle processes one message from the receipts queue. Unrelated events
// and orders that no longer exist are acknowledged without work.
func (w *ReceiptWorker) Handle(ctx context.Context, body []byte) error {
	var ev restaurant.OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		w.Logger.Warn("dropping undecodable event", zap.Error(err))
		return nil
	}
	if ev.Type != restaurant.EventOrderStatusUpdated || ev.Status != restaurant.StatusCompleted {
		return nil
	}

	order, err := w.Store.GetOrder(ctx, ev.OrderID)
	if err != nil {
		if errors.Is(err, restaurant.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load order %d: %w", ev.OrderID, err)
	}
	settings, err := w.Store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	pdf, err := receipt.Render(settings, order)
	if err != nil {
		return err
	}
	url, err := w.Uploader.PutObject(ctx, storage.ReceiptKey(order.ID), pdf, "application/pdf", storage.ReceiptCacheControl())
	if err != nil {
		return err
	}
	w.Logger.Info("receipt stored", zap.Int64("orderId", order.ID), zap.String("url", url))
	return nil
}
