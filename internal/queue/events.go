package queue

import (
	"context"

	"aroma-order-service/internal/restaurant"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange = "aroma.events"
	EventsKey      = "order.#"

	ReceiptsQueue      = "aroma.receipts"
	ReceiptsDLX        = "aroma.receipts.dlx"
	ReceiptsDLQ        = "aroma.receipts.dlq"
	ReceiptsDeadKey    = "dead"
	ReceiptsRoutingKey = restaurant.EventOrderStatusUpdated
)

// EnsureTopology declares the events exchange and the receipts queue with its
// dead-letter queue.
func EnsureTopology(qc *Client) error {
	if qc == nil {
		return nil
	}
	if err := qc.EnsureExchange(EventsExchange, amqp.ExchangeTopic); err != nil {
		return err
	}
	if err := qc.EnsureExchange(ReceiptsDLX, amqp.ExchangeDirect); err != nil {
		return err
	}
	if _, err := qc.EnsureQueue(ReceiptsDLQ, nil); err != nil {
		return err
	}
	if err := qc.BindQueue(ReceiptsDLQ, ReceiptsDLX, ReceiptsDeadKey); err != nil {
		return err
	}
	_, err := qc.EnsureQueue(ReceiptsQueue, amqp.Table{
		"x-dead-letter-exchange":    ReceiptsDLX,
		"x-dead-letter-routing-key": ReceiptsDeadKey,
	})
	if err != nil {
		return err
	}
	return qc.BindQueue(ReceiptsQueue, EventsExchange, ReceiptsRoutingKey)
}

type jsonPublisher interface {
	PublishJSON(ctx context.Context, exchange, routingKey string, payload any) error
}

// Publisher sends order events to the events exchange, keyed by event type.
type Publisher struct {
	client jsonPublisher
}

func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) PublishOrderEvent(ctx context.Context, ev restaurant.OrderEvent) error {
	return p.client.PublishJSON(ctx, EventsExchange, ev.Type, ev)
}
