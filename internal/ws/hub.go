// Package ws pushes order events to websocket subscribers: the admin order
// board and customers tracking a single order.
package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aroma-order-service/internal/restaurant"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	adminTopic   = "admin"
	writeTimeout = 10 * time.Second
	// sendBuffer is how many frames may wait for a slow subscriber before it
	// is disconnected.
	sendBuffer = 16
)

func orderTopic(orderID int64) string {
	return fmt.Sprintf("order:%d", orderID)
}

// Message is the frame sent to subscribers.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	send    chan any
	once    sync.Once
	gone    chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan any, sendBuffer), gone: make(chan struct{})}
}

// enqueue hands a frame to the connection's writer without blocking. It
// reports false when the subscriber has fallen behind or already left.
func (c *client) enqueue(message any) bool {
	select {
	case <-c.gone:
		return false
	default:
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// disconnect marks the client gone and closes the socket, which ends its
// serve loop.
func (c *client) disconnect() {
	c.once.Do(func() {
		close(c.gone)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *client) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(value)
}

func (c *client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// Hub fans order events out to subscribed connections. It implements
// restaurant.EventSink.
type Hub struct {
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[*client]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{logger: logger, subs: make(map[string]map[*client]struct{})}
}

func (h *Hub) subscribe(topic string, c *client) (unsubscribe func()) {
	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*client]struct{})
	}
	h.subs[topic][c] = struct{}{}
	h.mu.Unlock()

	return func() { h.drop(topic, c) }
}

func (h *Hub) drop(topic string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.subs[topic]
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.subs, topic)
	}
}

// Subscribers reports how many connections listen on the admin feed and on
// one order.
func (h *Hub) Subscribers(orderID int64) (admin, order int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[adminTopic]), len(h.subs[orderTopic(orderID)])
}

// broadcast queues message for every subscriber of topic. Slow subscribers
// are disconnected rather than waited for.
func (h *Hub) broadcast(topic string, message any) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.subs[topic]))
	for c := range h.subs[topic] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(message) {
			h.logger.Debug("dropping websocket subscriber", zap.String("topic", topic))
			c.disconnect()
			h.drop(topic, c)
		}
	}
}

// PublishOrderEvent queues the event for the admin feed and for anyone
// tracking the order. It never waits on a socket write.
func (h *Hub) PublishOrderEvent(ctx context.Context, ev restaurant.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := Message{Type: ev.Type, Data: ev}
	h.broadcast(adminTopic, msg)
	h.broadcast(orderTopic(ev.OrderID), msg)
	return nil
}
