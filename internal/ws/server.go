package ws

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"aroma-order-service/internal/auth"
	"aroma-order-service/internal/restaurant"
	"aroma-order-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type OrderGetter interface {
	GetOrder(ctx context.Context, id int64) (restaurant.Order, error)
}

type Server struct {
	Hub            *Hub
	Orders         OrderGetter
	Logger         *zap.Logger
	TrackingSecret string
	Heartbeat      time.Duration
	// AllowedOrigins empty or containing "*" accepts any origin.
	AllowedOrigins []string

	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, orders OrderGetter, logger *zap.Logger, trackingSecret string, heartbeat time.Duration, allowedOrigins []string) *Server {
	s := &Server{
		Hub:            hub,
		Orders:         orders,
		Logger:         logger,
		TrackingSecret: trackingSecret,
		Heartbeat:      heartbeat,
		AllowedOrigins: allowedOrigins,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// AdminOrdersWS streams every order event. The route is expected to sit
// behind admin auth.
func (s *Server) AdminOrdersWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newClient(conn)
	unsubscribe := s.Hub.subscribe(adminTopic, c)
	defer unsubscribe()
	_ = c.writeJSON(Message{Type: "ready"})
	s.serve(r.Context(), c)
}

// OrderWS streams status changes of one order to the customer holding its
// tracking token.
func (s *Server) OrderWS(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, string(restaurant.CodeValidation), "Invalid order id")
		return
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		token = auth.ParseBearerToken(r.Header.Get("Authorization"))
	}
	if _, err := auth.VerifyTrackingToken(token, s.TrackingSecret, orderID); err != nil {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tracking token")
		return
	}
	order, err := s.Orders.GetOrder(r.Context(), orderID)
	if err != nil {
		response.Error(w, http.StatusNotFound, string(restaurant.CodeNotFound), "Order not found")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newClient(conn)
	unsubscribe := s.Hub.subscribe(orderTopic(orderID), c)
	defer unsubscribe()
	_ = c.writeJSON(Message{Type: "order.state", Data: order})
	s.serve(r.Context(), c)
}

// serve keeps the connection open until the peer leaves, the hub drops it or
// the request context ends. It is the connection's only writer of queued
// frames and pings every heartbeat interval.
func (s *Server) serve(ctx context.Context, c *client) {
	defer c.disconnect()

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := c.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	heartbeat := s.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-clientClosed:
			return
		case <-c.gone:
			return
		case <-ctx.Done():
			return
		case msg := <-c.send:
			if err := c.writeJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
