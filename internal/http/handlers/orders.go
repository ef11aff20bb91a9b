package handlers

import (
	"net/http"
	"strings"
	"time"

	"aroma-order-service/internal/auth"
	"aroma-order-service/internal/restaurant"
	"aroma-order-service/internal/services"
	"aroma-order-service/pkg/response"

	"go.uber.org/zap"
)

type orderLinePayload struct {
	ID  flexInt `json:"id"`
	Qty flexInt `json:"qty"`
}

type orderCreatePayload struct {
	Items         []orderLinePayload `json:"items"`
	OrderType     string             `json:"orderType"`
	TableToken    string             `json:"tableToken"`
	TableNumber   flexString         `json:"tableNumber"`
	PaymentMethod string             `json:"paymentMethod"`
}

type orderCreateResponse struct {
	OrderID       int64   `json:"orderId"`
	Total         float64 `json:"total"`
	TrackingToken string  `json:"trackingToken"`
}

type orderItemView struct {
	ItemID   int64   `json:"itemId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

type orderView struct {
	ID            int64           `json:"id"`
	Status        string          `json:"status"`
	OrderType     string          `json:"orderType"`
	TableNumber   string          `json:"tableNumber"`
	Total         float64         `json:"total"`
	PaymentMethod string          `json:"paymentMethod"`
	PaymentStatus string          `json:"paymentStatus"`
	CreatedAt     time.Time       `json:"createdAt"`
	Items         []orderItemView `json:"items"`
}

func toOrderView(o restaurant.Order) orderView {
	items := make([]orderItemView, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemView{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Price:    it.Price.InexactFloat64(),
			Quantity: it.Quantity,
			Subtotal: it.Subtotal().InexactFloat64(),
		})
	}
	return orderView{
		ID:            o.ID,
		Status:        string(o.Status),
		OrderType:     string(o.Type),
		TableNumber:   o.TableNumber,
		Total:         o.Total.InexactFloat64(),
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		CreatedAt:     o.CreatedAt,
		Items:         items,
	}
}

func (h *Handler) OrderCreate(w http.ResponseWriter, r *http.Request) {
	var payload orderCreatePayload
	if !h.decodeOrReject(w, r, &payload) {
		return
	}

	lines := make([]services.PlaceOrderLine, 0, len(payload.Items))
	for _, it := range payload.Items {
		lines = append(lines, services.PlaceOrderLine{ItemID: int64(it.ID), Quantity: int(it.Qty)})
	}
	order, err := h.Orders.Place(r.Context(), services.PlaceOrderInput{
		Lines:         lines,
		OrderType:     payload.OrderType,
		TableToken:    payload.TableToken,
		TableNumber:   string(payload.TableNumber),
		PaymentMethod: payload.PaymentMethod,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	token, err := auth.IssueTrackingToken(h.Config.OrderTrackingTokenSecret, order.ID, h.Config.OrderTrackingTokenTTL, time.Now())
	if err != nil {
		// The order exists; the customer can still be served by staff.
		h.Logger.Error("issue tracking token", zap.Int64("orderId", order.ID), zap.Error(err))
	}
	response.Success(w, orderCreateResponse{
		OrderID:       order.ID,
		Total:         order.Total.InexactFloat64(),
		TrackingToken: token,
	})
}

// OrderDetail shows an order to the customer holding its tracking token.
func (h *Handler) OrderDetail(w http.ResponseWriter, r *http.Request) {
	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, string(restaurant.CodeValidation), "Order ID is required")
		return
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		token = auth.ParseBearerToken(r.Header.Get("Authorization"))
	}
	if _, err := auth.VerifyTrackingToken(token, h.Config.OrderTrackingTokenSecret, id); err != nil {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tracking token")
		return
	}
	order, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Success(w, toOrderView(order))
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, to restaurant.Status) {
	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, string(restaurant.CodeValidation), "Order ID is required")
		return
	}
	if _, err := h.Orders.Transition(r.Context(), id, to); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Success(w, map[string]any{"ok": true})
}

func (h *Handler) OrderConfirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, restaurant.StatusConfirmed)
}

func (h *Handler) OrderComplete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, restaurant.StatusCompleted)
}

func (h *Handler) OrderCancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, restaurant.StatusCancelled)
}
