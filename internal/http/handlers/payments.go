package handlers

import (
	"net/http"

	"aroma-order-service/internal/restaurant"
	"aroma-order-service/pkg/response"

	"github.com/shopspring/decimal"
)

type stripeIntentPayload struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (h *Handler) StripeIntent(w http.ResponseWriter, r *http.Request) {
	if h.Payments == nil {
		response.Error(w, http.StatusBadRequest, string(restaurant.CodePayment), "Stripe not configured")
		return
	}
	var payload stripeIntentPayload
	if !h.decodeOrReject(w, r, &payload) {
		return
	}
	secret, err := h.Payments.CreateIntent(r.Context(), payload.Amount, payload.Currency)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Success(w, map[string]string{"clientSecret": secret})
}
