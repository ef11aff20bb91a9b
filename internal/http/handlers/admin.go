package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"aroma-order-service/internal/receipt"
	"aroma-order-service/internal/restaurant"
	"aroma-order-service/pkg/response"
)

func (h *Handler) AdminLogin(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"message": "Use HTTP Basic Authentication with the configured admin credentials.",
		"admin":   "/admin",
	})
}

func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.Analytics.Dashboard(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Success(w, dash)
}

type settingsPayload struct {
	BrandName      string `json:"brand_name"`
	LogoURL        string `json:"logo_url"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	BackgroundURL  string `json:"background_url"`
	FontFamily     string `json:"font_family"`
	Currency       string `json:"currency"`
}

func (h *Handler) AdminSettingsGet(w http.ResponseWriter, r *http.Request) {
	s, err := h.Settings.Get(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Success(w, s)
}

func (h *Handler) AdminSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var payload settingsPayload
	if !h.decodeOrReject(w, r, &payload) {
		return
	}
	s, err := h.Settings.Update(r.Context(), restaurant.Settings{
		BrandName:      payload.BrandName,
		LogoURL:        payload.LogoURL,
		PrimaryColor:   payload.PrimaryColor,
		SecondaryColor: payload.SecondaryColor,
		BackgroundURL:  payload.BackgroundURL,
		FontFamily:     payload.FontFamily,
		Currency:       payload.Currency,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Success(w, s)
}

func (h *Handler) AdminTables(w http.ResponseWriter, r *http.Request) {
	links, err := h.Tables.Links(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Success(w, links)
}

type tableCreatePayload struct {
	Number flexString `json:"number"`
}

func (h *Handler) AdminTableCreate(w http.ResponseWriter, r *http.Request) {
	var payload tableCreatePayload
	if !h.decodeOrReject(w, r, &payload) {
		return
	}
	table, err := h.Tables.Create(r.Context(), string(payload.Number))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Created(w, map[string]any{
		"id":     table.ID,
		"number": table.Number,
		"token":  table.Token,
		"url":    h.Tables.URL(table),
	})
}

func (h *Handler) AdminTableQR(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Table")
	if !ok {
		return
	}
	png, err := h.Tables.QRCode(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) AdminOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Orders.ListRecent(r.Context(), restaurant.DefaultRecentOrders)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderView(o))
	}
	response.Success(w, out)
}

type orderStatusPayload struct {
	Status string `json:"status"`
}

func (h *Handler) AdminOrderStatus(w http.ResponseWriter, r *http.Request) {
	var payload orderStatusPayload
	if !h.decodeOrReject(w, r, &payload) {
		return
	}
	status := restaurant.Status(strings.ToLower(strings.TrimSpace(payload.Status)))
	h.transition(w, r, status)
}

func (h *Handler) AdminOrderReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Order")
	if !ok {
		return
	}
	ctx := r.Context()
	order, err := h.Orders.Get(ctx, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	settings, err := h.Settings.Get(ctx)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	pdf, err := receipt.Render(settings, order)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", receipt.Filename(settings.BrandName, order.ID)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
