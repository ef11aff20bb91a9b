package handlers

import (
	"net/http"

	"aroma-order-service/pkg/response"
)

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) APIHealth(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]any{"ok": true})
}

func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]any{
		"message": "Restaurant Backend API is running!",
		"endpoints": map[string]string{
			"health":   "/api/health",
			"menu":     "/api/menu",
			"settings": "/api/settings",
			"admin":    "/admin",
		},
	})
}

func (h *Handler) PublicMenu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.Catalog.Menu(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Success(w, menu)
}

func (h *Handler) PublicSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.Public(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Success(w, settings)
}

func (h *Handler) TopItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Analytics.TopItems(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Success(w, items)
}
