package handlers

import (
	"net/http"

	"aroma-order-service/internal/restaurant"
	"aroma-order-service/pkg/response"

	"github.com/shopspring/decimal"
)

type itemPayload struct {
	CategoryID  flexInt         `json:"category_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	VideoURL    string          `json:"video_url"`
	Nutrition   string          `json:"nutrition"`
	Ingredients string          `json:"ingredients"`
	Allergies   string          `json:"allergies"`
	PrepTime    string          `json:"prep_time"`
	Hidden      flexBool        `json:"hidden"`
	SortOrder   flexInt         `json:"sort_order"`
}

func (p itemPayload) input() restaurant.ItemInput {
	return restaurant.ItemInput{
		CategoryID:  int64(p.CategoryID),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		VideoURL:    p.VideoURL,
		Nutrition:   p.Nutrition,
		Ingredients: p.Ingredients,
		Allergies:   p.Allergies,
		PrepTime:    p.PrepTime,
		Hidden:      bool(p.Hidden),
		SortOrder:   int(p.SortOrder),
	}
}

type categoryPayload struct {
	Key       string   `json:"key"`
	Name      string   `json:"name"`
	Icon      string   `json:"icon"`
	SortOrder flexInt  `json:"sort_order"`
	Hidden    flexBool `json:"hidden"`
}

func (p categoryPayload) input() restaurant.CategoryInput {
	return restaurant.CategoryInput{
		Key:       p.Key,
		Name:      p.Name,
		Icon:      p.Icon,
		SortOrder: int(p.SortOrder),
		Hidden:    bool(p.Hidden),
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, string(restaurant.CodeValidation), what+" ID is required")
		return 0, false
	}
	return id, true
}

func (h *Handler) AdminItems(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.Catalog.AdminCatalog(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Success(w, catalog)
}

func (h *Handler) AdminItemCreate(w http.ResponseWriter, r *http.Request) {
	var payload itemPayload
	if !h.decodeOrReject(w, r, &payload) {
		return
	}
	item, err := h.Catalog.CreateItem(r.Context(), payload.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Created(w, item)
}

func (h *Handler) AdminItemUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Item")
	if !ok {
		return
	}
	var payload itemPayload
	if !h.decodeOrReject(w, r, &payload) {
		return
	}
	item, err := h.Catalog.UpdateItem(r.Context(), id, payload.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Success(w, item)
}

func (h *Handler) AdminItemDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Item")
	if !ok {
		return
	}
	if err := h.Catalog.DeleteItem(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Success(w, map[string]any{"ok": true})
}

func (h *Handler) AdminCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Catalog.ListCategories(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Success(w, cats)
}

func (h *Handler) AdminCategoryCreate(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if !h.decodeOrReject(w, r, &payload) {
		return
	}
	cat, err := h.Catalog.CreateCategory(r.Context(), payload.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Created(w, cat)
}

func (h *Handler) AdminCategoryUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Category")
	if !ok {
		return
	}
	var payload categoryPayload
	if !h.decodeOrReject(w, r, &payload) {
		return
	}
	cat, err := h.Catalog.UpdateCategory(r.Context(), id, payload.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Success(w, cat)
}

// AdminCategoryDelete removes the category and every item in it.
func (h *Handler) AdminCategoryDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "Category")
	if !ok {
		return
	}
	if err := h.Catalog.DeleteCategory(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.Success(w, map[string]any{"ok": true})
}
