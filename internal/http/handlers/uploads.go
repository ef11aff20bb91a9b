package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"aroma-order-service/internal/media"
	"aroma-order-service/internal/restaurant"
	"aroma-order-service/internal/storage"
	"aroma-order-service/pkg/response"

	"go.uber.org/zap"
)

const defaultMaxFileBytes = 5 * 1024 * 1024

type fileReadError struct {
	Code    string
	Message string
	Err     error
}

func readImageFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) ([]byte, *fileReadError) {
	if maxBytes <= 0 {
		maxBytes = defaultMaxFileBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+maxBodyBytes)
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, &fileReadError{Code: "FILE_REQUIRED", Message: "File is required", Err: err}
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, &fileReadError{Code: "UPLOAD_FAILED", Message: "Failed to read file", Err: err}
	}
	if int64(len(data)) > maxBytes {
		return nil, &fileReadError{Code: "INVALID_FILE", Message: fmt.Sprintf("File size must be less than %dMB.", max(1, maxBytes/(1024*1024)))}
	}

	ct := strings.TrimSpace(header.Header.Get("Content-Type"))
	if ct == "" || ct == "application/octet-stream" {
		ct = media.DetectContentType(data)
	}
	if !media.AllowedContentType(ct) {
		return nil, &fileReadError{Code: "INVALID_FILE", Message: "Invalid file type. Please upload an image file."}
	}
	return data, nil
}

type itemImageResponse struct {
	Item     restaurant.Item `json:"item"`
	ThumbURL string          `json:"thumbUrl"`
	Warnings []string        `json:"warnings"`
}

// AdminItemImage uploads a photo for an item and points the item at it. The
// previous image is removed when it lives in our bucket.
func (h *Handler) AdminItemImage(w http.ResponseWriter, r *http.Request) {
	if h.Uploads == nil {
		response.Error(w, http.StatusServiceUnavailable, "OBJECT_STORE_DISABLED", "Image uploads are not configured")
		return
	}
	id, ok := h.pathID(w, r, "Item")
	if !ok {
		return
	}
	ctx := r.Context()
	current, err := h.Catalog.GetItem(ctx, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	data, ferr := readImageFile(w, r, "file", h.Config.MaxFileSizeBytes)
	if ferr != nil {
		status := http.StatusBadRequest
		if ferr.Code == "UPLOAD_FAILED" {
			status = http.StatusInternalServerError
		}
		response.Error(w, status, ferr.Code, ferr.Message)
		return
	}

	img, err := media.ProcessItemImage(data)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_FILE", "Could not read image")
		return
	}
	warnings := make([]string, 0)
	if img.Width < media.SmallImageWidth {
		warnings = append(warnings, fmt.Sprintf(
			"Image is quite small (%dpx wide). For best quality upload an image at least %dpx wide.",
			img.Width, media.SmallImageWidth,
		))
	}

	fullURL, err := h.Uploads.PutObject(ctx, storage.ItemImageKey(id, "full"), img.Full, "image/jpeg", "")
	if err != nil {
		h.Logger.Error("upload item image", zap.Int64("itemId", id), zap.Error(err))
		response.Error(w, http.StatusBadGateway, "UPLOAD_FAILED", "Failed to upload image")
		return
	}
	thumbURL, err := h.Uploads.PutObject(ctx, storage.ItemImageKey(id, "thumb"), img.Thumb, "image/jpeg", "")
	if err != nil {
		h.Logger.Error("upload item thumbnail", zap.Int64("itemId", id), zap.Error(err))
		response.Error(w, http.StatusBadGateway, "UPLOAD_FAILED", "Failed to upload image")
		return
	}

	item, err := h.Catalog.SetItemImage(ctx, id, fullURL)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if current.ImageURL != "" && current.ImageURL != fullURL {
		if err := h.Uploads.DeleteURL(ctx, current.ImageURL); err != nil {
			h.Logger.Warn("delete previous item image", zap.Int64("itemId", id), zap.Error(err))
		}
	}

	response.Success(w, itemImageResponse{Item: item, ThumbURL: thumbURL, Warnings: warnings})
}
