package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"aroma-order-service/internal/restaurant"
	"aroma-order-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var errMissingParam = errors.New("missing param")

func readPathInt64(r *http.Request, key string) (int64, error) {
	value := strings.TrimSpace(chi.URLParam(r, key))
	if value == "" {
		return 0, errMissingParam
	}
	return strconv.ParseInt(value, 10, 64)
}

// writeServiceError maps domain errors onto their status and code. Anything
// else is logged and reported as a 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if de, ok := restaurant.AsError(err); ok {
		if de.Err != nil {
			h.Logger.Warn("upstream failure", zap.String("path", r.URL.Path), zap.Error(de.Err))
		}
		response.Error(w, de.StatusCode, string(de.Code), de.Message)
		return
	}
	h.Logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

// decodeBody accepts a JSON body or a url-encoded/multipart form. Form
// values are funnelled through the same JSON decoding so payload structs
// only describe their fields once.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return err
		}
		fields := make(map[string]string, len(r.Form))
		for key, values := range r.Form {
			if len(values) > 0 {
				fields[key] = values[0]
			}
		}
		raw, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dst)
	default:
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		return dec.Decode(dst)
	}
}

func (h *Handler) decodeOrReject(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeBody(w, r, dst); err != nil {
		response.Error(w, http.StatusBadRequest, string(restaurant.CodeValidation), "Invalid request body")
		return false
	}
	return true
}

// flexInt decodes a JSON integer or an integer string; empty means zero.
// Fractional values such as 1.9 are rejected. Whole floats like 2.0 are
// accepted.
type flexInt int64

// maxExactFloat is the largest magnitude a float64 holds without losing
// integer precision.
const maxExactFloat = 1 << 53

func (f *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*f = flexInt(n)
		return nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || n != math.Trunc(n) || math.Abs(n) > maxExactFloat {
		return fmt.Errorf("invalid integer %q", raw)
	}
	*f = flexInt(n)
	return nil
}

// flexBool decodes JSON booleans as well as the "on"/"1"/"true" strings
// checkboxes send.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	raw := strings.ToLower(strings.Trim(string(bytes.TrimSpace(data)), `"`))
	switch raw {
	case "true", "1", "on", "yes":
		*f = true
	case "false", "0", "off", "no", "", "null":
		*f = false
	default:
		return fmt.Errorf("invalid boolean %q", raw)
	}
	return nil
}

// flexString decodes a JSON string or number as text.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}
