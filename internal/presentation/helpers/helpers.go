package helpers

import (
	"encoding/json"
	"io"
	"net/http"
)

func DecodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HttpError writes the flat error envelope.
func HttpError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"status": "error", "message": msg})
}

// HttpValidationError writes the envelope with per-field detail entries.
func HttpValidationError(w http.ResponseWriter, status int, msg string, errs []string) {
	detail := make([]map[string]string, 0, len(errs))
	for _, e := range errs {
		detail = append(detail, map[string]string{"msg": e})
	}
	WriteJSON(w, status, map[string]any{
		"status":  "error",
		"message": msg,
		"errors":  detail,
	})
}
