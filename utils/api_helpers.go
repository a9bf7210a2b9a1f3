package utils

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// RespondJSON sends a JSON response with the given status code and payload.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are already sent, nothing left but to log it.
		Log.Error("encode json response", zap.Error(err))
	}
}

// RespondError sends a JSON error response and records the message on the request log.
// If logger is nil the message goes straight to the process logger.
func RespondError(w http.ResponseWriter, logger *strings.Builder, message string, status int) {
	if logger != nil {
		AddToLogMessage(logger, message)
	} else {
		Log.Warn("request failed", zap.String("error", message), zap.Int("status", status))
	}
	RespondJSON(w, status, map[string]string{"error": message})
}

// DecodeJSON decodes a request body into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
