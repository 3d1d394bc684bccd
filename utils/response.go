package utils

import (
	"encoding/json"
	"net/http"

	"movment/db"
	"movment/lifecycle"

	"go.uber.org/zap"
)

// RespondWithError writes {"message": msg}.
func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"message": msg})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// RespondWithErr maps err onto the error taxonomy. Unclassified errors are
// logged and reported as a generic server error.
func RespondWithErr(w http.ResponseWriter, logger *zap.Logger, err error) {
	code := lifecycle.HTTPStatus(err)
	if code < http.StatusInternalServerError {
		RespondWithError(w, code, lifecycle.Message(err))
		return
	}
	if db.IsUnavailable(err) {
		logger.Error("database unavailable", zap.Error(err))
		RespondWithError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		return
	}
	logger.Error("request failed", zap.Error(err), zap.StackSkip("stack", 1))
	RespondWithError(w, http.StatusInternalServerError, "Server error")
}

type M map[string]any
