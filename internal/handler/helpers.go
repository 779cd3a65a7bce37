package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var unknownKind *domain.ErrUnknownKind
	var validation *domain.ErrValidation
	var unreadable *domain.ErrWorkbookUnreadable
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &unknownKind):
		logger.Debug("unknown kind", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &tooLarge):
		logger.Warn("upload too large", zap.Int64("limit", tooLarge.Limit))
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &unreadable):
		logger.Warn("unreadable workbook", zap.String("file", unreadable.File), zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
