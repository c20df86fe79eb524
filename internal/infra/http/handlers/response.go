package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/usecase"
)

type ErrorResponse struct {
	Error   string                    `json:"error"`
	Message string                    `json:"message"`
	Fields  []usecase.ValidationError `json:"fields,omitempty"`
}

var statusByCode = map[string]int{
	usecase.CodeValidation:        http.StatusBadRequest,
	usecase.CodeInvalidFormat:     http.StatusBadRequest,
	usecase.CodeRateLimited:       http.StatusTooManyRequests,
	usecase.CodeLeadNotFound:      http.StatusNotFound,
	usecase.CodeNothingToExport:   http.StatusNotFound,
	usecase.CodeInvalidStatus:     http.StatusUnprocessableEntity,
	usecase.CodeInvalidTransition: http.StatusUnprocessableEntity,
	usecase.CodeDatabase:          http.StatusInternalServerError,
	usecase.CodeSecurityBackend:   http.StatusInternalServerError,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeUsecaseError traduz DomainError/TechnicalError para HTTP.
func writeUsecaseError(w http.ResponseWriter, logger *zap.Logger, err error) {
	code := usecase.ErrorCode(err)
	status, ok := statusByCode[code]
	if !ok {
		logger.Error("erro inesperado", zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Error interno. Inténtalo de nuevo.")
		return
	}

	resp := ErrorResponse{Error: code, Message: err.Error()}

	var de *usecase.DomainError
	if errors.As(err, &de) {
		resp.Fields = de.Fields
		if de.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(de.RetryAfter.Seconds()))))
		}
	}
	if status >= http.StatusInternalServerError {
		logger.Error("falha técnica na requisição", zap.String("code", code), zap.Error(err))
	}

	writeJSON(w, status, resp)
}
