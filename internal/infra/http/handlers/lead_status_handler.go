package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/usecase"
)

type LeadStatusHandler struct {
	UpdateUC *usecase.UpdateLeadStatusUseCase
	Logger   *zap.Logger
}

func NewLeadStatusHandler(uc *usecase.UpdateLeadStatusUseCase, logger *zap.Logger) *LeadStatusHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadStatusHandler{UpdateUC: uc, Logger: logger}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *LeadStatusHandler) Handle(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "id")
	if leadID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "MISSING_ID", "id is required")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "JSON inválido")
		return
	}

	lead, err := h.UpdateUC.Execute(r.Context(), leadID, req.Status)
	if err != nil {
		writeUsecaseError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, lead)
}
