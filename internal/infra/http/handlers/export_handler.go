package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/usecase"
)

type ExportHandler struct {
	ExportUC *usecase.ExportLeadsUseCase
	Logger   *zap.Logger
}

func NewExportHandler(uc *usecase.ExportLeadsUseCase, logger *zap.Logger) *ExportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandler{ExportUC: uc, Logger: logger}
}

// Handle serve GET /admin/leads/export?format=csv|xlsx.
func (h *ExportHandler) Handle(w http.ResponseWriter, r *http.Request) {
	format, err := usecase.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeUsecaseError(w, h.Logger, err)
		return
	}

	file, err := h.ExportUC.Execute(r.Context(), format)
	if err != nil {
		if errors.Is(err, usecase.ErrNothingToExport) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": usecase.ErrNothingToExport.Message})
			return
		}
		writeUsecaseError(w, h.Logger, err)
		return
	}

	h.Logger.Info("📤 Exportação de leads",
		zap.String("format", string(format)),
		zap.Int("rows", file.Rows),
	)

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(file.Data)
}
