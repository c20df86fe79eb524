package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/usecase"
)

const maxLeadBodyBytes = 64 << 10

type LeadHandler struct {
	SubmitUC *usecase.SubmitLeadUseCase
	Logger   *zap.Logger
}

func NewLeadHandler(uc *usecase.SubmitLeadUseCase, logger *zap.Logger) *LeadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadHandler{SubmitUC: uc, Logger: logger}
}

// Handle recebe qualquer formulário do site (contato, proprietário, inquilino...).
func (h *LeadHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLeadBodyBytes)

	var input usecase.SubmitLeadInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorResponse(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "La solicitud es demasiado grande")
			return
		}
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "JSON inválido")
		return
	}

	input.Meta = usecase.RequestMeta{
		PageURL:   r.Referer(),
		UserAgent: r.UserAgent(),
		IP:        ClientIP(r),
	}

	output, err := h.SubmitUC.Execute(r.Context(), input)
	if err != nil {
		writeUsecaseError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, output)
}

// ClientIP lê o RemoteAddr, que o TrustedRealIP já ajustou quando o salto é um proxy confiável.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
