package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/infra/worker"
	"github.com/xavierca1/gestion-leads/internal/usecase"
)

// TaskController é satisfeito por *worker.SecurityScheduler.
type TaskController interface {
	Running() []worker.TaskInfo
	Stop(name string) bool
}

type SecurityHandler struct {
	DashboardUC *usecase.SecurityDashboardUseCase
	Tasks       TaskController
	Logger      *zap.Logger
}

func NewSecurityHandler(uc *usecase.SecurityDashboardUseCase, tasks TaskController, logger *zap.Logger) *SecurityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityHandler{DashboardUC: uc, Tasks: tasks, Logger: logger}
}

func (h *SecurityHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.DashboardUC.Execute(r.Context())
	if err != nil {
		writeUsecaseError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

type tasksResponse struct {
	Enabled bool              `json:"enabled"`
	Tasks   []worker.TaskInfo `json:"tasks"`
}

func (h *SecurityHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	resp := tasksResponse{Tasks: []worker.TaskInfo{}}
	if h.Tasks != nil {
		resp.Enabled = true
		resp.Tasks = h.Tasks.Running()
	}
	writeJSON(w, http.StatusOK, resp)
}

// StopTask cancela um timer pelo nome; ele só volta com um restart do serviço.
func (h *SecurityHandler) StopTask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.Tasks == nil || !h.Tasks.Stop(name) {
		writeErrorResponse(w, http.StatusNotFound, "TASK_NOT_RUNNING", "tarea no encontrada: "+name)
		return
	}

	h.Logger.Warn("tarefa de segurança parada manualmente", zap.String("task", name))
	w.WriteHeader(http.StatusNoContent)
}
