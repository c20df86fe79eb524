package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/entity"
	"github.com/xavierca1/gestion-leads/internal/infra/http/handlers"
	"github.com/xavierca1/gestion-leads/internal/infra/worker"
	"github.com/xavierca1/gestion-leads/internal/usecase"
)

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func sampleLeads() []*entity.Lead {
	return []*entity.Lead{{
		ID:              "lead-1",
		CreatedAt:       time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		Origin:          "website",
		FormType:        "contact",
		Name:            "Ana Gómez",
		Email:           "ana@example.com",
		PrivacyAccepted: true,
		Status:          entity.LeadStatusNew,
	}}
}

func TestExportHandler_CSV(t *testing.T) {
	repo := new(MockLeadRepository)
	repo.On("FindAll", mock.Anything).Return(sampleLeads(), nil)
	uc := usecase.NewExportLeadsUseCase(repo, time.UTC, zap.NewNop())
	uc.Now = func() time.Time { return time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC) }
	h := handlers.NewExportHandler(uc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/admin/leads/export?format=csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usecase.ContentTypeCSV, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="leads_export_2024-03-06.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "Ana Gómez")
}

func TestExportHandler_XLSX(t *testing.T) {
	repo := new(MockLeadRepository)
	repo.On("FindAll", mock.Anything).Return(sampleLeads(), nil)
	h := handlers.NewExportHandler(usecase.NewExportLeadsUseCase(repo, time.UTC, nil), nil)

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/admin/leads/export?format=xlsx", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usecase.ContentTypeXLSX, rec.Header().Get("Content-Type"))
	// xlsx é um zip
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestExportHandler_Empty(t *testing.T) {
	repo := new(MockLeadRepository)
	repo.On("FindAll", mock.Anything).Return([]*entity.Lead{}, nil)
	h := handlers.NewExportHandler(usecase.NewExportLeadsUseCase(repo, time.UTC, nil), nil)

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/admin/leads/export", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"No hay leads para exportar"}`, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestExportHandler_BadFormatAndFetchError(t *testing.T) {
	repo := new(MockLeadRepository)
	repo.On("FindAll", mock.Anything).Return(nil, errors.New("timeout"))
	h := handlers.NewExportHandler(usecase.NewExportLeadsUseCase(repo, time.UTC, nil), nil)

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/admin/leads/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), usecase.CodeInvalidFormat)

	rec = httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/admin/leads/export?format=csv", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func patchStatus(h *handlers.LeadStatusHandler, id, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPatch, "/admin/leads/"+id+"/status", bytes.NewBufferString(body))
	req = withURLParam(req, "id", id)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestLeadStatusHandler(t *testing.T) {
	repo := new(MockLeadRepository)
	lead := sampleLeads()[0]
	repo.On("FindByID", mock.Anything, "lead-1").Return(lead, nil)
	repo.On("FindByID", mock.Anything, "ghost").Return(nil, entity.ErrLeadNotFound)
	repo.On("UpdateStatus", mock.Anything, "lead-1", entity.LeadStatusContacted).Return(nil)

	h := handlers.NewLeadStatusHandler(usecase.NewUpdateLeadStatusUseCase(repo, nil), nil)

	rec := patchStatus(h, "lead-1", `{"status":"contacted"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated entity.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, entity.LeadStatusContacted, updated.Status)

	assert.Equal(t, http.StatusNotFound, patchStatus(h, "ghost", `{"status":"closed"}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, patchStatus(h, "lead-1", `{"status":"archived"}`).Code)
	assert.Equal(t, http.StatusBadRequest, patchStatus(h, "lead-1", `nope`).Code)
}

func TestSecurityHandler_Dashboard(t *testing.T) {
	backend := &fakeBackend{activities: []entity.SuspiciousActivity{
		{ActivityType: "failed_submissions", Identifier: "10.0.0.1", Severity: entity.SeverityCritical},
		{ActivityType: "rate_limit_hits", Identifier: "contact:a@b.es", Severity: entity.SeverityLow},
	}}
	h := handlers.NewSecurityHandler(usecase.NewSecurityDashboardUseCase(backend, time.Hour, nil), nil, nil)

	rec := httptest.NewRecorder()
	h.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/admin/security/dashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out usecase.SecurityDashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 72, out.Score.Score)
	assert.Equal(t, usecase.SecurityLevel("moderate"), out.Score.Level)
	assert.Len(t, out.Activities, 2)
}

func TestSecurityHandler_DashboardBackendError(t *testing.T) {
	h := handlers.NewSecurityHandler(usecase.NewSecurityDashboardUseCase(&fakeBackend{err: errors.New("down")}, time.Hour, nil), nil, nil)

	rec := httptest.NewRecorder()
	h.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/admin/security/dashboard", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), usecase.CodeSecurityBackend)
}

func TestSecurityHandler_Tasks(t *testing.T) {
	tasks := &fakeTasks{running: map[string]bool{worker.TaskCleanup: true, worker.TaskMonitoring: true}}
	h := handlers.NewSecurityHandler(nil, tasks, nil)

	rec := httptest.NewRecorder()
	h.ListTasks(rec, httptest.NewRequest(http.MethodGet, "/admin/security/tasks", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Enabled bool              `json:"enabled"`
		Tasks   []worker.TaskInfo `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.True(t, listed.Enabled)
	assert.Len(t, listed.Tasks, 2)

	stop := func(name string) int {
		req := withURLParam(httptest.NewRequest(http.MethodDelete, "/admin/security/tasks/"+name, nil), "name", name)
		rec := httptest.NewRecorder()
		h.StopTask(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusNoContent, stop(worker.TaskMonitoring))
	assert.Equal(t, http.StatusNotFound, stop(worker.TaskMonitoring))
	assert.Len(t, tasks.Running(), 1)
}

func TestSecurityHandler_TasksDisabled(t *testing.T) {
	h := handlers.NewSecurityHandler(nil, nil, nil)

	rec := httptest.NewRecorder()
	h.ListTasks(rec, httptest.NewRequest(http.MethodGet, "/admin/security/tasks", nil))

	assert.JSONEq(t, `{"enabled":false,"tasks":[]}`, rec.Body.String())
}
