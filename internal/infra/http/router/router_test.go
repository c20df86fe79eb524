package router_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/entity"
	"github.com/xavierca1/gestion-leads/internal/infra/http/handlers"
	"github.com/xavierca1/gestion-leads/internal/infra/http/router"
	"github.com/xavierca1/gestion-leads/internal/ratelimit"
	"github.com/xavierca1/gestion-leads/internal/usecase"
)

type memRepo struct {
	mu    sync.Mutex
	leads map[string]*entity.Lead
}

func (r *memRepo) Create(_ context.Context, l *entity.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[l.ID] = l
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*entity.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *memRepo) FindAll(context.Context) ([]*entity.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Lead, 0, len(r.leads))
	for _, l := range r.leads {
		out = append(out, l)
	}
	return out, nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id string, status entity.LeadStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return entity.ErrLeadNotFound
	}
	l.Status = status
	return nil
}

type memBackend struct {
	mu       sync.Mutex
	perIP    map[string]int
	ipChecks int
}

func (b *memBackend) Scan(context.Context, int) ([]entity.SuspiciousActivity, error) {
	return nil, nil
}
func (b *memBackend) Cleanup(context.Context) error { return nil }
func (b *memBackend) LogEvent(context.Context, string, map[string]any, entity.Severity) error {
	return nil
}
func (b *memBackend) RecentEvents(context.Context, int) ([]entity.SecurityEvent, error) {
	return nil, nil
}

func (b *memBackend) CheckIPRateLimit(_ context.Context, ip, _ string, maxAttempts, _, _ int) (*entity.RateLimitResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ipChecks++
	b.perIP[ip]++
	return &entity.RateLimitResult{Allowed: b.perIP[ip] <= maxAttempts, Attempts: b.perIP[ip]}, nil
}

const adminToken = "admin-token"

func newServer(t *testing.T, ipMax int) (*httptest.Server, *memRepo, *memBackend) {
	t.Helper()
	repo := &memRepo{leads: map[string]*entity.Lead{}}
	backend := &memBackend{perIP: map[string]int{}}
	logger := zap.NewNop()

	submit := usecase.NewSubmitLeadUseCase(repo, nil, ratelimit.New(ratelimit.DefaultLeadPolicy), logger).
		WithIPRateLimit(backend, usecase.IPRatePolicy{MaxAttempts: ipMax, WindowMinutes: 60, BlockMinutes: 60})

	h := router.New(router.Config{
		Logger:      logger,
		AdminToken:  adminToken,
		CORSOrigins: []string{"https://gestion.es"},
		Health:     handlers.NewHealthHandler(nil, nil, "test"),
		Leads:      handlers.NewLeadHandler(submit, logger),
		Export:     handlers.NewExportHandler(usecase.NewExportLeadsUseCase(repo, time.UTC, logger), logger),
		LeadStatus: handlers.NewLeadStatusHandler(usecase.NewUpdateLeadStatusUseCase(repo, logger), logger),
		Security:   handlers.NewSecurityHandler(usecase.NewSecurityDashboardUseCase(backend, time.Hour, logger), nil, logger),
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, repo, backend
}

func do(t *testing.T, method, url, body, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func leadBody(email string) string {
	return `{"form_type":"contact","name":"Ana Gómez","email":"` + email + `","message":"Me interesa gestionar mi piso"}`
}

func TestPublicRoutes(t *testing.T) {
	srv, _, _ := newServer(t, 20)

	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/health", "", "").StatusCode)
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/metrics", "", "").StatusCode)
	assert.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/leads", leadBody("ana@example.com"), "").StatusCode)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	srv, _, _ := newServer(t, 20)

	for _, path := range []string{"/admin/leads/export", "/admin/security/dashboard", "/admin/security/tasks"} {
		assert.Equal(t, http.StatusUnauthorized, do(t, http.MethodGet, srv.URL+path, "", "").StatusCode, path)
	}
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/admin/security/tasks", "", adminToken).StatusCode)
}

func TestSubmitThenExportAndAdvanceStatus(t *testing.T) {
	srv, repo, _ := newServer(t, 20)

	// export vazio
	resp := do(t, http.MethodGet, srv.URL+"/admin/leads/export", "", adminToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/leads", leadBody("ana@example.com"), "").StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/admin/leads/export?format=csv", "", adminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "leads_export_")

	leads, _ := repo.FindAll(context.Background())
	require.Len(t, leads, 1)
	id := leads[0].ID

	resp = do(t, http.MethodPatch, srv.URL+"/admin/leads/"+id+"/status", `{"status":"qualified"}`, adminToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPatch, srv.URL+"/admin/leads/"+id+"/status", `{"status":"new"}`, adminToken)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestIPLimitAcrossEmails(t *testing.T) {
	srv, _, _ := newServer(t, 2)

	assert.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/leads", leadBody("a@example.com"), "").StatusCode)
	assert.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/leads", leadBody("b@example.com"), "").StatusCode)

	resp := do(t, http.MethodPost, srv.URL+"/leads", leadBody("c@example.com"), "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newServer(t, 20)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/leads", nil)
	req.Header.Set("Origin", "https://gestion.es")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "https://gestion.es", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestFourthSubmissionBlockedBeforeAnyBackendCall(t *testing.T) {
	srv, repo, backend := newServer(t, 20)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/leads", leadBody("ana@example.com"), "").StatusCode)
	}
	require.Equal(t, 3, backend.ipChecks)

	resp := do(t, http.MethodPost, srv.URL+"/leads", leadBody("ana@example.com"), "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 3, backend.ipChecks)

	leads, _ := repo.FindAll(context.Background())
	assert.Len(t, leads, 3)
}

func TestSpoofedForwardedForDoesNotResetIPLimit(t *testing.T) {
	srv, _, backend := newServer(t, 1)

	codes := make([]int, 0, 3)
	for i, ip := range []string{"10.0.0.0", "10.0.0.1", "10.0.0.2"} {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/leads", bytes.NewBufferString(leadBody(fmt.Sprintf("u%d@example.com", i))))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", ip)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}

	assert.Equal(t, []int{http.StatusCreated, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
	assert.Len(t, backend.perIP, 1)
	assert.NotContains(t, backend.perIP, "10.0.0.1")
}
