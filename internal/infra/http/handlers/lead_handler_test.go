package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/entity"
	"github.com/xavierca1/gestion-leads/internal/infra/http/handlers"
	"github.com/xavierca1/gestion-leads/internal/ratelimit"
	"github.com/xavierca1/gestion-leads/internal/usecase"
)

func newLeadHandler(repo *MockLeadRepository, notifier usecase.Notifier) *handlers.LeadHandler {
	uc := usecase.NewSubmitLeadUseCase(repo, notifier, ratelimit.New(ratelimit.DefaultLeadPolicy), zap.NewNop())
	return handlers.NewLeadHandler(uc, zap.NewNop())
}

func postLead(h *handlers.LeadHandler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/leads", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

const validLead = `{
	"form_type": "owner_form",
	"persona": "owner",
	"name": "Ana Gómez",
	"email": "ana@example.com",
	"phone": "612 345 678",
	"message": "Quiero alquilar mi piso en Madrid",
	"area": "85,5",
	"rooms": 3,
	"privacy_accepted": true
}`

func TestLeadHandler_Created(t *testing.T) {
	repo := new(MockLeadRepository)
	notifier := new(MockNotifier)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	h := newLeadHandler(repo, notifier)
	rec := postLead(h, validLead, map[string]string{
		"Referer":    "https://gestion.es/propietarios?utm_source=google&utm_campaign=primavera",
		"User-Agent": "Mozilla/5.0",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var out usecase.SubmitLeadOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, entity.LeadStatusNew, out.Status)

	saved := repo.Calls[0].Arguments.Get(1).(*entity.Lead)
	assert.Equal(t, "google", saved.UTMSource)
	assert.Equal(t, "primavera", saved.UTMCampaign)
	assert.Equal(t, "Mozilla/5.0", saved.UserAgent)
	require.NotNil(t, saved.AreaM2)
	assert.Equal(t, 85.5, *saved.AreaM2)
}

func TestLeadHandler_InvalidJSON(t *testing.T) {
	repo := new(MockLeadRepository)
	h := newLeadHandler(repo, nil)

	rec := postLead(h, `{"name":`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_JSON")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLeadHandler_ValidationError(t *testing.T) {
	repo := new(MockLeadRepository)
	h := newLeadHandler(repo, nil)

	rec := postLead(h, `{"name":"A","email":"not-an-email"}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, usecase.CodeValidation, resp.Error)

	fields := map[string]bool{}
	for _, f := range resp.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["email"])
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLeadHandler_RateLimited(t *testing.T) {
	repo := new(MockLeadRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	h := newLeadHandler(repo, nil)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, postLead(h, validLead, nil).Code)
	}
	rec := postLead(h, validLead, nil)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), usecase.CodeRateLimited)
	repo.AssertNumberOfCalls(t, "Create", 3)
}

func TestLeadHandler_DatabaseErrorIsGeneric(t *testing.T) {
	repo := new(MockLeadRepository)
	notifier := new(MockNotifier)
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("pq: relation \"leads\" does not exist"))

	h := newLeadHandler(repo, notifier)
	rec := postLead(h, validLead, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), usecase.CodeDatabase)
	assert.NotContains(t, rec.Body.String(), "relation")
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestLeadHandler_NotificationFailureStillCreated(t *testing.T) {
	repo := new(MockLeadRepository)
	notifier := new(MockNotifier)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	h := newLeadHandler(repo, notifier)
	rec := postLead(h, validLead, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/leads", nil)
	req.RemoteAddr = "203.0.113.9:54321"
	assert.Equal(t, "203.0.113.9", handlers.ClientIP(req))

	req.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", handlers.ClientIP(req))
}

func TestLeadHandler_BodyTooLarge(t *testing.T) {
	repo := new(MockLeadRepository)
	h := newLeadHandler(repo, nil)

	body := `{"name":"Ana Gómez","email":"ana@example.com","message":"` + strings.Repeat("a", 70<<10) + `"}`
	rec := postLead(h, body, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "PAYLOAD_TOO_LARGE")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

type blockedIP struct{ until time.Time }

func (b blockedIP) CheckIPRateLimit(context.Context, string, string, int, int, int) (*entity.RateLimitResult, error) {
	return &entity.RateLimitResult{Allowed: false, Attempts: 21, BlockedUntil: &b.until}, nil
}

func TestLeadHandler_IPBlockedSetsRetryAfter(t *testing.T) {
	repo := new(MockLeadRepository)
	uc := usecase.NewSubmitLeadUseCase(repo, nil, ratelimit.New(ratelimit.DefaultLeadPolicy), zap.NewNop()).
		WithIPRateLimit(blockedIP{until: time.Now().Add(10 * time.Minute)}, usecase.IPRatePolicy{MaxAttempts: 20})
	h := handlers.NewLeadHandler(uc, zap.NewNop())

	rec := postLead(h, validLead, nil)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
