package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/entity"
)

func TestNotifySendsTemplateToEveryPhone(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/PHONE123/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var p map[string]any
		require.NoError(t, json.Unmarshal(body, &p))
		mu.Lock()
		payloads = append(payloads, p)
		mu.Unlock()

		w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{
		BaseURL:     srv.URL,
		AccessToken: "tok",
		PhoneID:     "PHONE123",
		NotifyTo:    []string{"34600000001", "34600000002"},
	}, srv.Client(), zap.NewNop())

	err := c.Notify(context.Background(), entity.LeadNotification{FormType: "tenant_form", Nombre: "Luis", Email: "luis@example.com"})
	require.NoError(t, err)
	require.Len(t, payloads, 2)

	tmpl := payloads[0]["template"].(map[string]any)
	assert.Equal(t, DefaultTemplate, tmpl["name"])
	assert.Equal(t, "es", tmpl["language"].(map[string]any)["code"])

	params := tmpl["components"].([]any)[0].(map[string]any)["parameters"].([]any)
	require.Len(t, params, 4)
	assert.Equal(t, "tenant_form", params[0].(map[string]any)["text"])
	assert.Equal(t, "-", params[2].(map[string]any)["text"])
}

func TestNotifyReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Template name does not exist","code":132001}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, AccessToken: "tok", PhoneID: "P", NotifyTo: []string{"34600000001"}}, srv.Client(), nil)

	err := c.Notify(context.Background(), entity.LeadNotification{FormType: "contact"})
	assert.ErrorContains(t, err, "Template name does not exist")
}

func TestNotifyNotConfigured(t *testing.T) {
	c := NewClient(Config{AccessToken: "tok", PhoneID: "P"}, nil, nil)
	assert.ErrorIs(t, c.Notify(context.Background(), entity.LeadNotification{}), ErrNotConfigured)

	c = NewClient(Config{NotifyTo: []string{"34600000001"}}, nil, nil)
	assert.ErrorIs(t, c.Notify(context.Background(), entity.LeadNotification{}), ErrNotConfigured)
}
