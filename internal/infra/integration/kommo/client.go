package kommo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/entity"
	"github.com/xavierca1/gestion-leads/internal/infra/metrics"
)

var ErrNotConfigured = errors.New("kommo não configurado")

type Client struct {
	apiToken   string
	baseURL    string
	statusID   int
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL, apiToken string, statusID int, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiToken:   apiToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		statusID:   statusID,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify cria o lead no funil do CRM.
func (c *Client) Notify(ctx context.Context, n entity.LeadNotification) (err error) {
	defer func() { metrics.RecordNotification("kommo", err) }()

	_, err = c.CreateLead(ctx, CreateLeadInput{
		LeadID:   n.LeadID,
		Name:     n.Nombre,
		Email:    n.Email,
		Phone:    n.Phone,
		FormType: n.FormType,
		Origin:   n.Fields["origen"],
		Message:  n.Message,
	})
	return err
}

func (c *Client) CreateLead(ctx context.Context, input CreateLeadInput) (int, error) {
	if c.apiToken == "" || c.baseURL == "" {
		return 0, ErrNotConfigured
	}

	// Primeiro, criar ou buscar contato
	contactID, err := c.findOrCreateContact(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("erro ao criar/buscar contato: %w", err)
	}

	tags := []map[string]any{{"name": input.FormType}}
	if input.Origin != "" && input.Origin != input.FormType {
		tags = append(tags, map[string]any{"name": input.Origin})
	}

	lead := map[string]any{
		"name": fmt.Sprintf("%s - %s", input.Name, input.FormType),
		"_embedded": map[string]any{
			"tags":     tags,
			"contacts": []map[string]any{{"id": contactID}},
		},
	}
	if c.statusID > 0 {
		lead["status_id"] = c.statusID
	}

	var result embeddedIDs
	if err := c.do(ctx, http.MethodPost, "/leads", []map[string]any{lead}, &result, http.StatusOK); err != nil {
		return 0, fmt.Errorf("erro ao criar lead: %w", err)
	}
	if len(result.Embedded.Leads) == 0 {
		return 0, fmt.Errorf("lead não criado")
	}

	leadID := result.Embedded.Leads[0].ID
	c.logger.Info("✅ Kommo: Lead criado",
		zap.Int("kommo_lead_id", leadID),
		zap.String("lead_id", input.LeadID),
		zap.String("form_type", input.FormType),
	)

	if input.Message != "" {
		c.addNote(ctx, leadID, input.Message)
	}
	return leadID, nil
}

func (c *Client) findOrCreateContact(ctx context.Context, input CreateLeadInput) (int, error) {
	query := input.Email
	if query == "" {
		query = input.Phone
	}

	contactID, err := c.findContact(ctx, query)
	if err == nil && contactID > 0 {
		c.logger.Debug("Kommo: contato existente encontrado", zap.Int("contact_id", contactID))
		return contactID, nil
	}

	// Se não encontrou, criar novo contato
	return c.createContact(ctx, input)
}

func (c *Client) findContact(ctx context.Context, query string) (int, error) {
	if query == "" {
		return 0, fmt.Errorf("contato sem email ou telefone")
	}

	var result embeddedIDs
	path := "/contacts?query=" + url.QueryEscape(query)
	// Kommo responde 204 quando a busca não encontra nada
	if err := c.do(ctx, http.MethodGet, path, nil, &result, http.StatusOK, http.StatusNoContent); err != nil {
		return 0, err
	}

	if len(result.Embedded.Contacts) > 0 {
		return result.Embedded.Contacts[0].ID, nil
	}
	return 0, fmt.Errorf("contato não encontrado")
}

func (c *Client) createContact(ctx context.Context, input CreateLeadInput) (int, error) {
	var fields []map[string]any
	if input.Phone != "" {
		fields = append(fields, map[string]any{
			"field_code": "PHONE",
			"values":     []map[string]any{{"value": input.Phone, "enum_code": "WORK"}},
		})
	}
	if input.Email != "" {
		fields = append(fields, map[string]any{
			"field_code": "EMAIL",
			"values":     []map[string]any{{"value": input.Email, "enum_code": "WORK"}},
		})
	}

	contact := []map[string]any{{
		"name":                 input.Name,
		"custom_fields_values": fields,
	}}

	var result embeddedIDs
	if err := c.do(ctx, http.MethodPost, "/contacts", contact, &result, http.StatusOK, http.StatusCreated); err != nil {
		return 0, fmt.Errorf("erro ao criar contato: %w", err)
	}

	if len(result.Embedded.Contacts) == 0 {
		return 0, fmt.Errorf("erro ao obter ID do contato criado")
	}
	return result.Embedded.Contacts[0].ID, nil
}

// addNote anexa a mensagem do formulário. Falha aqui não invalida o lead.
func (c *Client) addNote(ctx context.Context, leadID int, text string) {
	note := []map[string]any{{
		"note_type": "common",
		"params":    map[string]any{"text": text},
	}}
	path := fmt.Sprintf("/leads/%d/notes", leadID)
	if err := c.do(ctx, http.MethodPost, path, note, nil, http.StatusOK); err != nil {
		c.logger.Warn("⚠️ Kommo: falha ao anexar nota", zap.Int("kommo_lead_id", leadID), zap.Error(err))
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any, okStatus ...int) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	c.addAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	accepted := false
	for _, s := range okStatus {
		if resp.StatusCode == s {
			accepted = true
			break
		}
	}
	if !accepted {
		return fmt.Errorf("status %d - %s", resp.StatusCode, string(respBody))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func (c *Client) addAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
