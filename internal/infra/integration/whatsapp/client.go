package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/entity"
	"github.com/xavierca1/gestion-leads/internal/infra/metrics"
)

const (
	DefaultBaseURL  = "https://graph.facebook.com/v18.0"
	DefaultTemplate = "nuevo_lead"
	DefaultLanguage = "es"
)

var ErrNotConfigured = errors.New("whatsapp não configurado")

type Config struct {
	BaseURL     string
	AccessToken string
	PhoneID     string
	// NotifyTo são os telefones da equipe comercial que recebem o alerta.
	NotifyTo []string
	Template string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Template == "" {
		cfg.Template = DefaultTemplate
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, httpClient: httpClient, logger: logger}
}

// Notify avisa cada telefone da equipe com o template de lead novo.
func (c *Client) Notify(ctx context.Context, n entity.LeadNotification) (err error) {
	defer func() { metrics.RecordNotification("whatsapp", err) }()

	if len(c.cfg.NotifyTo) == 0 {
		return ErrNotConfigured
	}

	params := []string{n.FormType, orDash(n.Nombre), orDash(n.Phone), orDash(n.Email)}

	var errs []error
	for _, phone := range c.cfg.NotifyTo {
		input := SendMessageInput{
			PhoneNumber:  phone,
			TemplateName: c.cfg.Template,
			Language:     DefaultLanguage,
			Parameters:   params,
		}
		if err := c.SendMessage(ctx, input); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", phone, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Client) SendMessage(ctx context.Context, input SendMessageInput) error {
	if c.cfg.AccessToken == "" || c.cfg.PhoneID == "" {
		return ErrNotConfigured
	}

	lang := input.Language
	if lang == "" {
		lang = DefaultLanguage
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                input.PhoneNumber,
		"type":              "template",
		"template": map[string]any{
			"name":     input.TemplateName,
			"language": map[string]string{"code": lang},
			"components": []map[string]any{
				{
					"type":       "body",
					"parameters": convertParametersToAPI(input.Parameters),
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("erro ao serializar payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.cfg.BaseURL, c.cfg.PhoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.AccessToken))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var result SendMessageResponse
	_ = json.Unmarshal(respBody, &result)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if result.Error != nil {
			return fmt.Errorf("whatsapp api error %d: %s", resp.StatusCode, result.Error.Message)
		}
		return fmt.Errorf("whatsapp api error: %d", resp.StatusCode)
	}
	if result.Error != nil {
		return fmt.Errorf("whatsapp: %s", result.Error.Message)
	}

	c.logger.Info("✅ WhatsApp: alerta enviado", zap.String("to", input.PhoneNumber))
	return nil
}

func convertParametersToAPI(params []string) []map[string]string {
	result := make([]map[string]string, 0, len(params))
	for _, param := range params {
		result = append(result, map[string]string{
			"type": "text",
			"text": param,
		})
	}
	return result
}

// a API rejeita parâmetro de template vazio
func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
