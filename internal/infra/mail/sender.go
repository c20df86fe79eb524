package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html"
	"html/template"
	"sort"
	"strings"
	texttemplate "text/template"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/gestion-leads/internal/entity"
	"github.com/xavierca1/gestion-leads/internal/infra/metrics"
)

//go:embed templates/*
var templateFS embed.FS

var (
	leadTemplate      = template.Must(template.ParseFS(templateFS, "templates/lead_notification.html"))
	leadPlainTemplate = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/lead_notification.txt"))
)

// Dialer é satisfeito por *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

var fieldLabels = map[string]string{
	"origen":         "Origen",
	"persona":        "Tipo",
	"location":       "Ubicación",
	"area_m2":        "Superficie (m²)",
	"rooms":          "Habitaciones",
	"desired_rent":   "Renta deseada (€)",
	"available_from": "Disponibilidad",
	"privacy":        "Acepta privacidad",
	"marketing":      "Acepta comunicaciones",
	"utm_source":     "UTM Source",
	"utm_medium":     "UTM Medium",
	"utm_campaign":   "UTM Campaign",
	"page_url":       "Página",
}

// LeadNotifier manda o aviso de lead novo por SMTP.
type LeadNotifier struct {
	sender EmailSender
	dialer Dialer
	policy *bluemonday.Policy
	logger *zap.Logger
}

func NewEmailSender(host string, port int, user, password, from string, to []string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		To:       to,
	}
}

func NewLeadNotifier(sender *EmailSender, logger *zap.Logger) *LeadNotifier {
	d := gomail.NewDialer(sender.Host, sender.Port, sender.User, sender.Password)
	return NewLeadNotifierWithDialer(sender, d, logger)
}

func NewLeadNotifierWithDialer(sender *EmailSender, dialer Dialer, logger *zap.Logger) *LeadNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadNotifier{
		sender: *sender,
		dialer: dialer,
		policy: bluemonday.StrictPolicy(),
		logger: logger,
	}
}

func (n *LeadNotifier) Notify(ctx context.Context, notification entity.LeadNotification) (err error) {
	defer func() { metrics.RecordNotification("email", err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(n.sender.To) == 0 {
		return fmt.Errorf("nenhum destinatário configurado para avisos de lead")
	}

	m, err := n.BuildMessage(notification)
	if err != nil {
		return err
	}

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}

	n.logger.Info("📧 Aviso de lead enviado",
		zap.String("lead_id", notification.LeadID),
		zap.Strings("to", n.sender.To),
	)
	return nil
}

// BuildMessage monta o email sem enviar.
func (n *LeadNotifier) BuildMessage(notification entity.LeadNotification) (*gomail.Message, error) {
	data := n.templateData(notification)

	var body bytes.Buffer
	if err := leadTemplate.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("erro ao processar template: %w", err)
	}

	// os campos já passaram pelo StrictPolicy em templateData
	var text bytes.Buffer
	if err := leadPlainTemplate.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("erro ao processar template texto: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.sender.From)
	m.SetHeader("To", n.sender.To...)
	if data.Email != "" {
		m.SetHeader("Reply-To", data.Email)
	}
	m.SetHeader("Subject", subject(data))
	m.SetBody("text/plain", text.String())
	m.AddAlternative("text/html", body.String())
	return m, nil
}

func (n *LeadNotifier) templateData(notification entity.LeadNotification) LeadEmailData {
	data := LeadEmailData{
		LeadID:   notification.LeadID,
		FormType: n.plain(notification.FormType),
		Nombre:   n.plain(notification.Nombre),
		Email:    n.plain(notification.Email),
		Phone:    n.plain(notification.Phone),
		Message:  n.plain(notification.Message),
	}

	keys := make([]string, 0, len(notification.Fields))
	for k := range notification.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		label, ok := fieldLabels[k]
		if !ok {
			label = k
		}
		data.Fields = append(data.Fields, Field{Label: label, Value: n.plain(notification.Fields[k])})
	}
	return data
}

// plain remove qualquer HTML e desfaz as entidades; o html/template escapa de novo.
func (n *LeadNotifier) plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(n.policy.Sanitize(s)))
}

func subject(data LeadEmailData) string {
	if data.Nombre == "" {
		return fmt.Sprintf("Nuevo lead (%s)", data.FormType)
	}
	return fmt.Sprintf("Nuevo lead (%s): %s", data.FormType, data.Nombre)
}
