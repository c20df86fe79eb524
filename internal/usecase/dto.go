package usecase

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/xavierca1/gestion-leads/internal/entity"
)

// FlexibleNumber aceita 85, "85", "85,5" ou null vindos do formulário.
type FlexibleNumber string

func (n *FlexibleNumber) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" || raw == "" {
		*n = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = FlexibleNumber(s)
		return nil
	}
	*n = FlexibleNumber(raw)
	return nil
}

// RequestMeta vem dos headers HTTP, não do corpo.
type RequestMeta struct {
	PageURL   string
	UserAgent string
	IP        string
}

type SubmitLeadInput struct {
	FormType string `json:"form_type"`
	Origin   string `json:"origen"`
	Persona  string `json:"persona"`

	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`

	Location      string         `json:"location"`
	Area          FlexibleNumber `json:"area"`
	Rooms         FlexibleNumber `json:"rooms"`
	DesiredRent   FlexibleNumber `json:"desired_rent"`
	AvailableFrom string         `json:"available_from"`

	PrivacyAccepted   bool `json:"privacy_accepted"`
	MarketingAccepted bool `json:"marketing_accepted"`

	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMTerm     string `json:"utm_term"`
	UTMContent  string `json:"utm_content"`

	PageURL   string `json:"page_url"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"user_agent"`

	Meta RequestMeta `json:"-"`
}

type SubmitLeadOutput struct {
	ID     string            `json:"id"`
	Status entity.LeadStatus `json:"status"`
	Msg    string            `json:"msg"`
}

type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

type SecurityDashboard struct {
	Score        SecurityScore               `json:"score"`
	Summary      SeveritySummary             `json:"summary"`
	Activities   []entity.SuspiciousActivity `json:"activities"`
	RecentEvents []entity.SecurityEvent      `json:"recent_events"`
	GeneratedAt  time.Time                   `json:"generated_at"`
}
