package entity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrLeadNotFound          = errors.New("lead não encontrado")
	ErrLeadOriginRequired    = errors.New("lead origin is required")
	ErrInvalidLeadStatus     = errors.New("estado de lead inválido")
	ErrInvalidLeadTransition = errors.New("transição de estado não permitida")
	ErrDuplicateLead         = errors.New("lead já registrado")
)

// Persona identifica quem preencheu o formulário.
type Persona string

const (
	PersonaOwner   Persona = "owner"
	PersonaTenant  Persona = "tenant"
	PersonaCompany Persona = "company"
)

func (p Persona) IsValid() bool {
	switch p {
	case PersonaOwner, PersonaTenant, PersonaCompany:
		return true
	}
	return false
}

// LeadStatus segue o funil comercial: new -> qualified -> contacted -> scheduled -> closed.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusScheduled LeadStatus = "scheduled"
	LeadStatusClosed    LeadStatus = "closed"
)

var leadStatusOrder = map[LeadStatus]int{
	LeadStatusNew:       0,
	LeadStatusQualified: 1,
	LeadStatusContacted: 2,
	LeadStatusScheduled: 3,
	LeadStatusClosed:    4,
}

func ParseLeadStatus(s string) (LeadStatus, error) {
	status := LeadStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := leadStatusOrder[status]; !ok {
		return "", ErrInvalidLeadStatus
	}
	return status, nil
}

// CanTransitionTo só permite avançar no funil. Pular etapas é permitido, voltar não.
func (s LeadStatus) CanTransitionTo(next LeadStatus) bool {
	from, ok := leadStatusOrder[s]
	if !ok {
		return false
	}
	to, ok := leadStatusOrder[next]
	if !ok {
		return false
	}
	return to > from
}

// Lead é o registro criado por qualquer formulário do site.
type Lead struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Origin   string  `json:"origen"`
	FormType string  `json:"form_type"`
	Persona  Persona `json:"persona,omitempty"`

	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Message string `json:"message,omitempty"`

	// Dados do imóvel
	Location      string     `json:"location,omitempty"`
	AreaM2        *float64   `json:"area_m2,omitempty"`
	Rooms         *int       `json:"rooms,omitempty"`
	DesiredRent   *float64   `json:"desired_rent,omitempty"`
	AvailableFrom *time.Time `json:"available_from,omitempty"`

	PrivacyAccepted   bool `json:"privacy_accepted"`
	MarketingAccepted bool `json:"marketing_accepted"`

	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`

	PageURL   string `json:"page_url,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	Status LeadStatus `json:"status"`
}

// NewLead cria um lead com ID e status inicial.
func NewLead(origin, formType string) (*Lead, error) {
	lead := &Lead{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Origin:    strings.TrimSpace(origin),
		FormType:  formType,
		Status:    LeadStatusNew,
	}
	if err := lead.Validate(); err != nil {
		return nil, err
	}
	return lead, nil
}

func (l *Lead) Validate() error {
	if strings.TrimSpace(l.Origin) == "" {
		return ErrLeadOriginRequired
	}
	if l.Persona != "" && !l.Persona.IsValid() {
		return errors.New("persona inválida")
	}
	if _, ok := leadStatusOrder[l.Status]; !ok {
		return ErrInvalidLeadStatus
	}
	return nil
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error
	FindByID(ctx context.Context, id string) (*Lead, error)
	FindAll(ctx context.Context) ([]*Lead, error)
	UpdateStatus(ctx context.Context, id string, status LeadStatus) error
}
