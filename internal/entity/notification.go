package entity

// LeadNotification é o payload normalizado enviado para email/CRM.
type LeadNotification struct {
	LeadID   string            `json:"leadId"`
	FormType string            `json:"formType"`
	Nombre   string            `json:"nombre"`
	Email    string            `json:"email"`
	Phone    string            `json:"phone"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
}
