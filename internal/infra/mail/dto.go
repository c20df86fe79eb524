package mail

// LeadEmailData alimenta o template de aviso de lead.
type LeadEmailData struct {
	LeadID   string
	FormType string
	Nombre   string
	Email    string
	Phone    string
	Message  string
	Fields   []Field
}

type Field struct {
	Label string
	Value string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       []string
}
