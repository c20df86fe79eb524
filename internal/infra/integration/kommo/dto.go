package kommo

// CreateLeadInput é o lead já achatado para a API v4 do Kommo.
type CreateLeadInput struct {
	LeadID   string
	Name     string
	Email    string
	Phone    string
	FormType string
	Origin   string
	Message  string
}

type embeddedIDs struct {
	Embedded struct {
		Leads []struct {
			ID int `json:"id"`
		} `json:"leads"`
		Contacts []struct {
			ID int `json:"id"`
		} `json:"contacts"`
	} `json:"_embedded"`
}
