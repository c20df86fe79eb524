package whatsapp

type SendMessageInput struct {
	PhoneNumber  string
	TemplateName string
	Language     string
	Parameters   []string
}

type SendMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}
