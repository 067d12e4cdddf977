package dto

type ClassifyEmailRequest struct {
	Subject string `json:"subject"`
	From    string `json:"from"`
	Body    string `json:"body"`
}

type GenerateReplyRequest struct {
	Subject     string   `json:"subject"`
	From        string   `json:"from"`
	Body        string   `json:"body"`
	ContextDocs []string `json:"contextDocs"`
}
