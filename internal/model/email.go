package model

// EmailRequest is the body of a document written to the email-request collection.
// Text is carried through decoding but the outgoing body is always composed from
// the fixed share template.
type EmailRequest struct {
	From          string `json:"from"`
	To            string `json:"to"`
	Subject       string `json:"subject"`
	Text          string `json:"text"`
	UserName      string `json:"user_name"`
	RecipientName string `json:"recipient_name"`
}

// EmailPayload is the JSON body posted to the notification API.
type EmailPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}
