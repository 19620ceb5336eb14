package mailer

// EmailJob is the queue payload consumed by the email worker. Either
// Template + Data or the raw Subject/Text/HTML fields are set.
type EmailJob struct {
	ID       string         `json:"id,omitempty"`
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// MessageID is used as the AMQP message id.
func (j EmailJob) MessageID() string { return j.ID }
