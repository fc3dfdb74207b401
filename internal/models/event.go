package models

// RegistrationEvent announces a created or edited application on the message
// bus; the notification sender turns it into an e-mail.
type RegistrationEvent struct {
	Username      string `json:"username"`
	Operation     string `json:"operation"`
	ApplicationID int    `json:"application_id"`
	Fee           int    `json:"fee"`
	State         string `json:"state"`
}
