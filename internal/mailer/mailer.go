package mailer

import "log"

// Mailer is the outbound delivery collaborator. The only message the
// server sends today is the password reset token.
type Mailer interface {
	SendPasswordReset(email, firstName, resetToken string) error
}

// LogMailer writes the message to the server log instead of sending
// it. Real delivery is out of scope; swap in a provider-backed
// implementation behind the same interface.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendPasswordReset(email, firstName, resetToken string) error {
	log.Printf("password reset requested for %s (%s): token=%s", email, firstName, resetToken)
	return nil
}
