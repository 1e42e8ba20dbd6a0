package auth

import (
	"fmt"
	"log/slog"
	"net/smtp"
)

// Mailer delivers one-time login codes out of band. The delivery mechanism
// is an external collaborator; the rest of the system only depends on this
// interface.
type Mailer interface {
	SendCode(to, code string) error
}

// SMTPMailer sends login codes over SMTP.
type SMTPMailer struct {
	addr     string
	from     string
	username string
	password string
	host     string
}

// NewSMTPMailer creates a mailer for the given SMTP host and port.
func NewSMTPMailer(host, port, from, username, password string) *SMTPMailer {
	return &SMTPMailer{
		addr:     host + ":" + port,
		from:     from,
		username: username,
		password: password,
		host:     host,
	}
}

// SendCode emails the login code to the recipient.
func (m *SMTPMailer) SendCode(to, code string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Your WeShare login code\r\n\r\n"+
		"There was a new login attempt to your account.\r\n"+
		"If this was you, enter the following code: %s\r\n", m.from, to, code)

	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := smtp.SendMail(m.addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send login code: %w", err)
	}
	return nil
}

// LogMailer writes codes to the log instead of sending mail. For local
// development without SMTP credentials.
type LogMailer struct{}

// SendCode logs the code.
func (LogMailer) SendCode(to, code string) error {
	slog.Info("login code issued", "to", to, "code", code)
	return nil
}
