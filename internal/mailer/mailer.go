// Package mailer sends campaign emails over SMTP with implicit TLS.
package mailer

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/farmaleads/leads-cli/internal/config"
)

// Mailer delivers a single email. The bool reports delivery success; the
// string carries a human-readable detail for the audit log.
type Mailer interface {
	Send(to, subject, body, senderName string) (bool, string)
}

// SMTPMailer sends through an SMTP server using implicit TLS, the mode
// Gmail exposes on port 465.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

// NewSMTP builds a mailer from the SMTP configuration.
func NewSMTP(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers one message. Missing credentials fail fast without
// touching the network.
func (m *SMTPMailer) Send(to, subject, body, senderName string) (bool, string) {
	if !m.cfg.Configured() {
		return false, "Configura las credenciales SMTP (direccion y password de aplicacion)."
	}

	msg := gomail.NewMessage()
	from := m.cfg.Address
	if senderName != "" {
		from = msg.FormatAddress(m.cfg.Address, senderName)
	}
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Address, m.cfg.Password)
	dialer.SSL = true

	if err := dialer.DialAndSend(msg); err != nil {
		zap.L().Warn("mailer: send failed", zap.String("to", to), zap.Error(err))
		return false, fmt.Sprintf("Error enviando a %s: %v", to, err)
	}
	return true, fmt.Sprintf("Enviado a %s", to)
}
