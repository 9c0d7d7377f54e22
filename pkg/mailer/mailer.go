package mailer

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ekaty/ekaty-backend/pkg/logger"
)

var ErrNoRecipients = errors.New("no mail recipients")

type Config struct {
	Host     string
	Port     string
	From     string
	Password string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends plain-text mail over SMTP. Without a host it only logs the message.
type Mailer struct {
	config Config
	send   sendFunc
}

func New(config Config) *Mailer {
	if config.Port == "" {
		config.Port = "587"
	}
	return &Mailer{config: config, send: smtp.SendMail}
}

func (m *Mailer) Enabled() bool {
	return m.config.Host != "" && m.config.From != ""
}

func (m *Mailer) Send(to []string, subject, body string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}

	if !m.Enabled() {
		logger.Info("[DEV MODE] Mail not sent, SMTP not configured", map[string]interface{}{
			"to":      to,
			"subject": subject,
		})
		return nil
	}

	var auth smtp.Auth
	if m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.From, m.config.Password, m.config.Host)
	}

	msg := buildMessage(m.config.From, to, subject, body)
	if err := m.send(m.config.Host+":"+m.config.Port, auth, m.config.From, to, msg); err != nil {
		logger.Error("Failed to send mail", err, map[string]interface{}{
			"subject": subject,
		})
		return fmt.Errorf("failed to send mail: %w", err)
	}

	logger.Info("Mail sent", map[string]interface{}{
		"to":      to,
		"subject": subject,
	})
	return nil
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
