// Package mailer sends the account mails over SMTP.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Zuniga63/digital-menu-api/config"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	cfg     config.Mail
	appName string
	send    sendFunc
}

func New(cfg config.Mail, appName string) *Mailer {
	return &Mailer{cfg: cfg, appName: appName, send: smtp.SendMail}
}

// Enabled is false when no SMTP host is configured; sends are then skipped.
func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != ""
}

// SendWelcome greets a newly registered user.
func (m *Mailer) SendWelcome(name, email string) error {
	if !m.Enabled() {
		return nil
	}
	subject := "Welcome to " + m.appName
	body := fmt.Sprintf("Welcome %s to %s, thanks for joining us.", name, m.appName)
	return m.sendMail(email, subject, body)
}

func (m *Mailer) sendMail(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	addr := m.cfg.Host + ":" + m.cfg.Port
	if err := m.send(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
