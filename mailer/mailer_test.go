package mailer

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuniga63/digital-menu-api/config"
)

func TestSendWelcome(t *testing.T) {
	m := New(config.Mail{Host: "smtp.example.com", Port: "587", User: "menu", Password: "secret", From: "menu@example.com"}, "Digital Menu")

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg, gotAuth = addr, to, string(msg), a
		return nil
	}

	require.NoError(t, m.SendWelcome("Ana", "ana@example.com"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"ana@example.com"}, gotTo)
	assert.NotNil(t, gotAuth)
	assert.Contains(t, gotMsg, "Subject: Welcome to Digital Menu\r\n")
	assert.Contains(t, gotMsg, "Welcome Ana to Digital Menu")
}

func TestSendWelcomeDisabled(t *testing.T) {
	m := New(config.Mail{}, "Digital Menu")
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("mail sent while disabled")
		return nil
	}
	assert.False(t, m.Enabled())
	assert.NoError(t, m.SendWelcome("Ana", "ana@example.com"))
}

func TestSendWelcomeWrapsErrors(t *testing.T) {
	m := New(config.Mail{Host: "smtp.example.com", Port: "25"}, "Digital Menu")
	boom := errors.New("connection refused")
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return boom }

	err := m.SendWelcome("Ana", "ana@example.com")
	assert.ErrorIs(t, err, boom)
}
