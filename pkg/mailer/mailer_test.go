package mailer

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailer_DevModeDoesNotSend(t *testing.T) {
	m := New(Config{})
	called := false
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	assert.False(t, m.Enabled())
	assert.NoError(t, m.Send([]string{"ops@ekaty.test"}, "subject", "body"))
	assert.False(t, called)
}

func TestMailer_Send(t *testing.T) {
	m := New(Config{Host: "smtp.ekaty.test", From: "alerts@ekaty.test", Password: "secret"})

	var gotAddr string
	var gotMsg []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		assert.NotNil(t, a)
		assert.Equal(t, "alerts@ekaty.test", from)
		assert.Equal(t, []string{"a@ekaty.test", "b@ekaty.test"}, to)
		return nil
	}

	require.NoError(t, m.Send([]string{"a@ekaty.test", "b@ekaty.test"}, "[eKaty Alert] test", "hello"))
	assert.Equal(t, "smtp.ekaty.test:587", gotAddr)
	assert.Contains(t, string(gotMsg), "Subject: [eKaty Alert] test\r\n")
	assert.Contains(t, string(gotMsg), "To: a@ekaty.test, b@ekaty.test\r\n")
	assert.Contains(t, string(gotMsg), "\r\n\r\nhello")
}

func TestMailer_Errors(t *testing.T) {
	m := New(Config{Host: "smtp.ekaty.test", From: "alerts@ekaty.test"})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("dial tcp: refused")
	}

	assert.ErrorIs(t, m.Send(nil, "s", "b"), ErrNoRecipients)
	assert.Error(t, m.Send([]string{"x@ekaty.test"}, "s", "b"))
}
