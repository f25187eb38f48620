package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/noah-isme/chilahati-archive-api/pkg/config"
)

func TestSMTPSenderBuildsMessage(t *testing.T) {
	orig := dialAndSend
	defer func() { dialAndSend = orig }()

	var sent *gomail.Message
	dialAndSend = func(d *gomail.Dialer, m ...*gomail.Message) error {
		sent = m[0]
		return nil
	}

	sender := NewSMTPSender(config.MailConfig{Host: "smtp.example", Port: 587, Username: "u", Password: "p", FromAddress: "archive@example.com", FromName: "Archive"})
	err := sender.Send(context.Background(), Message{To: "reader@example.com", ReplyTo: "me@example.com", Subject: "Hello", HTMLBody: "<p>hi</p>"})
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, []string{"reader@example.com"}, sent.GetHeader("To"))
	assert.Equal(t, []string{"Hello"}, sent.GetHeader("Subject"))
	assert.Equal(t, []string{"me@example.com"}, sent.GetHeader("Reply-To"))

	var buf bytes.Buffer
	_, err = sent.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<p>hi</p>")
}

func TestSMTPSenderPropagatesFailure(t *testing.T) {
	orig := dialAndSend
	defer func() { dialAndSend = orig }()
	dialAndSend = func(d *gomail.Dialer, m ...*gomail.Message) error { return errors.New("relay down") }

	sender := NewSMTPSender(config.MailConfig{Host: "smtp.example", Port: 587})
	assert.Error(t, sender.Send(context.Background(), Message{To: "a@example.com"}))
	assert.Error(t, sender.Send(context.Background(), Message{}))
}

func TestNewSenderFallsBackToLog(t *testing.T) {
	_, ok := NewSender(config.MailConfig{}, zap.NewNop()).(*LogSender)
	assert.True(t, ok)
	_, ok = NewSender(config.MailConfig{Host: "smtp", Username: "u"}, nil).(*SMTPSender)
	assert.True(t, ok)
}

func TestTemplatesEscapeContribution(t *testing.T) {
	tpl := NewTemplates()
	body, err := tpl.Render(TemplateContribution, ContributionData{Username: "rahim", Email: "r@example.com", Message: "<script>alert(1)</script>"})
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestTemplatesRenderLinks(t *testing.T) {
	tpl := NewTemplates()
	body, err := tpl.Render(TemplateVerification, LinkData{Username: "rahim", Link: "https://archive.example/verify/abc", ValidFor: "1 hour"})
	require.NoError(t, err)
	assert.Contains(t, body, "https://archive.example/verify/abc")

	_, err = tpl.Render("missing", nil)
	assert.Error(t, err)
}
