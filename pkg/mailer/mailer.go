package mailer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/noah-isme/chilahati-archive-api/pkg/config"
)

// Message is a single outgoing HTML email.
type Message struct {
	To       string
	ReplyTo  string
	Subject  string
	HTMLBody string
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// dialAndSend is a seam for tests.
var dialAndSend = func(d *gomail.Dialer, m ...*gomail.Message) error {
	return d.DialAndSend(m...)
}

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	name   string
}

// NewSMTPSender builds a sender from configuration.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.FromAddress,
		name:   cfg.FromName,
	}
}

// Send delivers msg, honouring ctx cancellation before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("mail recipient is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.name)
	m.SetHeader("To", msg.To)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	if err := dialAndSend(s.dialer, m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogSender drops mail after logging the envelope. Used when no SMTP
// credentials are configured.
type LogSender struct {
	logger *zap.Logger
}

// Send logs recipient and subject only.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Warn("smtp not configured, mail dropped", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// NewSender picks the SMTP sender when credentials exist.
func NewSender(cfg config.MailConfig, logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" || cfg.Username == "" {
		return &LogSender{logger: logger}
	}
	return NewSMTPSender(cfg)
}
