package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/chilahati-archive-api/pkg/jobs"
	"github.com/noah-isme/chilahati-archive-api/pkg/mailer"
)

// Mail job types.
const (
	JobPasswordResetMail = "mail.password_reset"
	JobContributionMail  = "mail.contribution"
)

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// MailServiceConfig holds link and inbox settings.
type MailServiceConfig struct {
	BaseURL            string
	ContributeReceiver string
	VerificationTTL    time.Duration
	ResetTokenTTL      time.Duration
}

// PasswordResetMail is the payload of a password reset job.
type PasswordResetMail struct {
	To       string
	Username string
	Token    string
}

// ContributionMail is the payload of a contribution job.
type ContributionMail struct {
	Username string
	Email    string
	Message  string
}

// MailService renders account emails and either sends them inline or hands
// them to the background queue.
type MailService struct {
	sender    mailer.Sender
	templates *mailer.Templates
	queue     jobDispatcher
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       MailServiceConfig
}

// NewMailService constructs the mail service.
func NewMailService(sender mailer.Sender, queue jobDispatcher, metrics *MetricsService, logger *zap.Logger, cfg MailServiceConfig) *MailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = time.Hour
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &MailService{sender: sender, templates: mailer.NewTemplates(), queue: queue, metrics: metrics, logger: logger, cfg: cfg}
}

// SendVerification delivers the verification link synchronously.
func (s *MailService) SendVerification(ctx context.Context, to, username, token string) error {
	body, err := s.templates.Render(mailer.TemplateVerification, mailer.LinkData{
		Username: username,
		Link:     fmt.Sprintf("%s/verify/%s", s.cfg.BaseURL, token),
		ValidFor: humanDuration(s.cfg.VerificationTTL),
	})
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, mailer.Message{To: to, Subject: "Confirm your Chilahati Archive account", HTMLBody: body})
}

// QueuePasswordReset schedules the reset email.
func (s *MailService) QueuePasswordReset(to, username, token string) error {
	return s.queue.Enqueue(jobs.Job{Type: JobPasswordResetMail, Payload: PasswordResetMail{To: to, Username: username, Token: token}})
}

// QueueContribution schedules a contribution message for the inbox.
func (s *MailService) QueueContribution(username, email, message string) error {
	if s.cfg.ContributeReceiver == "" {
		return fmt.Errorf("contribution inbox not configured")
	}
	return s.queue.Enqueue(jobs.Job{Type: JobContributionMail, Payload: ContributionMail{Username: username, Email: email, Message: message}})
}

// Register installs the mail job handlers on mux.
func (s *MailService) Register(mux *jobs.Mux) {
	mux.Handle(JobPasswordResetMail, s.instrument(JobPasswordResetMail, s.handlePasswordReset))
	mux.Handle(JobContributionMail, s.instrument(JobContributionMail, s.handleContribution))
}

func (s *MailService) instrument(jobType string, h jobs.Handler) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		err := h(ctx, job)
		s.metrics.RecordMailJob(jobType, err)
		return err
	}
}

func (s *MailService) handlePasswordReset(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(PasswordResetMail)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected payload %T", job.Payload))
	}
	body, err := s.templates.Render(mailer.TemplatePasswordReset, mailer.LinkData{
		Username: payload.Username,
		Link:     fmt.Sprintf("%s/reset-password/%s", s.cfg.BaseURL, payload.Token),
		ValidFor: humanDuration(s.cfg.ResetTokenTTL),
	})
	if err != nil {
		return jobs.Permanent(err)
	}
	if err := s.sender.Send(ctx, mailer.Message{To: payload.To, Subject: "Password Reset Request", HTMLBody: body}); err != nil {
		s.logger.Warn("password reset mail failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
		return err
	}
	return nil
}

func (s *MailService) handleContribution(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(ContributionMail)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected payload %T", job.Payload))
	}
	body, err := s.templates.Render(mailer.TemplateContribution, mailer.ContributionData{
		Username: payload.Username,
		Email:    payload.Email,
		Message:  payload.Message,
	})
	if err != nil {
		return jobs.Permanent(err)
	}
	msg := mailer.Message{
		To:       s.cfg.ContributeReceiver,
		ReplyTo:  payload.Email,
		Subject:  fmt.Sprintf("New contribution from %s", payload.Username),
		HTMLBody: body,
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Warn("contribution mail failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
		return err
	}
	return nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
	return d.String()
}
