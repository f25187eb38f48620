package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
	appErrors "github.com/noah-isme/chilahati-archive-api/pkg/errors"
)

const maxContributionLength = 5000

type contributionQueue interface {
	QueueContribution(username, email, message string) error
}

// ContributeService forwards visitor submissions to the contribution inbox.
type ContributeService struct {
	mail   contributionQueue
	logger *zap.Logger
}

// NewContributeService constructs the service.
func NewContributeService(mail contributionQueue, logger *zap.Logger) *ContributeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContributeService{mail: mail, logger: logger}
}

// Submit queues the message for delivery on behalf of actor.
func (s *ContributeService) Submit(ctx context.Context, actor *models.JWTClaims, req models.ContributeRequest) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return appErrors.Clone(appErrors.ErrValidation, "message is required")
	}
	if utf8.RuneCountInString(message) > maxContributionLength {
		return appErrors.Clone(appErrors.ErrValidation, "message must be at most 5000 characters")
	}
	if err := s.mail.QueueContribution(actor.Username, actor.Email, message); err != nil {
		s.logger.Error("failed to queue contribution", zap.String("user_id", actor.UserID), zap.Error(err))
		return appErrors.Clone(appErrors.ErrServiceUnavailable, "contribution inbox is unavailable")
	}
	return nil
}
