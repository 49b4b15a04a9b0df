// README: Notification service resolves device tokens and dispatches pushes; failures are logged only.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"kurs/internal/types"
)

const sendTimeout = 5 * time.Second

type Tokens interface {
	Put(ctx context.Context, userID types.ID, token string) error
	Get(ctx context.Context, userID types.ID) (string, error)
}

type Sender interface {
	Send(ctx context.Context, deviceToken string, msg Message) (string, error)
}

type Service struct {
	tokens Tokens
	sender Sender
	log    zerolog.Logger
}

// NewService accepts a nil sender; pushes are then logged and skipped.
func NewService(tokens Tokens, sender Sender, log zerolog.Logger) *Service {
	return &Service{tokens: tokens, sender: sender, log: log.With().Str("module", "notify").Logger()}
}

func (s *Service) RegisterToken(ctx context.Context, userID types.ID, token string) error {
	return s.tokens.Put(ctx, userID, token)
}

// Notify pushes msg to userID's device. It never fails the caller.
func (s *Service) Notify(ctx context.Context, userID types.ID, msg Message) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	logger := s.log.With().Str("user_id", string(userID)).Str("type", string(msg.Type)).Logger()
	if s.sender == nil {
		logger.Debug().Msg("push sender not configured")
		return
	}
	token, err := s.tokens.Get(ctx, userID)
	if err != nil {
		logger.Warn().Err(err).Msg("device token lookup failed")
		return
	}
	if token == "" {
		logger.Debug().Msg("no device token")
		return
	}
	id, err := s.sender.Send(ctx, token, msg)
	if err != nil {
		logger.Warn().Err(err).Msg("push failed")
		return
	}
	logger.Debug().Str("message_id", id).Msg("push sent")
}

func (s *Service) NotifyMany(ctx context.Context, userIDs []types.ID, msg Message) {
	for _, id := range userIDs {
		s.Notify(ctx, id, msg)
	}
}
