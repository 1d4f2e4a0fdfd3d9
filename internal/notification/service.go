package notification

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

// Service fans ticket events out to the configured channels. With no
// channel configured every call is a no-op.
type Service struct {
	log     zerolog.Logger
	discord *DiscordService
}

func NewService(log zerolog.Logger, webhookURL string) domain.NotificationService {
	s := &Service{log: log.With().Str("module", "notification").Logger()}
	if webhookURL != "" {
		s.discord = NewDiscordService(log, webhookURL)
	}
	return s
}

func (s *Service) PaymentCompleted(ctx context.Context, p *domain.Payment) error {
	if s.discord == nil {
		s.log.Trace().Str("reference", p.ReferenceNo).Msg("no notification channel, skipping payment event")
		return nil
	}
	return s.discord.PaymentCompleted(ctx, p)
}

func (s *Service) MigrationFailed(ctx context.Context, err error) error {
	if s.discord == nil {
		return nil
	}
	return s.discord.MigrationFailed(ctx, err)
}
