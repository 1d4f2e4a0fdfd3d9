package verification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

const DefaultTTL = 15 * time.Minute

type Service interface {
	Request(ctx context.Context, email string, bookingData json.RawMessage) (*domain.EmailVerification, error)
	Confirm(ctx context.Context, token string, finalize func(v *domain.EmailVerification) error) (*domain.EmailVerification, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type service struct {
	log    zerolog.Logger
	ttl    time.Duration
	repo   domain.VerificationRepo
	sender domain.VerificationSender
	now    func() time.Time
}

// NewService builds the verification service. A nil sender logs tokens instead of mailing them.
func NewService(log zerolog.Logger, config *domain.Config, repo domain.VerificationRepo, sender domain.VerificationSender) Service {
	ttl := DefaultTTL
	if config != nil && config.VerificationTTL > 0 {
		ttl = config.VerificationTTL
	}

	s := &service{
		log:    log.With().Str("module", "verification").Logger(),
		ttl:    ttl,
		repo:   repo,
		sender: sender,
		now:    time.Now,
	}
	if s.sender == nil {
		s.sender = NewLogSender(s.log)
	}
	return s
}

type request struct {
	Email string `validate:"required,email"`
}

func (s *service) Request(ctx context.Context, email string, bookingData json.RawMessage) (*domain.EmailVerification, error) {
	if err := domain.ValidateStruct(request{Email: email}); err != nil {
		return nil, err
	}
	if len(bookingData) == 0 || !json.Valid(bookingData) {
		return nil, errors.Wrap(domain.ErrInvalidInput, "booking data must be valid JSON")
	}

	now := s.now().UTC()
	v := &domain.EmailVerification{
		VerificationID: uuid.NewString(),
		Email:          email,
		BookingData:    bookingData,
		ExpiresAt:      now.Add(s.ttl),
		CreatedAt:      now,
	}

	if err := s.repo.Create(ctx, v); err != nil {
		return nil, errors.Wrap(err, "failed to store verification")
	}

	if err := s.sender.SendVerification(ctx, v); err != nil {
		return nil, errors.Wrap(err, "failed to send verification")
	}

	return v, nil
}

// Confirm claims the token and runs finalize with the stored payload. When
// finalize fails the claim is released so the customer can confirm again.
func (s *service) Confirm(ctx context.Context, token string, finalize func(v *domain.EmailVerification) error) (*domain.EmailVerification, error) {
	v, err := s.repo.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	if v.VerifiedAt != nil {
		return nil, errors.Wrapf(domain.ErrAlreadyVerified, "verification %s", token)
	}

	now := s.now().UTC()
	if v.Expired(now) {
		return nil, errors.Wrapf(domain.ErrVerificationExpired, "verification %s expired at %s", token, v.ExpiresAt.Format(time.RFC3339))
	}

	if err := s.repo.MarkVerified(ctx, token, now); err != nil {
		return nil, err
	}
	v.VerifiedAt = &now

	if finalize != nil {
		if err := finalize(v); err != nil {
			if releaseErr := s.repo.ReleaseVerified(context.WithoutCancel(ctx), token, now); releaseErr != nil {
				s.log.Error().Err(releaseErr).Str("email", v.Email).Msg("Failed to release verification")
			}
			return nil, err
		}
	}

	s.log.Info().Str("email", v.Email).Msg("Email verified")
	return v, nil
}

func (s *service) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete expired verifications")
	}

	s.log.Info().Int64("deleted", n).Msg("Cleaned up expired verifications")
	return n, nil
}

// LogSender writes the verification token to the log.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (l *LogSender) SendVerification(ctx context.Context, v *domain.EmailVerification) error {
	l.log.Info().
		Str("email", v.Email).
		Str("token", v.VerificationID).
		Time("expires_at", v.ExpiresAt).
		Msg("Verification requested")
	return nil
}
