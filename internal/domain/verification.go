package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EmailVerification gates booking finalization on an email confirmation.
type EmailVerification struct {
	ID             int64           `json:"id"`
	VerificationID string          `json:"verification_id"`
	Email          string          `json:"email"`
	BookingData    json.RawMessage `json:"booking_data"`
	ExpiresAt      time.Time       `json:"expires_at"`
	VerifiedAt     *time.Time      `json:"verified_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (v *EmailVerification) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

type VerificationRepo interface {
	Create(ctx context.Context, v *EmailVerification) error
	Get(ctx context.Context, verificationID string) (*EmailVerification, error)
	// MarkVerified sets verified_at only when it is still unset.
	MarkVerified(ctx context.Context, verificationID string, at time.Time) error
	ReleaseVerified(ctx context.Context, verificationID string, at time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// VerificationSender delivers the confirmation token to the customer.
type VerificationSender interface {
	SendVerification(ctx context.Context, v *EmailVerification) error
}
