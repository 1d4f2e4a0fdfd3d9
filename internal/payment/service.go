package payment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

const (
	DefaultExpiry = 15 * time.Minute

	referencePrefix   = "PAY"
	referenceAttempts = 3
)

type Service interface {
	Initiate(ctx context.Context, req InitiateRequest) (*domain.Payment, error)
	Get(ctx context.Context, ref string) (*domain.Payment, error)
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, ref string, status domain.PaymentStatus) (*domain.Payment, error)
	ExpireOverdue(ctx context.Context) (int, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.Payment, error)
}

// InitiateRequest starts a payment. Customer fields are taken from the
// booking when BookingID is set; Amount defaults to the booking total.
type InitiateRequest struct {
	BookingID     string  `json:"booking_id"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	QRCodeImage   string  `json:"qr_code_image"`
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone string  `json:"customer_phone"`
}

type service struct {
	log          zerolog.Logger
	config       *domain.Config
	payments     domain.PaymentRepo
	bookings     domain.BookingRepo
	notification domain.NotificationService
	now          func() time.Time
	newReference func(now time.Time) string
}

func NewService(log zerolog.Logger, config *domain.Config, payments domain.PaymentRepo, bookings domain.BookingRepo, notification domain.NotificationService) Service {
	return &service{
		log:          log.With().Str("module", "payment").Logger(),
		config:       config,
		payments:     payments,
		bookings:     bookings,
		notification: notification,
		now:          time.Now,
		newReference: NewReference,
	}
}

// NewReference builds PAY + UTC timestamp + 8 random hex characters.
func NewReference(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return referencePrefix + now.UTC().Format("20060102150405") + strings.ToUpper(random[:8])
}

func (s *service) expiry() time.Duration {
	if s.config == nil || s.config.PaymentExpiry <= 0 {
		return DefaultExpiry
	}
	return s.config.PaymentExpiry
}

func (s *service) Initiate(ctx context.Context, req InitiateRequest) (*domain.Payment, error) {
	if err := domain.ValidateStruct(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	expires := now.Add(s.expiry())

	p := &domain.Payment{
		BookingID:     req.BookingID,
		Amount:        req.Amount,
		Status:        domain.PaymentStatusPending,
		QRCodeImage:   req.QRCodeImage,
		OrderDate:     &now,
		ExpireDate:    &expires,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if s.config != nil {
		p.MerchantID = s.config.MerchantID
	}

	if req.BookingID != "" {
		b, err := s.bookings.Get(ctx, req.BookingID)
		if err != nil {
			return nil, err
		}
		if b.Status != domain.BookingStatusPending {
			return nil, errors.Wrapf(domain.ErrInvalidTransition, "booking %s is %s", b.ID, b.Status)
		}
		p.CustomerName = b.CustomerName
		p.CustomerEmail = b.CustomerEmail
		p.CustomerPhone = b.CustomerPhone
		if p.Amount == 0 {
			p.Amount = b.TotalPrice
		}
	}

	if p.Amount <= 0 {
		return nil, errors.Wrap(domain.ErrInvalidInput, "amount must be greater than zero")
	}

	var err error
	for attempt := 1; attempt <= referenceAttempts; attempt++ {
		p.ReferenceNo = s.newReference(now)
		err = s.payments.Create(ctx, p)
		if !errors.Is(err, domain.ErrDuplicateReference) {
			break
		}
		s.log.Warn().Str("reference", p.ReferenceNo).Int("attempt", attempt).Msg("Payment reference collision, regenerating")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create payment")
	}

	if p.BookingID != "" {
		if err := s.bookings.LinkPayment(ctx, p.BookingID, p.ID); err != nil {
			return nil, errors.Wrapf(err, "payment %s created but booking link failed", p.ReferenceNo)
		}
	}

	s.log.Info().
		Str("reference", p.ReferenceNo).
		Str("booking_id", p.BookingID).
		Float64("amount", p.Amount).
		Time("expires", expires).
		Msg("Payment initiated")

	return p, nil
}

func (s *service) Get(ctx context.Context, ref string) (*domain.Payment, error) {
	return s.payments.GetByReference(ctx, ref)
}

func (s *service) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	return s.payments.Get(ctx, id)
}

func (s *service) ListRecent(ctx context.Context, limit int) ([]*domain.Payment, error) {
	return s.payments.ListRecent(ctx, limit)
}

// UpdateStatus moves a pending payment to status. Terminal payments and
// re-applying the current status are rejected with domain.ErrInvalidTransition.
// Paying confirms the linked booking atomically; if that booking is no longer
// pending the payment stays pending as well.
func (s *service) UpdateStatus(ctx context.Context, ref string, status domain.PaymentStatus) (*domain.Payment, error) {
	if !status.Valid() {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "unknown payment status %q", status)
	}

	now := s.now().UTC()
	var from domain.PaymentStatus

	p, err := s.payments.Transition(ctx, ref, domain.PaymentUpdate{
		Status: status,
		Check: func(current *domain.Payment) error {
			from = current.Status
			if !current.Status.CanTransition(status) {
				return errors.Wrapf(domain.ErrInvalidTransition, "payment %s: %s -> %s", ref, current.Status, status)
			}
			return nil
		},
		ConfirmBooking: status == domain.PaymentStatusPaid,
	}, now)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("reference", ref).Str("from", string(from)).Str("to", string(status)).Msg("Payment status changed")

	if status == domain.PaymentStatusPaid {
		if s.notification != nil {
			if err := s.notification.PaymentCompleted(ctx, p); err != nil {
				s.log.Error().Err(err).Str("reference", ref).Msg("failed to send payment notification")
			}
		}
	}

	return p, nil
}

// ExpireOverdue marks pending payments past their expire_date as expired.
// Payments that changed state concurrently are skipped.
func (s *service) ExpireOverdue(ctx context.Context) (int, error) {
	overdue, err := s.payments.ListOverdue(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, p := range overdue {
		_, err := s.UpdateStatus(ctx, p.ReferenceNo, domain.PaymentStatusExpired)
		if errors.Is(err, domain.ErrInvalidTransition) {
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		s.log.Info().Int("expired", expired).Msg("Expired overdue payments")
	}
	return expired, nil
}
