package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*domain.Booking, error)
	Get(ctx context.Context, id string) (*domain.Booking, error)
	LinkPayment(ctx context.Context, id string, paymentID int64) error
	UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) error
	AttachSlip(ctx context.Context, id, slip string) error
}

// CreateRequest is the customer-supplied part of a booking.
type CreateRequest struct {
	Stadium       string  `json:"stadium"`
	Date          string  `json:"date"`
	Zone          string  `json:"zone"`
	TicketID      string  `json:"ticket_id"`
	TicketType    string  `json:"ticket_type"`
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email"`
	CustomerPhone string  `json:"customer_phone"`
	Quantity      int     `json:"quantity"`
	TotalPrice    float64 `json:"total_price"`
}

type service struct {
	log  zerolog.Logger
	repo domain.BookingRepo
	now  func() time.Time
}

func NewService(log zerolog.Logger, repo domain.BookingRepo) Service {
	return &service{
		log:  log.With().Str("module", "booking").Logger(),
		repo: repo,
		now:  time.Now,
	}
}

// ValidateRequest reports whether req could become a booking, without storing anything.
func ValidateRequest(req CreateRequest) error {
	return domain.ValidateStruct(req.booking("", time.Time{}))
}

func (req CreateRequest) booking(id string, now time.Time) *domain.Booking {
	return &domain.Booking{
		ID:            id,
		Stadium:       req.Stadium,
		Date:          req.Date,
		Zone:          req.Zone,
		TicketID:      req.TicketID,
		TicketType:    req.TicketType,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Quantity:      req.Quantity,
		TotalPrice:    req.TotalPrice,
		Status:        domain.BookingStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*domain.Booking, error) {
	b := req.booking(uuid.NewString(), s.now().UTC())

	if err := domain.ValidateStruct(b); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, errors.Wrap(err, "failed to create booking")
	}

	s.log.Info().Str("booking_id", b.ID).Str("stadium", b.Stadium).Str("date", b.Date).Msg("Booking created")
	return b, nil
}

func (s *service) Get(ctx context.Context, id string) (*domain.Booking, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) LinkPayment(ctx context.Context, id string, paymentID int64) error {
	if err := s.repo.LinkPayment(ctx, id, paymentID); err != nil {
		return err
	}

	s.log.Debug().Str("booking_id", id).Int64("payment_id", paymentID).Msg("Linked payment to booking")
	return nil
}

// UpdateStatus moves a booking out of pending. Confirmed and cancelled are final.
func (s *service) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) error {
	if !status.Valid() {
		return errors.Wrapf(domain.ErrInvalidInput, "unknown booking status %q", status)
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if !current.Status.CanTransition(status) {
		return errors.Wrapf(domain.ErrInvalidTransition, "booking %s: %s -> %s", id, current.Status, status)
	}

	if err := s.repo.UpdateStatus(ctx, id, current.Status, status); err != nil {
		return err
	}

	s.log.Info().Str("booking_id", id).Str("from", string(current.Status)).Str("to", string(status)).Msg("Booking status changed")
	return nil
}

func (s *service) AttachSlip(ctx context.Context, id, slip string) error {
	if slip == "" {
		return errors.Wrap(domain.ErrInvalidInput, "payment slip is empty")
	}

	return s.repo.AttachSlip(ctx, id, slip, s.now().UTC())
}
