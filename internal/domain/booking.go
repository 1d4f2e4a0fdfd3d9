package domain

import (
	"context"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// CanTransition reports whether a booking may move from s to next.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	if s != BookingStatusPending {
		return false
	}
	return next == BookingStatusConfirmed || next == BookingStatusCancelled
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return true
	}
	return false
}

// Booking is a purchase intent for stadium tickets, independent of payment completion.
type Booking struct {
	ID            string        `json:"id"`
	Stadium       string        `json:"stadium" validate:"required"`
	Date          string        `json:"date" validate:"required"`
	Zone          string        `json:"zone,omitempty"`
	TicketID      string        `json:"ticket_id,omitempty"`
	TicketType    string        `json:"ticket_type,omitempty"`
	CustomerName  string        `json:"customer_name" validate:"required"`
	CustomerEmail string        `json:"customer_email" validate:"required,email"`
	CustomerPhone string        `json:"customer_phone,omitempty"`
	Quantity      int           `json:"quantity" validate:"gte=1"`
	TotalPrice    float64       `json:"total_price" validate:"gte=0"`
	PaymentDate   *time.Time    `json:"payment_date,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	PaymentSlip   string        `json:"payment_slip,omitempty"`
	Status        BookingStatus `json:"status"`
	PaymentID     *int64        `json:"payment_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type BookingRepo interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id string) (*Booking, error)
	LinkPayment(ctx context.Context, id string, paymentID int64) error
	UpdateStatus(ctx context.Context, id string, from, to BookingStatus) error
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error
	AttachSlip(ctx context.Context, id, slip string, at time.Time) error
}
