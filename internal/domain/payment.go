package domain

import (
	"context"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// CanTransition reports whether a payment may move from s to next.
// Only pending payments change state; every other status is terminal.
func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	if s != PaymentStatusPending {
		return false
	}
	switch next {
	case PaymentStatusPaid, PaymentStatusExpired, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusExpired, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}

func (s PaymentStatus) Terminal() bool {
	return s.Valid() && s != PaymentStatusPending
}

// Payment is a gateway-tracked monetary transaction, optionally linked to a Booking.
// Customer fields are copied from the booking so a payment row stays self-contained.
type Payment struct {
	ID            int64         `json:"id"`
	ReferenceNo   string        `json:"reference_no"`
	BookingID     string        `json:"booking_id,omitempty"`
	Amount        float64       `json:"amount"`
	Status        PaymentStatus `json:"status"`
	QRCodeImage   string        `json:"qr_code_image,omitempty"`
	ExpireDate    *time.Time    `json:"expire_date,omitempty"`
	OrderDate     *time.Time    `json:"order_date,omitempty"`
	CustomerName  string        `json:"customer_name,omitempty"`
	CustomerEmail string        `json:"customer_email,omitempty"`
	CustomerPhone string        `json:"customer_phone,omitempty"`
	MerchantID    string        `json:"merchant_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// PaymentUpdate is applied by PaymentRepo.Transition inside a single transaction.
// Check runs against the current row before anything is written.
// ConfirmBooking moves the linked booking from pending to confirmed as part
// of the same transaction.
type PaymentUpdate struct {
	Status         PaymentStatus
	Check          func(current *Payment) error
	ConfirmBooking bool
}

type PaymentRepo interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id int64) (*Payment, error)
	GetByReference(ctx context.Context, ref string) (*Payment, error)
	Transition(ctx context.Context, ref string, update PaymentUpdate, now time.Time) (*Payment, error)
	ListOverdue(ctx context.Context, now time.Time) ([]*Payment, error)
	ListRecent(ctx context.Context, limit int) ([]*Payment, error)
}
