package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

func testBooking(id string) *domain.Booking {
	return &domain.Booking{
		ID:            id,
		Stadium:       "rajadamnern",
		Date:          "2024-01-08",
		Zone:          "ringside",
		TicketType:    "regular",
		CustomerName:  "Somchai",
		CustomerEmail: "somchai@example.com",
		Quantity:      2,
		TotalPrice:    5000,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func TestBookingRepo(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	repo := NewBookingRepo(zerolog.Nop(), db)

	require.NoError(t, repo.Create(ctx, testBooking("b-1")))
	assert.Error(t, repo.Create(ctx, testBooking("b-1")))

	b, err := repo.Get(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, b.Status)
	assert.Equal(t, "ringside", b.Zone)
	assert.Nil(t, b.PaymentID)

	require.NoError(t, repo.LinkPayment(ctx, "b-1", 42))
	b, err = repo.Get(ctx, "b-1")
	require.NoError(t, err)
	require.NotNil(t, b.PaymentID)
	assert.Equal(t, int64(42), *b.PaymentID)

	require.NoError(t, repo.UpdateStatus(ctx, "b-1", domain.BookingStatusPending, domain.BookingStatusCancelled))

	err = repo.UpdateStatus(ctx, "b-1", domain.BookingStatusPending, domain.BookingStatusConfirmed)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.LinkPayment(ctx, "missing", 1), domain.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", domain.BookingStatusPending, domain.BookingStatusConfirmed), domain.ErrNotFound)
}

func TestBookingRepo_MarkPaidAndSlip(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	repo := NewBookingRepo(zerolog.Nop(), db)

	require.NoError(t, repo.Create(ctx, testBooking("b-2")))

	paidAt := time.Date(2024, 1, 8, 10, 30, 0, 0, time.UTC)
	require.NoError(t, repo.MarkPaid(ctx, "b-2", paidAt))
	require.NoError(t, repo.AttachSlip(ctx, "b-2", "slip.jpg", paidAt))

	b, err := repo.Get(ctx, "b-2")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	require.NotNil(t, b.PaidAt)
	assert.True(t, paidAt.Equal(*b.PaidAt))
	assert.Equal(t, "slip.jpg", b.PaymentSlip)
}

func TestBookingRepo_MarkPaidRequiresPending(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	repo := NewBookingRepo(zerolog.Nop(), db)

	require.NoError(t, repo.Create(ctx, testBooking("b-3")))
	require.NoError(t, repo.UpdateStatus(ctx, "b-3", domain.BookingStatusPending, domain.BookingStatusCancelled))

	err := repo.MarkPaid(ctx, "b-3", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.ErrorIs(t, repo.MarkPaid(ctx, "missing", time.Now()), domain.ErrNotFound)

	b, err := repo.Get(ctx, "b-3")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, b.Status)
	assert.Nil(t, b.PaidAt)
}

func TestBookingRepo_OptionalFieldsStoredAsNull(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	repo := NewBookingRepo(zerolog.Nop(), db)

	b := testBooking("b-4")
	b.Zone, b.TicketType = "", ""
	require.NoError(t, repo.Create(ctx, b))

	var nulls int
	require.NoError(t, db.handler.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings
		WHERE id = 'b-4' AND zone IS NULL AND ticket_id IS NULL AND ticket_type IS NULL AND customer_phone IS NULL`).Scan(&nulls))
	assert.Equal(t, 1, nulls)

	stored, err := repo.Get(ctx, "b-4")
	require.NoError(t, err)
	assert.Empty(t, stored.Zone)
	assert.Empty(t, stored.TicketID)
	assert.Empty(t, stored.CustomerPhone)
}

func testPayment(ref string, created time.Time) *domain.Payment {
	return &domain.Payment{
		ReferenceNo: ref,
		BookingID:   "b-1",
		Amount:      5000,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestPaymentRepo_DuplicateReference(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	repo := NewPaymentRepo(zerolog.Nop(), db)

	first := testPayment("PAY1", time.Now())
	require.NoError(t, repo.Create(ctx, first))
	assert.NotZero(t, first.ID)

	err := repo.Create(ctx, testPayment("PAY1", time.Now()))
	assert.ErrorIs(t, err, domain.ErrDuplicateReference)

	p, err := repo.GetByReference(ctx, "PAY1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, p.ID)
	assert.Equal(t, domain.PaymentStatusPending, p.Status)

	_, err = repo.GetByReference(ctx, "PAY2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPaymentRepo_TransitionAdvancesUpdatedAt(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	repo := NewPaymentRepo(zerolog.Nop(), db)

	created := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, testPayment("PAY1", created)))

	// The clock has not moved since creation.
	p, err := repo.Transition(ctx, "PAY1", domain.PaymentUpdate{Status: domain.PaymentStatusPaid}, created)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, p.Status)
	assert.True(t, p.UpdatedAt.After(created))

	stored, err := repo.GetByReference(ctx, "PAY1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, stored.Status)
	assert.True(t, stored.UpdatedAt.Equal(p.UpdatedAt))
}

func TestPaymentRepo_TransitionCheckAborts(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	repo := NewPaymentRepo(zerolog.Nop(), db)

	require.NoError(t, repo.Create(ctx, testPayment("PAY1", time.Now())))

	rejected := errors.New("rejected")
	_, err := repo.Transition(ctx, "PAY1", domain.PaymentUpdate{
		Status: domain.PaymentStatusFailed,
		Check:  func(*domain.Payment) error { return rejected },
	}, time.Now())
	assert.ErrorIs(t, err, rejected)

	stored, err := repo.GetByReference(ctx, "PAY1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, stored.Status)

	_, err = repo.Transition(ctx, "NOPE", domain.PaymentUpdate{Status: domain.PaymentStatusPaid}, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPaymentRepo_TransitionConfirmsBooking(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	bookings := NewBookingRepo(zerolog.Nop(), db)
	repo := NewPaymentRepo(zerolog.Nop(), db)

	require.NoError(t, bookings.Create(ctx, testBooking("b-1")))
	require.NoError(t, repo.Create(ctx, testPayment("PAY1", time.Now())))

	paidAt := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	_, err := repo.Transition(ctx, "PAY1", domain.PaymentUpdate{Status: domain.PaymentStatusPaid, ConfirmBooking: true}, paidAt)
	require.NoError(t, err)

	b, err := bookings.Get(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	require.NotNil(t, b.PaidAt)
	assert.True(t, paidAt.Equal(*b.PaidAt))
}

func TestPaymentRepo_TransitionRollsBackForCancelledBooking(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	bookings := NewBookingRepo(zerolog.Nop(), db)
	repo := NewPaymentRepo(zerolog.Nop(), db)

	require.NoError(t, bookings.Create(ctx, testBooking("b-1")))
	require.NoError(t, repo.Create(ctx, testPayment("PAY1", time.Now())))
	require.NoError(t, bookings.UpdateStatus(ctx, "b-1", domain.BookingStatusPending, domain.BookingStatusCancelled))

	_, err := repo.Transition(ctx, "PAY1", domain.PaymentUpdate{Status: domain.PaymentStatusPaid, ConfirmBooking: true}, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	p, err := repo.GetByReference(ctx, "PAY1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, p.Status)

	b, err := bookings.Get(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, b.Status)
}

func TestPaymentRepo_TransitionToleratesMissingBooking(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	repo := NewPaymentRepo(zerolog.Nop(), db)

	require.NoError(t, repo.Create(ctx, testPayment("PAY1", time.Now())))

	p, err := repo.Transition(ctx, "PAY1", domain.PaymentUpdate{Status: domain.PaymentStatusPaid, ConfirmBooking: true}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, p.Status)
}

func TestPaymentRepo_ListOverdueAndRecent(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	repo := NewPaymentRepo(zerolog.Nop(), db)

	now := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	overdue := testPayment("PAY-OVERDUE", now)
	overdue.ExpireDate = &past
	fresh := testPayment("PAY-FRESH", now)
	fresh.ExpireDate = &future
	noExpiry := testPayment("PAY-NOEXP", now)
	paid := testPayment("PAY-PAID", now)
	paid.ExpireDate = &past
	paid.Status = domain.PaymentStatusPaid

	for _, p := range []*domain.Payment{overdue, fresh, noExpiry, paid} {
		require.NoError(t, repo.Create(ctx, p))
	}

	list, err := repo.ListOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "PAY-OVERDUE", list[0].ReferenceNo)

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "PAY-PAID", recent[0].ReferenceNo)
	assert.Equal(t, "PAY-NOEXP", recent[1].ReferenceNo)
}

func TestStadiumPaymentImageRepo_ForDate(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	repo := NewStadiumPaymentImageRepo(zerolog.Nop(), db)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, &domain.StadiumPaymentImage{
		StadiumID: "lumpinee", Image: "weekday.png", CreatedAt: base,
	}))
	require.NoError(t, repo.Create(ctx, &domain.StadiumPaymentImage{
		StadiumID: "lumpinee", Image: "saturday.png", Days: domain.Weekdays{6}, CreatedAt: base.Add(time.Hour),
	}))

	saturday := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	img, err := repo.ForDate(ctx, "lumpinee", saturday)
	require.NoError(t, err)
	assert.Equal(t, "saturday.png", img.Image)

	monday := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	img, err = repo.ForDate(ctx, "lumpinee", monday)
	require.NoError(t, err)
	assert.Equal(t, "weekday.png", img.Image)

	_, err = repo.ForDate(ctx, "rajadamnern", monday)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Error(t, repo.Create(ctx, &domain.StadiumPaymentImage{
		StadiumID: "lumpinee", Image: "bad.png", Days: domain.Weekdays{7},
	}))
}

func TestVerificationRepo(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	repo := NewVerificationRepo(zerolog.Nop(), db)

	now := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)
	data := json.RawMessage(`{"stadium":"rajadamnern"}`)

	live := &domain.EmailVerification{VerificationID: "live", Email: "a@example.com", BookingData: data, ExpiresAt: now.Add(time.Minute)}
	stale := &domain.EmailVerification{VerificationID: "stale", Email: "b@example.com", BookingData: data, ExpiresAt: now.Add(-time.Minute)}
	done := &domain.EmailVerification{VerificationID: "done", Email: "c@example.com", BookingData: data, ExpiresAt: now.Add(-time.Minute)}
	for _, v := range []*domain.EmailVerification{live, stale, done} {
		require.NoError(t, repo.Create(ctx, v))
	}

	require.NoError(t, repo.MarkVerified(ctx, "done", now.Add(-2*time.Minute)))
	assert.ErrorIs(t, repo.MarkVerified(ctx, "done", now), domain.ErrAlreadyVerified)
	assert.ErrorIs(t, repo.MarkVerified(ctx, "missing", now), domain.ErrNotFound)

	require.NoError(t, repo.MarkVerified(ctx, "live", now))
	require.NoError(t, repo.ReleaseVerified(ctx, "live", now.Add(time.Second)))
	claimed, err := repo.Get(ctx, "live")
	require.NoError(t, err)
	assert.NotNil(t, claimed.VerifiedAt)
	require.NoError(t, repo.ReleaseVerified(ctx, "live", now))

	got, err := repo.Get(ctx, "live")
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(got.BookingData))
	assert.Nil(t, got.VerifiedAt)
	assert.True(t, got.ExpiresAt.Equal(now.Add(time.Minute)))

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.Get(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.Get(ctx, "done")
	assert.NoError(t, err)
}
