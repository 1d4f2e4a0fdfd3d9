package booking

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varoOP/muaythaitickets/internal/database"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

func newTestService(t *testing.T) *service {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "tickets.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	svc := NewService(zerolog.Nop(), database.NewBookingRepo(zerolog.Nop(), db)).(*service)
	svc.now = func() time.Time { return time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC) }
	return svc
}

func validRequest() CreateRequest {
	return CreateRequest{
		Stadium:       "rajadamnern",
		Date:          "2024-01-08",
		CustomerName:  "Somchai",
		CustomerEmail: "somchai@example.com",
		Quantity:      1,
		TotalPrice:    2500,
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	b, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)
	assert.Len(t, b.ID, 36)
	assert.Equal(t, domain.BookingStatusPending, b.Status)

	stored, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "somchai@example.com", stored.CustomerEmail)
	assert.True(t, stored.CreatedAt.Equal(svc.now()))
}

func TestService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*CreateRequest)
	}{
		{name: "missing stadium", modify: func(r *CreateRequest) { r.Stadium = "" }},
		{name: "missing date", modify: func(r *CreateRequest) { r.Date = "" }},
		{name: "bad email", modify: func(r *CreateRequest) { r.CustomerEmail = "not-an-email" }},
		{name: "zero quantity", modify: func(r *CreateRequest) { r.Quantity = 0 }},
		{name: "negative total", modify: func(r *CreateRequest) { r.TotalPrice = -1 }},
	}

	svc := newTestService(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.modify(&req)

			_, err := svc.Create(context.Background(), req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	b, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.UpdateStatus(ctx, b.ID, "refunded"), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.UpdateStatus(ctx, b.ID, domain.BookingStatusPending), domain.ErrInvalidTransition)

	require.NoError(t, svc.UpdateStatus(ctx, b.ID, domain.BookingStatusConfirmed))
	assert.ErrorIs(t, svc.UpdateStatus(ctx, b.ID, domain.BookingStatusCancelled), domain.ErrInvalidTransition)

	assert.ErrorIs(t, svc.UpdateStatus(ctx, "missing", domain.BookingStatusCancelled), domain.ErrNotFound)
}

func TestService_LinkPaymentAndSlip(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	b, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.LinkPayment(ctx, b.ID, 7))
	require.NoError(t, svc.AttachSlip(ctx, b.ID, "slip.jpg"))
	assert.ErrorIs(t, svc.AttachSlip(ctx, b.ID, ""), domain.ErrInvalidInput)

	stored, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PaymentID)
	assert.Equal(t, int64(7), *stored.PaymentID)
	assert.Equal(t, "slip.jpg", stored.PaymentSlip)
	require.NotNil(t, stored.PaymentDate)
}
