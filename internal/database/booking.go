package database

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

// BookingRepo implements domain.BookingRepo
type BookingRepo struct {
	log zerolog.Logger
	db  *DB
}

// NewBookingRepo creates a new booking repository
func NewBookingRepo(log zerolog.Logger, db *DB) domain.BookingRepo {
	return &BookingRepo{
		log: log.With().Str("repo", "booking").Logger(),
		db:  db,
	}
}

var bookingColumns = []string{
	"id", "stadium", "date", "zone", "ticket_id", "ticket_type",
	"customer_name", "customer_email", "customer_phone", "quantity", "total_price",
	"payment_date", "paid_at", "payment_slip", "status", "payment_id",
	"created_at", "updated_at",
}

func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	if b.Status == "" {
		b.Status = domain.BookingStatusPending
	}

	queryBuilder := r.db.squirrel.
		Insert("bookings").
		Columns(bookingColumns...).
		Values(
			b.ID, b.Stadium, b.Date, nullString(b.Zone), nullString(b.TicketID), nullString(b.TicketType),
			b.CustomerName, b.CustomerEmail, nullString(b.CustomerPhone), b.Quantity, b.TotalPrice,
			formatNullTime(b.PaymentDate), formatNullTime(b.PaidAt), nullString(b.PaymentSlip), string(b.Status), b.PaymentID,
			formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
		)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Create")

	if _, err := r.db.handler.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return errors.Errorf("booking %s already exists", b.ID)
		}
		return errors.Wrap(err, "error executing query")
	}

	return nil
}

func (r *BookingRepo) Get(ctx context.Context, id string) (*domain.Booking, error) {
	return r.get(ctx, r.db.handler, id)
}

func (r *BookingRepo) get(ctx context.Context, ex Execer, id string) (*domain.Booking, error) {
	query, args, err := r.db.squirrel.
		Select(bookingColumns...).
		From("bookings").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Get")

	b, err := scanBooking(ex.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(domain.ErrNotFound, "booking %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "error scanning row")
	}

	return b, nil
}

// LinkPayment sets bookings.payment_id after the booking already exists.
func (r *BookingRepo) LinkPayment(ctx context.Context, id string, paymentID int64) error {
	return r.update(ctx, r.db.handler, "LinkPayment", sq.Eq{"id": id}, map[string]any{
		"payment_id": paymentID,
	})
}

// UpdateStatus changes status only while the row is still in from.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) error {
	return r.transition(ctx, r.db.handler, "UpdateStatus", id, from, map[string]any{
		"status": string(to),
	})
}

// MarkPaid confirms a pending booking and records when it was paid.
func (r *BookingRepo) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	return r.markPaid(ctx, r.db.handler, id, paidAt)
}

func (r *BookingRepo) markPaid(ctx context.Context, ex Execer, id string, paidAt time.Time) error {
	return r.transition(ctx, ex, "MarkPaid", id, domain.BookingStatusPending, map[string]any{
		"status":  string(domain.BookingStatusConfirmed),
		"paid_at": formatTime(paidAt),
	})
}

func (r *BookingRepo) AttachSlip(ctx context.Context, id, slip string, at time.Time) error {
	return r.update(ctx, r.db.handler, "AttachSlip", sq.Eq{"id": id}, map[string]any{
		"payment_slip": slip,
		"payment_date": formatTime(at),
	})
}

// transition applies set only while the booking is still in from. A booking
// that has moved on yields domain.ErrInvalidTransition.
func (r *BookingRepo) transition(ctx context.Context, ex Execer, op, id string, from domain.BookingStatus, set map[string]any) error {
	err := r.update(ctx, ex, op, sq.Eq{"id": id, "status": string(from)}, set)
	if errors.Is(err, domain.ErrNotFound) {
		if _, getErr := r.get(ctx, ex, id); getErr != nil {
			return getErr
		}
		return errors.Wrapf(domain.ErrInvalidTransition, "booking %s is no longer %s", id, from)
	}
	return err
}

func (r *BookingRepo) update(ctx context.Context, ex Execer, op string, where sq.Eq, set map[string]any) error {
	set["updated_at"] = formatTime(time.Now())

	query, args, err := r.db.squirrel.
		Update("bookings").
		SetMap(set).
		Where(where).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg(op)

	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "error executing query")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "error reading affected rows")
	}
	if n == 0 {
		return errors.Wrapf(domain.ErrNotFound, "booking %v", where["id"])
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var (
		b                                         domain.Booking
		zone, ticketID, ticketType, phone, slip   sql.NullString
		status                                    sql.NullString
		paymentID                                 sql.NullInt64
		paymentDate, paidAt, createdAt, updatedAt nullTime
	)

	err := row.Scan(
		&b.ID, &b.Stadium, &b.Date, &zone, &ticketID, &ticketType,
		&b.CustomerName, &b.CustomerEmail, &phone, &b.Quantity, &b.TotalPrice,
		&paymentDate, &paidAt, &slip, &status, &paymentID,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Zone = zone.String
	b.TicketID = ticketID.String
	b.TicketType = ticketType.String
	b.CustomerPhone = phone.String
	b.PaymentSlip = slip.String
	b.Status = domain.BookingStatus(status.String)
	if b.Status == "" {
		b.Status = domain.BookingStatusPending
	}
	if paymentID.Valid {
		id := paymentID.Int64
		b.PaymentID = &id
	}
	b.PaymentDate = paymentDate.Ptr()
	b.PaidAt = paidAt.Ptr()
	b.CreatedAt = createdAt.Time
	b.UpdatedAt = updatedAt.Time

	return &b, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
