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

// PaymentRepo implements domain.PaymentRepo
type PaymentRepo struct {
	log      zerolog.Logger
	db       *DB
	bookings *BookingRepo
}

// NewPaymentRepo creates a new payment repository
func NewPaymentRepo(log zerolog.Logger, db *DB) domain.PaymentRepo {
	return &PaymentRepo{
		log:      log.With().Str("repo", "payment").Logger(),
		db:       db,
		bookings: NewBookingRepo(log, db).(*BookingRepo),
	}
}

var paymentColumns = []string{
	"id", "reference_no", "booking_id", "amount", "status", "qr_code_image",
	"expire_date", "order_date", "customer_name", "customer_email", "customer_phone",
	"merchant_id", "created_at", "updated_at",
}

// Create inserts p and fills in its generated id. A reference_no that is
// already taken yields domain.ErrDuplicateReference.
func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	if p.Status == "" {
		p.Status = domain.PaymentStatusPending
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	query, args, err := r.db.squirrel.
		Insert("payments").
		Columns(paymentColumns[1:]...).
		Values(
			p.ReferenceNo, nullString(p.BookingID), p.Amount, string(p.Status), nullString(p.QRCodeImage),
			formatNullTime(p.ExpireDate), formatNullTime(p.OrderDate),
			nullString(p.CustomerName), nullString(p.CustomerEmail), nullString(p.CustomerPhone),
			nullString(p.MerchantID), formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
		).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Create")

	res, err := r.db.handler.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(domain.ErrDuplicateReference, "reference %s", p.ReferenceNo)
		}
		return errors.Wrap(err, "error executing query")
	}

	p.ID, err = res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "error reading inserted id")
	}

	return nil
}

func (r *PaymentRepo) Get(ctx context.Context, id int64) (*domain.Payment, error) {
	return r.getOne(ctx, r.db.handler, sq.Eq{"id": id})
}

func (r *PaymentRepo) GetByReference(ctx context.Context, ref string) (*domain.Payment, error) {
	return r.getOne(ctx, r.db.handler, sq.Eq{"reference_no": ref})
}

// Transition reads the payment, runs update.Check against it, and writes the
// new status in the same transaction. updated_at always moves forward, even
// when the clock has not advanced since the previous write. With
// update.ConfirmBooking the linked booking is confirmed in that transaction
// too, and a booking that is no longer pending rolls the payment back.
func (r *PaymentRepo) Transition(ctx context.Context, ref string, update domain.PaymentUpdate, now time.Time) (*domain.Payment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	current, err := r.getOne(ctx, tx, sq.Eq{"reference_no": ref})
	if err != nil {
		return nil, err
	}

	if update.Check != nil {
		if err := update.Check(current); err != nil {
			return nil, err
		}
	}

	updatedAt := now.UTC()
	if !updatedAt.After(current.UpdatedAt) {
		updatedAt = current.UpdatedAt.Add(time.Millisecond)
	}

	query, args, err := r.db.squirrel.
		Update("payments").
		Set("status", string(update.Status)).
		Set("updated_at", formatTime(updatedAt)).
		Where(sq.Eq{"id": current.ID}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Transition")

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}

	if update.ConfirmBooking && current.BookingID != "" {
		err := r.bookings.markPaid(ctx, tx, current.BookingID, now.UTC())
		switch {
		case errors.Is(err, domain.ErrNotFound):
			r.log.Warn().Str("reference", ref).Str("booking_id", current.BookingID).Msg("Paid payment references a missing booking")
		case err != nil:
			return nil, errors.Wrapf(err, "payment %s", ref)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transition")
	}

	current.Status = update.Status
	current.UpdatedAt = updatedAt
	return current, nil
}

// ListOverdue returns pending payments whose expire_date is not after now.
func (r *PaymentRepo) ListOverdue(ctx context.Context, now time.Time) ([]*domain.Payment, error) {
	return r.list(ctx, "ListOverdue", r.db.squirrel.
		Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"status": string(domain.PaymentStatusPending)}).
		Where(sq.NotEq{"expire_date": nil}).
		Where(sq.LtOrEq{"expire_date": formatTime(now)}).
		OrderBy("id"))
}

// ListRecent returns the newest payments by descending id.
func (r *PaymentRepo) ListRecent(ctx context.Context, limit int) ([]*domain.Payment, error) {
	if limit <= 0 {
		limit = 5
	}
	return r.list(ctx, "ListRecent", r.db.squirrel.
		Select(paymentColumns...).
		From("payments").
		OrderBy("id DESC").
		Limit(uint64(limit)))
}

func (r *PaymentRepo) list(ctx context.Context, op string, queryBuilder sq.SelectBuilder) ([]*domain.Payment, error) {
	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg(op)

	rows, err := r.db.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}

	return payments, nil
}

func (r *PaymentRepo) getOne(ctx context.Context, ex Execer, where sq.Eq) (*domain.Payment, error) {
	query, args, err := r.db.squirrel.
		Select(paymentColumns...).
		From("payments").
		Where(where).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Get")

	p, err := scanPayment(ex.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(domain.ErrNotFound, "payment %v", where)
	}
	if err != nil {
		return nil, errors.Wrap(err, "error scanning row")
	}

	return p, nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var (
		p                                              domain.Payment
		bookingID, status, qr, name, email, phone, mid sql.NullString
		expireDate, orderDate, createdAt, updatedAt    nullTime
	)

	err := row.Scan(
		&p.ID, &p.ReferenceNo, &bookingID, &p.Amount, &status, &qr,
		&expireDate, &orderDate, &name, &email, &phone,
		&mid, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.BookingID = bookingID.String
	p.Status = domain.PaymentStatus(status.String)
	if p.Status == "" {
		p.Status = domain.PaymentStatusPending
	}
	p.QRCodeImage = qr.String
	p.ExpireDate = expireDate.Ptr()
	p.OrderDate = orderDate.Ptr()
	p.CustomerName = name.String
	p.CustomerEmail = email.String
	p.CustomerPhone = phone.String
	p.MerchantID = mid.String
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time

	return &p, nil
}
