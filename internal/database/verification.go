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

type VerificationRepo struct {
	log zerolog.Logger
	db  *DB
}

func NewVerificationRepo(log zerolog.Logger, db *DB) domain.VerificationRepo {
	return &VerificationRepo{
		log: log.With().Str("repo", "verification").Logger(),
		db:  db,
	}
}

func (r *VerificationRepo) Create(ctx context.Context, v *domain.EmailVerification) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	query, args, err := r.db.squirrel.
		Insert("email_verifications").
		Columns("verification_id", "email", "booking_data", "expires_at", "verified_at", "created_at").
		Values(v.VerificationID, v.Email, string(v.BookingData), formatTime(v.ExpiresAt), formatNullTime(v.VerifiedAt), formatTime(v.CreatedAt)).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Create")

	res, err := r.db.handler.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Errorf("verification %s already exists", v.VerificationID)
		}
		return errors.Wrap(err, "error executing query")
	}

	v.ID, err = res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "error reading inserted id")
	}

	return nil
}

func (r *VerificationRepo) Get(ctx context.Context, verificationID string) (*domain.EmailVerification, error) {
	query, args, err := r.db.squirrel.
		Select("id", "verification_id", "email", "booking_data", "expires_at", "verified_at", "created_at").
		From("email_verifications").
		Where(sq.Eq{"verification_id": verificationID}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Get")

	var (
		v                                domain.EmailVerification
		data                             string
		expiresAt, verifiedAt, createdAt nullTime
	)
	err = r.db.handler.QueryRowContext(ctx, query, args...).
		Scan(&v.ID, &v.VerificationID, &v.Email, &data, &expiresAt, &verifiedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(domain.ErrNotFound, "verification %s", verificationID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "error scanning row")
	}

	v.BookingData = []byte(data)
	v.ExpiresAt = expiresAt.Time
	v.VerifiedAt = verifiedAt.Ptr()
	v.CreatedAt = createdAt.Time

	return &v, nil
}

// MarkVerified records the confirmation once. A second call returns
// domain.ErrAlreadyVerified.
func (r *VerificationRepo) MarkVerified(ctx context.Context, verificationID string, at time.Time) error {
	query, args, err := r.db.squirrel.
		Update("email_verifications").
		Set("verified_at", formatTime(at)).
		Where(sq.Eq{"verification_id": verificationID, "verified_at": nil}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("MarkVerified")

	res, err := r.db.handler.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "error executing query")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "error reading affected rows")
	}
	if n == 0 {
		if _, err := r.Get(ctx, verificationID); err != nil {
			return err
		}
		return errors.Wrapf(domain.ErrAlreadyVerified, "verification %s", verificationID)
	}

	return nil
}

// ReleaseVerified clears a confirmation recorded at at, leaving the token
// usable again. Later confirmations are left alone.
func (r *VerificationRepo) ReleaseVerified(ctx context.Context, verificationID string, at time.Time) error {
	query, args, err := r.db.squirrel.
		Update("email_verifications").
		Set("verified_at", nil).
		Where(sq.Eq{"verification_id": verificationID, "verified_at": formatTime(at)}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("ReleaseVerified")

	if _, err := r.db.handler.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "error executing query")
	}

	return nil
}

// DeleteExpired removes unverified rows whose expires_at is not after now.
func (r *VerificationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := r.db.squirrel.
		Delete("email_verifications").
		Where(sq.Eq{"verified_at": nil}).
		Where(sq.LtOrEq{"expires_at": formatTime(now)}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("DeleteExpired")

	res, err := r.db.handler.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "error executing query")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "error reading affected rows")
	}

	return n, nil
}
