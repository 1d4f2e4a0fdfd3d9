package database

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

type StadiumPaymentImageRepo struct {
	log zerolog.Logger
	db  *DB
}

func NewStadiumPaymentImageRepo(log zerolog.Logger, db *DB) domain.StadiumPaymentImageRepo {
	return &StadiumPaymentImageRepo{
		log: log.With().Str("repo", "stadium_payment_image").Logger(),
		db:  db,
	}
}

func (r *StadiumPaymentImageRepo) Create(ctx context.Context, img *domain.StadiumPaymentImage) error {
	if img.StadiumID == "" || img.Image == "" {
		return errors.New("stadium id and image are required")
	}
	if len(img.Days) == 0 {
		img.Days = domain.AllWeekdays()
	}
	if err := img.Days.Validate(); err != nil {
		return err
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}

	query, args, err := r.db.squirrel.
		Insert("stadium_payment_images").
		Columns("stadium_id", "image", "days", "created_at", "updated_at").
		Values(img.StadiumID, img.Image, img.Days.String(), formatTime(img.CreatedAt), formatTime(img.CreatedAt)).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Create")

	res, err := r.db.handler.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "error executing query")
	}

	img.ID, err = res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "error reading inserted id")
	}

	return nil
}

// List returns the stadium's images, newest first.
func (r *StadiumPaymentImageRepo) List(ctx context.Context, stadiumID string) ([]domain.StadiumPaymentImage, error) {
	query, args, err := r.db.squirrel.
		Select("id", "stadium_id", "image", "days", "created_at").
		From("stadium_payment_images").
		Where(sq.Eq{"stadium_id": stadiumID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("List")

	rows, err := r.db.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	images := []domain.StadiumPaymentImage{}
	for rows.Next() {
		var (
			img       domain.StadiumPaymentImage
			days      string
			createdAt nullTime
		)
		if err := rows.Scan(&img.ID, &img.StadiumID, &img.Image, &days, &createdAt); err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}

		img.Days, err = domain.ParseWeekdays(days)
		if err != nil {
			r.log.Warn().Err(err).Int64("id", img.ID).Msg("ignoring payment image with invalid days")
			continue
		}
		img.CreatedAt = createdAt.Time
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}

	return images, nil
}

// ForDate picks the image whose day-set contains the weekday of date. When
// several rows match, the most recently created wins.
func (r *StadiumPaymentImageRepo) ForDate(ctx context.Context, stadiumID string, date time.Time) (*domain.StadiumPaymentImage, error) {
	images, err := r.List(ctx, stadiumID)
	if err != nil {
		return nil, err
	}

	weekday := date.Weekday()
	for i := range images {
		if images[i].Days.Contains(weekday) {
			return &images[i], nil
		}
	}

	return nil, errors.Wrapf(domain.ErrNotFound, "no payment image for stadium %s on %s", stadiumID, weekday)
}
