package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

// BackfillResult counts what happened to each legacy stadium row.
type BackfillResult struct {
	Migrated int
	Skipped  int
	Failed   int
}

type legacyStadium struct {
	id    string
	image string
}

// BackfillStadiumPaymentImages copies stadiums.payment_image into
// stadium_payment_images, one row per stadium, using the stadium's
// schedule_days from stadiums_extended or every day when none is set.
//
// A database without the legacy column is left alone. Rows that cannot be
// resolved are logged and skipped; only failures to read the legacy table or
// to insert are returned.
func BackfillStadiumPaymentImages(ctx context.Context, tx Execer, log zerolog.Logger) (BackfillResult, error) {
	var result BackfillResult

	hasTable, err := tableExists(ctx, tx, "stadiums")
	if err != nil {
		return result, err
	}
	if !hasTable {
		log.Debug().Msg("No legacy stadiums table, nothing to backfill")
		return result, nil
	}

	hasColumn, err := columnExists(ctx, tx, "stadiums", "payment_image")
	if err != nil {
		return result, err
	}
	if !hasColumn {
		log.Debug().Msg("stadiums.payment_image not present, nothing to backfill")
		return result, nil
	}

	stadiums, err := legacyStadiumImages(ctx, tx)
	if err != nil {
		return result, err
	}

	now := formatTime(time.Now())
	for _, s := range stadiums {
		var existing int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM stadium_payment_images WHERE stadium_id = ?`, s.id).Scan(&existing); err != nil {
			return result, errors.Wrapf(err, "failed to check payment images for stadium %s", s.id)
		}
		if existing > 0 {
			result.Skipped++
			continue
		}

		days, err := stadiumScheduleDays(ctx, tx, s.id)
		if err != nil {
			log.Warn().Err(err).Str("stadium_id", s.id).Msg("failed to resolve schedule days, skipping stadium")
			result.Failed++
			continue
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO stadium_payment_images (stadium_id, image, days, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			s.id, s.image, days.String(), now, now,
		)
		if err != nil {
			return result, errors.Wrapf(err, "failed to insert payment image for stadium %s", s.id)
		}
		result.Migrated++
	}

	return result, nil
}

func legacyStadiumImages(ctx context.Context, tx Execer) ([]legacyStadium, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, payment_image FROM stadiums ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read legacy stadiums")
	}
	defer rows.Close()

	var stadiums []legacyStadium
	for rows.Next() {
		var (
			id    string
			image sql.NullString
		)
		if err := rows.Scan(&id, &image); err != nil {
			return nil, errors.Wrap(err, "error scanning legacy stadium")
		}
		if !image.Valid || strings.TrimSpace(image.String) == "" {
			continue
		}
		stadiums = append(stadiums, legacyStadium{id: id, image: image.String})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating legacy stadiums")
	}

	return stadiums, nil
}

func stadiumScheduleDays(ctx context.Context, tx Execer, stadiumID string) (domain.Weekdays, error) {
	var raw sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT schedule_days FROM stadiums_extended WHERE stadium_id = ?`, stadiumID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AllWeekdays(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read schedule days")
	}
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return domain.AllWeekdays(), nil
	}

	days, err := domain.ParseWeekdays(raw.String)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return domain.AllWeekdays(), nil
	}
	return days, nil
}
