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

// ContentRepo implements domain.ContentRepo over the editable site content tables.
type ContentRepo struct {
	log zerolog.Logger
	db  *DB
}

func NewContentRepo(log zerolog.Logger, db *DB) domain.ContentRepo {
	return &ContentRepo{
		log: log.With().Str("repo", "content").Logger(),
		db:  db,
	}
}

// query runs a select and hands each row to scan.
func (r *ContentRepo) query(ctx context.Context, op string, queryBuilder sq.SelectBuilder, scan func(rowScanner) error) error {
	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg(op)

	rows, err := r.db.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return errors.Wrap(err, "error scanning row")
		}
	}

	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "error iterating rows")
	}

	return nil
}

func (r *ContentRepo) ListHeroImages(ctx context.Context) ([]domain.HeroImage, error) {
	images := []domain.HeroImage{}
	err := r.query(ctx, "ListHeroImages", r.db.squirrel.
		Select("id", "image", "title", "subtitle", "sort_order", "is_active").
		From("hero_images").
		Where(sq.Eq{"is_active": 1}).
		OrderBy("sort_order", "id"),
		func(row rowScanner) error {
			var (
				h               domain.HeroImage
				title, subtitle sql.NullString
			)
			if err := row.Scan(&h.ID, &h.Image, &title, &subtitle, &h.SortOrder, &h.IsActive); err != nil {
				return err
			}
			h.Title, h.Subtitle = title.String, subtitle.String
			images = append(images, h)
			return nil
		})
	return images, err
}

func (r *ContentRepo) ListHighlights(ctx context.Context) ([]domain.Highlight, error) {
	highlights := []domain.Highlight{}
	err := r.query(ctx, "ListHighlights", r.db.squirrel.
		Select("id", "title", "description", "image", "video_url", "sort_order").
		From("highlights").
		OrderBy("sort_order", "id"),
		func(row rowScanner) error {
			var (
				h                       domain.Highlight
				description, image, url sql.NullString
			)
			if err := row.Scan(&h.ID, &h.Title, &description, &image, &url, &h.SortOrder); err != nil {
				return err
			}
			h.Description, h.Image, h.VideoURL = description.String, image.String, url.String
			highlights = append(highlights, h)
			return nil
		})
	return highlights, err
}

func (r *ContentRepo) ListRegularTickets(ctx context.Context, stadiumID string) ([]domain.RegularTicket, error) {
	queryBuilder := r.db.squirrel.
		Select("id", "stadium_id", "name", "zone", "price", "seats").
		From("regular_tickets").
		OrderBy("stadium_id", "price", "id")
	if stadiumID != "" {
		queryBuilder = queryBuilder.Where(sq.Eq{"stadium_id": stadiumID})
	}

	tickets := []domain.RegularTicket{}
	err := r.query(ctx, "ListRegularTickets", queryBuilder, func(row rowScanner) error {
		var (
			t    domain.RegularTicket
			zone sql.NullString
		)
		if err := row.Scan(&t.ID, &t.StadiumID, &t.Name, &zone, &t.Price, &t.Seats); err != nil {
			return err
		}
		t.Zone = zone.String
		tickets = append(tickets, t)
		return nil
	})
	return tickets, err
}

func (r *ContentRepo) ListSpecialTickets(ctx context.Context, stadiumID string) ([]domain.SpecialTicket, error) {
	queryBuilder := r.db.squirrel.
		Select("id", "stadium_id", "name", "zone", "price", "date", "seats").
		From("special_tickets").
		OrderBy("date", "id")
	if stadiumID != "" {
		queryBuilder = queryBuilder.Where(sq.Eq{"stadium_id": stadiumID})
	}

	tickets := []domain.SpecialTicket{}
	err := r.query(ctx, "ListSpecialTickets", queryBuilder, func(row rowScanner) error {
		var (
			t          domain.SpecialTicket
			zone, date sql.NullString
		)
		if err := row.Scan(&t.ID, &t.StadiumID, &t.Name, &zone, &t.Price, &date, &t.Seats); err != nil {
			return err
		}
		t.Zone, t.Date = zone.String, date.String
		tickets = append(tickets, t)
		return nil
	})
	return tickets, err
}

// ListStadiums returns the extended stadium attributes. Malformed schedule
// days are logged and reported as every day.
func (r *ContentRepo) ListStadiums(ctx context.Context) ([]domain.StadiumExtended, error) {
	stadiums := []domain.StadiumExtended{}
	err := r.query(ctx, "ListStadiums", r.db.squirrel.
		Select("id", "stadium_id", "schedule_days", "description", "map_url").
		From("stadiums_extended").
		OrderBy("stadium_id"),
		func(row rowScanner) error {
			var (
				s                         domain.StadiumExtended
				days, description, mapURL sql.NullString
			)
			if err := row.Scan(&s.ID, &s.StadiumID, &days, &description, &mapURL); err != nil {
				return err
			}
			s.Description, s.MapURL = description.String, mapURL.String
			s.ScheduleDays = domain.AllWeekdays()
			if days.Valid && days.String != "" {
				parsed, err := domain.ParseWeekdays(days.String)
				if err != nil {
					r.log.Warn().Err(err).Str("stadium_id", s.StadiumID).Msg("invalid schedule_days")
				} else {
					s.ScheduleDays = parsed
				}
			}
			stadiums = append(stadiums, s)
			return nil
		})
	return stadiums, err
}

func (r *ContentRepo) ListSpecialMatches(ctx context.Context) ([]domain.SpecialMatch, error) {
	matches := []domain.SpecialMatch{}
	err := r.query(ctx, "ListSpecialMatches", r.db.squirrel.
		Select("id", "stadium_id", "title", "date", "image").
		From("special_matches").
		OrderBy("date", "id"),
		func(row rowScanner) error {
			var (
				m           domain.SpecialMatch
				date, image sql.NullString
			)
			if err := row.Scan(&m.ID, &m.StadiumID, &m.Title, &date, &image); err != nil {
				return err
			}
			m.Date, m.Image = date.String, image.String
			matches = append(matches, m)
			return nil
		})
	return matches, err
}

// GetUpcomingFightsBackground returns the most recently added background.
func (r *ContentRepo) GetUpcomingFightsBackground(ctx context.Context) (*domain.UpcomingFightsBackground, error) {
	var bg *domain.UpcomingFightsBackground
	err := r.query(ctx, "GetUpcomingFightsBackground", r.db.squirrel.
		Select("id", "image").
		From("upcoming_fights_background").
		OrderBy("id DESC").
		Limit(1),
		func(row rowScanner) error {
			bg = &domain.UpcomingFightsBackground{}
			return row.Scan(&bg.ID, &bg.Image)
		})
	if err != nil {
		return nil, err
	}
	if bg == nil {
		return nil, errors.Wrap(domain.ErrNotFound, "upcoming fights background")
	}
	return bg, nil
}

func (r *ContentRepo) ListPromptPayQR(ctx context.Context) ([]domain.PromptPayQR, error) {
	codes := []domain.PromptPayQR{}
	err := r.query(ctx, "ListPromptPayQR", r.db.squirrel.
		Select("id", "stadium_id", "image", "account_name").
		From("promptpay_qr").
		OrderBy("id"),
		func(row rowScanner) error {
			var (
				q                domain.PromptPayQR
				stadium, account sql.NullString
			)
			if err := row.Scan(&q.ID, &stadium, &q.Image, &account); err != nil {
				return err
			}
			q.StadiumID, q.AccountName = stadium.String, account.String
			codes = append(codes, q)
			return nil
		})
	return codes, err
}

// Seed inserts every entity in seed inside one transaction. Stadium rows are
// upserted on stadium_id; all other content is appended.
func (r *ContentRepo) Seed(ctx context.Context, seed *domain.ContentSeed) error {
	if seed == nil {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	var inserts []sq.InsertBuilder

	for _, h := range seed.HeroImages {
		inserts = append(inserts, r.db.squirrel.Insert("hero_images").
			Columns("image", "title", "subtitle", "sort_order", "is_active", "created_at", "updated_at").
			Values(h.Image, nullString(h.Title), nullString(h.Subtitle), h.SortOrder, h.IsActive, now, now))
	}
	for _, h := range seed.Highlights {
		inserts = append(inserts, r.db.squirrel.Insert("highlights").
			Columns("title", "description", "image", "video_url", "sort_order", "created_at", "updated_at").
			Values(h.Title, nullString(h.Description), nullString(h.Image), nullString(h.VideoURL), h.SortOrder, now, now))
	}
	for _, t := range seed.RegularTickets {
		inserts = append(inserts, r.db.squirrel.Insert("regular_tickets").
			Columns("stadium_id", "name", "zone", "price", "seats", "created_at", "updated_at").
			Values(t.StadiumID, t.Name, nullString(t.Zone), t.Price, t.Seats, now, now))
	}
	for _, t := range seed.SpecialTickets {
		inserts = append(inserts, r.db.squirrel.Insert("special_tickets").
			Columns("stadium_id", "name", "zone", "price", "date", "seats", "created_at", "updated_at").
			Values(t.StadiumID, t.Name, nullString(t.Zone), t.Price, nullString(t.Date), t.Seats, now, now))
	}
	for _, s := range seed.Stadiums {
		days := s.ScheduleDays
		if len(days) == 0 {
			days = domain.AllWeekdays()
		}
		if err := days.Validate(); err != nil {
			return errors.Wrapf(err, "stadium %s", s.StadiumID)
		}
		inserts = append(inserts, r.db.squirrel.Insert("stadiums_extended").
			Columns("stadium_id", "schedule_days", "description", "map_url", "created_at", "updated_at").
			Values(s.StadiumID, days.String(), nullString(s.Description), nullString(s.MapURL), now, now).
			Suffix("ON CONFLICT(stadium_id) DO UPDATE SET schedule_days = excluded.schedule_days, description = excluded.description, map_url = excluded.map_url, updated_at = excluded.updated_at"))
	}
	for _, m := range seed.SpecialMatches {
		inserts = append(inserts, r.db.squirrel.Insert("special_matches").
			Columns("stadium_id", "title", "date", "image", "created_at", "updated_at").
			Values(m.StadiumID, m.Title, nullString(m.Date), nullString(m.Image), now, now))
	}
	if bg := seed.UpcomingFightsBackground; bg != nil && bg.Image != "" {
		inserts = append(inserts, r.db.squirrel.Insert("upcoming_fights_background").
			Columns("image", "created_at", "updated_at").
			Values(bg.Image, now, now))
	}
	for _, q := range seed.PromptPayQR {
		inserts = append(inserts, r.db.squirrel.Insert("promptpay_qr").
			Columns("stadium_id", "image", "account_name", "created_at", "updated_at").
			Values(nullString(q.StadiumID), q.Image, nullString(q.AccountName), now, now))
	}
	for _, img := range seed.StadiumPaymentImages {
		days := img.Days
		if len(days) == 0 {
			days = domain.AllWeekdays()
		}
		if err := days.Validate(); err != nil {
			return errors.Wrapf(err, "payment image for stadium %s", img.StadiumID)
		}
		inserts = append(inserts, r.db.squirrel.Insert("stadium_payment_images").
			Columns("stadium_id", "image", "days", "created_at", "updated_at").
			Values(img.StadiumID, img.Image, days.String(), now, now))
	}

	for _, ib := range inserts {
		query, args, err := ib.ToSql()
		if err != nil {
			return errors.Wrap(err, "error building query")
		}
		r.log.Trace().Str("query", query).Interface("args", args).Msg("Seed")
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrap(err, "error executing query")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit seed")
	}

	r.log.Info().Int("rows", len(inserts)).Msg("Seeded site content")
	return nil
}
