package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Step is one direction of a migration. It runs inside the transaction
// the runner opened for that migration.
type Step func(ctx context.Context, tx Execer, log zerolog.Logger) error

// Migration is a versioned schema change. Up must tolerate being executed
// against a schema it already produced. Reversible is false when Down cannot
// restore the previous shape without dropping data (e.g. added columns).
type Migration struct {
	Version    int
	Name       string
	Reversible bool
	Up         Step
	Down       Step
}

func (m Migration) String() string {
	return fmt.Sprintf("%03d_%s", m.Version, m.Name)
}

// Migrations returns the known migrations in version order.
// Version 4 was never part of the sequence; the runner reports the gap.
func Migrations() []Migration {
	return []Migration{
		{
			Version:    1,
			Name:       "initial_schema",
			Reversible: true,
			Up:         initialSchemaUp,
			Down:       initialSchemaDown,
		},
		{
			Version:    2,
			Name:       "add_booking_payment_id",
			Reversible: false,
			Up:         bookingPaymentIDUp,
			Down:       bookingPaymentIDDown,
		},
		{
			Version:    3,
			Name:       "stadium_payment_images",
			Reversible: true,
			Up:         stadiumPaymentImagesUp,
			Down:       stadiumPaymentImagesDown,
		},
		{
			Version:    5,
			Name:       "email_verifications",
			Reversible: true,
			Up:         emailVerificationsUp,
			Down:       emailVerificationsDown,
		},
	}
}

// InitialTables are the tables owned by migration 001.
var InitialTables = []string{
	"bookings",
	"payments",
	"regular_tickets",
	"special_tickets",
	"hero_images",
	"highlights",
	"stadiums_extended",
	"special_matches",
	"upcoming_fights_background",
	"promptpay_qr",
}

const initialSchema = `
CREATE TABLE IF NOT EXISTS bookings (
	id TEXT PRIMARY KEY,
	stadium TEXT NOT NULL,
	date TEXT NOT NULL,
	zone TEXT,
	ticket_id TEXT,
	ticket_type TEXT,
	customer_name TEXT NOT NULL,
	customer_email TEXT NOT NULL,
	customer_phone TEXT,
	quantity INTEGER NOT NULL DEFAULT 1,
	total_price REAL NOT NULL DEFAULT 0,
	payment_date DATETIME,
	paid_at DATETIME,
	payment_slip TEXT,
	status TEXT DEFAULT 'pending',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS payments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	reference_no TEXT NOT NULL UNIQUE,
	booking_id TEXT,
	amount REAL NOT NULL,
	status TEXT DEFAULT 'pending',
	qr_code_image TEXT,
	expire_date DATETIME,
	order_date DATETIME,
	customer_name TEXT,
	customer_email TEXT,
	customer_phone TEXT,
	merchant_id TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status);
CREATE INDEX IF NOT EXISTS idx_payments_booking_id ON payments(booking_id);
CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status);

-- Editable site content
CREATE TABLE IF NOT EXISTS regular_tickets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	stadium_id TEXT NOT NULL,
	name TEXT NOT NULL,
	zone TEXT,
	price REAL NOT NULL DEFAULT 0,
	seats INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS special_tickets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	stadium_id TEXT NOT NULL,
	name TEXT NOT NULL,
	zone TEXT,
	price REAL NOT NULL DEFAULT 0,
	date TEXT,
	seats INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS hero_images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	image TEXT NOT NULL,
	title TEXT,
	subtitle TEXT,
	sort_order INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS highlights (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT,
	image TEXT,
	video_url TEXT,
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS stadiums_extended (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	stadium_id TEXT NOT NULL UNIQUE,
	schedule_days TEXT DEFAULT '[0,1,2,3,4,5,6]',
	description TEXT,
	map_url TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS special_matches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	stadium_id TEXT NOT NULL,
	title TEXT NOT NULL,
	date TEXT,
	image TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS upcoming_fights_background (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	image TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS promptpay_qr (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	stadium_id TEXT,
	image TEXT NOT NULL,
	account_name TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

func initialSchemaUp(ctx context.Context, tx Execer, log zerolog.Logger) error {
	return execAll(ctx, tx, initialSchema)
}

func initialSchemaDown(ctx context.Context, tx Execer, log zerolog.Logger) error {
	for _, table := range InitialTables {
		if err := execAll(ctx, tx, "DROP TABLE IF EXISTS "+table); err != nil {
			return err
		}
	}
	return nil
}

func bookingPaymentIDUp(ctx context.Context, tx Execer, log zerolog.Logger) error {
	added, err := addColumn(ctx, tx, "bookings", "payment_id", "INTEGER")
	if err != nil {
		return err
	}
	if !added {
		log.Debug().Msg("bookings.payment_id already present, skipping")
	}

	return execAll(ctx, tx, `CREATE INDEX IF NOT EXISTS idx_bookings_payment_id ON bookings(payment_id)`)
}

// bookingPaymentIDDown keeps the column; dropping it would lose payment links.
func bookingPaymentIDDown(ctx context.Context, tx Execer, log zerolog.Logger) error {
	return execAll(ctx, tx, `DROP INDEX IF EXISTS idx_bookings_payment_id`)
}

const stadiumPaymentImagesSchema = `
CREATE TABLE IF NOT EXISTS stadium_payment_images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	stadium_id TEXT NOT NULL,
	image TEXT NOT NULL,
	days TEXT NOT NULL DEFAULT '[0,1,2,3,4,5,6]',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_stadium_payment_images_stadium_id ON stadium_payment_images(stadium_id);
`

func stadiumPaymentImagesUp(ctx context.Context, tx Execer, log zerolog.Logger) error {
	if err := execAll(ctx, tx, stadiumPaymentImagesSchema); err != nil {
		return err
	}

	result, err := BackfillStadiumPaymentImages(ctx, tx, log)
	if err != nil {
		return err
	}

	log.Info().
		Int("migrated", result.Migrated).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Stadium payment image backfill complete")
	return nil
}

// stadiumPaymentImagesDown leaves stadiums.payment_image untouched, so the
// legacy data survives a rollback.
func stadiumPaymentImagesDown(ctx context.Context, tx Execer, log zerolog.Logger) error {
	return execAll(ctx, tx,
		`DROP INDEX IF EXISTS idx_stadium_payment_images_stadium_id`,
		`DROP TABLE IF EXISTS stadium_payment_images`,
	)
}

const emailVerificationsSchema = `
CREATE TABLE IF NOT EXISTS email_verifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	verification_id TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL,
	booking_data TEXT NOT NULL,
	expires_at DATETIME NOT NULL,
	verified_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_email_verifications_email ON email_verifications(email);
CREATE INDEX IF NOT EXISTS idx_email_verifications_expires_at ON email_verifications(expires_at);
`

func emailVerificationsUp(ctx context.Context, tx Execer, log zerolog.Logger) error {
	return execAll(ctx, tx, emailVerificationsSchema)
}

func emailVerificationsDown(ctx context.Context, tx Execer, log zerolog.Logger) error {
	return execAll(ctx, tx,
		`DROP INDEX IF EXISTS idx_email_verifications_expires_at`,
		`DROP INDEX IF EXISTS idx_email_verifications_email`,
		`DROP TABLE IF EXISTS email_verifications`,
	)
}
