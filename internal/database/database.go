package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// DefaultFileName is the database file used when no path is configured.
const DefaultFileName = "tickets.db"

// DB wraps the SQLite handle shared by the repositories and the migration runner.
type DB struct {
	handler  *sql.DB
	log      zerolog.Logger
	lock     sync.Mutex
	squirrel sq.StatementBuilderType
	path     string
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewDB opens the SQLite file at path. The schema is not touched;
// call Migrate to bring it up to date.
func NewDB(path string, log zerolog.Logger) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultFileName
	}

	db := &DB{
		log:      log.With().Str("module", "database").Logger(),
		squirrel: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		path:     filepath.Clean(path),
	}

	var err error
	dsn := db.path + "?_pragma=busy_timeout%3d5000"

	db.handler, err = sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to database")
	}

	if _, err = db.handler.Exec(`PRAGMA journal_mode = wal;`); err != nil {
		db.handler.Close()
		return nil, errors.Wrap(err, "unable to enable WAL mode")
	}

	db.log.Debug().Str("path", db.path).Msg("Opened database")
	return db, nil
}

// Migrate applies every pending migration in order.
func (db *DB) Migrate(ctx context.Context) error {
	runner, err := NewRunner(db, Migrations())
	if err != nil {
		return err
	}

	_, err = runner.Up(ctx)
	return err
}

// Path returns the cleaned database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection
func (db *DB) Close() error {
	if _, err := db.handler.Exec(`PRAGMA optimize;`); err != nil {
		return errors.Wrap(err, "query planner optimization")
	}

	return db.handler.Close()
}

// Ping checks if the database connection is alive
func (db *DB) Ping(ctx context.Context) error {
	return db.handler.PingContext(ctx)
}

// BeginTx starts a new transaction
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := db.handler.BeginTx(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}

	return &Tx{Tx: tx}, nil
}

// Tx represents a database transaction
type Tx struct {
	*sql.Tx
}
