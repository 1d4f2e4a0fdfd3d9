package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

const migrationTable = "schema_migrations"

// MigrationStatus describes one migration as seen by the runner and the ledger.
type MigrationStatus struct {
	Version    int        `json:"version"`
	Name       string     `json:"name"`
	Reversible bool       `json:"reversible"`
	Applied    bool       `json:"applied"`
	AppliedAt  *time.Time `json:"applied_at,omitempty"`
	// Known is false for ledger rows no registered migration matches.
	Known bool `json:"known"`
}

type ledgerRow struct {
	version   int
	name      string
	appliedAt time.Time
}

// Runner applies and reverts migrations, recording each in schema_migrations.
// Versions must be unique but need not be contiguous.
type Runner struct {
	db         *DB
	migrations []Migration
	log        zerolog.Logger
	now        func() time.Time
}

// NewRunner sorts migrations by version and rejects duplicate or non-positive versions.
func NewRunner(db *DB, migrations []Migration) (*Runner, error) {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	for i, m := range sorted {
		if m.Version <= 0 {
			return nil, errors.Errorf("migration %q has invalid version %d", m.Name, m.Version)
		}
		if m.Up == nil {
			return nil, errors.Errorf("migration %s has no up step", m)
		}
		if i > 0 && sorted[i-1].Version == m.Version {
			return nil, errors.Errorf("duplicate migration version %d", m.Version)
		}
	}

	return &Runner{
		db:         db,
		migrations: sorted,
		log:        db.log.With().Str("component", "migrate").Logger(),
		now:        time.Now,
	}, nil
}

// Gaps returns the version numbers missing between the first and last migration.
func (r *Runner) Gaps() []int {
	var gaps []int
	for i := 1; i < len(r.migrations); i++ {
		for v := r.migrations[i-1].Version + 1; v < r.migrations[i].Version; v++ {
			gaps = append(gaps, v)
		}
	}
	return gaps
}

// Latest returns the highest known version, or 0 when there are none.
func (r *Runner) Latest() int {
	if len(r.migrations) == 0 {
		return 0
	}
	return r.migrations[len(r.migrations)-1].Version
}

// Up applies every migration not yet recorded, in version order, each in its
// own transaction. The first failure stops the run; the failed migration is
// not recorded. It returns how many migrations were applied.
func (r *Runner) Up(ctx context.Context) (int, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	if err := r.ensureLedger(ctx); err != nil {
		return 0, err
	}

	if gaps := r.Gaps(); len(gaps) > 0 {
		r.log.Warn().Ints("missing_versions", gaps).Msg("Migration sequence has gaps, confirm no migration is missing")
	}

	applied, err := r.ledger(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range r.migrations {
		if _, ok := applied[m.Version]; ok {
			continue
		}

		r.log.Info().Msgf("Applying migration %s", m)
		if err := r.apply(ctx, m); err != nil {
			return count, errors.Wrapf(err, "migration %s failed", m)
		}
		count++
	}

	if count == 0 {
		r.log.Debug().Int("version", r.Latest()).Msg("Database schema is up to date")
		return 0, nil
	}

	r.log.Info().Int("applied", count).Msgf("Database schema upgraded to version: %v", r.Latest())
	return count, nil
}

func (r *Runner) apply(ctx context.Context, m Migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := m.Up(ctx, tx, r.log.With().Int("version", m.Version).Logger()); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (version, name, reversible, applied_at) VALUES (?, ?, ?, ?)", migrationTable),
		m.Version, m.Name, m.Reversible, formatTime(r.now()),
	)
	if err != nil {
		return errors.Wrap(err, "failed to record migration")
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return errors.Wrap(err, "failed to bump schema version")
	}

	return tx.Commit()
}

// Down reverts applied migrations with a version above target, newest first.
// If any of them is irreversible and force is false, nothing is reverted and
// domain.ErrIrreversibleMigration is returned.
func (r *Runner) Down(ctx context.Context, target int, force bool) (int, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	if err := r.ensureLedger(ctx); err != nil {
		return 0, err
	}

	applied, err := r.ledger(ctx)
	if err != nil {
		return 0, err
	}

	known := make(map[int]Migration, len(r.migrations))
	for _, m := range r.migrations {
		known[m.Version] = m
	}

	var pending []Migration
	for version := range applied {
		if version <= target {
			continue
		}
		m, ok := known[version]
		if !ok {
			return 0, errors.Errorf("cannot revert version %d: no such migration is registered", version)
		}
		if !m.Reversible && !force {
			return 0, errors.Wrapf(domain.ErrIrreversibleMigration, "migration %s", m)
		}
		pending = append(pending, m)
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Version > pending[j].Version
	})

	count := 0
	for _, m := range pending {
		if !m.Reversible {
			r.log.Warn().Msgf("Forcing best-effort rollback of irreversible migration %s", m)
		}
		r.log.Info().Msgf("Reverting migration %s", m)
		if err := r.revert(ctx, m, target); err != nil {
			return count, errors.Wrapf(err, "rollback of %s failed", m)
		}
		count++
	}

	return count, nil
}

func (r *Runner) revert(ctx context.Context, m Migration, target int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if m.Down != nil {
		if err := m.Down(ctx, tx, r.log.With().Int("version", m.Version).Logger()); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = ?", migrationTable), m.Version); err != nil {
		return errors.Wrap(err, "failed to remove migration record")
	}

	var previous int
	err = tx.QueryRowContext(ctx, fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", migrationTable)).Scan(&previous)
	if err != nil {
		return errors.Wrap(err, "failed to read previous version")
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", previous)); err != nil {
		return errors.Wrap(err, "failed to reset schema version")
	}

	return tx.Commit()
}

// Status lists every registered migration and any unknown ledger rows.
func (r *Runner) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := r.ensureLedger(ctx); err != nil {
		return nil, err
	}

	applied, err := r.ledger(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(r.migrations))
	for _, m := range r.migrations {
		st := MigrationStatus{
			Version:    m.Version,
			Name:       m.Name,
			Reversible: m.Reversible,
			Known:      true,
		}
		if row, ok := applied[m.Version]; ok {
			at := row.appliedAt
			st.Applied = true
			st.AppliedAt = &at
			delete(applied, m.Version)
		}
		statuses = append(statuses, st)
	}

	for _, row := range applied {
		at := row.appliedAt
		statuses = append(statuses, MigrationStatus{
			Version:   row.version,
			Name:      row.name,
			Applied:   true,
			AppliedAt: &at,
		})
	}

	sort.SliceStable(statuses, func(i, j int) bool {
		return statuses[i].Version < statuses[j].Version
	})

	return statuses, nil
}

func (r *Runner) ensureLedger(ctx context.Context) error {
	_, err := r.db.handler.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	reversible INTEGER NOT NULL DEFAULT 1,
	applied_at DATETIME NOT NULL
);`, migrationTable))
	if err != nil {
		return errors.Wrap(err, "failed to ensure migration ledger")
	}
	return nil
}

func (r *Runner) ledger(ctx context.Context) (map[int]ledgerRow, error) {
	rows, err := r.db.handler.QueryContext(ctx, fmt.Sprintf("SELECT version, name, applied_at FROM %s", migrationTable))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query migration ledger")
	}
	defer rows.Close()

	applied := make(map[int]ledgerRow)
	for rows.Next() {
		var (
			row ledgerRow
			at  nullTime
		)
		if err := rows.Scan(&row.version, &row.name, &at); err != nil {
			return nil, errors.Wrap(err, "error scanning migration ledger")
		}
		row.appliedAt = at.Time
		applied[row.version] = row
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating migration ledger")
	}

	return applied, nil
}
