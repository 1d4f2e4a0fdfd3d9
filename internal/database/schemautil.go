package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Column mirrors one row of PRAGMA table_info.
type Column struct {
	CID        int     `json:"cid"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	NotNull    bool    `json:"not_null"`
	Default    *string `json:"default,omitempty"`
	PrimaryKey int     `json:"pk"`
}

func tableExists(ctx context.Context, ex Execer, table string) (bool, error) {
	return objectExists(ctx, ex, "table", table)
}

func indexExists(ctx context.Context, ex Execer, index string) (bool, error) {
	return objectExists(ctx, ex, "index", index)
}

func objectExists(ctx context.Context, ex Execer, kind, name string) (bool, error) {
	var n int
	err := ex.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name = ?`, kind, name).Scan(&n)
	if err != nil {
		return false, errors.Wrapf(err, "failed to look up %s %s", kind, name)
	}
	return n > 0, nil
}

// tableColumns returns the live column list; a missing table yields no columns.
func tableColumns(ctx context.Context, ex Execer, table string) ([]Column, error) {
	rows, err := ex.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read columns of %s", table)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var (
			c       Column
			notNull int
		)
		if err := rows.Scan(&c.CID, &c.Name, &c.Type, &notNull, &c.Default, &c.PrimaryKey); err != nil {
			return nil, errors.Wrap(err, "error scanning column")
		}
		c.NotNull = notNull != 0
		columns = append(columns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating columns")
	}

	return columns, nil
}

func columnExists(ctx context.Context, ex Execer, table, column string) (bool, error) {
	columns, err := tableColumns(ctx, ex, table)
	if err != nil {
		return false, err
	}
	for _, c := range columns {
		if c.Name == column {
			return true, nil
		}
	}
	return false, nil
}

// addColumn adds column to table unless the live schema already has it.
// It reports whether the column was added. Any ALTER failure is returned.
func addColumn(ctx context.Context, ex Execer, table, column, definition string) (bool, error) {
	exists, err := columnExists(ctx, ex, table, column)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
	if _, err := ex.ExecContext(ctx, stmt); err != nil {
		return false, errors.Wrapf(err, "failed to add column %s.%s", table, column)
	}
	return true, nil
}

func execAll(ctx context.Context, ex Execer, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute %q", firstLine(stmt))
		}
	}
	return nil
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}
