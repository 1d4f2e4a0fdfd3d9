package database

import (
	"context"
	"fmt"

	"github.com/varoOP/muaythaitickets/internal/domain"
)

// TableReport is the check-database view of one table.
type TableReport struct {
	Name     string   `json:"name"`
	Exists   bool     `json:"exists"`
	Columns  []Column `json:"columns,omitempty"`
	RowCount int64    `json:"row_count"`
	Error    string   `json:"error,omitempty"`
}

// Report summarizes the live schema for operators.
type Report struct {
	Path           string            `json:"path"`
	UserVersion    int               `json:"user_version"`
	Tables         []TableReport     `json:"tables"`
	RecentPayments []*domain.Payment `json:"recent_payments"`
	Errors         []string          `json:"errors,omitempty"`
}

// InspectedTables lists every table the report covers, in display order.
func InspectedTables() []string {
	tables := append([]string{}, InitialTables...)
	return append(tables, "stadium_payment_images", "email_verifications", migrationTable)
}

// Inspect builds a Report. Failures are collected in the report rather than
// returned so the caller can always print what was gathered.
func (db *DB) Inspect(ctx context.Context, recent int) *Report {
	report := &Report{Path: db.path}

	if err := db.handler.QueryRowContext(ctx, "PRAGMA user_version").Scan(&report.UserVersion); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("user_version: %v", err))
	}

	for _, name := range InspectedTables() {
		report.Tables = append(report.Tables, db.inspectTable(ctx, name))
	}

	exists, err := tableExists(ctx, db.handler, "payments")
	switch {
	case err != nil:
		report.Errors = append(report.Errors, err.Error())
	case exists:
		payments, err := NewPaymentRepo(db.log, db).ListRecent(ctx, recent)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("recent payments: %v", err))
		}
		report.RecentPayments = payments
	}

	return report
}

func (db *DB) inspectTable(ctx context.Context, name string) TableReport {
	t := TableReport{Name: name}

	exists, err := tableExists(ctx, db.handler, name)
	if err != nil {
		t.Error = err.Error()
		return t
	}
	t.Exists = exists
	if !exists {
		return t
	}

	if t.Columns, err = tableColumns(ctx, db.handler, name); err != nil {
		t.Error = err.Error()
		return t
	}

	if err := db.handler.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %q", name)).Scan(&t.RowCount); err != nil {
		t.Error = err.Error()
	}

	return t
}
