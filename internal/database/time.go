package database

import (
	"database/sql/driver"
	"time"

	"github.com/pkg/errors"
)

// timeFormat sorts lexically and compares cleanly with CURRENT_TIMESTAMP values.
const timeFormat = "2006-01-02 15:04:05.000"

var parseLayouts = []string{
	timeFormat,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02",
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func formatNullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized time value %q", s)
}

// nullTime scans DATETIME columns whether the driver hands back a parsed
// time.Time or the raw text.
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (nt *nullTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		nt.Time, nt.Valid = time.Time{}, false
		return nil
	case time.Time:
		nt.Time, nt.Valid = v.UTC(), true
		return nil
	case string:
		return nt.scanText(v)
	case []byte:
		return nt.scanText(string(v))
	}
	return errors.Errorf("cannot scan %T into time", value)
}

func (nt *nullTime) scanText(s string) error {
	if s == "" {
		nt.Time, nt.Valid = time.Time{}, false
		return nil
	}
	t, err := parseTime(s)
	if err != nil {
		return err
	}
	nt.Time, nt.Valid = t, true
	return nil
}

func (nt nullTime) Value() (driver.Value, error) {
	if !nt.Valid {
		return nil, nil
	}
	return formatTime(nt.Time), nil
}

func (nt nullTime) Ptr() *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
