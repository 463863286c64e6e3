package storage

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is how every timestamp is written: UTC, second precision,
// text. SQLite's date functions read it directly.
const TimestampLayout = "2006-01-02 15:04:05"

// readLayouts are the shapes a stored timestamp may come back in. The driver
// turns TIMESTAMP-declared text into time.Time itself; columns without a
// declared type (view expressions) come back as text.
var readLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// FormatTimestamp renders t in TimestampLayout after converting to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts any of the layouts the store may hand back.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range readLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("storage: unrecognised timestamp %q", s)
}

// NullTimestamp scans a nullable timestamp column regardless of whether the
// driver returns time.Time, text, or bytes.
type NullTimestamp struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (n *NullTimestamp) Scan(src any) error {
	n.Time, n.Valid = time.Time{}, false
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		n.Time, n.Valid = v.UTC(), true
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	case int64:
		n.Time, n.Valid = time.Unix(v, 0).UTC(), true
		return nil
	default:
		return fmt.Errorf("storage: cannot scan %T into NullTimestamp", src)
	}
}

func (n *NullTimestamp) parse(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	n.Time, n.Valid = t, true
	return nil
}

// Value implements driver.Valuer, writing TimestampLayout text.
func (n NullTimestamp) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return FormatTimestamp(n.Time), nil
}

// String renders the timestamp in TimestampLayout, or "" when NULL.
func (n NullTimestamp) String() string {
	if !n.Valid {
		return ""
	}
	return FormatTimestamp(n.Time)
}
