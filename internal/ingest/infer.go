package ingest

import (
	"strconv"
	"strings"
	"time"
)

// Column kinds produced by inference; they map onto SQLite types through
// the sqlite ddl package.
const (
	KindInt       = "int"
	KindReal      = "real"
	KindTimestamp = "timestamp"
	KindText      = "text"
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02",
}

// inferKind picks the narrowest kind every non-empty value satisfies.
// Columns with no values at all are text.
func inferKind(values []string) string {
	var nonEmpty []string
	for _, v := range values {
		if v != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}
	switch {
	case len(nonEmpty) == 0:
		return KindText
	case allMatch(nonEmpty, isInt):
		return KindInt
	case allMatch(nonEmpty, isReal):
		return KindReal
	case allMatch(nonEmpty, isTimestamp):
		return KindTimestamp
	default:
		return KindText
	}
}

// inferKinds runs inferKind per column over all rows. Cells beyond a row's
// width count as empty.
func inferKinds(width int, rows [][]any) []string {
	kinds := make([]string, width)
	col := make([]string, 0, len(rows))
	for i := 0; i < width; i++ {
		col = col[:0]
		for _, r := range rows {
			if i < len(r) {
				if s, ok := r[i].(string); ok {
					col = append(col, s)
				}
			}
		}
		kinds[i] = inferKind(col)
	}
	return kinds
}

func allMatch(vals []string, pred func(string) bool) bool {
	for _, v := range vals {
		if !pred(v) {
			return false
		}
	}
	return true
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

// isReal accepts any float literal, integers included, so mixed columns
// widen to real.
func isReal(s string) bool {
	st := strings.TrimSpace(s)
	if !strings.ContainsAny(st, "0123456789") {
		return false // NaN, Inf
	}
	_, err := strconv.ParseFloat(st, 64)
	return err == nil
}

func isTimestamp(s string) bool {
	st := strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, st); err == nil {
			return true
		}
	}
	return false
}

func itoa(n int) string { return strconv.Itoa(n) }
