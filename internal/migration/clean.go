package migration

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bankledger/internal/storage"
)

// transactionNamespace seeds derived transaction ids. Changing it changes
// every id a rerun would produce.
var transactionNamespace = uuid.MustParse("6f0d2c1e-8a4b-5d7e-9c3f-1b2a4e6d8f10")

// sentinels are legacy markers for "no value".
var sentinels = map[string]struct{}{
	"":     {},
	"None": {},
	"none": {},
	"NULL": {},
	"null": {},
}

func isSentinel(s string) bool {
	_, ok := sentinels[strings.TrimSpace(s)]
	return ok
}

// text renders a driver value as a string. NULL reports false.
func text(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		return storage.FormatTimestamp(x), true
	default:
		return "", false
	}
}

// castAmount converts a legacy amount to a decimal. NULL, sentinels,
// non-numeric text and non-finite floats fail.
func castAmount(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case int64:
		return decimal.NewFromInt(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(x), true
	case string, []byte:
		s, _ := text(x)
		if isSentinel(s) {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	default:
		return decimal.Decimal{}, false
	}
}

// normalizeStatus maps sentinel statuses to NULL and passes the rest through.
func normalizeStatus(v any) any {
	s, ok := text(v)
	if !ok || isSentinel(s) {
		return nil
	}
	return s
}

// accountRef renders account_id as text, keeping NULL.
func accountRef(v any) any {
	s, ok := text(v)
	if !ok {
		return nil
	}
	return s
}

// transactionID derives a stable id from the source table and legacy id, so
// a rerun maps each legacy row to the id it got the first time. Rows without
// a legacy id get a random one.
func transactionID(table string, legacyID any) string {
	id, ok := text(legacyID)
	if !ok || isSentinel(id) {
		return uuid.NewString()
	}
	return uuid.NewSHA1(transactionNamespace, []byte(table+":"+id)).String()
}

// TimeIndex maps d_time.time_id to action_timestamp.
type TimeIndex map[int64]time.Time

// Resolve turns a legacy time field into a timestamp. The field is normally
// an integer key into the time dimension; a value that already reads as a
// calendar timestamp passes through. Absent keys, sentinels and anything
// else unparseable resolve to NULL.
func (ix TimeIndex) Resolve(v any) storage.NullTimestamp {
	switch x := v.(type) {
	case nil:
		return storage.NullTimestamp{}
	case int64:
		return ix.lookup(x)
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return storage.NullTimestamp{}
		}
		return ix.lookup(int64(x))
	case time.Time:
		return storage.NullTimestamp{Time: x.UTC(), Valid: true}
	case string, []byte:
		s, _ := text(x)
		if isSentinel(s) {
			return storage.NullTimestamp{}
		}
		s = strings.TrimSpace(s)
		if k, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ix.lookup(k)
		}
		if t, err := storage.ParseTimestamp(s); err == nil {
			return storage.NullTimestamp{Time: t, Valid: true}
		}
		return storage.NullTimestamp{}
	default:
		return storage.NullTimestamp{}
	}
}

func (ix TimeIndex) lookup(k int64) storage.NullTimestamp {
	t, ok := ix[k]
	if !ok {
		return storage.NullTimestamp{}
	}
	return storage.NullTimestamp{Time: t, Valid: true}
}

// rowNote classifies a legacy row that needed special handling.
type rowNote string

const (
	// noteAmountCast rows are excluded from the unified table.
	noteAmountCast rowNote = "amount_cast"
	// noteUnknownDirection rows are migrated with a NULL transaction_type.
	noteUnknownDirection rowNote = "unknown_direction"
)

// migrateRow maps one legacy row, in readShape order, to unified column
// order. A nil row means the row is excluded; the note says why, or flags a
// migrated row that lost its type.
func migrateRow(src Source, times TimeIndex, raw []any) ([]any, rowNote) {
	amount, ok := castAmount(raw[2])
	if !ok {
		return nil, noteAmountCast
	}

	var (
		direction any
		note      rowNote
		typ       any
	)
	if src.DirectionField != "" {
		direction = raw[6]
	}
	if t, ok := src.transactionType(direction); ok {
		typ = t
	} else {
		note = noteUnknownDirection
	}

	requested, _ := times.Resolve(raw[3]).Value()
	completed, _ := times.Resolve(raw[4]).Value()

	return []any{
		transactionID(src.Table, raw[0]),
		accountRef(raw[1]),
		amount.String(),
		typ,
		requested,
		completed,
		normalizeStatus(raw[5]),
	}, note
}
