package migration

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bankledger/internal/catalog"
	"bankledger/internal/logger"
	"bankledger/internal/query"
	"bankledger/internal/storage"
)

// LoadTimeIndex reads d_time once. Rows whose key is not an integer or whose
// timestamp is NULL or unparseable are skipped; references to them resolve to
// NULL.
func LoadTimeIndex(ctx context.Context, repo storage.Repository) (TimeIndex, error) {
	stmt, err := query.BuildSelect(catalog.TableShape{
		Name:    catalog.Time,
		Columns: []string{"time_id", "action_timestamp"},
	}, query.SelectSpec{})
	if err != nil {
		return nil, err
	}

	rows, err := repo.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", catalog.Time, err)
	}
	defer rows.Close()

	ix := TimeIndex{}
	var skipped int
	for rows.Next() {
		var key, raw any
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", catalog.Time, err)
		}
		k, ok := timeKey(key)
		if !ok {
			skipped++
			continue
		}
		t, ok := timeValue(raw)
		if !ok {
			skipped++
			continue
		}
		ix[k] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", catalog.Time, err)
	}
	if skipped > 0 {
		log := logger.FromContext(ctx)
		log.Warn().
			Int("skipped", skipped).
			Int("entries", len(ix)).
			Msg("migration: unusable time dimension rows ignored")
	}
	return ix, nil
}

func timeValue(v any) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t.UTC(), true
	}
	if n, ok := v.(int64); ok {
		return time.Unix(n, 0).UTC(), true
	}
	s, ok := text(v)
	if !ok || strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	t, err := storage.ParseTimestamp(s)
	return t, err == nil
}

func timeKey(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		if x != float64(int64(x)) {
			return 0, false
		}
		return int64(x), true
	default:
		s, ok := text(v)
		if !ok {
			return 0, false
		}
		k, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return k, err == nil
	}
}
