// Package ingest loads a directory tree of CSV files into the ledger
// database, one table per subdirectory.
package ingest

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"bankledger/internal/catalog"
	gddl "bankledger/internal/ddl"
	"bankledger/internal/logger"
	"bankledger/internal/metrics"
	"bankledger/internal/query"
	"bankledger/internal/storage"
	sqliteddl "bankledger/internal/storage/sqlite/ddl"
)

// DefaultBatchSize is used when Options.BatchSize is not positive.
const DefaultBatchSize = 1000

// Options tunes a Loader.
type Options struct {
	BatchSize int
	// Dedup suppresses rows that repeat an earlier row of the same table
	// exactly, across all of that table's files.
	Dedup bool
	Job   string
}

// FileReport describes one loaded file.
type FileReport struct {
	Path        string
	Fingerprint string // xxh3, hex
	Rows        int64
}

// TableReport summarises one table.
type TableReport struct {
	Table      string
	Created    bool
	Columns    []string
	Kinds      []string
	Files      []FileReport
	Read       int64
	Written    int64
	Duplicates int64
	// Conflicts counts rows the table already held under the same key.
	Conflicts int64
}

// Loader writes CSV data through a storage.Repository.
type Loader struct {
	repo storage.Repository
	opts Options
}

// New returns a Loader. Zero options get defaults.
func New(repo storage.Repository, opts Options) *Loader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Job == "" {
		opts.Job = "bankledger"
	}
	return &Loader{repo: repo, opts: opts}
}

// LoadDir discovers and loads every table under dataDir in name order. It
// stops at the first failing table; tables already loaded stay loaded.
func (l *Loader) LoadDir(ctx context.Context, dataDir string) ([]TableReport, error) {
	sources, err := Discover(dataDir)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	log.Info().Str("data_dir", dataDir).Int("tables", len(sources)).Msg("ingest: discovered")

	reports := make([]TableReport, 0, len(sources))
	for _, src := range sources {
		rep, err := l.LoadTable(ctx, src)
		if err != nil {
			return reports, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// LoadTable reads all of src's files and inserts their rows into src.Table.
// A missing table is created from the inferred column kinds. An existing
// table keeps its columns and must contain every CSV header. Rows that
// collide with an existing key are skipped, so reloading keyed tables is safe.
func (l *Loader) LoadTable(ctx context.Context, src TableSource) (TableReport, error) {
	rep := TableReport{Table: src.Table}
	log := logger.FromContext(ctx).With().Str("table", src.Table).Logger()
	start := time.Now()

	files := make([]csvFile, 0, len(src.Files))
	var columns []string
	index := map[string]int{}
	for _, path := range src.Files {
		f, err := readCSV(ctx, path)
		if err != nil {
			return rep, fmt.Errorf("ingest: %s: %w", src.Table, err)
		}
		for _, h := range f.Header {
			if _, ok := index[h]; !ok {
				index[h] = len(columns)
				columns = append(columns, h)
			}
		}
		files = append(files, f)
	}
	if len(columns) == 0 {
		log.Warn().Msg("ingest: no header found, skipping")
		return rep, nil
	}

	// Every file is realigned onto the merged column order.
	var rows [][]any
	for _, f := range files {
		for _, r := range f.Rows {
			row := make([]any, len(columns))
			for i, h := range f.Header {
				row[index[h]] = r[i]
			}
			rows = append(rows, row)
		}
		rep.Files = append(rep.Files, FileReport{
			Path:        f.Path,
			Fingerprint: strconv.FormatUint(f.Fingerprint, 16),
			Rows:        int64(len(f.Rows)),
		})
		log.Debug().Str("file", f.Path).Str("xxh3", strconv.FormatUint(f.Fingerprint, 16)).
			Int("rows", len(f.Rows)).Msg("ingest: file read")
	}
	rep.Read = int64(len(rows))
	rep.Columns = columns
	rep.Kinds = inferKinds(len(columns), rows)

	created, err := l.prepareTable(ctx, src.Table, columns, rep.Kinds)
	if err != nil {
		return rep, err
	}
	rep.Created = created

	if l.opts.Dedup {
		rows, rep.Duplicates = dedupRows(rows)
	}

	stmt, err := query.BuildInsertIgnore(catalog.TableShape{Name: src.Table, Columns: columns})
	if err != nil {
		return rep, fmt.Errorf("ingest: %s: %w", src.Table, err)
	}
	var batches int64
	written, err := storage.InsertBatches(ctx, src.Table, rows, l.opts.BatchSize, func(ctx context.Context, batch [][]any) (int64, error) {
		batches++
		return l.repo.ExecBatch(ctx, stmt, batch)
	})
	rep.Written = written
	rep.Conflicts = int64(len(rows)) - written
	metrics.RecordBatches(l.opts.Job, src.Table, batches)
	metrics.RecordRows(l.opts.Job, src.Table, "loaded", written)
	if err != nil {
		return rep, fmt.Errorf("ingest: %s: insert: %w", src.Table, err)
	}

	log.Info().
		Int("files", len(files)).
		Str("rows_read", humanize.Comma(rep.Read)).
		Str("rows_written", humanize.Comma(rep.Written)).
		Int64("duplicates", rep.Duplicates).
		Int64("conflicts", rep.Conflicts).
		Bool("created", rep.Created).
		Dur("elapsed", time.Since(start).Truncate(time.Millisecond)).
		Msg("ingest: table loaded")
	return rep, nil
}

// prepareTable creates table when missing. When it exists, every column
// must already be present.
func (l *Loader) prepareTable(ctx context.Context, table string, columns, kinds []string) (bool, error) {
	exists, err := l.repo.TableExists(ctx, table)
	if err != nil {
		return false, fmt.Errorf("ingest: %s: %w", table, err)
	}
	if exists {
		have, err := tableColumns(ctx, l.repo, table)
		if err != nil {
			return false, err
		}
		for _, c := range columns {
			if !have[c] {
				return false, fmt.Errorf("ingest: %s: column %q is not in the existing table", table, c)
			}
		}
		return false, nil
	}

	def := gddl.TableDef{FQN: table}
	for i, c := range columns {
		def.Columns = append(def.Columns, gddl.ColumnDef{Name: c, SQLType: sqliteddl.MapType(kinds[i]), Nullable: true})
	}
	if err := sqliteddl.EnsureTable(ctx, l.repo, def); err != nil {
		return false, fmt.Errorf("ingest: %w", err)
	}
	return true, nil
}

func tableColumns(ctx context.Context, repo storage.Repository, table string) (map[string]bool, error) {
	rows, err := repo.Query(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: columns: %w", table, err)
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("ingest: %s: columns: %w", table, err)
		}
		out[name] = true
	}
	return out, rows.Err()
}

func dedupRows(rows [][]any) ([][]any, int64) {
	seen := make(map[uint64]struct{}, len(rows))
	out := rows[:0]
	var dup int64
	for _, r := range rows {
		h := rowHash(r)
		if _, ok := seen[h]; ok {
			dup++
			continue
		}
		seen[h] = struct{}{}
		out = append(out, r)
	}
	return out, dup
}
