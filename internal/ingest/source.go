package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
)

// TableSource is one data directory: every *.csv file inside it loads into
// the same table.
type TableSource struct {
	Table string
	Dir   string
	Files []string
}

// Discover lists the immediate subdirectories of dataDir that hold at least
// one .csv file, sorted by table name. Table names are normalised from the
// directory names.
func Discover(dataDir string) ([]TableSource, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("ingest: read data dir: %w", err)
	}
	var out []TableSource
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(dataDir, e.Name())
		files, err := csvFiles(dir)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			continue
		}
		out = append(out, TableSource{Table: NormalizeName(e.Name()), Dir: dir, Files: files})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })
	return out, nil
}

func csvFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ingest: read %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// csvFile is a fully read CSV file. Empty cells are nil; everything else
// keeps its raw text.
type csvFile struct {
	Path        string
	Fingerprint uint64
	Header      []string
	Rows        [][]any
}

// readCSV reads path into memory. The header is normalised and the BOM
// dropped. Rows shorter than the header are padded with NULLs; longer rows
// are an error.
func readCSV(ctx context.Context, path string) (csvFile, error) {
	if err := ctx.Err(); err != nil {
		return csvFile{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return csvFile{}, fmt.Errorf("open %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))
	f := csvFile{Path: path, Fingerprint: xxh3.Hash(data)}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	hdr, err := cr.Read()
	if err == io.EOF {
		return f, nil
	}
	if err != nil {
		return csvFile{}, fmt.Errorf("%s: read header: %w", path, err)
	}
	f.Header = normalizeHeader(hdr)

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return csvFile{}, fmt.Errorf("%s: %w", path, err)
		}
		if len(rec) > len(f.Header) {
			line, _ := cr.FieldPos(0)
			return csvFile{}, fmt.Errorf("%s:%d: %d fields, header has %d", path, line, len(rec), len(f.Header))
		}
		row := make([]any, len(f.Header))
		for i, v := range rec {
			if v != "" {
				row[i] = v
			}
		}
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}

// rowHash keys exact-duplicate detection.
func rowHash(row []any) uint64 {
	h := xxh3.New()
	for _, v := range row {
		if s, ok := v.(string); ok {
			h.WriteString(s)
			h.Write([]byte{0x1f})
		} else {
			h.Write([]byte{0x00, 0x1f})
		}
	}
	return h.Sum64()
}
