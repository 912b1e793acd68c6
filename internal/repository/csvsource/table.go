package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

// table is a CSV file addressed by header name.
type table struct {
	name   string
	header map[string]int
	rows   [][]string
}

// readTable loads dir/name. Missing optional files yield an empty table.
func readTable(dir, name string, optional bool) (*table, error) {
	path := filepath.Join(dir, name)
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) && optional {
		return &table{name: name, header: map[string]int{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &table{name: name, header: map[string]int{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}

	t := &table{name: name, header: make(map[string]int, len(header))}
	for i, h := range header {
		t.header[normalizeColumnName(h)] = i
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		t.rows = append(t.rows, record)
	}
	return t, nil
}

func normalizeColumnName(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
}

// row gives typed access to one record; the first parse error sticks.
type row struct {
	t      *table
	line   int
	record []string
	err    error
}

func (t *table) each(fn func(r *row) error) error {
	for i, record := range t.rows {
		r := &row{t: t, line: i + 2, record: record}
		if err := fn(r); err != nil {
			return err
		}
		if r.err != nil {
			return r.err
		}
	}
	return nil
}

func (r *row) fail(col, msg string) {
	if r.err == nil {
		r.err = domain.InvalidArgument(fmt.Sprintf("%s line %d: column %s: %s", r.t.name, r.line, col, msg))
	}
}

func (r *row) str(col string) string {
	idx, ok := r.t.header[col]
	if !ok || idx >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[idx])
}

func (r *row) required(col string) string {
	v := r.str(col)
	if v == "" {
		r.fail(col, "value is required")
	}
	return v
}

func (r *row) number(col string) float64 {
	v := r.str(col)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(col, fmt.Sprintf("%q is not a number", v))
	}
	return f
}

func (r *row) integer(col string) int {
	v := r.str(col)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(col, fmt.Sprintf("%q is not an integer", v))
	}
	return n
}

func (r *row) boolean(col string) bool {
	switch strings.ToLower(r.str(col)) {
	case "", "0", "false", "no", "n":
		return false
	case "1", "true", "yes", "y":
		return true
	default:
		r.fail(col, fmt.Sprintf("%q is not a boolean", r.str(col)))
		return false
	}
}

// date accepts YYYY-MM-DD or RFC 3339.
func (r *row) date(col string) time.Time {
	v := r.required(col)
	if v == "" {
		return time.Time{}
	}
	if t, err := time.Parse(domain.DateLayout, v); err == nil {
		return t
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		r.fail(col, fmt.Sprintf("%q is not a date", v))
	}
	return t.UTC()
}

func (r *row) optionalTime(col string) time.Time {
	if r.str(col) == "" {
		return time.Time{}
	}
	return r.date(col)
}
