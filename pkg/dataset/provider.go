package dataset

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	// SQLite driver registered as "sqlite".
	_ "modernc.org/sqlite"
)

const SQLiteDriver = "sqlite"

var ErrEmptySource = errors.New("dataset source has no header")

// Provider loads the node's private dataset.
type Provider interface {
	Load(ctx context.Context) (*Dataset, error)
}

type staticProvider struct {
	ds *Dataset
}

// NewStaticProvider serves a copy of ds on every Load.
func NewStaticProvider(ds *Dataset) Provider {
	return &staticProvider{ds: ds}
}

func (p *staticProvider) Load(_ context.Context) (*Dataset, error) {
	return p.ds.Clone(), nil
}

type csvProvider struct {
	path string
}

// NewCSVProvider reads a comma separated file with a header row.
func NewCSVProvider(path string) Provider {
	return &csvProvider{path: path}
}

func (p *csvProvider) Load(_ context.Context) (*Dataset, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset '%s': %w", p.path, err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV parses CSV records. Columns whose every value parses as a number
// become numeric columns, the others stay text.
func ReadCSV(r io.Reader) (*Dataset, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptySource
	}

	header := records[0]
	raw := make([][]any, len(header))
	for _, rec := range records[1:] {
		for i := range header {
			raw[i] = append(raw[i], rec[i])
		}
	}

	return fromRaw(header, raw)
}

type sqlProvider struct {
	db    *sql.DB
	query string
}

// NewSQLProvider runs query against db on every Load.
func NewSQLProvider(db *sql.DB, query string) Provider {
	return &sqlProvider{db: db, query: query}
}

func (p *sqlProvider) Load(ctx context.Context) (*Dataset, error) {
	rows, err := p.db.QueryContext(ctx, p.query)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrEmptySource
	}

	raw := make([][]any, len(names))
	dest := make([]any, len(names))
	for rows.Next() {
		vals := make([]any, len(names))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan dataset row: %w", err)
		}
		for i, v := range vals {
			raw[i] = append(raw[i], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return fromRaw(names, raw)
}

func fromRaw(names []string, raw [][]any) (*Dataset, error) {
	d := New()
	for i, name := range names {
		if nums, ok := asNumbers(raw[i]); ok {
			if err := d.AddNumeric(name, nums); err != nil {
				return nil, err
			}

			continue
		}
		if err := d.AddText(name, asStrings(raw[i])); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func asNumbers(vals []any) ([]float64, bool) {
	out := make([]float64, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case int64:
			out[i] = float64(x)
		case float64:
			out[i] = x
		case string:
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return nil, false
			}
			out[i] = f
		case []byte:
			f, err := strconv.ParseFloat(string(x), 64)
			if err != nil {
				return nil, false
			}
			out[i] = f
		default:
			return nil, false
		}
	}

	return out, true
}

func asStrings(vals []any) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case string:
			out[i] = x
		case []byte:
			out[i] = string(x)
		default:
			out[i] = fmt.Sprint(x)
		}
	}

	return out
}
