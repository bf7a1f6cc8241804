// Package dataset holds the column-oriented tables a node computes on, and the
// providers that load them from CSV files or SQL databases.
package dataset

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrColumnExists   = errors.New("column already exists")
	ErrLengthMismatch = errors.New("column length does not match dataset length")
	ErrNotNumeric     = errors.New("column is not numeric")
)

type column struct {
	num []float64
	str []string
}

func (c column) numeric() bool {
	return c.str == nil
}

// Dataset is a named-column table. Every column has the same length.
type Dataset struct {
	names []string
	cols  map[string]column
	rows  int
}

func New() *Dataset {
	return &Dataset{
		cols: make(map[string]column),
		rows: -1,
	}
}

func (d *Dataset) Len() int {
	if d.rows < 0 {
		return 0
	}

	return d.rows
}

func (d *Dataset) Columns() []string {
	names := make([]string, len(d.names))
	copy(names, d.names)

	return names
}

func (d *Dataset) Has(name string) bool {
	_, ok := d.cols[name]

	return ok
}

func (d *Dataset) AddNumeric(name string, values []float64) error {
	return d.add(name, column{num: values})
}

func (d *Dataset) AddText(name string, values []string) error {
	if values == nil {
		values = []string{}
	}

	return d.add(name, column{str: values})
}

func (d *Dataset) add(name string, c column) error {
	if _, ok := d.cols[name]; ok {
		return fmt.Errorf("%w: %s", ErrColumnExists, name)
	}
	n := len(c.num)
	if !c.numeric() {
		n = len(c.str)
	}
	if d.rows >= 0 && n != d.rows {
		return fmt.Errorf("%w: %s has %d rows, expected %d", ErrLengthMismatch, name, n, d.rows)
	}
	d.rows = n
	d.names = append(d.names, name)
	d.cols[name] = c

	return nil
}

// Float64s returns the values of a numeric column. The slice is owned by the
// dataset and must not be modified.
func (d *Dataset) Float64s(name string) ([]float64, error) {
	c, ok := d.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	if !c.numeric() {
		return nil, fmt.Errorf("%w: %s", ErrNotNumeric, name)
	}

	return c.num, nil
}

// SetFloat64s replaces the values of an existing column.
func (d *Dataset) SetFloat64s(name string, values []float64) error {
	if _, ok := d.cols[name]; !ok {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	if len(values) != d.Len() {
		return fmt.Errorf("%w: %s", ErrLengthMismatch, name)
	}
	d.cols[name] = column{num: values}

	return nil
}

// Strings returns the values of any column as text. Numeric values are
// formatted with the shortest exact representation.
func (d *Dataset) Strings(name string) ([]string, error) {
	c, ok := d.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	if !c.numeric() {
		return c.str, nil
	}

	out := make([]string, len(c.num))
	for i, v := range c.num {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}

	return out, nil
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		names: make([]string, len(d.names)),
		cols:  make(map[string]column, len(d.cols)),
		rows:  d.rows,
	}
	copy(out.names, d.names)
	for name, c := range d.cols {
		var cc column
		if c.numeric() {
			cc.num = append([]float64(nil), c.num...)
		} else {
			cc.str = append([]string{}, c.str...)
		}
		out.cols[name] = cc
	}

	return out
}

// Select returns a new dataset holding only the given rows, in order.
func (d *Dataset) Select(rows []int) *Dataset {
	out := &Dataset{
		names: make([]string, len(d.names)),
		cols:  make(map[string]column, len(d.cols)),
		rows:  len(rows),
	}
	copy(out.names, d.names)
	for name, c := range d.cols {
		var cc column
		if c.numeric() {
			cc.num = make([]float64, len(rows))
			for i, r := range rows {
				cc.num[i] = c.num[r]
			}
		} else {
			cc.str = make([]string, len(rows))
			for i, r := range rows {
				cc.str[i] = c.str[r]
			}
		}
		out.cols[name] = cc
	}

	return out
}
