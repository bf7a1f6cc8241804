// Package guard enforces a node's local privacy policy before any
// computation touches its dataset.
package guard

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/absmach/fedkm/pkg/dataset"
	"github.com/absmach/fedkm/pkg/errors"
)

const (
	DefMinRecords        = 3
	DefAllowedTimeColumn = ".*"
)

type Config struct {
	// MinRecords is the record count a dataset must exceed.
	MinRecords int
	// AllowedTimeColumns are regular expressions matched at the start of the
	// requested time column name.
	AllowedTimeColumns []string
	// FilterColumn is the column cohort filters are applied to. Empty
	// disables filtering.
	FilterColumn string
	// AllowedFilterValues restricts the values a filter may select. Empty
	// allows any value.
	AllowedFilterValues []string
}

// Policy is immutable once built.
type Policy struct {
	minRecords   int
	patterns     []string
	timeColumns  []*regexp.Regexp
	filterColumn string
	filterValues []string
}

func New(cfg Config) (Policy, error) {
	if cfg.MinRecords < 0 {
		return Policy{}, fmt.Errorf("%w: minimum number of records must not be negative, got %d", errors.ErrConfiguration, cfg.MinRecords)
	}

	patterns := cfg.AllowedTimeColumns
	if len(patterns) == 0 {
		patterns = []string{DefAllowedTimeColumn}
	}

	p := Policy{
		minRecords:   cfg.MinRecords,
		patterns:     slices.Clone(patterns),
		filterColumn: cfg.FilterColumn,
		filterValues: slices.Clone(cfg.AllowedFilterValues),
	}
	for _, pattern := range patterns {
		re, err := regexp.Compile("^(?:" + pattern + ")")
		if err != nil {
			return Policy{}, fmt.Errorf("%w: invalid time column pattern %q: %s", errors.ErrConfiguration, pattern, err)
		}
		p.timeColumns = append(p.timeColumns, re)
	}

	return p, nil
}

func (p Policy) MinRecords() int {
	return p.minRecords
}

func (p Policy) AllowedTimeColumns() []string {
	return slices.Clone(p.patterns)
}

// Validate runs the record count, allow-list and schema checks in that order.
func (p Policy) Validate(ds *dataset.Dataset, timeColumn string) error {
	if ds.Len() <= p.minRecords {
		return fmt.Errorf("%w: number of records must be greater than %d", errors.ErrInput, p.minRecords)
	}

	if !p.timeColumnAllowed(timeColumn) {
		return fmt.Errorf("%w: column '%s' is not allowed as a time column", errors.ErrInput, timeColumn)
	}

	if !ds.Has(timeColumn) {
		return fmt.Errorf("%w: column '%s' not found in the dataset", errors.ErrInput, timeColumn)
	}

	return nil
}

func (p Policy) timeColumnAllowed(name string) bool {
	for _, re := range p.timeColumns {
		if re.MatchString(name) {
			return true
		}
	}

	return false
}

// Filter keeps the rows whose configured filter column equals value.
func (p Policy) Filter(ds *dataset.Dataset, value string) (*dataset.Dataset, error) {
	if p.filterColumn == "" {
		return nil, fmt.Errorf("%w: filtering requested but no filter column is configured", errors.ErrConfiguration)
	}
	if !ds.Has(p.filterColumn) {
		return nil, fmt.Errorf("%w: filter column '%s' not found in the dataset", errors.ErrInput, p.filterColumn)
	}
	if len(p.filterValues) > 0 && !slices.Contains(p.filterValues, value) {
		return nil, fmt.Errorf("%w: filter value '%s' is not allowed", errors.ErrInput, value)
	}

	vals, err := ds.Strings(p.filterColumn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrInput, err)
	}

	var rows []int
	for i, v := range vals {
		if v == value {
			rows = append(rows, i)
		}
	}

	return ds.Select(rows), nil
}
