package eventtable

import (
	"encoding/json"
	"fmt"
	"slices"
)

const (
	removedKey  = "removed"
	observedKey = "observed"
	censoredKey = "censored"
	atRiskKey   = "at_risk"
)

// Row holds the counts of one time on the global axis.
type Row struct {
	Time     float64
	Removed  int64
	Observed int64
	Censored int64
	AtRisk   int64
}

// Table is a node's event table aligned to the global time axis, ascending
// by time.
type Table struct {
	TimeColumn string
	Rows       []Row
}

func (t Table) Times() []float64 {
	times := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		times[i] = r.Time
	}

	return times
}

// MarshalJSON encodes the table row by row, one object per time keyed by the
// time column name.
func (t Table) MarshalJSON() ([]byte, error) {
	rows := make([]map[string]any, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = map[string]any{
			t.TimeColumn: r.Time,
			removedKey:   r.Removed,
			observedKey:  r.Observed,
			censoredKey:  r.Censored,
			atRiskKey:    r.AtRisk,
		}
	}

	return json.Marshal(rows)
}

func (t *Table) UnmarshalJSON(data []byte) error {
	var rows []map[string]float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}

	t.TimeColumn = ""
	t.Rows = make([]Row, len(rows))
	for i, r := range rows {
		timeKey, err := timeKeyOf(r)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if t.TimeColumn == "" {
			t.TimeColumn = timeKey
		}
		if timeKey != t.TimeColumn {
			return fmt.Errorf("row %d: time column %q differs from %q", i, timeKey, t.TimeColumn)
		}
		t.Rows[i] = Row{
			Time:     r[timeKey],
			Removed:  int64(r[removedKey]),
			Observed: int64(r[observedKey]),
			Censored: int64(r[censoredKey]),
			AtRisk:   int64(r[atRiskKey]),
		}
	}

	return nil
}

func timeKeyOf(row map[string]float64) (string, error) {
	var keys []string
	for k := range row {
		switch k {
		case removedKey, observedKey, censoredKey, atRiskKey:
		default:
			keys = append(keys, k)
		}
	}
	if len(keys) != 1 {
		slices.Sort(keys)

		return "", fmt.Errorf("expected exactly one time column, got %v", keys)
	}

	return keys[0], nil
}
