// Package survival merges node event tables into the global Kaplan-Meier
// curve.
package survival

import (
	"errors"
	"fmt"
	"slices"

	"github.com/absmach/fedkm/pkg/eventtable"
)

var (
	ErrNoTables           = errors.New("no event tables to aggregate")
	ErrTimeColumnMismatch = errors.New("event tables disagree on the time column")
)

type Row struct {
	Time     float64 `json:"time"`
	Removed  int64   `json:"removed"`
	Observed int64   `json:"observed"`
	Censored int64   `json:"censored"`
	AtRisk   int64   `json:"at_risk"`
	Hazard   float64 `json:"hazard"`
	Survival float64 `json:"survival"`
	CDF      float64 `json:"cdf"`
	PMF      float64 `json:"pmf"`
}

// Curve is ascending by time and has one row per time on the global axis.
type Curve struct {
	TimeColumn string `json:"time_column"`
	Rows       []Row  `json:"rows"`
}

func (c Curve) Times() []float64 {
	times := make([]float64, len(c.Rows))
	for i, r := range c.Rows {
		times[i] = r.Time
	}

	return times
}

// Aggregate sums the tables per time and derives hazard, survival, cdf and
// pmf. A time with nobody at risk has zero hazard.
func Aggregate(tables []eventtable.Table) (Curve, error) {
	if len(tables) == 0 {
		return Curve{}, ErrNoTables
	}

	timeColumn := tables[0].TimeColumn
	sums := make(map[float64]*Row)
	for _, t := range tables {
		if t.TimeColumn != timeColumn {
			return Curve{}, fmt.Errorf("%w: %q and %q", ErrTimeColumnMismatch, timeColumn, t.TimeColumn)
		}
		for _, r := range t.Rows {
			s, ok := sums[r.Time]
			if !ok {
				s = &Row{Time: r.Time}
				sums[r.Time] = s
			}
			s.Removed += r.Removed
			s.Observed += r.Observed
			s.Censored += r.Censored
			s.AtRisk += r.AtRisk
		}
	}

	rows := make([]Row, 0, len(sums))
	for _, s := range sums {
		rows = append(rows, *s)
	}
	slices.SortFunc(rows, func(a, b Row) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		default:
			return 0
		}
	})

	survival := 1.0
	prevCDF := 0.0
	for i := range rows {
		r := &rows[i]
		if r.AtRisk > 0 {
			r.Hazard = float64(r.Observed) / float64(r.AtRisk)
		}
		survival *= 1 - r.Hazard
		r.Survival = survival
		r.CDF = 1 - survival
		if i > 0 {
			r.PMF = r.CDF - prevCDF
		}
		prevCDF = r.CDF
	}

	return Curve{TimeColumn: timeColumn, Rows: rows}, nil
}
